package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ytget/tg-downloader/internal/bot"
	"github.com/ytget/tg-downloader/internal/catalog"
	"github.com/ytget/tg-downloader/internal/config"
	"github.com/ytget/tg-downloader/internal/download"
	"github.com/ytget/tg-downloader/internal/engine"
	"github.com/ytget/tg-downloader/internal/gateway"
	"github.com/ytget/tg-downloader/internal/history"
	"github.com/ytget/tg-downloader/internal/media"
	"github.com/ytget/tg-downloader/internal/model"
	"github.com/ytget/tg-downloader/internal/platform"
	"github.com/ytget/tg-downloader/internal/session"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppName = "YT Downloader Bot"

	// Running jobs get this long to finish after a shutdown signal
	ShutdownTimeout = 2 * time.Minute
	InstallTimeout  = 2 * time.Minute
)

func main() {
	log.Printf("%s v%s starting...", AppName, version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%s stopped: %v", AppName, err)
	}
	log.Printf("%s stopped", AppName)
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.YTDLPAutoInstall {
		installCtx, cancel := context.WithTimeout(ctx, InstallTimeout)
		err := engine.Install(installCtx)
		cancel()
		if err != nil {
			return err
		}
	}

	if err := platform.CreateDirectoryIfNotExists(cfg.TempDir); err != nil {
		return fmt.Errorf("failed to ensure temp dir: %w", err)
	}

	recorder, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	tg, err := gateway.NewTelegram(cfg.BotToken)
	if err != nil {
		return err
	}

	eng := engine.NewYTDLP(engine.Options{
		AudioFormat:  cfg.AudioFormat,
		AudioQuality: cfg.AudioQuality,
	})
	store := session.NewStore(cfg.SessionTTL)

	jobs := download.NewService(eng, tg, download.Options{
		TempDir:          cfg.TempDir,
		MaxUploadSize:    cfg.MaxUploadSize,
		MaxParallel:      cfg.MaxConcurrentJobs,
		ProgressInterval: cfg.ProgressInterval,
		AudioFormat:      cfg.AudioFormat,
	})
	jobs.SetReleaser(store)
	jobs.SetRecorder(recorder)
	jobs.SetUpdateCallback(func(job model.DownloadJob) {
		log.Printf("Job %s -> %s", job.ID, job.State)
	})

	inspector := media.NewInspector()
	if inspector.Available() {
		jobs.SetProber(inspector)
	} else {
		log.Printf("ffmpeg/ffprobe not found, videos are sent without metadata")
	}

	b := bot.New(tg, eng, catalog.NewBuilder(cfg.AudioFormat), store, jobs, bot.Options{
		MessagesPerMinute: cfg.MessagesPerMinute,
		MaxUploadSize:     cfg.MaxUploadSize,
	})
	b.SetRecorder(recorder)
	b.SetPlaylistCounter(platform.NewPlaylistInspector())

	store.StartJanitor(ctx, cfg.SweepInterval, b.OnSessionExpired)

	if cfg.UseWebhook() {
		err = tg.RunWebhook(ctx, b, cfg.WebhookURL, cfg.Port)
	} else {
		err = tg.RunPolling(ctx, b)
	}

	log.Printf("Waiting for %d running job(s)", len(jobs.ActiveJobs()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if shutdownErr := jobs.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("Shutdown: %v", shutdownErr)
	}
	return err
}

func openHistory(ctx context.Context, cfg *config.Config) (history.Recorder, error) {
	switch cfg.HistoryBackend {
	case history.BackendSQLite:
		db, err := history.OpenSQLite(cfg.HistorySQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history db: %w", err)
		}
		log.Printf("Job history in %s", cfg.HistorySQLitePath)
		return db, nil
	case history.BackendRedis:
		r, err := history.OpenRedis(ctx, history.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Retention: cfg.HistoryRetention,
		})
		if err != nil {
			// Tracking is optional; the bot keeps working without it
			log.Printf("⚠️ %v, job history disabled", err)
			return history.Nop{}, nil
		}
		log.Printf("✅ Redis connected, job history enabled")
		return r, nil
	default:
		return history.Nop{}, nil
	}
}
