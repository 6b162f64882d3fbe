package engine

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/tg-downloader/internal/model"
	"github.com/ytget/tg-downloader/internal/platform"
)

// yt-dlp settings
const (
	OutputTemplate       = "%(id)s.%(ext)s"
	MergeOutputFormat    = "mp4"
	DefaultAudioFormat   = "mp3"
	DefaultAudioQuality  = "192"
	DefaultProgressEvery = 500 * time.Millisecond
	DefaultProbeTimeout  = 60 * time.Second
)


// Options configures the yt-dlp adapter
type Options struct {
	AudioFormat   string
	AudioQuality  string
	ProgressEvery time.Duration
	ProbeTimeout  time.Duration
}

// YTDLP implements Engine on top of the yt-dlp executable
type YTDLP struct {
	opts Options
}

var _ Engine = (*YTDLP)(nil)

// NewYTDLP creates the adapter, filling unset options with defaults
func NewYTDLP(opts Options) *YTDLP {
	if opts.AudioFormat == "" {
		opts.AudioFormat = DefaultAudioFormat
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = DefaultAudioQuality
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &YTDLP{opts: opts}
}

// Install makes sure a yt-dlp binary is available, downloading one if needed
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Probe implements Engine
func (y *YTDLP) Probe(ctx context.Context, url string) (*model.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, y.opts.ProbeTimeout)
	defer cancel()

	res, err := ytdlp.New().
		DumpSingleJSON().
		FlatPlaylist().
		SkipDownload().
		Run(ctx, url)
	if err != nil {
		return nil, withStderr(err, res)
	}

	return ParseProbe([]byte(res.Stdout))
}

// Fetch implements Engine
func (y *YTDLP) Fetch(ctx context.Context, req FetchRequest, onProgress ProgressFunc) (string, error) {
	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		RestrictFilenames().
		Format(req.Selector.String()).
		Output(filepath.Join(req.OutputDir, OutputTemplate))

	if req.ExtractAudio {
		dl = dl.ExtractAudio().
			AudioFormat(y.opts.AudioFormat).
			AudioQuality(y.opts.AudioQuality)
	} else {
		dl = dl.MergeOutputFormat(MergeOutputFormat)
	}

	var mu sync.Mutex
	tracker := newStreamTracker()
	emit := func(tick model.ProgressTick) {
		if onProgress != nil {
			onProgress(tick)
		}
	}
	dl.ProgressFunc(y.opts.ProgressEvery, func(update ytdlp.ProgressUpdate) {
		mu.Lock()
		defer mu.Unlock()
		tick, ok := tracker.tick(streamUpdate{
			status:     string(update.Status),
			filename:   update.Filename,
			streams:    streamCount(update.Info),
			downloaded: update.DownloadedBytes,
			total:      update.TotalBytes,
			started:    update.Started,
			eta:        update.ETA(),
		}, time.Now())
		if ok {
			emit(tick)
		}
	})

	res, err := dl.Run(ctx, req.URL)
	if err != nil {
		return "", withStderr(err, res)
	}

	path, err := platform.FindArtifact(req.OutputDir)
	if err != nil {
		log.Printf("yt-dlp reported success for %s but produced no file: %v", req.URL, err)
		return "", err
	}
	mu.Lock()
	emit(finishedTick())
	mu.Unlock()
	return path, nil
}

// streamCount is the number of files yt-dlp downloads for one item, two for video+audio merges
func streamCount(info *ytdlp.ExtractedInfo) int {
	if info == nil || len(info.RequestedFormats) == 0 {
		return 1
	}
	return len(info.RequestedFormats)
}

func finishedTick() model.ProgressTick {
	return model.ProgressTick{Status: model.TickFinished, Percent: 100, ETASec: -1}
}

func withStderr(err error, res *ytdlp.Result) error {
	if res == nil {
		return err
	}
	stderr := strings.TrimSpace(res.Stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}
