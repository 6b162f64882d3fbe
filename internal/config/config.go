// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/ytget/tg-downloader/internal/engine"
)

// Environment keys
const (
	KeyBotToken          = "BOT_TOKEN"
	KeyWebhookURL        = "WEBHOOK_URL"
	KeyPort              = "PORT"
	KeyMaxUploadSize     = "MAX_UPLOAD_SIZE"
	KeyTempDir           = "TEMP_DIR"
	KeyMaxConcurrentJobs = "MAX_CONCURRENT_JOBS"
	KeySessionTTL        = "SESSION_TTL_MINUTES"
	KeySweepInterval     = "SWEEP_INTERVAL_SECONDS"
	KeyProgressInterval  = "PROGRESS_INTERVAL_MS"
	KeyAudioFormat       = "AUDIO_FORMAT"
	KeyAudioQuality      = "AUDIO_QUALITY"
	KeyHistoryBackend    = "HISTORY_BACKEND"
	KeyHistorySQLitePath = "HISTORY_SQLITE_PATH"
	KeyRedisAddr         = "REDIS_ADDR"
	KeyRedisPassword     = "REDIS_PASSWORD"
	KeyRedisDB           = "REDIS_DB"
	KeyHistoryRetention  = "HISTORY_RETENTION_HOURS"
	KeyYTDLPAutoInstall  = "YTDLP_AUTO_INSTALL"
	KeyMessagesPerMinute = "MESSAGES_PER_MINUTE"
)

// Default values
const (
	DefaultPort              = 8080
	DefaultMaxUploadSize     = "50MiB"
	DefaultMaxConcurrentJobs = 3
	MaxConcurrentJobsLimit   = 10
	DefaultSessionTTLMinutes = 10
	DefaultSweepSeconds      = 30
	DefaultProgressMillis    = 1500
	DefaultAudioFormat       = "mp3"
	DefaultAudioQuality      = "192"
	DefaultHistoryBackend    = "none"
	DefaultHistorySQLitePath = "data/history.db"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRetentionHours    = 168
	DefaultMessagesPerMinute = 10
	TempDirName              = "ytget-bot"
)

var historyBackends = map[string]bool{"none": true, "sqlite": true, "redis": true}

// Config holds all bot settings in correct types
type Config struct {
	BotToken          string
	WebhookURL        string
	Port              int
	MaxUploadSize     int64
	TempDir           string
	MaxConcurrentJobs int
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	ProgressInterval  time.Duration
	AudioFormat       string
	AudioQuality      string
	HistoryBackend    string
	HistorySQLitePath string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	HistoryRetention  time.Duration
	YTDLPAutoInstall  bool
	MessagesPerMinute int
}

// UseWebhook reports whether the bot should run in webhook mode
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

// Load reads envFiles (".env" when none are given) and then the environment.
// Missing env files are ignored; variables already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	maxUpload, err := humanize.ParseBytes(getEnv(KeyMaxUploadSize, DefaultMaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyMaxUploadSize, err)
	}

	cfg := &Config{
		BotToken:          getEnv(KeyBotToken, ""),
		WebhookURL:        getEnv(KeyWebhookURL, ""),
		Port:              getEnvAsInt(KeyPort, DefaultPort),
		MaxUploadSize:     int64(maxUpload),
		TempDir:           getEnv(KeyTempDir, filepath.Join(os.TempDir(), TempDirName)),
		MaxConcurrentJobs: getEnvAsInt(KeyMaxConcurrentJobs, DefaultMaxConcurrentJobs),
		SessionTTL:        time.Duration(getEnvAsInt(KeySessionTTL, DefaultSessionTTLMinutes)) * time.Minute,
		SweepInterval:     time.Duration(getEnvAsInt(KeySweepInterval, DefaultSweepSeconds)) * time.Second,
		ProgressInterval:  time.Duration(getEnvAsInt(KeyProgressInterval, DefaultProgressMillis)) * time.Millisecond,
		AudioFormat:       getEnv(KeyAudioFormat, DefaultAudioFormat),
		AudioQuality:      getEnv(KeyAudioQuality, DefaultAudioQuality),
		HistoryBackend:    getEnv(KeyHistoryBackend, DefaultHistoryBackend),
		HistorySQLitePath: getEnv(KeyHistorySQLitePath, DefaultHistorySQLitePath),
		RedisAddr:         getEnv(KeyRedisAddr, DefaultRedisAddr),
		RedisPassword:     getEnv(KeyRedisPassword, ""),
		RedisDB:           getEnvAsInt(KeyRedisDB, 0),
		HistoryRetention:  time.Duration(getEnvAsInt(KeyHistoryRetention, DefaultRetentionHours)) * time.Hour,
		YTDLPAutoInstall:  getEnvAsBool(KeyYTDLPAutoInstall, false),
		MessagesPerMinute: getEnvAsInt(KeyMessagesPerMinute, DefaultMessagesPerMinute),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	str := getEnv(key, "")
	if val, err := strconv.Atoi(str); err == nil {
		return val
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	str := getEnv(key, "")
	if val, err := strconv.ParseBool(str); err == nil {
		return val
	}
	return fallback
}

// validate rejects settings the bot cannot run with and clamps the rest
func validate(cfg *Config) error {
	if cfg.BotToken == "" {
		return fmt.Errorf("%s is not set", KeyBotToken)
	}
	if !historyBackends[cfg.HistoryBackend] {
		return fmt.Errorf("unknown %s %q (want none, sqlite or redis)", KeyHistoryBackend, cfg.HistoryBackend)
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("%s must be positive", KeyMaxUploadSize)
	}
	cfg.AudioFormat = strings.ToLower(cfg.AudioFormat)
	if _, ok := engine.AudioExtension(cfg.AudioFormat); !ok {
		return fmt.Errorf("unknown %s %q (want one of %s)", KeyAudioFormat, cfg.AudioFormat, strings.Join(engine.AudioFormats(), ", "))
	}

	if cfg.MaxConcurrentJobs < 1 {
		log.Printf("⚠️ Warning: %s must be at least 1. Resetting to %d.", KeyMaxConcurrentJobs, DefaultMaxConcurrentJobs)
		cfg.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if cfg.MaxConcurrentJobs > MaxConcurrentJobsLimit {
		log.Printf("⚠️ Warning: %s capped at %d.", KeyMaxConcurrentJobs, MaxConcurrentJobsLimit)
		cfg.MaxConcurrentJobs = MaxConcurrentJobsLimit
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTLMinutes * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepSeconds * time.Second
	}
	if cfg.ProgressInterval < 0 {
		cfg.ProgressInterval = DefaultProgressMillis * time.Millisecond
	}
	if cfg.MessagesPerMinute < 1 {
		cfg.MessagesPerMinute = DefaultMessagesPerMinute
	}
	if cfg.UseWebhook() && (cfg.Port < 1 || cfg.Port > 65535) {
		return fmt.Errorf("invalid %s %d", KeyPort, cfg.Port)
	}
	return nil
}
