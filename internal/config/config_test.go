package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	KeyBotToken, KeyWebhookURL, KeyPort, KeyMaxUploadSize, KeyTempDir, KeyMaxConcurrentJobs,
	KeySessionTTL, KeySweepInterval, KeyProgressInterval, KeyAudioFormat, KeyAudioQuality,
	KeyHistoryBackend, KeyHistorySQLitePath, KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyHistoryRetention, KeyYTDLPAutoInstall, KeyMessagesPerMinute,
}

// clearEnv unsets every key for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyBotToken, "token")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.BotToken)
	assert.False(t, cfg.UseWebhook())
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadSize)
	assert.Equal(t, filepath.Join(os.TempDir(), TempDirName), cfg.TempDir)
	assert.Equal(t, 3, cfg.MaxConcurrentJobs)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.ProgressInterval)
	assert.Equal(t, "mp3", cfg.AudioFormat)
	assert.Equal(t, "192", cfg.AudioQuality)
	assert.Equal(t, "none", cfg.HistoryBackend)
	assert.Equal(t, 168*time.Hour, cfg.HistoryRetention)
	assert.False(t, cfg.YTDLPAutoInstall)
	assert.Equal(t, 10, cfg.MessagesPerMinute)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyBotToken, "token")
	t.Setenv(KeyWebhookURL, "https://bot.example.com")
	t.Setenv(KeyPort, "9000")
	t.Setenv(KeyMaxUploadSize, "2GB")
	t.Setenv(KeyMaxConcurrentJobs, "5")
	t.Setenv(KeyHistoryBackend, "sqlite")
	t.Setenv(KeyYTDLPAutoInstall, "true")
	t.Setenv(KeyProgressInterval, "0")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.True(t, cfg.UseWebhook())
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, int64(2_000_000_000), cfg.MaxUploadSize)
	assert.Equal(t, 5, cfg.MaxConcurrentJobs)
	assert.Equal(t, "sqlite", cfg.HistoryBackend)
	assert.True(t, cfg.YTDLPAutoInstall)
	assert.Equal(t, time.Duration(0), cfg.ProgressInterval)
}

func TestLoad_ClampsConcurrency(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"0", DefaultMaxConcurrentJobs},
		{"-4", DefaultMaxConcurrentJobs},
		{"50", MaxConcurrentJobsLimit},
		{"oops", DefaultMaxConcurrentJobs},
	}

	for _, test := range tests {
		clearEnv(t)
		t.Setenv(KeyBotToken, "token")
		t.Setenv(KeyMaxConcurrentJobs, test.value)

		cfg, err := Load(missingEnvFile(t))
		require.NoError(t, err)
		assert.Equal(t, test.expected, cfg.MaxConcurrentJobs, "value %q", test.value)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{}},
		{"bad size", map[string]string{KeyBotToken: "t", KeyMaxUploadSize: "lots"}},
		{"unknown backend", map[string]string{KeyBotToken: "t", KeyHistoryBackend: "mongo"}},
		{"unknown audio format", map[string]string{KeyBotToken: "t", KeyAudioFormat: "ogg"}},
		{"bad webhook port", map[string]string{KeyBotToken: "t", KeyWebhookURL: "https://x", KeyPort: "70000"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyAudioFormat, "opus")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BOT_TOKEN=from-file\nAUDIO_FORMAT=m4a\nREDIS_DB=2\n"), 0644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.BotToken)
	assert.Equal(t, "opus", cfg.AudioFormat, "environment wins over the file")
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoad_AudioFormats(t *testing.T) {
	for _, format := range []string{"vorbis", "FLAC", "best", "wav"} {
		t.Run(format, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(KeyBotToken, "t")
			t.Setenv(KeyAudioFormat, format)

			cfg, err := Load(missingEnvFile(t))
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(format), cfg.AudioFormat)
		})
	}
}
