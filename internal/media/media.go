package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpeg constants for inspection and remuxing
const (
	FFmpegCommand       = "ffmpeg"
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration:stream=codec_type,width,height"
	FFprobeOutputFormat = "json"

	// Container flags
	FastStartFlag = "+faststart"

	// Output suffix for the remuxed copy before it replaces the original
	FastStartSuffix = "-faststart"
)

// Info holds the metadata needed for a streamable upload
type Info struct {
	DurationSeconds int
	Width           int
	Height          int
}

// Prober inspects and prepares media files for upload
type Prober interface {
	Inspect(ctx context.Context, path string) (Info, error)
	FastStart(ctx context.Context, path string) (string, error)
}

// Inspector runs ffprobe and ffmpeg from PATH
type Inspector struct {
	ffmpeg  string
	ffprobe string
}

// NewInspector creates an inspector using the default executables
func NewInspector() *Inspector {
	return &Inspector{ffmpeg: FFmpegCommand, ffprobe: FFprobeCommand}
}

// Available reports whether both executables can be found
func (i *Inspector) Available() bool {
	if _, err := exec.LookPath(i.ffprobe); err != nil {
		return false
	}
	_, err := exec.LookPath(i.ffmpeg)
	return err == nil
}

// Inspect reads duration and the first video stream's dimensions
func (i *Inspector) Inspect(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, i.ffprobe, BuildFFprobeArgs(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("failed to run ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseFFprobe(out)
}

// FastStart moves the moov atom to the front so clients can stream before the upload completes.
// The original file is replaced in place.
func (i *Inspector) FastStart(ctx context.Context, path string) (string, error) {
	tmp := generateOutputPath(path)
	cmd := exec.CommandContext(ctx, i.ffmpeg, BuildFastStartArgs(path, tmp)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("ffmpeg remux failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}

// BuildFFprobeArgs builds the ffprobe argument list for Inspect
func BuildFFprobeArgs(path string) []string {
	return []string{
		"-v", FFprobeLogLevel,
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		path,
	}
}

// BuildFastStartArgs builds a stream-copy remux with faststart
func BuildFastStartArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c", "copy",
		"-movflags", FastStartFlag,
		outputPath,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseFFprobe decodes ffprobe JSON output
func ParseFFprobe(data []byte) (Info, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var info Info
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("failed to parse duration %q: %w", out.Format.Duration, err)
		}
		info.DurationSeconds = int(math.Round(d))
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			info.Width, info.Height = s.Width, s.Height
			break
		}
	}
	return info, nil
}

func generateOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + FastStartSuffix + ext
}
