// Package engine is the boundary to the media extraction and transcoding tool.
// The rest of the bot only sees Engine; the yt-dlp adapter lives in ytdlp.go.
package engine

import (
	"context"

	"github.com/ytget/tg-downloader/internal/model"
)

// FetchRequest describes one download
type FetchRequest struct {
	URL          string
	Selector     model.Selector
	ExtractAudio bool
	OutputDir    string
}

// ProgressFunc receives ticks synchronously from the download call
type ProgressFunc func(model.ProgressTick)

// Engine probes and downloads media
type Engine interface {
	// Probe fetches metadata without downloading content.
	Probe(ctx context.Context, url string) (*model.ProbeResult, error)

	// Fetch downloads url into req.OutputDir and returns the produced file path.
	// It blocks until the transfer and any post-processing finish.
	Fetch(ctx context.Context, req FetchRequest, onProgress ProgressFunc) (string, error)
}
