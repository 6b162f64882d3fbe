package model

import (
	"fmt"
	"strings"
	"time"
)

// TickStatus is the kind of a progress tick
type TickStatus string

const (
	TickDownloading TickStatus = "downloading"
	TickFinished    TickStatus = "finished"
)

// ProgressTick is one raw progress value emitted by the engine
type ProgressTick struct {
	Status  TickStatus
	Percent float64 // 0 to 100
	Rate    float64 // bytes per second, 0 if unknown
	ETASec  int     // -1 if unknown
}

// ETAString returns ETA formatted as hh:mm:ss or mm:ss, or "—" if unknown
func (t ProgressTick) ETAString() string {
	if t.ETASec <= 0 {
		return "—"
	}

	hours := t.ETASec / 3600
	minutes := (t.ETASec % 3600) / 60
	seconds := t.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// DownloadJob represents one download-and-deliver request
type DownloadJob struct {
	ID          string
	SessionID   string
	RequesterID int64
	ChatID      int64
	URL         string
	Option      FormatOption
	Catalog     *Catalog // nil for shortcut jobs
	Title       string
	Uploader    string
	WorkDir     string
	OutputPath  string
	State       JobState
	Percent     float64
	FileSize    int64
	Err         *JobError
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// DisplayTitle returns title, filename, or URL in order of preference
func (j *DownloadJob) DisplayTitle() string {
	if j.Title != "" && !strings.HasPrefix(j.Title, "http") {
		return j.Title
	}

	if j.OutputPath != "" {
		parts := strings.FieldsFunc(j.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return j.URL
}
