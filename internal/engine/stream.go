package engine

import (
	"fmt"
	"time"

	"github.com/ytget/tg-downloader/internal/model"
)

// Progress statuses reported by yt-dlp
const (
	statusDownloading = "downloading"
	statusFinished    = "finished"
)

// streamUpdate is the part of a yt-dlp progress update the tracker needs
type streamUpdate struct {
	status     string
	filename   string
	streams    int
	downloaded int
	total      int
	started    time.Time
	eta        time.Duration
}

// streamTracker folds per-stream yt-dlp progress into one percentage for the whole item.
// yt-dlp reports "finished" once per downloaded stream, so a merged video+audio download
// finishes twice. The tracker never emits a finished tick; Fetch does once the artifact exists.
type streamTracker struct {
	done map[string]struct{}
}

func newStreamTracker() *streamTracker {
	return &streamTracker{done: make(map[string]struct{})}
}

func (s *streamTracker) tick(u streamUpdate, now time.Time) (model.ProgressTick, bool) {
	streams := u.streams
	if streams < 1 {
		streams = 1
	}

	switch u.status {
	case statusFinished:
		key := u.filename
		if key == "" {
			key = fmt.Sprintf("#%d", len(s.done))
		}
		s.done[key] = struct{}{}
		return model.ProgressTick{Status: model.TickDownloading, Percent: s.overall(streams, 0), ETASec: -1}, true
	case statusDownloading:
		if _, finished := s.done[u.filename]; finished && u.filename != "" {
			return model.ProgressTick{}, false
		}
	default:
		return model.ProgressTick{}, false
	}

	tick := model.ProgressTick{Status: model.TickDownloading, ETASec: -1}
	var current float64
	if u.total > 0 {
		current = float64(u.downloaded) / float64(u.total) * 100
		if current > 100 {
			current = 100
		}
	}
	tick.Percent = s.overall(streams, current)
	if !u.started.IsZero() {
		elapsed := now.Sub(u.started)
		if elapsed.Seconds() > 0 {
			tick.Rate = float64(u.downloaded) / elapsed.Seconds()
		}
	}
	if u.eta > 0 {
		tick.ETASec = int(u.eta.Seconds())
	}
	return tick, true
}

// overall weights every stream equally; current is the running stream's own percentage
func (s *streamTracker) overall(streams int, current float64) float64 {
	done := len(s.done)
	if done >= streams {
		return 100
	}
	return (float64(done)*100 + current) / float64(streams)
}
