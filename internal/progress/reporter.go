// Package progress turns raw engine progress ticks into throttled edits of a
// single status message.
package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytget/tg-downloader/internal/model"
)

// Defaults
const (
	DefaultInterval = 1500 * time.Millisecond
	QueueSize       = 8
)

// Editor edits a message in place
type Editor interface {
	EditText(ctx context.Context, ref model.MessageRef, text string) error
}

// Reporter consumes ticks of one job in arrival order on its own goroutine, so
// at most one edit is in flight per job.
type Reporter struct {
	editor  Editor
	ref     model.MessageRef
	header  string
	limiter *rate.Limiter

	ticks  chan model.ProgressTick
	done   chan struct{}
	mu     sync.Mutex
	closed bool

	// owned by the consumer goroutine
	lastText    string
	lastPercent float64
	finished    bool
	edits       int

	percentMu sync.Mutex
	percent   float64
}

// NewReporter creates a reporter editing ref. A non-positive interval disables throttling.
func NewReporter(editor Editor, ref model.MessageRef, header string, interval time.Duration) *Reporter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if header == "" {
		header = DownloadingHeader
	}
	return &Reporter{
		editor:  editor,
		ref:     ref,
		header:  header,
		limiter: rate.NewLimiter(limit, 1),
		ticks:   make(chan model.ProgressTick, QueueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine
func (r *Reporter) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for tick := range r.ticks {
			r.apply(ctx, tick)
		}
	}()
}

// Submit queues a tick. Downloading ticks are dropped when the queue is full;
// the finished tick always gets through.
func (r *Reporter) Submit(tick model.ProgressTick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if tick.Status == model.TickFinished {
		select {
		case r.ticks <- tick:
		case <-r.done:
		}
		return
	}

	select {
	case r.ticks <- tick:
	default:
	}
}

// Close stops accepting ticks and waits until queued ones are applied
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ticks)
	}
	r.mu.Unlock()
	<-r.done
}

// Percent returns the highest percentage observed so far
func (r *Reporter) Percent() float64 {
	r.percentMu.Lock()
	defer r.percentMu.Unlock()
	return r.percent
}

func (r *Reporter) apply(ctx context.Context, tick model.ProgressTick) {
	if r.finished {
		return
	}

	switch tick.Status {
	case model.TickFinished:
		r.finished = true
		r.setPercent(100)
		r.edit(ctx, FinishedText)

	case model.TickDownloading:
		pct := tick.Percent
		if pct > 100 {
			pct = 100
		}
		if pct < r.lastPercent {
			pct = r.lastPercent
		}
		r.lastPercent = pct
		r.setPercent(pct)

		if !r.limiter.Allow() {
			return
		}
		r.edit(ctx, Render(r.header, pct, tick))
	}
}

func (r *Reporter) edit(ctx context.Context, text string) {
	if r.ref.IsZero() || text == r.lastText {
		return
	}
	r.lastText = text
	r.edits++
	if err := r.editor.EditText(ctx, r.ref, text); err != nil {
		log.Printf("progress edit for message %d failed: %v", r.ref.MessageID, err)
	}
}

func (r *Reporter) setPercent(pct float64) {
	r.percentMu.Lock()
	r.percent = pct
	r.percentMu.Unlock()
}
