// Package history keeps a ledger of finished jobs. The ledger is write-mostly:
// the download service records every terminal job and /stats reads totals back.
package history

import (
	"context"
	"time"
)

// Backends
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Record is one terminal job
type Record struct {
	JobID       string    `json:"job_id"`
	SessionID   string    `json:"session_id"`
	RequesterID int64     `json:"requester_id"`
	URL         string    `json:"url"`
	Kind        string    `json:"kind"`
	State       string    `json:"state"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Bytes       int64     `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Stats are per-requester totals
type Stats struct {
	Total     int
	Completed int
	Failed    int
	Bytes     int64
}

// Recorder stores records and aggregates them
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	Stats(ctx context.Context, requesterID int64) (Stats, error)
	Close() error
}

// Nop discards everything
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }

func (Nop) Stats(context.Context, int64) (Stats, error) { return Stats{}, nil }

func (Nop) Close() error { return nil }
