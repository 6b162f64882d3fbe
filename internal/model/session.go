package model

import "time"

// MessageRef points at a message already shown in a conversation
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the reference points nowhere
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Catalog is the probed menu for one submitted URL
type Catalog struct {
	Title    string
	Duration string // M:SS
	Uploader string
	Options  []FormatOption
}

// Session tracks one submitted URL from selection to delivery
type Session struct {
	ID          string
	RequesterID int64
	ChatID      int64
	URL         string
	CreatedAt   time.Time
	State       SessionState
	JobID       string // empty until a job is attached
	Catalog     *Catalog
	Menu        MessageRef // message holding the selection buttons
}

// Option returns the catalog entry at index i
func (s *Session) Option(i int) (FormatOption, bool) {
	if s.Catalog == nil || i < 0 || i >= len(s.Catalog.Options) {
		return FormatOption{}, false
	}
	return s.Catalog.Options[i], true
}
