// Package session keeps the per-requester table of pending and active requests.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/tg-downloader/internal/model"
)

var (
	// ErrSessionExpired is returned for unknown or already removed sessions
	ErrSessionExpired = errors.New("session expired")

	// ErrJobActive is returned when the requester already has a running job
	ErrJobActive = errors.New("a download is already in progress")

	// ErrUnknownOption is returned when a selection does not match the session menu
	ErrUnknownOption = errors.New("unknown format option")
)

// DefaultTTL bounds how long a session may wait for a selection
const DefaultTTL = 10 * time.Minute

// Store maps requesters to their current session. One coarse lock guards both
// indexes; every read-modify-write happens inside a single critical section.
type Store struct {
	mu          sync.Mutex
	byRequester map[int64]*model.Session
	byID        map[string]*model.Session
	ttl         time.Duration
	now         func() time.Time
}

// NewStore creates an empty store
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		byRequester: make(map[int64]*model.Session),
		byID:        make(map[string]*model.Session),
		ttl:         ttl,
		now:         time.Now,
	}
}

// Put creates a session awaiting selection. A session still awaiting selection
// is replaced; a session with an active job makes Put fail with ErrJobActive.
func (s *Store) Put(requesterID, chatID int64, url string, catalog *model.Catalog) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byRequester[requesterID]; ok {
		if old.State == model.SessionJobActive {
			return model.Session{}, ErrJobActive
		}
		s.removeLocked(old)
	}

	sess := &model.Session{
		ID:          generateSessionID(),
		RequesterID: requesterID,
		ChatID:      chatID,
		URL:         url,
		CreatedAt:   s.now(),
		State:       model.SessionAwaitingSelection,
		Catalog:     catalog,
	}
	s.byRequester[requesterID] = sess
	s.byID[sess.ID] = sess
	return *sess, nil
}

// StartDirect creates a session that goes straight to JobActive, used by
// shortcut commands that skip the menu.
func (s *Store) StartDirect(requesterID, chatID int64, url, jobID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byRequester[requesterID]; ok {
		if old.State == model.SessionJobActive {
			return model.Session{}, ErrJobActive
		}
		s.removeLocked(old)
	}

	sess := &model.Session{
		ID:          generateSessionID(),
		RequesterID: requesterID,
		ChatID:      chatID,
		URL:         url,
		CreatedAt:   s.now(),
		State:       model.SessionJobActive,
		JobID:       jobID,
	}
	s.byRequester[requesterID] = sess
	s.byID[sess.ID] = sess
	return *sess, nil
}

// Get returns the current session of a requester
func (s *Store) Get(requesterID int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byRequester[requesterID]
	if !ok {
		return model.Session{}, ErrSessionExpired
	}
	return *sess, nil
}

// Lookup returns a session by id
func (s *Store) Lookup(sessionID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return model.Session{}, ErrSessionExpired
	}
	return *sess, nil
}

// HasActiveJob reports whether the requester currently runs a job
func (s *Store) HasActiveJob(requesterID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byRequester[requesterID]
	return ok && sess.State == model.SessionJobActive
}

// SetMenu remembers the message carrying the selection buttons
func (s *Store) SetMenu(sessionID string, ref model.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrSessionExpired
	}
	sess.Menu = ref
	return nil
}

// AttachJob resolves the selected option and moves the session to JobActive.
// Lookup and update happen under one lock so two back-to-back selections
// cannot both start a job.
func (s *Store) AttachJob(requesterID int64, sessionID, jobID string, optionIndex int) (model.Session, model.FormatOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok || sess.RequesterID != requesterID {
		return model.Session{}, model.FormatOption{}, ErrSessionExpired
	}
	if sess.State != model.SessionAwaitingSelection {
		return model.Session{}, model.FormatOption{}, ErrJobActive
	}
	opt, ok := sess.Option(optionIndex)
	if !ok {
		return model.Session{}, model.FormatOption{}, ErrUnknownOption
	}

	sess.State = model.SessionJobActive
	sess.JobID = jobID
	return *sess, opt, nil
}

// Remove drops a session. Removing an unknown id is a no-op.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[sessionID]; ok {
		s.removeLocked(sess)
	}
}

// Sweep removes sessions that waited for a selection longer than the TTL and
// returns them in the Terminal state.
func (s *Store) Sweep() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	var expired []model.Session
	for _, sess := range s.byID {
		if sess.State != model.SessionAwaitingSelection || !sess.CreatedAt.Before(cutoff) {
			continue
		}
		s.removeLocked(sess)
		expired = append(expired, *sess)
	}
	return expired
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Store) removeLocked(sess *model.Session) {
	sess.State = model.SessionTerminal
	delete(s.byID, sess.ID)
	if cur, ok := s.byRequester[sess.RequesterID]; ok && cur == sess {
		delete(s.byRequester, sess.RequesterID)
	}
}

// generateSessionID generates a time-ordered session id
func generateSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
