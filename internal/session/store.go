package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nookons/tk-assistant-sub000/internal/parse"
	"github.com/Nookons/tk-assistant-sub000/internal/reconcile"
)

// ErrQueueFull is returned when the session queue is full
var ErrQueueFull = errors.New("queue is full")

// Store manages sessions in memory
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	queue    chan *Session
	cancels  map[string]context.CancelFunc
}

// NewStore creates a new session store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		queue:    make(chan *Session, 100),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Create creates a new session and returns its ID
// Returns ErrQueueFull if the queue is full (session is not created)
func (s *Store) Create(sess *Session) (string, error) {
	sess.ID = uuid.New().String()
	sess.Status = StatusQueued

	select {
	case s.queue <- sess:
		s.mu.Lock()
		s.sessions[sess.ID] = sess
		s.mu.Unlock()
		return sess.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Get retrieves a point-in-time copy of a session. Callers never see the
// live record, so they can read it while the worker keeps updating the
// stored one.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}

	cp := *sess
	if sess.StartedAt != nil {
		t := *sess.StartedAt
		cp.StartedAt = &t
	}
	if sess.FinishedAt != nil {
		t := *sess.FinishedAt
		cp.FinishedAt = &t
	}
	cp.Diagnostics = append([]parse.Diagnostic(nil), sess.Diagnostics...)
	return &cp, nil
}

// UpdateStatus updates session status and the start/finish timestamps
func (s *Store) UpdateStatus(id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	sess.Status = status
	now := time.Now()

	switch status {
	case StatusRunning:
		if sess.StartedAt == nil {
			sess.StartedAt = &now
		}
	case StatusSucceeded, StatusFailed, StatusCanceled:
		if sess.FinishedAt == nil {
			sess.FinishedAt = &now
		}
	}

	return nil
}

// SetParseOutput records the parse phase result
func (s *Store) SetParseOutput(id string, res parse.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	sess.IssuesParsed = len(res.Issues)
	sess.Diagnostics = res.Diagnostics
}

// SetPersisting flips the reconciliation-in-progress flag
func (s *Store) SetPersisting(id string, persisting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	sess.IsPersisting = persisting
}

// SetReport records the reconciliation outcome
func (s *Store) SetReport(id string, report reconcile.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	sess.Submitted = report.Submitted
	sess.Failed = report.Failed
	sess.Skipped = report.Skipped
}

// UpdateError updates session error message
func (s *Store) UpdateError(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	if err != nil {
		sess.LastError = err.Error()
	} else {
		sess.LastError = ""
	}
}

// SetCancel registers a cancel function for a session
func (s *Store) SetCancel(id string, cf context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	s.cancels[id] = cf
	return nil
}

// ClearCancel removes cancel function for a session
func (s *Store) ClearCancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cancels, id)
}

// Cancel cancels a session
func (s *Store) Cancel(id string) error {
	var cf context.CancelFunc

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session not found: %s", id)
	}

	if sess.Status == StatusSucceeded || sess.Status == StatusFailed || sess.Status == StatusCanceled {
		s.mu.Unlock()
		return fmt.Errorf("session already finished: %s", sess.Status)
	}

	if cancelFunc, exists := s.cancels[id]; exists {
		cf = cancelFunc
	}

	sess.Status = StatusCanceled
	now := time.Now()
	sess.FinishedAt = &now
	s.mu.Unlock()

	// Call cancel function outside of lock
	if cf != nil {
		cf()
	}

	return nil
}

// Next returns the next queued session (blocking)
func (s *Store) Next(ctx context.Context) (*Session, error) {
	select {
	case sess := <-s.queue:
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
