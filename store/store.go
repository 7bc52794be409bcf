package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/internal/profile"
)

// ErrNoSession is returned when no session has been saved locally.
var ErrNoSession = errors.New("no session in local store")

// Store provides durable access to the single active session and the
// append-only review log. Clear-then-insert sequences are serialized behind a
// per-store mutex so a concurrent reader never observes a half-cleared state.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Guards multi-statement write sequences against concurrent readers.
	mu sync.RWMutex

	migrateOnce sync.Once
	migrateErr  error
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate prepares the schema. Repeated calls return the first result.
func (s *Store) Migrate(ctx context.Context) error {
	s.migrateOnce.Do(func() {
		s.migrateErr = s.driver.Migrate(ctx)
	})
	return s.migrateErr
}

// SaveSession atomically replaces the stored session. The previous session
// and its review log are discarded as part of the same unit; after it returns
// exactly one session exists.
func (s *Store) SaveSession(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.ReplaceSession(ctx, session); err != nil {
		return errors.Wrap(err, "failed to replace session")
	}
	return nil
}

// GetSession returns the stored session, or ErrNoSession.
func (s *Store) GetSession(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, err := s.driver.GetSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}
	if session == nil {
		return nil, ErrNoSession
	}
	return session, nil
}

// HasSession reports whether a session is stored.
func (s *Store) HasSession(ctx context.Context) (bool, error) {
	_, err := s.GetSession(ctx)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SessionAgeHours returns the stored session's age in hours.
func (s *Store) SessionAgeHours(ctx context.Context) (float64, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return 0, err
	}
	return session.AgeHours(time.Now()), nil
}

// UpdateCardState patches one card's scheduling state inside the stored
// session. A missing session or card is a silent no-op.
func (s *Store) UpdateCardState(ctx context.Context, cardID int64, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.driver.GetSession(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get session")
	}
	if session == nil {
		return nil
	}
	if err := s.driver.UpdateCardState(ctx, session.SessionID, cardID, state); err != nil {
		return errors.Wrapf(err, "failed to update card %d", cardID)
	}
	return nil
}

// AddResponse appends one review log entry. The entry is durably persisted
// before the call returns; callers update any pending-count indicator only
// afterwards.
func (s *Store) AddResponse(ctx context.Context, create *ReviewResponse) (*ReviewResponse, error) {
	if create == nil {
		return nil, errors.New("response is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.driver.CreateResponse(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to append response")
	}
	return created, nil
}

// ListResponses returns review log entries in insertion order.
func (s *Store) ListResponses(ctx context.Context, find *FindReviewResponse) ([]*ReviewResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if find == nil {
		find = &FindReviewResponse{}
	}
	return s.driver.ListResponses(ctx, find)
}

// PendingCount returns the number of review log entries since the last clear.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver.CountResponses(ctx)
}

// ClearAll removes the session and the review log.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.DeleteResponses(ctx); err != nil {
		return errors.Wrap(err, "failed to clear responses")
	}
	if err := s.driver.DeleteSession(ctx); err != nil {
		return errors.Wrap(err, "failed to clear session")
	}
	return nil
}

// ClearSyncedResponses drops every synced entry, keeping only entries whose
// card id is in failedCardIDs. Retained entries are re-inserted with a fresh
// identity so the exact same entry is never resubmitted twice under one id.
func (s *Store) ClearSyncedResponses(ctx context.Context, failedCardIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.RetainResponses(ctx, failedCardIDs); err != nil {
		return errors.Wrap(err, "failed to clear synced responses")
	}
	return nil
}
