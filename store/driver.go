package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Session related methods. At most one session exists; ReplaceSession
	// clears the previous session and its review log and inserts the new one
	// in a single transaction.
	ReplaceSession(ctx context.Context, create *Session) error
	GetSession(ctx context.Context) (*Session, error)
	UpdateCardState(ctx context.Context, sessionID string, cardID int64, state State) error
	DeleteSession(ctx context.Context) error

	// Review log related methods. The log is append-only; RetainResponses
	// deletes every entry and re-inserts the ones whose card id is in the
	// given set under a fresh identity.
	CreateResponse(ctx context.Context, create *ReviewResponse) (*ReviewResponse, error)
	ListResponses(ctx context.Context, find *FindReviewResponse) ([]*ReviewResponse, error)
	CountResponses(ctx context.Context) (int, error)
	DeleteResponses(ctx context.Context) error
	RetainResponses(ctx context.Context, cardIDs []int64) error
}
