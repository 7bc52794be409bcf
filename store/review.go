package store

import (
	"time"
)

// ReviewMeta carries the grading facts of a single review.
type ReviewMeta struct {
	Quality         int       `json:"quality"`
	IsCorrect       bool      `json:"is_correct"`
	HintsUsed       int       `json:"hints_used"`
	Timestamp       time.Time `json:"timestamp"`
	UserAnswer      string    `json:"user_answer,omitempty"`
	OriginalResult  string    `json:"original_result,omitempty"`
	IsOverride      bool      `json:"is_override,omitempty"`
	SuggestedAnswer string    `json:"suggested_answer,omitempty"`
}

// ReviewResponse is one append-only review log entry. Pre is the scheduling
// state captured before the review, Post the state after it. Overrides append
// a new entry instead of mutating an earlier one. The flat wire shape the
// server expects is produced only at the sync boundary.
type ReviewResponse struct {
	// ID is assigned by the driver on insert. A retained entry re-inserted
	// after a partial sync gets a fresh ID and UID so the server never sees
	// the same identity twice.
	ID  int64  `json:"id"`
	UID string `json:"uid"`

	SessionID string `json:"session_id"`
	CardID    int64  `json:"card_id"`

	Meta ReviewMeta `json:"meta"`
	Pre  State      `json:"pre"`
	Post State      `json:"post"`
}

// FindReviewResponse is the filter for listing review log entries.
type FindReviewResponse struct {
	SessionID *string
	CardID    *int64
}
