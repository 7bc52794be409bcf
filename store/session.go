package store

import (
	"time"
)

// State holds the scheduling estimate for a card. The same shape is captured
// before and after every review so an override can be recomputed from the
// original input.
type State struct {
	LearningStep int64     `json:"learning_step"`
	Stability    float64   `json:"stability"`
	Difficulty   float64   `json:"difficulty"`
	NextReview   time.Time `json:"next_review"`
	Repetitions  int64     `json:"repetitions"`
}

// CardState is one card of a downloaded session, including its current
// scheduling state.
type CardState struct {
	CardID      int64    `json:"card_id"`
	Front       string   `json:"front"`
	Back        string   `json:"back"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`

	State
}

// Session is the offline-downloaded bundle of due cards plus scheduling
// configuration. The local store holds at most one session at a time.
type Session struct {
	SessionID        string       `json:"session_id"`
	CreatedAt        time.Time    `json:"created_at"`
	DesiredRetention float64      `json:"desired_retention"`
	FocusMode        bool         `json:"focus_mode"`
	Cards            []*CardState `json:"cards"`
}

// CardByID returns the embedded card state for the given id, or nil.
func (s *Session) CardByID(cardID int64) *CardState {
	for _, card := range s.Cards {
		if card.CardID == cardID {
			return card
		}
	}
	return nil
}

// AgeHours returns how long ago the session was downloaded.
func (s *Session) AgeHours(now time.Time) float64 {
	return now.Sub(s.CreatedAt).Hours()
}
