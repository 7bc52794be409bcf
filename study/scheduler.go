package study

import (
	"github.com/PheelaV/kr-notebook-sub000/plugin/srs"
	"github.com/PheelaV/kr-notebook-sub000/store"
)

// Scheduler is the grading collaborator the controller delegates to: answer
// validation, state advancement and hint generation.
type Scheduler interface {
	Validate(userAnswer, correctAnswer string, usedHint bool) srs.Validation
	Advance(state store.State, quality int, desiredRetention float64, focusMode bool) store.State
	Hint(answer string, level int) string
}

type srsScheduler struct {
	inner *srs.Scheduler
}

// NewScheduler returns the default Scheduler backed by the srs plugin.
func NewScheduler() Scheduler {
	return &srsScheduler{inner: srs.NewScheduler()}
}

func (s *srsScheduler) Validate(userAnswer, correctAnswer string, usedHint bool) srs.Validation {
	return srs.Validate(userAnswer, correctAnswer, usedHint)
}

func (s *srsScheduler) Advance(state store.State, quality int, desiredRetention float64, focusMode bool) store.State {
	return s.inner.Advance(state, quality, desiredRetention, focusMode)
}

func (s *srsScheduler) Hint(answer string, level int) string {
	return srs.Hint(answer, level)
}
