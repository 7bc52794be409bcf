package srs

import (
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

// Learning steps in minutes. Focus mode graduates faster.
var (
	learningStepsNormal = [4]int64{1, 10, 60, 240}
	learningStepsFocus  = [4]int64{1, 5, 15, 30}
)

// GraduatingStep is the step at which a card moves to long-term FSRS
// scheduling.
const GraduatingStep int64 = 4

const defaultDifficulty = 5.0

// Scheduler computes the next scheduling state for a card. Cards below the
// graduating step follow fixed learning steps; graduated cards are scheduled
// by FSRS.
type Scheduler struct {
	now func() time.Time
}

// NewScheduler creates a Scheduler using the wall clock.
func NewScheduler() *Scheduler {
	return &Scheduler{now: time.Now}
}

// NewSchedulerAt creates a Scheduler with an injected clock.
func NewSchedulerAt(now func() time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// Advance returns the scheduling state after grading the card with quality.
// A quality below 2 counts as incorrect.
func (s *Scheduler) Advance(state store.State, quality int, desiredRetention float64, focusMode bool) store.State {
	now := s.now().UTC()
	isCorrect := quality >= 2
	steps := learningStepsNormal
	if focusMode {
		steps = learningStepsFocus
	}

	if state.LearningStep < GraduatingStep {
		return s.advanceLearning(state, isCorrect, now, steps, desiredRetention)
	}
	if !isCorrect {
		return relearn(state, now, steps)
	}
	return s.advanceGraduated(state, quality, desiredRetention, now)
}

func (s *Scheduler) advanceLearning(state store.State, isCorrect bool, now time.Time, steps [4]int64, desiredRetention float64) store.State {
	if !isCorrect {
		return store.State{
			LearningStep: 0,
			Stability:    state.Stability,
			Difficulty:   orDefault(state.Difficulty, defaultDifficulty),
			NextReview:   now.Add(time.Duration(steps[0]) * time.Minute),
			Repetitions:  0,
		}
	}

	nextStep := state.LearningStep + 1
	if nextStep >= GraduatingStep {
		// Graduating: seed the FSRS state from a fresh card rated Good.
		params := s.params(desiredRetention)
		scheduled := params.Repeat(fsrs.NewCard(), now)[fsrs.Good]
		return store.State{
			LearningStep: GraduatingStep,
			Stability:    scheduled.Card.Stability,
			Difficulty:   scheduled.Card.Difficulty,
			NextReview:   now.Add(24 * time.Hour),
			Repetitions:  1,
		}
	}

	return store.State{
		LearningStep: nextStep,
		Stability:    state.Stability,
		Difficulty:   orDefault(state.Difficulty, defaultDifficulty),
		NextReview:   now.Add(time.Duration(steps[nextStep]) * time.Minute),
		Repetitions:  0,
	}
}

// relearn returns a graduated card that was failed back to the first learning
// step.
func relearn(state store.State, now time.Time, steps [4]int64) store.State {
	return store.State{
		LearningStep: 0,
		Stability:    state.Stability,
		Difficulty:   orDefault(state.Difficulty, defaultDifficulty),
		NextReview:   now.Add(time.Duration(steps[0]) * time.Minute),
		Repetitions:  0,
	}
}

func (s *Scheduler) advanceGraduated(state store.State, quality int, desiredRetention float64, now time.Time) store.State {
	params := s.params(desiredRetention)

	card := fsrs.NewCard()
	card.Stability = orDefault(state.Stability, 1.0)
	card.Difficulty = orDefault(state.Difficulty, defaultDifficulty)
	card.State = fsrs.Review
	card.Reps = uint64(state.Repetitions)
	if !state.NextReview.IsZero() {
		card.Due = state.NextReview
		card.LastReview = state.NextReview
	}

	scheduled := params.Repeat(card, now)[ratingForQuality(quality)]
	return store.State{
		LearningStep: state.LearningStep,
		Stability:    scheduled.Card.Stability,
		Difficulty:   scheduled.Card.Difficulty,
		NextReview:   scheduled.Card.Due,
		Repetitions:  state.Repetitions + 1,
	}
}

func (s *Scheduler) params(desiredRetention float64) fsrs.Parameters {
	params := fsrs.DefaultParam()
	if desiredRetention > 0 && desiredRetention < 1 {
		params.RequestRetention = desiredRetention
	}
	return params
}

func ratingForQuality(quality int) fsrs.Rating {
	switch quality {
	case 0:
		return fsrs.Again
	case 2:
		return fsrs.Hard
	case 5:
		return fsrs.Easy
	default:
		return fsrs.Good
	}
}

func orDefault(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}
