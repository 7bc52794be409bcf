package srs

import (
	"testing"
	"time"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

func fixedScheduler(at time.Time) *Scheduler {
	return NewSchedulerAt(func() time.Time { return at })
}

func TestAdvanceLearningStep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	state := store.State{LearningStep: 0, NextReview: now}
	next := s.Advance(state, 4, 0.9, false)

	if next.LearningStep != 1 {
		t.Errorf("LearningStep = %d, want 1", next.LearningStep)
	}
	want := now.Add(10 * time.Minute)
	if !next.NextReview.Equal(want) {
		t.Errorf("NextReview = %v, want %v", next.NextReview, want)
	}
	if next.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", next.Repetitions)
	}
}

func TestAdvanceLearningIncorrectResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	state := store.State{LearningStep: 2, NextReview: now}
	next := s.Advance(state, 0, 0.9, false)

	if next.LearningStep != 0 {
		t.Errorf("LearningStep = %d, want 0", next.LearningStep)
	}
	want := now.Add(1 * time.Minute)
	if !next.NextReview.Equal(want) {
		t.Errorf("NextReview = %v, want %v", next.NextReview, want)
	}
	if next.Difficulty != defaultDifficulty {
		t.Errorf("Difficulty = %f, want default %f", next.Difficulty, defaultDifficulty)
	}
}

func TestAdvanceFocusModeUsesFasterSteps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	next := s.Advance(store.State{LearningStep: 1, NextReview: now}, 4, 0.9, true)

	if next.LearningStep != 2 {
		t.Errorf("LearningStep = %d, want 2", next.LearningStep)
	}
	want := now.Add(15 * time.Minute)
	if !next.NextReview.Equal(want) {
		t.Errorf("NextReview = %v, want %v (focus steps)", next.NextReview, want)
	}
}

func TestAdvanceGraduation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	next := s.Advance(store.State{LearningStep: 3, NextReview: now}, 4, 0.9, false)

	if next.LearningStep != GraduatingStep {
		t.Errorf("LearningStep = %d, want %d", next.LearningStep, GraduatingStep)
	}
	if next.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", next.Repetitions)
	}
	if next.Stability <= 0 {
		t.Errorf("Stability = %f, want > 0 after graduation", next.Stability)
	}
	want := now.Add(24 * time.Hour)
	if !next.NextReview.Equal(want) {
		t.Errorf("NextReview = %v, want %v", next.NextReview, want)
	}
}

func TestAdvanceGraduatedIncorrectRelearns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	state := store.State{LearningStep: GraduatingStep, Stability: 12, Difficulty: 4, Repetitions: 5, NextReview: now}
	next := s.Advance(state, 0, 0.9, false)

	if next.LearningStep != 0 {
		t.Errorf("LearningStep = %d, want 0", next.LearningStep)
	}
	if next.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", next.Repetitions)
	}
	if next.Stability != 12 {
		t.Errorf("Stability = %f, want preserved 12", next.Stability)
	}
}

func TestAdvanceGraduatedCorrectUsesFSRS(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	state := store.State{
		LearningStep: GraduatingStep,
		Stability:    10,
		Difficulty:   5,
		Repetitions:  3,
		NextReview:   now.Add(-24 * time.Hour),
	}
	next := s.Advance(state, 4, 0.9, false)

	if !next.NextReview.After(now) {
		t.Errorf("NextReview = %v, want after %v", next.NextReview, now)
	}
	if next.Repetitions != 4 {
		t.Errorf("Repetitions = %d, want 4", next.Repetitions)
	}
	if next.LearningStep != GraduatingStep {
		t.Errorf("LearningStep = %d, want unchanged %d", next.LearningStep, GraduatingStep)
	}
	if next.Stability <= 0 || next.Difficulty <= 0 {
		t.Errorf("Stability/Difficulty = %f/%f, want positive", next.Stability, next.Difficulty)
	}
}

func TestAdvanceEasyOutschedulesHard(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := fixedScheduler(now)

	state := store.State{
		LearningStep: GraduatingStep,
		Stability:    10,
		Difficulty:   5,
		Repetitions:  3,
		NextReview:   now.Add(-24 * time.Hour),
	}
	hard := s.Advance(state, 2, 0.9, false)
	easy := s.Advance(state, 5, 0.9, false)

	if !easy.NextReview.After(hard.NextReview) {
		t.Errorf("easy due %v should be after hard due %v", easy.NextReview, hard.NextReview)
	}
}
