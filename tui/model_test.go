package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/PheelaV/kr-notebook-sub000/store"
	teststore "github.com/PheelaV/kr-notebook-sub000/store/test"
	"github.com/PheelaV/kr-notebook-sub000/study"
)

func newTestModel(t *testing.T) (Model, *store.Store) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)

	now := time.Now().UTC()
	err := ts.SaveSession(ctx, &store.Session{
		SessionID: "sess-tui", CreatedAt: now, DesiredRetention: 0.9,
		Cards: []*store.CardState{
			{CardID: 1, Front: "물", Back: "water", State: store.State{NextReview: now, Difficulty: 5}},
			{CardID: 2, Front: "불", Back: "fire", State: store.State{NextReview: now.Add(time.Hour), Difficulty: 5}},
		},
	})
	require.NoError(t, err)

	controller := study.NewController(ts, study.NewScheduler(), study.Config{})
	require.NoError(t, controller.Init(ctx))

	m := New(controller)
	m.Init()
	return m, ts
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func TestTypingEditsAnswer(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, keyRunes("wate"))
	m = update(t, m, keyRunes("r"))
	require.Equal(t, "water", m.input)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "wate", m.input)
}

func TestSubmitShowsResult(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, keyRunes("water"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, study.StateResultShown, m.controller.State())
	require.NotNil(t, m.result)
	require.True(t, m.result.Validation.IsCorrect)
	require.Contains(t, m.View(), "correct")

	// Enter again moves to the next card with a cleared input line.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, study.StateActive, m.controller.State())
	require.Empty(t, m.input)
	require.Contains(t, m.View(), "불")
}

func TestAnswerPreservedWhenStoreFails(t *testing.T) {
	m, ts := newTestModel(t)
	require.NoError(t, ts.Close())

	m = update(t, m, keyRunes("water"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// The review could not be persisted; the typed answer must survive.
	require.Equal(t, study.StateActive, m.controller.State())
	require.Equal(t, "water", m.input)
	require.Contains(t, m.View(), "retry")
}

func TestOverrideDigitRegrades(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, keyRunes("wrong"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.result.Validation.IsCorrect)
	require.Equal(t, 0, m.controller.Correct())

	m = update(t, m, keyRunes("4"))
	require.True(t, m.result.Validation.IsCorrect)
	require.Equal(t, 1, m.controller.Correct())
}

func TestHintKey(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, strings.HasPrefix(m.hint, "w"))
	require.Contains(t, m.View(), "hint:")
}

func TestSyncPromptAcceptAndDefer(t *testing.T) {
	m, _ := newTestModel(t)

	reply := make(chan bool, 1)
	m = update(t, m, SyncPromptMsg{PendingCount: 2, Reply: reply})
	require.Contains(t, m.View(), "sync now?")

	m = update(t, m, keyRunes("y"))
	require.True(t, <-reply)
	require.Nil(t, m.prompt)

	reply = make(chan bool, 1)
	m = update(t, m, SyncPromptMsg{PendingCount: 2, Reply: reply})
	m = update(t, m, keyRunes("n"))
	require.False(t, <-reply)
}
