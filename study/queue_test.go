package study

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

func card(id int64, back string, due time.Time) *store.CardState {
	return &store.CardState{
		CardID: id,
		Front:  "front",
		Back:   back,
		State:  store.State{NextReview: due},
	}
}

func TestQueueSortsByDueTime(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(3, "c", now.Add(3*time.Hour)),
		card(1, "a", now.Add(1*time.Hour)),
		card(2, "b", now.Add(2*time.Hour)),
	})

	require.Equal(t, int64(1), q.next().CardID)
	require.Equal(t, int64(2), q.next().CardID)
	require.Equal(t, int64(3), q.next().CardID)
	require.Nil(t, q.next())
}

func TestQueueReinforcementWaitsForInterleaveThreshold(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(1, "a", now),
		card(2, "b", now.Add(time.Hour)),
	})

	// Card A shown and answered incorrectly.
	a := q.next()
	require.Equal(t, int64(1), a.CardID)
	q.addReinforcement(a)

	// One card shown since the pull: B comes next, not A's copy.
	require.Equal(t, int64(2), q.next().CardID)
}

func TestQueuePullsReinforcementAfterThreshold(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(1, "a", now),
		card(2, "b", now.Add(time.Hour)),
		card(3, "c", now.Add(2*time.Hour)),
		card(4, "d", now.Add(3*time.Hour)),
		card(5, "e", now.Add(4*time.Hour)),
	})

	first := q.next()
	q.addReinforcement(first)
	require.Equal(t, int64(2), q.next().CardID)
	require.Equal(t, int64(3), q.next().CardID)

	// Three cards shown since session start, so the reinforcement copy
	// cuts ahead of the remaining main cards.
	require.Equal(t, int64(1), q.next().CardID)
	require.Equal(t, int64(4), q.next().CardID)
}

func TestQueueDrainsReinforcementWhenMainEmpty(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(1, "a", now),
		card(2, "b", now.Add(time.Hour)),
	})

	first := q.next()
	q.addReinforcement(first)
	second := q.next()
	q.addReinforcement(second)

	// Main is empty; reinforcement serves regardless of the threshold.
	require.Equal(t, int64(1), q.next().CardID)
	require.Equal(t, int64(2), q.next().CardID)
	require.Nil(t, q.next())
}

func TestQueueSkipsSibling(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(1, "water", now),
		card(2, "water", now.Add(time.Hour)),
		card(3, "fire", now.Add(2*time.Hour)),
	})

	require.Equal(t, int64(1), q.next().CardID)
	// Card 2 shares card 1's answer, so card 3 jumps the line.
	require.Equal(t, int64(3), q.next().CardID)
	require.Equal(t, int64(2), q.next().CardID)
}

func TestQueueTakesSiblingWhenNoAlternative(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{
		card(1, "water", now),
		card(2, "water", now.Add(time.Hour)),
	})

	require.Equal(t, int64(1), q.next().CardID)
	require.Equal(t, int64(2), q.next().CardID)
}

func TestQueueNeverRepeatsJustShownCard(t *testing.T) {
	now := time.Now()
	q := newQueuePair([]*store.CardState{card(1, "a", now)})

	first := q.next()
	require.Equal(t, int64(1), first.CardID)
	q.addReinforcement(first)

	// Only the just-shown card remains, so nothing is eligible.
	require.Nil(t, q.next())
	require.Equal(t, 1, q.remaining())
}

func TestQueueRemovesAtMostOneReinforcement(t *testing.T) {
	now := time.Now()
	q := newQueuePair(nil)
	q.addReinforcement(card(7, "a", now))
	q.addReinforcement(card(7, "a", now))

	require.True(t, q.removeReinforcement(7))
	require.Equal(t, 1, q.remaining())
	require.True(t, q.removeReinforcement(7))
	require.False(t, q.removeReinforcement(7))
}
