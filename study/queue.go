package study

import (
	"sort"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

// interleaveThreshold is how many cards must be shown between two pulls from
// the reinforcement queue while the main queue still has cards.
const interleaveThreshold = 3

// queuePair holds the ephemeral selection state of a running session: the
// main queue of due cards and a FIFO reinforcement queue of incorrectly
// answered copies. Neither queue is persisted.
type queuePair struct {
	main          []*store.CardState
	reinforcement []*store.CardState

	// shown since the last reinforcement pull
	sinceReinforcement int

	lastCardID int64
	lastAnswer string
}

// newQueuePair builds the main queue sorted ascending by next review time.
func newQueuePair(cards []*store.CardState) *queuePair {
	main := make([]*store.CardState, len(cards))
	copy(main, cards)
	sort.SliceStable(main, func(i, j int) bool {
		return main[i].NextReview.Before(main[j].NextReview)
	})
	return &queuePair{main: main, lastCardID: -1}
}

func (q *queuePair) remaining() int {
	return len(q.main) + len(q.reinforcement)
}

// next removes and returns the next card to show, or nil when only the
// just-shown card remains. Queue choice: main until it runs dry, with a
// reinforcement pull once enough cards have been shown since the last one.
// Within the chosen queue the just-shown card is skipped, and a card sharing
// the previous card's answer is skipped unless every candidate shares it.
func (q *queuePair) next() *store.CardState {
	source, fromReinforcement := q.chooseQueue()

	idx := q.pick(*source)
	if idx < 0 {
		// The chosen queue only holds the just-shown card; fall back to
		// the other queue before giving up.
		if fromReinforcement {
			source, fromReinforcement = &q.main, false
		} else {
			source, fromReinforcement = &q.reinforcement, true
		}
		if idx = q.pick(*source); idx < 0 {
			return nil
		}
	}

	card := (*source)[idx]
	*source = append((*source)[:idx], (*source)[idx+1:]...)

	if fromReinforcement {
		q.sinceReinforcement = 0
	} else {
		q.sinceReinforcement++
	}
	q.lastCardID = card.CardID
	q.lastAnswer = card.Back
	return card
}

func (q *queuePair) chooseQueue() (*[]*store.CardState, bool) {
	if len(q.main) == 0 {
		return &q.reinforcement, true
	}
	if len(q.reinforcement) > 0 && q.sinceReinforcement >= interleaveThreshold {
		return &q.reinforcement, true
	}
	return &q.main, false
}

// pick returns the index of the first card that is neither the just-shown
// card nor a sibling of it, rotating through the queue. When every candidate
// is a sibling the first non-repeat wins anyway. Returns -1 when the queue
// holds nothing but the just-shown card.
func (q *queuePair) pick(cards []*store.CardState) int {
	firstNonRepeat := -1
	for i, card := range cards {
		if card.CardID == q.lastCardID {
			continue
		}
		if firstNonRepeat < 0 {
			firstNonRepeat = i
		}
		if card.Back != q.lastAnswer {
			return i
		}
	}
	return firstNonRepeat
}

// addReinforcement appends an incorrectly answered card copy, carrying its
// already-advanced scheduling state.
func (q *queuePair) addReinforcement(card *store.CardState) {
	q.reinforcement = append(q.reinforcement, card)
}

// removeReinforcement drops at most one reinforcement entry for the card.
// Reports whether an entry was removed.
func (q *queuePair) removeReinforcement(cardID int64) bool {
	for i, card := range q.reinforcement {
		if card.CardID == cardID {
			q.reinforcement = append(q.reinforcement[:i], q.reinforcement[i+1:]...)
			return true
		}
	}
	return false
}
