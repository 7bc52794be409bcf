// Package study drives a review session: card selection with reinforcement
// interleaving and sibling exclusion, answer grading, manual overrides and
// progressive hints. All session state lives on the Controller, never in
// package globals.
package study

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/plugin/srs"
	"github.com/PheelaV/kr-notebook-sub000/store"
)

// State is the controller's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateActive
	StateResultShown
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateResultShown:
		return "result"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Config holds the controller configuration.
type Config struct {
	// StaleAfterHours marks the session stale when it is older than this.
	StaleAfterHours float64
	// Clock is injectable for tests. Defaults to time.Now.
	Clock func() time.Time
	// OnPendingCount is invoked after every durably persisted response
	// with the new pending-review count.
	OnPendingCount func(count int)
}

// ReviewResult is what the controller reports after grading an answer or an
// override.
type ReviewResult struct {
	Validation srs.Validation
	Post       store.State
	// SuggestedAnswer is the canonical answer when the user's input was
	// not an exact match.
	SuggestedAnswer string
}

// lastReview is the bookkeeping needed to regrade the most recent answer.
// Overrides always recompute from the originally captured pre-state and
// apply counter and queue deltas against the currently recorded correctness,
// so repeated overrides settle on the final grade instead of stacking.
type lastReview struct {
	cardID     int64
	pre        store.State
	userAnswer string
	hintsUsed  int
	result     srs.Result
	correct    bool
}

// Controller owns one session's review flow.
type Controller struct {
	store     *store.Store
	scheduler Scheduler
	config    Config

	state   State
	session *store.Session
	queue   *queuePair
	current *store.CardState

	answered  int
	correct   int
	pending   int
	hintLevel int
	stale     bool

	last *lastReview
}

// NewController creates a controller over the local store and scheduler.
func NewController(st *store.Store, scheduler Scheduler, config Config) *Controller {
	if config.StaleAfterHours <= 0 {
		config.StaleAfterHours = 24
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Controller{
		store:     st,
		scheduler: scheduler,
		config:    config,
		state:     StateIdle,
	}
}

// Init loads the session from the local store, flags it stale when past the
// freshness threshold and builds the queues. The controller stays Idle until
// Start.
func (c *Controller) Init(ctx context.Context) error {
	if c.scheduler == nil {
		return errors.New("no scheduler available")
	}

	session, err := c.store.GetSession(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load session")
	}
	c.session = session
	c.stale = session.AgeHours(c.config.Clock()) > c.config.StaleAfterHours
	c.queue = newQueuePair(session.Cards)

	pending, err := c.store.PendingCount(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to count pending responses")
	}
	c.pending = pending

	c.state = StateIdle
	c.current = nil
	c.answered = 0
	c.correct = 0
	c.last = nil
	slog.Debug("session initialized",
		"session", session.SessionID, "cards", len(session.Cards), "stale", c.stale)
	return nil
}

// Start enters the Active state and returns the first card, or nil when the
// session holds no cards.
func (c *Controller) Start() *store.CardState {
	if c.queue == nil {
		return nil
	}
	c.current = c.queue.next()
	if c.current == nil {
		c.state = StateComplete
		return nil
	}
	c.state = StateActive
	c.hintLevel = 0
	return c.current
}

// Next advances past a shown result to the next card. Returns nil and moves
// to Complete when no eligible card remains.
func (c *Controller) Next() *store.CardState {
	if c.state != StateResultShown {
		return nil
	}
	c.current = c.queue.next()
	c.last = nil
	c.hintLevel = 0
	if c.current == nil {
		c.state = StateComplete
		return nil
	}
	c.state = StateActive
	return c.current
}

// SubmitAnswer grades the typed answer against the current card, persists
// the review and moves to ResultShown. The response is durable before the
// pending-count callback fires. On a store failure the controller state is
// unchanged so the caller can retry without losing the typed input.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) (*ReviewResult, error) {
	if c.state != StateActive || c.current == nil {
		return nil, errors.Errorf("cannot submit answer in state %s", c.state)
	}

	card := c.current
	pre := card.State
	usedHint := c.hintLevel > 0
	validation := c.scheduler.Validate(answer, card.Back, usedHint)
	post := c.scheduler.Advance(pre, validation.Quality, c.session.DesiredRetention, c.session.FocusMode)

	suggested := ""
	if validation.Result != srs.ResultCorrect {
		suggested = card.Back
	}

	response := &store.ReviewResponse{
		SessionID: c.session.SessionID,
		CardID:    card.CardID,
		Meta: store.ReviewMeta{
			Quality:         validation.Quality,
			IsCorrect:       validation.IsCorrect,
			HintsUsed:       c.hintLevel,
			Timestamp:       c.config.Clock().UTC(),
			UserAnswer:      answer,
			OriginalResult:  string(validation.Result),
			SuggestedAnswer: suggested,
		},
		Pre:  pre,
		Post: post,
	}
	if _, err := c.store.AddResponse(ctx, response); err != nil {
		return nil, errors.Wrap(err, "failed to persist response")
	}

	if err := c.store.UpdateCardState(ctx, card.CardID, post); err != nil {
		slog.Warn("failed to persist card state", "card", card.CardID, "error", err)
	}
	card.State = post

	c.answered++
	if validation.IsCorrect {
		c.correct++
	} else {
		copied := *card
		c.queue.addReinforcement(&copied)
	}

	c.pending++
	if c.config.OnPendingCount != nil {
		c.config.OnPendingCount(c.pending)
	}

	c.last = &lastReview{
		cardID:     card.CardID,
		pre:        pre,
		userAnswer: answer,
		hintsUsed:  c.hintLevel,
		result:     validation.Result,
		correct:    validation.IsCorrect,
	}
	c.state = StateResultShown

	return &ReviewResult{
		Validation:      validation,
		Post:            post,
		SuggestedAnswer: suggested,
	}, nil
}

// SubmitOverride regrades the most recent answer with a manually chosen
// quality. The new state is recomputed from the original pre-review state;
// the correct count moves by exactly one only when the override flips
// correctness, and the reinforcement queue is kept in step. A new
// override-flagged entry is appended, never mutating the earlier one.
func (c *Controller) SubmitOverride(ctx context.Context, quality int) (*ReviewResult, error) {
	if c.state != StateResultShown || c.last == nil {
		return nil, errors.Errorf("no review to override in state %s", c.state)
	}
	if quality < 0 || quality > 5 {
		return nil, errors.Errorf("quality %d out of range", quality)
	}

	last := c.last
	card := c.session.CardByID(last.cardID)
	if card == nil {
		return nil, errors.Errorf("card %d not in session", last.cardID)
	}

	isCorrect := quality >= 2
	post := c.scheduler.Advance(last.pre, quality, c.session.DesiredRetention, c.session.FocusMode)

	response := &store.ReviewResponse{
		SessionID: c.session.SessionID,
		CardID:    card.CardID,
		Meta: store.ReviewMeta{
			Quality:        quality,
			IsCorrect:      isCorrect,
			HintsUsed:      last.hintsUsed,
			Timestamp:      c.config.Clock().UTC(),
			UserAnswer:     last.userAnswer,
			OriginalResult: string(last.result),
			IsOverride:     true,
		},
		Pre:  last.pre,
		Post: post,
	}
	if _, err := c.store.AddResponse(ctx, response); err != nil {
		return nil, errors.Wrap(err, "failed to persist override")
	}

	if err := c.store.UpdateCardState(ctx, card.CardID, post); err != nil {
		slog.Warn("failed to persist card state", "card", card.CardID, "error", err)
	}
	card.State = post
	if c.current != nil && c.current.CardID == card.CardID {
		c.current.State = post
	}

	if isCorrect != last.correct {
		if isCorrect {
			c.correct++
			c.queue.removeReinforcement(card.CardID)
		} else {
			c.correct--
			copied := *card
			c.queue.addReinforcement(&copied)
		}
		last.correct = isCorrect
	}

	c.pending++
	if c.config.OnPendingCount != nil {
		c.config.OnPendingCount(c.pending)
	}

	return &ReviewResult{
		Validation: srs.Validation{
			Result:    last.result,
			Quality:   quality,
			IsCorrect: isCorrect,
		},
		Post: post,
	}, nil
}

// ShowHint reveals the next hint level for the current card. Hint state is
// presentation only and never persisted on its own, but hints used feed into
// the grade of the eventual answer.
func (c *Controller) ShowHint() string {
	if c.state != StateActive || c.current == nil {
		return ""
	}
	if c.hintLevel < 3 {
		c.hintLevel++
	}
	return c.scheduler.Hint(c.current.Back, c.hintLevel)
}

// Stop abandons the in-memory flow. Persisted state is left untouched.
func (c *Controller) Stop() {
	c.state = StateIdle
	c.current = nil
	c.last = nil
}

// Current returns the card being shown, if any.
func (c *Controller) Current() *store.CardState { return c.current }

// State returns the controller lifecycle state.
func (c *Controller) State() State { return c.state }

// Remaining returns how many cards are left across both queues.
func (c *Controller) Remaining() int {
	if c.queue == nil {
		return 0
	}
	return c.queue.remaining()
}

// Answered returns the number of graded answers this session.
func (c *Controller) Answered() int { return c.answered }

// Correct returns the running correct count, override deltas included.
func (c *Controller) Correct() int { return c.correct }

// Pending returns the number of responses awaiting sync.
func (c *Controller) Pending() int { return c.pending }

// Stale reports whether the loaded session is past the freshness threshold.
func (c *Controller) Stale() bool { return c.stale }

// Session returns the loaded session.
func (c *Controller) Session() *store.Session { return c.session }
