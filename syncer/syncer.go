// Package syncer uploads the pending review log to the server of record and
// reconciles the local log against the server's per-card accounting. The
// protocol is at-least-once: a failed batch stays local and is resubmitted
// whole on the next trigger.
package syncer

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/remote"
	"github.com/PheelaV/kr-notebook-sub000/store"
)

// ErrSyncInProgress rejects a sync attempt while another one is running.
// Concurrent triggers are refused, never queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// Outcome classifies a finished sync for presentation.
type Outcome int

const (
	// OutcomeNothingPending means there was nothing to upload.
	OutcomeNothingPending Outcome = iota
	// OutcomeSuccess means every review was accepted.
	OutcomeSuccess
	// OutcomePartial means some reviews failed; their entries were retained
	// for retry.
	OutcomePartial
	// OutcomeAllSkipped means the server skipped every review as already
	// handled elsewhere. Skips need no retry, so the log was cleared.
	OutcomeAllSkipped
	// OutcomeFailure means the whole batch failed; nothing was cleared.
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingPending:
		return "nothing pending"
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeAllSkipped:
		return "all skipped"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the accounting of one sync run.
type Result struct {
	Outcome       Outcome
	SyncedCount   int
	SkippedCount  int
	FailedCardIDs []int64
	Errors        []string
}

// cardErrorPattern matches the server's "Card <id>: <message>" error strings.
var cardErrorPattern = regexp.MustCompile(`^Card (\d+):`)

// Syncer uploads pending reviews. A single instance serves the whole
// process; the in-flight guard is per instance.
type Syncer struct {
	store  *store.Store
	client *remote.Client

	inFlight atomic.Bool
}

// New creates a Syncer over the local store and remote client.
func New(st *store.Store, client *remote.Client) *Syncer {
	return &Syncer{store: st, client: client}
}

// Sync uploads all pending reviews as one batch and reconciles the local
// log. A second call while one is running fails with ErrSyncInProgress.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	responses, err := s.store.ListResponses(ctx, &store.FindReviewResponse{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending responses")
	}
	if len(responses) == 0 {
		return &Result{Outcome: OutcomeNothingPending}, nil
	}

	sessionID := responses[0].SessionID
	reviews := make([]remote.Review, 0, len(responses))
	for _, response := range responses {
		reviews = append(reviews, flatten(response))
	}

	reply, err := s.client.SyncOffline(ctx, sessionID, reviews)
	if err != nil {
		// Whole-batch failure: keep everything local for the next trigger.
		slog.Warn("sync failed", "pending", len(responses), "error", err)
		return &Result{Outcome: OutcomeFailure}, err
	}

	failedIDs := parseFailedCardIDs(reply.Errors)
	result := &Result{
		SyncedCount:   reply.SyncedCount,
		SkippedCount:  reply.SkippedCount,
		FailedCardIDs: failedIDs,
		Errors:        reply.Errors,
	}

	switch {
	case len(reply.Errors) == 0 && reply.SyncedCount == 0 && reply.SkippedCount > 0:
		// Conflicts only: the server already saw these reviews through
		// another channel. Nothing to retry.
		result.Outcome = OutcomeAllSkipped
		if err := s.store.ClearSyncedResponses(ctx, nil); err != nil {
			return nil, errors.Wrap(err, "failed to clear skipped responses")
		}
	case reply.SyncedCount > 0 || len(reply.Errors) == 0:
		if err := s.store.ClearSyncedResponses(ctx, failedIDs); err != nil {
			return nil, errors.Wrap(err, "failed to clear synced responses")
		}
		if len(failedIDs) == 0 {
			result.Outcome = OutcomeSuccess
		} else {
			result.Outcome = OutcomePartial
		}
	default:
		// Nothing accepted and every entry errored; retry the full batch.
		result.Outcome = OutcomeFailure
	}

	slog.Info("sync finished",
		"outcome", result.Outcome.String(),
		"synced", result.SyncedCount,
		"skipped", result.SkippedCount,
		"failed", len(result.FailedCardIDs))
	return result, nil
}

// flatten produces the wire shape from the internal pre/post split.
func flatten(response *store.ReviewResponse) remote.Review {
	return remote.Review{
		CardID:       response.CardID,
		Quality:      response.Meta.Quality,
		IsCorrect:    response.Meta.IsCorrect,
		HintsUsed:    response.Meta.HintsUsed,
		Timestamp:    response.Meta.Timestamp,
		LearningStep: response.Post.LearningStep,
		Stability:    response.Post.Stability,
		Difficulty:   response.Post.Difficulty,
		NextReview:   response.Post.NextReview,
	}
}

// parseFailedCardIDs pulls card ids out of "Card <id>: <message>" strings.
// Unparseable entries are logged and dropped rather than blocking the clear.
func parseFailedCardIDs(errs []string) []int64 {
	var ids []int64
	for _, msg := range errs {
		match := cardErrorPattern.FindStringSubmatch(msg)
		if match == nil {
			slog.Warn("unparseable sync error", "message", msg)
			continue
		}
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			slog.Warn("unparseable card id in sync error", "message", msg)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
