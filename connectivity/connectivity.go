// Package connectivity watches backend reachability and drives the
// online-again flow: a debounced sync prompt once the connection looks
// stable, and a background session refresh when the local session has gone
// stale.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/PheelaV/kr-notebook-sub000/remote"
	"github.com/PheelaV/kr-notebook-sub000/store"
	"github.com/PheelaV/kr-notebook-sub000/store/cache"
	"github.com/PheelaV/kr-notebook-sub000/syncer"
)

const (
	probeCacheKey = "probe"
	syncCacheKey  = "probe_sync"
)

// Signal is the platform's own online/offline notion, trusted as a fast
// path. A process with no such notion should report false so reachability
// falls through to the probe.
type Signal interface {
	Online() bool
}

// SignalFunc adapts a function to the Signal interface.
type SignalFunc func() bool

func (f SignalFunc) Online() bool { return f() }

// Prompter asks the user whether to sync now. Returning false defers and
// starts the prompt cooldown.
type Prompter interface {
	ConfirmSync(ctx context.Context, pendingCount int) bool
}

// Config holds the detector configuration.
type Config struct {
	// ProbeTimeout bounds a single health probe.
	ProbeTimeout time.Duration
	// ShortCacheTTL is how long a probe result satisfies the async check.
	ShortCacheTTL time.Duration
	// SyncCacheTTL is the longer window the synchronous check accepts,
	// since it cannot await a fresh probe.
	SyncCacheTTL time.Duration
	// StabilityDelay is how long the connection must stay up before the
	// sync prompt fires.
	StabilityDelay time.Duration
	// PromptCooldown suppresses re-prompting after a deferral.
	PromptCooldown time.Duration
	// StaleAfterHours marks the stored session stale for refresh purposes.
	StaleAfterHours float64
	// SessionMinutes and FilterMode parameterize a session refresh.
	SessionMinutes int
	FilterMode     string
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:    3 * time.Second,
		ShortCacheTTL:   30 * time.Second,
		SyncCacheTTL:    2 * time.Minute,
		StabilityDelay:  5 * time.Second,
		PromptCooldown:  10 * time.Minute,
		StaleAfterHours: 24,
		SessionMinutes:  20,
		FilterMode:      "all",
	}
}

// Detector tracks backend reachability and reacts to online transitions.
type Detector struct {
	client   *remote.Client
	store    *store.Store
	syncer   *syncer.Syncer
	signal   Signal
	prompter Prompter
	config   Config

	probeCache *cache.Cache
	limiter    *rate.Limiter

	refreshGroup singleflight.Group

	// mu guards the timer and the deferral mark; the timer callback runs
	// on its own goroutine.
	mu             sync.Mutex
	stabilityTimer *time.Timer
	lastDeferral   time.Time

	clock func() time.Time
}

// NewDetector creates a detector. signal and prompter may be nil: a nil
// signal always reports offline so every check goes through the probe, and a
// nil prompter accepts every sync prompt.
func NewDetector(client *remote.Client, st *store.Store, sync *syncer.Syncer, signal Signal, prompter Prompter, config Config) *Detector {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 3 * time.Second
	}
	if config.ShortCacheTTL <= 0 {
		config.ShortCacheTTL = 30 * time.Second
	}
	if config.SyncCacheTTL <= 0 {
		config.SyncCacheTTL = 2 * time.Minute
	}
	if config.StabilityDelay <= 0 {
		config.StabilityDelay = 5 * time.Second
	}
	if config.PromptCooldown <= 0 {
		config.PromptCooldown = 10 * time.Minute
	}
	if config.StaleAfterHours <= 0 {
		config.StaleAfterHours = 24
	}
	if signal == nil {
		signal = SignalFunc(func() bool { return false })
	}
	return &Detector{
		client:   client,
		store:    st,
		syncer:   sync,
		signal:   signal,
		prompter: prompter,
		config:   config,
		probeCache: cache.New(cache.Config{
			DefaultTTL:      config.ShortCacheTTL,
			CleanupInterval: time.Minute,
		}),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		clock:   time.Now,
	}
}

// Close releases the probe cache and any armed timer.
func (d *Detector) Close() error {
	d.CancelStabilityTimer()
	return d.probeCache.Close()
}

// IsBackendReachable reports whether the backend answers. The platform
// signal is trusted when it says online; otherwise a cached probe result is
// used if fresh, else one bounded health probe runs and its result is cached
// for the short window. Timeouts, aborts and transport errors all collapse
// to unreachable.
func (d *Detector) IsBackendReachable(ctx context.Context) bool {
	if d.signal.Online() {
		return true
	}
	if cached, ok := d.probeCache.Get(ctx, probeCacheKey); ok {
		return cached.(bool)
	}
	if !d.limiter.Allow() {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.config.ProbeTimeout)
	defer cancel()
	reachable := d.client.Health(probeCtx) == nil

	d.probeCache.SetWithTTL(ctx, probeCacheKey, reachable, d.config.ShortCacheTTL)
	d.probeCache.SetWithTTL(ctx, syncCacheKey, reachable, d.config.SyncCacheTTL)
	return reachable
}

// IsBackendReachableSync is the best-effort check for paths that cannot
// await a probe. It accepts a cached result within the longer window and
// falls back to the platform signal.
func (d *Detector) IsBackendReachableSync() bool {
	ctx := context.Background()
	if cached, ok := d.probeCache.Get(ctx, syncCacheKey); ok {
		return cached.(bool)
	}
	return d.signal.Online()
}

// HandleOnline arms the stability timer. The prompt flow runs only if the
// connection holds for the whole delay.
func (d *Detector) HandleOnline() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelTimerLocked()
	d.stabilityTimer = time.AfterFunc(d.config.StabilityDelay, d.onStableConnection)
}

// HandleOffline cancels a pending stability timer.
func (d *Detector) HandleOffline() {
	d.CancelStabilityTimer()
	d.probeCache.Delete(context.Background(), probeCacheKey)
}

// CancelStabilityTimer stops the armed timer, if any.
func (d *Detector) CancelStabilityTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelTimerLocked()
}

func (d *Detector) cancelTimerLocked() {
	if d.stabilityTimer != nil {
		d.stabilityTimer.Stop()
		d.stabilityTimer = nil
	}
}

// onStableConnection fires once the connection has held for the stability
// delay: with pending reviews it surfaces a sync prompt, never syncing
// silently. Deferral suppresses re-prompting for the cooldown window.
func (d *Detector) onStableConnection() {
	ctx := context.Background()

	pending, err := d.store.PendingCount(ctx)
	if err != nil {
		slog.Warn("failed to count pending reviews", "error", err)
		return
	}
	if pending == 0 {
		return
	}
	d.mu.Lock()
	cooling := d.clock().Sub(d.lastDeferral) < d.config.PromptCooldown
	d.mu.Unlock()
	if cooling {
		return
	}

	if d.prompter != nil && !d.prompter.ConfirmSync(ctx, pending) {
		d.mu.Lock()
		d.lastDeferral = d.clock()
		d.mu.Unlock()
		return
	}

	result, err := d.syncer.Sync(ctx)
	if err != nil {
		slog.Warn("prompted sync failed", "error", err)
		return
	}
	slog.Info("prompted sync finished", "outcome", result.Outcome.String())

	age, err := d.store.SessionAgeHours(ctx)
	if err == nil && age > d.config.StaleAfterHours {
		go func() {
			if err := d.RefreshSession(context.Background()); err != nil {
				slog.Warn("background session refresh failed", "error", err)
			}
		}()
	}
}

// RefreshSession re-downloads the session from the server and replaces the
// local one. Concurrent calls share one flight. A server with the offline
// feature disabled is an expected outcome, not a failure.
func (d *Detector) RefreshSession(ctx context.Context) error {
	_, err, _ := d.refreshGroup.Do("refresh", func() (any, error) {
		if !d.IsBackendReachable(ctx) {
			return nil, nil
		}
		session, err := d.client.DownloadSession(ctx, d.config.SessionMinutes, d.config.FilterMode)
		if err != nil {
			if errors.Is(err, remote.ErrOfflineDisabled) {
				slog.Info("session refresh skipped: offline study disabled on server")
				return nil, nil
			}
			return nil, err
		}
		if err := d.store.SaveSession(ctx, session); err != nil {
			return nil, err
		}
		slog.Info("session refreshed", "session", session.SessionID, "cards", len(session.Cards))
		return nil, nil
	})
	return err
}
