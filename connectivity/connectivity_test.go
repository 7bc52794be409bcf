package connectivity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PheelaV/kr-notebook-sub000/connectivity"
	"github.com/PheelaV/kr-notebook-sub000/remote"
	"github.com/PheelaV/kr-notebook-sub000/store"
	teststore "github.com/PheelaV/kr-notebook-sub000/store/test"
	"github.com/PheelaV/kr-notebook-sub000/syncer"
)

type fakePrompter struct {
	mu     sync.Mutex
	calls  int
	accept bool
}

func (p *fakePrompter) ConfirmSync(_ context.Context, _ int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.accept
}

func (p *fakePrompter) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func online(v bool) connectivity.Signal {
	return connectivity.SignalFunc(func() bool { return v })
}

func newDetector(t *testing.T, serverURL string, st *store.Store, signal connectivity.Signal, prompter connectivity.Prompter, config connectivity.Config) *connectivity.Detector {
	t.Helper()
	client := remote.NewClient(&remote.Config{
		ServerURL:  serverURL,
		HealthPath: "/api/health",
		Timeout:    2 * time.Second,
	})
	d := connectivity.NewDetector(client, st, syncer.New(st, client), signal, prompter, config)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedPendingReview(ctx context.Context, t *testing.T, st *store.Store) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, st.SaveSession(ctx, &store.Session{
		SessionID: "sess-conn", CreatedAt: now, DesiredRetention: 0.9,
		Cards: []*store.CardState{{CardID: 1, Front: "f", Back: "b", State: store.State{NextReview: now}}},
	}))
	_, err := st.AddResponse(ctx, &store.ReviewResponse{
		SessionID: "sess-conn", CardID: 1,
		Meta: store.ReviewMeta{Quality: 4, IsCorrect: true, Timestamp: now},
	})
	require.NoError(t, err)
}

func TestReachableTrustsOnlineSignal(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)

	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	}))
	defer server.Close()

	d := newDetector(t, server.URL, st, online(true), nil, connectivity.DefaultConfig())
	require.True(t, d.IsBackendReachable(ctx))
	require.Equal(t, int32(0), probes.Load())
}

func TestProbeTimeoutCachesUnreachable(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)

	var probes atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		<-release
	}))
	defer server.Close()
	defer close(release)

	config := connectivity.DefaultConfig()
	config.ProbeTimeout = 50 * time.Millisecond
	d := newDetector(t, server.URL, st, online(false), nil, config)

	require.False(t, d.IsBackendReachable(ctx))
	require.Equal(t, int32(1), probes.Load())

	// A repeat within the cache window must not probe again.
	require.False(t, d.IsBackendReachable(ctx))
	require.Equal(t, int32(1), probes.Load())
}

func TestProbeSuccessCachesReachable(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)

	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		require.Equal(t, http.MethodHead, r.Method)
	}))
	defer server.Close()

	d := newDetector(t, server.URL, st, online(false), nil, connectivity.DefaultConfig())
	require.True(t, d.IsBackendReachable(ctx))
	require.True(t, d.IsBackendReachable(ctx))
	require.Equal(t, int32(1), probes.Load())

	// The synchronous check rides the longer cache window.
	require.True(t, d.IsBackendReachableSync())
}

func TestReachableSyncFallsBackToSignal(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)

	d := newDetector(t, "http://127.0.0.1:0", st, online(true), nil, connectivity.DefaultConfig())
	// No probe has run, so the signal decides.
	require.True(t, d.IsBackendReachableSync())
}

func TestStablePromptDeferStartsCooldown(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)
	seedPendingReview(ctx, t, st)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("deferred prompt must not sync")
	}))
	defer server.Close()

	prompter := &fakePrompter{accept: false}
	config := connectivity.DefaultConfig()
	config.StabilityDelay = 20 * time.Millisecond
	config.PromptCooldown = time.Hour
	d := newDetector(t, server.URL, st, online(true), prompter, config)

	d.HandleOnline()
	require.Eventually(t, func() bool { return prompter.callCount() == 1 },
		time.Second, 10*time.Millisecond)

	// Within the cooldown the next stable transition stays quiet.
	d.HandleOnline()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, prompter.callCount())
}

func TestStablePromptAcceptRunsSync(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)
	seedPendingReview(ctx, t, st)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"synced_count": 1, "skipped_count": 0, "errors": []}`))
	}))
	defer server.Close()

	prompter := &fakePrompter{accept: true}
	config := connectivity.DefaultConfig()
	config.StabilityDelay = 20 * time.Millisecond
	d := newDetector(t, server.URL, st, online(true), prompter, config)

	d.HandleOnline()
	require.Eventually(t, func() bool {
		count, err := st.PendingCount(ctx)
		return err == nil && count == 0
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, prompter.callCount())
}

func TestHandleOfflineCancelsStabilityTimer(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)
	seedPendingReview(ctx, t, st)

	prompter := &fakePrompter{accept: true}
	config := connectivity.DefaultConfig()
	config.StabilityDelay = 50 * time.Millisecond
	d := newDetector(t, "http://127.0.0.1:0", st, online(true), prompter, config)

	d.HandleOnline()
	d.HandleOffline()
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 0, prompter.callCount())
}

func TestRefreshSessionOfflineDisabledIsNotAnError(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": "Offline mode is not enabled."}`))
	}))
	defer server.Close()

	d := newDetector(t, server.URL, st, online(false), nil, connectivity.DefaultConfig())
	require.NoError(t, d.RefreshSession(ctx))

	has, err := st.HasSession(ctx)
	require.NoError(t, err)
	require.False(t, has)
}

func TestRefreshSessionReplacesStoredSession(t *testing.T) {
	ctx := context.Background()
	st := teststore.NewTestingStore(ctx, t)
	seedPendingReview(ctx, t, st)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"session_id": "sess-fresh",
			"created_at": "2026-03-02T08:00:00Z",
			"desired_retention": 0.9,
			"focus_mode": false,
			"cards": [{"card_id": 9, "front": "f", "back": "b",
				"learning_step": 0, "stability": 0, "difficulty": 0,
				"next_review": "2026-03-02T08:00:00Z", "repetitions": 0}]
		}`))
	}))
	defer server.Close()

	d := newDetector(t, server.URL, st, online(false), nil, connectivity.DefaultConfig())
	require.NoError(t, d.RefreshSession(ctx))

	session, err := st.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "sess-fresh", session.SessionID)

	// Replacing the session discards the old review log.
	count, err := st.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
