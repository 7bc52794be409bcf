// Package remote is the HTTP client for the server of record. It speaks the
// study endpoints the client consumes: session download, review sync, the
// health probe, and the precache URL list.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/store"
)

// ErrOfflineDisabled is returned when the server refuses a session download
// because offline study is switched off in its settings. Callers treat this
// as an expected outcome, not a transport failure.
var ErrOfflineDisabled = errors.New("offline mode is disabled on the server")

// Config holds the remote client configuration.
type Config struct {
	// ServerURL is the base URL of the server of record.
	ServerURL string
	// HealthPath is the path probed for reachability.
	HealthPath string
	// Timeout is the HTTP timeout for requests.
	Timeout time.Duration
}

// DefaultConfig returns the default remote configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  "http://localhost:8787",
		HealthPath: "/api/health",
		Timeout:    30 * time.Second,
	}
}

// Client talks to the server of record.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new remote client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Review is one graded card in the sync payload. Timestamps travel as
// RFC 3339 text.
type Review struct {
	CardID       int64     `json:"card_id"`
	Quality      int       `json:"quality"`
	IsCorrect    bool      `json:"is_correct"`
	HintsUsed    int       `json:"hints_used"`
	Timestamp    time.Time `json:"timestamp"`
	LearningStep int64     `json:"learning_step"`
	Stability    float64   `json:"stability"`
	Difficulty   float64   `json:"difficulty"`
	NextReview   time.Time `json:"next_review"`
}

// SyncResult is the server's accounting for one sync request.
type SyncResult struct {
	SyncedCount  int      `json:"synced_count"`
	SkippedCount int      `json:"skipped_count"`
	SkippedCards []int64  `json:"skipped_cards,omitempty"`
	Errors       []string `json:"errors"`
}

type downloadSessionRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	FilterMode      string `json:"filter_mode"`
}

type syncSessionRequest struct {
	SessionID string   `json:"session_id"`
	Reviews   []Review `json:"reviews"`
}

// DownloadSession fetches a fresh study session sized for the given duration.
// A 403 from the server means offline study is disabled and maps to
// ErrOfflineDisabled.
func (c *Client) DownloadSession(ctx context.Context, durationMinutes int, filterMode string) (*store.Session, error) {
	if filterMode == "" {
		filterMode = "all"
	}
	body, err := json.Marshal(&downloadSessionRequest{
		DurationMinutes: durationMinutes,
		FilterMode:      filterMode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal download request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.ServerURL+"/api/study/download-session",
		bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download session request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrOfflineDisabled
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	session := &store.Session{}
	if err := json.NewDecoder(resp.Body).Decode(session); err != nil {
		return nil, errors.Wrap(err, "failed to decode session")
	}
	slog.Debug("downloaded session", "session", session.SessionID, "cards", len(session.Cards))
	return session, nil
}

// SyncOffline posts the accumulated reviews of a session and returns the
// server's accounting. A non-200 status is a transport failure; per-card
// problems come back inside SyncResult.Errors.
func (c *Client) SyncOffline(ctx context.Context, sessionID string, reviews []Review) (*SyncResult, error) {
	body, err := json.Marshal(&syncSessionRequest{
		SessionID: sessionID,
		Reviews:   reviews,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal sync request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.ServerURL+"/api/study/sync-offline",
		bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sync request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	result := &SyncResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, errors.Wrap(err, "failed to decode sync result")
	}
	return result, nil
}

// Health probes the server with a HEAD request. Any 2xx means reachable.
// The caller supplies the context deadline.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead,
		c.config.ServerURL+c.config.HealthPath, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "health probe failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// PrecacheURLs fetches the list of paths the server wants warmed in the
// local cache.
func (c *Client) PrecacheURLs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.ServerURL+"/api/study/precache-urls", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "precache list request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("server returned status %d", resp.StatusCode)
	}

	var urls []string
	if err := json.NewDecoder(resp.Body).Decode(&urls); err != nil {
		return nil, errors.Wrap(err, "failed to decode precache list")
	}
	return urls, nil
}

// ServerURL returns the configured base URL.
func (c *Client) ServerURL() string {
	return c.config.ServerURL
}
