package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("KRNOTE_SERVER_URL", "")
	t.Setenv("KRNOTE_HEALTH_PATH", "")
	t.Setenv("KRNOTE_STALE_AFTER_HOURS", "")
	t.Setenv("KRNOTE_SESSION_MINUTES", "")
	t.Setenv("KRNOTE_FILTER_MODE", "")

	p := &Profile{ServerURL: "http://localhost:8787"}
	p.FromEnv()

	require.Equal(t, "http://localhost:8787", p.ServerURL)
	require.Equal(t, "/healthz", p.HealthPath)
	require.Equal(t, "all", p.FilterMode)
	require.Equal(t, 24.0, p.StaleAfterHours)
	require.Equal(t, 20, p.SessionMinutes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KRNOTE_SERVER_URL", "https://krnote.example.com")
	t.Setenv("KRNOTE_HEALTH_PATH", "/api/health")
	t.Setenv("KRNOTE_STALE_AFTER_HOURS", "6")
	t.Setenv("KRNOTE_SESSION_MINUTES", "45")
	t.Setenv("KRNOTE_FILTER_MODE", "due")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "https://krnote.example.com", p.ServerURL)
	require.Equal(t, "/api/health", p.HealthPath)
	require.Equal(t, "due", p.FilterMode)
	require.Equal(t, 6.0, p.StaleAfterHours)
	require.Equal(t, 45, p.SessionMinutes)
}

func TestFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("KRNOTE_STALE_AFTER_HOURS", "soon")
	t.Setenv("KRNOTE_SESSION_MINUTES", "-5")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, 24.0, p.StaleAfterHours)
	require.Equal(t, 20, p.SessionMinutes)
}

func TestValidateFallsBackToDemoMode(t *testing.T) {
	p := &Profile{Mode: "staging", Data: t.TempDir(), Driver: "sqlite"}
	require.NoError(t, p.Validate())
	require.Equal(t, "demo", p.Mode)
}

func TestValidateDerivesSqliteDSN(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Data: dir, Driver: "sqlite"}
	require.NoError(t, p.Validate())
	require.Equal(t, filepath.Join(dir, "krnote_dev.db"), p.DSN)
}

func TestValidateKeepsExplicitDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "sqlite", DSN: "/tmp/custom.db"}
	require.NoError(t, p.Validate())
	require.Equal(t, "/tmp/custom.db", p.DSN)
}

func TestValidateRejectsMissingDataDir(t *testing.T) {
	p := &Profile{Mode: "dev", Data: filepath.Join(t.TempDir(), "nope"), Driver: "sqlite"}
	require.Error(t, p.Validate())
}

func TestGatewayAddr(t *testing.T) {
	p := &Profile{Addr: "127.0.0.1", Port: 8230}
	require.Equal(t, "127.0.0.1:8230", p.GatewayAddr())
}
