package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the offline study client.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the gateway
	Addr string
	// Port is the binding port for the gateway
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the local store keeps its data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the client; bumping it invalidates
	// every response cache namespace from prior versions
	Version string
	// ServerURL is the base URL of the server of record
	ServerURL string

	// HealthPath is the lightweight reachability endpoint on the server
	HealthPath string // KRNOTE_HEALTH_PATH (default: /healthz)
	// StaleAfterHours is the session freshness threshold
	StaleAfterHours float64 // KRNOTE_STALE_AFTER_HOURS (default: 24)
	// SessionMinutes is the default requested session duration
	SessionMinutes int // KRNOTE_SESSION_MINUTES (default: 20)
	// FilterMode is the default card filter for downloads
	FilterMode string // KRNOTE_FILTER_MODE (default: all)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// GatewayAddr returns the bind address of the caching gateway.
func (p *Profile) GatewayAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from KRNOTE_* environment variables.
func (p *Profile) FromEnv() {
	if v := os.Getenv("KRNOTE_SERVER_URL"); v != "" {
		p.ServerURL = v
	}
	p.HealthPath = getEnvOrDefault("KRNOTE_HEALTH_PATH", "/healthz")
	p.FilterMode = getEnvOrDefault("KRNOTE_FILTER_MODE", "all")

	if v, err := strconv.ParseFloat(os.Getenv("KRNOTE_STALE_AFTER_HOURS"), 64); err == nil && v > 0 {
		p.StaleAfterHours = v
	} else if p.StaleAfterHours == 0 {
		p.StaleAfterHours = 24
	}
	if v, err := strconv.Atoi(os.Getenv("KRNOTE_SESSION_MINUTES")); err == nil && v > 0 {
		p.SessionMinutes = v
	} else if p.SessionMinutes == 0 {
		p.SessionMinutes = 20
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "krnote")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/krnote"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("krnote_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
