package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minEvalTimeoutMS  = 500
	minSyncIntervalMS = 250
)

// Config holds all configuration for the indicator daemon.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// HTTP API
	BindAddr         string
	PortAutoFallback bool
	PortCandidates   []string

	// Tab matching and page queries
	TabURLFilter   string
	EvalTimeoutMS  int
	SyncIntervalMS int

	// Logging
	LogLevel string
	LogFile  string

	// Preferences
	PrefsDB string

	// Optional local browser launch
	LaunchBrowser     bool
	BrowserProfileDir string
	StartURL          string

	// Optional ntfy-style endpoint for icon changes; empty disables
	NotifyURL string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		BindAddr:         getEnvOrDefault("CFINDICATOR_BIND_ADDR", "127.0.0.1:8189"),
		PortAutoFallback: getEnvBoolOrDefault("CFINDICATOR_PORT_AUTO_FALLBACK", true),
		PortCandidates:   getEnvListOrDefault("CFINDICATOR_PORT_CANDIDATES", "127.0.0.1:8190,127.0.0.1:8191,127.0.0.1:8192"),
		TabURLFilter:     getEnvOrDefault("CFINDICATOR_TAB_URL_FILTER", ""),
		EvalTimeoutMS:    getEnvIntOrDefault("CFINDICATOR_EVAL_TIMEOUT_MS", 3000),
		SyncIntervalMS:   getEnvIntOrDefault("CFINDICATOR_SYNC_INTERVAL_MS", 1000),
		LogLevel:         strings.ToLower(getEnvOrDefault("CFINDICATOR_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("CFINDICATOR_LOG_FILE", "logs/cfindicator.log"),
		PrefsDB:          getEnvOrDefault("CFINDICATOR_PREFS_DB", "./data/prefs.db"),

		LaunchBrowser:     getEnvBoolOrDefault("CFINDICATOR_LAUNCH_BROWSER", false),
		BrowserProfileDir: getEnvOrDefault("CFINDICATOR_BROWSER_PROFILE_DIR", "./data/chromium-profile"),
		StartURL:          getEnvOrDefault("CFINDICATOR_START_URL", "about:blank"),
		NotifyURL:         getEnvOrDefault("CFINDICATOR_NOTIFY_URL", ""),
	}
	if cfg.CDPPort <= 0 || cfg.CDPPort > 65535 {
		return nil, fmt.Errorf("invalid CHROMIUM_CDP_PORT: %d", cfg.CDPPort)
	}
	if cfg.EvalTimeoutMS < minEvalTimeoutMS {
		cfg.EvalTimeoutMS = minEvalTimeoutMS
	}
	if cfg.SyncIntervalMS < minSyncIntervalMS {
		cfg.SyncIntervalMS = minSyncIntervalMS
	}

	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMS) * time.Millisecond
}

// SlogLevel maps LogLevel onto slog; unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma-separated value, dropping empty items.
func getEnvListOrDefault(key, defaultVal string) []string {
	var out []string
	for _, item := range strings.Split(getEnvOrDefault(key, defaultVal), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
