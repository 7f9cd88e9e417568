package config

import (
	"log/slog"
	"testing"
	"time"
)

var configKeys = []string{
	"CHROMIUM_CDP_ADDRESS",
	"CHROMIUM_CDP_PORT",
	"CFINDICATOR_BIND_ADDR",
	"CFINDICATOR_PORT_AUTO_FALLBACK",
	"CFINDICATOR_PORT_CANDIDATES",
	"CFINDICATOR_TAB_URL_FILTER",
	"CFINDICATOR_EVAL_TIMEOUT_MS",
	"CFINDICATOR_SYNC_INTERVAL_MS",
	"CFINDICATOR_LOG_LEVEL",
	"CFINDICATOR_LOG_FILE",
	"CFINDICATOR_PREFS_DB",
	"CFINDICATOR_LAUNCH_BROWSER",
	"CFINDICATOR_BROWSER_PROFILE_DIR",
	"CFINDICATOR_START_URL",
	"CFINDICATOR_NOTIFY_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.GetCDPURL(); got != "http://127.0.0.1:9222" {
		t.Fatalf("GetCDPURL() = %q; want http://127.0.0.1:9222", got)
	}
	if cfg.BindAddr != "127.0.0.1:8189" || !cfg.PortAutoFallback {
		t.Fatalf("bind = %q fallback = %v; want 127.0.0.1:8189 true", cfg.BindAddr, cfg.PortAutoFallback)
	}
	if len(cfg.PortCandidates) != 3 || cfg.PortCandidates[0] != "127.0.0.1:8190" {
		t.Fatalf("PortCandidates = %v; want three defaults", cfg.PortCandidates)
	}
	if cfg.TabURLFilter != "" {
		t.Fatalf("TabURLFilter = %q; want empty", cfg.TabURLFilter)
	}
	if cfg.EvalTimeout() != 3*time.Second || cfg.SyncInterval() != time.Second {
		t.Fatalf("timeouts = %v, %v; want 3s, 1s", cfg.EvalTimeout(), cfg.SyncInterval())
	}
	if cfg.LogFile != "logs/cfindicator.log" || cfg.PrefsDB != "./data/prefs.db" {
		t.Fatalf("paths = %q, %q; want defaults", cfg.LogFile, cfg.PrefsDB)
	}
	if cfg.LaunchBrowser || cfg.NotifyURL != "" || cfg.StartURL != "about:blank" {
		t.Fatalf("launch = %v notify = %q start = %q; want launch off, no notify, about:blank", cfg.LaunchBrowser, cfg.NotifyURL, cfg.StartURL)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("SlogLevel() = %v; want info", cfg.SlogLevel())
	}
}

func TestLoadOverridesAndClamps(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROMIUM_CDP_PORT", "9333")
	t.Setenv("CFINDICATOR_PORT_AUTO_FALLBACK", "false")
	t.Setenv("CFINDICATOR_TAB_URL_FILTER", "example.com")
	t.Setenv("CFINDICATOR_PORT_CANDIDATES", " 127.0.0.1:9001, ,127.0.0.1:9002")
	t.Setenv("CFINDICATOR_EVAL_TIMEOUT_MS", "10")
	t.Setenv("CFINDICATOR_SYNC_INTERVAL_MS", "1")
	t.Setenv("CFINDICATOR_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CDPPort != 9333 || cfg.PortAutoFallback {
		t.Fatalf("port = %d fallback = %v; want 9333 false", cfg.CDPPort, cfg.PortAutoFallback)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[1] != "127.0.0.1:9002" {
		t.Fatalf("PortCandidates = %v; want two trimmed entries", cfg.PortCandidates)
	}
	if cfg.TabURLFilter != "example.com" {
		t.Fatalf("TabURLFilter = %q; want example.com", cfg.TabURLFilter)
	}
	if cfg.EvalTimeoutMS != minEvalTimeoutMS || cfg.SyncIntervalMS != minSyncIntervalMS {
		t.Fatalf("eval = %d sync = %d; want clamped minimums", cfg.EvalTimeoutMS, cfg.SyncIntervalMS)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel() = %v; want debug", cfg.SlogLevel())
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CFINDICATOR_EVAL_TIMEOUT_MS", "soon")
	t.Setenv("CFINDICATOR_PORT_AUTO_FALLBACK", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EvalTimeoutMS != 3000 || !cfg.PortAutoFallback {
		t.Fatalf("eval = %d fallback = %v; want defaults", cfg.EvalTimeoutMS, cfg.PortAutoFallback)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHROMIUM_CDP_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil; want invalid port error")
	}
}
