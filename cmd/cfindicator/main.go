package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/cfindicator/internal/api"
	"github.com/dgnsrekt/cfindicator/internal/browser"
	"github.com/dgnsrekt/cfindicator/internal/cdp"
	"github.com/dgnsrekt/cfindicator/internal/config"
	"github.com/dgnsrekt/cfindicator/internal/debuglog"
	"github.com/dgnsrekt/cfindicator/internal/indicator"
	"github.com/dgnsrekt/cfindicator/internal/netutil"
	"github.com/dgnsrekt/cfindicator/internal/notify"
	"github.com/dgnsrekt/cfindicator/internal/prefs"
	"github.com/dgnsrekt/cfindicator/internal/registry"
	"github.com/dgnsrekt/cfindicator/internal/router"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.SlogLevel(), cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("cfindicator config loaded",
		"cdp_url", cfg.GetCDPURL(),
		"bind_addr", cfg.BindAddr,
		"tab_url_filter", cfg.TabURLFilter,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"sync_interval_ms", cfg.SyncIntervalMS,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"prefs_db", cfg.PrefsDB,
		"launch_browser", cfg.LaunchBrowser,
		"notify_enabled", cfg.NotifyURL != "",
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := prefs.Open(ctx, cfg.PrefsDB)
	if err != nil {
		slog.Error("failed to open prefs store", "path", cfg.PrefsDB, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Debug("prefs store close failed", "error", err)
		}
	}()

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	broker := indicator.NewBroker()
	board := indicator.NewBoard(broker)
	tracer := debuglog.New(store, slog.Default())

	cdpClient := cdp.NewClient(cfg.GetCDPURL(), cfg.TabURLFilter, cfg.EvalTimeout(), cfg.SyncInterval())
	rtr := router.New(registry.New(), cdpClient, board, tracer)

	routerDone := make(chan struct{})
	go func() {
		defer close(routerDone)
		if err := rtr.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("router exited", "error", err)
		}
	}()

	if err := cdpClient.Connect(ctx, rtr); err != nil {
		slog.Error("failed to connect to chromium", "cdp_url", cfg.GetCDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cdpClient.Close(); err != nil {
			slog.Debug("cdp client close failed", "error", err)
		}
	}()

	if cfg.NotifyURL != "" {
		go notify.NewForwarder(cfg.NotifyURL, &http.Client{Timeout: 10 * time.Second}).Run(ctx, broker)
	}

	h := api.NewServer(api.Deps{Service: rtr, Board: board, Prefs: store, Broker: broker})
	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("cfindicator listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("cfindicator server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("cfindicator shutdown failed", "error", err)
	}
	cancel()
	<-routerDone
}

func setupLogger(level slog.Level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	return nil
}
