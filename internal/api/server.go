package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/cfindicator/internal/indicator"
	"github.com/dgnsrekt/cfindicator/internal/record"
	"github.com/dgnsrekt/cfindicator/internal/router"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the tab state owned by the event router.
type Service interface {
	Tabs(ctx context.Context) ([]record.Summary, error)
	Tab(ctx context.Context, tabID int) (record.Summary, bool, error)
	TabReplaced(addedTabID, removedTabID int)
	TabRemoved(tabID int)
}

// Board is the read side of the indicator board.
type Board interface {
	Get(tabID int) (indicator.State, bool)
	List() []indicator.State
}

// PrefStore persists user preferences.
type PrefStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Deps bundles what the HTTP API serves.
type Deps struct {
	Service Service
	Board   Board
	Prefs   PrefStore
	Broker  *indicator.Broker
}

func NewServer(deps Deps) http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(requestLogger)
	mux.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("cfindicator API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(mux, cfg)

	mux.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	mux.Get("/events", SSEHandler(deps.Broker))
	mux.Get("/ws", WSHandler(deps.Broker))

	registerHealthHandlers(api, deps)
	registerTabHandlers(api, deps)
	registerIndicatorHandlers(api, deps)
	registerPrefHandlers(api, deps)

	return mux
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, router.ErrStopped):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
