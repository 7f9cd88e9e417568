package debuglog

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgnsrekt/cfindicator/internal/prefs"
)

const readTimeout = time.Second

// PrefReader reads a persisted preference.
type PrefReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Tracer writes record traces when the debug_logging preference is "yes".
// The preference is read on every call so toggling it takes effect at once.
type Tracer struct {
	prefs  PrefReader
	logger *slog.Logger
}

func New(p PrefReader, logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{prefs: p, logger: logger}
}

func (t *Tracer) Enabled() bool {
	if t == nil || t.prefs == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	value, ok, err := t.prefs.Get(ctx, prefs.DebugLoggingKey)
	if err != nil {
		slog.Debug("debug preference read failed", "error", err)
		return false
	}
	return ok && value == "yes"
}

func (t *Tracer) Trace(msg string, args ...any) {
	if !t.Enabled() {
		return
	}
	t.logger.Info(msg, args...)
}
