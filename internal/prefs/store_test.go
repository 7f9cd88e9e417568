package prefs

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, path string) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}

func TestGetUnsetKey(t *testing.T) {
	store, ctx := newTestStore(t, filepath.Join(t.TempDir(), "prefs.db"))

	value, ok, err := store.Get(ctx, DebugLoggingKey)
	if err != nil {
		t.Fatalf("Get() error = %v; want nil", err)
	}
	if ok || value != "" {
		t.Fatalf("Get() = %q, %v; want empty, false", value, ok)
	}
}

func TestSetAndOverwrite(t *testing.T) {
	store, ctx := newTestStore(t, filepath.Join(t.TempDir(), "prefs.db"))

	if err := store.Set(ctx, DebugLoggingKey, "yes"); err != nil {
		t.Fatalf("Set() = %v; want nil", err)
	}
	if err := store.Set(ctx, DebugLoggingKey, "no"); err != nil {
		t.Fatalf("second Set() = %v; want nil", err)
	}

	value, ok, err := store.Get(ctx, DebugLoggingKey)
	if err != nil {
		t.Fatalf("Get() error = %v; want nil", err)
	}
	if !ok || value != "no" {
		t.Fatalf("Get() = %q, %v; want no, true", value, ok)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")
	ctx := context.Background()

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := first.Set(ctx, DebugLoggingKey, "yes"); err != nil {
		t.Fatalf("Set() = %v; want nil", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() = %v; want nil", err)
	}

	second, _ := newTestStore(t, path)
	value, ok, err := second.Get(ctx, DebugLoggingKey)
	if err != nil || !ok || value != "yes" {
		t.Fatalf("Get() after reopen = %q, %v, %v; want yes, true, nil", value, ok, err)
	}
}
