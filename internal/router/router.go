package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgnsrekt/cfindicator/internal/record"
	"github.com/dgnsrekt/cfindicator/internal/registry"
)

const eventQueueSize = 1024

// ErrStopped is returned by reads issued after the event loop exited.
var ErrStopped = errors.New("router: event loop stopped")

// StatusRequestConnectionInfo asks a page for its transport status.
const StatusRequestConnectionInfo = "getConnectionInfo"

// StatusQuery is the payload sent to a page context.
type StatusQuery struct {
	Request string `json:"request"`
}

// Ack is the empty acknowledgement returned for every inbound status message.
type Ack struct{}

// PageQuerier sends a query to a tab's page context. onResponse may never be
// called, and may be called from any goroutine.
type PageQuerier interface {
	QueryPageContext(tabID int, q StatusQuery, onResponse func(record.TransportStatus)) error
}

// Indicator is the per-tab visual affordance.
type Indicator interface {
	SetIcon(tabID int, iconPath string) error
	SetPopup(tabID int, popup string) error
	Show(tabID int) error
	Clear(tabID int)
}

// Tracer receives record traces.
type Tracer interface {
	Trace(msg string, args ...any)
}

// Router dispatches host events into the registry. All handlers run on the
// goroutine that calls Run, so registry access is serialized without locks.
type Router struct {
	registry  *registry.Registry
	pages     PageQuerier
	indicator Indicator
	tracer    Tracer

	events chan func()
	done   chan struct{}
}

func New(reg *registry.Registry, pages PageQuerier, ind Indicator, tracer Tracer) *Router {
	return &Router{
		registry:  reg,
		pages:     pages,
		indicator: ind,
		tracer:    tracer,
		events:    make(chan func(), eventQueueSize),
		done:      make(chan struct{}),
	}
}

// Run executes queued handlers until ctx is done. It must be called once.
func (r *Router) Run(ctx context.Context) error {
	defer close(r.done)
	slog.Info("router started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("router stopped")
			return ctx.Err()
		case fn := <-r.events:
			fn()
		}
	}
}

func (r *Router) post(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- fn:
		return true
	case <-r.done:
		return false
	}
}

func (r *Router) enqueue(event string, fn func()) {
	if !r.post(fn) {
		slog.Debug("router event dropped after stop", "event", event)
	}
}

// call runs fn on the loop and waits for it to finish.
func (r *Router) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !r.post(func() {
		fn()
		close(finished)
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) RequestCompleted(d record.Details) {
	r.enqueue("request_completed", func() { r.onRequestCompleted(d) })
}

func (r *Router) TabReplaced(addedTabID, removedTabID int) {
	r.enqueue("tab_replaced", func() { r.onTabReplaced(addedTabID, removedTabID) })
}

func (r *Router) TabRemoved(tabID int) {
	r.enqueue("tab_removed", func() { r.onTabRemoved(tabID) })
}

// ContentLoaded handles DOM-ready; events for frames other than 0 are ignored.
func (r *Router) ContentLoaded(tabID, frameID int) {
	if frameID != 0 {
		return
	}
	r.enqueue("content_loaded", func() { r.onContentLoaded(tabID) })
}

// StatusMessage applies a status reported by a page and always acknowledges,
// whether or not the sender tab is tracked.
func (r *Router) StatusMessage(senderTabID int, status record.TransportStatus) Ack {
	r.enqueue("status_message", func() { r.onStatusMessage(senderTabID, status) })
	return Ack{}
}

// Tabs returns summaries of all tracked tabs ordered by tab id.
func (r *Router) Tabs(ctx context.Context) ([]record.Summary, error) {
	var out []record.Summary
	err := r.call(ctx, func() {
		ids := r.registry.TabIDs()
		out = make([]record.Summary, 0, len(ids))
		for _, id := range ids {
			rec, _ := r.registry.Lookup(id)
			out = append(out, rec.Summarize())
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Tab returns the summary of one tab. A false result is not an error.
func (r *Router) Tab(ctx context.Context, tabID int) (record.Summary, bool, error) {
	var (
		out   record.Summary
		found bool
	)
	err := r.call(ctx, func() {
		if rec, ok := r.registry.Lookup(tabID); ok {
			out, found = rec.Summarize(), true
		}
	})
	return out, found, err
}
