package router

import (
	"log/slog"

	"github.com/dgnsrekt/cfindicator/internal/indicator"
	"github.com/dgnsrekt/cfindicator/internal/record"
)

// onRequestCompleted starts a new record for the tab. The previous page's
// indicator is cleared so it never outlives its navigation.
func (r *Router) onRequestCompleted(d record.Details) {
	rec := record.New(d)
	if _, existed := r.registry.Lookup(rec.TabID); existed {
		r.indicator.Clear(rec.TabID)
	}
	r.registry.Put(rec)
	slog.Debug("main frame request completed", "tab_id", rec.TabID, "record_id", rec.ID)
	r.trace("request record", rec)
}

func (r *Router) onTabReplaced(addedTabID, removedTabID int) {
	if !r.registry.Replace(addedTabID, removedTabID) {
		return
	}
	r.indicator.Clear(removedTabID)
	r.indicator.Clear(addedTabID)

	rec, _ := r.registry.Lookup(addedTabID)
	if rec.TransportKnown() {
		r.publish(rec)
	}
}

func (r *Router) onTabRemoved(tabID int) {
	if !r.registry.Remove(tabID) {
		slog.Debug("removed tab was not tracked", "tab_id", tabID)
		return
	}
	slog.Debug("tab removed", "tab_id", tabID)
	r.indicator.Clear(tabID)
}

func (r *Router) onContentLoaded(tabID int) {
	rec, ok := r.registry.Lookup(tabID)
	if !ok {
		slog.Debug("content loaded for untracked tab", "tab_id", tabID)
		return
	}
	if rec.TransportKnown() {
		r.publish(rec)
		return
	}
	r.queryTransport(rec)
}

// queryTransport asks the page for its status. The reply is applied only if
// rec is still the current record for its tab when the reply arrives.
func (r *Router) queryTransport(rec *record.Record) {
	if r.pages == nil {
		slog.Warn("no page querier configured", "tab_id", rec.TabID)
		return
	}
	q := StatusQuery{Request: StatusRequestConnectionInfo}
	err := r.pages.QueryPageContext(rec.TabID, q, func(status record.TransportStatus) {
		r.enqueue("status_reply", func() { r.onQueryReply(rec, status) })
	})
	if err != nil {
		slog.Warn("page status query failed", "tab_id", rec.TabID, "error", err)
	}
}

func (r *Router) onQueryReply(rec *record.Record, status record.TransportStatus) {
	current, ok := r.registry.Lookup(rec.TabID)
	if !ok || current.ID != rec.ID {
		slog.Debug("discarding stale status reply", "tab_id", rec.TabID, "record_id", rec.ID)
		return
	}
	r.applyStatus(current, status)
}

func (r *Router) onStatusMessage(tabID int, status record.TransportStatus) {
	rec, ok := r.registry.Lookup(tabID)
	if !ok {
		slog.Debug("status message for untracked tab", "tab_id", tabID)
		return
	}
	r.applyStatus(rec, status)
}

func (r *Router) applyStatus(rec *record.Record, status record.TransportStatus) {
	if !rec.SetTransportStatus(status) {
		return
	}
	r.trace("transport status known", rec)
	r.publish(rec)
}

// publish sets icon, popup and visibility. Failures are logged and do not stop
// the remaining calls except when the icon itself could not be set.
func (r *Router) publish(rec *record.Record) {
	icon := indicator.IconPath(rec.IconVariant())
	if err := r.indicator.SetIcon(rec.TabID, icon); err != nil {
		slog.Warn("set indicator icon failed", "tab_id", rec.TabID, "icon", icon, "error", err)
		return
	}
	if err := r.indicator.SetPopup(rec.TabID, indicator.PopupResource); err != nil {
		slog.Warn("set indicator popup failed", "tab_id", rec.TabID, "error", err)
	}
	if err := r.indicator.Show(rec.TabID); err != nil {
		slog.Warn("show indicator failed", "tab_id", rec.TabID, "error", err)
	}
}

func (r *Router) trace(msg string, rec *record.Record) {
	if r.tracer == nil {
		return
	}
	r.tracer.Trace(msg, rec.LogAttrs()...)
}
