package registry

import (
	"log/slog"
	"sort"

	"github.com/dgnsrekt/cfindicator/internal/record"
)

// Registry maps tab ids to the current request record for that tab.
// It is not safe for concurrent use; the router's event loop owns it.
type Registry struct {
	tabs map[int]*record.Record
}

func New() *Registry {
	return &Registry{tabs: make(map[int]*record.Record)}
}

// Put makes rec the current record for rec.TabID, replacing any previous one.
func (r *Registry) Put(rec *record.Record) {
	r.tabs[rec.TabID] = rec
}

// Replace moves the record of removedTabID to addedTabID. An existing entry
// for addedTabID is overwritten. It reports false when removedTabID is untracked.
func (r *Registry) Replace(addedTabID, removedTabID int) bool {
	rec, ok := r.tabs[removedTabID]
	if !ok {
		slog.Warn("tab replaced but no record tracked", "added_tab_id", addedTabID, "removed_tab_id", removedTabID)
		return false
	}
	delete(r.tabs, removedTabID)
	rec.TabID = addedTabID
	r.tabs[addedTabID] = rec
	return true
}

// Remove drops the entry for tabID and reports whether one existed.
func (r *Registry) Remove(tabID int) bool {
	if _, ok := r.tabs[tabID]; !ok {
		return false
	}
	delete(r.tabs, tabID)
	return true
}

// Lookup returns the current record for tabID. A miss means no navigation has
// been observed for the tab yet.
func (r *Registry) Lookup(tabID int) (*record.Record, bool) {
	rec, ok := r.tabs[tabID]
	return rec, ok
}

func (r *Registry) Len() int {
	return len(r.tabs)
}

// TabIDs returns the tracked tab ids in ascending order.
func (r *Registry) TabIDs() []int {
	ids := make([]int, 0, len(r.tabs))
	for id := range r.tabs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
