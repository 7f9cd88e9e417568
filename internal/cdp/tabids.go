package cdp

import (
	"sync"

	"github.com/chromedp/cdproto/target"
)

// tabIDs hands out small integer tab ids for CDP target ids. Ids are never
// reused within a process.
type tabIDs struct {
	mu       sync.Mutex
	next     int
	byTarget map[target.ID]int
	byTab    map[int]target.ID
}

func newTabIDs() *tabIDs {
	return &tabIDs{
		next:     1,
		byTarget: make(map[target.ID]int),
		byTab:    make(map[int]target.ID),
	}
}

func (t *tabIDs) assign(id target.ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tabID, ok := t.byTarget[id]; ok {
		return tabID
	}
	tabID := t.next
	t.next++
	t.byTarget[id] = tabID
	t.byTab[tabID] = id
	return tabID
}

func (t *tabIDs) target(tabID int) (target.ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byTab[tabID]
	return id, ok
}

func (t *tabIDs) release(id target.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tabID, ok := t.byTarget[id]; ok {
		delete(t.byTarget, id)
		delete(t.byTab, tabID)
	}
}
