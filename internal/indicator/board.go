package indicator

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	iconRoot      = "icons/cf-"
	iconExt       = ".png"
	PopupResource = "popup.html"
)

// ErrNoIcon is returned when a popup or show is requested before an icon.
var ErrNoIcon = errors.New("indicator: no icon set for tab")

const (
	EventIcon    = "icon"
	EventPopup   = "popup"
	EventShow    = "show"
	EventCleared = "cleared"
)

// IconPath returns the icon resource for a variant such as "on-spdy-ipv6".
func IconPath(variant string) string {
	return iconRoot + variant + iconExt
}

// State is the visible indicator for one tab.
type State struct {
	TabID     int       `json:"tab_id"`
	Icon      string    `json:"icon"`
	Popup     string    `json:"popup,omitempty"`
	Visible   bool      `json:"visible"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is published on every indicator change.
type Event struct {
	Type  string `json:"type"`
	State State  `json:"state"`
}

// Board holds indicator state per tab and publishes changes to a Broker.
type Board struct {
	mu     sync.RWMutex
	tabs   map[int]*State
	broker *Broker
	now    func() time.Time
}

func NewBoard(broker *Broker) *Board {
	return &Board{
		tabs:   make(map[int]*State),
		broker: broker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetIcon sets the icon for a tab. The indicator stays hidden until Show.
func (b *Board) SetIcon(tabID int, iconPath string) error {
	b.mu.Lock()
	st, ok := b.tabs[tabID]
	if !ok {
		st = &State{TabID: tabID}
		b.tabs[tabID] = st
	}
	st.Icon = iconPath
	st.UpdatedAt = b.now()
	snapshot := *st
	b.mu.Unlock()

	b.publish(EventIcon, snapshot)
	return nil
}

func (b *Board) SetPopup(tabID int, popup string) error {
	return b.update(EventPopup, tabID, func(st *State) { st.Popup = popup })
}

func (b *Board) Show(tabID int) error {
	return b.update(EventShow, tabID, func(st *State) { st.Visible = true })
}

// Clear drops the tab's indicator. It is a no-op for unknown tabs.
func (b *Board) Clear(tabID int) {
	b.mu.Lock()
	st, ok := b.tabs[tabID]
	if ok {
		delete(b.tabs, tabID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	cleared := *st
	cleared.Visible = false
	cleared.UpdatedAt = b.now()
	b.publish(EventCleared, cleared)
}

func (b *Board) Get(tabID int) (State, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.tabs[tabID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// List returns all indicators ordered by tab id.
func (b *Board) List() []State {
	b.mu.RLock()
	out := make([]State, 0, len(b.tabs))
	for _, st := range b.tabs {
		out = append(out, *st)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

func (b *Board) update(kind string, tabID int, fn func(*State)) error {
	b.mu.Lock()
	st, ok := b.tabs[tabID]
	if !ok {
		b.mu.Unlock()
		return ErrNoIcon
	}
	fn(st)
	st.UpdatedAt = b.now()
	snapshot := *st
	b.mu.Unlock()

	b.publish(kind, snapshot)
	return nil
}

func (b *Board) publish(kind string, st State) {
	if b.broker == nil {
		return
	}
	b.broker.Publish(Event{Type: kind, State: st})
	slog.Debug("indicator updated", "event", kind, "tab_id", st.TabID, "icon", st.Icon, "visible", st.Visible)
}
