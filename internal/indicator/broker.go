package indicator

import (
	"sync"
	"sync/atomic"
)

const subscriberBufSize = 256

// AllTabs subscribes to the events of every tab.
const AllTabs = -1

type subscription struct {
	tabID int
	ch    chan Event
}

func (s subscription) wants(evt Event) bool {
	return s.tabID == AllTabs || s.tabID == evt.State.TabID
}

// Broker delivers indicator events to feeds, each watching one tab or all.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int64]subscription
	nextID atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int64]subscription)}
}

// Subscribe registers a feed for tabID, or for every tab with AllTabs. The
// channel is buffered and a full channel drops events.
func (b *Broker) Subscribe(tabID int) (int64, <-chan Event) {
	id := b.nextID.Add(1)
	sub := subscription{tabID: tabID, ch: make(chan Event, subscriberBufSize)}
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

// Unsubscribe removes a feed and closes its channel. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish hands evt to every feed watching its tab. It never blocks.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.wants(evt) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// ClientCount is the number of open feeds.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
