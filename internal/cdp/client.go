package cdp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/cfindicator/internal/record"
	"github.com/dgnsrekt/cfindicator/internal/router"
)

// topFrameID is the frame id reported for DOM-ready of a tab's main frame.
const topFrameID = 0

var ErrUnknownTab = errors.New("cdp: unknown tab")

// Sink receives the host events observed on attached tabs.
type Sink interface {
	RequestCompleted(d record.Details)
	TabRemoved(tabID int)
	ContentLoaded(tabID, frameID int)
	StatusMessage(senderTabID int, status record.TransportStatus) router.Ack
}

// Client attaches to browser page targets over CDP and turns their network,
// page and runtime events into Sink calls.
type Client struct {
	cdpURL       string
	tabFilter    string
	evalTimeout  time.Duration
	syncInterval time.Duration
	sink         Sink

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	anchorID      target.ID

	tabs   map[target.ID]*TabContext
	ids    *tabIDs
	tabsMu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// TabContext is one attached page target.
type TabContext struct {
	ID     target.ID
	TabID  int
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	url     string
	pending map[network.RequestID]record.Details
}

func NewClient(cdpURL, tabFilter string, evalTimeout, syncInterval time.Duration) *Client {
	return &Client{
		cdpURL:       cdpURL,
		tabFilter:    strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout:  evalTimeout,
		syncInterval: syncInterval,
		tabs:         make(map[target.ID]*TabContext),
		ids:          newTabIDs(),
		done:         make(chan struct{}),
	}
}

// Connect attaches to the browser and starts delivering tab events to sink.
// Cancelling ctx detaches every tab.
func (c *Client) Connect(ctx context.Context, sink Sink) error {
	slog.Info("connecting to chromium", "url", c.cdpURL)
	c.sink = sink

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(ctx, c.cdpURL)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		c.browserCancel()
		c.allocCancel()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	if cc := chromedp.FromContext(c.browserCtx); cc != nil && cc.Target != nil {
		c.anchorID = cc.Target.TargetID
	}

	if err := c.syncTargets(); err != nil {
		c.browserCancel()
		c.allocCancel()
		return err
	}

	c.wg.Add(1)
	go c.syncLoop()

	slog.Info("attached to tabs", "count", c.GetTabCount(), "tab_url_filter", c.tabFilter)
	return nil
}

func (c *Client) syncLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.syncTargets(); err != nil {
				slog.Warn("target sync failed", "error", err)
			}
		case <-c.done:
			return
		}
	}
}

// syncTargets attaches new page targets and reports targets that disappeared.
// The URL filter only applies when a tab is first attached.
func (c *Client) syncTargets() error {
	targets, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	alive := make(map[target.ID]bool, len(targets))
	for _, t := range targets {
		if t.Type != "page" || t.TargetID == c.anchorID {
			continue
		}
		alive[t.TargetID] = true

		c.tabsMu.RLock()
		_, attached := c.tabs[t.TargetID]
		c.tabsMu.RUnlock()
		if attached {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("failed to attach to tab", "target_id", t.TargetID, "url", truncateURL(t.URL), "error", err)
		}
	}

	c.tabsMu.Lock()
	var gone []*TabContext
	for id, tab := range c.tabs {
		if !alive[id] {
			gone = append(gone, tab)
			delete(c.tabs, id)
		}
	}
	c.tabsMu.Unlock()

	for _, tab := range gone {
		tab.cancel()
		c.ids.release(tab.ID)
		slog.Info("tab closed", "tab_id", tab.TabID, "target_id", tab.ID, "url", truncateURL(tab.currentURL()))
		c.sink.TabRemoved(tab.TabID)
	}
	return nil
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{
		ID:      targetID,
		TabID:   c.ids.assign(targetID),
		url:     url,
		ctx:     tabCtx,
		cancel:  tabCancel,
		pending: make(map[network.RequestID]record.Details),
	}

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		page.Enable(),
		runtime.Enable(),
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(statusReporterJS).Do(ctx)
			return err
		}),
	); err != nil {
		tabCancel()
		c.ids.release(targetID)
		return fmt.Errorf("failed to enable network/page/runtime domains: %w", err)
	}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabsMu.Unlock()

	chromedp.ListenTarget(tabCtx, c.createEventHandler(tab))
	slog.Info("attached to tab", "tab_id", tab.TabID, "target_id", targetID, "url", truncateURL(url))
	return nil
}

func (c *Client) createEventHandler(tab *TabContext) func(ev interface{}) {
	return func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if !isMainFrameDocument(tab.ID, e) {
				return
			}
			tab.mu.Lock()
			tab.pending[e.RequestID] = detailsFromResponse(tab.TabID, e.Response)
			tab.mu.Unlock()
		case *network.EventLoadingFinished:
			if d, ok := tab.takePending(e.RequestID); ok {
				c.sink.RequestCompleted(d)
			}
		case *network.EventLoadingFailed:
			tab.takePending(e.RequestID)
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				tab.setURL(e.Frame.URL)
			}
		case *page.EventDomContentEventFired:
			c.sink.ContentLoaded(tab.TabID, topFrameID)
		case *runtime.EventBindingCalled:
			if e.Name != bindingName {
				return
			}
			status, err := decodeStatusPayload(e.Payload)
			if err != nil {
				slog.Debug("ignoring malformed status report", "tab_id", tab.TabID, "error", err)
				return
			}
			_ = c.sink.StatusMessage(tab.TabID, status)
		}
	}
}

// QueryPageContext evaluates the status query script in the tab. Failures and
// timeouts are logged and onResponse is not called.
func (c *Client) QueryPageContext(tabID int, q router.StatusQuery, onResponse func(record.TransportStatus)) error {
	if q.Request != router.StatusRequestConnectionInfo {
		return fmt.Errorf("unsupported page request %q", q.Request)
	}
	tab, ok := c.tabByID(tabID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTab, tabID)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(tab.ctx, c.evalTimeout)
		defer cancel()

		var out statusPayload
		if err := chromedp.Run(ctx, chromedp.Evaluate(statusQueryJS, &out)); err != nil {
			slog.Debug("page status query got no reply", "tab_id", tabID, "error", err)
			return
		}
		onResponse(out.status())
	}()
	return nil
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.browserCancel != nil {
			c.browserCancel()
		}
		if c.allocCancel != nil {
			c.allocCancel()
		}
	})
	c.wg.Wait()

	c.tabsMu.Lock()
	c.tabs = make(map[target.ID]*TabContext)
	c.tabsMu.Unlock()

	slog.Info("cdp client closed")
	return nil
}

func (c *Client) GetTabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

func (c *Client) tabByID(tabID int) (*TabContext, bool) {
	targetID, ok := c.ids.target(tabID)
	if !ok {
		return nil, false
	}
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	tab, ok := c.tabs[targetID]
	return tab, ok
}

func (c *Client) matchesTabURL(url string) bool {
	if c.tabFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), c.tabFilter)
}

func (t *TabContext) takePending(id network.RequestID) (record.Details, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return d, ok
}

func (t *TabContext) setURL(url string) {
	t.mu.Lock()
	t.url = url
	t.mu.Unlock()
}

func (t *TabContext) currentURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
