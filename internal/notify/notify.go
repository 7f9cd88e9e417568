package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/cfindicator/internal/indicator"
)

const sendTimeout = 5 * time.Second

// Subscriber is the broker side the forwarder reads from.
type Subscriber interface {
	Subscribe(tabID int) (int64, <-chan indicator.Event)
	Unsubscribe(id int64)
}

// Forwarder posts a plain-text line to an ntfy-style endpoint every time a
// tab's indicator icon changes.
type Forwarder struct {
	endpoint string
	client   *http.Client
}

func NewForwarder(endpoint string, client *http.Client) *Forwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Forwarder{endpoint: endpoint, client: client}
}

// Run forwards icon events until ctx is done. Delivery failures are logged.
func (f *Forwarder) Run(ctx context.Context, sub Subscriber) {
	id, ch := sub.Subscribe(indicator.AllTabs)
	defer sub.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Type != indicator.EventIcon {
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := Send(sendCtx, f.client, f.endpoint, Message(evt)); err != nil {
				slog.Warn("indicator notification failed", "tab_id", evt.State.TabID, "error", err)
			}
			cancel()
		}
	}
}

// Message renders an indicator event as one line.
func Message(evt indicator.Event) string {
	return fmt.Sprintf("tab %d: %s", evt.State.TabID, evt.State.Icon)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
