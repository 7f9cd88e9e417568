package cdp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/cfindicator/internal/record"
)

// bindingName is exposed to every page; the reporter script calls it on DOM-ready.
const bindingName = "__cfindicatorStatus"

const statusReporterJS = `(() => {
  if (window.top !== window) {
    return;
  }
  const report = () => {
    const nav = performance.getEntriesByType('navigation')[0];
    const protocol = nav && nav.nextHopProtocol ? nav.nextHopProtocol : '';
    if (typeof window.__cfindicatorStatus === 'function') {
      window.__cfindicatorStatus(JSON.stringify({protocol: protocol}));
    }
  };
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', report, {once: true});
  } else {
    report();
  }
})();`

const statusQueryJS = `(() => {
  const nav = performance.getEntriesByType('navigation')[0];
  return {protocol: nav && nav.nextHopProtocol ? nav.nextHopProtocol : ''};
})()`

// statusPayload is what both the query script and the reporter script return.
type statusPayload struct {
	Protocol string `json:"protocol"`
}

func (p statusPayload) status() record.TransportStatus {
	return record.TransportStatus{Active: isModernProtocol(p.Protocol), Protocol: p.Protocol}
}

func decodeStatusPayload(raw string) (record.TransportStatus, error) {
	var p statusPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return record.TransportStatus{}, fmt.Errorf("decode status payload: %w", err)
	}
	return p.status(), nil
}

// isModernProtocol reports whether an ALPN id names a multiplexed transport.
func isModernProtocol(protocol string) bool {
	p := strings.ToLower(protocol)
	switch {
	case p == "h2", p == "quic":
		return true
	case strings.HasPrefix(p, "h3"), strings.HasPrefix(p, "spdy"):
		return true
	default:
		return false
	}
}

// isMainFrameDocument relies on Chromium using the page target id as the id
// of the target's main frame.
func isMainFrameDocument(targetID target.ID, ev *network.EventResponseReceived) bool {
	return ev.Type == network.ResourceTypeDocument &&
		ev.Response != nil &&
		string(ev.FrameID) == string(targetID)
}

func detailsFromResponse(tabID int, resp *network.Response) record.Details {
	return record.Details{
		TabID:     tabID,
		URL:       resp.URL,
		ServerIP:  strings.Trim(resp.RemoteIPAddress, "[]"),
		FromCache: resp.FromDiskCache || resp.FromPrefetchCache,
		Headers:   headerList(resp.Headers),
	}
}

// headerList flattens CDP's header map into name order. CDP joins repeated
// headers with newlines, so each line becomes its own entry. Non-string
// values are dropped.
func headerList(headers network.Headers) []record.Header {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]record.Header, 0, len(names))
	for _, name := range names {
		value, ok := headers[name].(string)
		if !ok {
			continue
		}
		for _, line := range strings.Split(value, "\n") {
			out = append(out, record.Header{Name: name, Value: line})
		}
	}
	return out
}
