package record

import (
	"strings"
	"time"

	"github.com/dgnsrekt/cfindicator/internal/railgun"
	"github.com/google/uuid"
)

const (
	HeaderServer = "SERVER"
	HeaderCFRay  = "CF-RAY"

	// KnownEdgeServer is compared case-sensitively against the Server header.
	KnownEdgeServer = "cloudflare-nginx"
)

// Header is one response header as reported by the browser, in wire order.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Details describes a completed main-frame request.
type Details struct {
	TabID     int
	URL       string
	ServerIP  string
	FromCache bool
	Headers   []Header
}

// TransportStatus is the page's report on the protocol used for its document.
type TransportStatus struct {
	Active   bool   `json:"active"`
	Protocol string `json:"protocol,omitempty"`
}

// Record is the observed state of one top-level navigation in a tab.
// URL, ServerIP, FromCache and Headers are fixed at construction.
type Record struct {
	ID          string
	TabID       int
	URL         string
	ServerIP    string
	FromCache   bool
	Headers     map[string]string
	Railgun     *railgun.Metadata
	CompletedAt time.Time

	transportKnown    bool
	transportActive   bool
	transportProtocol string
}

// New builds a record from completion details. Header names are uppercased and
// later duplicates overwrite earlier ones.
func New(d Details) *Record {
	r := &Record{
		ID:          uuid.NewString(),
		TabID:       d.TabID,
		URL:         d.URL,
		ServerIP:    d.ServerIP,
		FromCache:   d.FromCache,
		Headers:     make(map[string]string, len(d.Headers)),
		CompletedAt: time.Now().UTC(),
	}
	for _, h := range d.Headers {
		r.Headers[strings.ToUpper(h.Name)] = h.Value
	}
	if raw, ok := r.Headers[railgun.HeaderName]; ok {
		if meta, ok := railgun.Decode(raw); ok {
			r.Railgun = &meta
		}
	}
	return r
}

func (r *Record) ServedByKnownEdgeProvider() bool {
	return r.Headers[HeaderServer] == KnownEdgeServer
}

func (r *Record) ServedByAccelerator() bool {
	_, ok := r.Headers[railgun.HeaderName]
	return ok
}

// ServedOverModernTransport is false until the transport status is known.
func (r *Record) ServedOverModernTransport() bool {
	return r.transportKnown && r.transportActive
}

func (r *Record) IsIPv6() bool {
	return strings.Contains(r.ServerIP, ":")
}

func (r *Record) RayID() (string, bool) {
	v, ok := r.Headers[HeaderCFRay]
	return v, ok
}

func (r *Record) TransportKnown() bool {
	return r.transportKnown
}

func (r *Record) TransportProtocol() string {
	return r.transportProtocol
}

// SetTransportStatus moves the record from unknown to known. It reports true
// only on that transition; once known, later reports are ignored.
func (r *Record) SetTransportStatus(s TransportStatus) bool {
	if r.transportKnown {
		return false
	}
	r.transportKnown = true
	r.transportActive = s.Active
	r.transportProtocol = s.Protocol
	return true
}

// IconVariant joins the feature tokens in fixed order: on|off, spdy, ipv6, rg.
func (r *Record) IconVariant() string {
	tokens := make([]string, 0, 4)
	if r.ServedByKnownEdgeProvider() {
		tokens = append(tokens, "on")
	} else {
		tokens = append(tokens, "off")
	}
	if r.ServedOverModernTransport() {
		tokens = append(tokens, "spdy")
	}
	if r.IsIPv6() {
		tokens = append(tokens, "ipv6")
	}
	if r.ServedByAccelerator() {
		tokens = append(tokens, "rg")
	}
	return strings.Join(tokens, "-")
}
