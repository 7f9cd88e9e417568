package record

import (
	"maps"
	"time"

	"github.com/dgnsrekt/cfindicator/internal/railgun"
)

// Summary is a read-only copy of a record and its derived predicates.
type Summary struct {
	ID                string            `json:"id"`
	TabID             int               `json:"tab_id"`
	URL               string            `json:"url"`
	ServerIP          string            `json:"server_ip"`
	FromCache         bool              `json:"from_cache"`
	Headers           map[string]string `json:"headers"`
	Railgun           *railgun.Metadata `json:"railgun,omitempty"`
	RayID             string            `json:"ray_id,omitempty"`
	EdgeProvider      bool              `json:"edge_provider"`
	Accelerator       bool              `json:"accelerator"`
	IPv6              bool              `json:"ipv6"`
	TransportKnown    bool              `json:"transport_known"`
	TransportActive   bool              `json:"transport_active"`
	TransportProtocol string            `json:"transport_protocol,omitempty"`
	IconVariant       string            `json:"icon_variant"`
	CompletedAt       time.Time         `json:"completed_at"`
}

// Summarize copies r so the result can leave the event loop.
func (r *Record) Summarize() Summary {
	s := Summary{
		ID:                r.ID,
		TabID:             r.TabID,
		URL:               r.URL,
		ServerIP:          r.ServerIP,
		FromCache:         r.FromCache,
		Headers:           maps.Clone(r.Headers),
		EdgeProvider:      r.ServedByKnownEdgeProvider(),
		Accelerator:       r.ServedByAccelerator(),
		IPv6:              r.IsIPv6(),
		TransportKnown:    r.transportKnown,
		TransportActive:   r.ServedOverModernTransport(),
		TransportProtocol: r.transportProtocol,
		IconVariant:       r.IconVariant(),
		CompletedAt:       r.CompletedAt,
	}
	if r.Railgun != nil {
		meta := *r.Railgun
		meta.ActiveFlagMessages = append([]string(nil), r.Railgun.ActiveFlagMessages...)
		s.Railgun = &meta
	}
	if ray, ok := r.RayID(); ok {
		s.RayID = ray
	}
	return s
}

// LogAttrs returns slog key/value pairs describing the record.
func (r *Record) LogAttrs() []any {
	attrs := []any{
		"record_id", r.ID,
		"tab_id", r.TabID,
		"url", r.URL,
		"server_ip", r.ServerIP,
		"from_cache", r.FromCache,
		"edge_provider", r.ServedByKnownEdgeProvider(),
		"accelerator", r.ServedByAccelerator(),
		"ipv6", r.IsIPv6(),
		"transport_known", r.transportKnown,
		"transport_active", r.ServedOverModernTransport(),
		"icon_variant", r.IconVariant(),
	}
	if ray, ok := r.RayID(); ok {
		attrs = append(attrs, "ray_id", ray)
	}
	if r.Railgun != nil {
		attrs = append(attrs,
			"railgun_id", r.Railgun.ID,
			"railgun_version", r.Railgun.Version,
			"railgun_normal", r.Railgun.NormalMode,
			"railgun_flags", r.Railgun.ActiveFlagMessages,
		)
		if r.Railgun.CompressionPercent != nil {
			attrs = append(attrs, "railgun_compression", *r.Railgun.CompressionPercent)
		}
		if r.Railgun.ElapsedSeconds != nil {
			attrs = append(attrs, "railgun_elapsed", *r.Railgun.ElapsedSeconds)
		}
	}
	return attrs
}
