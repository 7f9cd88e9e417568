package record

import (
	"testing"
)

func TestNewBuildsUppercaseHeaderMap(t *testing.T) {
	r := New(Details{
		TabID: 3,
		Headers: []Header{
			{Name: "Server", Value: "a"},
			{Name: "SERVER", Value: "b"},
			{Name: "content-type", Value: "text/html"},
		},
	})

	if got := r.Headers["SERVER"]; got != "b" {
		t.Fatalf("Headers[SERVER] = %q; want %q", got, "b")
	}
	if got := r.Headers["CONTENT-TYPE"]; got != "text/html" {
		t.Fatalf("Headers[CONTENT-TYPE] = %q; want %q", got, "text/html")
	}
	if _, ok := r.Headers["Server"]; ok {
		t.Fatal("expected mixed-case key to be absent")
	}
	if r.ID == "" {
		t.Fatal("expected record id to be assigned")
	}
}

func TestNewDecodesRailgunHeader(t *testing.T) {
	r := New(Details{Headers: []Header{{Name: "Cf-Railgun", Value: "abc 5 normal 5.0.1"}}})
	if r.Railgun == nil {
		t.Fatal("Railgun = nil; want decoded metadata")
	}
	if r.Railgun.ID != "abc" || r.Railgun.FlagsBitset != 5 {
		t.Fatalf("Railgun = %+v; want id abc, bitset 5", *r.Railgun)
	}
	if !r.ServedByAccelerator() {
		t.Fatal("ServedByAccelerator() = false; want true")
	}

	plain := New(Details{})
	if plain.Railgun != nil {
		t.Fatalf("Railgun = %+v; want nil", *plain.Railgun)
	}
	if plain.ServedByAccelerator() {
		t.Fatal("ServedByAccelerator() = true; want false")
	}
}

func TestServedByKnownEdgeProvider(t *testing.T) {
	tests := []struct {
		server string
		want   bool
	}{
		{server: "cloudflare-nginx", want: true},
		{server: "Cloudflare-Nginx", want: false},
		{server: "cloudflare", want: false},
		{server: "nginx", want: false},
	}
	for _, tt := range tests {
		r := New(Details{Headers: []Header{{Name: "server", Value: tt.server}}})
		if got := r.ServedByKnownEdgeProvider(); got != tt.want {
			t.Fatalf("ServedByKnownEdgeProvider() with %q = %v; want %v", tt.server, got, tt.want)
		}
	}
}

func TestIsIPv6AndRayID(t *testing.T) {
	r := New(Details{ServerIP: "2606:4700::6810:85e5", Headers: []Header{{Name: "cf-ray", Value: "8a1b2c3d4e5f-SJC"}}})
	if !r.IsIPv6() {
		t.Fatal("IsIPv6() = false; want true")
	}
	ray, ok := r.RayID()
	if !ok || ray != "8a1b2c3d4e5f-SJC" {
		t.Fatalf("RayID() = %q, %v; want 8a1b2c3d4e5f-SJC, true", ray, ok)
	}

	v4 := New(Details{ServerIP: "104.16.133.229"})
	if v4.IsIPv6() {
		t.Fatal("IsIPv6() = true; want false")
	}
	if _, ok := v4.RayID(); ok {
		t.Fatal("RayID() ok = true; want false")
	}
}

func TestIconVariant(t *testing.T) {
	tests := []struct {
		name        string
		edge        bool
		transport   bool
		ipv6        bool
		accelerator bool
		want        string
	}{
		{name: "none", want: "off"},
		{name: "edge", edge: true, want: "on"},
		{name: "transport_only", transport: true, want: "off-spdy"},
		{name: "ipv6_only", ipv6: true, want: "off-ipv6"},
		{name: "accelerator_only", accelerator: true, want: "off-rg"},
		{name: "edge_ipv6", edge: true, ipv6: true, want: "on-ipv6"},
		{name: "edge_transport_rg", edge: true, transport: true, accelerator: true, want: "on-spdy-rg"},
		{name: "all", edge: true, transport: true, ipv6: true, accelerator: true, want: "on-spdy-ipv6-rg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Details{ServerIP: "198.51.100.7"}
			if tt.ipv6 {
				d.ServerIP = "2001:db8::1"
			}
			if tt.edge {
				d.Headers = append(d.Headers, Header{Name: "Server", Value: KnownEdgeServer})
			}
			if tt.accelerator {
				d.Headers = append(d.Headers, Header{Name: "CF-Railgun", Value: "id 0 normal 1.0"})
			}
			r := New(d)
			if tt.transport {
				r.SetTransportStatus(TransportStatus{Active: true, Protocol: "h2"})
			}

			got := r.IconVariant()
			if got != tt.want {
				t.Fatalf("IconVariant() = %q; want %q", got, tt.want)
			}
			if again := r.IconVariant(); again != got {
				t.Fatalf("IconVariant() second call = %q; want %q", again, got)
			}
		})
	}
}

func TestSetTransportStatusTransitionsOnce(t *testing.T) {
	r := New(Details{})
	if r.TransportKnown() {
		t.Fatal("TransportKnown() = true before any report")
	}
	if r.ServedOverModernTransport() {
		t.Fatal("ServedOverModernTransport() = true before any report")
	}

	if !r.SetTransportStatus(TransportStatus{Active: true, Protocol: "h2"}) {
		t.Fatal("first SetTransportStatus() = false; want true")
	}
	if !r.TransportKnown() || !r.ServedOverModernTransport() {
		t.Fatal("expected known, active transport after first report")
	}
	if r.SetTransportStatus(TransportStatus{Active: false}) {
		t.Fatal("second SetTransportStatus() = true; want false")
	}
	if !r.ServedOverModernTransport() {
		t.Fatal("known transport status changed after second report")
	}
	if r.TransportProtocol() != "h2" {
		t.Fatalf("TransportProtocol() = %q; want h2", r.TransportProtocol())
	}
}

func TestSummarizeCopiesState(t *testing.T) {
	r := New(Details{
		TabID:    9,
		URL:      "https://example.com/",
		ServerIP: "2001:db8::2",
		Headers: []Header{
			{Name: "Server", Value: KnownEdgeServer},
			{Name: "CF-RAY", Value: "ray-1"},
			{Name: "CF-Railgun", Value: "id 1 normal 1.0"},
		},
	})
	s := r.Summarize()
	if s.TabID != 9 || s.IconVariant != "on-ipv6-rg" || s.RayID != "ray-1" {
		t.Fatalf("Summarize() = %+v; want tab 9, on-ipv6-rg, ray-1", s)
	}
	s.Headers["SERVER"] = "mutated"
	s.Railgun.ActiveFlagMessages[0] = "mutated"
	if r.Headers["SERVER"] != KnownEdgeServer {
		t.Fatal("mutating summary headers changed the record")
	}
	if r.Railgun.ActiveFlagMessages[0] != "map.file used to change IP" {
		t.Fatal("mutating summary railgun flags changed the record")
	}
}
