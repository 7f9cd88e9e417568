package browser

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9333, ProfileDir: "/tmp/profile"})
	args := l.args()

	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
	} {
		found := false
		for _, a := range args {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("args = %v; missing %q", args, want)
		}
	}
	if last := args[len(args)-1]; last != "about:blank" {
		t.Fatalf("start url = %q; want about:blank default", last)
	}
}

func TestIsPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if !isPortInUse("127.0.0.1", port) {
		t.Fatalf("isPortInUse(%d) = false; want true while listening", port)
	}
	_ = ln.Close()
	if isPortInUse("127.0.0.1", port) {
		t.Fatalf("isPortInUse(%d) = true; want false after close", port)
	}
}

func TestLaunchSkipsWhenPortBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, ProfileDir: t.TempDir()})
	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v; want nil when port is busy", err)
	}
	if l.Running() {
		t.Fatal("Running() = true; want false when launch was skipped")
	}
	l.Stop()
	if !strings.HasSuffix(l.versionURL(), "/json/version") {
		t.Fatalf("versionURL() = %q", l.versionURL())
	}
}
