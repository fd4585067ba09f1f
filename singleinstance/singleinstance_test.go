package singleinstance

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"
)

// reservePort binds an ephemeral port and releases it so the test server can
// use a port that will not clash with other test runs.
func reservePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()
	return port
}

func withPort(t *testing.T, port int) {
	t.Helper()
	os.Setenv("TRAY_TRANSLATE_PORT_START", fmt.Sprintf("%d", port))
	os.Setenv("TRAY_TRANSLATE_PORT_END", fmt.Sprintf("%d", port))
	t.Cleanup(func() {
		os.Unsetenv("TRAY_TRANSLATE_PORT_START")
		os.Unsetenv("TRAY_TRANSLATE_PORT_END")
	})
}

func TestGetPortRange(t *testing.T) {
	os.Unsetenv("TRAY_TRANSLATE_PORT_START")
	os.Unsetenv("TRAY_TRANSLATE_PORT_END")

	start, end := getPortRange()
	if start != defaultPortStart || end != defaultPortEnd {
		t.Errorf("Expected defaults %d-%d, got %d-%d", defaultPortStart, defaultPortEnd, start, end)
	}

	os.Setenv("TRAY_TRANSLATE_PORT_START", "60000")
	os.Setenv("TRAY_TRANSLATE_PORT_END", "50000")
	defer os.Unsetenv("TRAY_TRANSLATE_PORT_START")
	defer os.Unsetenv("TRAY_TRANSLATE_PORT_END")

	start, end = getPortRange()
	if start > end {
		t.Errorf("Expected normalized range, got %d-%d", start, end)
	}
}

func TestServerAnswersPing(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Server start failed: %v", err)
	}
	defer srv.Close()

	port, found := DetectResidentPort(ctx)
	if !found {
		t.Fatal("Expected to detect resident")
	}
	if port != srv.Port() {
		t.Errorf("Expected port %d, got %d", srv.Port(), port)
	}
}

func TestClientDelegatesStdoutRequest(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Server start failed: %v", err)
	}
	defer srv.Close()

	// Resident side: answer the next request with a canned translation.
	go func() {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		defer conn.Close()
		if !conn.Request().OutputToStdout {
			conn.RespondError("expected stdout mode")
			return
		}
		conn.RespondSuccess("bonjour")
	}()

	client := NewClient()
	cctx, ccancel := context.WithTimeout(ctx, 5*time.Second)
	defer ccancel()

	delegated, text, err := client.TryRunOnce(cctx, true)
	if err != nil {
		t.Fatalf("TryRunOnce failed: %v", err)
	}
	if !delegated {
		t.Fatal("Expected delegation to resident")
	}
	if text != "bonjour" {
		t.Errorf("Expected 'bonjour', got %q", text)
	}
}

func TestClientSurfacesResidentError(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Server start failed: %v", err)
	}
	defer srv.Close()

	go func() {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.RespondError("Busy, please retry")
	}()

	client := NewClient()
	delegated, _, err := client.TryRunOnce(ctx, false)
	if !delegated {
		t.Fatal("Expected delegation to resident")
	}
	if err == nil || err.Error() != "Busy, please retry" {
		t.Errorf("Expected resident error, got %v", err)
	}
}

func TestNoResidentMeansNotDelegated(t *testing.T) {
	withPort(t, reservePort(t)) // reserved but nothing listening

	client := NewClient()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, _, err := client.TryRunOnce(ctx, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if delegated {
		t.Error("Expected no delegation without a resident")
	}
}

func TestCloseWithPendingHandshakes(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Server start failed: %v", err)
	}

	// Queue more requests than the incoming buffer holds so the accept loop
	// is mid-send when the server shuts down. Must not panic.
	addr := fmt.Sprintf("127.0.0.1:%d", srv.Port())
	var conns []net.Conn
	for i := 0; i < 10; i++ {
		c, err := net.DialTimeout("tcp", addr, 2*time.Second)
		if err != nil {
			t.Fatalf("Dial %d failed: %v", i, err)
		}
		conns = append(conns, c)
		if _, err := c.Write([]byte("CLIPBOARD\n")); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	time.Sleep(100 * time.Millisecond)
	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
}

func TestNextReturnsErrorAfterClose(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Server start failed: %v", err)
	}
	srv.Close()

	nctx, ncancel := context.WithTimeout(ctx, 2*time.Second)
	defer ncancel()
	if _, err := srv.Next(nctx); err == nil {
		t.Error("Expected error from Next on a closed server")
	}
}

func TestSecondServerFailsToBind(t *testing.T) {
	withPort(t, reservePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewServer()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("First server start failed: %v", err)
	}
	defer first.Close()

	second := NewServer()
	if err := second.Start(ctx); err == nil {
		second.Close()
		t.Error("Expected second server to fail binding the resident port")
	}
}
