package nutclient

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/leekd123/nutify/internal/topology"
)

// startFakeUpsd serves canned responses for upsd commands on a loopback port.
func startFakeUpsd(t *testing.T, responses map[string][]string) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					command := strings.TrimSpace(scanner.Text())
					if command == "LOGOUT" {
						conn.Write([]byte("OK Goodbye\n"))
						return
					}
					lines, ok := responses[command]
					if !ok {
						conn.Write([]byte("ERR UNKNOWN-COMMAND\n"))
						continue
					}
					for _, line := range lines {
						conn.Write([]byte(line + "\n"))
					}
				}
			}(conn)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return New("127.0.0.1", port).WithTimeout(2 * time.Second)
}

func TestGetVar(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"GET VAR ups ups.status": {`VAR ups ups.status "OL"`},
	})

	status, err := client.Status(context.Background(), "ups")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != "OL" {
		t.Errorf("status = %q, want OL", status)
	}
}

func TestGetVarMultiTokenValue(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"GET VAR ups ups.status": {`VAR ups ups.status "OB LB"`},
	})

	status, err := client.Status(context.Background(), "ups")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != "OB LB" {
		t.Errorf("status = %q, want \"OB LB\"", status)
	}
}

func TestGetVarDriverNotConnected(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"GET VAR ups ups.status": {"ERR DRIVER-NOT-CONNECTED"},
	})

	_, err := client.Status(context.Background(), "ups")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsDriverNotConnected(err) {
		t.Errorf("IsDriverNotConnected = false for %v", err)
	}
	if IsDataStale(err) {
		t.Errorf("IsDataStale = true for %v", err)
	}
}

func TestGetVarDataStale(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"GET VAR ups ups.status": {"ERR DATA-STALE"},
	})

	_, err := client.Status(context.Background(), "ups")
	if !IsDataStale(err) {
		t.Errorf("IsDataStale = false for %v", err)
	}
}

func TestGetVarUnknownUPS(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"GET VAR ghost ups.status": {"ERR UNKNOWN-UPS"},
	})

	_, err := client.GetVar(context.Background(), "ghost", "ups.status")
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Code != "UNKNOWN-UPS" {
		t.Errorf("Expected ProtocolError UNKNOWN-UPS, got %v", err)
	}
}

func TestListUPS(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"LIST UPS": {
			"BEGIN LIST UPS",
			`UPS ups "Local UPS"`,
			`UPS backup "Rack UPS"`,
			"END LIST UPS",
		},
	})

	list, err := client.ListUPS(context.Background())
	if err != nil {
		t.Fatalf("ListUPS failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 UPSes, got %d: %v", len(list), list)
	}
	if list["ups"] != "Local UPS" {
		t.Errorf(`list["ups"] = %q, want "Local UPS"`, list["ups"])
	}
	if list["backup"] != "Rack UPS" {
		t.Errorf(`list["backup"] = %q, want "Rack UPS"`, list["backup"])
	}
}

func TestVariables(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"LIST VAR ups": {
			"BEGIN LIST VAR ups",
			`VAR ups ups.status "OL"`,
			`VAR ups battery.charge "100"`,
			`VAR ups ups.load "23.5"`,
			"END LIST VAR ups",
		},
	})

	vars, err := client.Variables(context.Background(), "ups")
	if err != nil {
		t.Fatalf("Variables failed: %v", err)
	}
	if vars["ups.status"] != "OL" {
		t.Errorf("ups.status = %q, want OL", vars["ups.status"])
	}
	if vars["battery.charge"] != "100" {
		t.Errorf("battery.charge = %q, want 100", vars["battery.charge"])
	}
}

func TestListError(t *testing.T) {
	client := startFakeUpsd(t, map[string][]string{
		"LIST VAR ghost": {"ERR UNKNOWN-UPS"},
	})

	_, err := client.Variables(context.Background(), "ghost")
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Errorf("Expected ProtocolError, got %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	// Grab a port that nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client := New("127.0.0.1", port).WithTimeout(500 * time.Millisecond)
	if _, err := client.Status(context.Background(), "ups"); err == nil {
		t.Error("Expected connect error")
	}
}

func TestClassifyCommError(t *testing.T) {
	notConnected := &ProtocolError{Code: "DRIVER-NOT-CONNECTED"}
	stale := &ProtocolError{Code: "DATA-STALE"}
	generic := errors.New("connection refused")

	tests := []struct {
		name    string
		err     error
		mode    topology.Mode
		wantNil bool
	}{
		{"nil stays nil", nil, topology.Server, true},
		{"driver-not-connected on client is expected", notConnected, topology.Client, true},
		{"driver-not-connected on server is an error", notConnected, topology.Server, false},
		{"data-stale on client is an error", stale, topology.Client, false},
		{"data-stale on server is an error", stale, topology.Server, false},
		{"generic error on client stays", generic, topology.Client, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyCommError(tt.err, tt.mode)
			if (got == nil) != tt.wantNil {
				t.Errorf("ClassifyCommError(%v, %v) = %v, wantNil=%v", tt.err, tt.mode, got, tt.wantNil)
			}
		})
	}
}
