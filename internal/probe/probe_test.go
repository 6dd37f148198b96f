package probe

import (
	"bufio"
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leekd123/nutify/internal/nutclient"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/topology"
)

const deadPID = 99999999

func TestPIDAlive(t *testing.T) {
	if !PIDAlive(os.Getpid()) {
		t.Error("Own pid should be alive")
	}
	if PIDAlive(deadPID) {
		t.Error("Unused pid should not be alive")
	}
}

func TestPIDFileAlive(t *testing.T) {
	dir := t.TempDir()

	own := filepath.Join(dir, "own.pid")
	if err := pidfile.WriteOwn(own); err != nil {
		t.Fatal(err)
	}
	pid, alive := PIDFileAlive(own)
	if !alive || pid != os.Getpid() {
		t.Errorf("PIDFileAlive(own) = %d, %v; want %d, true", pid, alive, os.Getpid())
	}

	if _, alive := PIDFileAlive(filepath.Join(dir, "missing.pid")); alive {
		t.Error("Missing pid file should not be alive")
	}

	dead := filepath.Join(dir, "dead.pid")
	if err := pidfile.Write(dead, deadPID); err != nil {
		t.Fatal(err)
	}
	if _, alive := PIDFileAlive(dead); alive {
		t.Error("Dead pid should not be alive")
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("nope\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, alive := PIDFileAlive(garbage); alive {
		t.Error("Unparsable pid file should not be alive")
	}
}

func TestFindProcess(t *testing.T) {
	// A sleep with an unusual duration is easy to find and collides with
	// nothing else on the host.
	cmd := exec.Command("sleep", "2787")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start fixture process: %v", err)
	}
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	// The process table needs a moment to show the new command line.
	var pid int
	var found bool
	for range 20 {
		if pid, found = FindProcess("sleep 2787"); found {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !found {
		t.Fatal("Fixture process not found in process table")
	}
	if pid != cmd.Process.Pid {
		t.Errorf("pid = %d, want %d", pid, cmd.Process.Pid)
	}

	if _, found := FindProcess("no-such-command-exists-2787"); found {
		t.Error("Nonexistent command should not be found")
	}
}

func TestPortReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	if !PortReachable("127.0.0.1", port, time.Second) {
		t.Error("Listening port should be reachable")
	}

	ln.Close()
	if PortReachable("127.0.0.1", port, 200*time.Millisecond) {
		t.Error("Closed port should not be reachable")
	}
}

func TestPortWithLiveness(t *testing.T) {
	tests := []struct {
		name                     string
		alive, portOK, downgrade bool
		want                     Result
	}{
		{"dead process", false, false, false, NotRunning},
		{"dead process ignores downgrade", false, false, true, NotRunning},
		{"alive and bound", true, true, false, Running},
		{"alive, not bound, strict", true, false, false, Unresponsive},
		{"alive, not bound, downgraded", true, false, true, Running},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PortWithLiveness(tt.alive, tt.portOK, tt.downgrade); got != tt.want {
				t.Errorf("PortWithLiveness(%v, %v, %v) = %v, want %v",
					tt.alive, tt.portOK, tt.downgrade, got, tt.want)
			}
		})
	}
}

// fakeUpsd answers every GET VAR with one canned line.
func fakeUpsd(t *testing.T, response string) *nutclient.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
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
					line := scanner.Text()
					if strings.HasPrefix(line, "GET VAR") {
						conn.Write([]byte(response + "\n"))
					} else {
						conn.Write([]byte("OK Goodbye\n"))
						return
					}
				}
			}(conn)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return nutclient.New("127.0.0.1", port).WithTimeout(time.Second)
}

func TestUPSCommHealthy(t *testing.T) {
	client := fakeUpsd(t, `VAR ups ups.status "OL"`)
	if err := UPSComm(context.Background(), client, "ups", topology.Server); err != nil {
		t.Errorf("Expected healthy communication, got %v", err)
	}
}

func TestUPSCommDriverNotConnectedByMode(t *testing.T) {
	client := fakeUpsd(t, "ERR DRIVER-NOT-CONNECTED")

	if err := UPSComm(context.Background(), client, "ups", topology.Client); err != nil {
		t.Errorf("Client mode should accept DRIVER-NOT-CONNECTED, got %v", err)
	}
	if err := UPSComm(context.Background(), client, "ups", topology.Server); err == nil {
		t.Error("Server mode should treat DRIVER-NOT-CONNECTED as an error")
	}
}

func TestResultString(t *testing.T) {
	if NotRunning.String() != "not running" || Running.String() != "running" || Unresponsive.String() != "unresponsive" {
		t.Errorf("String() = %s/%s/%s", NotRunning, Running, Unresponsive)
	}
}
