package systemd

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// listenNotify stands in for systemd's notification socket.
func listenNotify(t *testing.T) (*net.UnixConn, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen notify socket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, path
}

func readDatagram(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read notify datagram: %v", err)
	}
	return string(buf[:n])
}

func TestNotifyReadySendsDatagram(t *testing.T) {
	conn, path := listenNotify(t)
	t.Setenv("NOTIFY_SOCKET", path)

	NotifyReady()

	if got := readDatagram(t, conn); got != "READY=1" {
		t.Errorf("datagram = %q, want READY=1", got)
	}
}

func TestNotifyStatusFormats(t *testing.T) {
	conn, path := listenNotify(t)
	t.Setenv("NOTIFY_SOCKET", path)

	NotifyStatus("supervising %d services", 4)

	if got := readDatagram(t, conn); got != "STATUS=supervising 4 services" {
		t.Errorf("datagram = %q", got)
	}
}

func TestNotifyIsNoOpOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	os.Unsetenv("NOTIFY_SOCKET")

	// Nothing to assert beyond not panicking and not blocking
	NotifyReady()
	NotifyStopping()
	NotifyStatus("idle")
}

func TestWatchdogDisabledWithoutEnv(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	os.Unsetenv("WATCHDOG_USEC")

	if ping := Watchdog(); ping != nil {
		t.Error("watchdog enabled without WATCHDOG_USEC")
	}
}

func TestWatchdogPings(t *testing.T) {
	conn, path := listenNotify(t)
	t.Setenv("NOTIFY_SOCKET", path)
	t.Setenv("WATCHDOG_USEC", "30000000")
	t.Setenv("WATCHDOG_PID", strconv.Itoa(os.Getpid()))

	ping := Watchdog()
	if ping == nil {
		t.Fatal("watchdog not detected")
	}
	ping()

	if got := readDatagram(t, conn); got != "WATCHDOG=1" {
		t.Errorf("datagram = %q, want WATCHDOG=1", got)
	}
}
