// Package probe answers "is this running" without side effects: PID-file
// liveness, process-table search, short-timeout TCP connects and the
// end-to-end UPS communication check. Service descriptors compose these
// primitives into per-service probes.
package probe

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/leekd123/nutify/internal/nutclient"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/topology"
)

// Result is the three-valued probe answer.
type Result int

const (
	// NotRunning means no live process backs the service.
	NotRunning Result = iota
	// Running means the service is alive and, where probed, responsive.
	Running
	// Unresponsive means a process exists but the service does not answer.
	Unresponsive
)

func (r Result) String() string {
	switch r {
	case Running:
		return "running"
	case Unresponsive:
		return "unresponsive"
	default:
		return "not running"
	}
}

// DefaultPortTimeout bounds the TCP reachability check.
const DefaultPortTimeout = 2 * time.Second

// PIDAlive reports whether pid names a live process.
func PIDAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	return err == nil && alive
}

// PIDFileAlive resolves a PID file to a live process. Missing, empty or
// unparsable files and dead PIDs all mean "not running".
func PIDFileAlive(path string) (int, bool) {
	pid, err := pidfile.Read(path)
	if err != nil {
		return 0, false
	}
	return pid, PIDAlive(pid)
}

// FindProcess searches the process table for a command line containing
// substr, skipping the supervisor itself. Used when no PID file is expected.
func FindProcess(substr string) (int, bool) {
	procs, err := process.Processes()
	if err != nil {
		return 0, false
	}
	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		if strings.Contains(cmdline, substr) {
			return int(p.Pid), true
		}
	}
	return 0, false
}

// PortReachable attempts a short-timeout TCP connect.
func PortReachable(host string, port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// PortWithLiveness folds a port check and a process-liveness check into the
// three-valued result. downgrade makes a bound-pending port acceptable while
// the process is alive, the dashboard rule: binding a socket may lag the
// process start.
func PortWithLiveness(alive, portOK, downgrade bool) Result {
	switch {
	case !alive:
		return NotRunning
	case portOK || downgrade:
		return Running
	default:
		return Unresponsive
	}
}

// UPSComm runs the end-to-end communication check against upsd and filters
// the expected client-mode answer. A nil return means communication is
// healthy for this topology.
func UPSComm(ctx context.Context, client *nutclient.Client, ups string, mode topology.Mode) error {
	_, err := client.Status(ctx, ups)
	return nutclient.ClassifyCommError(err, mode)
}
