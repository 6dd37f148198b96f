// Package pidfile reads and writes the PID files under the NUT runtime
// directory. While the supervisor runs, the in-memory registry is the source
// of truth; PID files exist so a restarted supervisor can adopt services
// that survived it, and so operators can inspect the cluster with standard
// tooling.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Write records pid at path, newline-terminated like NUT's own PID files.
func Write(path string, pid int) error {
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pid file %s: %w", path, err)
	}
	return nil
}

// WriteOwn records the current process, used for the supervisor's marker.
func WriteOwn(path string) error {
	return Write(path, os.Getpid())
}

// Read parses the PID stored at path. A missing, empty or unparsable file
// is an error; callers treat any error as "no usable PID".
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, fmt.Errorf("pid file %s is empty", path)
	}
	pid, err := strconv.Atoi(content)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s contains %q, not a pid", path, content)
	}
	return pid, nil
}

// Remove deletes the PID file; a missing file is fine.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file %s: %w", path, err)
	}
	return nil
}

// IsStale reports whether the file exists but names a dead process.
// A missing file is not stale.
func IsStale(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat pid file %s: %w", path, err)
	}
	pid, err := Read(path)
	if err != nil {
		// Present but empty or unparsable: nothing alive is described.
		return true, nil
	}
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return false, fmt.Errorf("failed to check pid %d: %w", pid, err)
	}
	return !alive, nil
}

// ClearStale removes the file when it is stale and reports whether it did.
func ClearStale(path string) (bool, error) {
	stale, err := IsStale(path)
	if err != nil || !stale {
		return false, err
	}
	if err := Remove(path); err != nil {
		return false, err
	}
	return true, nil
}
