package supervisor

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/metrics"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/process"
	"github.com/leekd123/nutify/internal/retry"
)

const (
	termGraceAttempts  = 5
	termPollInterval   = time.Second
	killWaitAttempts   = 3
	killPollInterval   = 500 * time.Millisecond
	stopCommandTimeout = 15 * time.Second
)

// Stop terminates a service with escalation: SIGTERM, a bounded wait for
// exit, then SIGKILL. A service with no live process is already stopped;
// that is a success and no signal is sent. PID files are removed either
// way.
func (m *Manager) Stop(ctx context.Context, d *Descriptor) error {
	pids := m.resolvePIDs(d)
	if len(pids) == 0 {
		m.log.Debug("Service already stopped", "service", d.Name)
		m.cleanupPIDFiles(d)
		m.reg.SetStatus(d.Name, StatusStopped, 0, nil)
		return nil
	}

	if d.StopCommand != "" {
		opts := &process.ChildOptions{
			OutputLogger: logging.GetLogger(d.Name),
			LogParser:    d.LogParser,
		}
		if err := process.RunCommand(ctx, d.Name, d.StopCommand, stopCommandTimeout, m.log, opts); err != nil {
			m.log.Warn("Stop command failed, falling back to signals", "service", d.Name, "error", err)
		}
		pids = m.stillAlive(d, pids)
	}

	for _, pid := range pids {
		m.log.Info("Stopping service", "service", d.Name, "pid", pid)
		if err := process.Signal(pid, syscall.SIGTERM); err != nil {
			m.log.Debug("SIGTERM delivery failed", "service", d.Name, "pid", pid, "error", err)
		}
	}

	remaining := m.waitGone(ctx, d, pids, termGraceAttempts, termPollInterval)
	if len(remaining) > 0 {
		for _, pid := range remaining {
			m.log.Warn("Service ignored SIGTERM, killing", "service", d.Name, "pid", pid)
			if err := process.SignalGroup(pid, syscall.SIGKILL); err != nil {
				_ = process.Signal(pid, syscall.SIGKILL)
			}
		}
		remaining = m.waitGone(ctx, d, remaining, killWaitAttempts, killPollInterval)
	}

	m.setChild(d.Name, nil)
	m.cleanupPIDFiles(d)

	if len(remaining) > 0 {
		err := fmt.Errorf("%s did not exit after SIGKILL (pid %d)", d.Name, remaining[0])
		m.reg.SetStatus(d.Name, StatusFailed, remaining[0], err)
		return err
	}
	m.reg.SetStatus(d.Name, StatusStopped, 0, nil)
	return nil
}

// waitGone polls until every listed PID has exited or the attempts run
// out, returning the survivors. Own children are checked through their
// reaper so a zombie entry in the process table does not count as alive.
func (m *Manager) waitGone(ctx context.Context, d *Descriptor, pids []int, attempts int, interval time.Duration) []int {
	_ = retry.Until(ctx, interval, attempts, func() error {
		for _, pid := range pids {
			if !m.gone(d, pid) {
				return fmt.Errorf("pid %d still running", pid)
			}
		}
		return nil
	})
	return m.stillAlive(d, pids)
}

func (m *Manager) stillAlive(d *Descriptor, pids []int) []int {
	var alive []int
	for _, pid := range pids {
		if !m.gone(d, pid) {
			alive = append(alive, pid)
		}
	}
	return alive
}

func (m *Manager) gone(d *Descriptor, pid int) bool {
	if c := m.child(d.Name); c != nil && c.PID() == pid {
		select {
		case <-c.Done():
			return true
		default:
			return false
		}
	}
	return !probe.PIDAlive(pid)
}

func (m *Manager) cleanupPIDFiles(d *Descriptor) {
	remove := func(path string) {
		if err := pidfile.Remove(path); err != nil {
			m.log.Warn("Failed to remove PID file", "path", path, "error", err)
		}
	}
	if d.PIDFile != "" {
		remove(d.PIDFile)
	}
	if d.PIDFiles != nil {
		for _, pf := range d.PIDFiles() {
			remove(pf)
		}
	}
}

// RestartService stops and relaunches one service by name.
func (m *Manager) RestartService(ctx context.Context, name string) error {
	d, ok := m.Descriptor(name)
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	m.log.Info("Restarting service", "service", name)
	m.reg.RecordRestart(name)
	if err := m.Stop(ctx, d); err != nil {
		return err
	}
	return m.Launch(ctx, d)
}

// CoordinatedRestart tears the NUT chain down in reverse order and brings
// it back up in launch order. The dashboard keeps serving throughout.
func (m *Manager) CoordinatedRestart(ctx context.Context, reason string) error {
	m.log.Warn("Restarting the whole NUT chain", "reason", reason)
	metrics.IncCoordinatedRestart()
	if m.bus != nil {
		m.bus.Publish(events.CoordinatedRestartEvent{
			Reason:    reason,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	chain := m.chainDescriptors()
	for i := len(chain) - 1; i >= 0; i-- {
		if err := m.Stop(ctx, chain[i]); err != nil {
			m.log.Error("Failed to stop service during coordinated restart", "service", chain[i].Name, "error", err)
		}
	}
	for _, d := range chain {
		m.reg.RecordRestart(d.Name)
		if err := m.Launch(ctx, d); err != nil {
			return fmt.Errorf("coordinated restart failed at %s: %w", d.Name, err)
		}
	}
	return nil
}

// chainDescriptors returns the managed NUT services in launch order,
// excluding the dashboard.
func (m *Manager) chainDescriptors() []*Descriptor {
	var chain []*Descriptor
	for _, d := range m.Managed() {
		if d.Name == ServiceDashboard {
			continue
		}
		chain = append(chain, d)
	}
	return chain
}
