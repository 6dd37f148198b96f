package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/process"
)

// driverStartTimeout bounds one upsdrvctl invocation. The controller
// normally forks and returns within seconds; a hung USB enumeration
// should not stall startup forever.
const driverStartTimeout = 60 * time.Second

// LaunchAll starts every managed service in launch order: driver, upsd,
// upsmon, dashboard. Optional services log a warning on failure instead of
// aborting.
func (m *Manager) LaunchAll(ctx context.Context) error {
	for _, d := range m.Managed() {
		if err := m.Launch(ctx, d); err != nil {
			if d.Optional {
				m.log.Warn("Optional service failed to start, continuing", "service", d.Name, "error", err)
				continue
			}
			return fmt.Errorf("failed to start %s: %w", d.Name, err)
		}
	}
	return nil
}

// Launch starts one service. A service that is already running is left
// alone; if it was started by an earlier supervisor it is adopted.
func (m *Manager) Launch(ctx context.Context, d *Descriptor) error {
	if d.Probe() == probe.Running {
		m.adopt(d)
		return nil
	}

	m.reg.SetStatus(d.Name, StatusStarting, 0, nil)

	var err error
	if d.Style == StyleForking {
		err = m.launchDriver(ctx, d)
	} else {
		err = m.launchChild(ctx, d)
	}
	if err != nil {
		m.reg.SetStatus(d.Name, StatusFailed, 0, err)
		return err
	}
	return nil
}

func (m *Manager) launchChild(ctx context.Context, d *Descriptor) error {
	c, err := process.StartChild(d.Name, d.Command, m.log, &process.ChildOptions{
		OutputLogger: logging.GetLogger(d.Name),
		LogParser:    d.LogParser,
	})
	if err != nil {
		return err
	}
	m.setChild(d.Name, c)

	if d.PIDFile != "" {
		if err := pidfile.Write(d.PIDFile, c.PID()); err != nil {
			m.log.Warn("Failed to write PID file", "service", d.Name, "path", d.PIDFile, "error", err)
		}
	}

	if d.Ready != nil {
		if err := d.Ready(ctx); err != nil {
			return fmt.Errorf("%s did not become ready: %w", d.Name, err)
		}
	}

	m.reg.SetStatus(d.Name, StatusRunning, c.PID(), nil)
	return nil
}

// launchDriver walks the driver start chain: the normal command, then the
// verbose command for diagnostics, then a synthesized virtual UPS when
// enabled. Exhausting the chain is a fatal error.
func (m *Manager) launchDriver(ctx context.Context, d *Descriptor) error {
	normalErr := m.runDriverCommand(ctx, d, d.Command)
	if normalErr == nil {
		m.markDriverRunning(d)
		return nil
	}
	m.log.Error("Driver failed to start, retrying with verbose output", "error", normalErr)

	verboseErr := m.runDriverCommand(ctx, d, d.VerboseCommand)
	if verboseErr == nil {
		m.log.Warn("Driver came up on the verbose retry")
		m.markDriverRunning(d)
		return nil
	}
	m.log.Error("Verbose driver start failed as well", "error", verboseErr)

	if !m.cfg.DummyEnabled {
		return fmt.Errorf("%w: %v", ErrDriverFatal, verboseErr)
	}

	spec := nutconf.DummySpec{
		Name:        orDefault(m.cfg.DummyName, "dummy"),
		Port:        orDefault(m.cfg.DummyPort, "nutify-dummy.dev"),
		Description: orDefault(m.cfg.DummyDescription, "Virtual UPS"),
	}
	m.log.Warn("Falling back to a virtual UPS", "ups", spec.Name)
	devicePath, err := nutconf.WriteDummyConfig(m.cfg.confDir(), spec)
	if err != nil {
		return fmt.Errorf("failed to synthesize dummy configuration: %w", err)
	}
	m.switchToDummy(nutconf.UPSIdentity{Name: spec.Name, Host: "localhost"})
	m.log.Info("Virtual UPS configured", "ups", spec.Name, "device", devicePath)

	dummy, ok := m.Descriptor(ServiceDriver)
	if !ok {
		return fmt.Errorf("driver descriptor missing after dummy fallback")
	}
	if err := m.runDriverCommand(ctx, dummy, dummy.Command); err != nil {
		return fmt.Errorf("%w: dummy driver failed: %v", ErrDriverFatal, err)
	}
	m.markDriverRunning(dummy)
	return nil
}

func (m *Manager) runDriverCommand(ctx context.Context, d *Descriptor, command string) error {
	opts := &process.ChildOptions{
		OutputLogger: logging.GetLogger(d.Name),
		LogParser:    d.LogParser,
	}
	if err := process.RunCommand(ctx, d.Name, command, driverStartTimeout, m.log, opts); err != nil {
		return err
	}
	if d.Ready != nil {
		if err := d.Ready(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) markDriverRunning(d *Descriptor) {
	m.reg.SetStatus(d.Name, StatusRunning, m.resolvePID(d), nil)
}

// adopt records an already-running service, marking it adopted when it was
// not started by this supervisor instance.
func (m *Manager) adopt(d *Descriptor) {
	pid := m.resolvePID(d)
	c := m.child(d.Name)
	ours := c != nil && c.Alive() && (pid == 0 || pid == c.PID())
	if ours {
		if pid == 0 {
			pid = c.PID()
		}
		m.log.Debug("Service already running", "service", d.Name, "pid", pid)
	} else {
		m.reg.MarkAdopted(d.Name)
		m.log.Info("Adopted running service", "service", d.Name, "pid", pid)
	}
	m.reg.SetStatus(d.Name, StatusRunning, pid, nil)
}

// resolvePID finds the service's live PID: its PID file first, then any
// candidate files, then a command-line search.
func (m *Manager) resolvePID(d *Descriptor) int {
	if d.PIDFile != "" {
		if pid, ok := probe.PIDFileAlive(d.PIDFile); ok {
			return pid
		}
	}
	if d.PIDFiles != nil {
		for _, pf := range d.PIDFiles() {
			if pid, ok := probe.PIDFileAlive(pf); ok {
				return pid
			}
		}
	}
	if d.SearchPattern != "" {
		if pid, ok := probe.FindProcess(d.SearchPattern); ok {
			return pid
		}
	}
	return 0
}

// resolvePIDs collects every live PID attributable to the service. The
// driver can own several, one per configured UPS.
func (m *Manager) resolvePIDs(d *Descriptor) []int {
	seen := make(map[int]bool)
	var pids []int
	add := func(pid int, ok bool) {
		if ok && !seen[pid] {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	if d.PIDFile != "" {
		add(probe.PIDFileAlive(d.PIDFile))
	}
	if d.PIDFiles != nil {
		for _, pf := range d.PIDFiles() {
			add(probe.PIDFileAlive(pf))
		}
	}
	if len(pids) == 0 && d.SearchPattern != "" {
		add(probe.FindProcess(d.SearchPattern))
	}
	return pids
}
