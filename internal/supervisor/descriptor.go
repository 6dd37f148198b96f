package supervisor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/process"
	"github.com/leekd123/nutify/internal/retry"
)

// Service names in launch order.
const (
	ServiceDriver    = "driver"
	ServiceUpsd      = "upsd"
	ServiceUpsmon    = "upsmon"
	ServiceDashboard = "dashboard"
)

// PID file names inside the run directory. The driver PID files are named
// by the NUT drivers themselves as <driver>-<ups>.pid.
const (
	upsdPIDName      = "upsd.pid"
	upsmonPIDName    = "upsmon.pid"
	dashboardPIDName = "nutify-web.pid"
)

// StartStyle distinguishes how a service comes up.
type StartStyle int

const (
	// StyleChild runs the command as a long-lived foreground child.
	StyleChild StartStyle = iota
	// StyleForking runs a controller command to completion; the real
	// workers daemonize and leave PID files behind.
	StyleForking
)

const (
	upsdReadyAttempts   = 30
	driverReadyAttempts = 5
	upsmonSettle        = 2 * time.Second
)

// Descriptor is the immutable launch recipe for one supervised service.
// All mutable state lives in the registry.
type Descriptor struct {
	Name  string
	Style StartStyle

	// Command starts the service. VerboseCommand is the debug-output
	// variant tried when Command fails; only the driver has one.
	Command        string
	VerboseCommand string
	// StopCommand, when set, is run before falling back to signals.
	StopCommand string

	// PIDFile is the service's recorded PID, written by the supervisor
	// for child-style services. PIDFiles enumerates candidates for
	// forking services whose workers write their own files.
	PIDFile  string
	PIDFiles func() []string
	// SearchPattern locates the process by command line when no PID
	// file survives.
	SearchPattern string

	// Probe is the fast liveness check. Ready blocks until the service
	// is usable after a start, or fails.
	Probe func() probe.Result
	Ready func(ctx context.Context) error

	LogParser process.LogParser

	// SkipInClient excludes the service when monitoring a remote UPS.
	SkipInClient bool
	// Optional services log a warning instead of aborting startup.
	Optional bool
	// AutoRestart gates the health loop's restart reaction.
	AutoRestart bool
}

// BuildDescriptors assembles the four service descriptors in launch order:
// driver, upsd, upsmon, dashboard.
func BuildDescriptors(cfg Config, ups nutconf.UPSIdentity, log logging.Logger) []*Descriptor {
	return []*Descriptor{
		driverDescriptor(cfg, ups),
		upsdDescriptor(cfg, log),
		upsmonDescriptor(cfg),
		dashboardDescriptor(cfg, log),
	}
}

func driverDescriptor(cfg Config, ups nutconf.UPSIdentity) *Descriptor {
	confDir := cfg.confDir()
	runDir := cfg.runDir()

	pidFiles := func() []string {
		conf, err := nutconf.LoadUPSConf(filepath.Join(confDir, nutconf.UPSConfFile))
		if err != nil {
			return nil
		}
		var paths []string
		for _, sec := range conf.Sections {
			drv := sec.Driver()
			if drv == "" {
				continue
			}
			paths = append(paths, filepath.Join(runDir, fmt.Sprintf("%s-%s.pid", drv, sec.Name)))
		}
		return paths
	}
	pattern := "-a " + ups.Name

	probeFn := func() probe.Result {
		for _, pf := range pidFiles() {
			if _, ok := probe.PIDFileAlive(pf); ok {
				return probe.Running
			}
		}
		if _, ok := probe.FindProcess(pattern); ok {
			return probe.Running
		}
		return probe.NotRunning
	}

	return &Descriptor{
		Name:           ServiceDriver,
		Style:          StyleForking,
		Command:        orDefault(cfg.DriverStartCommand, "upsdrvctl start"),
		VerboseCommand: orDefault(cfg.DriverVerboseCommand, "upsdrvctl -D start"),
		StopCommand:    orDefault(cfg.DriverStopCommand, "upsdrvctl stop"),
		PIDFiles:       pidFiles,
		SearchPattern:  pattern,
		Probe:          probeFn,
		Ready: func(ctx context.Context) error {
			return retry.Until(ctx, time.Second, driverReadyAttempts, func() error {
				if probeFn() == probe.Running {
					return nil
				}
				return errors.New("no driver process found")
			})
		},
		LogParser:    process.NUTLogParser,
		SkipInClient: true,
		AutoRestart:  true,
	}
}

func upsdDescriptor(cfg Config, log logging.Logger) *Descriptor {
	port := cfg.StatusPort()
	pidFile := filepath.Join(cfg.runDir(), upsdPIDName)
	command := orDefault(cfg.UpsdCommand, "upsd -F")

	return &Descriptor{
		Name:          ServiceUpsd,
		Style:         StyleChild,
		Command:       command,
		PIDFile:       pidFile,
		SearchPattern: command,
		Probe:         pidProbe(pidFile, command),
		Ready: func(ctx context.Context) error {
			return retry.UntilWithProgress(ctx, time.Second, upsdReadyAttempts, func() error {
				if probe.PortReachable("127.0.0.1", port, probe.DefaultPortTimeout) {
					return nil
				}
				return fmt.Errorf("port %d not accepting connections", port)
			}, func(attempt int, _ error) {
				if attempt%5 == 0 {
					log.Info("Still waiting for upsd to accept connections", "attempt", attempt, "port", port)
				}
			})
		},
		LogParser:    process.NUTLogParser,
		SkipInClient: true,
		AutoRestart:  true,
	}
}

func upsmonDescriptor(cfg Config) *Descriptor {
	pidFile := filepath.Join(cfg.runDir(), upsmonPIDName)
	command := orDefault(cfg.UpsmonCommand, "upsmon -F")
	probeFn := pidProbe(pidFile, command)

	return &Descriptor{
		Name:          ServiceUpsmon,
		Style:         StyleChild,
		Command:       command,
		PIDFile:       pidFile,
		SearchPattern: command,
		Probe:         probeFn,
		Ready: func(ctx context.Context) error {
			t := time.NewTimer(upsmonSettle)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
			if probeFn() != probe.Running {
				return errors.New("upsmon exited during settle")
			}
			return nil
		},
		LogParser:   process.NUTLogParser,
		AutoRestart: true,
	}
}

func dashboardDescriptor(cfg Config, log logging.Logger) *Descriptor {
	pidFile := filepath.Join(cfg.runDir(), dashboardPIDName)
	command := orDefault(cfg.DashboardCommand, "nutify-web")
	pattern := filepath.Base(firstField(command))
	port := cfg.DashboardProbePort()

	return &Descriptor{
		Name:          ServiceDashboard,
		Style:         StyleChild,
		Command:       command,
		PIDFile:       pidFile,
		SearchPattern: pattern,
		Probe: func() probe.Result {
			_, alive := probe.PIDFileAlive(pidFile)
			if !alive {
				_, alive = probe.FindProcess(pattern)
			}
			portOK := false
			if alive {
				portOK = probe.PortReachable("127.0.0.1", port, probe.DefaultPortTimeout)
				if !portOK {
					log.Warn("Dashboard process is alive but its port is not answering", "port", port)
				}
			}
			return probe.PortWithLiveness(alive, portOK, true)
		},
		Optional:    true,
		AutoRestart: cfg.DashboardAutoRestart,
	}
}

// pidProbe builds a liveness check that prefers the PID file and falls
// back to a command-line search.
func pidProbe(pidFile, pattern string) func() probe.Result {
	return func() probe.Result {
		if _, ok := probe.PIDFileAlive(pidFile); ok {
			return probe.Running
		}
		if pattern != "" {
			if _, ok := probe.FindProcess(pattern); ok {
				return probe.Running
			}
		}
		return probe.NotRunning
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
