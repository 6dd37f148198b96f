// Package supervisor launches and watches the NUT services: the UPS
// driver, the upsd status server, the upsmon shutdown monitor and the web
// dashboard. It detects whether this host runs the full server stack or
// only monitors a remote UPS, keeps the services alive on two health
// cadences, and falls back to a virtual UPS when the hardware driver
// cannot start.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/topology"
)

// Supervisor ties the pieces together: mode detection, configuration
// validation, identity resolution, service launch and health monitoring.
type Supervisor struct {
	// ID distinguishes this instance in logs and the status API when
	// supervisors come and go across restarts.
	ID string

	Config   Config
	Mode     topology.Detection
	Registry *Registry
	Manager  *Manager
	Health   *HealthLoop
	Bus      *events.Bus

	log     logging.Logger
	version string
}

// New detects the deployment mode, validates the NUT configuration for it
// and resolves the UPS identity. Missing required files and an
// underivable identity are fatal here, before anything is launched.
func New(cfg Config, bus *events.Bus, version string) (*Supervisor, error) {
	log := logging.GetLogger("supervisor")
	id := ulid.Make().String()
	log.Info("Supervisor starting", "instance", id, "version", version)

	det := topology.Detect(topology.Options{
		FlagFile: cfg.FlagFile(),
		ConfDir:  cfg.confDir(),
		Override: cfg.ModeOverride,
	})
	log.Info("Deployment mode detected", "mode", det.Mode.String(), "source", det.Source)
	if bus != nil {
		bus.Publish(events.ModeDetectedEvent{
			Mode:      det.Mode.String(),
			Source:    det.Source,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}

	client := det.Mode == topology.Client
	if err := nutconf.ValidateRequired(cfg.confDir(), client); err != nil {
		return nil, err
	}
	ups, err := nutconf.ResolveIdentity(cfg.confDir(), client, cfg.IdentityOverrides())
	if err != nil {
		return nil, err
	}
	log.Info("UPS identity resolved", "ups", ups.String())

	reg := NewRegistry(bus)
	mgr := NewManager(cfg, det.Mode, ups, reg, bus, log)
	return &Supervisor{
		ID:       id,
		Config:   cfg,
		Mode:     det,
		Registry: reg,
		Manager:  mgr,
		Health:   NewHealthLoop(mgr, logging.GetLogger("health")),
		Bus:      bus,
		log:      log,
		version:  version,
	}, nil
}

// Start claims the supervisor's own PID file and launches the stack. A
// live PID in the file means another instance already owns these
// services.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.Config.runDir(), 0o755); err != nil {
		s.log.Warn("Failed to create run directory", "path", s.Config.runDir(), "error", err)
	}

	own := s.Config.OwnPIDFile()
	if pid, err := pidfile.Read(own); err == nil && pid != os.Getpid() && probe.PIDAlive(pid) {
		return fmt.Errorf("another supervisor instance is already running (pid %d)", pid)
	}
	if err := pidfile.WriteOwn(own); err != nil {
		s.log.Warn("Failed to write own PID file", "path", own, "error", err)
	}

	return s.Manager.LaunchAll(ctx)
}

// Run drives the health loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	s.Health.Run(ctx)
}

// Shutdown removes the supervisor's own PID file. The services are left
// running on purpose: monitoring a UPS must survive a supervisor restart,
// and the next instance adopts them from their PID files.
func (s *Supervisor) Shutdown() {
	if err := pidfile.Remove(s.Config.OwnPIDFile()); err != nil {
		s.log.Warn("Failed to remove own PID file", "error", err)
	}
	s.log.Info("Supervisor exiting, services left running")
}

// WatchHangup restarts the NUT chain whenever SIGHUP arrives, until ctx
// is cancelled.
func (s *Supervisor) WatchHangup(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				s.log.Info("SIGHUP received, restarting the NUT chain")
				if err := s.Health.RequestCoordinatedRestart(ctx, "operator hangup"); err != nil {
					s.log.Error("Hangup restart failed", "error", err)
				}
			}
		}
	}()
}

// Summary snapshots everything the startup report shows.
func (s *Supervisor) Summary() Summary {
	scheme := "http"
	if s.Config.DashboardTLS {
		scheme = "https"
	}
	return Summary{
		Version:      s.version,
		Mode:         s.Mode.Mode,
		ModeSource:   s.Mode.Source,
		UPS:          s.Manager.Identity(),
		UsingDummy:   s.Manager.UsingDummy(),
		ConfDir:      s.Config.confDir(),
		Services:     s.Registry.Snapshot(),
		DashboardURL: fmt.Sprintf("%s://127.0.0.1:%d", scheme, s.Config.DashboardProbePort()),
	}
}
