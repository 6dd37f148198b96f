package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/metrics"
	"github.com/leekd123/nutify/internal/nutclient"
	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/topology"
)

// deepCheckTimeout bounds one UPS communication round trip.
const deepCheckTimeout = 10 * time.Second

// HealthLoop watches the supervised services on two cadences. The fast
// tick checks process liveness and restarts dead services individually;
// the deep tick verifies the status port and end-to-end UPS communication
// and restarts the whole chain when they fail. Restart requests from the
// API and from signals go through the same loop, so only one restart runs
// at a time.
type HealthLoop struct {
	mgr *Manager
	reg *Registry
	bus *events.Bus
	log logging.Logger

	interval     time.Duration
	deepInterval time.Duration
	upsdPort     int

	// Watchdog, when set, is called after every completed fast tick.
	Watchdog func()

	requests chan restartRequest
}

type restartRequest struct {
	service string // empty requests a coordinated restart
	reason  string
	done    chan error
}

// NewHealthLoop wires a health loop to the manager's services.
func NewHealthLoop(m *Manager, log logging.Logger) *HealthLoop {
	return &HealthLoop{
		mgr:          m,
		reg:          m.reg,
		bus:          m.bus,
		log:          log,
		interval:     m.cfg.healthInterval(),
		deepInterval: m.cfg.deepInterval(),
		upsdPort:     m.cfg.StatusPort(),
		requests:     make(chan restartRequest),
	}
}

// Run blocks until ctx is cancelled.
func (h *HealthLoop) Run(ctx context.Context) {
	fast := time.NewTicker(h.interval)
	defer fast.Stop()
	deep := time.NewTicker(h.deepInterval)
	defer deep.Stop()

	h.log.Info("Health monitoring started", "interval", h.interval, "deep_interval", h.deepInterval)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("Health monitoring stopped")
			return
		case <-fast.C:
			h.fastTick(ctx)
			if h.Watchdog != nil {
				h.Watchdog()
			}
		case <-deep.C:
			h.deepTick(ctx)
		case req := <-h.requests:
			if req.service == "" {
				req.done <- h.mgr.CoordinatedRestart(ctx, req.reason)
			} else {
				req.done <- h.mgr.RestartService(ctx, req.service)
			}
		}
	}
}

// RequestRestart asks the loop to restart one service and waits for the
// result.
func (h *HealthLoop) RequestRestart(ctx context.Context, service string) error {
	return h.enqueue(ctx, restartRequest{service: service})
}

// RequestCoordinatedRestart asks the loop to restart the whole NUT chain
// and waits for the result.
func (h *HealthLoop) RequestCoordinatedRestart(ctx context.Context, reason string) error {
	return h.enqueue(ctx, restartRequest{reason: reason})
}

func (h *HealthLoop) enqueue(ctx context.Context, req restartRequest) error {
	req.done = make(chan error, 1)
	select {
	case h.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fastTick probes process liveness and restarts anything that died.
func (h *HealthLoop) fastTick(ctx context.Context) {
	for _, d := range h.mgr.Managed() {
		res := d.Probe()
		st, known := h.reg.Get(d.Name)
		if !known {
			continue
		}

		if res == probe.Running {
			if st.Status != StatusRunning {
				h.mgr.adopt(d)
			} else {
				h.reg.Touch(d.Name)
			}
			continue
		}

		failures := h.reg.RecordFailure(d.Name)
		metrics.IncProbeFailure(d.Name, "process")

		if !d.AutoRestart {
			if st.Status != StatusFailed {
				h.log.Warn("Service is down and auto-restart is disabled for it", "service", d.Name)
				h.reg.SetStatus(d.Name, StatusFailed, 0, errors.New(res.String()))
			}
			continue
		}

		h.log.Warn("Service needs a restart", "service", d.Name, "state", res.String(), "consecutive_failures", failures)
		if err := h.mgr.RestartService(ctx, d.Name); err != nil {
			h.log.Error("Failed to restart service", "service", d.Name, "error", err)
		}
	}
}

// deepTick verifies the path from the status port all the way to the UPS.
// A failure is diagnosed, logged, then answered with a coordinated restart
// of the chain.
func (h *HealthLoop) deepTick(ctx context.Context) {
	ups := h.mgr.Identity()
	mode := h.mgr.Mode()

	if !probe.PortReachable(ups.Host, h.upsdPort, probe.DefaultPortTimeout) {
		metrics.IncProbeFailure(ServiceUpsd, "port")
		reason := h.diagnosePortFailure(mode)
		h.log.Error("UPS status port is unreachable", "host", ups.Host, "port", h.upsdPort, "diagnosis", reason)
		h.coordinated(ctx, reason)
		return
	}

	cl := nutclient.New(ups.Host, h.upsdPort)
	cctx, cancel := context.WithTimeout(ctx, deepCheckTimeout)
	defer cancel()

	status, err := cl.Status(cctx, ups.Name)
	if cerr := nutclient.ClassifyCommError(err, mode); cerr != nil {
		metrics.IncProbeFailure(ServiceDriver, "ups")
		metrics.SetUPSReachable(ups.Name, false)
		h.publishUPSStatus(ups, "", false)
		reason := fmt.Sprintf("ups communication failed: %v", cerr)
		h.log.Error("UPS communication check failed", "ups", ups.String(), "error", cerr)
		h.coordinated(ctx, reason)
		return
	}

	metrics.SetUPSReachable(ups.Name, true)
	if err == nil {
		metrics.SetUPSStatus(ups.Name, status)
		if vars, verr := cl.Variables(cctx, ups.Name); verr == nil {
			metrics.RecordUPSVariables(ups.Name, vars)
		}
	}
	h.publishUPSStatus(ups, status, true)
	h.log.Debug("Deep health check passed", "ups", ups.String(), "status", status)
}

// diagnosePortFailure narrows an unreachable status port down to the
// responsible layer before the chain is restarted.
func (h *HealthLoop) diagnosePortFailure(mode topology.Mode) string {
	if mode == topology.Client {
		return "remote status server is unreachable"
	}

	driverUp := h.managedProbe(ServiceDriver) == probe.Running
	upsdUp := h.managedProbe(ServiceUpsd) == probe.Running
	switch {
	case !driverUp && !upsdUp:
		return "driver and upsd processes are both gone"
	case !driverUp:
		return "driver process is gone"
	case !upsdUp:
		return "upsd process is gone"
	default:
		if st, ok := h.reg.Get(ServiceUpsd); ok {
			h.reg.SetStatus(ServiceUpsd, StatusUnresponsive, st.PID, errors.New("status port not answering"))
		}
		return "upsd is alive but not answering its port"
	}
}

func (h *HealthLoop) managedProbe(name string) probe.Result {
	if d, ok := h.mgr.Descriptor(name); ok {
		return d.Probe()
	}
	return probe.NotRunning
}

func (h *HealthLoop) coordinated(ctx context.Context, reason string) {
	if err := h.mgr.CoordinatedRestart(ctx, reason); err != nil {
		h.log.Error("Coordinated restart failed", "error", err)
	}
}

func (h *HealthLoop) publishUPSStatus(ups nutconf.UPSIdentity, status string, reachable bool) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(events.UPSStatusEvent{
		UPS:       ups.Name,
		Host:      ups.Host,
		Status:    status,
		Reachable: reachable,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
