package supervisor

import (
	"errors"
	"sync"

	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/process"
	"github.com/leekd123/nutify/internal/topology"
)

// Manager launches, stops and restarts the supervised services. It owns
// the child process handles; observed state lives in the registry.
type Manager struct {
	cfg  Config
	mode topology.Mode
	reg  *Registry
	bus  *events.Bus
	log  logging.Logger

	mu          sync.Mutex
	ups         nutconf.UPSIdentity
	descriptors []*Descriptor
	children    map[string]*process.Child
	usingDummy  bool
}

// NewManager builds the service descriptors for the detected mode and
// registers every managed service with the registry.
func NewManager(cfg Config, mode topology.Mode, ups nutconf.UPSIdentity, reg *Registry, bus *events.Bus, log logging.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		mode:     mode,
		reg:      reg,
		bus:      bus,
		log:      log,
		ups:      ups,
		children: make(map[string]*process.Child),
	}
	m.descriptors = BuildDescriptors(cfg, ups, log)
	for _, d := range m.descriptors {
		if m.skipped(d) {
			continue
		}
		reg.Register(d.Name)
	}
	return m
}

// Mode returns the deployment mode the manager was built for.
func (m *Manager) Mode() topology.Mode {
	return m.mode
}

// Identity returns the UPS the stack is currently configured for. It
// changes when a dummy fallback is synthesized.
func (m *Manager) Identity() nutconf.UPSIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ups
}

// UsingDummy reports whether the driver layer fell back to the virtual UPS.
func (m *Manager) UsingDummy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usingDummy
}

// Managed returns the descriptors of the services managed in the current
// mode, in launch order.
func (m *Manager) Managed() []*Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Descriptor
	for _, d := range m.descriptors {
		if !m.skipped(d) {
			out = append(out, d)
		}
	}
	return out
}

// Descriptor looks up a managed service by name.
func (m *Manager) Descriptor(name string) (*Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.descriptors {
		if d.Name == name && !m.skipped(d) {
			return d, true
		}
	}
	return nil, false
}

// Observe probes every managed service once and records the result,
// adopting anything found running. Nothing is started or restarted, so a
// one-shot status report can run next to a live supervisor.
func (m *Manager) Observe() []ServiceState {
	for _, d := range m.Managed() {
		switch d.Probe() {
		case probe.Running:
			m.adopt(d)
		case probe.Unresponsive:
			m.reg.SetStatus(d.Name, StatusUnresponsive, m.resolvePID(d), errors.New("process alive but not answering"))
		default:
			m.reg.SetStatus(d.Name, StatusStopped, 0, nil)
		}
	}
	return m.reg.Snapshot()
}

func (m *Manager) skipped(d *Descriptor) bool {
	return m.mode == topology.Client && d.SkipInClient
}

func (m *Manager) child(name string) *process.Child {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.children[name]
}

func (m *Manager) setChild(name string, c *process.Child) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil {
		delete(m.children, name)
		return
	}
	m.children[name] = c
}

// switchToDummy swaps the UPS identity to the synthesized virtual UPS and
// rebuilds the descriptors so probes and searches target the new name.
func (m *Manager) switchToDummy(ups nutconf.UPSIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ups = ups
	m.usingDummy = true
	m.descriptors = BuildDescriptors(m.cfg, ups, m.log)
}
