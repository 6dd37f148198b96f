package supervisor

import (
	"sync"
	"time"

	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/metrics"
)

// Status is the observed state of a supervised service.
type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusStarting     Status = "starting"
	StatusRunning      Status = "running"
	StatusUnresponsive Status = "unresponsive"
	StatusFailed       Status = "failed"
	StatusStopped      Status = "stopped"
)

// ServiceState is the runtime record for one service. The registry owns the
// authoritative copy; callers only ever see value copies. PID files mirror
// the PID for crash-recovery adoption, never the other way around while the
// supervisor is alive.
type ServiceState struct {
	Name                string
	Status              Status
	PID                 int
	StartedAt           time.Time
	LastChecked         time.Time
	ConsecutiveFailures int
	Restarts            int
	LastError           string
	Adopted             bool
}

// Registry tracks every supervised service in memory and broadcasts state
// transitions on the event bus.
type Registry struct {
	mu     sync.RWMutex
	states map[string]*ServiceState
	order  []string
	bus    *events.Bus
}

// NewRegistry creates a registry publishing transitions to bus (nil is fine
// for tests).
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{
		states: make(map[string]*ServiceState),
		bus:    bus,
	}
}

// Register adds a service in Unknown state. Registration order is the
// launch order and is preserved in snapshots.
func (r *Registry) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.states[name]; exists {
		return
	}
	r.states[name] = &ServiceState{Name: name, Status: StatusUnknown}
	r.order = append(r.order, name)
}

// SetStatus records a transition and publishes it when the status changed.
func (r *Registry) SetStatus(name string, status Status, pid int, lastError error) {
	r.mu.Lock()
	st, exists := r.states[name]
	if !exists {
		r.mu.Unlock()
		return
	}
	changed := st.Status != status
	st.Status = status
	st.PID = pid
	st.LastChecked = time.Now()
	if status == StatusRunning && changed {
		st.StartedAt = time.Now()
		st.ConsecutiveFailures = 0
	}
	if lastError != nil {
		st.LastError = lastError.Error()
	} else if status == StatusRunning {
		st.LastError = ""
	}
	snapshot := *st
	r.mu.Unlock()

	metrics.SetServiceUp(name, status == StatusRunning)
	if changed {
		r.publish(snapshot)
	}
}

// Touch refreshes the probe timestamp without changing the status.
func (r *Registry) Touch(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, exists := r.states[name]; exists {
		st.LastChecked = time.Now()
	}
}

// RecordFailure bumps the consecutive-failure counter and returns its new
// value.
func (r *Registry) RecordFailure(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, exists := r.states[name]
	if !exists {
		return 0
	}
	st.ConsecutiveFailures++
	st.LastChecked = time.Now()
	return st.ConsecutiveFailures
}

// RecordRestart counts a restart performed for the service.
func (r *Registry) RecordRestart(name string) {
	r.mu.Lock()
	if st, exists := r.states[name]; exists {
		st.Restarts++
	}
	r.mu.Unlock()
	metrics.IncServiceRestart(name)
}

// MarkAdopted flags the service as re-adopted from a previous supervisor.
func (r *Registry) MarkAdopted(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, exists := r.states[name]; exists {
		st.Adopted = true
	}
}

// Get returns a copy of one service's state.
func (r *Registry) Get(name string) (ServiceState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, exists := r.states[name]
	if !exists {
		return ServiceState{}, false
	}
	return *st, true
}

// Snapshot returns copies of all states in registration order.
func (r *Registry) Snapshot() []ServiceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceState, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.states[name])
	}
	return out
}

func (r *Registry) publish(st ServiceState) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.ServiceStateChangedEvent{
		Service:   st.Name,
		State:     string(st.Status),
		PID:       st.PID,
		Restarts:  st.Restarts,
		Error:     st.LastError,
		Timestamp: st.LastChecked.Format(time.RFC3339),
	})
}
