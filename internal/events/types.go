package events

// Event type constants for kelindar/event.
const (
	TypeServiceStateChanged uint32 = iota + 1
	TypeModeDetected
	TypeUPSStatus
	TypeCoordinatedRestart
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ServiceStateChangedEvent is published whenever a supervised service
// transitions between states.
type ServiceStateChangedEvent struct {
	Service   string `json:"service" example:"upsd" doc:"Service name"`
	State     string `json:"state" example:"running" doc:"New service state"`
	PID       int    `json:"pid,omitempty" example:"1234" doc:"Process ID when known"`
	Restarts  int    `json:"restarts" example:"0" doc:"Restart count since supervisor start"`
	Error     string `json:"error,omitempty" doc:"Last error, if the transition was a failure"`
	Timestamp string `json:"timestamp" example:"2025-08-25T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ServiceStateChangedEvent.
func (e ServiceStateChangedEvent) Type() uint32 { return TypeServiceStateChanged }

// ModeDetectedEvent is published once at startup when the deployment
// topology has been decided.
type ModeDetectedEvent struct {
	Mode      string `json:"mode" example:"server" doc:"Deployment mode: server or client"`
	Source    string `json:"source" example:"flag-file" doc:"Which detection step decided the mode"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ModeDetectedEvent.
func (e ModeDetectedEvent) Type() uint32 { return TypeModeDetected }

// UPSStatusEvent carries the result of the end-to-end UPS communication check.
type UPSStatusEvent struct {
	UPS       string `json:"ups" example:"ups" doc:"UPS name"`
	Host      string `json:"host" example:"localhost" doc:"Status server host"`
	Status    string `json:"status,omitempty" example:"OL" doc:"Raw ups.status value when reachable"`
	Reachable bool   `json:"reachable" doc:"Whether the communication check succeeded"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for UPSStatusEvent.
func (e UPSStatusEvent) Type() uint32 { return TypeUPSStatus }

// CoordinatedRestartEvent is published when the health loop tears down and
// relaunches the whole NUT stack.
type CoordinatedRestartEvent struct {
	Reason    string `json:"reason" example:"ups communication lost" doc:"Why the full restart was triggered"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for CoordinatedRestartEvent.
func (e CoordinatedRestartEvent) Type() uint32 { return TypeCoordinatedRestart }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-08-25T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"health" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
