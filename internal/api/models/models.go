package models

import "time"

// Health check models
type HealthData struct {
	Status   string `json:"status" example:"ok" doc:"Supervisor status"`
	Instance string `json:"instance" example:"01K37Q2Y5RZ8F4T0V9GQ2M3NXE" doc:"Supervisor instance ID"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2025-08-25 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Deployment mode models
type ModeData struct {
	Mode       string `json:"mode" example:"server" doc:"Deployment mode: server or client"`
	Source     string `json:"source" example:"nut.conf" doc:"Which detection step decided the mode"`
	UPS        string `json:"ups" example:"ups@localhost" doc:"Monitored UPS identity"`
	UsingDummy bool   `json:"using_dummy" example:"false" doc:"Whether the virtual UPS fallback is active"`
}

type ModeResponse struct {
	Body ModeData
}

// Service models
type ServiceData struct {
	Name        string     `json:"name" example:"upsd" doc:"Service name"`
	Status      string     `json:"status" example:"running" doc:"Lifecycle state"`
	PID         int        `json:"pid,omitempty" example:"1234" doc:"Process ID when known"`
	Adopted     bool       `json:"adopted,omitempty" doc:"True when the process predates this supervisor"`
	Restarts    int        `json:"restarts" example:"0" doc:"Restarts since the supervisor started"`
	Failures    int        `json:"failures,omitempty" example:"0" doc:"Consecutive failed health checks"`
	LastError   string     `json:"last_error,omitempty" example:"process not found" doc:"Most recent failure"`
	StartedAt   *time.Time `json:"started_at,omitempty" doc:"When the service last entered the running state"`
	LastChecked *time.Time `json:"last_checked,omitempty" doc:"When the service was last probed"`
}

type ServiceListData struct {
	Services []ServiceData `json:"services" doc:"Supervised services in launch order"`
	Count    int           `json:"count" example:"4" doc:"Number of supervised services"`
}

type ServiceListResponse struct {
	Body ServiceListData
}

// ServiceActionData contains the result of a service action.
type ServiceActionData struct {
	Service string `json:"service" example:"upsd" doc:"Service name, or 'all' for the coordinated restart"`
	Action  string `json:"action" example:"restart" doc:"Action performed"`
	Success bool   `json:"success" example:"true" doc:"Whether the action succeeded"`
}

// ServiceActionResponse wraps ServiceActionData for API responses.
type ServiceActionResponse struct {
	Body ServiceActionData
}

// UPS status models
type UPSData struct {
	Name      string            `json:"name" example:"ups" doc:"UPS name"`
	Host      string            `json:"host" example:"localhost" doc:"Host answering for this UPS"`
	Reachable bool              `json:"reachable" example:"true" doc:"Whether upsd answered the query"`
	Status    string            `json:"status,omitempty" example:"OL" doc:"Raw ups.status value when reachable"`
	Error     string            `json:"error,omitempty" example:"connection refused" doc:"Why the query failed"`
	Variables map[string]string `json:"variables,omitempty" doc:"Full variable dump from upsd"`
	LastKnown *UPSLastKnown     `json:"last_known,omitempty" doc:"Most recent successful readings when the live query failed"`
}

// UPSLastKnown carries the readings from the last successful health check,
// so dashboards can show something during an outage.
type UPSLastKnown struct {
	Status         string     `json:"status,omitempty" example:"OL" doc:"Last observed ups.status"`
	BatteryCharge  float64    `json:"battery_charge,omitempty" example:"88" doc:"Last observed battery charge percent"`
	BatteryRuntime float64    `json:"battery_runtime,omitempty" example:"1200" doc:"Last observed runtime in seconds"`
	Load           float64    `json:"load,omitempty" example:"23" doc:"Last observed output load percent"`
	LastSeen       *time.Time `json:"last_seen,omitempty" doc:"When the UPS last answered a health check"`
}

type UPSResponse struct {
	Body UPSData
}

// Error response
type ErrorData struct {
	Status  string `json:"status" example:"error" doc:"Error status"`
	Message string `json:"message" example:"Service not found" doc:"Error message"`
}

type ErrorResponse struct {
	Body ErrorData
}
