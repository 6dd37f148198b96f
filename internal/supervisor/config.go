package supervisor

import (
	"path/filepath"
	"time"

	"github.com/leekd123/nutify/internal/nutconf"
)

const (
	// DefaultConfDir is where the NUT configuration files live.
	DefaultConfDir = "/etc/nut"
	// DefaultRunDir is where PID files are written.
	DefaultRunDir = "/var/run/nut"
	// ClientFlagName marks an installation as a remote monitoring client
	// when present in the configuration directory.
	ClientFlagName = "remote-monitoring"

	// OwnPIDName is the supervisor's own PID file inside the run directory.
	OwnPIDName = "nutify.pid"
)

// Config carries the resolved supervisor settings. Values arrive from the
// command line and environment; empty strings and zero durations fall back
// to the canonical NUT defaults when descriptors are built.
type Config struct {
	ConfDir        string
	RunDir         string
	ClientFlagFile string
	ModeOverride   string

	UPSName string
	UPSHost string
	UPSPort int

	DummyEnabled     bool
	DummyName        string
	DummyPort        string
	DummyDescription string

	DriverStartCommand   string
	DriverVerboseCommand string
	DriverStopCommand    string
	UpsdCommand          string
	UpsmonCommand        string
	DashboardCommand     string

	DashboardPort        int
	DashboardHTTPSPort   int
	DashboardTLS         bool
	DashboardAutoRestart bool

	HealthInterval time.Duration
	DeepInterval   time.Duration
}

func (c *Config) confDir() string {
	if c.ConfDir == "" {
		return DefaultConfDir
	}
	return c.ConfDir
}

func (c *Config) runDir() string {
	if c.RunDir == "" {
		return DefaultRunDir
	}
	return c.RunDir
}

// FlagFile returns the path of the remote-monitoring marker file.
func (c *Config) FlagFile() string {
	if c.ClientFlagFile != "" {
		return c.ClientFlagFile
	}
	return filepath.Join(c.confDir(), ClientFlagName)
}

// OwnPIDFile returns the path of the supervisor's own PID file.
func (c *Config) OwnPIDFile() string {
	return filepath.Join(c.runDir(), OwnPIDName)
}

// DashboardProbePort is the port the dashboard actually serves on,
// honouring the TLS switch.
func (c *Config) DashboardProbePort() int {
	if c.DashboardTLS {
		return c.DashboardHTTPSPort
	}
	return c.DashboardPort
}

// IdentityOverrides maps the explicit UPS settings onto the identity
// resolution rules.
func (c *Config) IdentityOverrides() nutconf.IdentityOverrides {
	return nutconf.IdentityOverrides{
		Name:         c.UPSName,
		Host:         c.UPSHost,
		DummyEnabled: c.DummyEnabled,
		DummyName:    c.DummyName,
	}
}

func (c *Config) healthInterval() time.Duration {
	if c.HealthInterval <= 0 {
		return 10 * time.Second
	}
	return c.HealthInterval
}

func (c *Config) deepInterval() time.Duration {
	if c.DeepInterval <= 0 {
		return 60 * time.Second
	}
	return c.DeepInterval
}

// StatusPort is the TCP port upsd answers on, defaulting to the standard
// NUT port.
func (c *Config) StatusPort() int {
	if c.UPSPort <= 0 {
		return 3493
	}
	return c.UPSPort
}
