package supervisor

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/probe"
)

func TestBuildDescriptorsOrderAndDefaults(t *testing.T) {
	cfg := testConfig(t)
	ups := nutconf.UPSIdentity{Name: "ups", Host: "localhost"}
	descs := BuildDescriptors(cfg, ups, &captureLogger{})

	if len(descs) != 4 {
		t.Fatalf("Got %d descriptors, want 4", len(descs))
	}
	order := []string{ServiceDriver, ServiceUpsd, ServiceUpsmon, ServiceDashboard}
	for i, name := range order {
		if descs[i].Name != name {
			t.Errorf("Descriptor[%d] = %s, want %s", i, descs[i].Name, name)
		}
	}

	driver := descs[0]
	if driver.Style != StyleForking {
		t.Error("Driver should be forking style")
	}
	if driver.Command != "upsdrvctl start" || driver.VerboseCommand != "upsdrvctl -D start" {
		t.Errorf("Driver commands = %q / %q", driver.Command, driver.VerboseCommand)
	}
	if driver.StopCommand != "upsdrvctl stop" {
		t.Errorf("Driver stop command = %q", driver.StopCommand)
	}
	if !driver.SkipInClient || !driver.AutoRestart {
		t.Error("Driver should be server-only and auto-restarted")
	}

	upsd := descs[1]
	if upsd.Command != "upsd -F" || !upsd.SkipInClient {
		t.Errorf("upsd = %q skip=%v", upsd.Command, upsd.SkipInClient)
	}
	if upsd.PIDFile != filepath.Join(cfg.RunDir, "upsd.pid") {
		t.Errorf("upsd PID file = %q", upsd.PIDFile)
	}

	upsmon := descs[2]
	if upsmon.Command != "upsmon -F" || upsmon.SkipInClient {
		t.Errorf("upsmon = %q skip=%v", upsmon.Command, upsmon.SkipInClient)
	}

	dash := descs[3]
	if !dash.Optional {
		t.Error("Dashboard must be optional")
	}
	if dash.AutoRestart {
		t.Error("Dashboard auto-restart defaults to off")
	}

	cfg.DashboardAutoRestart = true
	dash = BuildDescriptors(cfg, ups, &captureLogger{})[3]
	if !dash.AutoRestart {
		t.Error("Dashboard auto-restart should follow the config switch")
	}
}

func TestDriverPIDFilesFollowUPSConf(t *testing.T) {
	cfg := testConfig(t)
	upsConfPath := filepath.Join(cfg.ConfDir, nutconf.UPSConfFile)

	conf := &nutconf.UPSConf{}
	sec := &nutconf.UPSSection{Name: "ups"}
	sec.Set("driver", "usbhid-ups")
	sec.Set("port", "auto")
	conf.SetSection(*sec)
	if err := conf.WriteToFile(upsConfPath); err != nil {
		t.Fatal(err)
	}

	d := driverDescriptor(cfg, nutconf.UPSIdentity{Name: "ups", Host: "localhost"})
	got := d.PIDFiles()
	want := []string{filepath.Join(cfg.RunDir, "usbhid-ups-ups.pid")}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("PIDFiles = %v, want %v", got, want)
	}

	// The candidates must track the file on disk, not a snapshot from
	// descriptor build time.
	if _, err := nutconf.WriteDummyConfig(cfg.ConfDir, nutconf.DummySpec{Name: "virt", Port: "virt.dev", Description: "Virtual UPS"}); err != nil {
		t.Fatal(err)
	}
	got = d.PIDFiles()
	want = []string{filepath.Join(cfg.RunDir, "dummy-ups-virt.pid")}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("PIDFiles after dummy rewrite = %v, want %v", got, want)
	}
}

func TestPidProbeStates(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "svc.pid")

	p := pidProbe(pf, "zzz-no-such-process")
	if got := p(); got != probe.NotRunning {
		t.Errorf("Missing PID file probe = %v, want not running", got)
	}

	writeDeadPIDFile(t, pf)
	if got := p(); got != probe.NotRunning {
		t.Errorf("Dead PID probe = %v, want not running", got)
	}

	writeLivePIDFile(t, pf)
	if got := p(); got != probe.Running {
		t.Errorf("Live PID probe = %v, want running", got)
	}
}

func TestDashboardProbeDowngradesPortFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.DashboardPort = closedPort(t)
	log := &captureLogger{}
	d := dashboardDescriptor(cfg, log)

	// Nothing alive at all: not running, no downgrade.
	if got := d.Probe(); got != probe.NotRunning {
		t.Errorf("Probe with no process = %v, want not running", got)
	}

	// Alive process with a dead port downgrades to running with a warning.
	writeLivePIDFile(t, filepath.Join(cfg.RunDir, dashboardPIDName))
	if got := d.Probe(); got != probe.Running {
		t.Errorf("Probe with live process and dead port = %v, want running", got)
	}
	if !log.has("warn", "port is not answering") {
		t.Error("Expected a warning about the dead port")
	}
}

func TestDashboardProbeHealthyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	cfg := testConfig(t)
	cfg.DashboardPort = ln.Addr().(*net.TCPAddr).Port
	log := &captureLogger{}
	d := dashboardDescriptor(cfg, log)
	writeLivePIDFile(t, filepath.Join(cfg.RunDir, dashboardPIDName))

	if got := d.Probe(); got != probe.Running {
		t.Errorf("Probe = %v, want running", got)
	}
	if log.has("warn", "port is not answering") {
		t.Error("No warning expected when the port answers")
	}
}

func TestDashboardProbePortFollowsTLS(t *testing.T) {
	cfg := testConfig(t)
	cfg.DashboardPort = 5050
	cfg.DashboardHTTPSPort = 5051

	if got := cfg.DashboardProbePort(); got != 5050 {
		t.Errorf("Probe port = %d, want 5050", got)
	}
	cfg.DashboardTLS = true
	if got := cfg.DashboardProbePort(); got != 5051 {
		t.Errorf("Probe port with TLS = %d, want 5051", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	if cfg.FlagFile() != filepath.Join(DefaultConfDir, ClientFlagName) {
		t.Errorf("FlagFile = %q", cfg.FlagFile())
	}
	if cfg.OwnPIDFile() != filepath.Join(DefaultRunDir, OwnPIDName) {
		t.Errorf("OwnPIDFile = %q", cfg.OwnPIDFile())
	}
	if cfg.StatusPort() != 3493 {
		t.Errorf("StatusPort = %d, want 3493", cfg.StatusPort())
	}
	if cfg.healthInterval().Seconds() != 10 || cfg.deepInterval().Seconds() != 60 {
		t.Errorf("Intervals = %v / %v", cfg.healthInterval(), cfg.deepInterval())
	}

	custom := Config{ClientFlagFile: "/tmp/flag"}
	if custom.FlagFile() != "/tmp/flag" {
		t.Errorf("Explicit flag file = %q", custom.FlagFile())
	}
}

func TestFirstField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"nutify-web", "nutify-web"},
		{"/usr/bin/nutify-web --port 5050", "/usr/bin/nutify-web"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstField(tt.in); got != tt.want {
			t.Errorf("firstField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
