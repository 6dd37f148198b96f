package supervisor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/topology"
)

func TestReporterPrintsSummaryBlock(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Print(Summary{
		Version:    "1.2.3",
		Mode:       topology.Server,
		ModeSource: "nut.conf",
		UPS:        nutconf.UPSIdentity{Name: "ups", Host: "localhost"},
		ConfDir:    "/etc/nut",
		Services: []ServiceState{
			{Name: ServiceUpsd, Status: StatusRunning, PID: 42},
			{Name: ServiceDashboard, Status: StatusFailed},
		},
		DashboardURL: "http://127.0.0.1:5050",
		APIURL:       "http://127.0.0.1:9090",
	})
	out := buf.String()

	for _, want := range []string{
		"nutify 1.2.3",
		"Mode:      server (via nut.conf)",
		"UPS:       ups@localhost",
		"Config:    /etc/nut",
		"pid 42",
		"pid -",
		"http://127.0.0.1:5050",
		"http://127.0.0.1:9090",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "virtual UPS") {
		t.Error("Dummy notice should only show when the fallback is active")
	}
}

func TestReporterShowsLiveUPSStatus(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Print(Summary{UPSStatus: "OL CHRG"})
	if !strings.Contains(buf.String(), "Status:    OL CHRG") {
		t.Errorf("Missing live status line:\n%s", buf.String())
	}

	buf.Reset()
	r.Print(Summary{UPSStatus: "OL", UPSError: "connection refused"})
	out := buf.String()
	if !strings.Contains(out, "Status:    unreachable (connection refused)") {
		t.Errorf("Missing unreachable line:\n%s", out)
	}
	if strings.Contains(out, "Status:    OL\n") {
		t.Error("Error should win over a stale status value")
	}
}

func TestReporterShowsDummyNoticeAndAdoption(t *testing.T) {
	var buf bytes.Buffer
	NewReporter(&buf).Print(Summary{
		Version:    "dev",
		Mode:       topology.Server,
		ModeSource: "default",
		UPS:        nutconf.UPSIdentity{Name: "virt", Host: "localhost"},
		UsingDummy: true,
		ConfDir:    "/etc/nut",
		Services: []ServiceState{
			{Name: ServiceUpsmon, Status: StatusRunning, PID: 7, Adopted: true},
		},
	})
	out := buf.String()

	if !strings.Contains(out, "virtual UPS in use") {
		t.Errorf("Missing dummy notice:\n%s", out)
	}
	if !strings.Contains(out, "(adopted)") {
		t.Errorf("Missing adoption marker:\n%s", out)
	}
	if strings.Contains(out, "Dashboard:") {
		t.Error("Dashboard line should be omitted when no URL is set")
	}
}
