package nutconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDummySpecSection(t *testing.T) {
	spec := DummySpec{Name: "dummy", Port: "nutify-dummy.dev", Description: "Virtual UPS"}
	s := spec.Section("/etc/nut/nutify-dummy.dev")

	if s.Name != "dummy" {
		t.Errorf("Name = %q, want dummy", s.Name)
	}
	if s.Driver() != "dummy-ups" {
		t.Errorf("driver = %q, want dummy-ups", s.Driver())
	}
	if s.Port() != "/etc/nut/nutify-dummy.dev" {
		t.Errorf("port = %q", s.Port())
	}
}

func TestDummyDeviceFileContent(t *testing.T) {
	spec := DummySpec{Name: "dummy", Port: "d.dev", Description: "Virtual UPS"}
	content := spec.DeviceFileContent()

	for _, want := range []string{"ups.status: OL", "battery.charge: 100", "ups.model: Virtual UPS"} {
		if !strings.Contains(content, want) {
			t.Errorf("Device file missing %q:\n%s", want, content)
		}
	}
}

func TestWriteDummyConfigReplacesHardwareSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, UPSConfFile, `maxretry = 3

[ups]
	driver = usbhid-ups
	port = auto
`)

	spec := DummySpec{Name: "dummy", Port: "nutify-dummy.dev", Description: "Virtual UPS"}
	devicePath, err := WriteDummyConfig(dir, spec)
	if err != nil {
		t.Fatalf("WriteDummyConfig failed: %v", err)
	}

	if _, err := os.Stat(devicePath); err != nil {
		t.Errorf("Device file not written: %v", err)
	}

	conf, err := LoadUPSConf(filepath.Join(dir, UPSConfFile))
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(conf.Sections) != 1 {
		t.Fatalf("Expected only the dummy section, got %d sections", len(conf.Sections))
	}
	if conf.First().Name != "dummy" || conf.First().Driver() != "dummy-ups" {
		t.Errorf("Rewritten config names %s/%s, want dummy/dummy-ups",
			conf.First().Name, conf.First().Driver())
	}
	if len(conf.Global) != 1 || conf.Global[0].Key != "maxretry" {
		t.Errorf("Global directives should survive the rewrite, got %#v", conf.Global)
	}
}

func TestWriteDummyConfigAbsolutePort(t *testing.T) {
	dir := t.TempDir()
	devDir := t.TempDir()
	abs := filepath.Join(devDir, "custom.dev")

	spec := DummySpec{Name: "dummy", Port: abs, Description: "Virtual UPS"}
	devicePath, err := WriteDummyConfig(dir, spec)
	if err != nil {
		t.Fatalf("WriteDummyConfig failed: %v", err)
	}
	if devicePath != abs {
		t.Errorf("Device path = %q, want %q", devicePath, abs)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Errorf("Device file not written at absolute path: %v", err)
	}
}
