package nutconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DummySpec describes the virtual UPS used when the hardware driver cannot
// be started and a dummy fallback is configured.
type DummySpec struct {
	Name        string // ups.conf section name
	Port        string // dummy-ups device file, absolute or relative to the config dir
	Description string
}

// Section returns the ups.conf section for the dummy driver. Pure; the
// device path must already be resolved by the caller.
func (d DummySpec) Section(devicePath string) UPSSection {
	return UPSSection{
		Name: d.Name,
		Directives: []Directive{
			{Key: "driver", Value: "dummy-ups", HasValue: true},
			{Key: "port", Value: devicePath, HasValue: true},
			{Key: "desc", Value: d.Description, HasValue: true},
		},
	}
}

// DeviceFileContent returns the dummy-ups device file seeding a healthy UPS.
// dummy-ups replays these "variable: value" lines as live readings.
func (d DummySpec) DeviceFileContent() string {
	var b strings.Builder
	b.WriteString("# Virtual UPS device generated by nutify\n")
	b.WriteString("ups.mfr: Nutify\n")
	fmt.Fprintf(&b, "ups.model: %s\n", d.Description)
	b.WriteString("ups.status: OL\n")
	b.WriteString("battery.charge: 100\n")
	b.WriteString("battery.runtime: 3600\n")
	b.WriteString("input.voltage: 230.0\n")
	b.WriteString("output.voltage: 230.0\n")
	b.WriteString("ups.load: 25\n")
	return b.String()
}

// DevicePath resolves Port to the on-disk device file path.
func (d DummySpec) DevicePath(confDir string) string {
	if filepath.IsAbs(d.Port) {
		return d.Port
	}
	return filepath.Join(confDir, d.Port)
}

// WriteDummyConfig rewrites ups.conf so the dummy section is the only
// configured UPS and writes its device file. The previous contents are not
// authoritative after a hardware-driver failure; the next successful real
// driver setup overwrites this fragment. Returns the device file path.
func WriteDummyConfig(confDir string, spec DummySpec) (string, error) {
	devicePath := spec.DevicePath(confDir)
	if err := os.WriteFile(devicePath, []byte(spec.DeviceFileContent()), 0644); err != nil {
		return "", fmt.Errorf("failed to write dummy device file: %w", err)
	}

	confPath := filepath.Join(confDir, UPSConfFile)
	existing, err := LoadUPSConf(confPath)
	if err != nil {
		return "", err
	}
	conf := &UPSConf{
		Global:   existing.Global,
		Sections: []UPSSection{spec.Section(devicePath)},
	}
	if err := conf.WriteToFile(confPath); err != nil {
		return "", err
	}
	return devicePath, nil
}
