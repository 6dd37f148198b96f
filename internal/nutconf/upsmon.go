package nutconf

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Monitor is one MONITOR line of upsmon.conf:
// MONITOR <name>@<host>[:<port>] <powervalue> <username> <password> <type>.
type Monitor struct {
	Name       string
	Host       string
	Port       int // 0 when the line does not name one
	PowerValue int
	Username   string
	Password   string
	Type       string // primary/secondary (master/slave in older configs)
}

// System renders the monitor target back to <name>@<host> form.
func (m Monitor) System() string {
	if m.Port > 0 {
		return fmt.Sprintf("%s@%s:%d", m.Name, m.Host, m.Port)
	}
	return m.Name + "@" + m.Host
}

// UpsmonConf is the parsed upsmon.conf. Only MONITOR lines are modeled;
// the remaining directives are kept verbatim for validation and round trips.
type UpsmonConf struct {
	Monitors []Monitor
	Other    []Directive
}

// LoadUpsmonConf parses upsmon.conf. A missing file yields an empty
// configuration, not an error.
func LoadUpsmonConf(path string) (*UpsmonConf, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UpsmonConf{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	conf := &UpsmonConf{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		fields := splitQuoted(line)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "MONITOR") {
			m, err := parseMonitor(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("invalid MONITOR line %q: %w", line, err)
			}
			conf.Monitors = append(conf.Monitors, m)
			continue
		}
		conf.Other = append(conf.Other, Directive{
			Key:      fields[0],
			Value:    strings.Join(fields[1:], " "),
			HasValue: len(fields) > 1,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return conf, nil
}

func parseMonitor(fields []string) (Monitor, error) {
	if len(fields) < 4 {
		return Monitor{}, fmt.Errorf("expected at least 4 fields, got %d", len(fields))
	}
	name, hostport, ok := strings.Cut(fields[0], "@")
	if !ok || name == "" || hostport == "" {
		return Monitor{}, fmt.Errorf("system %q is not <name>@<host>", fields[0])
	}
	m := Monitor{Name: name, Host: hostport}
	if host, portStr, ok := strings.Cut(hostport, ":"); ok {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Monitor{}, fmt.Errorf("port %q is not numeric", portStr)
		}
		m.Host = host
		m.Port = port
	}
	power, err := strconv.Atoi(fields[1])
	if err != nil {
		return Monitor{}, fmt.Errorf("power value %q is not numeric", fields[1])
	}
	m.PowerValue = power
	m.Username = fields[2]
	m.Password = fields[3]
	if len(fields) > 4 {
		m.Type = fields[4]
	}
	return m, nil
}

// FirstMonitor returns the first MONITOR entry, or nil when none exist.
func (c *UpsmonConf) FirstMonitor() *Monitor {
	if len(c.Monitors) == 0 {
		return nil
	}
	return &c.Monitors[0]
}
