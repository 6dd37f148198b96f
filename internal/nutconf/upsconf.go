package nutconf

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Directive is one key/value line of a NUT config file. Flag directives
// (no "=") carry only a key.
type Directive struct {
	Key      string
	Value    string
	HasValue bool
}

// UPSSection is one [name] block of ups.conf describing a single UPS driver.
type UPSSection struct {
	Name       string
	Directives []Directive
}

// Get returns the value of a directive inside the section.
func (s *UPSSection) Get(key string) (string, bool) {
	for _, d := range s.Directives {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

// Set replaces a directive's value, appending it when absent.
func (s *UPSSection) Set(key, value string) {
	for i, d := range s.Directives {
		if d.Key == key {
			s.Directives[i].Value = value
			s.Directives[i].HasValue = true
			return
		}
	}
	s.Directives = append(s.Directives, Directive{Key: key, Value: value, HasValue: true})
}

// Driver returns the section's driver directive ("" when absent).
func (s *UPSSection) Driver() string {
	v, _ := s.Get("driver")
	return v
}

// Port returns the section's port directive ("" when absent).
func (s *UPSSection) Port() string {
	v, _ := s.Get("port")
	return v
}

// UPSConf is the parsed ups.conf: global directives followed by one section
// per configured UPS. Section and directive order is preserved across a
// load/write round trip.
type UPSConf struct {
	Global   []Directive
	Sections []UPSSection
}

// LoadUPSConf parses ups.conf. A missing file yields an empty configuration,
// not an error; required-file validation happens separately.
func LoadUPSConf(path string) (*UPSConf, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UPSConf{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	conf := &UPSConf{}
	var cur *UPSSection
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			conf.Sections = append(conf.Sections, UPSSection{
				Name: strings.TrimSpace(line[1 : len(line)-1]),
			})
			cur = &conf.Sections[len(conf.Sections)-1]
			continue
		}
		d := parseDirective(line)
		if cur != nil {
			cur.Directives = append(cur.Directives, d)
		} else {
			conf.Global = append(conf.Global, d)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return conf, nil
}

func parseDirective(line string) Directive {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return Directive{Key: strings.TrimSpace(line)}
	}
	return Directive{
		Key:      strings.TrimSpace(key),
		Value:    unquote(strings.TrimSpace(value)),
		HasValue: true,
	}
}

// Section returns the named section, or nil.
func (c *UPSConf) Section(name string) *UPSSection {
	for i := range c.Sections {
		if c.Sections[i].Name == name {
			return &c.Sections[i]
		}
	}
	return nil
}

// First returns the first configured section, or nil when ups.conf is empty.
func (c *UPSConf) First() *UPSSection {
	if len(c.Sections) == 0 {
		return nil
	}
	return &c.Sections[0]
}

// SetSection replaces the section with the same name, appending it when absent.
func (c *UPSConf) SetSection(s UPSSection) {
	for i := range c.Sections {
		if c.Sections[i].Name == s.Name {
			c.Sections[i] = s
			return
		}
	}
	c.Sections = append(c.Sections, s)
}

// WriteToFile renders the configuration back to NUT's ups.conf format.
func (c *UPSConf) WriteToFile(path string) error {
	var buf bytes.Buffer
	for _, d := range c.Global {
		writeDirective(&buf, d, "")
	}
	for i := range c.Sections {
		if i > 0 || len(c.Global) > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "[%s]\n", c.Sections[i].Name)
		for _, d := range c.Sections[i].Directives {
			writeDirective(&buf, d, "\t")
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeDirective(buf *bytes.Buffer, d Directive, indent string) {
	if !d.HasValue {
		fmt.Fprintf(buf, "%s%s\n", indent, d.Key)
		return
	}
	fmt.Fprintf(buf, "%s%s = %s\n", indent, d.Key, quoteIfNeeded(d.Value))
}
