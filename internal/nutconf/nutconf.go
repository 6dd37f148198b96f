// Package nutconf reads and writes the NUT configuration files the supervisor
// depends on: nut.conf (deployment mode directive), ups.conf (driver sections)
// and upsmon.conf (MONITOR lines). upsd.conf and upsd.users are validated for
// presence only; upsd owns their contents.
//
// Parsing is tolerant: unknown directives are preserved, comments and blank
// lines are skipped, and values may be double-quoted.
package nutconf

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Well-known file names inside the NUT configuration directory.
const (
	NutConfFile    = "nut.conf"
	UPSConfFile    = "ups.conf"
	UpsdConfFile   = "upsd.conf"
	UpsdUsersFile  = "upsd.users"
	UpsmonConfFile = "upsmon.conf"
)

// LoadNutConf parses the KEY=VALUE directives of nut.conf.
// A missing file yields an empty map, not an error.
func LoadNutConf(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	directives := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		directives[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return directives, nil
}

// stripComment removes a trailing # comment unless the # sits inside quotes.
func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// unquote strips one pair of surrounding double quotes.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// quoteIfNeeded wraps a value in double quotes when it contains whitespace
// or is empty, the way NUT config files expect.
func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// splitQuoted splits a directive line into fields, honoring double-quoted
// tokens with embedded spaces (upsmon.conf passwords, descriptions).
// A quoted empty string is a valid field.
func splitQuoted(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	quoted := false
	flush := func() {
		if cur.Len() > 0 || quoted {
			fields = append(fields, cur.String())
			cur.Reset()
		}
		quoted = false
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			quoted = true
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}
