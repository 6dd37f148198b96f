package process

import (
	"regexp"
	"strings"
)

// LogParser extracts a log level and message from one output line.
type LogParser func(line string) (level, msg string)

// driverDebugLine matches the "   0.123456\t..." timestamps of NUT's -D
// debug stream.
var driverDebugLine = regexp.MustCompile(`^\s*\d+\.\d{6}\s`)

// NUTLogParser classifies output from the NUT tools: fatal and error lines
// surface at error level, the verbose -D stream stays at debug, everything
// else is info.
func NUTLogParser(line string) (level, msg string) {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "fatal error") || strings.HasPrefix(lower, "error:"):
		return "error", trimmed
	case strings.HasPrefix(lower, "warning"):
		return "warning", trimmed
	case driverDebugLine.MatchString(line):
		return "debug", trimmed
	default:
		return "info", trimmed
	}
}
