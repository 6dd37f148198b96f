// Package topology decides whether this node is a UPS server (owns the local
// driver and upsd) or a client of a remote status server. The decision is
// made once at startup and is read-only afterwards; changing it requires a
// supervisor restart.
package topology

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutconf"
)

// Mode is the deployment topology.
type Mode int

const (
	// Server nodes run the full NUT stack: driver, upsd and upsmon.
	Server Mode = iota
	// Client nodes only run upsmon against a remote upsd; no local driver.
	Client
)

func (m Mode) String() string {
	if m == Client {
		return "client"
	}
	return "server"
}

// EnvVar overrides the topology directly, independent of the generic
// configuration environment mapping. Values follow nut.conf MODE vocabulary.
const EnvVar = "NUTIFY_UPS_MODE"

// Detection is the detector's result plus which input decided it.
type Detection struct {
	Mode   Mode
	Source string
}

// Options are the detector's inputs.
type Options struct {
	// FlagFile marks client deployments by its presence; its content is
	// ignored. Written by the provisioning step, not by the supervisor.
	FlagFile string
	// ConfDir holds nut.conf with its MODE directive.
	ConfDir string
	// Override is the explicit nut.mode configuration option.
	Override string
}

// Detect resolves the deployment mode. Precedence, first match wins:
// flag file presence (client), explicit configuration override, the
// environment override, the nut.conf MODE directive, then server by
// default. The flag file outranks everything because it is the most
// deliberately set signal; nut.conf may be stale from a prior run.
func Detect(opts Options) Detection {
	logger := logging.GetLogger("topology")

	if opts.FlagFile != "" {
		if _, err := os.Stat(opts.FlagFile); err == nil {
			return Detection{Mode: Client, Source: "flag file"}
		}
	}

	if opts.Override != "" {
		if mode, ok := parseMode(opts.Override); ok {
			return Detection{Mode: mode, Source: "config override"}
		}
		logger.Warn("Ignoring unknown nut.mode value", "value", opts.Override)
	}

	if env := os.Getenv(EnvVar); env != "" {
		if mode, ok := parseMode(env); ok {
			return Detection{Mode: mode, Source: "environment"}
		}
		logger.Warn("Ignoring unknown mode in environment", "var", EnvVar, "value", env)
	}

	directives, err := nutconf.LoadNutConf(filepath.Join(opts.ConfDir, nutconf.NutConfFile))
	if err != nil {
		logger.Warn("Failed to read nut.conf for mode detection", "error", err)
	} else if directive, ok := directives["MODE"]; ok && directive != "" {
		if mode, ok := parseMode(directive); ok {
			return Detection{Mode: mode, Source: "nut.conf"}
		}
		logger.Warn("Ignoring unknown MODE directive in nut.conf", "value", directive)
	}

	return Detection{Mode: Server, Source: "default"}
}

// parseMode maps the nut.conf MODE vocabulary onto a topology.
func parseMode(s string) (Mode, bool) {
	switch s {
	case "netserver", "server", "standalone":
		return Server, true
	case "netclient", "client":
		return Client, true
	default:
		return Server, false
	}
}

// ParseMode is the exported form used by configuration validation.
func ParseMode(s string) (Mode, error) {
	mode, ok := parseMode(s)
	if !ok {
		return Server, fmt.Errorf("unknown deployment mode %q", s)
	}
	return mode, nil
}
