package nutconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingConfig marks the fatal condition where required NUT configuration
// files are absent before launch.
var ErrMissingConfig = errors.New("missing required NUT configuration")

// RequiredFiles lists the config files that must exist before any launch is
// attempted. A client only runs upsmon; a server runs the full stack.
func RequiredFiles(client bool) []string {
	if client {
		return []string{UpsmonConfFile}
	}
	return []string{UPSConfFile, UpsdConfFile, UpsdUsersFile, UpsmonConfFile}
}

// ValidateRequired reports all missing required files as one error.
func ValidateRequired(confDir string, client bool) error {
	var missing []string
	for _, name := range RequiredFiles(client) {
		if _, err := os.Stat(filepath.Join(confDir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not found in %s", ErrMissingConfig, strings.Join(missing, ", "), confDir)
	}
	return nil
}

// Check runs the syntactic and semantic checks behind the checkconf
// subcommand and returns one message per problem found.
func Check(confDir string, client bool) []string {
	var problems []string
	for _, name := range RequiredFiles(client) {
		if _, err := os.Stat(filepath.Join(confDir, name)); err != nil {
			problems = append(problems, fmt.Sprintf("%s: required file missing", name))
		}
	}

	if directives, err := LoadNutConf(filepath.Join(confDir, NutConfFile)); err != nil {
		problems = append(problems, fmt.Sprintf("%s: %v", NutConfFile, err))
	} else if mode, ok := directives["MODE"]; ok {
		switch mode {
		case "netserver", "netclient", "standalone", "none":
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown MODE value %q", NutConfFile, mode))
		}
	}

	if !client {
		ups, err := LoadUPSConf(filepath.Join(confDir, UPSConfFile))
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", UPSConfFile, err))
		case len(ups.Sections) == 0:
			problems = append(problems, fmt.Sprintf("%s: no UPS sections configured", UPSConfFile))
		default:
			for _, s := range ups.Sections {
				if s.Driver() == "" {
					problems = append(problems, fmt.Sprintf("%s: section [%s] has no driver", UPSConfFile, s.Name))
				}
				if s.Port() == "" {
					problems = append(problems, fmt.Sprintf("%s: section [%s] has no port", UPSConfFile, s.Name))
				}
			}
		}
	}

	mon, err := LoadUpsmonConf(filepath.Join(confDir, UpsmonConfFile))
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("%s: %v", UpsmonConfFile, err))
	case len(mon.Monitors) == 0:
		problems = append(problems, fmt.Sprintf("%s: no MONITOR lines", UpsmonConfFile))
	default:
		for _, m := range mon.Monitors {
			switch m.Type {
			case "primary", "secondary", "master", "slave":
			case "":
				problems = append(problems, fmt.Sprintf("%s: MONITOR %s has no type", UpsmonConfFile, m.System()))
			default:
				problems = append(problems, fmt.Sprintf("%s: MONITOR %s has unknown type %q", UpsmonConfFile, m.System(), m.Type))
			}
		}
	}

	return problems
}
