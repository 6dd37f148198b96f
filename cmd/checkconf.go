package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/supervisor"
	"github.com/leekd123/nutify/internal/topology"
)

// CreateCheckconfCmd creates the checkconf command.
func CreateCheckconfCmd() *cobra.Command {
	var confDir string
	var modeOverride string

	cmd := &cobra.Command{
		Use:   "checkconf",
		Short: "Validate the NUT configuration files",
		Long: `Runs the same checks the supervisor performs at startup: required files for the ` +
			`detected mode, nut.conf MODE, ups.conf driver and port entries and upsmon.conf ` +
			`MONITOR lines. Exits non-zero when problems are found.`,
		Run: func(_ *cobra.Command, _ []string) {
			if confDir == "" {
				confDir = supervisor.DefaultConfDir
			}

			cfg := supervisor.Config{ConfDir: confDir, ModeOverride: modeOverride}
			det := topology.Detect(topology.Options{
				FlagFile: cfg.FlagFile(),
				ConfDir:  confDir,
				Override: modeOverride,
			})

			problems := nutconf.Check(confDir, det.Mode == topology.Client)
			if len(problems) == 0 {
				fmt.Printf("%s: configuration OK (%s mode, via %s)\n", confDir, det.Mode, det.Source)
				return
			}
			for _, p := range problems {
				fmt.Fprintln(os.Stderr, p)
			}
			fmt.Fprintf(os.Stderr, "%d problem(s) found in %s\n", len(problems), confDir)
			os.Exit(1)
		},
	}

	cmd.Flags().StringVar(&confDir, "conf-dir", "", "NUT configuration directory (default "+supervisor.DefaultConfDir+")")
	cmd.Flags().StringVar(&modeOverride, "mode", "", "Check for an explicit mode (server or client) instead of detecting it")

	return cmd
}
