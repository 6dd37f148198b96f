// Package cmd holds the nutify subcommands. The long-running supervisor
// itself is wired up in main; everything here is a one-shot tool sharing
// its packages.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/nutclient"
	"github.com/leekd123/nutify/internal/supervisor"
	"github.com/leekd123/nutify/internal/version"
)

type serviceReport struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	PID       int    `json:"pid,omitempty"`
	Adopted   bool   `json:"adopted,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type statusReport struct {
	Version    string          `json:"version"`
	Mode       string          `json:"mode"`
	ModeSource string          `json:"mode_source"`
	UPS        string          `json:"ups"`
	UsingDummy bool            `json:"using_dummy"`
	ConfDir    string          `json:"conf_dir"`
	UPSStatus  string          `json:"ups_status,omitempty"`
	UPSError   string          `json:"ups_error,omitempty"`
	Services   []serviceReport `json:"services"`
}

// CreateStatusCmd creates the status command.
func CreateStatusCmd() *cobra.Command {
	var confDir, runDir, upsName, upsHost string
	var upsPort int
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the state of the NUT services and the UPS",
		Long: `Probes each supervised service and queries the UPS once, then prints the result. ` +
			`Nothing is started or restarted, so it is safe to run next to a live supervisor.`,
		Run: func(_ *cobra.Command, _ []string) {
			// Module logs would interleave with the report, keep them down.
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			cfg := supervisor.Config{
				ConfDir: confDir,
				RunDir:  runDir,
				UPSName: upsName,
				UPSHost: upsHost,
				UPSPort: upsPort,
			}
			sup, err := supervisor.New(cfg, nil, version.String())
			if err != nil {
				fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
				os.Exit(1)
			}

			sup.Manager.Observe()
			summary := sup.Summary()

			ups := sup.Manager.Identity()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			status, qerr := nutclient.New(ups.Host, cfg.StatusPort()).Status(ctx, ups.Name)
			if cerr := nutclient.ClassifyCommError(qerr, sup.Mode.Mode); cerr != nil {
				summary.UPSError = cerr.Error()
			} else if qerr == nil {
				summary.UPSStatus = status
			}

			if asJSON {
				printStatusJSON(summary)
				return
			}
			supervisor.NewReporter(os.Stdout).Print(summary)
		},
	}

	cmd.Flags().StringVar(&confDir, "conf-dir", "", "NUT configuration directory (default "+supervisor.DefaultConfDir+")")
	cmd.Flags().StringVar(&runDir, "run-dir", "", "Runtime state directory (default "+supervisor.DefaultRunDir+")")
	cmd.Flags().StringVar(&upsName, "ups-name", "", "Override the UPS name to query")
	cmd.Flags().StringVar(&upsHost, "ups-host", "", "Override the UPS host to query")
	cmd.Flags().IntVar(&upsPort, "ups-port", 0, "upsd port (default 3493)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "UPS query timeout")

	return cmd
}

func printStatusJSON(s supervisor.Summary) {
	report := statusReport{
		Version:    s.Version,
		Mode:       s.Mode.String(),
		ModeSource: s.ModeSource,
		UPS:        s.UPS.String(),
		UsingDummy: s.UsingDummy,
		ConfDir:    s.ConfDir,
		UPSStatus:  s.UPSStatus,
		UPSError:   s.UPSError,
	}
	for _, st := range s.Services {
		report.Services = append(report.Services, serviceReport{
			Name:      st.Name,
			Status:    string(st.Status),
			PID:       st.PID,
			Adopted:   st.Adopted,
			LastError: st.LastError,
		})
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
