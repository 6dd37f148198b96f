package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/pidfile"
	"github.com/leekd123/nutify/internal/probe"
	"github.com/leekd123/nutify/internal/supervisor"
	"github.com/leekd123/nutify/internal/updater"
)

const defaultUpdateRepo = "leekd123/nutify"

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var repo, runDir string
	var prerelease, checkOnly, rollback, restart bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update nutify to the latest release",
		Long: `Checks GitHub for a newer release and replaces the current binary, keeping a backup ` +
			`of the previous build for rollback. A running supervisor keeps executing the old ` +
			`image; --restart signals it through its PID file once the update is applied.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			svc, err := updater.NewService(&updater.Options{Repository: repo, Prerelease: prerelease})
			if err != nil {
				fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
				os.Exit(1)
			}
			if !svc.IsEnabled() {
				fmt.Fprintf(os.Stderr, "nutify: updates disabled: %s\n", svc.DisabledReason())
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if rollback {
				if err := svc.Rollback(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
					os.Exit(1)
				}
				fmt.Println("Previous build restored.")
				if restart {
					restartSupervisor(runDir)
				}
				return
			}

			info, err := svc.CheckForUpdate(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
				os.Exit(1)
			}
			if !info.UpdateAvailable {
				fmt.Printf("Already up to date (%s).\n", info.CurrentVersion)
				return
			}

			fmt.Printf("Update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			if checkOnly {
				if info.ReleaseURL != "" {
					fmt.Println(info.ReleaseURL)
				}
				return
			}

			if err := svc.ApplyUpdate(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Updated to %s.\n", info.LatestVersion)

			if restart {
				restartSupervisor(runDir)
			}
		},
	}

	cmd.Flags().StringVar(&repo, "repo", defaultUpdateRepo, "GitHub repository to update from")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prerelease versions")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check whether an update is available")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the previous build from backup")
	cmd.Flags().BoolVar(&restart, "restart", false, "Signal the running supervisor to restart after updating")
	cmd.Flags().StringVar(&runDir, "run-dir", "", "Runtime state directory (default "+supervisor.DefaultRunDir+")")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall update timeout")

	return cmd
}

// restartSupervisor signals the running supervisor through its PID file so
// the service manager brings it back up on the new binary.
func restartSupervisor(runDir string) {
	cfg := supervisor.Config{RunDir: runDir}
	pid, err := pidfile.Read(cfg.OwnPIDFile())
	if err != nil || !probe.PIDAlive(pid) {
		fmt.Println("No running supervisor found; the new build starts on the next launch.")
		return
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "nutify: failed to signal supervisor (pid %d): %v\n", pid, err)
		os.Exit(1)
	}
	fmt.Printf("Supervisor (pid %d) signalled to restart.\n", pid)
}
