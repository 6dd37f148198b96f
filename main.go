package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/leekd123/nutify/cmd"
	"github.com/leekd123/nutify/internal/api"
	"github.com/leekd123/nutify/internal/config"
	"github.com/leekd123/nutify/internal/events"
	"github.com/leekd123/nutify/internal/logging"
	"github.com/leekd123/nutify/internal/supervisor"
	"github.com/leekd123/nutify/internal/systemd"
	"github.com/leekd123/nutify/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// API server settings
	Host       string `help:"API listen host" default:"127.0.0.1" toml:"host" env:"HOST"`
	Port       int    `help:"API listen port" short:"p" default:"9090" toml:"port" env:"PORT"`
	APIEnabled bool   `name:"api-enabled" help:"Serve the supervision API" default:"true" toml:"api_enabled" env:"API_ENABLED"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" toml:"auth_username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth_password" env:"AUTH_PASSWORD"`

	// Logging settings
	LogLevel  string `help:"Global log level (debug, info, warn, error)" default:"info" toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format (text, json)" default:"text" toml:"log_format" env:"LOG_FORMAT"`
	LogFile   string `help:"Rotated log file path" toml:"log_file" env:"LOG_FILE"`
	Debug     bool   `help:"Force debug logging" short:"d" toml:"debug" env:"DEBUG"`

	// NUT layout
	ConfDir        string `help:"NUT configuration directory" default:"/etc/nut" toml:"nut.conf_dir" env:"CONF_DIR"`
	RunDir         string `help:"Runtime state directory" default:"/var/run/nut" toml:"nut.run_dir" env:"RUN_DIR"`
	ClientFlagFile string `help:"Remote monitoring marker file" toml:"nut.client_flag_file" env:"CLIENT_FLAG_FILE"`
	Mode           string `help:"Deployment mode override (server or client)" toml:"nut.mode" env:"MODE"`

	// UPS identity overrides
	UPSName string `name:"ups-name" help:"UPS name override" toml:"ups.name" env:"UPS_NAME"`
	UPSHost string `name:"ups-host" help:"UPS host override" toml:"ups.host" env:"UPS_HOST"`
	UPSPort int    `name:"ups-port" help:"upsd TCP port" default:"3493" toml:"ups.port" env:"UPS_PORT"`

	// Virtual UPS fallback
	DummyEnabled     bool   `help:"Fall back to a virtual UPS when the driver fails" toml:"dummy.enabled" env:"DUMMY_ENABLED"`
	DummyName        string `help:"Virtual UPS name" default:"dummy" toml:"dummy.name" env:"DUMMY_NAME"`
	DummyPort        string `help:"Virtual UPS device file name" default:"nutify-dummy.dev" toml:"dummy.port" env:"DUMMY_PORT"`
	DummyDescription string `help:"Virtual UPS description" default:"Virtual UPS" toml:"dummy.description" env:"DUMMY_DESCRIPTION"`

	// Service commands
	DriverStartCommand   string `help:"Driver start command" default:"upsdrvctl start" toml:"driver.start_command" env:"DRIVER_START_COMMAND"`
	DriverVerboseCommand string `help:"Driver verbose start command" default:"upsdrvctl -D start" toml:"driver.verbose_command" env:"DRIVER_VERBOSE_COMMAND"`
	DriverStopCommand    string `help:"Driver stop command, empty stops by signal" toml:"driver.stop_command" env:"DRIVER_STOP_COMMAND"`
	UpsdCommand          string `help:"upsd command" default:"upsd -F" toml:"upsd.command" env:"UPSD_COMMAND"`
	UpsmonCommand        string `help:"upsmon command" default:"upsmon -F" toml:"upsmon.command" env:"UPSMON_COMMAND"`
	DashboardCommand     string `help:"Dashboard command" default:"nutify-web" toml:"dashboard.command" env:"DASHBOARD_COMMAND"`

	// Dashboard probing
	DashboardPort        int  `help:"Dashboard HTTP port" default:"5050" toml:"dashboard.port" env:"DASHBOARD_PORT"`
	DashboardHTTPSPort   int  `name:"dashboard-https-port" help:"Dashboard HTTPS port" default:"5051" toml:"dashboard.https_port" env:"DASHBOARD_HTTPS_PORT"`
	DashboardTLS         bool `name:"dashboard-tls" help:"Dashboard serves TLS" toml:"dashboard.tls" env:"DASHBOARD_TLS"`
	DashboardAutoRestart bool `help:"Restart the dashboard when it dies" toml:"dashboard.auto_restart" env:"DASHBOARD_AUTO_RESTART"`

	// Health cadences
	HealthInterval string `help:"Liveness check interval" default:"10s" toml:"health.interval" env:"HEALTH_INTERVAL"`
	DeepInterval   string `help:"Deep UPS check interval" default:"60s" toml:"health.deep_interval" env:"DEEP_INTERVAL"`
}

func main() {
	var root *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		if opts.Debug {
			opts.LogLevel = "debug"
		}
		logging.Initialize(logging.Config{
			Level:  opts.LogLevel,
			Format: opts.LogFormat,
			File:   opts.LogFile,
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		// Buffered log lines flow onto the bus for the SSE log stream.
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		sup, err := supervisor.New(supervisorConfig(opts), eventBus, version.String())
		if err != nil {
			logger.Error("Supervisor initialization failed", "error", err)
			os.Exit(1)
		}

		var server *api.Server
		if opts.APIEnabled {
			server = api.NewServer(&api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Supervisor:        sup,
				EventBus:          eventBus,
				PrometheusHandler: promhttp.Handler(),
			})
		}

		// Level changes in the config file take effect without a restart.
		logWatcher := config.NewConfigWatcher(
			opts.Config,
			func(path string) (logging.Config, error) {
				return config.LoadLoggingConfig(path), nil
			},
			logger,
		)
		logWatcher.OnReload(func(lc logging.Config) {
			logger.Info("Reloading log levels", "level", lc.Level)
			logging.Reload(lc)
		})

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if startErr := sup.Start(ctx); startErr != nil {
				logger.Error("Failed to start the NUT services", "error", startErr)
				os.Exit(1)
			}

			addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
			summary := sup.Summary()
			if server != nil {
				summary.APIURL = fmt.Sprintf("http://%s/api", addr)
			}
			supervisor.NewReporter(os.Stdout).Print(summary)

			systemd.NotifyReady()
			systemd.NotifyStatus("supervising %d services (%s mode)", len(summary.Services), summary.Mode)
			sup.Health.Watchdog = systemd.Watchdog()

			go sup.Run(ctx)
			sup.WatchHangup(ctx)

			if watchErr := logWatcher.Start(); watchErr != nil {
				logger.Warn("Config watcher failed to start, hot reload disabled", "error", watchErr)
			}

			if server != nil {
				logger.Info("Starting API server", "addr", addr)
				if startErr := server.Start(addr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
					logger.Error("Failed to start API server", "error", startErr)
					os.Exit(1)
				}
			}
		})

		hooks.OnStop(func() {
			systemd.NotifyStopping()
			cancel()
			_ = logWatcher.Stop()
			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping API server", "error", stopErr)
				}
			}
			sup.Shutdown()
		})
	})

	root = cli.Root()
	root.AddCommand(cmd.CreateStatusCmd())
	root.AddCommand(cmd.CreateCheckconfCmd())
	root.AddCommand(cmd.CreateUpdateCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

func supervisorConfig(opts *Options) supervisor.Config {
	return supervisor.Config{
		ConfDir:        opts.ConfDir,
		RunDir:         opts.RunDir,
		ClientFlagFile: opts.ClientFlagFile,
		ModeOverride:   opts.Mode,

		UPSName: opts.UPSName,
		UPSHost: opts.UPSHost,
		UPSPort: opts.UPSPort,

		DummyEnabled:     opts.DummyEnabled,
		DummyName:        opts.DummyName,
		DummyPort:        opts.DummyPort,
		DummyDescription: opts.DummyDescription,

		DriverStartCommand:   opts.DriverStartCommand,
		DriverVerboseCommand: opts.DriverVerboseCommand,
		DriverStopCommand:    opts.DriverStopCommand,
		UpsdCommand:          opts.UpsdCommand,
		UpsmonCommand:        opts.UpsmonCommand,
		DashboardCommand:     opts.DashboardCommand,

		DashboardPort:        opts.DashboardPort,
		DashboardHTTPSPort:   opts.DashboardHTTPSPort,
		DashboardTLS:         opts.DashboardTLS,
		DashboardAutoRestart: opts.DashboardAutoRestart,

		HealthInterval: parseInterval(opts.HealthInterval, 10*time.Second),
		DeepInterval:   parseInterval(opts.DeepInterval, 60*time.Second),
	}
}

func parseInterval(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
