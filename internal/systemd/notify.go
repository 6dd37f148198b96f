// Package systemd integrates the supervisor with the service manager when
// it runs as a systemd unit: readiness notification, status strings and
// watchdog pings. Every call degrades to a no-op outside systemd, where
// the notification socket simply does not exist.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/leekd123/nutify/internal/logging"
)

// NotifyReady tells systemd the supervisor finished launching its services.
func NotifyReady() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logging.GetLogger("systemd").Warn("Failed to notify systemd readiness", "error", err)
		return
	}
	if sent {
		logging.GetLogger("systemd").Debug("Notified systemd readiness")
	}
}

// NotifyStopping tells systemd a shutdown is in progress.
func NotifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// NotifyStatus publishes a one-line status shown by systemctl status.
func NotifyStatus(format string, args ...any) {
	_, _ = daemon.SdNotify(false, "STATUS="+fmt.Sprintf(format, args...))
}

// Watchdog returns a ping function when the unit has WatchdogSec
// configured, nil otherwise. The caller must invoke the function at least
// twice per watchdog interval; the supervisor pings from its fast health
// tick, so WatchdogSec has to be comfortably above the health interval.
func Watchdog() func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logging.GetLogger("systemd").Warn("Failed to query systemd watchdog", "error", err)
		return nil
	}
	if interval == 0 {
		return nil
	}
	logging.GetLogger("systemd").Info("Systemd watchdog enabled", "interval", interval)
	return func() {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	}
}
