package system

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// Notifier reports readiness, status and watchdog pings to systemd. Outside
// a notify-type unit every call is a no-op.
type Notifier struct {
	interval time.Duration
	last     time.Time
	status   string
}

// NewNotifier reads the watchdog interval from the environment.
func NewNotifier() *Notifier {
	n := &Notifier{}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logging.Warn("Invalid systemd watchdog settings", zap.Error(err))
	}
	if interval > 0 {
		n.interval = interval / 2
	}
	return n
}

// WatchdogInterval is how often Watchdog pings, zero when disabled.
func (n *Notifier) WatchdogInterval() time.Duration {
	return n.interval
}

func (n *Notifier) notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logging.Debug("sd_notify failed", zap.String("state", state), zap.Error(err))
	}
}

// Ready tells the service manager startup is complete.
func (n *Notifier) Ready() {
	n.notify(daemon.SdNotifyReady)
}

// Stopping tells the service manager shutdown has begun.
func (n *Notifier) Stopping() {
	n.notify(daemon.SdNotifyStopping)
}

// Status sets the unit's status line when it changed.
func (n *Notifier) Status(status string) {
	if status == n.status {
		return
	}
	n.status = status
	n.notify("STATUS=" + status)
}

// Watchdog pings when half the watchdog interval elapsed since the last ping.
// It reports whether a ping was sent.
func (n *Notifier) Watchdog(now time.Time) bool {
	if n.interval <= 0 || now.Sub(n.last) < n.interval {
		return false
	}
	n.last = now
	n.notify(daemon.SdNotifyWatchdog)
	return true
}
