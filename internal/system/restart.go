package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// ExitCodeRestart is the exit status used when a restart was requested.
const ExitCodeRestart = 75

// ExitRestarter cancels the run loop so the process can exit with ExitCodeRestart.
type ExitRestarter struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	reason string
	done   bool
}

// NewExitRestarter returns a restarter that calls cancel.
func NewExitRestarter(cancel context.CancelFunc) *ExitRestarter {
	return &ExitRestarter{cancel: cancel}
}

// Restart records reason and cancels the run loop.
func (r *ExitRestarter) Restart(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	r.done = true
	r.reason = reason
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

// Requested returns the restart reason, if a restart was requested.
func (r *ExitRestarter) Requested() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason, r.done
}

const (
	login1Dest   = "org.freedesktop.login1"
	login1Path   = dbus.ObjectPath("/org/freedesktop/login1")
	login1Reboot = "org.freedesktop.login1.Manager.Reboot"
)

// Login1Restarter reboots the machine through systemd-logind.
type Login1Restarter struct {
	// Connect opens the bus; defaults to the system bus.
	Connect func() (*dbus.Conn, error)
}

// NewLogin1Restarter uses the system bus.
func NewLogin1Restarter() *Login1Restarter {
	return &Login1Restarter{Connect: func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() }}
}

// Restart asks logind to reboot the machine.
func (r *Login1Restarter) Restart(reason string) error {
	conn, err := r.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	logging.Info("Requesting reboot from logind", zap.String("reason", reason))
	call := conn.Object(login1Dest, login1Path).Call(login1Reboot, 0, false)
	if call.Err != nil {
		return fmt.Errorf("logind reboot failed: %w", call.Err)
	}
	return nil
}

// RestarterFunc adapts a function to the Restarter interface.
type RestarterFunc func(reason string) error

// Restart calls f.
func (f RestarterFunc) Restart(reason string) error { return f(reason) }

// Chain tries each restarter in order until one succeeds.
type Chain []interface{ Restart(string) error }

// Restart tries each restarter in order until one succeeds.
func (c Chain) Restart(reason string) error {
	var last error
	for _, r := range c {
		if err := r.Restart(reason); err != nil {
			logging.Warn("Restarter failed, trying next", zap.Error(err))
			last = err
			continue
		}
		return nil
	}
	return last
}
