package reset

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/logging"
)

const (
	// SettleDelay separates the wipe from the restart.
	SettleDelay = 500 * time.Millisecond
	// HTTPDelay separates the /reset response from the reset.
	HTTPDelay = time.Second
)

// Trigger names what asked for a reset.
type Trigger string

const (
	TriggerButton       Trigger = "button"
	TriggerHTTP         Trigger = "http"
	TriggerDoubleReboot Trigger = "double_reboot"
	TriggerManual       Trigger = "manual"
)

// Restarter restarts the device. It may return, in which case the process is
// expected to exit soon after.
type Restarter interface {
	Restart(reason string) error
}

// Deps are the collaborators of an Arbiter.
type Deps struct {
	Store     *credstore.Store
	Clock     clock.Clock
	Restarter Restarter
	// Button is nil when no reset button is wired.
	Button gpio.Input
	// OnReset runs before the store is wiped.
	OnReset func(trigger Trigger, reason string)
	// OnRestart runs before every restart, with or without a wipe.
	OnRestart func(reason string)
}

type scheduled struct {
	at      time.Duration
	wipe    bool
	trigger Trigger
	reason  string
}

// Arbiter owns every reset trigger. Not safe for concurrent use.
type Arbiter struct {
	cfg    config.Config
	deps   Deps
	button *Button

	pending   *scheduled
	restarted bool
}

// New returns an arbiter for cfg.
func New(cfg config.Config, deps Deps) *Arbiter {
	a := &Arbiter{cfg: cfg, deps: deps}
	if b := cfg.Button(); b.Enabled && deps.Button != nil {
		a.button = NewButton(deps.Button, b.Hold, b.ActiveLow)
	}
	return a
}

// CheckDoubleReboot records this boot and resets when the previous boot was
// inside the window. It reports whether a reset was performed.
//
// The boot count only returns to zero when detection fires; ordinary boots
// outside the window keep incrementing it.
func (a *Arbiter) CheckDoubleReboot() bool {
	if !a.cfg.DoubleRebootDetect() {
		return false
	}

	marker, err := a.deps.Store.BootMarker()
	if err != nil {
		logging.Warn("Boot marker unavailable, skipping double-reboot check", zap.Error(err))
		return false
	}

	now := clock.Millis(a.deps.Clock.Now())
	since := clock.SinceMillis(now, marker.LastBootMillis)
	marker.Count++
	marker.LastBootMillis = now
	if err := a.deps.Store.SaveBootMarker(marker); err != nil {
		logging.Warn("Failed to persist boot marker", zap.Error(err))
	}

	logging.Debug("Boot recorded",
		zap.Uint32("boot_count", marker.Count),
		zap.Uint32("since_last_boot_ms", since),
	)

	if marker.Count >= 2 && since < clock.Millis(a.cfg.DoubleRebootWindow()) {
		a.PerformReset(TriggerDoubleReboot, "double reboot detected")
		return true
	}
	return false
}

// Poll runs once per tick: samples the button and carries out any scheduled
// action that is due. It reports whether the device is restarting.
func (a *Arbiter) Poll() bool {
	if a.restarted {
		return true
	}
	now := a.deps.Clock.Now()

	if a.button != nil && a.button.Update(now) {
		logging.Info("Reset button held", zap.Duration("hold", a.cfg.Button().Hold))
		a.PerformReset(TriggerButton, "hardware button")
		return true
	}

	if p := a.pending; p != nil && now >= p.at {
		a.pending = nil
		if p.wipe {
			a.PerformReset(p.trigger, p.reason)
		} else {
			a.Restart(p.reason)
		}
		return true
	}
	return false
}

// ServeReset is the POST /reset handler.
func (a *Arbiter) ServeReset(w http.ResponseWriter, r *http.Request) {
	if !a.cfg.HTTPResetEnabled() {
		err := fault.NewFeatureDisabled("Reset disabled")
		http.Error(w, fault.Message(err), fault.StatusCode(err))
		return
	}

	if a.cfg.HTTPResetAuthRequired() {
		if err := a.Authorize(r); err != nil {
			logging.Warn("Reset authentication failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, fault.Message(err), fault.StatusCode(err))
			return
		}
	}

	logging.Info("HTTP reset triggered", zap.String("remote_addr", r.RemoteAddr))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Resetting device..."))
	a.ScheduleReset(TriggerHTTP, "HTTP reset", HTTPDelay)
}

// Authorize checks the "password" form field against the stored reset secret.
func (a *Arbiter) Authorize(r *http.Request) error {
	return a.deps.Store.VerifyResetSecret(r.FormValue("password"))
}

// ScheduleReset performs a reset delay from now.
func (a *Arbiter) ScheduleReset(trigger Trigger, reason string, delay time.Duration) {
	a.schedule(scheduled{wipe: true, trigger: trigger, reason: reason}, delay)
}

// ScheduleRestart restarts without wiping delay from now. A pending reset
// is not downgraded.
func (a *Arbiter) ScheduleRestart(reason string, delay time.Duration) {
	if a.pending != nil && a.pending.wipe {
		return
	}
	a.schedule(scheduled{reason: reason}, delay)
}

func (a *Arbiter) schedule(s scheduled, delay time.Duration) {
	s.at = a.deps.Clock.Now() + delay
	a.pending = &s
	logging.Debug("Restart scheduled",
		zap.String("reason", s.reason),
		zap.Bool("wipe", s.wipe),
		zap.Duration("delay", delay),
	)
}

// Pending reports whether a reset or restart is scheduled.
func (a *Arbiter) Pending() bool {
	return a.pending != nil
}

// PerformReset fires the reset hook, wipes the store, settles and restarts.
func (a *Arbiter) PerformReset(trigger Trigger, reason string) {
	if a.restarted {
		return
	}
	logging.LogReset(string(trigger), reason)

	if a.deps.OnReset != nil {
		a.deps.OnReset(trigger, reason)
	}
	if err := a.deps.Store.Clear(); err != nil {
		logging.Error("Failed to clear store during reset", zap.Error(err))
	}
	a.deps.Clock.Sleep(SettleDelay)
	a.Restart(fmt.Sprintf("reset (%s)", reason))
}

// Restart restarts the device without touching the store.
func (a *Arbiter) Restart(reason string) {
	if a.restarted {
		return
	}
	a.restarted = true
	a.pending = nil

	if a.deps.OnRestart != nil {
		a.deps.OnRestart(reason)
	}
	logging.Info("Restarting device", zap.String("reason", reason))
	if a.deps.Restarter == nil {
		return
	}
	if err := a.deps.Restarter.Restart(reason); err != nil {
		logging.Error("Restart failed", zap.Error(err))
	}
}

// Restarted reports whether a restart was requested.
func (a *Arbiter) Restarted() bool {
	return a.restarted
}
