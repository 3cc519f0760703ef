package provisioner

import (
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/connect"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/events"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/indicator"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/metrics"
	"github.com/muurk/wifiprov/internal/nvs"
	"github.com/muurk/wifiprov/internal/portal"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/reset"
	"github.com/muurk/wifiprov/internal/state"
	"github.com/muurk/wifiprov/internal/version"
)

// Advertiser publishes the device over mDNS while it is connected.
type Advertiser interface {
	Advertise(name string, port int, ip net.IP) error
	Shutdown()
}

// Options are the collaborators of a Coordinator. Radio, Store and Clock are
// required; everything else may be nil.
type Options struct {
	Radio     radio.Radio
	Store     nvs.Namespace
	Clock     clock.Clock
	Restarter reset.Restarter

	// Button is the reset button input, used when the config enables it.
	Button gpio.Input
	// LED is the status output, used when the config enables it.
	LED gpio.Output

	Hooks      Hooks
	Metrics    *metrics.Metrics
	Events     *events.Hub
	Advertiser Advertiser

	// ListenHost restricts the DNS and HTTP listeners to one address.
	ListenHost string
}

// Coordinator runs the provisioning state machine.
type Coordinator struct {
	cfg  config.Config
	opts Options

	store   *credstore.Store
	arbiter *reset.Arbiter
	retry   *connect.RetryPolicy
	led     *indicator.LED

	state   state.State
	surface *portal.Surface

	begun         bool
	closed        bool
	nextPortalTry time.Duration
}

// New wires a coordinator. Nothing runs until Begin.
func New(cfg config.Config, opts Options) (*Coordinator, error) {
	switch {
	case opts.Radio == nil:
		return nil, errors.New("provisioner: radio is required")
	case opts.Store == nil:
		return nil, errors.New("provisioner: store is required")
	case opts.Clock == nil:
		return nil, errors.New("provisioner: clock is required")
	}

	c := &Coordinator{
		cfg:   cfg,
		opts:  opts,
		store: credstore.New(opts.Store),
		retry: connect.NewRetryPolicy(cfg.MaxRetries(), cfg.RetryDelay()),
		state: state.Init{},
	}

	var button gpio.Input
	if cfg.Button().Enabled {
		button = opts.Button
	}
	c.arbiter = reset.New(cfg, reset.Deps{
		Store:     c.store,
		Clock:     opts.Clock,
		Restarter: opts.Restarter,
		Button:    button,
		OnReset:   c.onReset,
		OnRestart: c.onRestart,
	})

	if cfg.LED().Enabled && opts.LED != nil {
		c.led = indicator.NewLED(opts.LED, cfg.LED().ActiveLow)
	}
	return c, nil
}

// Begin runs double-reboot detection and leaves Init. Calling it again does nothing.
func (c *Coordinator) Begin() {
	if c.begun {
		return
	}
	c.begun = true

	logging.Info("wifiprov starting",
		zap.String("version", version.Full()),
		zap.String("ap_name", c.cfg.APName()),
		zap.Int("max_retries", c.cfg.MaxRetries()),
		zap.Duration("retry_delay", c.cfg.RetryDelay()),
		zap.Duration("ap_timeout", c.cfg.APTimeout()),
	)

	if c.arbiter.CheckDoubleReboot() {
		return
	}
	c.apply(state.Booted{})
}

// Tick advances the supervisor by one step.
func (c *Coordinator) Tick() {
	if c.closed {
		return
	}
	if !c.begun {
		c.Begin()
	}
	if c.arbiter.Poll() {
		return
	}

	now := c.opts.Clock.Now()
	if c.led != nil {
		c.led.Update(c.state.Phase(), now)
	}

	c.service()
	if c.arbiter.Restarted() {
		return
	}

	c.step(now)
}

func (c *Coordinator) service() {
	served := 0
	if s, ok := c.state.(state.ProvisioningActive); ok {
		served += s.Session.Service()
	}
	if c.surface != nil {
		served += c.surface.Service()
	}
	c.opts.Metrics.RequestsServiced(served)
}

func (c *Coordinator) step(now time.Duration) {
	switch cur := c.state.(type) {
	case state.LoadConfig:
		_, present := c.store.Load()
		c.apply(state.CredentialsLoaded{Present: present})

	case state.Connecting:
		switch cur.Attempt.Poll(now) {
		case connect.Succeeded:
			c.opts.Metrics.ConnectFinished(connect.Succeeded)
			c.apply(state.ConnectSucceeded{})
		case connect.Failed:
			c.opts.Metrics.ConnectFinished(connect.Failed)
			c.apply(state.ConnectFailed{At: now})
		}

	case state.Connected:
		if !c.opts.Radio.Connected() {
			logging.Warn("WiFi connection lost")
			c.apply(state.LinkLost{})
		}

	case state.RetryWait:
		if !c.retry.Due(cur.FailedAt, now) {
			return
		}
		count, exhausted := c.retry.Advance()
		logging.Info("Retrying connection", zap.Int("retry", count), zap.Int("max_retries", c.cfg.MaxRetries()))
		c.opts.Metrics.RetryStarted()
		c.publish(events.Event{Type: events.TypeFailed, RetryCount: count})
		c.opts.Hooks.failed(count)

		if exhausted {
			logging.Error("Max retries exceeded", zap.Int("retries", count))
			if c.cfg.AutoWipeOnMaxRetries() {
				logging.Info("Auto-wiping credentials")
				if err := c.store.Clear(); err != nil {
					logging.Error("Auto-wipe failed", zap.Error(err))
				}
			}
		}
		c.apply(state.RetryDue{Count: count, Max: c.cfg.MaxRetries(), AutoWipe: c.cfg.AutoWipeOnMaxRetries()})

	case state.Provisioning:
		if now < c.nextPortalTry {
			return
		}
		session := portal.NewSession(c.cfg, portal.Deps{
			Radio:      c.opts.Radio,
			Store:      c.store,
			Arbiter:    c.arbiter,
			Clock:      c.opts.Clock,
			ListenHost: c.opts.ListenHost,
		})
		if err := session.Start(); err != nil {
			logging.Error("Failed to start provisioning portal", zap.Error(err))
			c.nextPortalTry = now + c.cfg.RetryDelay()
			return
		}
		c.apply(state.PortalStarted{Session: session})

	case state.ProvisioningActive:
		if cur.Session.Expired(now, c.cfg.APTimeout()) {
			c.apply(state.PortalTimedOut{HasCredentials: c.store.Cached().Present()})
		}
	}
}

// apply runs one transition with its exit and entry effects.
func (c *Coordinator) apply(ev state.Event) {
	prev := c.state
	next := state.Transition(prev, ev)
	if next == prev {
		return
	}

	c.exit(prev)
	logging.LogTransition(prev.Phase().String(), next.Phase().String(), ev.Reason())
	c.state = next
	c.opts.Metrics.SetPhase(prev.Phase(), next.Phase())
	c.publish(events.Event{
		Type:   events.TypePhase,
		Phase:  next.Phase().String(),
		From:   prev.Phase().String(),
		Reason: ev.Reason(),
	})
	c.enter(prev)
}

func (c *Coordinator) exit(prev state.State) {
	switch s := prev.(type) {
	case state.ProvisioningActive:
		s.Session.Stop()
	case state.Connected:
		c.stopConnectedServices()
	}
}

func (c *Coordinator) enter(prev state.State) {
	now := c.opts.Clock.Now()

	switch c.state.(type) {
	case state.Connecting:
		if _, fromRetry := prev.(state.RetryWait); !fromRetry {
			c.retry.Reset()
		}
		attempt := connect.NewAttempt(c.opts.Radio, c.store.Cached())
		attempt.Begin(now)
		c.state = state.Connecting{Attempt: attempt}

	case state.Connected:
		c.retry.Reset()
		c.publish(events.Event{Type: events.TypeConnected})
		c.opts.Hooks.connected()
		c.startConnectedServices()

	case state.Provisioning:
		c.retry.Reset()
		c.nextPortalTry = now

	case state.ProvisioningActive:
		s := c.state.(state.ProvisioningActive).Session
		c.opts.Metrics.PortalStarted()
		c.publish(events.Event{
			Type:      events.TypeAPModeStarted,
			APName:    s.APName,
			APAddress: s.APAddress.String(),
		})
		c.opts.Hooks.apModeStarted(s.APName, s.APAddress)
	}
}

func (c *Coordinator) startConnectedServices() {
	if c.cfg.MDNSEnabled() && c.opts.Advertiser != nil {
		if err := c.opts.Advertiser.Advertise(c.cfg.MDNSName(), c.cfg.HTTPPort(), c.opts.Radio.LocalIP()); err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	if !c.cfg.ConnectedSurfaceEnabled() {
		logging.Debug("No connected-mode features enabled, not starting HTTP server")
		return
	}
	deps := portal.SurfaceDeps{
		Arbiter:    c.arbiter,
		Status:     c.status,
		Metrics:    c.opts.Metrics.Handler(),
		ListenHost: c.opts.ListenHost,
	}
	if c.opts.Events != nil {
		deps.Events = c.opts.Events.Handler()
	}
	surface := portal.NewSurface(c.cfg, deps)
	if err := surface.Start(); err != nil {
		logging.Error("Failed to start connected-mode HTTP server", zap.Error(err))
		return
	}
	c.surface = surface
}

func (c *Coordinator) stopConnectedServices() {
	if c.surface != nil {
		c.surface.Stop()
		c.surface = nil
	}
	if c.cfg.MDNSEnabled() && c.opts.Advertiser != nil {
		c.opts.Advertiser.Shutdown()
	}
}

func (c *Coordinator) status() portal.Status {
	st := portal.Status{State: "connected", SSID: c.store.Cached().SSID}
	if ip := c.opts.Radio.LocalIP(); ip != nil {
		st.IP = ip.String()
	}
	return st
}

func (c *Coordinator) onReset(trigger reset.Trigger, reason string) {
	c.opts.Metrics.Reset(string(trigger))
	c.publish(events.Event{Type: events.TypeReset, Reason: reason})
	c.opts.Hooks.reset()
}

func (c *Coordinator) onRestart(reason string) {
	c.opts.Metrics.Restart(reason)
	c.publish(events.Event{Type: events.TypeRestart, Reason: reason})
}

func (c *Coordinator) publish(e events.Event) {
	if c.opts.Events == nil {
		return
	}
	c.opts.Events.Publish(e.Uptime(c.opts.Clock.Now()))
}

// Close stops whatever listeners and advertisements are up. Later ticks do nothing.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if s, ok := c.state.(state.ProvisioningActive); ok {
		s.Session.Stop()
	}
	c.stopConnectedServices()
}
