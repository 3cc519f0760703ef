package provisioner

import (
	"net"
	"time"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/reset"
	"github.com/muurk/wifiprov/internal/state"
)

// ManualRebootDelay separates SetCredentials or ClearCredentials from the
// restart they request.
const ManualRebootDelay = 500 * time.Millisecond

// Phase returns the current phase.
func (c *Coordinator) Phase() state.Phase {
	return c.state.Phase()
}

// IsConnected reports whether the station link is up.
func (c *Coordinator) IsConnected() bool {
	return c.state.Phase() == state.PhaseConnected && c.opts.Radio.Connected()
}

// IsProvisioning reports whether the portal owns the radio.
func (c *Coordinator) IsProvisioning() bool {
	return c.state.Phase().Provisioning()
}

// SSID returns the stored network name.
func (c *Coordinator) SSID() string {
	return c.store.Cached().SSID
}

// LocalIP returns the station address, or nil.
func (c *Coordinator) LocalIP() net.IP {
	return c.opts.Radio.LocalIP()
}

// APAddress returns the portal address, or nil when no portal is up.
func (c *Coordinator) APAddress() net.IP {
	if s, ok := c.state.(state.ProvisioningActive); ok {
		return s.Session.APAddress
	}
	return nil
}

// APName returns the portal network name, or "" when no portal is up.
func (c *Coordinator) APName() string {
	if s, ok := c.state.(state.ProvisioningActive); ok {
		return s.Session.APName
	}
	return ""
}

// PortalAddr returns the bound portal HTTP address, or nil.
func (c *Coordinator) PortalAddr() net.Addr {
	if s, ok := c.state.(state.ProvisioningActive); ok {
		return s.Session.HTTPAddr()
	}
	return nil
}

// SurfaceAddr returns the bound connected-mode HTTP address, or nil.
func (c *Coordinator) SurfaceAddr() net.Addr {
	if c.surface == nil {
		return nil
	}
	return c.surface.Addr()
}

// RetryCount returns the consecutive retries in the current cycle.
func (c *Coordinator) RetryCount() int {
	return c.retry.Count()
}

// Restarting reports whether a restart was requested.
func (c *Coordinator) Restarting() bool {
	return c.arbiter.Restarted()
}

// Reset wipes the device and restarts it.
func (c *Coordinator) Reset() {
	c.arbiter.PerformReset(reset.TriggerManual, "programmatic reset")
}

// SetCredentials stores a network. With reboot the device restarts shortly after.
func (c *Coordinator) SetCredentials(ssid, password string, reboot bool) error {
	if err := c.store.Save(ssid, password); err != nil {
		return err
	}
	if reboot {
		c.arbiter.ScheduleRestart("credentials set", ManualRebootDelay)
	}
	return nil
}

// ClearCredentials wipes the store. With reboot the device restarts shortly after.
func (c *Coordinator) ClearCredentials(reboot bool) error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	if reboot {
		c.arbiter.ScheduleRestart("credentials cleared", ManualRebootDelay)
	}
	return nil
}

// HasCustomRoutes reports whether any custom route is registered.
func (c *Coordinator) HasCustomRoutes() bool {
	return len(c.cfg.Routes()) > 0
}

// HasConnectedOnlyRoutes reports whether a route is served only while connected.
func (c *Coordinator) HasConnectedOnlyRoutes() bool {
	return c.hasScope(config.ConnectedOnly)
}

// HasProvisioningOnlyRoutes reports whether a route is served only by the portal.
func (c *Coordinator) HasProvisioningOnlyRoutes() bool {
	return c.hasScope(config.ProvisioningOnly)
}

func (c *Coordinator) hasScope(scope config.Scope) bool {
	for _, r := range c.cfg.Routes() {
		if r.Scope == scope {
			return true
		}
	}
	return false
}

// Config returns the configuration the coordinator runs with.
func (c *Coordinator) Config() config.Config {
	return c.cfg
}
