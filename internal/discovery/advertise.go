package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/version"
)

// Advertiser registers the device as "<name>.local" while it is connected.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser returns an idle advertiser.
func NewAdvertiser() *Advertiser {
	return &Advertiser{}
}

// TXTRecords returns the TXT data published for a device.
func TXTRecords() []string {
	return []string{
		TXTProvisioner + "=" + ProvisionerName,
		TXTVersion + "=" + version.Version,
		TXTPath + "=/status",
	}
}

// Advertise publishes name on port at ip, replacing any earlier registration.
func (a *Advertiser) Advertise(name string, port int, ip net.IP) error {
	if ip == nil {
		return fmt.Errorf("no address to advertise for %s", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()

	server, err := zeroconf.RegisterProxy(name, ServiceType, ServiceDomain, port, name, []string{ip.String()}, TXTRecords(), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service %s: %w", name, err)
	}
	a.server = server

	logging.Info("mDNS advertisement started",
		zap.String("host", name+".local"),
		zap.String("ip", ip.String()),
		zap.Int("port", port),
	)
	return nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
}

func (a *Advertiser) shutdownLocked() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	logging.Info("mDNS advertisement stopped")
}

// Active reports whether a service is registered.
func (a *Advertiser) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}
