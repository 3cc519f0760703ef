package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a provisioned device found on the network
type Device struct {
	// Instance is the advertised service instance, the device's mDNS name
	Instance string

	// Hostname is the mDNS hostname (e.g., "esp32.local.")
	Hostname string

	// IP is the IPv4 address (e.g., "192.168.1.42")
	IP string

	// Port is the HTTP port of the connected-mode surface
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "provisioner=wifiprov", "version=1.2.0", "path=/status"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", d.Instance, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// Version returns the advertised wifiprov version, if any
func (d *Device) Version() string {
	return d.GetMetadata(TXTVersion)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
