// Package radio is the boundary to the device's WiFi hardware: station
// association, the provisioning access point and network scans.
//
// Two backends exist: radio/nm drives NetworkManager over D-Bus and radio/sim
// is an in-memory radio for tests and the simulator.
package radio

import (
	"context"
	"fmt"
	"net"
	"sort"
)

// Network is one scan result.
type Network struct {
	SSID           string `json:"ssid"`
	SignalStrength int    `json:"signalStrength"`
	Secured        bool   `json:"secured"`
}

// Radio is everything the supervisor needs from the WiFi interface.
type Radio interface {
	// Connect starts associating with ssid and returns without waiting.
	Connect(ssid, password string) error
	// Connected reports whether the station link is up.
	Connected() bool
	// Disconnect drops any station association.
	Disconnect() error
	LocalIP() net.IP
	MAC() net.HardwareAddr

	// StartAP opens an access point and returns its address.
	// An empty password opens an unsecured network.
	StartAP(name, password string) (net.IP, error)
	StopAP() error

	// Scan blocks for the duration of a scan.
	Scan(ctx context.Context) ([]Network, error)
}

// SortByStrength orders networks strongest first, then by SSID.
func SortByStrength(networks []Network) {
	sort.SliceStable(networks, func(i, j int) bool {
		if networks[i].SignalStrength != networks[j].SignalStrength {
			return networks[i].SignalStrength > networks[j].SignalStrength
		}
		return networks[i].SSID < networks[j].SSID
	})
}

// Dedupe keeps the strongest entry per SSID and drops hidden networks.
func Dedupe(networks []Network) []Network {
	best := make(map[string]Network)
	for _, n := range networks {
		if n.SSID == "" {
			continue
		}
		if cur, ok := best[n.SSID]; !ok || n.SignalStrength > cur.SignalStrength {
			best[n.SSID] = n
		}
	}
	out := make([]Network, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	SortByStrength(out)
	return out
}

// APSuffix returns the last three MAC bytes as uppercase hex without separators.
func APSuffix(mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return "000000"
	}
	tail := mac[len(mac)-3:]
	return fmt.Sprintf("%02X%02X%02X", tail[0], tail[1], tail[2])
}

// APName derives the access point name from a base and the device MAC.
func APName(base string, mac net.HardwareAddr) string {
	return base + "-" + APSuffix(mac)
}
