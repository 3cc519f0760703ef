package devclient

import (
	"fmt"
	"strings"
)

// Status is the connected surface's /status document.
type Status struct {
	State string `json:"state"`
	SSID  string `json:"ssid"`
	IP    string `json:"ip"`
}

// Connected reports whether the device is on its configured network.
func (s *Status) Connected() bool {
	return s.State == "Connected"
}

// Summary returns a one-line description of the link.
func (s *Status) Summary() string {
	if s.SSID == "" {
		return s.State
	}
	return fmt.Sprintf("%s to %s (%s)", s.State, s.SSID, s.IP)
}

// Network is one /scan result.
type Network struct {
	SSID           string `json:"ssid"`
	SignalStrength int    `json:"signalStrength"`
	Secured        bool   `json:"secured"`
}

// Bars maps RSSI to a 0-4 signal indicator.
func (n Network) Bars() int {
	switch {
	case n.SignalStrength >= -55:
		return 4
	case n.SignalStrength >= -67:
		return 3
	case n.SignalStrength >= -75:
		return 2
	case n.SignalStrength >= -85:
		return 1
	default:
		return 0
	}
}

// FormatNetworks renders scan results as an aligned table.
func FormatNetworks(networks []Network) string {
	if len(networks) == 0 {
		return "No networks found\n"
	}

	width := len("SSID")
	for _, n := range networks {
		if len(n.SSID) > width {
			width = len(n.SSID)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %6s  %-4s  %s\n", width, "SSID", "RSSI", "BARS", "SECURITY")
	for _, n := range networks {
		security := "open"
		if n.Secured {
			security = "secured"
		}
		bars := strings.Repeat("▮", n.Bars()) + strings.Repeat("▯", 4-n.Bars())
		fmt.Fprintf(&b, "%-*s  %6d  %s  %s\n", width, n.SSID, n.SignalStrength, bars, security)
	}
	return b.String()
}
