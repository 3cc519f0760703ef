// Package sim is an in-memory radio driven by a clock.
package sim

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/urls"
)

// DefaultAPAddress is returned by StartAP.
var DefaultAPAddress = net.ParseIP(urls.PortalAddress).To4()

// ErrAPActive is returned by Connect while the access point is up.
var ErrAPActive = errors.New("access point active")

type network struct {
	password string
	strength int
}

// Radio simulates association. A join succeeds JoinDelay after Connect when
// the SSID is in range and the password matches.
type Radio struct {
	mu    sync.Mutex
	clock clock.Clock
	mac   net.HardwareAddr

	networks map[string]network
	// JoinDelay is how long a successful association takes.
	JoinDelay time.Duration

	joining   string
	password  string
	joinStart time.Duration
	linked    bool

	apName string
	apUp   bool

	connects int
	scans    int
}

// New returns a radio with the given MAC.
func New(c clock.Clock, mac net.HardwareAddr) *Radio {
	return &Radio{
		clock:     c,
		mac:       mac,
		networks:  make(map[string]network),
		JoinDelay: 500 * time.Millisecond,
	}
}

// AddNetwork puts a network in range. An empty password is an open network.
func (r *Radio) AddNetwork(ssid, password string, strength int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[ssid] = network{password: password, strength: strength}
}

// RemoveNetwork takes a network out of range and drops the link if it was joined.
func (r *Radio) RemoveNetwork(ssid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.networks, ssid)
	if r.joining == ssid {
		r.linked = false
	}
}

// DropLink simulates loss of association.
func (r *Radio) DropLink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linked = false
	r.joining = ""
}

// Connect starts joining ssid. The link comes up after JoinDelay.
func (r *Radio) Connect(ssid, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.apUp {
		return ErrAPActive
	}
	r.joining = ssid
	r.password = password
	r.joinStart = r.clock.Now()
	r.linked = false
	r.connects++
	return nil
}

// Connected reports whether the link is up.
func (r *Radio) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linked {
		return true
	}
	if r.joining == "" {
		return false
	}
	n, ok := r.networks[r.joining]
	if !ok || n.password != r.password {
		return false
	}
	if r.clock.Now()-r.joinStart >= r.JoinDelay {
		r.linked = true
	}
	return r.linked
}

// Disconnect drops the station link.
func (r *Radio) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joining = ""
	r.linked = false
	return nil
}

// LocalIP returns the station address while connected.
func (r *Radio) LocalIP() net.IP {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.linked {
		return nil
	}
	return net.IPv4(192, 168, 1, 42)
}

// MAC returns the simulated hardware address.
func (r *Radio) MAC() net.HardwareAddr {
	return r.mac
}

// StartAP opens the simulated access point.
func (r *Radio) StartAP(name, password string) (net.IP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apName = name
	r.apUp = true
	return DefaultAPAddress, nil
}

// StopAP closes the simulated access point.
func (r *Radio) StopAP() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apUp = false
	r.apName = ""
	return nil
}

// AP reports the access point name and whether it is up.
func (r *Radio) AP() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apName, r.apUp
}

// Scan returns the networks in range.
func (r *Radio) Scan(ctx context.Context) ([]radio.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.scans++
	out := make([]radio.Network, 0, len(r.networks))
	for ssid, n := range r.networks {
		out = append(out, radio.Network{SSID: ssid, SignalStrength: n.strength, Secured: n.password != ""})
	}
	return radio.Dedupe(out), nil
}

// Connects returns how many times Connect was called.
func (r *Radio) Connects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

// Scans returns how many scans were served.
func (r *Radio) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}
