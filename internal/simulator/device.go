package simulator

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/events"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/metrics"
	"github.com/muurk/wifiprov/internal/nvs"
	"github.com/muurk/wifiprov/internal/provisioner"
	"github.com/muurk/wifiprov/internal/radio/sim"
	"github.com/muurk/wifiprov/internal/system"
)

// Network is a simulated access point in range of the board.
type Network struct {
	SSID     string
	Password string
	Strength int
}

// Options configure a simulated board.
type Options struct {
	Networks []Network
	// Clock drives the radio and every boot. The board keeps time across
	// restarts. Defaults to a monotonic clock.
	Clock clock.Clock
	// Events receives every boot's events. Defaults to a new hub.
	Events  *events.Hub
	Metrics *metrics.Metrics
	// ListenHost for the portal and connected surface, e.g. "127.0.0.1".
	ListenHost string
}

// DefaultMAC is the simulated station MAC.
var DefaultMAC = net.HardwareAddr{0x24, 0x6f, 0x28, 0xa1, 0xb2, 0xc3}

// Device is a simulated board. It is not safe for concurrent use: Tick and
// every control method belong to one goroutine.
type Device struct {
	cfg   config.Config
	opts  Options
	clock clock.Clock

	Radio  *sim.Radio
	Button *gpio.SimInput
	LED    *gpio.SimOutput
	Store  *nvs.Memory
	Events *events.Hub

	coord     *provisioner.Coordinator
	boots     int
	restartTo string
	inRange   map[string]bool
	pressedAt time.Duration
}

// NewDevice builds the board and performs its first boot.
func NewDevice(cfg config.Config, opts Options) (*Device, error) {
	if opts.Clock == nil {
		opts.Clock = clock.NewMonotonic()
	}
	if opts.Events == nil {
		opts.Events = events.NewHub()
	}

	d := &Device{
		cfg:     cfg,
		opts:    opts,
		clock:   opts.Clock,
		Radio:   sim.New(opts.Clock, DefaultMAC),
		Button:  gpio.NewSimInput(cfg.Button().ActiveLow),
		LED:     gpio.NewSimOutput(),
		Store:   nvs.NewMemory(),
		Events:  opts.Events,
		inRange: make(map[string]bool),
	}
	for _, n := range opts.Networks {
		d.Radio.AddNetwork(n.SSID, n.Password, n.Strength)
		d.inRange[n.SSID] = true
	}

	if err := d.boot(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) boot() error {
	coord, err := provisioner.New(d.cfg, provisioner.Options{
		Radio:      d.Radio,
		Store:      d.Store,
		Clock:      d.clock,
		Restarter:  system.RestarterFunc(d.requestRestart),
		Button:     d.Button,
		LED:        d.LED,
		Metrics:    d.opts.Metrics,
		Events:     d.Events,
		ListenHost: d.opts.ListenHost,
	})
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	d.coord = coord
	d.boots++
	d.restartTo = ""
	return nil
}

func (d *Device) requestRestart(reason string) error {
	d.restartTo = reason
	return nil
}

// Tick advances the supervisor once. A restart it requested is carried out
// here by closing the old supervisor and booting a new one on the same store.
func (d *Device) Tick() error {
	d.coord.Tick()
	if d.restartTo == "" {
		return nil
	}
	logging.Info("Simulated restart", zap.String("reason", d.restartTo), zap.Int("boot", d.boots+1))
	return d.PowerCycle()
}

// PowerCycle drops power and boots again. The radio loses its link and
// access point; the store keeps its contents.
func (d *Device) PowerCycle() error {
	d.coord.Close()
	_ = d.Radio.Disconnect()
	_ = d.Radio.StopAP()
	_ = d.LED.Write(d.cfg.LED().ActiveLow)
	return d.boot()
}

// Coordinator is the current boot's supervisor.
func (d *Device) Coordinator() *provisioner.Coordinator {
	return d.coord
}

// Boots counts boots since the board was built, starting at 1.
func (d *Device) Boots() int {
	return d.boots
}

// PressButton holds the reset button down.
func (d *Device) PressButton() {
	d.Button.Set(!d.cfg.Button().ActiveLow)
	d.pressedAt = d.clock.Now()
}

// ReleaseButton lets the reset button go.
func (d *Device) ReleaseButton() {
	d.Button.Set(d.cfg.Button().ActiveLow)
}

// ButtonHeld reports whether the button is currently held.
func (d *Device) ButtonHeld() bool {
	level, _ := d.Button.Read()
	return level != d.cfg.Button().ActiveLow
}

// HoldProgress is how far a held button is toward the reset threshold, from 0 to 1.
func (d *Device) HoldProgress() float64 {
	hold := d.cfg.Button().Hold
	if !d.ButtonHeld() || hold <= 0 {
		return 0
	}
	p := float64(d.clock.Now()-d.pressedAt) / float64(hold)
	if p > 1 {
		p = 1
	}
	return p
}

// LEDLit reports whether the indicator is lit.
func (d *Device) LEDLit() bool {
	return d.LED.Level() != d.cfg.LED().ActiveLow
}

// ToggleNetwork moves a configured network in or out of range and reports
// whether it is now in range.
func (d *Device) ToggleNetwork(ssid string) bool {
	for _, n := range d.opts.Networks {
		if n.SSID != ssid {
			continue
		}
		if d.inRange[ssid] {
			d.Radio.RemoveNetwork(ssid)
		} else {
			d.Radio.AddNetwork(n.SSID, n.Password, n.Strength)
		}
		d.inRange[ssid] = !d.inRange[ssid]
		return d.inRange[ssid]
	}
	return false
}

// InRange reports whether a configured network is currently in range.
func (d *Device) InRange(ssid string) bool {
	return d.inRange[ssid]
}

// Networks returns the configured networks.
func (d *Device) Networks() []Network {
	return d.opts.Networks
}

// Close shuts the current boot down.
func (d *Device) Close() {
	d.coord.Close()
}
