package reset

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/logging"
)

// Button detects a long press. It fires once per press and re-arms on release.
type Button struct {
	pin       gpio.Input
	hold      time.Duration
	activeLow bool

	pressed    bool
	pressStart time.Duration
	fired      bool
}

// NewButton watches pin for a hold of at least hold.
func NewButton(pin gpio.Input, hold time.Duration, activeLow bool) *Button {
	return &Button{pin: pin, hold: hold, activeLow: activeLow}
}

// Update samples the pin and reports whether the hold threshold was just crossed.
func (b *Button) Update(now time.Duration) bool {
	level, err := b.pin.Read()
	if err != nil {
		logging.Debug("Reset button read failed", zap.Error(err))
		return false
	}
	down := level != b.activeLow

	switch {
	case down && !b.pressed:
		b.pressed = true
		b.pressStart = now
		b.fired = false
	case !down && b.pressed:
		b.pressed = false
		b.fired = false
		return false
	case !down:
		return false
	}

	if !b.fired && now-b.pressStart >= b.hold {
		b.fired = true
		return true
	}
	return false
}

// Pressed reports whether the button is currently held.
func (b *Button) Pressed() bool {
	return b.pressed
}
