// Package indicator maps the supervisor phase to an LED blink waveform.
package indicator

import (
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/state"
)

// Waveform is an on/off pattern. A zero period means constant output.
type Waveform struct {
	On  time.Duration
	Off time.Duration
	// Lit is the constant level used when On+Off is zero.
	Lit bool
}

var (
	Solid     = Waveform{Lit: true}
	Dark      = Waveform{}
	FastBlink = Waveform{On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	SlowBlink = Waveform{On: 100 * time.Millisecond, Off: 900 * time.Millisecond}
)

// For returns the waveform shown in phase p.
func For(p state.Phase) Waveform {
	switch p {
	case state.PhaseProvisioning, state.PhaseProvisioningActive:
		return FastBlink
	case state.PhaseConnecting, state.PhaseRetryWait:
		return SlowBlink
	case state.PhaseConnected:
		return Solid
	default:
		return Dark
	}
}

// At reports whether the LED is lit elapsed time after clock zero.
func (w Waveform) At(elapsed time.Duration) bool {
	period := w.On + w.Off
	if period <= 0 {
		return w.Lit
	}
	return elapsed%period < w.On
}

// LED drives an output pin from the current phase.
type LED struct {
	pin       gpio.Output
	activeLow bool
	last      *bool
}

// NewLED wraps an output. activeLow inverts the written level.
func NewLED(pin gpio.Output, activeLow bool) *LED {
	return &LED{pin: pin, activeLow: activeLow}
}

// Update writes the level for phase p at elapsed. Writes are skipped when the level is unchanged.
func (l *LED) Update(p state.Phase, elapsed time.Duration) {
	lit := For(p).At(elapsed)
	if l.last != nil && *l.last == lit {
		return
	}
	level := lit != l.activeLow
	if err := l.pin.Write(level); err != nil {
		logging.Debug("LED write failed", zap.Error(err))
		return
	}
	l.last = &lit
}
