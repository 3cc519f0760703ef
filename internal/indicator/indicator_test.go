package indicator

import (
	"testing"
	"time"

	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/state"
)

func TestConnectedIsAlwaysOn(t *testing.T) {
	w := For(state.PhaseConnected)
	for _, ms := range []int64{0, 1, 99, 100, 999, 1000, 123456789} {
		if !w.At(time.Duration(ms) * time.Millisecond) {
			t.Errorf("Connected At(%dms) = false, want true", ms)
		}
	}
}

func TestConnectingDutyCycle(t *testing.T) {
	for _, p := range []state.Phase{state.PhaseConnecting, state.PhaseRetryWait} {
		w := For(p)
		for ms := int64(0); ms < 5000; ms += 7 {
			want := ms%1000 < 100
			if got := w.At(time.Duration(ms) * time.Millisecond); got != want {
				t.Fatalf("%s At(%dms) = %v, want %v", p, ms, got, want)
			}
		}
	}
}

func TestProvisioningFastBlink(t *testing.T) {
	w := For(state.PhaseProvisioningActive)
	tests := []struct {
		ms   int64
		want bool
	}{
		{0, true}, {99, true}, {100, false}, {199, false}, {200, true},
	}
	for _, tt := range tests {
		if got := w.At(time.Duration(tt.ms) * time.Millisecond); got != tt.want {
			t.Errorf("At(%dms) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestOtherPhasesDark(t *testing.T) {
	for _, p := range []state.Phase{state.PhaseInit, state.PhaseLoadConfig} {
		if For(p).At(50 * time.Millisecond) {
			t.Errorf("%s should be dark", p)
		}
	}
}

func TestLEDActiveLow(t *testing.T) {
	pin := gpio.NewSimOutput()
	led := NewLED(pin, true)

	led.Update(state.PhaseConnected, 0)
	if pin.Level() {
		t.Error("active-low LED lit should drive the pin low")
	}
	led.Update(state.PhaseInit, 0)
	if !pin.Level() {
		t.Error("active-low LED dark should drive the pin high")
	}
}

func TestLEDSkipsRedundantWrites(t *testing.T) {
	pin := gpio.NewSimOutput()
	led := NewLED(pin, false)

	for i := 0; i < 10; i++ {
		led.Update(state.PhaseConnected, time.Duration(i)*time.Millisecond)
	}
	if pin.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", pin.Writes())
	}
}
