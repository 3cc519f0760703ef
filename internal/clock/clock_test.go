package clock

import (
	"math"
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	c := NewFake(0)
	c.Advance(150 * time.Millisecond)
	c.Sleep(50 * time.Millisecond)
	if got := c.Now(); got != 200*time.Millisecond {
		t.Errorf("Now() = %v, want 200ms", got)
	}
	c.Set(time.Second)
	if got := c.Now(); got != time.Second {
		t.Errorf("Now() after Set = %v, want 1s", got)
	}
}

func TestMonotonicStartsNearZero(t *testing.T) {
	c := NewMonotonic()
	if got := c.Now(); got < 0 || got > time.Second {
		t.Errorf("Now() = %v, want close to zero", got)
	}
}

func TestSinceMillisWraps(t *testing.T) {
	tests := []struct {
		now, then, want uint32
	}{
		{5000, 1000, 4000},
		{100, math.MaxUint32 - 99, 200},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := SinceMillis(tt.now, tt.then); got != tt.want {
			t.Errorf("SinceMillis(%d, %d) = %d, want %d", tt.now, tt.then, got, tt.want)
		}
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1500 * time.Millisecond); got != 1500 {
		t.Errorf("Millis() = %d, want 1500", got)
	}
}
