// Package clock provides the single monotonic time source used for every
// supervisor timeout. Time starts at zero when the clock is created.
package clock

import (
	"sync"
	"time"
)

// Clock reports elapsed time since process start.
type Clock interface {
	Now() time.Duration
	Sleep(d time.Duration)
}

// Monotonic is backed by the runtime's monotonic clock reading.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a clock at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the time since construction.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.start)
}

// Sleep blocks for d.
func (m *Monotonic) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Fake is a manually driven clock for tests and the simulator.
type Fake struct {
	mu  sync.Mutex
	now time.Duration
}

// NewFake returns a fake clock reading at.
func NewFake(at time.Duration) *Fake {
	return &Fake{now: at}
}

// Now returns the current fake reading.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the fake clock instead of blocking.
func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}

// Set moves the clock to an absolute reading.
func (f *Fake) Set(at time.Duration) {
	f.mu.Lock()
	f.now = at
	f.mu.Unlock()
}

// Millis truncates a reading to the uint32 millisecond counter persisted in the boot marker.
func Millis(d time.Duration) uint32 {
	return uint32(d.Milliseconds())
}

// SinceMillis returns now-then using uint32 wraparound arithmetic.
func SinceMillis(now, then uint32) uint32 {
	return now - then
}
