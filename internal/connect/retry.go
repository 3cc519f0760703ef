package connect

import "time"

// RetryPolicy gates reconnection with a fixed delay and counts consecutive failures.
type RetryPolicy struct {
	max   int
	delay time.Duration

	count int
}

// NewRetryPolicy returns a policy that gives up after max consecutive failures.
func NewRetryPolicy(max int, delay time.Duration) *RetryPolicy {
	return &RetryPolicy{max: max, delay: delay}
}

// Due reports whether the retry delay has elapsed since failedAt.
func (p *RetryPolicy) Due(failedAt, now time.Duration) bool {
	return now-failedAt >= p.delay
}

// Advance counts one retry and returns the new count. exhausted is true when
// the count reached the maximum; the counter is then reset for the next cycle.
func (p *RetryPolicy) Advance() (count int, exhausted bool) {
	p.count++
	count = p.count
	if p.count >= p.max {
		p.count = 0
		return count, true
	}
	return count, false
}

// Reset clears the counter after a success or on entering provisioning.
func (p *RetryPolicy) Reset() {
	p.count = 0
}

// Count returns the retries made in the current cycle.
func (p *RetryPolicy) Count() int { return p.count }

// Max returns the retry limit.
func (p *RetryPolicy) Max() int { return p.max }
