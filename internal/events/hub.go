// Package events fans supervisor events out to websocket clients and
// in-process subscribers.
package events

import (
	"sync"
	"time"
)

// Event types.
const (
	TypePhase         = "phase"
	TypeConnected     = "connected"
	TypeFailed        = "failed"
	TypeAPModeStarted = "ap_mode_started"
	TypeReset         = "reset"
	TypeRestart       = "restart"
)

// Event is one JSON message on the stream.
type Event struct {
	Type       string `json:"type"`
	Phase      string `json:"phase,omitempty"`
	From       string `json:"from,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
	APName     string `json:"ap_name,omitempty"`
	APAddress  string `json:"ap_address,omitempty"`
	UptimeMS   int64  `json:"uptime_ms"`
}

// Uptime sets UptimeMS from a clock reading.
func (e Event) Uptime(d time.Duration) Event {
	e.UptimeMS = d.Milliseconds()
	return e
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 32

// Hub is safe for concurrent use. Publish never blocks: a subscriber whose
// queue is full misses the event.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	last   *Event
	closed bool
	buffer int
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{}), buffer: DefaultBuffer}
}

// Subscribe returns a channel of events and a function that ends the
// subscription. The most recent phase event, if any, is delivered first.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.last != nil {
		ch <- *h.last
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish delivers e to every subscriber and returns how many missed it.
func (h *Hub) Publish(e Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	if e.Type == TypePhase {
		last := e
		h.last = &last
	}

	dropped := 0
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}

// Last returns the most recent phase event.
func (h *Hub) Last() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Event{}, false
	}
	return *h.last, true
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
