package portal

import (
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

type job struct {
	w     http.ResponseWriter
	r     *http.Request
	h     http.Handler
	state atomic.Int32
	done  chan struct{}
}

// Pump moves request handling onto the goroutine that calls Drain.
// Listener goroutines enqueue each request and block until it has been served,
// so handlers never run concurrently with the supervisor tick.
type Pump struct {
	mu     sync.Mutex
	queue  []*job
	closed bool
}

// NewPump returns an open pump.
func NewPump() *Pump {
	return &Pump{}
}

// Wrap returns a handler that defers h to the next Drain.
func (p *Pump) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		j := &job{w: w, r: r, h: h, done: make(chan struct{})}
		if !p.enqueue(j) {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}

		select {
		case <-j.done:
		case <-r.Context().Done():
			if j.state.CompareAndSwap(jobQueued, jobAbandoned) {
				return
			}
			<-j.done
		}
	})
}

func (p *Pump) enqueue(j *job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.queue = append(p.queue, j)
	return true
}

func (p *Pump) take() []*job {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobs := p.queue
	p.queue = nil
	return jobs
}

// Drain serves every request queued so far and returns how many ran.
func (p *Pump) Drain() int {
	served := 0
	for _, j := range p.take() {
		if j.state.CompareAndSwap(jobQueued, jobRunning) {
			serve(j)
			served++
		}
		close(j.done)
	}
	return served
}

func serve(j *job) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("HTTP handler panicked",
				zap.String("path", j.r.URL.Path),
				zap.Any("panic", rec),
			)
			http.Error(j.w, "Internal error", http.StatusInternalServerError)
		}
	}()
	j.h.ServeHTTP(j.w, j.r)
}

// Pending returns the number of queued requests.
func (p *Pump) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close rejects queued and future requests with 503.
func (p *Pump) Close() {
	p.mu.Lock()
	p.closed = true
	jobs := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, j := range jobs {
		if j.state.CompareAndSwap(jobQueued, jobRunning) {
			http.Error(j.w, "Service unavailable", http.StatusServiceUnavailable)
		}
		close(j.done)
	}
}
