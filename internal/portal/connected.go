package portal

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/urls"
)

// Status is the body of GET /status.
type Status struct {
	State string `json:"state"`
	SSID  string `json:"ssid"`
	IP    string `json:"ip"`
}

// SurfaceDeps are the collaborators of the connected-mode surface.
// Metrics and Events are served off the tick goroutine and must be safe for
// concurrent use; nil disables them.
type SurfaceDeps struct {
	Arbiter    Arbiter
	Status     func() Status
	Metrics    http.Handler
	Events     http.Handler
	ListenHost string
}

// Surface is the HTTP listener kept while the station link is up.
type Surface struct {
	cfg     config.Config
	deps    SurfaceDeps
	pump    *Pump
	handler http.Handler
	http    *listener
}

// NewSurface builds the connected-mode routes.
func NewSurface(cfg config.Config, deps SurfaceDeps) *Surface {
	s := &Surface{cfg: cfg, deps: deps, pump: NewPump()}
	s.handler = s.routes()
	return s
}

func (s *Surface) routes() http.Handler {
	inner := mux.NewRouter()
	inner.Use(func(next http.Handler) http.Handler { return logRequests("connected", next) })
	inner.HandleFunc(urls.Reset, s.deps.Arbiter.ServeReset).Methods(http.MethodPost)
	inner.HandleFunc(urls.Status, s.handleStatus).Methods(http.MethodGet)
	addCustomRoutes(inner, s.cfg.RoutesFor(false), s.deps.Arbiter)
	inner.NotFoundHandler = logRequests("connected", http.NotFoundHandler())

	outer := mux.NewRouter()
	if s.cfg.MetricsEnabled() && s.deps.Metrics != nil {
		outer.Handle(urls.Metrics, s.deps.Metrics).Methods(http.MethodGet)
	}
	if s.cfg.EventStreamEnabled() && s.deps.Events != nil {
		outer.Handle(urls.Events, s.deps.Events).Methods(http.MethodGet)
	}
	pumped := s.pump.Wrap(inner)
	outer.NotFoundHandler = pumped
	outer.MethodNotAllowedHandler = pumped
	return outer
}

func (s *Surface) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{State: "connected"}
	if s.deps.Status != nil {
		st = s.deps.Status()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// Start opens the listener.
func (s *Surface) Start() error {
	addr := net.JoinHostPort(s.deps.ListenHost, strconv.Itoa(s.cfg.HTTPPort()))
	l, err := startListener("connected", addr, s.handler, s.pump)
	if err != nil {
		return err
	}
	s.http = l
	return nil
}

// Stop closes the listener. Queued requests get 503.
func (s *Surface) Stop() {
	if s.http != nil {
		s.http.shutdown()
		s.http = nil
	}
}

// Service runs the requests queued since the last call.
func (s *Surface) Service() int {
	return s.pump.Drain()
}

// Handler returns the full route table. Pumped routes only complete once
// Service runs.
func (s *Surface) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address, or nil when stopped.
func (s *Surface) Addr() net.Addr {
	if s.http == nil {
		return nil
	}
	return s.http.addr()
}
