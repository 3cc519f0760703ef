package portal

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/captive"
	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
)

// SaveRestartDelay separates the /save response from the restart.
const SaveRestartDelay = 2 * time.Second

// ScanTimeout bounds a /scan request.
const ScanTimeout = 15 * time.Second

// Arbiter is the reset side of the portal: the /reset trigger, the secret
// check for authenticated custom routes and deferred restarts.
type Arbiter interface {
	ServeReset(w http.ResponseWriter, r *http.Request)
	Authorize(r *http.Request) error
	ScheduleRestart(reason string, delay time.Duration)
}

// Deps are the collaborators a session needs.
type Deps struct {
	Radio   radio.Radio
	Store   *credstore.Store
	Arbiter Arbiter
	Clock   clock.Clock
	// ListenHost is the host part of the DNS and HTTP listen addresses.
	// Empty listens on every interface.
	ListenHost string
}

// Session is one run of the provisioning portal: access point, captive DNS
// and the configuration HTTP surface.
type Session struct {
	ID        string
	APName    string
	APAddress net.IP
	StartedAt time.Duration

	cfg    config.Config
	deps   Deps
	router *mux.Router
	pump   *Pump
	dns    *captive.Responder
	http   *listener
}

// NewSession prepares a session. Nothing is opened until Start.
func NewSession(cfg config.Config, deps Deps) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		cfg:  cfg,
		deps: deps,
		pump: NewPump(),
	}
	s.router = s.routes()
	return s
}

// Start opens the access point, then the DNS responder and HTTP listener.
// Only an access point failure is returned; DNS or HTTP failures leave a
// degraded but running session.
func (s *Session) Start() error {
	if err := s.deps.Radio.Disconnect(); err != nil {
		logging.Debug("Station disconnect before AP start failed", zap.Error(err))
	}

	s.APName = radio.APName(s.cfg.APName(), s.deps.Radio.MAC())
	password := ""
	if s.cfg.APSecured() {
		password = s.cfg.APPassword()
	}

	ip, err := s.deps.Radio.StartAP(s.APName, password)
	if err != nil {
		return fmt.Errorf("failed to start access point %q: %w", s.APName, err)
	}
	s.APAddress = ip
	s.StartedAt = s.deps.Clock.Now()

	logging.Info("Access point started",
		zap.String("session", s.ID),
		zap.String("ap_name", s.APName),
		zap.String("ap_address", ip.String()),
		zap.Bool("secured", password != ""),
	)

	s.dns = captive.NewResponder(ip)
	if err := s.dns.Start(s.listenAddr(s.cfg.DNSPort())); err != nil {
		logging.Error("Captive DNS failed to start", zap.Error(err))
		s.dns = nil
	}

	s.http, err = startListener("portal", s.listenAddr(s.cfg.HTTPPort()), s.pump.Wrap(s.router), s.pump)
	if err != nil {
		logging.Error("Portal HTTP server failed to start", zap.Error(err))
		s.http = nil
	}

	return nil
}

func (s *Session) listenAddr(port int) string {
	return net.JoinHostPort(s.deps.ListenHost, strconv.Itoa(port))
}

// Stop tears down DNS, HTTP and the access point.
func (s *Session) Stop() {
	if s.dns != nil {
		if err := s.dns.Stop(); err != nil {
			logging.Warn("Captive DNS stop failed", zap.Error(err))
		}
		s.dns = nil
	}
	if s.http != nil {
		s.http.shutdown()
		s.http = nil
	} else {
		s.pump.Close()
	}
	if err := s.deps.Radio.StopAP(); err != nil {
		logging.Warn("Access point stop failed", zap.Error(err))
	}
	logging.Info("Access point stopped", zap.String("session", s.ID), zap.String("ap_name", s.APName))
}

// Service runs the HTTP requests queued since the last call.
func (s *Session) Service() int {
	return s.pump.Drain()
}

// Expired reports whether the session outlived timeout. Zero never expires.
func (s *Session) Expired(now, timeout time.Duration) bool {
	return timeout > 0 && now-s.StartedAt >= timeout
}

// Handler returns the session router, bypassing the pump.
func (s *Session) Handler() http.Handler {
	return s.router
}

// HTTPAddr returns the bound HTTP address, or nil when the listener is down.
func (s *Session) HTTPAddr() net.Addr {
	if s.http == nil {
		return nil
	}
	return s.http.addr()
}

// DNSAddr returns the bound DNS address, or nil when the responder is down.
func (s *Session) DNSAddr() net.Addr {
	if s.dns == nil {
		return nil
	}
	return s.dns.Addr()
}
