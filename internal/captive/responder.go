// Package captive answers every DNS query with the access point address so
// that any hostname a client looks up lands on the configuration portal.
package captive

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

// TTL is the lifetime of answers handed to clients, in seconds.
const TTL = 60

const startTimeout = 2 * time.Second

// Responder is a UDP DNS server with a fixed answer. It holds no mutable
// state, so it runs on its own goroutine.
type Responder struct {
	addr net.IP

	mu     sync.Mutex
	server *dns.Server
	conn   net.PacketConn
}

// NewResponder returns a responder answering with addr.
func NewResponder(addr net.IP) *Responder {
	return &Responder{addr: addr.To4()}
}

// Start listens on listenAddr (e.g. ":53") and serves until Stop.
func (r *Responder) Start(listenAddr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.server != nil {
		return fmt.Errorf("captive DNS already running on %s", r.conn.LocalAddr())
	}

	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen for DNS on %s: %w", listenAddr, err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        conn,
		Net:               "udp",
		Handler:           dns.HandlerFunc(r.serveDNS),
		NotifyStartedFunc: func() { close(started) },
	}

	failed := make(chan error, 1)
	go func() {
		if err := srv.ActivateAndServe(); err != nil {
			logging.Debug("Captive DNS stopped", zap.Error(err))
			failed <- err
		}
	}()

	select {
	case <-started:
	case err := <-failed:
		_ = conn.Close()
		return fmt.Errorf("failed to start captive DNS: %w", err)
	case <-time.After(startTimeout):
		_ = conn.Close()
		return fmt.Errorf("captive DNS did not start within %s", startTimeout)
	}

	r.server = srv
	r.conn = conn

	logging.Info("Captive DNS started",
		zap.String("listen", conn.LocalAddr().String()),
		zap.String("answer", r.addr.String()),
	)
	return nil
}

// Addr returns the bound address, or nil when stopped.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop shuts the server down. Stopping a stopped responder is a no-op.
func (r *Responder) Stop() error {
	r.mu.Lock()
	srv := r.server
	r.server, r.conn = nil, nil
	r.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop captive DNS: %w", err)
	}
	return nil
}

func (r *Responder) serveDNS(w dns.ResponseWriter, req *dns.Msg) {
	_ = w.WriteMsg(r.Answer(req))
}

// Answer builds the reply for req: an A record for every A or ANY question.
func (r *Responder) Answer(req *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true

	for _, q := range req.Question {
		if q.Qclass != dns.ClassINET {
			continue
		}
		if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
			continue
		}
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: TTL},
			A:   r.addr,
		})
	}
	return m
}
