package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
)

const shutdownTimeout = 2 * time.Second

// listener is one HTTP server whose handlers run through a pump.
type listener struct {
	name string
	srv  *http.Server
	ln   net.Listener
	pump *Pump
	done chan struct{}
}

func startListener(name, addr string, h http.Handler, pump *Pump) (*listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &listener{
		name: name,
		ln:   ln,
		pump: pump,
		done: make(chan struct{}),
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		defer close(l.done)
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("HTTP server stopped", zap.String("surface", name), zap.Error(err))
		}
	}()

	logging.Info("HTTP server started", zap.String("surface", name), zap.String("addr", ln.Addr().String()))
	return l, nil
}

func (l *listener) addr() net.Addr {
	return l.ln.Addr()
}

// shutdown rejects queued requests, then stops the server.
func (l *listener) shutdown() {
	l.pump.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil {
		logging.Warn("HTTP server shutdown timed out, forcing close", zap.String("surface", l.name), zap.Error(err))
		_ = l.srv.Close()
	}
	<-l.done
	logging.Info("HTTP server stopped", zap.String("surface", l.name))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func logRequests(surface string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(surface, r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}
