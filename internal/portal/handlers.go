package portal

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/urls"
)

func (s *Session) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return logRequests("portal", next) })

	r.HandleFunc(urls.Root, s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc(urls.Scan, s.handleScan).Methods(http.MethodGet)
	r.HandleFunc(urls.Save, s.handleSave).Methods(http.MethodPost)
	r.HandleFunc(urls.Save, handleSaveGet).Methods(http.MethodGet)
	r.HandleFunc(urls.Reset, s.deps.Arbiter.ServeReset).Methods(http.MethodPost)

	addCustomRoutes(r, s.cfg.RoutesFor(true), s.deps.Arbiter)

	redirect := logRequests("portal", http.HandlerFunc(redirectHome))
	r.NotFoundHandler = redirect
	r.MethodNotAllowedHandler = redirect
	return r
}

func (s *Session) handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, pageData{APName: s.APName, AuthReset: s.cfg.HTTPResetAuthRequired()})
}

func (s *Session) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ScanTimeout)
	defer cancel()

	networks, err := s.deps.Radio.Scan(ctx)
	if err != nil {
		logging.Warn("Network scan failed", zap.Error(err))
		http.Error(w, "Scan failed", http.StatusInternalServerError)
		return
	}
	if networks == nil {
		networks = []radio.Network{}
	}
	radio.SortByStrength(networks)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(networks)
}

func (s *Session) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ssid := r.PostFormValue("ssid")
	password := r.PostFormValue("password")
	if err := s.deps.Store.Save(ssid, password); err != nil {
		http.Error(w, fault.Message(err), fault.StatusCode(err))
		return
	}

	if secret := r.PostFormValue("reset_password"); secret != "" && s.cfg.HTTPResetAuthRequired() {
		if err := s.deps.Store.SaveResetSecret(secret); err != nil {
			logging.Error("Failed to store reset secret", zap.Error(err))
		}
	}

	logging.Info("Credentials saved from portal",
		zap.String("session", s.ID),
		zap.String("ssid", ssid),
		zap.String("password", logging.MaskSecret(password)),
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Configuration saved. Rebooting..."))
	s.deps.Arbiter.ScheduleRestart("configuration saved", SaveRestartDelay)
}

func handleSaveGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// addCustomRoutes registers host routes. Auth routes check the reset secret first.
func addCustomRoutes(r *mux.Router, routes []config.Route, arbiter Arbiter) {
	for _, rt := range routes {
		h := rt.Handler
		if rt.RequireAuth {
			h = requireSecret(arbiter, h)
		}
		route := r.Handle(rt.Path, h)
		if rt.Method != "" {
			route.Methods(rt.Method)
		}
	}
}

func requireSecret(arbiter Arbiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := arbiter.Authorize(r); err != nil {
			http.Error(w, fault.Message(err), fault.StatusCode(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}
