package config

import (
	"encoding/json"
	"net/http"
)

// Scope decides in which mode a custom route is served.
type Scope int

const (
	ProvisioningOnly Scope = iota
	ConnectedOnly
	Both
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case ProvisioningOnly:
		return "provisioning"
	case ConnectedOnly:
		return "connected"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Active reports whether the scope applies in the given mode.
func (s Scope) Active(provisioning bool) bool {
	switch s {
	case Both:
		return true
	case ProvisioningOnly:
		return provisioning
	case ConnectedOnly:
		return !provisioning
	default:
		return false
	}
}

// Route is a host-application handler attached to the device HTTP surfaces.
// RequireAuth routes are gated by the stored reset secret, submitted in the
// "password" form field.
type Route struct {
	Path        string
	Method      string
	Handler     http.Handler
	Scope       Scope
	RequireAuth bool
}

// JSONHandler serves the value returned by provider as application/json.
func JSONHandler(provider func() any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(provider())
		if err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
}
