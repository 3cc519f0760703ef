package config

import (
	"net/http"
	"strings"
	"time"

	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/logging"
)

// Builder collects settings and validates them once in Build.
// The first invalid setting is reported; later setters still run.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder starts from the defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		apName:             DefaultAPName,
		apPassword:         DefaultAPPassword,
		apTimeout:          DefaultAPTimeout,
		maxRetries:         DefaultMaxRetries,
		retryDelay:         DefaultRetryDelay,
		autoWipe:           true,
		button:             Button{Pin: -1, Hold: DefaultButtonHold, ActiveLow: true},
		led:                LED{Pin: -1},
		mdnsName:           DefaultMDNSName,
		doubleRebootWindow: DefaultDoubleRebootWindow,
		logLevel:           DefaultLogLevel,
		httpPort:           DefaultHTTPPort,
		dnsPort:            DefaultDNSPort,
	}}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// APName sets the access point base name. The MAC suffix is appended at start.
func (b *Builder) APName(name string) *Builder {
	if strings.TrimSpace(name) == "" {
		return b.fail(fault.NewValidation("AP name must not be empty"))
	}
	b.cfg.apName = name
	return b
}

// APPassword sets the access point passphrase. Empty means an open network.
func (b *Builder) APPassword(password string) *Builder {
	if password != "" && len(password) < MinAPPasswordLength {
		return b.fail(fault.NewValidationf("AP password must be empty or at least %d characters", MinAPPasswordLength))
	}
	b.cfg.apPassword = password
	return b
}

// APTimeout sets the portal inactivity timeout. Zero disables it.
func (b *Builder) APTimeout(d time.Duration) *Builder {
	if d < 0 {
		return b.fail(fault.NewValidation("AP timeout must not be negative"))
	}
	b.cfg.apTimeout = d
	return b
}

// MaxRetries sets how many failed attempts run before the give-up policy. Must be at least 1.
func (b *Builder) MaxRetries(n int) *Builder {
	if n < 1 {
		return b.fail(fault.NewValidation("max retries must be at least 1"))
	}
	b.cfg.maxRetries = n
	return b
}

// RetryDelay sets the fixed wait between connection attempts.
func (b *Builder) RetryDelay(d time.Duration) *Builder {
	if d < 0 {
		return b.fail(fault.NewValidation("retry delay must not be negative"))
	}
	b.cfg.retryDelay = d
	return b
}

// AutoWipeOnMaxRetries erases the credentials once retries run out.
func (b *Builder) AutoWipeOnMaxRetries(enable bool) *Builder {
	b.cfg.autoWipe = enable
	return b
}

// HardwareReset enables the reset button on pin.
func (b *Builder) HardwareReset(pin int, hold time.Duration, activeLow bool) *Builder {
	if pin < 0 {
		return b.fail(fault.NewValidation("reset button pin must not be negative"))
	}
	if hold <= 0 {
		return b.fail(fault.NewValidation("reset button hold must be positive"))
	}
	b.cfg.button = Button{Enabled: true, Pin: pin, Hold: hold, ActiveLow: activeLow}
	return b
}

// DisableHardwareReset turns the reset button off.
func (b *Builder) DisableHardwareReset() *Builder {
	b.cfg.button.Enabled = false
	return b
}

// HTTPReset toggles the unauthenticated POST /reset trigger.
func (b *Builder) HTTPReset(enable bool) *Builder {
	b.cfg.httpReset = enable
	b.cfg.httpResetAuth = false
	return b
}

// AuthenticatedHTTPReset toggles POST /reset gated by the stored reset secret.
func (b *Builder) AuthenticatedHTTPReset(enable bool) *Builder {
	b.cfg.httpReset = enable
	b.cfg.httpResetAuth = enable
	return b
}

// LED enables the status indicator on pin.
func (b *Builder) LED(pin int, activeLow bool) *Builder {
	if pin < 0 {
		return b.fail(fault.NewValidation("LED pin must not be negative"))
	}
	b.cfg.led = LED{Enabled: true, Pin: pin, ActiveLow: activeLow}
	return b
}

// MDNS advertises the connected device as name.local.
func (b *Builder) MDNS(name string) *Builder {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, ". ") {
		return b.fail(fault.NewValidationf("invalid mDNS name %q", name))
	}
	b.cfg.mdnsEnabled = true
	b.cfg.mdnsName = name
	return b
}

// DoubleRebootDetect resets the device when two boots fall within window.
func (b *Builder) DoubleRebootDetect(window time.Duration) *Builder {
	if window <= 0 {
		return b.fail(fault.NewValidation("double reboot window must be positive"))
	}
	b.cfg.doubleReboot = true
	b.cfg.doubleRebootWindow = window
	return b
}

// LogLevel sets one of none, error, warn, info or debug.
func (b *Builder) LogLevel(level string) *Builder {
	if _, _, err := logging.ParseLevel(level); err != nil {
		return b.fail(fault.NewValidation(err.Error()))
	}
	b.cfg.logLevel = strings.ToLower(level)
	return b
}

// Metrics serves GET /metrics on the connected surface.
func (b *Builder) Metrics(enable bool) *Builder {
	b.cfg.metrics = enable
	return b
}

// EventStream serves GET /events on the connected surface.
func (b *Builder) EventStream(enable bool) *Builder {
	b.cfg.events = enable
	return b
}

// HTTPPort sets the listener port of both HTTP surfaces. Zero picks a free port.
func (b *Builder) HTTPPort(port int) *Builder {
	if port < 0 || port > 65535 {
		return b.fail(fault.NewValidationf("invalid HTTP port %d", port))
	}
	b.cfg.httpPort = port
	return b
}

// DNSPort sets the captive DNS port. Zero picks a free port.
func (b *Builder) DNSPort(port int) *Builder {
	if port < 0 || port > 65535 {
		return b.fail(fault.NewValidationf("invalid DNS port %d", port))
	}
	b.cfg.dnsPort = port
	return b
}

// Route attaches a custom handler.
func (b *Builder) Route(path, method string, handler http.Handler, scope Scope, requireAuth bool) *Builder {
	if !strings.HasPrefix(path, "/") {
		return b.fail(fault.NewValidationf("route path %q must start with /", path))
	}
	if handler == nil {
		return b.fail(fault.NewValidationf("route %s %s has no handler", method, path))
	}
	if method == "" {
		method = http.MethodGet
	}
	b.cfg.routes = append(b.cfg.routes, Route{
		Path:        path,
		Method:      strings.ToUpper(method),
		Handler:     handler,
		Scope:       scope,
		RequireAuth: requireAuth,
	})
	return b
}

// Get registers a GET custom route.
func (b *Builder) Get(path string, handler http.HandlerFunc, scope Scope, requireAuth bool) *Builder {
	return b.Route(path, http.MethodGet, handler, scope, requireAuth)
}

// Post registers a POST custom route.
func (b *Builder) Post(path string, handler http.HandlerFunc, scope Scope, requireAuth bool) *Builder {
	return b.Route(path, http.MethodPost, handler, scope, requireAuth)
}

// JSONRoute attaches a route whose body is provider's value encoded as JSON.
func (b *Builder) JSONRoute(path, method string, provider func() any, scope Scope, requireAuth bool) *Builder {
	if provider == nil {
		return b.fail(fault.NewValidationf("JSON route %s has no provider", path))
	}
	return b.Route(path, method, JSONHandler(provider), scope, requireAuth)
}

// Build validates and returns the immutable configuration.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	cfg := b.cfg
	cfg.routes = append([]Route(nil), b.cfg.routes...)
	return cfg, nil
}
