package config

import "time"

// Defaults applied by NewBuilder.
const (
	DefaultAPName             = "ESP32-Config"
	DefaultAPPassword         = ""
	DefaultAPTimeout          = 300 * time.Second
	DefaultMaxRetries         = 10
	DefaultRetryDelay         = 3 * time.Second
	DefaultButtonHold         = 5 * time.Second
	DefaultDoubleRebootWindow = 10 * time.Second
	DefaultLogLevel           = "info"
	DefaultMDNSName           = "esp32"
	DefaultHTTPPort           = 80
	DefaultDNSPort            = 53

	// MinAPPasswordLength is the WPA2 floor for a secured access point.
	MinAPPasswordLength = 8
)

// Button describes the hardware reset input.
type Button struct {
	Enabled   bool
	Pin       int
	Hold      time.Duration
	ActiveLow bool
}

// LED describes the status indicator output.
type LED struct {
	Enabled   bool
	Pin       int
	ActiveLow bool
}

// Config is the immutable supervisor configuration. Build one with a Builder.
type Config struct {
	apName     string
	apPassword string
	apTimeout  time.Duration

	maxRetries int
	retryDelay time.Duration
	autoWipe   bool

	button        Button
	httpReset     bool
	httpResetAuth bool

	led LED

	mdnsEnabled bool
	mdnsName    string

	doubleReboot       bool
	doubleRebootWindow time.Duration

	logLevel string
	metrics  bool
	events   bool
	httpPort int
	dnsPort  int

	routes []Route
}

// APName is the base name of the setup access point.
func (c Config) APName() string { return c.apName }

// APPassword is the access point passphrase. Empty means an open network.
func (c Config) APPassword() string { return c.apPassword }

// APTimeout is the portal inactivity timeout. Zero disables it.
func (c Config) APTimeout() time.Duration { return c.apTimeout }

// APSecured reports whether the access point is opened with WPA2.
func (c Config) APSecured() bool { return len(c.apPassword) >= MinAPPasswordLength }

// MaxRetries is how many failed attempts run before the give-up policy.
func (c Config) MaxRetries() int { return c.maxRetries }

// RetryDelay is the fixed wait between connection attempts.
func (c Config) RetryDelay() time.Duration { return c.retryDelay }

// AutoWipeOnMaxRetries reports whether exhausted retries erase the credentials.
func (c Config) AutoWipeOnMaxRetries() bool { return c.autoWipe }

// Button returns the reset button wiring.
func (c Config) Button() Button { return c.button }

// HTTPResetEnabled reports whether POST /reset may reset the device.
func (c Config) HTTPResetEnabled() bool { return c.httpReset }

// HTTPResetAuthRequired reports whether POST /reset needs the reset secret.
func (c Config) HTTPResetAuthRequired() bool { return c.httpReset && c.httpResetAuth }

// LED returns the status indicator wiring.
func (c Config) LED() LED { return c.led }

// MDNSEnabled reports whether the device advertises itself while connected.
func (c Config) MDNSEnabled() bool { return c.mdnsEnabled }

// MDNSName is the advertised host name without the .local suffix.
func (c Config) MDNSName() string { return c.mdnsName }

// DoubleRebootDetect reports whether two quick boots reset the device.
func (c Config) DoubleRebootDetect() bool { return c.doubleReboot }

// DoubleRebootWindow is the longest gap between boots that counts as a double reboot.
func (c Config) DoubleRebootWindow() time.Duration { return c.doubleRebootWindow }

// LogLevel is one of none, error, warn, info or debug.
func (c Config) LogLevel() string { return c.logLevel }

// MetricsEnabled reports whether GET /metrics is served while connected.
func (c Config) MetricsEnabled() bool { return c.metrics }

// EventStreamEnabled reports whether GET /events is served while connected.
func (c Config) EventStreamEnabled() bool { return c.events }

// HTTPPort is the listener port of both HTTP surfaces.
func (c Config) HTTPPort() int { return c.httpPort }

// DNSPort is the captive DNS responder port.
func (c Config) DNSPort() int { return c.dnsPort }

// Routes returns a copy of the registered custom routes.
func (c Config) Routes() []Route {
	out := make([]Route, len(c.routes))
	copy(out, c.routes)
	return out
}

// RoutesFor returns the custom routes active in the given mode.
func (c Config) RoutesFor(provisioning bool) []Route {
	var out []Route
	for _, r := range c.routes {
		if r.Scope.Active(provisioning) {
			out = append(out, r)
		}
	}
	return out
}

// ConnectedSurfaceEnabled reports whether anything needs an HTTP listener while connected.
func (c Config) ConnectedSurfaceEnabled() bool {
	return c.httpReset || c.metrics || c.events || len(c.RoutesFor(false)) > 0
}

// Default returns the configuration produced by an untouched builder.
func Default() Config {
	cfg, _ := NewBuilder().Build()
	return cfg
}
