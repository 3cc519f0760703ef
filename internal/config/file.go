package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnvVar overrides DefaultPath.
	ConfigPathEnvVar = "WIFIPROV_CONFIG"

	defaultConfigPath = "/etc/wifiprov/config.yaml"
	defaultStorePath  = "/var/lib/wifiprov/nvs.db"
	fileVersion       = 1
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// File is the on-disk YAML form of the daemon configuration.
// Durations are stored as integer milliseconds.
type File struct {
	Version     int             `yaml:"version"`
	LogLevel    string          `yaml:"log_level,omitempty"`
	AccessPoint AccessPointFile `yaml:"access_point"`
	Connection  ConnectionFile  `yaml:"connection"`
	Reset       ResetFile       `yaml:"reset"`
	LED         PinFile         `yaml:"led"`
	MDNS        MDNSFile        `yaml:"mdns"`
	HTTP        HTTPFile        `yaml:"http"`
	DNS         DNSFile         `yaml:"dns"`
	Runtime     RuntimeFile     `yaml:"runtime"`
}

// AccessPointFile is the access_point section.
type AccessPointFile struct {
	Name      string `yaml:"name"`
	Password  string `yaml:"password,omitempty"`
	TimeoutMS int64  `yaml:"timeout_ms"`
}

// ConnectionFile is the connection section.
type ConnectionFile struct {
	MaxRetries   int   `yaml:"max_retries"`
	RetryDelayMS int64 `yaml:"retry_delay_ms"`
	AutoWipe     bool  `yaml:"auto_wipe"`
}

// ResetFile is the reset section.
type ResetFile struct {
	Button       ButtonFile       `yaml:"button"`
	HTTP         HTTPResetFile    `yaml:"http"`
	DoubleReboot DoubleRebootFile `yaml:"double_reboot"`
}

// ButtonFile configures the reset button.
type ButtonFile struct {
	Enabled   bool  `yaml:"enabled"`
	Pin       int   `yaml:"pin"`
	HoldMS    int64 `yaml:"hold_ms"`
	ActiveLow bool  `yaml:"active_low"`
}

// HTTPResetFile configures POST /reset.
type HTTPResetFile struct {
	Enabled       bool `yaml:"enabled"`
	Authenticated bool `yaml:"authenticated"`
}

// DoubleRebootFile configures double-reboot detection.
type DoubleRebootFile struct {
	Enabled  bool  `yaml:"enabled"`
	WindowMS int64 `yaml:"window_ms"`
}

// PinFile configures the status LED.
type PinFile struct {
	Enabled   bool `yaml:"enabled"`
	Pin       int  `yaml:"pin"`
	ActiveLow bool `yaml:"active_low"`
}

// MDNSFile is the mdns section.
type MDNSFile struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// HTTPFile is the http section.
type HTTPFile struct {
	Port    int  `yaml:"port"`
	Metrics bool `yaml:"metrics"`
	Events  bool `yaml:"events"`
}

// DNSFile is the dns section.
type DNSFile struct {
	Port int `yaml:"port"`
}

// RuntimeFile holds host wiring that is not part of the supervisor Config.
type RuntimeFile struct {
	StorePath string `yaml:"store_path"`
	// Radio selects the backend: "nm" (NetworkManager) or "sim".
	Radio     string `yaml:"radio"`
	Interface string `yaml:"interface,omitempty"`
	// GPIO selects the pin backend: "cdev" (character device) or "noop".
	GPIO     string `yaml:"gpio"`
	GPIOChip string `yaml:"gpio_chip,omitempty"`
	// Restart selects how a restart is performed: "exit" or "reboot".
	Restart string `yaml:"restart"`
}

// DefaultPath returns $WIFIPROV_CONFIG or /etc/wifiprov/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	return defaultConfigPath
}

func ms(d time.Duration) int64 { return d.Milliseconds() }

func fromMS(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

// NewFile returns the file form of the default configuration.
func NewFile() *File {
	d := Default()
	return &File{
		Version:  fileVersion,
		LogLevel: d.LogLevel(),
		AccessPoint: AccessPointFile{
			Name:      d.APName(),
			TimeoutMS: ms(d.APTimeout()),
		},
		Connection: ConnectionFile{
			MaxRetries:   d.MaxRetries(),
			RetryDelayMS: ms(d.RetryDelay()),
			AutoWipe:     d.AutoWipeOnMaxRetries(),
		},
		Reset: ResetFile{
			Button: ButtonFile{
				Pin:       d.Button().Pin,
				HoldMS:    ms(d.Button().Hold),
				ActiveLow: d.Button().ActiveLow,
			},
			DoubleReboot: DoubleRebootFile{WindowMS: ms(d.DoubleRebootWindow())},
		},
		LED:  PinFile{Pin: -1},
		MDNS: MDNSFile{Name: d.MDNSName()},
		HTTP: HTTPFile{Port: d.HTTPPort()},
		DNS:  DNSFile{Port: d.DNSPort()},
		Runtime: RuntimeFile{
			StorePath: defaultStorePath,
			Radio:     "nm",
			GPIO:      "cdev",
			Restart:   "exit",
		},
	}
}

// LoadFile reads a YAML configuration. Missing keys keep their defaults.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := NewFile()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Version != fileVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", f.Version, fileVersion)
	}

	return f, nil
}

// Save writes the file atomically (temp file then rename).
func (f *File) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wifiprov configuration
# Durations are in milliseconds. A timeout of 0 disables the AP inactivity timeout.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Builder converts the file into a Builder so the host can add routes before Build.
func (f *File) Builder() *Builder {
	b := NewBuilder().
		APName(f.AccessPoint.Name).
		APPassword(f.AccessPoint.Password).
		APTimeout(fromMS(f.AccessPoint.TimeoutMS)).
		MaxRetries(f.Connection.MaxRetries).
		RetryDelay(fromMS(f.Connection.RetryDelayMS)).
		AutoWipeOnMaxRetries(f.Connection.AutoWipe).
		Metrics(f.HTTP.Metrics).
		EventStream(f.HTTP.Events).
		HTTPPort(f.HTTP.Port).
		DNSPort(f.DNS.Port)

	if f.LogLevel != "" {
		b.LogLevel(f.LogLevel)
	}
	if f.Reset.Button.Enabled {
		b.HardwareReset(f.Reset.Button.Pin, fromMS(f.Reset.Button.HoldMS), f.Reset.Button.ActiveLow)
	}
	switch {
	case f.Reset.HTTP.Authenticated:
		b.AuthenticatedHTTPReset(true)
	case f.Reset.HTTP.Enabled:
		b.HTTPReset(true)
	}
	if f.Reset.DoubleReboot.Enabled {
		b.DoubleRebootDetect(fromMS(f.Reset.DoubleReboot.WindowMS))
	}
	if f.LED.Enabled {
		b.LED(f.LED.Pin, f.LED.ActiveLow)
	}
	if f.MDNS.Enabled {
		b.MDNS(f.MDNS.Name)
	}
	return b
}

// Config builds the configuration without custom routes.
func (f *File) Config() (Config, error) {
	return f.Builder().Build()
}
