package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/metrics"
	"github.com/muurk/wifiprov/internal/simulator"
	"github.com/muurk/wifiprov/internal/version"
)

var (
	simHTTPPort     int
	simDNSPort      int
	simSSID         string
	simPassword     string
	simHold         time.Duration
	simRetries      int
	simRetryDelay   time.Duration
	simAPTimeout    time.Duration
	simDoubleReboot bool
	simAuthReset    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the supervisor against simulated hardware",
	Long: `Run the full supervisor in a terminal UI against a simulated radio,
reset button, status LED and in-memory store.

The captive portal and connected surface listen on loopback, so a browser or
'wifiprov scan --device 127.0.0.1 --port 8080' can talk to them. Restarts
reboot the simulated board; the store survives them.`,
	Example: `  # Defaults: portal on 127.0.0.1:8080, network "HomeWiFi" / "hunter22"
  wifiprov simulate

  # Fast retry cycle with double-reboot detection
  wifiprov simulate --retries 2 --retry-delay 1s --double-reboot`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simHTTPPort, "http-port", 8080, "Portal and connected surface port")
	f.IntVar(&simDNSPort, "dns-port", 5353, "Captive DNS port")
	f.StringVar(&simSSID, "ssid", "HomeWiFi", "Simulated network in range")
	f.StringVar(&simPassword, "password", "hunter22", "Password of the simulated network")
	f.DurationVar(&simHold, "hold", 3*time.Second, "Button hold time for a reset")
	f.IntVar(&simRetries, "retries", 3, "Connection retries before giving up")
	f.DurationVar(&simRetryDelay, "retry-delay", 2*time.Second, "Delay between retries")
	f.DurationVar(&simAPTimeout, "ap-timeout", 2*time.Minute, "Portal timeout when credentials exist")
	f.BoolVar(&simDoubleReboot, "double-reboot", false, "Reset on two power cycles within 10s")
	f.BoolVar(&simAuthReset, "auth-reset", false, "Require a password for HTTP reset")

	rootCmd.AddCommand(simulateCmd)
}

func simulatorConfig() (config.Config, error) {
	b := config.NewBuilder().
		APName("wifiprov-sim").
		APTimeout(simAPTimeout).
		MaxRetries(simRetries).
		RetryDelay(simRetryDelay).
		HardwareReset(0, simHold, true).
		LED(1, false).
		Metrics(true).
		EventStream(true).
		HTTPPort(simHTTPPort).
		DNSPort(simDNSPort).
		JSONRoute("/api/info", "GET", func() any {
			return map[string]string{"name": "wifiprov-sim", "version": version.Version}
		}, config.Both, false)

	if simAuthReset {
		b.AuthenticatedHTTPReset(true)
	} else {
		b.HTTPReset(true)
	}
	if simDoubleReboot {
		b.DoubleRebootDetect(config.DefaultDoubleRebootWindow)
	}
	return b.Build()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := simulatorConfig()
	if err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = "debug"
	}
	zapLevel, enabled, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logs := simulator.NewLogBuffer(200)
	if enabled {
		logging.SetLogger(logs.Logger(zapLevel))
	} else {
		logging.SetLogger(nil)
	}

	dev, err := simulator.NewDevice(cfg, simulator.Options{
		Networks: []simulator.Network{
			{SSID: simSSID, Password: simPassword, Strength: -52},
			{SSID: "Neighbour", Password: "not-yours", Strength: -81},
		},
		Metrics:    metrics.New(false),
		ListenHost: "127.0.0.1",
	})
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(simulator.NewModel(dev, logs), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("simulator error: %w", err)
	}
	if m, ok := final.(simulator.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
