package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/clock"
	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/events"
	"github.com/muurk/wifiprov/internal/gpio"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/metrics"
	"github.com/muurk/wifiprov/internal/nvs"
	"github.com/muurk/wifiprov/internal/provisioner"
	"github.com/muurk/wifiprov/internal/radio"
	"github.com/muurk/wifiprov/internal/radio/nm"
	"github.com/muurk/wifiprov/internal/radio/sim"
	"github.com/muurk/wifiprov/internal/reset"
	"github.com/muurk/wifiprov/internal/system"
	"github.com/muurk/wifiprov/internal/version"
)

// TickInterval is how often the daemon ticks the supervisor.
const TickInterval = 10 * time.Millisecond

const (
	storeNamespace  = "wifiprov"
	defaultGPIOChip = "gpiochip0"
)

var listenHost string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the provisioning supervisor",
	Long: `Run the provisioning supervisor until SIGINT or SIGTERM.

The configuration file selects the radio backend, the GPIO lines for the reset
button and status LED, and how restarts are carried out. With restart "exit"
the daemon exits with status 75 and expects its service manager to start it
again; with "reboot" it asks logind to reboot the machine.

Under systemd with Type=notify the daemon reports readiness, a status line
with the current phase, and watchdog pings when WatchdogSec is set.`,
	Example: `  # Run with the default config file
  wifiprov run

  # Run a dry instance against the simulated radio
  wifiprov config init --path ./wifiprov.yaml
  wifiprov run --config ./wifiprov.yaml --log-level debug`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&listenHost, "listen", "", "Restrict portal and DNS listeners to this address")
	rootCmd.AddCommand(runCmd)
}

func loadConfigFile() (*config.File, string, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("%w (create one with 'wifiprov config init --path %s')", err, path)
	}
	return file, path, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	file, path, err := loadConfigFile()
	if err != nil {
		return err
	}
	cfg, err := file.Config()
	if err != nil {
		return fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Loaded configuration", zap.String("path", path), zap.String("radio", file.Runtime.Radio))

	store, err := openStore(file.Runtime.StorePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	clk := clock.NewMonotonic()
	r, closeRadio, err := openRadio(file.Runtime, clk)
	if err != nil {
		return err
	}
	defer closeRadio()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exit := system.NewExitRestarter(cancel)
	var restarter reset.Restarter = exit
	if file.Runtime.Restart == "reboot" {
		restarter = system.Chain{system.NewLogin1Restarter(), exit}
	}

	opts := provisioner.Options{
		Radio:      r,
		Store:      store,
		Clock:      clk,
		Restarter:  restarter,
		ListenHost: listenHost,
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	chip := file.Runtime.GPIOChip
	if chip == "" {
		chip = defaultGPIOChip
	}
	board, err := gpio.OpenBoard(file.Runtime.GPIO, chip)
	if err != nil {
		return err
	}
	closers = append(closers, board)
	if err := attachPins(board, file.Runtime.GPIO, cfg, &opts); err != nil {
		return err
	}

	if cfg.MetricsEnabled() {
		opts.Metrics = metrics.New(true)
	}
	if cfg.EventStreamEnabled() {
		opts.Events = events.NewHub()
		defer opts.Events.Close()
	}
	if cfg.MDNSEnabled() {
		opts.Advertiser = discovery.NewAdvertiser()
	}

	coord, err := provisioner.New(cfg, opts)
	if err != nil {
		return err
	}
	defer coord.Close()

	notifier := system.NewNotifier()
	coord.Begin()
	notifier.Ready()
	if d := notifier.WatchdogInterval(); d > 0 {
		logging.Info("systemd watchdog enabled", zap.Duration("ping_interval", d))
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			notifier.Stopping()
			coord.Close()
			if reason, ok := exit.Requested(); ok {
				logging.Info("Exiting for restart", zap.String("reason", reason))
				return &exitCodeError{code: system.ExitCodeRestart, reason: reason}
			}
			logging.Info("Shutting down", zap.String("version", version.Version))
			return nil

		case now := <-ticker.C:
			coord.Tick()
			notifier.Status(statusLine(coord))
			notifier.Watchdog(now)
		}
	}
}

// attachPins opens the reset button and status LED on board.
func attachPins(board gpio.Board, backend string, cfg config.Config, opts *provisioner.Options) error {
	if b := cfg.Button(); b.Enabled {
		if backend == gpio.BackendNoop && !b.ActiveLow {
			// Noop inputs read high, which an active-high button sees as held.
			logging.Warn("Reset button ignored on the noop gpio backend", zap.Int("pin", b.Pin))
		} else {
			in, err := board.Input(b.Pin, b.ActiveLow)
			if err != nil {
				return fmt.Errorf("reset button: %w", err)
			}
			opts.Button = in
		}
	}
	if l := cfg.LED(); l.Enabled {
		out, err := board.Output(l.Pin)
		if err != nil {
			return fmt.Errorf("status LED: %w", err)
		}
		opts.LED = out
	}
	return nil
}

func statusLine(c *provisioner.Coordinator) string {
	switch {
	case c.IsConnected():
		return fmt.Sprintf("Connected to %s", c.SSID())
	case c.IsProvisioning() && c.APName() != "":
		return fmt.Sprintf("Provisioning on %s", c.APName())
	default:
		return c.Phase().String()
	}
}

func openStore(path string) (*nvs.Bolt, error) {
	if path == "" {
		return nil, errors.New("runtime.store_path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	store, err := nvs.OpenBolt(path, storeNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return store, nil
}

func openRadio(rt config.RuntimeFile, clk clock.Clock) (radio.Radio, func(), error) {
	switch rt.Radio {
	case "nm", "":
		iface := rt.Interface
		if iface == "" {
			iface = "wlan0"
		}
		r, err := nm.Open(iface)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case "sim":
		logging.Warn("Using the simulated radio; no real network will be joined")
		return sim.New(clk, nil), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown radio backend %q (want nm or sim)", rt.Radio)
	}
}
