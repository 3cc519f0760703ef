// Wifiprov supervises a device's WiFi connection and falls back to a captive
// provisioning portal when no usable network is configured.
//
// Usage:
//
//	wifiprov run                 start the supervisor daemon
//	wifiprov simulate            interactive simulator on fake hardware
//	wifiprov status|scan|save    talk to a running device over HTTP
//	wifiprov credentials show    inspect the local credential store
//
// See 'wifiprov --help' for every command.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/version"
)

// exitCodeError ends the process with a specific status after deferred
// cleanup has run.
type exitCodeError struct {
	code   int
	reason string
}

// Error implements error.
func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exiting with status %d: %s", e.code, e.reason)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wifiprov",
	Short: "WiFi provisioning supervisor",
	Long: `A WiFi provisioning supervisor for headless devices.

The daemon joins the stored network and keeps retrying when the link drops.
Without credentials, or once retries run out, it opens an access point with a
captive portal where a phone can pick a network and enter its password.

The remaining commands talk to a running device over HTTP, maintain the local
credential store, or run the whole supervisor against simulated hardware.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $WIFIPROV_CONFIG or /etc/wifiprov/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (none, error, warn, info, debug)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiprov %s\n", version.Full())
	},
}
