package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiprov/internal/devclient"
	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/ui"
	"github.com/muurk/wifiprov/internal/urls"
)

var (
	deviceAddr     string
	devicePort     int
	outputFormat   string
	requestTimeout time.Duration
	scanTimeout    time.Duration

	resetPassword string
	promptPass    bool
	assumeYes     bool

	savePassword      string
	saveResetPassword string
)

func init() {
	for _, c := range []*cobra.Command{statusCmd, resetCmd, scanCmd, saveCmd} {
		c.Flags().StringVar(&deviceAddr, "device", "", "Device address (host or IP)")
		c.Flags().IntVar(&devicePort, "port", 80, "Device HTTP port")
		c.Flags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "Overall request timeout")
		rootCmd.AddCommand(c)
	}

	statusCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	scanCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")

	resetCmd.Flags().StringVar(&resetPassword, "password", "", "Reset password, if the device requires one")
	resetCmd.Flags().BoolVar(&promptPass, "prompt", false, "Prompt for the reset password")
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")

	saveCmd.Flags().StringVarP(&savePassword, "password", "p", "", "Network password (prompted when omitted)")
	saveCmd.Flags().StringVar(&saveResetPassword, "reset-password", "", "Password later required for HTTP reset")

	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for devices")
	rootCmd.AddCommand(discoverCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a connected device's status",
	Long: `Fetch /status from a device's connected surface.

Without --device, the local network is searched over mDNS and the single
device found is used.`,
	Example: `  wifiprov status
  wifiprov status --device esp32.local --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	client, err := connectedClient(ctx)
	if err != nil {
		return err
	}
	status, err := client.Status(ctx)
	if err != nil {
		return reportFailure("Status unavailable", err)
	}

	if outputFormat == "json" {
		return printJSON(status)
	}
	fmt.Println(ui.NewSuccessResult(status.Summary(),
		ui.Param{Key: "Device", Value: client.BaseURL},
		ui.Param{Key: "State", Value: status.State},
		ui.Param{Key: "SSID", Value: status.SSID},
		ui.Param{Key: "IP", Value: status.IP},
	))
	return nil
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory-reset a device over HTTP",
	Long: `Ask a device to erase its stored credentials and restart into
provisioning mode. The device must have HTTP reset enabled.`,
	Example: `  wifiprov reset --device 192.168.1.42
  wifiprov reset --device esp32.local --prompt --yes`,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	client, err := connectedClient(ctx)
	if err != nil {
		return err
	}

	fmt.Println(ui.NewHeader("Factory reset", "wifiprov reset", ui.Param{Key: "Device", Value: client.BaseURL}))
	fmt.Println()

	if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, "FACTORY RESET", []string{
		"Stored WiFi credentials will be erased",
		"The device restarts and opens its setup access point",
	}, "RESET") {
		return nil
	}

	password := resetPassword
	if promptPass {
		if password, err = readSecret("Reset password: "); err != nil {
			return err
		}
	}

	msg, err := client.Reset(ctx, password)
	if err != nil {
		return reportFailure("Reset refused", err)
	}
	fmt.Println(ui.NewSuccessResult("Reset accepted", ui.Param{Key: "Device", Value: msg}))
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the networks a provisioning device can see",
	Long: `Ask a device's captive portal to scan for networks. Join the device's
access point first; the portal answers at 192.168.4.1 unless --device says
otherwise.`,
	Example: `  wifiprov scan
  wifiprov scan --device 127.0.0.1 --port 8080`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	client := portalClient()
	networks, err := client.Scan(ctx)
	if err != nil {
		return reportFailure("Scan failed", err)
	}
	if outputFormat == "json" {
		return printJSON(networks)
	}
	fmt.Print(devclient.FormatNetworks(networks))
	return nil
}

var saveCmd = &cobra.Command{
	Use:   "save <ssid>",
	Short: "Send WiFi credentials to a provisioning device",
	Long: `Submit credentials through a device's captive portal. The device stores
them and restarts to join the network.`,
	Example: `  wifiprov save HomeWiFi
  wifiprov save HomeWiFi -p hunter22 --reset-password admin`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	ssid := args[0]
	password := savePassword
	if !cmd.Flags().Changed("password") {
		var err error
		if password, err = readSecret(fmt.Sprintf("Password for %s (empty for an open network): ", ssid)); err != nil {
			return err
		}
	}

	client := portalClient()
	msg, err := client.Save(ctx, ssid, password, saveResetPassword)
	if err != nil {
		return reportFailure("Save failed", err)
	}
	fmt.Println(ui.NewSuccessResult("Credentials sent",
		ui.Param{Key: "SSID", Value: ssid},
		ui.Param{Key: "Device", Value: strings.TrimSpace(msg)},
	))
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find connected wifiprov devices over mDNS",
	Example: `  wifiprov discover
  wifiprov discover --timeout 10s`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Searching for wifiprov devices (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println(ui.NewWarningResult("No devices found").
			AddDetail("Hint", "Devices only advertise once connected"))
		return nil
	}

	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Instance)
		fmt.Printf("   Address: %s\n", d.BaseURL())
		if v := d.Version(); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}
	fmt.Println("Use 'wifiprov status --device <address>' to query a device")
	return nil
}

// connectedClient targets --device, or the single device found over mDNS.
func connectedClient(ctx context.Context) (*devclient.Client, error) {
	if deviceAddr != "" {
		return devclient.NewClient(deviceAddr, devicePort), nil
	}

	fmt.Println("No device specified, searching over mDNS...")
	devices, err := discovery.NewScanner().Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no devices found. Use --device to specify one")
	case 1:
		fmt.Printf("Found %s\n\n", devices[0])
		return devclient.NewClientWithURL(devices[0].BaseURL()), nil
	default:
		for i, d := range devices {
			fmt.Printf("%d. %s\n", i+1, d)
		}
		return nil, errors.New("multiple devices found. Use --device to pick one")
	}
}

func portalClient() *devclient.Client {
	addr := deviceAddr
	if addr == "" {
		addr = urls.PortalAddress
	}
	return devclient.NewClient(addr, devicePort)
}

func reportFailure(title string, err error) error {
	fmt.Println(ui.NewFailureResult(title, errors.New(devclient.GetShortErrorMessage(err)),
		ui.HintLines(devclient.GetTroubleshootingHint(err))))
	return err
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// readSecret prompts without echo on a terminal, or reads a line otherwise.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print(prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}
