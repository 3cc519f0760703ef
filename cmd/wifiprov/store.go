package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiprov/internal/config"
	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/ui"
)

var (
	storePath       string
	showSecret      bool
	credPassword    string
	credResetSecret string
	initPath        string
	initForce       bool
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspect or edit the local credential store",
	Long: `Read and write the credential store directly. Stop the daemon first; the
store file is locked while it runs.`,
}

var credentialsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored network",
	RunE:  runCredentialsShow,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <ssid>",
	Short: "Store a network",
	Example: `  wifiprov credentials set HomeWiFi
  wifiprov credentials set HomeWiFi --password hunter22 --reset-password admin`,
	Args: cobra.ExactArgs(1),
	RunE: runCredentialsSet,
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase everything in the store",
	RunE:  runCredentialsClear,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Example: `  wifiprov config init
  wifiprov config init --path ./wifiprov.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	credentialsCmd.PersistentFlags().StringVar(&storePath, "store", "", "Store file (default: runtime.store_path from the config file)")
	credentialsShowCmd.Flags().BoolVar(&showSecret, "show-password", false, "Print the password in full")
	credentialsSetCmd.Flags().StringVarP(&credPassword, "password", "p", "", "Network password (prompted when omitted)")
	credentialsSetCmd.Flags().StringVar(&credResetSecret, "reset-password", "", "Password required for HTTP reset")
	credentialsClearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	credentialsCmd.AddCommand(credentialsShowCmd, credentialsSetCmd, credentialsClearCmd)

	configInitCmd.Flags().StringVar(&initPath, "path", "", "Where to write (default: --config or the default path)")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(credentialsCmd, configCmd)
}

func resolveStorePath() (string, error) {
	if storePath != "" {
		return storePath, nil
	}
	file, _, err := loadConfigFile()
	if err != nil {
		return "", fmt.Errorf("no --store given and %w", err)
	}
	return file.Runtime.StorePath, nil
}

func openCredentials() (*credstore.Store, func(), error) {
	path, err := resolveStorePath()
	if err != nil {
		return nil, nil, err
	}
	ns, err := openStore(path)
	if err != nil {
		return nil, nil, err
	}
	return credstore.New(ns), func() { _ = ns.Close() }, nil
}

func runCredentialsShow(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openCredentials()
	if err != nil {
		return err
	}
	defer closeStore()

	creds, ok := store.Load()
	if !ok {
		fmt.Println(ui.NewWarningResult("No network stored"))
		return nil
	}

	password := logging.MaskSecret(creds.Password)
	if showSecret {
		password = creds.Password
	}
	resetAuth := "not set"
	if store.HasResetSecret() {
		resetAuth = "set"
	}

	result := ui.NewSuccessResult("Stored network",
		ui.Param{Key: "SSID", Value: creds.SSID},
		ui.Param{Key: "Password", Value: password},
		ui.Param{Key: "Reset secret", Value: resetAuth},
	)
	if marker, err := store.BootMarker(); err == nil {
		result.AddDetail("Boot count", fmt.Sprint(marker.Count))
	}
	fmt.Println(result)
	return nil
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	password := credPassword
	if !cmd.Flags().Changed("password") {
		var err error
		if password, err = readSecret(fmt.Sprintf("Password for %s: ", args[0])); err != nil {
			return err
		}
	}

	store, closeStore, err := openCredentials()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Save(args[0], password); err != nil {
		return err
	}
	if credResetSecret != "" {
		if err := store.SaveResetSecret(credResetSecret); err != nil {
			return err
		}
	}
	fmt.Println(ui.NewSuccessResult("Network stored", ui.Param{Key: "SSID", Value: args[0]}))
	return nil
}

func runCredentialsClear(cmd *cobra.Command, args []string) error {
	if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, "CLEAR STORE", []string{
		"The stored network, reset secret and boot counter are erased",
		"The device opens its setup access point on next start",
	}, "CLEAR") {
		return nil
	}

	store, closeStore, err := openCredentials()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println(ui.NewSuccessResult("Store cleared"))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.NewFile().Save(path); err != nil {
		return err
	}
	fmt.Println(ui.NewSuccessResult("Configuration written", ui.Param{Key: "Path", Value: path}))
	return nil
}
