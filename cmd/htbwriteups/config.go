package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"htbwriteups/pkg/auth"
	"htbwriteups/pkg/config"
	"htbwriteups/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage htbwriteups configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (HTBWRITEUPS_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file with every option set to its default.

The file is written to .htbwriteups.yaml in the current directory unless a
different path is given with --config.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources.
The API token is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	configPath := configFile
	if configPath == "" {
		configPath = ".htbwriteups.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		console.Error("Configuration file already exists: %s", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		console.Error("Failed to create configuration file: %v", err)
		os.Exit(1)
	}

	console.Success("Configuration file created: %s", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your API token with 'htbwriteups auth login'")
	fmt.Println("2. Run 'htbwriteups config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'htbwriteups --use-stored-token <output_directory>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	display := *cfg
	if display.API.Token != "" {
		display.API.Token = auth.MaskToken(display.API.Token)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		console.Error("Failed to format configuration: %v", err)
		os.Exit(1)
	}

	console.Info("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(ui.Options{NoColor: noColor})

	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		console.Error("Configuration validation failed: %v", err)
		os.Exit(1)
	}

	if cfg.API.Token == "" {
		console.Warning("No API token configured; pass it as an argument or use --use-stored-token")
	}
	if cfg.Download.OutputDir != "" {
		if info, err := os.Stat(cfg.Download.OutputDir); err != nil || !info.IsDir() {
			console.Warning("Output directory does not exist: %s", cfg.Download.OutputDir)
		}
	}
	if _, err := os.Stat(cfg.Download.IgnoreFile); err != nil {
		console.Warning("Ignore file not found: %s", cfg.Download.IgnoreFile)
	}

	console.Success("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  API base URL: %s\n", cfg.API.BaseURL)
	fmt.Printf("  Machine IDs: %d to %d\n", cfg.Download.StartID, cfg.Download.MaxID)
	fmt.Printf("  Max retries: %d (backoff %s)\n", cfg.Download.MaxRetries, cfg.Download.RateLimitBackoff)
	fmt.Printf("  Pause: %s every %d IDs\n", cfg.Download.PaceInterval, cfg.Download.PaceEvery)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
