package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"htbwriteups/pkg/auth"
	"htbwriteups/pkg/config"
	"htbwriteups/pkg/logger"
	"htbwriteups/pkg/scraper"
	"htbwriteups/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	noColor    bool

	// Download flags
	useStoredToken bool
	profile        string
	baseURL        string
	timeout        time.Duration
	startID        int
	maxID          int
	maxRetries     int
	ignoreFile     string
	skipExisting   bool
	noProgress     bool
)

// rootCmd downloads the writeups when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "htbwriteups <token> <output_directory>",
	Short: "Bulk download Hack The Box machine writeups",
	Long: `htbwriteups downloads the official PDF writeup of every retired
Hack The Box machine into a directory.

For each machine ID the name is looked up through the labs API and the
writeup is saved as <name>.pdf. Rate limited requests are retried, IDs
listed in the ignore file are skipped, and the writeups that could not be
downloaded are listed at the end with a link to fetch them by hand.

The token is the App Token from your Hack The Box account settings. Store
it once with 'htbwriteups auth login' and pass --use-stored-token to leave
it off the command line.`,
	Example: `  # Download everything into ./writeups
  htbwriteups eyJ0eXAiOiJKV1Qi... ./writeups

  # Use the stored token and only fetch IDs 100 to 200
  htbwriteups --use-stored-token --start-id 100 --max-id 200 ./writeups`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:    validateArgs,
	Run:     runDownload,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .htbwriteups.yaml or ~/.config/htbwriteups/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Download flags
	rootCmd.Flags().BoolVar(&useStoredToken, "use-stored-token", false, "use the token saved with 'auth login' instead of the first argument")
	rootCmd.Flags().StringVar(&profile, "profile", auth.DefaultProfile, "stored token profile to use with --use-stored-token")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "labs API base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout for each HTTP request (default 60s)")
	rootCmd.Flags().IntVar(&startID, "start-id", 0, "first machine ID to fetch (default 1)")
	rootCmd.Flags().IntVar(&maxID, "max-id", 0, "last machine ID to fetch (default 578)")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per writeup when rate limited (default 3)")
	rootCmd.Flags().StringVar(&ignoreFile, "ignore-file", "", "file listing machine IDs to skip (default ignore_list)")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip machines whose PDF is already in the output directory")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the download progress bar")

	// Version template
	rootCmd.SetVersionTemplate(`htbwriteups {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// validateArgs requires <token> <output_directory>, or only the output
// directory when --use-stored-token is set.
func validateArgs(cmd *cobra.Command, args []string) error {
	want := 2
	if useStoredToken {
		want = 1
	}
	if len(args) != want {
		return fmt.Errorf("accepts %d arg(s), received %d", want, len(args))
	}
	return nil
}

// splitArgs returns the token and output directory from the positionals
func splitArgs(args []string, stored bool) (token, outputDir string) {
	if stored {
		return "", strings.TrimSpace(args[0])
	}
	return strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
}

// collectFlags builds the override map for config.Load from the flags
// the user actually set.
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("base-url") {
		flags["base-url"] = baseURL
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("start-id") {
		flags["start-id"] = startID
	}
	if changed("max-id") {
		flags["max-id"] = maxID
	}
	if changed("max-retries") {
		flags["max-retries"] = maxRetries
	}
	if changed("ignore-file") {
		flags["ignore-file"] = ignoreFile
	}
	if changed("skip-existing") {
		flags["skip-existing"] = skipExisting
	}
	if changed("no-progress") {
		flags["progress"] = !noProgress
	}
	if noColor {
		flags["no-color"] = true
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}
	return flags
}

func runDownload(cmd *cobra.Command, args []string) {
	token, outputDir := splitArgs(args, useStoredToken)

	flags := collectFlags(cmd)
	flags["output"] = outputDir
	if token != "" {
		flags["token"] = token
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		console := ui.NewConsole(ui.Options{NoColor: noColor})
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	console := ui.NewConsole(ui.Options{NoColor: cfg.UI.NoColor, Progress: cfg.UI.Progress})

	if err := logger.Initialize(&cfg.Logging); err != nil {
		console.Error("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	logger.WithField("version", version).Info("htbwriteups starting")

	if useStoredToken {
		stored, err := storedToken(profile)
		if err != nil {
			console.Error("No stored token found for profile %q", profile)
			console.Dim("Run 'htbwriteups auth login' or set %s", auth.TokenEnvVar)
			os.Exit(1)
		}
		cfg.API.Token = stored
	}

	if cfg.API.Token == "" {
		console.Error("Missing API token")
		os.Exit(1)
	}

	if err := checkOutputDir(cfg.Download.OutputDir); err != nil {
		console.Error("Output directory does not exist: %s", cfg.Download.OutputDir)
		logger.WithError(err).Error("Output directory check failed")
		os.Exit(1)
	}

	s, err := scraper.New(cfg, console)
	if err != nil {
		console.Error("Failed to initialize downloader: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.Label("Machines", fmt.Sprintf("%d to %d", cfg.Download.StartID, cfg.Download.MaxID))
	console.Label("Output", cfg.Download.OutputDir)

	report, err := s.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			console.Warning("Interrupted after %d download attempt(s)", report.Attempted)
		} else {
			console.Error("Download run failed: %v", err)
		}
		logger.WithError(err).Error("Download run stopped")
		os.Exit(1)
	}

	logger.WithFields(map[string]interface{}{
		"saved":  report.Saved,
		"failed": len(report.Failures),
	}).Info("htbwriteups finished")
}

// checkOutputDir fails unless dir exists and is a directory
func checkOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func storedToken(name string) (string, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return "", err
	}
	return manager.Token(name)
}
