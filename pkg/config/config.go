package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "HTBWRITEUPS_"

// Config holds all configuration options for the writeup downloader
type Config struct {
	// Hack The Box API access
	API APIConfig `yaml:"api" json:"api"`

	// Download loop settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Console output settings
	UI UIConfig `yaml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds API endpoint and credential configuration
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	WebURL    string        `yaml:"web_url" json:"web_url"`
	Token     string        `yaml:"token" json:"token"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// DownloadConfig holds settings for the ID loop and the file fetcher
type DownloadConfig struct {
	OutputDir         string        `yaml:"output_dir" json:"output_dir"`
	StartID           int           `yaml:"start_id" json:"start_id"`
	MaxID             int           `yaml:"max_id" json:"max_id"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RateLimitBackoff  time.Duration `yaml:"rate_limit_backoff" json:"rate_limit_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	PaceEvery         int           `yaml:"pace_every" json:"pace_every"`
	PaceInterval      time.Duration `yaml:"pace_interval" json:"pace_interval"`
	ChunkSize         int           `yaml:"chunk_size" json:"chunk_size"`
	IgnoreFile        string        `yaml:"ignore_file" json:"ignore_file"`
	SkipExisting      bool          `yaml:"skip_existing" json:"skip_existing"`
}

// MarshalYAML writes Timeout as a duration string such as "1m0s"
func (a APIConfig) MarshalYAML() (interface{}, error) {
	return struct {
		BaseURL   string `yaml:"base_url"`
		WebURL    string `yaml:"web_url"`
		Token     string `yaml:"token"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	}{a.BaseURL, a.WebURL, a.Token, a.UserAgent, a.Timeout.String()}, nil
}

// MarshalYAML writes the backoff and pacing intervals as duration strings
func (d DownloadConfig) MarshalYAML() (interface{}, error) {
	return struct {
		OutputDir         string  `yaml:"output_dir"`
		StartID           int     `yaml:"start_id"`
		MaxID             int     `yaml:"max_id"`
		MaxRetries        int     `yaml:"max_retries"`
		RateLimitBackoff  string  `yaml:"rate_limit_backoff"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		PaceEvery         int     `yaml:"pace_every"`
		PaceInterval      string  `yaml:"pace_interval"`
		ChunkSize         int     `yaml:"chunk_size"`
		IgnoreFile        string  `yaml:"ignore_file"`
		SkipExisting      bool    `yaml:"skip_existing"`
	}{
		d.OutputDir, d.StartID, d.MaxID, d.MaxRetries,
		d.RateLimitBackoff.String(), d.BackoffMultiplier,
		d.PaceEvery, d.PaceInterval.String(),
		d.ChunkSize, d.IgnoreFile, d.SkipExisting,
	}, nil
}

// UIConfig holds console output preferences
type UIConfig struct {
	NoColor  bool `yaml:"no_color" json:"no_color"`
	Progress bool `yaml:"progress" json:"progress"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://labs.hackthebox.com/api/v4",
			WebURL:    "https://app.hackthebox.com",
			UserAgent: "curl/8.5.0",
			Timeout:   60 * time.Second,
		},
		Download: DownloadConfig{
			StartID:           1,
			MaxID:             578,
			MaxRetries:        3,
			RateLimitBackoff:  10 * time.Second,
			BackoffMultiplier: 1.0,
			PaceEvery:         6,
			PaceInterval:      10 * time.Second,
			ChunkSize:         1024,
			IgnoreFile:        "ignore_list",
			SkipExisting:      false,
		},
		UI: UIConfig{
			NoColor:  false,
			Progress: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv(envPrefix + "TOKEN"); token != "" {
		c.API.Token = token
	}
	if baseURL := os.Getenv(envPrefix + "BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if userAgent := os.Getenv(envPrefix + "USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if timeout := os.Getenv(envPrefix + "TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		c.API.Timeout = d
	}

	if outputDir := os.Getenv(envPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Download.OutputDir = outputDir
	}
	if maxID := os.Getenv(envPrefix + "MAX_ID"); maxID != "" {
		var val int
		fmt.Sscanf(maxID, "%d", &val)
		if val > 0 {
			c.Download.MaxID = val
		}
	}
	if retries := os.Getenv(envPrefix + "MAX_RETRIES"); retries != "" {
		var val int
		fmt.Sscanf(retries, "%d", &val)
		if val > 0 {
			c.Download.MaxRetries = val
		}
	}
	if ignoreFile := os.Getenv(envPrefix + "IGNORE_FILE"); ignoreFile != "" {
		c.Download.IgnoreFile = ignoreFile
	}

	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		c.UI.NoColor = true
	}

	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(envPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".htbwriteups.yaml",
		".htbwriteups.yml",
		filepath.Join(home, ".config", "htbwriteups", "config.yaml"),
		filepath.Join(home, ".config", "htbwriteups", "config.yml"),
		filepath.Join(home, ".htbwriteups.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// The API token is checked by the command that needs it, so config
// subcommands work without one.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}

	if c.Download.StartID < 1 {
		errs = append(errs, errors.New("start ID must be at least 1"))
	}
	if c.Download.MaxID < c.Download.StartID {
		errs = append(errs, errors.New("max ID must not be lower than start ID"))
	}
	if c.Download.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.Download.RateLimitBackoff < 0 {
		errs = append(errs, errors.New("rate limit backoff cannot be negative"))
	}
	if c.Download.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}
	if c.Download.PaceEvery < 0 {
		errs = append(errs, errors.New("pace every cannot be negative"))
	}
	if c.Download.PaceInterval < 0 {
		errs = append(errs, errors.New("pace interval cannot be negative"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.API.Token = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.API.Timeout = timeout
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Download.OutputDir = outputDir
	}
	if startID, ok := flags["start-id"].(int); ok && startID > 0 {
		c.Download.StartID = startID
	}
	if maxID, ok := flags["max-id"].(int); ok && maxID > 0 {
		c.Download.MaxID = maxID
	}
	if retries, ok := flags["max-retries"].(int); ok && retries > 0 {
		c.Download.MaxRetries = retries
	}
	if ignoreFile, ok := flags["ignore-file"].(string); ok && ignoreFile != "" {
		c.Download.IgnoreFile = ignoreFile
	}
	if skip, ok := flags["skip-existing"].(bool); ok {
		c.Download.SkipExisting = skip
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.NoColor = true
	}
	if progress, ok := flags["progress"].(bool); ok {
		c.UI.Progress = progress
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".htbwriteups.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
