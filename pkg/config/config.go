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

// Config holds all configuration options for the availability checker
type Config struct {
	// Marketplace API credentials and endpoint
	Marketplace MarketplaceConfig `yaml:"marketplace" json:"marketplace"`

	// eBay Browse API credentials; optional, eBay rows fail without them
	Ebay EbayConfig `yaml:"ebay" json:"ebay"`

	// Rate limiting and retry configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MarketplaceConfig holds RapidAPI access configuration
type MarketplaceConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key"`
	APIHost   string `yaml:"api_host" json:"api_host"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// EbayConfig holds eBay Browse API application credentials
type EbayConfig struct {
	AppID         string `yaml:"app_id" json:"app_id"`
	CertID        string `yaml:"cert_id" json:"cert_id"`
	Environment   string `yaml:"environment" json:"environment"`
	MarketplaceID string `yaml:"marketplace_id" json:"marketplace_id"`
}

// Enabled reports whether eBay lookups are configured
func (e EbayConfig) Enabled() bool {
	return e.AppID != "" && e.CertID != ""
}

// RateLimitConfig holds the shared request budget and retry policy
type RateLimitConfig struct {
	RequestsPerSecond int           `yaml:"requests_per_second" json:"requests_per_second"`
	Window            time.Duration `yaml:"window" json:"window"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
}

// DownloadConfig holds image download settings
type DownloadConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	Workers      int           `yaml:"workers" json:"workers"`
	ImageQuality int           `yaml:"image_quality" json:"image_quality"`
}

// OutputConfig holds filesystem output settings
type OutputConfig struct {
	DownloadRoot  string `yaml:"download_root" json:"download_root"`
	ResultsSuffix string `yaml:"results_suffix" json:"results_suffix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Marketplace: MarketplaceConfig{
			APIHost:   "aliexpress-datahub.p.rapidapi.com",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Ebay: EbayConfig{
			Environment:   "PRODUCTION",
			MarketplaceID: "EBAY_US",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Window:            time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    time.Second,
			BackoffMultiplier: 2.0,
		},
		Download: DownloadConfig{
			Timeout:      30 * time.Second,
			Workers:      3,
			ImageQuality: 95,
		},
		Output: OutputConfig{
			DownloadRoot:  "downloads",
			ResultsSuffix: "_results",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credential names match the upstream API documentation
	if key := os.Getenv("RAPIDAPI_KEY"); key != "" {
		c.Marketplace.APIKey = key
	}
	if host := os.Getenv("RAPIDAPI_HOST"); host != "" {
		c.Marketplace.APIHost = host
	}

	if appID := os.Getenv("EBAY_APP_ID"); appID != "" {
		c.Ebay.AppID = appID
	}
	if certID := os.Getenv("EBAY_CERT_ID"); certID != "" {
		c.Ebay.CertID = certID
	}
	if env := os.Getenv("EBAY_ENVIRONMENT"); env != "" {
		c.Ebay.Environment = env
	}

	if rps := os.Getenv("ALICHECK_REQUESTS_PER_SECOND"); rps != "" {
		var val int
		fmt.Sscanf(rps, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerSecond = val
		}
	}
	if workers := os.Getenv("ALICHECK_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Download.Workers = val
		}
	}
	if root := os.Getenv("ALICHECK_DOWNLOAD_ROOT"); root != "" {
		c.Output.DownloadRoot = root
	}
	if level := os.Getenv("ALICHECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
	locations := []string{
		".alicheck.yaml",
		".alicheck.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "alicheck", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".alicheck.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Marketplace.APIKey == "" {
		errs = append(errs, errors.New("marketplace API key is required (set RAPIDAPI_KEY)"))
	}
	if c.Marketplace.APIHost == "" {
		errs = append(errs, errors.New("marketplace API host is required"))
	}

	if (c.Ebay.AppID == "") != (c.Ebay.CertID == "") {
		errs = append(errs, errors.New("eBay credentials need both EBAY_APP_ID and EBAY_CERT_ID"))
	}
	switch strings.ToUpper(c.Ebay.Environment) {
	case "PRODUCTION", "SANDBOX":
	default:
		errs = append(errs, errors.New("eBay environment must be PRODUCTION or SANDBOX"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Download.Workers > 10 {
		errs = append(errs, errors.New("workers should not exceed 10"))
	}
	if c.Download.ImageQuality < 1 || c.Download.ImageQuality > 100 {
		errs = append(errs, errors.New("image quality must be between 1 and 100"))
	}

	if c.Output.DownloadRoot == "" {
		errs = append(errs, errors.New("download root is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Flags carries command line overrides into the configuration
type Flags struct {
	APIKey       string
	DownloadRoot string
	Workers      int
	LogLevel     string
}

// MergeFlags merges command line flags into the configuration
func (c *Config) MergeFlags(flags Flags) {
	if flags.APIKey != "" {
		c.Marketplace.APIKey = flags.APIKey
	}
	if flags.DownloadRoot != "" {
		c.Output.DownloadRoot = flags.DownloadRoot
	}
	if flags.Workers > 0 {
		c.Download.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.Logging.Level = flags.LogLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags Flags) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".alicheck.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
