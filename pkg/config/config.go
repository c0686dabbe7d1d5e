package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the geoselector crawler
type Config struct {
	// Remote selector service
	Selector SelectorConfig `yaml:"selector" json:"selector"`

	// Destination store
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Transport retry policy
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Traversal settings
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SelectorConfig holds the selector service endpoints
type SelectorConfig struct {
	FrontPageURL string        `yaml:"front_page_url" json:"front_page_url"`
	PostURL      string        `yaml:"post_url" json:"post_url"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	// InsecureSkipVerify disables TLS certificate checks. Only for controlled environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// DatabaseConfig selects the SQL driver and connection string
type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
	// InitSchema creates the tables before crawling when they are missing
	InitSchema bool `yaml:"init_schema" json:"init_schema"`
}

// RetryConfig holds the transport retry policy.
// MaxAttempts 0 retries until success; BaseDelay 0 retries immediately.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
	Jitter      float64       `yaml:"jitter" json:"jitter"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// CrawlConfig holds traversal configuration
type CrawlConfig struct {
	RootGeoID int64 `yaml:"root_geo_id" json:"root_geo_id"`
	// Deadline bounds a whole run; 0 means no deadline
	Deadline      time.Duration `yaml:"deadline" json:"deadline"`
	StrictParents bool          `yaml:"strict_parents" json:"strict_parents"`
	Progress      bool          `yaml:"progress" json:"progress"`
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Selector: SelectorConfig{
			FrontPageURL: "https://realty.yandex.ru",
			PostURL:      "https://realty.yandex.ru/gate/geoselector/",
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:      30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "geoselector.db",
		},
		Retry: RetryConfig{
			MaxAttempts: 0,
			BaseDelay:   0,
			MaxDelay:    time.Minute,
			Multiplier:  2.0,
			Jitter:      0.1,
		},
		Crawl: CrawlConfig{
			RootGeoID:     0,
			StrictParents: true,
			Progress:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from GEOSELECTOR_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("GEOSELECTOR_FRONT_PAGE_URL"); v != "" {
		c.Selector.FrontPageURL = v
	}
	if v := os.Getenv("GEOSELECTOR_POST_URL"); v != "" {
		c.Selector.PostURL = v
	}
	if v := os.Getenv("GEOSELECTOR_USER_AGENT"); v != "" {
		c.Selector.UserAgent = v
	}
	if v := os.Getenv("GEOSELECTOR_INSECURE_SKIP_VERIFY"); v != "" {
		c.Selector.InsecureSkipVerify = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("GEOSELECTOR_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("GEOSELECTOR_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("GEOSELECTOR_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOSELECTOR_MAX_ATTEMPTS: %w", err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("GEOSELECTOR_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOSELECTOR_RETRY_DELAY: %w", err))
		} else {
			c.Retry.BaseDelay = d
		}
	}
	if v := os.Getenv("GEOSELECTOR_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOSELECTOR_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("GEOSELECTOR_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GEOSELECTOR_DEADLINE: %w", err))
		} else {
			c.Crawl.Deadline = d
		}
	}
	if v := os.Getenv("GEOSELECTOR_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("GEOSELECTOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("GEOSELECTOR_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
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
	home := os.Getenv("HOME")
	locations := []string{
		".geoselector.yaml",
		".geoselector.yml",
		filepath.Join(home, ".config", "geoselector", "config.yaml"),
		filepath.Join(home, ".config", "geoselector", "config.yml"),
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

	if c.Selector.FrontPageURL == "" {
		errs = append(errs, errors.New("selector front page URL is required"))
	}
	if c.Selector.PostURL == "" {
		errs = append(errs, errors.New("selector post URL is required"))
	}
	if c.Selector.Timeout <= 0 {
		errs = append(errs, errors.New("selector timeout must be positive"))
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts cannot be negative"))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, errors.New("retry base delay cannot be negative"))
	}
	if c.Retry.BaseDelay > 0 && c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, errors.New("retry jitter must be between 0 and 1"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Crawl.Deadline < 0 {
		errs = append(errs, errors.New("crawl deadline cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["front-page-url"].(string); ok && v != "" {
		c.Selector.FrontPageURL = v
	}
	if v, ok := flags["post-url"].(string); ok && v != "" {
		c.Selector.PostURL = v
	}
	if v, ok := flags["insecure"].(bool); ok {
		c.Selector.InsecureSkipVerify = v
	}
	if v, ok := flags["db-driver"].(string); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := flags["dsn"].(string); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := flags["init-schema"].(bool); ok {
		c.Database.InitSchema = v
	}
	if v, ok := flags["max-attempts"].(int); ok {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["retry-delay"].(time.Duration); ok {
		c.Retry.BaseDelay = v
	}
	if v, ok := flags["rate-limit"].(int); ok {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["root"].(int64); ok {
		c.Crawl.RootGeoID = v
	}
	if v, ok := flags["deadline"].(time.Duration); ok {
		c.Crawl.Deadline = v
	}
	if v, ok := flags["strict-parents"].(bool); ok {
		c.Crawl.StrictParents = v
	}
	if v, ok := flags["progress"].(bool); ok {
		c.Crawl.Progress = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".geoselector.env"))

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
