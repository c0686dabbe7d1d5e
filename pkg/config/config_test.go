package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Retry.MaxAttempts != 0 {
		t.Errorf("Expected default max attempts to be 0 (unlimited), got %d", config.Retry.MaxAttempts)
	}

	if config.Retry.BaseDelay != 0 {
		t.Errorf("Expected default retry delay to be 0, got %v", config.Retry.BaseDelay)
	}

	if config.Selector.InsecureSkipVerify {
		t.Error("Expected TLS verification to be on by default")
	}

	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected default driver to be sqlite, got %s", config.Database.Driver)
	}

	if !config.Crawl.StrictParents {
		t.Error("Expected strict parent checks by default")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEOSELECTOR_FRONT_PAGE_URL", "http://localhost:8080")
	t.Setenv("GEOSELECTOR_POST_URL", "http://localhost:8080/gate/geoselector/")
	t.Setenv("GEOSELECTOR_DB_DRIVER", "postgres")
	t.Setenv("GEOSELECTOR_DB_DSN", "postgres://localhost/geoselector")
	t.Setenv("GEOSELECTOR_MAX_ATTEMPTS", "5")
	t.Setenv("GEOSELECTOR_RETRY_DELAY", "250ms")
	t.Setenv("GEOSELECTOR_REQUESTS_PER_MINUTE", "120")
	t.Setenv("GEOSELECTOR_DEADLINE", "2h")
	t.Setenv("GEOSELECTOR_INSECURE_SKIP_VERIFY", "TRUE")
	t.Setenv("GEOSELECTOR_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Selector.FrontPageURL != "http://localhost:8080" {
		t.Errorf("Expected front page URL from env, got %s", config.Selector.FrontPageURL)
	}
	if config.Database.Driver != "postgres" {
		t.Errorf("Expected driver postgres, got %s", config.Database.Driver)
	}
	if config.Database.DSN != "postgres://localhost/geoselector" {
		t.Errorf("Expected DSN from env, got %s", config.Database.DSN)
	}
	if config.Retry.MaxAttempts != 5 {
		t.Errorf("Expected max attempts 5, got %d", config.Retry.MaxAttempts)
	}
	if config.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Expected retry delay 250ms, got %v", config.Retry.BaseDelay)
	}
	if config.RateLimit.RequestsPerMinute != 120 {
		t.Errorf("Expected 120 requests per minute, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Crawl.Deadline != 2*time.Hour {
		t.Errorf("Expected deadline 2h, got %v", config.Crawl.Deadline)
	}
	if !config.Selector.InsecureSkipVerify {
		t.Error("Expected insecure skip verify from env")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("GEOSELECTOR_MAX_ATTEMPTS", "many")
	t.Setenv("GEOSELECTOR_DEADLINE", "soon")

	err := DefaultConfig().LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error for unparsable environment values")
	}
	if !strings.Contains(err.Error(), "GEOSELECTOR_MAX_ATTEMPTS") || !strings.Contains(err.Error(), "GEOSELECTOR_DEADLINE") {
		t.Errorf("Expected both variables to be reported, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "unsupported driver",
			mutate:    func(c *Config) { c.Database.Driver = "oracle" },
			wantError: true,
		},
		{
			name:      "missing DSN",
			mutate:    func(c *Config) { c.Database.DSN = "" },
			wantError: true,
		},
		{
			name:      "negative max attempts",
			mutate:    func(c *Config) { c.Retry.MaxAttempts = -1 },
			wantError: true,
		},
		{
			name: "backoff with shrinking multiplier",
			mutate: func(c *Config) {
				c.Retry.BaseDelay = time.Second
				c.Retry.Multiplier = 0.5
			},
			wantError: true,
		},
		{
			name:      "jitter out of range",
			mutate:    func(c *Config) { c.Retry.Jitter = 1.5 },
			wantError: true,
		},
		{
			name:      "missing post URL",
			mutate:    func(c *Config) { c.Selector.PostURL = "" },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"db-driver":      "mysql",
		"dsn":            "user:pass@tcp(localhost:3306)/geoselector",
		"max-attempts":   3,
		"root":           int64(225),
		"deadline":       30 * time.Minute,
		"strict-parents": false,
		"insecure":       true,
		"log-level":      "error",
	}

	config.MergeCommandLineFlags(flags)

	if config.Database.Driver != "mysql" {
		t.Errorf("Expected driver mysql, got %s", config.Database.Driver)
	}
	if config.Database.DSN != "user:pass@tcp(localhost:3306)/geoselector" {
		t.Errorf("Expected DSN from flags, got %s", config.Database.DSN)
	}
	if config.Retry.MaxAttempts != 3 {
		t.Errorf("Expected max attempts 3, got %d", config.Retry.MaxAttempts)
	}
	if config.Crawl.RootGeoID != 225 {
		t.Errorf("Expected root 225, got %d", config.Crawl.RootGeoID)
	}
	if config.Crawl.Deadline != 30*time.Minute {
		t.Errorf("Expected deadline 30m, got %v", config.Crawl.Deadline)
	}
	if config.Crawl.StrictParents {
		t.Error("Expected strict parents to be disabled by flag")
	}
	if !config.Selector.InsecureSkipVerify {
		t.Error("Expected insecure flag to be applied")
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "geoselector.yaml")

	config := DefaultConfig()
	config.Database.DSN = "/var/lib/geoselector/regions.db"
	config.Retry.MaxAttempts = 7
	config.Retry.BaseDelay = 2 * time.Second
	config.Crawl.RootGeoID = 1

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Database.DSN != "/var/lib/geoselector/regions.db" {
		t.Errorf("Expected loaded DSN, got %s", loaded.Database.DSN)
	}
	if loaded.Retry.MaxAttempts != 7 {
		t.Errorf("Expected loaded max attempts 7, got %d", loaded.Retry.MaxAttempts)
	}
	if loaded.Retry.BaseDelay != 2*time.Second {
		t.Errorf("Expected loaded retry delay 2s, got %v", loaded.Retry.BaseDelay)
	}
	if loaded.Crawl.RootGeoID != 1 {
		t.Errorf("Expected loaded root 1, got %d", loaded.Crawl.RootGeoID)
	}
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
selector:
  timeout: 10s
retry:
  max_attempts: 4
  base_delay: 500ms
crawl:
  deadline: 90m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Selector.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", config.Selector.Timeout)
	}
	if config.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("Expected base delay 500ms, got %v", config.Retry.BaseDelay)
	}
	if config.Crawl.Deadline != 90*time.Minute {
		t.Errorf("Expected deadline 90m, got %v", config.Crawl.Deadline)
	}
	// untouched sections keep their defaults
	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected default driver to survive partial file, got %s", config.Database.Driver)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("Expected error for explicitly named missing file")
	}
}
