// Package config loads and validates the crawler's YAML configuration,
// with environment-variable overrides for deployment-time tuning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/strobi/cookie-notice-scanner/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config is the top-level crawler configuration.
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	Chrome  ChromeConfig  `yaml:"chrome"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CrawlConfig controls what gets crawled and where results land.
// MaxCookiePasses is loaded and defaulted but not passed on: the
// detector's cookie-deletion loop uses its own fixed ceiling of 16
// passes.
type CrawlConfig struct {
	HostlistPath    string `yaml:"hostlist_path"`
	RulesPath       string `yaml:"rules_path"`
	ScreenshotDir   string `yaml:"screenshot_dir"`
	WorkerCount     int    `yaml:"worker_count"`
	MaxCookiePasses int    `yaml:"max_cookie_delete_passes"`
}

// ChromeConfig controls the headless browser pool.
type ChromeConfig struct {
	Headless  bool `yaml:"headless"`
	NoSandbox bool `yaml:"no_sandbox"`

	PoolSize          int           `yaml:"pool_size"`
	WarmupURL         string        `yaml:"warmup_url"`
	RestartAfterCount int           `yaml:"restart_after_count"`
	RestartAfterTime  time.Duration `yaml:"restart_after_time"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// MetricsConfig controls the debug Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default values
const (
	defaultHostlistPath    = "hostlist.txt"
	defaultRulesPath       = "rules.txt"
	defaultScreenshotDir   = "screenshots"
	defaultWorkerCount     = 10
	defaultMaxCookiePasses = 16

	defaultLogLevel  = logger.LevelInfo
	defaultLogFormat = logger.FormatJSON

	defaultPoolSize          = 1
	defaultWarmupURL         = "https://example.com/"
	defaultRestartAfterCount = 50
	defaultRestartAfterTime  = 30 * time.Minute

	defaultMetricsAddr = "127.0.0.1:9302"
)

// Validation constraints
const (
	minWorkerCount = 1
	maxWorkerCount = 256

	minPoolSize = 1
	maxPoolSize = 16
)

var validLogLevels = map[string]bool{
	logger.LevelDebug: true,
	logger.LevelInfo:  true,
	logger.LevelWarn:  true,
	logger.LevelError: true,
}

var validLogFormats = map[string]bool{
	logger.FormatJSON:    true,
	logger.FormatConsole: true,
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Crawl.HostlistPath == "" {
		c.Crawl.HostlistPath = defaultHostlistPath
	}
	if c.Crawl.RulesPath == "" {
		c.Crawl.RulesPath = defaultRulesPath
	}
	if c.Crawl.ScreenshotDir == "" {
		c.Crawl.ScreenshotDir = defaultScreenshotDir
	}
	if c.Crawl.WorkerCount == 0 {
		c.Crawl.WorkerCount = defaultWorkerCount
	}
	if c.Crawl.MaxCookiePasses == 0 {
		c.Crawl.MaxCookiePasses = defaultMaxCookiePasses
	}

	if c.Chrome.PoolSize == 0 {
		c.Chrome.PoolSize = defaultPoolSize
	}
	if c.Chrome.WarmupURL == "" {
		c.Chrome.WarmupURL = defaultWarmupURL
	}
	if c.Chrome.RestartAfterCount == 0 {
		c.Chrome.RestartAfterCount = defaultRestartAfterCount
	}
	if c.Chrome.RestartAfterTime == 0 {
		c.Chrome.RestartAfterTime = defaultRestartAfterTime
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaultMetricsAddr
	}
}

// applyEnvOverrides applies COOKIECRAWL_-prefixed environment overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COOKIECRAWL_HOSTLIST_PATH"); v != "" {
		c.Crawl.HostlistPath = v
	}
	if v := os.Getenv("COOKIECRAWL_RULES_PATH"); v != "" {
		c.Crawl.RulesPath = v
	}
	if v := os.Getenv("COOKIECRAWL_SCREENSHOT_DIR"); v != "" {
		c.Crawl.ScreenshotDir = v
	}
	if v := os.Getenv("COOKIECRAWL_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crawl.WorkerCount = n
		}
	}

	if v := os.Getenv("COOKIECRAWL_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chrome.PoolSize = n
		}
	}
	if v := os.Getenv("COOKIECRAWL_HEADLESS"); v != "" {
		c.Chrome.Headless = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("COOKIECRAWL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COOKIECRAWL_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("COOKIECRAWL_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("COOKIECRAWL_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Crawl.WorkerCount < minWorkerCount || c.Crawl.WorkerCount > maxWorkerCount {
		return fmt.Errorf("invalid worker_count: %d (must be %d-%d)", c.Crawl.WorkerCount, minWorkerCount, maxWorkerCount)
	}
	if c.Crawl.HostlistPath == "" {
		return fmt.Errorf("hostlist_path must not be empty")
	}
	if c.Crawl.RulesPath == "" {
		return fmt.Errorf("rules_path must not be empty")
	}

	if c.Chrome.PoolSize < minPoolSize || c.Chrome.PoolSize > maxPoolSize {
		return fmt.Errorf("invalid pool_size: %d (must be %d-%d)", c.Chrome.PoolSize, minPoolSize, maxPoolSize)
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be one of: json, console)", c.Logging.Format)
	}

	return nil
}
