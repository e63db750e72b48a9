package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
crawl:
  hostlist_path: "hosts.txt"
  worker_count: 20
chrome:
  headless: true
logging:
  level: "debug"
  format: "console"
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.HostlistPath != "hosts.txt" {
		t.Errorf("Crawl.HostlistPath = %q, want %q", cfg.Crawl.HostlistPath, "hosts.txt")
	}
	if cfg.Crawl.WorkerCount != 20 {
		t.Errorf("Crawl.WorkerCount = %d, want %d", cfg.Crawl.WorkerCount, 20)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "console")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	content := `
crawl: {}
chrome: {}
logging: {}
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.HostlistPath != defaultHostlistPath {
		t.Errorf("Crawl.HostlistPath = %q, want default %q", cfg.Crawl.HostlistPath, defaultHostlistPath)
	}
	if cfg.Crawl.WorkerCount != defaultWorkerCount {
		t.Errorf("Crawl.WorkerCount = %d, want default %d", cfg.Crawl.WorkerCount, defaultWorkerCount)
	}
	if cfg.Crawl.MaxCookiePasses != defaultMaxCookiePasses {
		t.Errorf("Crawl.MaxCookiePasses = %d, want default %d", cfg.Crawl.MaxCookiePasses, defaultMaxCookiePasses)
	}
	if cfg.Logging.Level != defaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, defaultLogLevel)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, defaultLogFormat)
	}
	if cfg.Metrics.Addr != defaultMetricsAddr {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, defaultMetricsAddr)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	content := `
crawl:
  worker_count: 8
chrome: {}
logging:
  level: "info"
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	os.Setenv("COOKIECRAWL_WORKER_COUNT", "42")
	os.Setenv("COOKIECRAWL_LOG_LEVEL", "debug")
	os.Setenv("COOKIECRAWL_HOSTLIST_PATH", "/tmp/hosts.txt")
	defer func() {
		os.Unsetenv("COOKIECRAWL_WORKER_COUNT")
		os.Unsetenv("COOKIECRAWL_LOG_LEVEL")
		os.Unsetenv("COOKIECRAWL_HOSTLIST_PATH")
	}()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.WorkerCount != 42 {
		t.Errorf("Crawl.WorkerCount = %d, want %d (from env)", cfg.Crawl.WorkerCount, 42)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q (from env)", cfg.Logging.Level, "debug")
	}
	if cfg.Crawl.HostlistPath != "/tmp/hosts.txt" {
		t.Errorf("Crawl.HostlistPath = %q, want %q (from env)", cfg.Crawl.HostlistPath, "/tmp/hosts.txt")
	}
}

func TestLoad_InvalidWorkerCount(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{"negative", -1},
		{"too high", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
crawl:
  worker_count: ` + itoa(tt.count) + `
chrome: {}
logging: {}
`
			path := createTempConfig(t, content)
			defer os.Remove(path)

			_, err := Load(path)
			if err == nil {
				t.Errorf("Load() expected error for worker_count %d, got nil", tt.count)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	content := `
crawl: {}
chrome: {}
logging:
  level: "invalid"
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid log level, got nil")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	content := `
crawl: {}
chrome: {}
logging:
  format: "xml"
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid log format, got nil")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for non-existent file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `
crawl:
  worker_count: [invalid yaml
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		Crawl: CrawlConfig{
			WorkerCount:   10,
			HostlistPath:  "hosts.txt",
			RulesPath:     "rules.txt",
		},
		Chrome: ChromeConfig{
			PoolSize: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	err := cfg.Validate()
	if err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

// Helper functions

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config: %v", err)
	}
	return path
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	result := ""
	for i > 0 {
		result = string(rune('0'+i%10)) + result
		i /= 10
	}
	if neg {
		result = "-" + result
	}
	return result
}

// Pool configuration tests

func TestLoad_PoolDefaults(t *testing.T) {
	content := `
crawl: {}
chrome: {}
logging: {}
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chrome.PoolSize != defaultPoolSize {
		t.Errorf("Chrome.PoolSize = %d, want default %d", cfg.Chrome.PoolSize, defaultPoolSize)
	}
	if cfg.Chrome.WarmupURL != defaultWarmupURL {
		t.Errorf("Chrome.WarmupURL = %q, want default %q", cfg.Chrome.WarmupURL, defaultWarmupURL)
	}
	if cfg.Chrome.RestartAfterCount != defaultRestartAfterCount {
		t.Errorf("Chrome.RestartAfterCount = %d, want default %d", cfg.Chrome.RestartAfterCount, defaultRestartAfterCount)
	}
	if cfg.Chrome.RestartAfterTime != defaultRestartAfterTime {
		t.Errorf("Chrome.RestartAfterTime = %v, want default %v", cfg.Chrome.RestartAfterTime, defaultRestartAfterTime)
	}
}

func TestLoad_InvalidPoolSize(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
	}{
		{"pool_size negative", -1},
		{"pool_size too high", 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `
crawl: {}
chrome:
  pool_size: ` + itoa(tt.poolSize) + `
logging: {}
`
			path := createTempConfig(t, content)
			defer os.Remove(path)

			_, err := Load(path)
			if err == nil {
				t.Errorf("Load() expected error for pool_size %d, got nil", tt.poolSize)
			}
		})
	}
}

func TestLoad_PoolConfigFromYAML(t *testing.T) {
	content := `
crawl: {}
chrome:
  pool_size: 8
  warmup_url: "https://test.example.com/"
  restart_after_count: 100
  restart_after_time: 1h
logging: {}
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chrome.PoolSize != 8 {
		t.Errorf("Chrome.PoolSize = %d, want %d", cfg.Chrome.PoolSize, 8)
	}
	if cfg.Chrome.WarmupURL != "https://test.example.com/" {
		t.Errorf("Chrome.WarmupURL = %q, want %q", cfg.Chrome.WarmupURL, "https://test.example.com/")
	}
	if cfg.Chrome.RestartAfterCount != 100 {
		t.Errorf("Chrome.RestartAfterCount = %d, want %d", cfg.Chrome.RestartAfterCount, 100)
	}
	if cfg.Chrome.RestartAfterTime != 1*time.Hour {
		t.Errorf("Chrome.RestartAfterTime = %v, want %v", cfg.Chrome.RestartAfterTime, 1*time.Hour)
	}
}

func TestLoad_PoolSizeEnvOverride(t *testing.T) {
	content := `
crawl: {}
chrome:
  pool_size: 4
logging: {}
`
	path := createTempConfig(t, content)
	defer os.Remove(path)

	os.Setenv("COOKIECRAWL_POOL_SIZE", "8")
	defer os.Unsetenv("COOKIECRAWL_POOL_SIZE")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Chrome.PoolSize != 8 {
		t.Errorf("Chrome.PoolSize = %d, want %d (from env)", cfg.Chrome.PoolSize, 8)
	}
}

func TestValidate_ValidPoolConfig(t *testing.T) {
	cfg := &Config{
		Crawl: CrawlConfig{WorkerCount: 10, HostlistPath: "h.txt", RulesPath: "r.txt"},
		Chrome: ChromeConfig{
			PoolSize:          4,
			WarmupURL:         "https://example.com/",
			RestartAfterCount: 50,
			RestartAfterTime:  30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	err := cfg.Validate()
	if err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_InvalidPoolSize(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too_high", 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Crawl: CrawlConfig{WorkerCount: 10, HostlistPath: "h.txt", RulesPath: "r.txt"},
				Chrome: ChromeConfig{
					PoolSize: tt.poolSize,
				},
				Logging: LoggingConfig{Level: "info", Format: "json"},
			}

			err := cfg.Validate()
			if err == nil {
				t.Errorf("Validate() expected error for pool_size %d, got nil", tt.poolSize)
			}
		})
	}
}

func TestValidate_EmptyHostlistPath(t *testing.T) {
	cfg := &Config{
		Crawl: CrawlConfig{WorkerCount: 10, RulesPath: "r.txt"},
		Chrome: ChromeConfig{PoolSize: 1},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for empty hostlist_path, got nil")
	}
}
