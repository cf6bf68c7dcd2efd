package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Pool.NumWorkers != 8 {
		t.Errorf("expected default workers 8, got %d", cfg.Pool.NumWorkers)
	}
	if cfg.Fetcher.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Fetcher.Timeout)
	}
	if cfg.Fetcher.MaxRedirects != 10 {
		t.Errorf("expected default max redirects 10, got %d", cfg.Fetcher.MaxRedirects)
	}
	if cfg.DefaultCount != 10 {
		t.Errorf("expected default count 10, got %d", cfg.DefaultCount)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	yamlContent := `
logger:
  level: debug
  format: json
pool:
  num_workers: 3
fetcher:
  timeout: 5s
  max_redirects: 4
default_count: 25
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg := Default()
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Logger.Project != "imgfetch" {
		t.Errorf("expected project kept from defaults, got %q", cfg.Logger.Project)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.Format != "json" {
		t.Errorf("unexpected logger config %+v", cfg.Logger)
	}
	if cfg.Pool.NumWorkers != 3 {
		t.Errorf("expected workers 3, got %d", cfg.Pool.NumWorkers)
	}
	if cfg.Fetcher.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Fetcher.Timeout)
	}
	if cfg.Fetcher.MaxRedirects != 4 {
		t.Errorf("expected max redirects 4, got %d", cfg.Fetcher.MaxRedirects)
	}
	if cfg.DefaultCount != 25 {
		t.Errorf("expected default count 25, got %d", cfg.DefaultCount)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := Default()
	if err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), &cfg); err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg != Default() {
		t.Errorf("config changed: %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pool: [yaml: content"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg := Default()
	if err := LoadConfig(path, &cfg); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("IMGFETCH_WORKERS", "16")
	t.Setenv("IMGFETCH_TIMEOUT", "750ms")
	t.Setenv("IMGFETCH_MAX_REDIRECTS", "2")
	t.Setenv("IMGFETCH_DEFAULT_COUNT", "3")
	t.Setenv("IMGFETCH_LOG_LEVEL", "warn")
	t.Setenv("IMGFETCH_LOG_FORMAT", "json")

	cfg := Default()
	if err := LoadEnv(&cfg); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if cfg.Pool.NumWorkers != 16 {
		t.Errorf("expected workers 16, got %d", cfg.Pool.NumWorkers)
	}
	if cfg.Fetcher.Timeout != 750*time.Millisecond {
		t.Errorf("expected timeout 750ms, got %v", cfg.Fetcher.Timeout)
	}
	if cfg.Fetcher.MaxRedirects != 2 {
		t.Errorf("expected max redirects 2, got %d", cfg.Fetcher.MaxRedirects)
	}
	if cfg.DefaultCount != 3 {
		t.Errorf("expected default count 3, got %d", cfg.DefaultCount)
	}
	if cfg.Logger.Level != "warn" || cfg.Logger.Format != "json" {
		t.Errorf("unexpected logger config %+v", cfg.Logger)
	}
}

func TestLoadEnvDotenvFile(t *testing.T) {
	// register cleanup so values godotenv sets do not leak into other tests
	t.Setenv("IMGFETCH_WORKERS", "")
	t.Setenv("IMGFETCH_TIMEOUT", "")
	os.Unsetenv("IMGFETCH_WORKERS")
	os.Unsetenv("IMGFETCH_TIMEOUT")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IMGFETCH_WORKERS=5\nIMGFETCH_TIMEOUT=2s\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg := Default()
	if err := LoadEnv(&cfg, path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Pool.NumWorkers != 5 {
		t.Errorf("expected workers 5 from .env, got %d", cfg.Pool.NumWorkers)
	}
	if cfg.Fetcher.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s from .env, got %v", cfg.Fetcher.Timeout)
	}
}

func TestLoadEnvInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"IMGFETCH_WORKERS", "many"},
		{"IMGFETCH_TIMEOUT", "soon"},
		{"IMGFETCH_MAX_REDIRECTS", "x"},
		{"IMGFETCH_DEFAULT_COUNT", "ten"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Default()
			if err := LoadEnv(&cfg); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero redirects allowed", mutate: func(c *Config) { c.Fetcher.MaxRedirects = 0 }},
		{name: "empty project", mutate: func(c *Config) { c.Logger.Project = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logger.Level = "loud" }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Pool.NumWorkers = 0 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Fetcher.Timeout = 0 }, wantErr: true},
		{name: "negative redirects", mutate: func(c *Config) { c.Fetcher.MaxRedirects = -1 }, wantErr: true},
		{name: "negative count", mutate: func(c *Config) { c.DefaultCount = -1 }, wantErr: true},
		{name: "count over limit", mutate: func(c *Config) { c.DefaultCount = 100001 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
