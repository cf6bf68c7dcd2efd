package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JonnyShabli/imgfetch/internal/Service"
	"github.com/JonnyShabli/imgfetch/internal/Service/downloader"
	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

const envPrefix = "IMGFETCH_"

type Config struct {
	Logger       logster.Config     `yaml:"logger"`
	Pool         Service.PoolConfig `yaml:"pool"`
	Fetcher      downloader.Config  `yaml:"fetcher"`
	DefaultCount int                `yaml:"default_count"`
}

func Default() Config {
	return Config{
		Logger: logster.Config{
			Project: "imgfetch",
			Level:   "info",
			Format:  "console",
		},
		Pool:         Service.PoolConfig{NumWorkers: 8},
		Fetcher:      downloader.DefaultConfig(),
		DefaultCount: 10,
	}
}

// LoadConfig overlays the YAML file at filename onto cfg.
// A missing file leaves cfg untouched.
func LoadConfig(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	return nil
}

// LoadEnv reads dotenv files (if present) into the process environment and
// applies IMGFETCH_* overrides to cfg. Variables already set win over the files.
func LoadEnv(cfg *Config, files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	if v, ok := lookup("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sWORKERS: %w", envPrefix, err)
		}
		cfg.Pool.NumWorkers = n
	}
	if v, ok := lookup("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", envPrefix, err)
		}
		cfg.Fetcher.Timeout = d
	}
	if v, ok := lookup("MAX_REDIRECTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sMAX_REDIRECTS: %w", envPrefix, err)
		}
		cfg.Fetcher.MaxRedirects = n
	}
	if v, ok := lookup("DEFAULT_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sDEFAULT_COUNT: %w", envPrefix, err)
		}
		cfg.DefaultCount = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Logger.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.Logger.Format = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	return v, ok && v != ""
}

func (c *Config) Validate() error {
	if c.Logger.Project == "" {
		return errors.New("config: logger.project is required")
	}
	if c.Logger.Level != "" && !logster.ValidLevel(c.Logger.Level) {
		return fmt.Errorf("config: unknown logger.level %q", c.Logger.Level)
	}
	if c.Pool.NumWorkers < 1 {
		return fmt.Errorf("config: pool.num_workers must be >= 1, got %d", c.Pool.NumWorkers)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("config: fetcher.timeout must be positive, got %v", c.Fetcher.Timeout)
	}
	if c.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("config: fetcher.max_redirects must be >= 0, got %d", c.Fetcher.MaxRedirects)
	}
	if c.DefaultCount < 0 || c.DefaultCount > Service.MaxCount {
		return fmt.Errorf("config: default_count must be in [0, %d], got %d", Service.MaxCount, c.DefaultCount)
	}
	return nil
}
