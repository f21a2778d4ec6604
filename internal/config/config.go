// Package config holds tleup's run configuration: defaults, then an
// optional YAML file, then TLEUP_* environment variables. Command-line
// flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete run configuration.
type Config struct {
	Output      string   `yaml:"output"`
	UserTLEs    []string `yaml:"user_tles"`
	FilterFile  string   `yaml:"filter"`
	Online      bool     `yaml:"online"`
	SelectAll   bool     `yaml:"all"`
	List        bool     `yaml:"list"`
	Verify      bool     `yaml:"verify"`
	MetricsFile string   `yaml:"metrics_file"`
	Sources     Sources  `yaml:"sources"`
	Cache       Cache    `yaml:"cache"`
	Log         Log      `yaml:"log"`
}

// Sources configures online retrieval.
type Sources struct {
	ListingURL   string        `yaml:"listing_url"`
	URLs         []string      `yaml:"urls"`
	Workers      int           `yaml:"workers"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// Cache configures the offline snapshot cache. An empty Dir disables it.
type Cache struct {
	Dir      string        `yaml:"dir"`
	MaxFiles int           `yaml:"max_files"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Output: "tles.txt",
		Online: true,
		Sources: Sources{
			Workers:      4,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 50 << 20,
		},
		Cache: Cache{
			MaxFiles: 5,
			MaxAge:   7 * 24 * time.Hour,
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (when path
// is non-empty) and then the environment.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg, logger)
	return cfg, nil
}

// applyEnv overrides cfg from TLEUP_* variables. Invalid values are logged
// and ignored.
func applyEnv(cfg *Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if v := os.Getenv("TLEUP_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("TLEUP_FILTER"); v != "" {
		cfg.FilterFile = v
	}
	if v := os.Getenv("TLEUP_USER_TLES"); v != "" {
		cfg.UserTLEs = splitList(v)
	}

	if v := os.Getenv("TLEUP_ONLINE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid TLEUP_ONLINE value, using default", "value", v, "default", cfg.Online)
		} else {
			cfg.Online = enabled
		}
	}

	if v := os.Getenv("TLEUP_LISTING_URL"); v != "" {
		cfg.Sources.ListingURL = v
	}
	if v := os.Getenv("TLEUP_SOURCE_URLS"); v != "" {
		cfg.Sources.URLs = splitList(v)
	}

	if v := os.Getenv("TLEUP_FETCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid TLEUP_FETCH_WORKERS value, using default", "value", v, "default", cfg.Sources.Workers)
		} else {
			cfg.Sources.Workers = n
		}
	}

	if v := os.Getenv("TLEUP_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			logger.Warn("invalid TLEUP_FETCH_TIMEOUT value, using default", "value", v, "default", cfg.Sources.Timeout)
		} else {
			cfg.Sources.Timeout = d
		}
	}

	if v := os.Getenv("TLEUP_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}

	if v := os.Getenv("TLEUP_CACHE_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			logger.Warn("invalid TLEUP_CACHE_MAX_AGE value, using default", "value", v, "default", cfg.Cache.MaxAge)
		} else {
			cfg.Cache.MaxAge = d
		}
	}

	if v := os.Getenv("TLEUP_METRICS_FILE"); v != "" {
		cfg.MetricsFile = v
	}
	if v := os.Getenv("TLEUP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TLEUP_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports configuration that cannot produce a run.
func (c Config) Validate() error {
	var errs []error
	if !c.Online && len(c.UserTLEs) == 0 {
		errs = append(errs, errors.New("online retrieval disabled and no user TLE files given"))
	}
	if !c.List && c.Output == "" {
		errs = append(errs, errors.New("output path is empty"))
	}
	if c.Sources.Workers < 1 {
		errs = append(errs, fmt.Errorf("sources.workers must be at least 1, got %d", c.Sources.Workers))
	}
	if c.Sources.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sources.timeout must be positive, got %s", c.Sources.Timeout))
	}
	if c.Sources.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("sources.max_body_bytes must be positive, got %d", c.Sources.MaxBodyBytes))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
