// Package config loads bidtrack settings. Values are layered: built-in
// defaults, then the YAML file, then secrets.env beside it, then the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/baiirun/bidtrack/internal/calendar"
)

const (
	dirName     = ".bidtrack"
	fileName    = "config.yaml"
	secretsName = "secrets.env"
)

type DBConfig struct {
	Path string `yaml:"path"`
}

type CalendarConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// Offline skips the holiday service and treats weekdays as business days.
	Offline bool `yaml:"offline"`
}

// RedisConfig enables the shared holiday cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type SchedulerConfig struct {
	Spec string `yaml:"spec"`
}

type Config struct {
	DB        DBConfig        `yaml:"db"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// Default returns the settings used when nothing else is configured. The
// database path is left empty and resolved by the caller.
func Default() *Config {
	return &Config{
		Calendar: CalendarConfig{
			BaseURL:  calendar.DefaultBaseURL,
			Timeout:  calendar.DefaultTimeout,
			CacheTTL: calendar.DefaultCacheTTL,
		},
		Log:       LogConfig{Level: "info"},
		Metrics:   MetricsConfig{Addr: ":9090"},
		Scheduler: SchedulerConfig{Spec: "@hourly"},
	}
}

// DefaultPath returns ~/.bidtrack/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file is only an error when the path was given
// explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if err := loadFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
	}

	secrets := filepath.Join(filepath.Dir(path), secretsName)
	if _, err := os.Stat(secrets); err == nil {
		if err := godotenv.Load(secrets); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", secrets, err)
		}
	}

	overrideFromEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func overrideFromEnv(cfg *Config) {
	if path := os.Getenv("BIDTRACK_DB_PATH"); path != "" {
		cfg.DB.Path = path
	}
	if url := os.Getenv("BIDTRACK_CALENDAR_URL"); url != "" {
		cfg.Calendar.BaseURL = url
	}
	if offline := os.Getenv("BIDTRACK_OFFLINE"); offline != "" {
		if b, err := strconv.ParseBool(offline); err == nil {
			cfg.Calendar.Offline = b
		}
	}
	if addr := os.Getenv("BIDTRACK_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if level := os.Getenv("BIDTRACK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if addr := os.Getenv("BIDTRACK_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
}
