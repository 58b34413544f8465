package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host" env:"SERVER_HOST"`
		Port int    `yaml:"port" env:"SERVER_PORT"`
	} `yaml:"server"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron" env:"SCAN_CRON"`
	} `yaml:"schedule"`
	Universe struct {
		URL       string   `yaml:"url" env:"UNIVERSE_URL"`
		Suffix    string   `yaml:"suffix" env:"UNIVERSE_SUFFIX"`
		Symbols   []string `yaml:"symbols" env:"UNIVERSE_SYMBOLS" envSeparator:","`
		UserAgent string   `yaml:"user_agent" env:"UNIVERSE_USER_AGENT"`
	} `yaml:"universe"`
	DataSource struct {
		BaseURL string `yaml:"base_url" env:"DATA_SOURCE_BASE_URL"`
		APIKey  string `yaml:"api_key" env:"DATA_SOURCE_API_KEY"`
	} `yaml:"data_source"`
	Scanner struct {
		Window            int           `yaml:"window" env:"SCAN_WINDOW"`
		Workers           int           `yaml:"workers" env:"SCAN_WORKERS"`
		InstrumentTimeout time.Duration `yaml:"instrument_timeout" env:"SCAN_INSTRUMENT_TIMEOUT"`
	} `yaml:"scanner"`
	Snapshot struct {
		Backend   string `yaml:"backend" env:"SNAPSHOT_BACKEND"`
		File      string `yaml:"file" env:"SNAPSHOT_FILE"`
		RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
		RedisKey  string `yaml:"redis_key" env:"SNAPSHOT_REDIS_KEY"`
	} `yaml:"snapshot"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Environment string `yaml:"environment" env:"ENVIRONMENT"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

const (
	BackendFile  = "file"
	BackendRedis = "redis"

	// RecorderOff as database.sqlite_path disables the cycle history.
	RecorderOff = "off"
)

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "@every 3m"
	}
	if c.Universe.URL == "" {
		c.Universe.URL = "https://www.nseindia.com/products-services/equity-derivatives-list-underlyings-information"
	}
	if c.Universe.Suffix == "" {
		c.Universe.Suffix = ".NS"
	}
	if c.Universe.UserAgent == "" {
		c.Universe.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	if c.Scanner.Window == 0 {
		c.Scanner.Window = 10
	}
	if c.Scanner.Workers == 0 {
		c.Scanner.Workers = 4
	}
	if c.Scanner.InstrumentTimeout == 0 {
		c.Scanner.InstrumentTimeout = 15 * time.Second
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = BackendFile
	}
	c.Snapshot.Backend = strings.ToLower(c.Snapshot.Backend)
	if c.Snapshot.File == "" {
		c.Snapshot.File = "latest_results.json"
	}
	if c.Snapshot.RedisKey == "" {
		c.Snapshot.RedisKey = "screener:latest_snapshot"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/screener.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Environment == "" {
		c.Log.Environment = "production"
	}
}

// RecorderEnabled reports whether cycle reports go to SQLite.
func (c *Config) RecorderEnabled() bool {
	return !strings.EqualFold(c.Database.SQLitePath, RecorderOff)
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Scanner.Window < 4 {
		return fmt.Errorf("scanner.window must be at least 4 sessions")
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("scanner.workers must be positive")
	}
	if c.Scanner.InstrumentTimeout <= 0 {
		return fmt.Errorf("scanner.instrument_timeout must be positive")
	}
	if len(c.Universe.Symbols) == 0 && c.Universe.URL == "" {
		return fmt.Errorf("universe.url or universe.symbols is required")
	}
	switch c.Snapshot.Backend {
	case BackendFile:
		if c.Snapshot.File == "" {
			return fmt.Errorf("snapshot.file is required for the file backend")
		}
	case BackendRedis:
		if c.Snapshot.RedisAddr == "" {
			return fmt.Errorf("snapshot.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be %q or %q, got %q", BackendFile, BackendRedis, c.Snapshot.Backend)
	}
	return nil
}
