package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Commons CommonsConfig `yaml:"commons"`
	Logging LoggingConfig `yaml:"logging"`
}

// CommonsConfig holds Wikimedia Commons API settings.
type CommonsConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables pacing
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Commons: CommonsConfig{
			Endpoint: "https://commons.wikimedia.org/w/api.php",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("CF_COMMONS_ENDPOINT"); v != "" {
		c.Commons.Endpoint = v
	}
	if v := os.Getenv("CF_USER_AGENT"); v != "" {
		c.Commons.UserAgent = v
	}
	if v := os.Getenv("CF_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CF_TIMEOUT: %w", err)
		}
		c.Commons.Timeout = d
	}
	if v := os.Getenv("CF_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CF_RATE_LIMIT: %w", err)
		}
		c.Commons.RateLimit = rps
	}
	if v := os.Getenv("CF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CF_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CF_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	return nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Commons.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid commons endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("commons endpoint must be an absolute http(s) url: %q", c.Commons.Endpoint)
	}
	if c.Commons.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Commons.Timeout)
	}
	if c.Commons.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %g", c.Commons.RateLimit)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}
