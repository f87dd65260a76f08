// Package config provides configuration management for the readlater service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Mail     MailConfig     `yaml:"mail"`
	Storage  StorageConfig  `yaml:"storage"`
	Metadata MetadataConfig `yaml:"metadata"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener and the public address of the service.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	BasePath  string `yaml:"base_path"`  // Prefix for the list and finished routes
	PublicURL string `yaml:"public_url"` // Scheme and host used in email links
}

// ScheduleConfig configures when suggestions are sent.
type ScheduleConfig struct {
	Cron       string `yaml:"cron"`         // 5-field cron spec or descriptor
	Timezone   string `yaml:"timezone"`     // IANA zone, defaults to UTC
	RunOnStart bool   `yaml:"run_on_start"` // Send one suggestion at startup
}

// MailConfig contains mail credentials and addressing.
type MailConfig struct {
	APIKey string   `yaml:"api_key"` // Resend API key
	From   string   `yaml:"from"`
	To     []string `yaml:"to"`
}

// StorageConfig selects and configures the reading list backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // file, memory or redis
	Path      string `yaml:"path"`    // JSON file for the file backend
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisKey  string `yaml:"redis_key"`
}

// MetadataConfig configures page metadata lookups.
type MetadataConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads and parses a configuration file from the specified path.
// An empty path skips the file and uses defaults plus environment variables.
func Load(path string) (*Config, error) {
	var config Config

	if path != "" {
		// #nosec G304 -- path is provided by user as configuration file path
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}

	config.applyDefaults()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/articles"
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:3000"
	}

	// 05:00 UTC daily
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 5 * * *"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "db/articles.json"
	}
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}

	if c.Metadata.TimeoutSeconds == 0 {
		c.Metadata.TimeoutSeconds = 30
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyEnv overrides file values with environment variables (env vars take precedence).
func (c *Config) applyEnv() {
	if v := os.Getenv("READLATER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("READLATER_PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := os.Getenv("READLATER_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Mail.APIKey = v
	}
	if v := os.Getenv("READLATER_MAIL_FROM"); v != "" {
		c.Mail.From = v
	}
	if v := os.Getenv("READLATER_MAIL_TO"); v != "" {
		c.Mail.To = splitList(v)
	}
	if v := os.Getenv("READLATER_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	u, err := url.Parse(c.Server.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.public_url must be an absolute URL, got %q", c.Server.PublicURL)
	}

	if c.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron cannot be empty")
	}

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 || c.Storage.RedisDB > 15 {
			return fmt.Errorf("storage.redis_db must be between 0 and 15, got %d", c.Storage.RedisDB)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of file, memory, redis, got %q", c.Storage.Backend)
	}

	if c.Metadata.TimeoutSeconds < 1 || c.Metadata.TimeoutSeconds > 300 {
		return fmt.Errorf("metadata.timeout_seconds must be between 1 and 300, got %d", c.Metadata.TimeoutSeconds)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// ValidateMail checks the settings needed to actually send email.
func (c *Config) ValidateMail() error {
	if c.Mail.APIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required (set mail.api_key in config or the environment variable)")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("mail.from cannot be empty")
	}
	if len(c.Mail.To) == 0 {
		return fmt.Errorf("at least one mail.to recipient must be configured")
	}
	return nil
}

// FinishedURL returns the absolute URL of the mark-finished route.
func (c *Config) FinishedURL() string {
	base := "/" + strings.Trim(c.Server.BasePath, "/")
	return strings.TrimSuffix(c.Server.PublicURL, "/") + strings.TrimSuffix(base, "/") + "/finished"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
