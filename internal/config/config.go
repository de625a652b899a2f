// Package config loads the YAML configuration of the dialogmanager CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvClassifierToken = "DIALOGMANAGER_CLASSIFIER_TOKEN"
	EnvClassifierURL   = "DIALOGMANAGER_CLASSIFIER_URL"
	EnvRedisAddr       = "DIALOGMANAGER_REDIS_ADDR"
	EnvLogLevel        = "DIALOGMANAGER_LOG_LEVEL"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config is the root configuration document.
type Config struct {
	Language        string `yaml:"language"`
	FallbackReplies any    `yaml:"fallback_replies"`
	// Actions is a catalog file (.yaml/.yml/.json) or a directory of
	// action documents.
	Actions          string           `yaml:"actions"`
	Classifier       ClassifierConfig `yaml:"classifier"`
	Store            StoreConfig      `yaml:"store"`
	EncryptionKeyEnv string           `yaml:"encryption_key_env"`
	PII              PIIConfig        `yaml:"pii"`
	Metrics          MetricsConfig    `yaml:"metrics"`
	Server           ServerConfig     `yaml:"server"`
	Processes        ProcessesConfig  `yaml:"processes"`
	LogLevel         string           `yaml:"log_level"`
	LogFormat        string           `yaml:"log_format"`
}

// ClassifierConfig configures the Recast client.
type ClassifierConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Timeout string `yaml:"timeout"`
}

// StoreConfig selects where conversations are persisted.
type StoreConfig struct {
	Driver string      `yaml:"driver"`
	Dir    string      `yaml:"dir"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis store and locker settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTL      string `yaml:"ttl"`
	LockTTL  string `yaml:"lock_ttl"`
}

// PIIConfig lists the memory keys masked before persistence.
type PIIConfig struct {
	Patterns []string `yaml:"patterns"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProcessesConfig binds external commands to actions (as reply producers)
// and to notion aliases (as validators).
type ProcessesConfig struct {
	Dir        string                   `yaml:"dir"`
	Timeout    string                   `yaml:"timeout"`
	Producers  map[string]ProcessConfig `yaml:"producers"`
	Validators map[string]ProcessConfig `yaml:"validators"`
}

// ProcessConfig is one external command.
type ProcessConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language: "en",
		Actions:  "actions",
		Classifier: ClassifierConfig{
			Timeout: "10s",
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Dir:    ".dialogmanager/sessions",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "dialogmanager:",
				LockTTL: "30s",
			},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Processes: ProcessesConfig{
			Timeout: "5s",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if token := os.Getenv(EnvClassifierToken); token != "" {
		c.Classifier.Token = token
	}
	if url := os.Getenv(EnvClassifierURL); url != "" {
		c.Classifier.URL = url
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.Store.Redis.Addr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = level
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis:
	default:
		return fmt.Errorf("invalid store driver: %q (valid: memory, file, redis)", c.Store.Driver)
	}
	if c.Store.Driver == DriverFile && c.Store.Dir == "" {
		return errors.New("store.dir is required for the file driver")
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required for the redis driver")
	}
	for name, d := range map[string]string{
		"classifier.timeout":   c.Classifier.Timeout,
		"store.redis.ttl":      c.Store.Redis.TTL,
		"store.redis.lock_ttl": c.Store.Redis.LockTTL,
		"processes.timeout":    c.Processes.Timeout,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for name, p := range c.Processes.Producers {
		if p.Command == "" {
			return fmt.Errorf("processes.producers.%s: command is required", name)
		}
	}
	for alias, p := range c.Processes.Validators {
		if p.Command == "" {
			return fmt.Errorf("processes.validators.%s: command is required", alias)
		}
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %q (valid: text, json)", c.LogFormat)
	}
	return nil
}

// ClassifierTimeout returns the classifier timeout as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return parseDuration(c.Classifier.Timeout, 10*time.Second)
}

// RedisTTL returns the expiry of stored conversations, zero meaning none.
func (c *Config) RedisTTL() time.Duration {
	return parseDuration(c.Store.Redis.TTL, 0)
}

// LockTTL returns the distributed lock lease.
func (c *Config) LockTTL() time.Duration {
	return parseDuration(c.Store.Redis.LockTTL, 30*time.Second)
}

// ProcessTimeout bounds each external command run.
func (c *Config) ProcessTimeout() time.Duration {
	return parseDuration(c.Processes.Timeout, 5*time.Second)
}

// EncryptionKey returns the base64 key read from the variable named by
// encryption_key_env, or "" when encryption is not configured.
func (c *Config) EncryptionKey() (string, error) {
	if c.EncryptionKeyEnv == "" {
		return "", nil
	}
	key := os.Getenv(c.EncryptionKeyEnv)
	if key == "" {
		return "", fmt.Errorf("encryption key variable %s is empty", c.EncryptionKeyEnv)
	}
	return key, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
