package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Twynzen/dymensisCDA-sub002/phase"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

const envPrefix = "DYMENSIS_"

type Config struct {
	Locale           types.Locale  `yaml:"locale"`
	ConfirmThreshold int           `yaml:"confirm_threshold"`
	LogLevel         string        `yaml:"log_level"`
	HistoryLimit     int           `yaml:"history_limit"`
	Model            ModelConfig   `yaml:"model"`
	Storage          StorageConfig `yaml:"storage"`
	Cache            CacheConfig   `yaml:"cache"`
	HTTP             HTTPConfig    `yaml:"http"`
	Rules            RulesConfig   `yaml:"rules"`
}

// ModelConfig selects the chat model. An empty APIKey keeps the local
// generator and recognizer.
type ModelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // memory or postgres
	DSN     string `yaml:"dsn"`
}

type CacheConfig struct {
	Backend   string        `yaml:"backend"` // memory or redis
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// RulesConfig points at replacement extraction and phase tables. Empty paths
// keep the embedded ones.
type RulesConfig struct {
	Fields string `yaml:"fields"`
	Phases string `yaml:"phases"`
}

func Default() *Config {
	return &Config{
		Locale:           types.LocaleES,
		ConfirmThreshold: phase.DefaultConfirmThreshold,
		LogLevel:         "info",
		HistoryLimit:     12,
		Model:            ModelConfig{Model: "gpt-4o-mini"},
		Storage:          StorageConfig{Backend: "memory"},
		Cache:            CacheConfig{Backend: "memory", TTL: 24 * time.Hour},
		HTTP:             HTTPConfig{Addr: ":8080"},
	}
}

// Load reads the YAML file at path over the defaults, applies DYMENSIS_*
// environment overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}

	locale := string(cfg.Locale)
	str("LOCALE", &locale)
	cfg.Locale = types.Locale(locale)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("MODEL_API_KEY", &cfg.Model.APIKey)
	str("MODEL_BASE_URL", &cfg.Model.BaseURL)
	str("MODEL_NAME", &cfg.Model.Model)
	str("STORAGE_BACKEND", &cfg.Storage.Backend)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("CACHE_BACKEND", &cfg.Cache.Backend)
	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("HTTP_ADDR", &cfg.HTTP.Addr)
	str("RULES_FIELDS", &cfg.Rules.Fields)
	str("RULES_PHASES", &cfg.Rules.Phases)
	if err := num("CONFIRM_THRESHOLD", &cfg.ConfirmThreshold); err != nil {
		return err
	}
	if err := num("HISTORY_LIMIT", &cfg.HistoryLimit); err != nil {
		return err
	}
	if v, ok := lookup(envPrefix + "CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", envPrefix, err)
		}
		cfg.Cache.TTL = ttl
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Locale {
	case types.LocaleES, types.LocaleEN:
	default:
		return fmt.Errorf("unsupported locale: %q", c.Locale)
	}
	if c.ConfirmThreshold < 1 || c.ConfirmThreshold > 100 {
		return fmt.Errorf("confirm_threshold must be within 1..100, got %d", c.ConfirmThreshold)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return fmt.Errorf("cache redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Model.APIKey != "" && strings.TrimSpace(c.Model.Model) == "" {
		return fmt.Errorf("model name is required when an api key is set")
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// UseModel reports whether a remote chat model is configured.
func (c *Config) UseModel() bool {
	return c.Model.APIKey != ""
}
