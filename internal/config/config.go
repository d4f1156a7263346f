package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys. Nested keys are separated by a double underscore, so
// BLEND_SERVER__ADDR sets server.addr.
const EnvPrefix = "BLEND_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Log       LogConfig       `koanf:"log"`
	Rooms     RoomsConfig     `koanf:"rooms"`
	Assistant AssistantConfig `koanf:"assistant"`
	Catalog   CatalogConfig   `koanf:"catalog"`
}

type ServerConfig struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	// RateLimit is the number of API requests allowed per client IP per minute.
	RateLimit int `koanf:"rate_limit"`
}

type DatabaseConfig struct {
	Driver     string `koanf:"driver"`
	DSN        string `koanf:"dsn"`
	BadgerPath string `koanf:"badger_path"`
}

type AuthConfig struct {
	SigningSecret string `koanf:"signing_secret"`
	SigningKey    []byte `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type RoomsConfig struct {
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	QueueSize   int           `koanf:"queue_size"`
	OpTimeout   time.Duration `koanf:"op_timeout"`
}

type AssistantConfig struct {
	Endpoint string        `koanf:"endpoint"`
	APIKey   string        `koanf:"api_key"`
	Model    string        `koanf:"model"`
	Trigger  string        `koanf:"trigger"`
	Sender   string        `koanf:"sender"`
	Timeout  time.Duration `koanf:"timeout"`
}

type CatalogConfig struct {
	Endpoint     string        `koanf:"endpoint"`
	APIKey       string        `koanf:"api_key"`
	ImageBaseURL string        `koanf:"image_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:      300,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Rooms: RoomsConfig{
			IdleTimeout: 30 * time.Second,
			QueueSize:   256,
			OpTimeout:   10 * time.Second,
		},
		Assistant: AssistantConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-1.5-flash",
			Trigger:  "@gemini",
			Sender:   "Gemini",
			Timeout:  20 * time.Second,
		},
		Catalog: CatalogConfig{
			Endpoint:     "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			Timeout:      5 * time.Second,
		},
	}
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Load builds the configuration from defaults, the optional YAML file at
// path and BLEND_ environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and decodes the signing secret.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN cannot be empty")
		}
	case "badger":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Auth.SigningSecret == "" {
		return fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(c.Auth.SigningSecret)
	if err != nil {
		return fmt.Errorf("decode signing secret: %w", err)
	}
	c.Auth.SigningKey = signingKey

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be json or console")
	}

	if c.Rooms.IdleTimeout <= 0 || c.Rooms.OpTimeout <= 0 {
		return fmt.Errorf("room timeouts must be positive")
	}
	if c.Rooms.QueueSize <= 0 {
		return fmt.Errorf("room queue size must be positive")
	}
	if c.Assistant.Trigger == "" || c.Assistant.Sender == "" {
		return fmt.Errorf("assistant trigger and sender cannot be empty")
	}
	if c.Assistant.Timeout <= 0 || c.Catalog.Timeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}

	return nil
}
