// Package config provides configuration loading for intaketriage.
//
// Configuration is layered: defaults, then an optional YAML file, then
// TRIAGE_* environment variables, then the legacy SCORING_USE_LLM,
// OPENAI_API_KEY and GEMINI_API_KEY variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete intaketriage configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Cache      CacheConfig      `koanf:"cache"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ExtractionConfig holds model-assisted extraction settings.
type ExtractionConfig struct {
	LLMEnabled bool     `koanf:"llm_enabled"`
	Provider   string   `koanf:"provider"`
	Model      string   `koanf:"model"`
	APIKey     Secret   `koanf:"api_key"`
	BaseURL    string   `koanf:"base_url"`
	Timeout    Duration `koanf:"timeout"`
	MaxTokens  int      `koanf:"max_tokens"`
	RateLimit  float64  `koanf:"rate_limit"` // requests per second
	Burst      int      `koanf:"burst"`
}

// CacheConfig selects the extraction cache backend.
type CacheConfig struct {
	Backend    string      `koanf:"backend"`
	TTL        Duration    `koanf:"ttl"`
	MaxEntries int         `koanf:"max_entries"`
	Redis      RedisConfig `koanf:"redis"`
}

// RedisConfig holds the shared cache connection.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  Secret `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// ScoringConfig holds scoring settings.
type ScoringConfig struct {
	// WeightsFile is an optional TOML file overriding base weights and
	// case-type profiles. Loaded once at startup.
	WeightsFile string `koanf:"weights_file"`
}

// LoggingConfig is the subset of logging settings exposed through config
// files and env vars.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	Caller   bool   `koanf:"caller"`
	// OTEL also bridges entries to the OpenTelemetry log provider.
	OTEL bool `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Endpoint   string  `koanf:"endpoint"`
	Protocol   string  `koanf:"protocol"` // grpc or http/protobuf
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Extraction: ExtractionConfig{
			LLMEnabled: true,
			Provider:   "openai",
			Timeout:    Duration(60 * time.Second),
			MaxTokens:  800,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "intaketriage:features:",
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Sampling: true,
			Caller:   true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:   "localhost:4317",
			Protocol:   "grpc",
			Insecure:   true,
			SampleRate: 1.0,
		},
	}
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	switch c.Extraction.Provider {
	case "", "openai", "gemini", "none":
	default:
		errs = append(errs, fmt.Errorf("extraction.provider must be openai, gemini or none, got %q", c.Extraction.Provider))
	}
	if c.Extraction.MaxTokens < 0 {
		errs = append(errs, errors.New("extraction.max_tokens cannot be negative"))
	}
	if c.Extraction.RateLimit < 0 {
		errs = append(errs, errors.New("extraction.rate_limit cannot be negative"))
	}

	switch c.Cache.Backend {
	case "", "memory":
	case "lru":
		if c.Cache.MaxEntries <= 0 {
			errs = append(errs, errors.New("cache.max_entries must be positive for the lru backend"))
		}
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory, lru or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries cannot be negative"))
	}

	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("logging.level must be trace, debug, info, warn or error, got %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate))
		}
	}

	return errors.Join(errs...)
}

// LLMActive reports whether model-assisted extraction can run: enabled, a
// real provider selected and a key present.
func (c *Config) LLMActive() bool {
	e := c.Extraction
	return e.LLMEnabled && e.Provider != "" && e.Provider != "none" && e.APIKey.IsSet()
}
