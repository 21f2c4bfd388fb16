package logging

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/intaketriage/internal/config"
)

// ServiceName tags every entry and names the OTEL logger scope.
const ServiceName = "intaketriage"

// TraceLevel sits one step below Debug. It is never sampled away by the
// level filter but is off in every shipped configuration.
const TraceLevel = zapcore.Level(-2)

const maxPatternLen = 200

// Config controls logger construction.
type Config struct {
	Level  zapcore.Level
	Format string

	Stdout bool
	OTEL   bool

	Sampling Sampling

	Caller     bool
	CallerSkip int
	Stacktrace zapcore.Level

	// Fields are attached to every entry.
	Fields map[string]string

	Redaction Redaction
}

// Sampling keeps the first First entries per message and tick, then every
// Thereafter-th. Error and above bypass the sampler.
type Sampling struct {
	Enabled    bool
	Tick       time.Duration
	First      int
	Thereafter int
}

// Redaction lists field keys whose values are always masked and value
// patterns that mask any string field they match.
type Redaction struct {
	Keys     []string
	Patterns []string
}

// DefaultRedactedKeys are field names that carry intake PII or credentials.
var DefaultRedactedKeys = []string{
	"password", "secret", "token", "api_key", "authorization", "credential",
	"transcript", "client_name", "date_of_birth", "phone", "phone_number",
	"email", "insurance_policy_number", "street_address",
}

// DefaultRedactedPatterns match credential and contact-detail shapes in
// free-form string values.
var DefaultRedactedPatterns = []string{
	`(?i)bearer\s+\S+`,
	`(?i)api[_-]?key[=:]\s*\S+`,
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b\d{3}-\d{2}-\d{4}\b`,
	`\(?\b\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`,
}

// DefaultConfig is JSON to stdout at Info with sampling and redaction on.
func DefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Stdout: true,
		Sampling: Sampling{
			Enabled:    true,
			Tick:       time.Second,
			First:      100,
			Thereafter: 10,
		},
		Caller:     true,
		CallerSkip: 2,
		Stacktrace: zapcore.ErrorLevel,
		Fields:     map[string]string{"service": ServiceName},
		Redaction: Redaction{
			Keys:     append([]string(nil), DefaultRedactedKeys...),
			Patterns: append([]string(nil), DefaultRedactedPatterns...),
		},
	}
}

// ParseLevel accepts zap level names plus "trace".
func ParseLevel(s string) (zapcore.Level, error) {
	if strings.EqualFold(s, "trace") {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Format != "json" && c.Format != "console" {
		errs = append(errs, fmt.Errorf("format must be 'json' or 'console', got %q", c.Format))
	}
	if !c.Stdout && !c.OTEL {
		errs = append(errs, errors.New("at least one output must be enabled (stdout or otel)"))
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick <= 0 {
			errs = append(errs, errors.New("sampling tick must be > 0 when sampling is enabled"))
		}
		if c.Sampling.First < 0 || c.Sampling.Thereafter < 0 {
			errs = append(errs, errors.New("sampling counts must be >= 0"))
		}
	}
	if c.CallerSkip < 0 {
		errs = append(errs, fmt.Errorf("caller skip must be >= 0, got %d", c.CallerSkip))
	}
	for _, p := range c.Redaction.Patterns {
		if len(p) > maxPatternLen {
			errs = append(errs, fmt.Errorf("redaction pattern longer than %d chars", maxPatternLen))
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid redaction pattern %q: %w", p, err))
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			errs = append(errs, fmt.Errorf("constant field %q must have a non-empty key and value", k))
		}
	}
	return errors.Join(errs...)
}

// FromSettings applies the file/env logging section on top of
// DefaultConfig.
func FromSettings(s config.LoggingConfig) (*Config, error) {
	cfg := DefaultConfig()
	if s.Level != "" {
		lvl, err := ParseLevel(s.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
		}
		cfg.Level = lvl
	}
	if s.Format != "" {
		cfg.Format = s.Format
	}
	cfg.Sampling.Enabled = s.Sampling
	cfg.Caller = s.Caller
	cfg.OTEL = s.OTEL
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
