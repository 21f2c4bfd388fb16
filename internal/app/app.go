// Package app wires configuration into a running triage engine. Both the
// daemon and the CLI build their dependencies through Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/intaketriage/internal/config"
	"github.com/fyrsmithlabs/intaketriage/internal/extraction"
	"github.com/fyrsmithlabs/intaketriage/internal/featurecache"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/telemetry"
	"github.com/fyrsmithlabs/intaketriage/internal/triage"
)

// App holds the initialized dependencies.
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Telemetry *telemetry.Telemetry
	Engine    *triage.Engine

	closers []io.Closer
}

// Options adjusts Build.
type Options struct {
	Version string
	// Quiet replaces the configured logger with a no-op one (CLI output).
	Quiet bool
	// DisableLLM forces heuristic-only extraction.
	DisableLLM bool
}

// Build initializes telemetry, logging, the extraction cache, the model
// extractor and the engine from cfg.
//
// Model and cache failures degrade to heuristic-only extraction; only
// invalid logging settings or a bad weights file are fatal.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{Config: cfg}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, opts.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.Telemetry = tel

	if opts.Quiet {
		a.Logger = logging.NewNop()
	} else {
		logCfg, err := logging.FromSettings(cfg.Logging)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("invalid logging configuration: %w", err)
		}
		a.Logger, err = logging.NewLogger(logCfg, tel.LoggerProvider())
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	weights, err := scoring.LoadWeightsFile(cfg.Scoring.WeightsFile)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	var llm triage.LLMExtractor
	if !opts.DisableLLM && cfg.LLMActive() {
		llm = a.buildLLM(ctx)
	}

	a.Engine = triage.NewEngine(nil, llm,
		triage.WithLogger(a.Logger.Named("triage")),
		triage.WithTelemetry(tel),
		triage.WithWeights(weights),
		triage.WithMetrics(scoring.NewMetrics()),
	)

	a.Logger.Info(ctx, "engine initialized",
		zap.Bool("llm.available", a.Engine.LLMAvailable()),
		zap.String("weights.version", weights.Version),
		zap.String("scoring.version", extraction.ScoringVersion),
	)
	return a, nil
}

// buildLLM returns nil when the provider or cache cannot be set up.
func (a *App) buildLLM(ctx context.Context) triage.LLMExtractor {
	cfg := a.Config

	completer, err := extraction.NewCompleter(ctx, ExtractionConfig(cfg.Extraction))
	if err != nil {
		a.Logger.Warn(ctx, "model extraction disabled", zap.Error(err))
		return nil
	}
	if c, ok := completer.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	cache, err := featurecache.New(ctx, CacheConfig(cfg.Cache))
	if err != nil {
		a.Logger.Warn(ctx, "feature cache unavailable, using memory cache",
			zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		cache = featurecache.NewMemoryCache(cfg.Cache.TTL.Duration(), cfg.Cache.MaxEntries)
	}
	if m, ok := cache.(interface{ SetMetrics(*featurecache.Metrics) }); ok {
		m.SetMetrics(featurecache.NewMetrics())
	}
	if c, ok := cache.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Logger.Debug(ctx, "model extraction configured",
		zap.String("provider", cfg.Extraction.Provider),
		zap.String("model", cfg.Extraction.Model),
		logging.Secret("api_key", cfg.Extraction.APIKey),
	)
	return extraction.NewLLMExtractor(completer, cache,
		extraction.WithLLMLogger(a.Logger.Named("extraction")),
		extraction.WithLLMMetrics(extraction.NewMetrics()),
		extraction.WithLLMEnabled(cfg.Extraction.LLMEnabled),
		extraction.WithMaxTokens(cfg.Extraction.MaxTokens),
	)
}

// Close releases provider clients and cache connections, flushes the
// logger and shuts telemetry down.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExtractionConfig maps the file/env extraction section onto a provider
// config.
func ExtractionConfig(s config.ExtractionConfig) extraction.Config {
	return extraction.Config{
		Provider:  s.Provider,
		Model:     s.Model,
		APIKey:    s.APIKey.Value(),
		BaseURL:   s.BaseURL,
		MaxTokens: s.MaxTokens,
		Timeout:   s.Timeout.Duration(),
		RateLimit: s.RateLimit,
		Burst:     s.Burst,
	}
}

// CacheConfig maps the file/env cache section onto a backend config.
func CacheConfig(s config.CacheConfig) featurecache.Config {
	return featurecache.Config{
		Backend:    s.Backend,
		TTL:        s.TTL.Duration(),
		MaxEntries: s.MaxEntries,
		Redis: featurecache.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password.Value(),
			DB:       s.Redis.DB,
			Prefix:   s.Redis.KeyPrefix,
		},
	}
}
