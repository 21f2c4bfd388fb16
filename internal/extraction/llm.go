package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/intaketriage/internal/featurecache"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
)

// LLMExtractor produces a partial feature record with a language model. Its
// Extract method never fails: any error is logged and yields an empty
// Partial so the caller falls back to heuristic values.
type LLMExtractor struct {
	completer Completer
	cache     featurecache.Cache
	logger    *logging.Logger
	metrics   *Metrics
	enabled   bool
	seed      int
	maxTokens int
}

// LLMOption configures an LLMExtractor.
type LLMOption func(*LLMExtractor)

// WithLLMLogger sets the logger.
func WithLLMLogger(l *logging.Logger) LLMOption {
	return func(e *LLMExtractor) { e.logger = l }
}

// WithLLMMetrics sets the metrics recorder.
func WithLLMMetrics(m *Metrics) LLMOption {
	return func(e *LLMExtractor) { e.metrics = m }
}

// WithLLMEnabled toggles model extraction without removing the completer.
func WithLLMEnabled(enabled bool) LLMOption {
	return func(e *LLMExtractor) { e.enabled = enabled }
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int) LLMOption {
	return func(e *LLMExtractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// NewLLMExtractor creates an extractor. A nil completer selects the no-op
// completer and a nil cache selects an unbounded in-memory cache.
func NewLLMExtractor(completer Completer, cache featurecache.Cache, opts ...LLMOption) *LLMExtractor {
	if completer == nil {
		completer = &NoOpCompleter{}
	}
	if cache == nil {
		cache = featurecache.NewMemoryCache(0, 0)
	}
	e := &LLMExtractor{
		completer: completer,
		cache:     cache,
		logger:    logging.NewNop(),
		enabled:   true,
		seed:      DefaultSeed,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether Extract can reach a model.
func (e *LLMExtractor) Available() bool {
	return e.enabled && e.completer.Available()
}

// Model returns the model name used in cache keys.
func (e *LLMExtractor) Model() string {
	return e.completer.Model()
}

// Extract returns the model's partial record for transcript, resolving
// relative dates against anchorDateISO. Results are served from the cache
// when the same canonical transcript and anchor were seen before.
func (e *LLMExtractor) Extract(ctx context.Context, transcript, anchorDateISO string) features.Partial {
	if !e.Available() {
		e.metrics.recordOutcome("disabled")
		return features.Partial{}
	}

	p, err := e.extract(ctx, transcript, anchorDateISO)
	if err != nil {
		class := errorClass(err)
		e.metrics.recordOutcome(class)
		e.logger.Warn(ctx, "llm extraction failed, using heuristic features",
			zap.String("reason", class),
			zap.Error(err),
			zap.Int("transcript.len", len(transcript)),
		)
		return features.Partial{}
	}
	return p
}

func (e *LLMExtractor) extract(ctx context.Context, transcript, anchorDateISO string) (features.Partial, error) {
	canonical := Canonicalize(transcript)
	key := CacheKey(e.completer.Model(), e.seed, anchorDateISO, canonical)
	digest := KeyDigest(key)[:12]

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn(ctx, "feature cache lookup failed", zap.String("cache.key", digest), zap.Error(err))
	} else if ok {
		e.metrics.recordOutcome("cache_hit")
		e.logger.Debug(ctx, "llm extraction served from cache", zap.String("cache.key", digest))
		return cached, nil
	}

	start := time.Now()
	content, err := e.completer.Complete(ctx, CompletionRequest{
		System:     systemPrompt,
		User:       userPrompt(canonical, anchorDateISO),
		SchemaName: SchemaName,
		Schema:     ResponseSchema(),
		Seed:       e.seed,
		MaxTokens:  e.maxTokens,
	})
	e.metrics.observeLatency(time.Since(start))
	if err != nil {
		return features.Partial{}, fmt.Errorf("complete: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return features.Partial{}, fmt.Errorf("%w: empty content", ErrDecode)
	}

	p, err := DecodeResponse([]byte(content))
	if err != nil {
		return features.Partial{}, err
	}

	if err := e.cache.Set(ctx, key, p); err != nil {
		e.logger.Warn(ctx, "feature cache store failed", zap.String("cache.key", digest), zap.Error(err))
	}
	e.metrics.recordOutcome("success")
	e.logger.Debug(ctx, "llm extraction complete",
		zap.String("cache.key", digest),
		zap.String("model", e.completer.Model()),
		zap.Duration("duration", time.Since(start)),
	)
	return p, nil
}
