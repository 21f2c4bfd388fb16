package extraction

import (
	"context"
	"errors"
	"time"
)

// Version strings folded into every cache key. Bumping either invalidates
// previously cached model output.
const (
	ScoringVersion         = "v3.2.0"
	ExtractionRulesVersion = "admission-rules-v1"
)

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Request parameters pinned for reproducible model output.
const (
	DefaultSeed        = 42
	DefaultMaxTokens   = 800
	DefaultOpenAIModel = "gpt-4o-mini-2024-07-18"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// ErrDecode is returned when model output cannot be decoded into a partial
// feature record.
var ErrDecode = errors.New("decode model output")

// ErrNoProvider is returned by the no-op completer.
var ErrNoProvider = errors.New("no language model provider configured")

// CompletionRequest is one structured-output request.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
	Seed       int
	MaxTokens  int
}

// Completer sends a structured-output request to a language model and
// returns the raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Model identifies the model for cache keys.
	Model() string

	// Available returns true if the completer can make requests.
	Available() bool
}

// Config holds provider configuration.
type Config struct {
	Provider  string
	Model     string
	APIKey    string `json:"-"`
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration

	// RateLimit is requests per second; zero selects the default.
	RateLimit float64
	Burst     int
}
