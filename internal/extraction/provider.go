package extraction

import (
	"context"
	"fmt"
)

// NewCompleter creates a Completer based on configuration. An empty API key
// or the "none" provider selects the no-op completer, which keeps the
// pipeline heuristic-only.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.Provider == "" || cfg.Provider == ProviderNone || cfg.APIKey == "" {
		return &NoOpCompleter{}, nil
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderGemini:
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// NoOpCompleter is a Completer that is never available.
type NoOpCompleter struct{}

// Complete always returns ErrNoProvider.
func (n *NoOpCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return "", ErrNoProvider
}

// Model returns "none".
func (n *NoOpCompleter) Model() string { return ProviderNone }

// Available returns false for NoOpCompleter.
func (n *NoOpCompleter) Available() bool { return false }

var _ Completer = (*NoOpCompleter)(nil)
