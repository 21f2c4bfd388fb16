package extraction

import (
	"context"
	"errors"
	"testing"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantAvailable bool
		wantModel     string
		wantErr       bool
	}{
		{
			name:      "empty provider returns NoOp",
			cfg:       Config{},
			wantModel: ProviderNone,
		},
		{
			name:      "none provider returns NoOp",
			cfg:       Config{Provider: ProviderNone, APIKey: "sk-test"},
			wantModel: ProviderNone,
		},
		{
			name:      "missing key returns NoOp",
			cfg:       Config{Provider: ProviderOpenAI},
			wantModel: ProviderNone,
		},
		{
			name:          "openai with default model",
			cfg:           Config{Provider: ProviderOpenAI, APIKey: "sk-test"},
			wantAvailable: true,
			wantModel:     DefaultOpenAIModel,
		},
		{
			name:          "openai with model override",
			cfg:           Config{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o"},
			wantAvailable: true,
			wantModel:     "gpt-4o",
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "anthropic", APIKey: "key"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCompleter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c == nil {
				t.Fatal("NewCompleter() returned nil completer")
			}
			if got := c.Available(); got != tt.wantAvailable {
				t.Errorf("Available() = %v, want %v", got, tt.wantAvailable)
			}
			if got := c.Model(); got != tt.wantModel {
				t.Errorf("Model() = %q, want %q", got, tt.wantModel)
			}
		})
	}
}

func TestNoOpCompleter(t *testing.T) {
	n := &NoOpCompleter{}

	if n.Available() {
		t.Error("NoOpCompleter should not be available")
	}
	_, err := n.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("Complete() error = %v, want ErrNoProvider", err)
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := newOpenAIClient(Config{}); err == nil {
		t.Error("newOpenAIClient() without key should fail")
	}
}
