package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// contentGenerator is the slice of *genai.GenerativeModel used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// geminiClient implements Completer with the Gemini API. Responses are
// constrained by geminiSchema; the full JSON schema is also quoted in the
// prompt because genai schemas cannot express the open-ended evidence map.
type geminiClient struct {
	client    *genai.Client
	gen       contentGenerator
	model     string
	maxTokens int
	limiter   *rate.Limiter
}

// newGeminiClient creates a Gemini completer.
func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	gm := client.GenerativeModel(model)
	gm.SetTemperature(0)
	gm.SetTopP(1)
	gm.SetMaxOutputTokens(int32(maxTokens))
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = geminiSchema(ResponseSchema())

	return &geminiClient{
		client:    client,
		gen:       gm,
		model:     model,
		maxTokens: maxTokens,
		limiter:   newLimiter(cfg),
	}, nil
}

// Model returns the configured model name.
func (g *geminiClient) Model() string { return g.model }

// Available returns true if the client is configured.
func (g *geminiClient) Available() bool { return g.gen != nil }

// Complete sends the prompt and returns the first text part of the first
// candidate. No candidates yields an empty string.
func (g *geminiClient) Complete(ctx context.Context, cr CompletionRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	schemaJSON, err := json.Marshal(cr.Schema)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	prompt := cr.System + "\n\nJSON schema (" + cr.SchemaName + "):\n" + string(schemaJSON) + "\n\n" + cr.User

	resp, err := g.gen.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &transportError{err: fmt.Errorf("failed to generate content: %w", err)}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("%w: response part is not text, received %T", ErrDecode, resp.Candidates[0].Content.Parts[0])
	}
	return strings.TrimSpace(string(textPart)), nil
}

// Close releases the underlying genai client.
func (g *geminiClient) Close() error {
	if g.client == nil {
		return nil
	}
	if err := g.client.Close(); err != nil {
		return errors.Join(errors.New("close gemini client"), err)
	}
	return nil
}

// geminiSchema converts a JSON schema map into a genai schema. Objects whose
// only shape is additionalProperties have no genai form and are dropped
// along with their required entry. Numeric bounds are left to the decoder.
func geminiSchema(m map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch t := m["type"].(type) {
	case string:
		s.Type = genaiType(t)
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				s.Nullable = true
				continue
			}
			s.Type = genaiType(name)
		}
	}

	if enum, ok := m["enum"].([]any); ok {
		for _, v := range enum {
			if str, ok := v.(string); ok {
				s.Enum = append(s.Enum, str)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = geminiSchema(items)
	}

	props, _ := m["properties"].(map[string]any)
	if len(props) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			prop, ok := v.(map[string]any)
			if !ok || openMap(prop) {
				continue
			}
			s.Properties[k] = geminiSchema(prop)
		}
	}
	if required, ok := m["required"].([]any); ok {
		for _, v := range required {
			k, _ := v.(string)
			if _, kept := s.Properties[k]; kept {
				s.Required = append(s.Required, k)
			}
		}
	}
	return s
}

func openMap(m map[string]any) bool {
	_, hasProps := m["properties"]
	_, hasExtra := m["additionalProperties"].(map[string]any)
	return hasExtra && !hasProps
}

func genaiType(name string) genai.Type {
	switch name {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}

var _ Completer = (*geminiClient)(nil)
