package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "sk-live-123", s.Value())
	assert.True(t, s.IsSet())

	b, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Key":"[REDACTED]"}`, string(b))

	assert.Empty(t, Secret("").String())
	assert.False(t, Secret("").IsSet())
}

func TestSecret_RedactedPlaceholderDecodesEmpty(t *testing.T) {
	var s Secret
	require.NoError(t, json.Unmarshal([]byte(`"[REDACTED]"`), &s))
	assert.False(t, s.IsSet())

	require.NoError(t, json.Unmarshal([]byte(`"real"`), &s))
	assert.Equal(t, "real", s.Value())
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("45")))
	assert.Equal(t, 45*time.Second, d.Duration(), "bare integers are seconds")

	assert.ErrorContains(t, d.UnmarshalText([]byte("-1s")), "negative")
	assert.ErrorContains(t, d.UnmarshalText([]byte("-5")), "negative")
	assert.ErrorContains(t, d.UnmarshalText([]byte("soon")), "invalid duration")

	require.NoError(t, json.Unmarshal([]byte(`"2s"`), &d))
	assert.Equal(t, 2*time.Second, d.Duration())

	b, err := json.Marshal(Duration(5 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"5s"`, string(b))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = ""
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRate = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.redis.addr")
	assert.Contains(t, err.Error(), "telemetry.sample_rate")
}

func TestConfig_LLMActive(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.LLMActive())

	cfg.Extraction.APIKey = "sk"
	assert.True(t, cfg.LLMActive())

	cfg.Extraction.Provider = "none"
	assert.False(t, cfg.LLMActive())

	cfg.Extraction.Provider = "openai"
	cfg.Extraction.LLMEnabled = false
	assert.False(t, cfg.LLMActive())
}
