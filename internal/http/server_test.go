package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/telemetry"
	"github.com/fyrsmithlabs/intaketriage/internal/triage"
)

const rearEndTranscript = `I was rear-ended at a red light on Main Street last Friday.
The police came and wrote a report. I went to the ER that night.
My neck pain is about six out of 10.`

func fixedClock() time.Time {
	return time.Date(2024, 4, 18, 15, 0, 0, 0, time.UTC)
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 9090,
		}

		server, err := NewServer(newTestEngine(), logging.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
		assert.Equal(t, "1M", server.config.BodyLimit)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(newTestEngine(), logging.NewNop(), nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8080, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(newTestEngine(), nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when engine is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "engine cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("reports ok without telemetry", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doRequest(server, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "test", resp.Version)
		assert.False(t, resp.LLM)
		assert.Nil(t, resp.Telemetry)
	})

	t.Run("includes telemetry health", func(t *testing.T) {
		tt := telemetry.NewTestTelemetry()
		server, err := NewServer(newTestEngine(), logging.NewNop(), &Config{Version: "test"}, WithTelemetry(tt.Telemetry))
		require.NoError(t, err)

		rec := doRequest(server, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		require.NotNil(t, resp.Telemetry)
		assert.False(t, resp.Telemetry.Degraded)
	})
}

func TestHandleFeatures(t *testing.T) {
	t.Run("extracts features from transcript", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/features", FeaturesRequest{Transcript: rearEndTranscript})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp features.CaseFeatures
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, features.MVARearEnd, resp.CaseType)
		assert.True(t, resp.Booleans.RearEnded)
		assert.True(t, resp.Booleans.PoliceReportPresent)
	})

	t.Run("blank transcript returns empty record", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/features", FeaturesRequest{})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp features.CaseFeatures
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, features.Other, resp.CaseType)
	})

	t.Run("handles invalid json", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doRequest(server, http.MethodPost, "/api/v1/features", []byte("invalid json"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unparseable now", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/features", FeaturesRequest{Transcript: "dog bit me", Now: "someday"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unrecognised date")
	})
}

func TestHandleScore(t *testing.T) {
	t.Run("scores a case", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score", ScoreRequest{
			CaseID:       "intake-7",
			Transcript:   rearEndTranscript,
			IncidentDate: "2024-04-12",
			Now:          "2024-04-18",
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp scoring.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "intake-7", resp.ID)
		assert.Contains(t, []scoring.Decision{scoring.Accept, scoring.Review, scoring.Decline}, resp.Decision)
		assert.GreaterOrEqual(t, resp.Score, 1)
		assert.LessOrEqual(t, resp.Score, 100)
		assert.NotNil(t, resp.Breakdown)
		assert.Nil(t, resp.Features)
		require.NotNil(t, resp.Trace.DaysSinceIncident)
		assert.Equal(t, 6, *resp.Trace.DaysSinceIncident)
	})

	t.Run("includes features on request", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score", ScoreRequest{Transcript: rearEndTranscript, IncludeFeatures: true})
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp scoring.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Features)
		assert.Equal(t, features.MVARearEnd, resp.Features.CaseType)
		assert.Len(t, resp.ID, 36)
	})

	t.Run("validate rejects incomplete intake", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score?validate=true", ScoreRequest{
			Intake:     intake.Draft{ClientName: "Jane Doe", PainLevel: features.IntPtr(11)},
			Transcript: rearEndTranscript,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp ValidationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []intake.FieldError{
			{Field: "email", Rule: "required"},
			{Field: "incident_date", Rule: "required"},
			{Field: "incident_description", Rule: "required"},
			{Field: "pain_level", Rule: "max"},
		}, resp.Fields)
	})

	t.Run("validate accepts complete intake", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score?validate=true", ScoreRequest{
			Intake: intake.Draft{
				ClientName:          "Jane Doe",
				Email:               "jane dot doe at example dot com",
				IncidentDate:        "04/12/2024",
				IncidentDescription: "Rear-ended at a light",
			},
			Transcript: rearEndTranscript,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("skips validation by default", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score", ScoreRequest{Transcript: "dog bit me"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects invalid case id", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doJSON(t, server, "/api/v1/score", ScoreRequest{CaseID: "bad id/../", Transcript: "dog bit me"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("handles invalid json", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doRequest(server, http.MethodPost, "/api/v1/score", []byte(`{"transcript": 12`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		server, err := NewServer(newTestEngine(), logging.NewNop(), &Config{BodyLimit: "1K"})
		require.NoError(t, err)

		rec := doJSON(t, server, "/api/v1/score", ScoreRequest{Transcript: strings.Repeat("neck pain ", 500)})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	t.Run("starts and shuts down gracefully", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 0, // Use random available port
		}

		server, err := NewServer(newTestEngine(), logging.NewNop(), cfg)
		require.NoError(t, err)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Start()
		}()

		time.Sleep(100 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err = server.Shutdown(ctx)
		assert.NoError(t, err)

		select {
		case err := <-errChan:
			assert.True(t, err == nil || err == http.ErrServerClosed)
		case <-time.After(6 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID to response", func(t *testing.T) {
		server := setupTestServer(t)

		rec := doRequest(server, http.MethodGet, "/health", nil)
		assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
	})

	t.Run("logs request with request ID", func(t *testing.T) {
		logger := logging.NewTestLogger()
		server, err := NewServer(newTestEngine(), logger.Logger, nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-123")
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
		logger.AssertLogged(t, zapcore.InfoLevel, "http request")
		logger.AssertField(t, "http request", "request.id", "req-123")
		logger.AssertField(t, "http request", "uri", "/health")
	})

	t.Run("ignores malformed incoming request ID", func(t *testing.T) {
		logger := logging.NewTestLogger()
		server, err := NewServer(newTestEngine(), logger.Logger, nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(echo.HeaderXRequestID, "bad id with spaces")
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() {
			server.echo.ServeHTTP(rec, req)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		for _, entry := range logger.FilterMessage("http request").All() {
			for _, f := range entry.Context {
				assert.NotEqual(t, "request.id", f.Key)
			}
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		server := setupTestServer(t)

		server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() {
			server.echo.ServeHTTP(rec, req)
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t)

	rec := doRequest(server, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestParseNow(t *testing.T) {
	got, err := parseNow("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseNow("2024-04-18")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-18", got.Format("2006-01-02"))

	_, err = parseNow("next week")
	assert.Error(t, err)
}

func newTestEngine() *triage.Engine {
	return triage.NewEngine(nil, nil, triage.WithClock(fixedClock))
}

// setupTestServer creates a test server with default configuration.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &Config{
		Host:    "localhost",
		Port:    9090,
		Version: "test",
	}

	server, err := NewServer(newTestEngine(), logging.NewNop(), cfg)
	require.NoError(t, err)

	return server
}

func doRequest(server *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, server *Server, target string, v interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return doRequest(server, http.MethodPost, target, body)
}
