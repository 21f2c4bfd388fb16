package http

import (
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
	"github.com/fyrsmithlabs/intaketriage/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	LLM       bool                    `json:"llm"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// FeaturesRequest is the request body for POST /api/v1/features.
type FeaturesRequest struct {
	Transcript   string `json:"transcript"`
	IncidentDate string `json:"incident_date,omitempty"`
	// Now overrides the reference time, as an ISO date or RFC 3339 timestamp.
	Now string `json:"now,omitempty"`
}

// ScoreRequest is the request body for POST /api/v1/score.
type ScoreRequest struct {
	CaseID          string       `json:"case_id,omitempty"`
	Intake          intake.Draft `json:"intake"`
	Transcript      string       `json:"transcript"`
	IncidentDate    string       `json:"incident_date,omitempty"`
	Now             string       `json:"now,omitempty"`
	IncludeFeatures bool         `json:"include_features,omitempty"`
}

// ValidationResponse is returned with 422 when submit validation fails.
type ValidationResponse struct {
	Message string              `json:"message"`
	Fields  []intake.FieldError `json:"fields"`
}
