// Package triage is the service facade: it builds case features from a
// transcript and scores them against the intake draft.
package triage

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/intaketriage/internal/dates"
	"github.com/fyrsmithlabs/intaketriage/internal/extraction"
	"github.com/fyrsmithlabs/intaketriage/internal/features"
	"github.com/fyrsmithlabs/intaketriage/internal/intake"
	"github.com/fyrsmithlabs/intaketriage/internal/logging"
	"github.com/fyrsmithlabs/intaketriage/internal/scoring"
	"github.com/fyrsmithlabs/intaketriage/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/intaketriage/internal/triage"

// HeuristicExtractor produces a complete feature record from text alone.
type HeuristicExtractor interface {
	Extract(transcript string) features.CaseFeatures
}

// LLMExtractor produces a partial record. Failures surface as an empty
// partial, never as an error.
type LLMExtractor interface {
	Extract(ctx context.Context, transcript, anchorDateISO string) features.Partial
	Available() bool
}

// BuildRequest is the input to BuildFeatures.
type BuildRequest struct {
	Transcript   string
	IncidentDate string
	// Now is the reference time. Zero uses the engine clock.
	Now time.Time
}

// ScoreRequest is the input to ScoreCase.
type ScoreRequest struct {
	// CaseID is echoed as Result.ID. Empty generates one.
	CaseID       string
	Intake       intake.Draft
	Transcript   string
	IncidentDate string
	Now          time.Time
	// IncludeFeatures attaches the merged features to the result.
	IncludeFeatures bool
}

// Engine runs feature building and scoring.
type Engine struct {
	heuristic HeuristicExtractor
	llm       LLMExtractor
	weights   *scoring.Table
	clock     func() time.Time
	newID     func() string
	logger    *logging.Logger
	tel       *telemetry.Telemetry
	metrics   *scoring.Metrics

	tracer    trace.Tracer
	decisions metric.Int64Counter
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used when a request carries no Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTelemetry routes spans and OTEL metrics through tel instead of the
// global providers.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(e *Engine) { e.tel = tel }
}

// WithWeights replaces the built-in weight table.
func WithWeights(t *scoring.Table) Option {
	return func(e *Engine) { e.weights = t }
}

// WithMetrics records every result in m.
func WithMetrics(m *scoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator sets the function used for result ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine. llm may be nil, which means heuristic-only.
func NewEngine(heuristic HeuristicExtractor, llm LLMExtractor, opts ...Option) *Engine {
	if heuristic == nil {
		heuristic = extraction.NewHeuristicExtractor()
	}
	e := &Engine{
		heuristic: heuristic,
		llm:       llm,
		weights:   scoring.DefaultTable(),
		clock:     time.Now,
		newID:     uuid.NewString,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var meter metric.Meter
	if e.tel != nil {
		e.tracer = e.tel.Tracer(instrumentationName)
		meter = e.tel.Meter(instrumentationName)
	} else {
		e.tracer = otel.Tracer(instrumentationName)
		meter = otel.Meter(instrumentationName)
	}

	var err error
	e.decisions, err = meter.Int64Counter(
		"intaketriage.triage.decisions",
		metric.WithDescription("Total number of triage decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		e.logger.Warn(context.Background(), "failed to create decision counter", zap.Error(err))
	}
	return e
}

// LLMAvailable reports whether model extraction is configured.
func (e *Engine) LLMAvailable() bool {
	return e.llm != nil && e.llm.Available()
}

// Weights returns the active weight table.
func (e *Engine) Weights() *scoring.Table {
	return e.weights
}

func (e *Engine) now(t time.Time) time.Time {
	if t.IsZero() {
		return e.clock().UTC()
	}
	return t.UTC()
}

// BuildFeatures extracts and merges case features. It never fails: model
// problems degrade to the heuristic record.
func (e *Engine) BuildFeatures(ctx context.Context, req BuildRequest) features.CaseFeatures {
	f, _ := e.build(ctx, req.Transcript, req.IncidentDate, e.now(req.Now))
	return f
}

func (e *Engine) build(ctx context.Context, transcript, incidentDate string, now time.Time) (features.CaseFeatures, features.Provenance) {
	ctx, span := e.tracer.Start(ctx, "triage.build_features")
	defer span.End()

	span.SetAttributes(
		attribute.Int("transcript.len", len(transcript)),
		attribute.Bool("llm.available", e.LLMAvailable()),
	)

	if strings.TrimSpace(transcript) == "" {
		f, prov := features.HeuristicOnly(e.heuristic.Extract(transcript))
		span.SetAttributes(attribute.String("triage.case_type", string(f.CaseType)))
		return f, prov
	}

	partial := features.Partial{}
	if e.LLMAvailable() {
		anchor := dates.AnchorDateISO(incidentDate, now)
		partial = e.extractLLM(ctx, transcript, anchor)
	}
	heur := e.heuristic.Extract(transcript)

	f, prov := features.Merge(heur, partial)
	span.SetAttributes(
		attribute.String("triage.case_type", string(f.CaseType)),
		attribute.Bool("llm.used", !partial.IsEmpty()),
	)
	e.logger.Debug(ctx, "features built",
		zap.String("case_type", string(f.CaseType)),
		zap.Bool("llm.used", !partial.IsEmpty()),
		logging.Transcript("transcript", transcript),
	)
	return f, prov
}

func (e *Engine) extractLLM(ctx context.Context, transcript, anchor string) features.Partial {
	ctx, span := e.tracer.Start(ctx, "triage.extract_llm")
	defer span.End()

	span.SetAttributes(attribute.String("llm.anchor_date", anchor))
	p := e.llm.Extract(ctx, transcript, anchor)
	span.SetAttributes(attribute.Bool("llm.empty", p.IsEmpty()))
	return p
}

// ScoreCase builds features for the transcript and scores them with the
// normalised intake draft.
func (e *Engine) ScoreCase(ctx context.Context, req ScoreRequest) scoring.Result {
	id := req.CaseID
	if id == "" {
		id = e.newID()
	}
	ctx = logging.WithCaseID(ctx, id)
	now := e.now(req.Now)

	f, prov := e.build(ctx, req.Transcript, req.IncidentDate, now)

	ctx, span := e.tracer.Start(ctx, "triage.score")
	defer span.End()

	result := e.weights.Score(scoring.Input{
		Features:     f,
		Provenance:   prov,
		Intake:       intake.Normalize(req.Intake),
		Transcript:   req.Transcript,
		IncidentDate: req.IncidentDate,
		Now:          now,
	})
	result.ID = id
	result.ScoringVersion = extraction.ScoringVersion
	if req.IncludeFeatures {
		result.Features = &f
	}

	span.SetAttributes(
		attribute.String("triage.case_type", string(f.CaseType)),
		attribute.Int("triage.score", result.Score),
		attribute.String("triage.decision", string(result.Decision)),
		attribute.Bool("triage.nudged", result.Nudged),
	)
	if e.decisions != nil {
		e.decisions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("triage.decision", string(result.Decision)),
			attribute.String("triage.case_type", string(f.CaseType)),
		))
	}
	e.metrics.Record(result)

	e.logger.Info(ctx, "case scored",
		zap.String("case_type", string(f.CaseType)),
		zap.Int("score", result.Score),
		zap.String("decision", string(result.Decision)),
		zap.Bool("nudged", result.Nudged),
		zap.Int("clarifications", len(result.Clarifications)),
		zap.Int("transcript.len", len(req.Transcript)),
	)
	return result
}
