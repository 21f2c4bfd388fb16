// Package logging is the structured logger shared by the triage engine,
// the extraction layer and the HTTP API.
//
// A Logger is a zap logger whose methods take a context. Entries logged
// with a context pick up trace_id and span_id from the active span, plus
// case.id and request.id when they were attached with WithCaseID and
// WithRequestID.
//
//	logger, err := logging.NewLogger(cfg, tel.LoggerProvider())
//	ctx = logging.WithCaseID(ctx, "intake-42")
//	logger.Info(ctx, "case scored", zap.Int("score", 78))
//
// Intake data is personal: transcripts, contact details and dates of birth
// must never reach stdout or the OTEL exporter verbatim. Each output core
// is wrapped so that fields named after intake PII are masked and string
// values that look like emails, phone numbers or credentials are replaced.
// Transcripts should be logged with the Transcript helper, which keeps
// only the length and a short digest.
//
// Entries below Error are sampled per tick when sampling is enabled.
package logging
