package logging

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	caseIDKey ctxKey = iota
	requestIDKey
)

const maxIDLen = 128

// ValidateID checks that id is 1-128 bytes of [A-Za-z0-9_.:-]. name labels
// the error.
func ValidateID(id, name string) error {
	switch {
	case id == "":
		return fmt.Errorf("%s cannot be empty", name)
	case len(id) > maxIDLen:
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	for i := 0; i < len(id); i++ {
		if !idByte(id[i]) {
			return fmt.Errorf("%s contains invalid characters", name)
		}
	}
	return nil
}

func idByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	return b == '_' || b == '.' || b == ':' || b == '-'
}

// WithCaseID attaches an intake case ID. Invalid IDs are dropped.
func WithCaseID(ctx context.Context, id string) context.Context {
	if ValidateID(id, "case id") != nil {
		return ctx
	}
	return context.WithValue(ctx, caseIDKey, id)
}

// WithRequestID attaches an HTTP request ID. Invalid IDs are dropped.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ValidateID(id, "request id") != nil {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// CaseID returns the case ID attached to ctx, if any.
func CaseID(ctx context.Context) string {
	id, _ := ctx.Value(caseIDKey).(string)
	return id
}

// RequestID returns the request ID attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextFields returns the correlation fields carried by ctx.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := CaseID(ctx); id != "" {
		fields = append(fields, zap.String("case.id", id))
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}
