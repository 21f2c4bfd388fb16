package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/intaketriage/internal/config"
)

const (
	maskKey     = "[REDACTED]"
	maskPattern = "[REDACTED:pattern]"
)

// Transcript logs text as its length and the first six bytes of its
// SHA-256, enough to correlate resubmissions of the same call.
func Transcript(key, text string) zap.Field {
	sum := sha256.Sum256([]byte(text))
	return zap.String(key, fmt.Sprintf("[REDACTED:%d:%s]", len(text), hex.EncodeToString(sum[:6])))
}

// Secret logs a config secret as its length only.
func Secret(key string, s config.Secret) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(s.Value())))
}

type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(r Redaction) (*redactor, error) {
	out := &redactor{keys: make(map[string]struct{}, len(r.Keys))}
	for _, k := range r.Keys {
		out.keys[strings.ToLower(k)] = struct{}{}
	}
	for _, p := range r.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		out.patterns = append(out.patterns, re)
	}
	return out, nil
}

func (r *redactor) sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := r.keys[key]; ok {
		return true
	}
	// dotted keys such as intake.email
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		_, ok := r.keys[key[i+1:]]
		return ok
	}
	return false
}

func (r *redactor) matches(s string) bool {
	for _, re := range r.patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// scrub returns fields with sensitive values replaced. The input slice is
// not modified.
func (r *redactor) scrub(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		masked, changed := r.field(f)
		if !changed {
			if out != nil {
				out = append(out, f)
			}
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, i, len(fields))
			copy(out, fields[:i])
		}
		out = append(out, masked)
	}
	if out == nil {
		return fields
	}
	return out
}

func (r *redactor) field(f zapcore.Field) (zapcore.Field, bool) {
	if r.sensitiveKey(f.Key) {
		// helper output is already masked
		if f.Type == zapcore.StringType && strings.HasPrefix(f.String, "[REDACTED") {
			return f, false
		}
		return zap.String(f.Key, maskKey), true
	}
	switch f.Type {
	case zapcore.StringType:
		if r.matches(f.String) {
			return zap.String(f.Key, maskPattern), true
		}
	case zapcore.ByteStringType:
		if b, ok := f.Interface.([]byte); ok && r.matches(string(b)) {
			return zap.String(f.Key, maskPattern), true
		}
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil && r.matches(err.Error()) {
			return zap.String(f.Key, maskPattern), true
		}
	}
	return f, false
}

// redactCore scrubs fields and messages before they reach an output.
type redactCore struct {
	zapcore.Core
	r *redactor
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(c.r.scrub(fields)), r: c.r}
}

func (c *redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if c.r.matches(ent.Message) {
		ent.Message = maskPattern
	}
	return c.Core.Write(ent, c.r.scrub(fields))
}
