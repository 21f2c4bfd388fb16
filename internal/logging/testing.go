package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger records every entry, unredacted, so tests can check both what
// was logged and that callers masked PII themselves.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a TestLogger that records from TraceLevel up.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{Logger: &Logger{zap: zap.New(core)}, logs: logs}
}

// All returns the recorded entries.
func (t *TestLogger) All() []observer.LoggedEntry { return t.logs.All() }

// FilterMessage returns entries whose message is exactly msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessage(msg)
}

// AssertLogged fails tb unless an entry at lvl has a message containing
// substr.
func (t *TestLogger) AssertLogged(tb testing.TB, lvl zapcore.Level, substr string) {
	tb.Helper()
	for _, e := range t.logs.All() {
		if e.Level == lvl && strings.Contains(e.Message, substr) {
			return
		}
	}
	tb.Errorf("no %s entry containing %q; got %d entries", lvl, substr, t.logs.Len())
}

// AssertField fails tb unless an entry with message msg carries key=want.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.logs.FilterMessage(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && reflect.DeepEqual(got, want) {
			return
		}
	}
	tb.Errorf("entry %q has no field %s=%v", msg, key, want)
}

// AssertNoSecrets fails tb if any entry carries an unmasked sensitive key
// or a string value matching a default redaction pattern.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	r, err := newRedactor(Redaction{Keys: DefaultRedactedKeys, Patterns: DefaultRedactedPatterns})
	if err != nil {
		tb.Fatal(err)
	}
	for _, e := range t.logs.All() {
		if r.matches(e.Message) {
			tb.Errorf("sensitive value in message %q", e.Message)
		}
		for _, f := range e.Context {
			if _, changed := r.field(f); changed {
				tb.Errorf("entry %q: field %q is not masked", e.Message, f.Key)
			}
		}
	}
}
