package logging

import (
	"errors"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// buildCore tees the enabled outputs, each behind its own level gate and
// redactor, then applies sampling.
func buildCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, error) {
	r, err := newRedactor(cfg.Redaction)
	if err != nil {
		return nil, err
	}

	var outputs []zapcore.Core
	if cfg.Stdout {
		out := zapcore.NewCore(encoder(cfg.Format), zapcore.Lock(os.Stdout), cfg.Level)
		outputs = append(outputs, &redactCore{Core: out, r: r})
	}
	if cfg.OTEL && provider != nil {
		out := otelzap.NewCore(ServiceName, otelzap.WithLoggerProvider(provider))
		gated := &band{Core: out, lo: cfg.Level, hi: zapcore.FatalLevel}
		outputs = append(outputs, &redactCore{Core: gated, r: r})
	}
	if len(outputs) == 0 {
		return nil, errors.New("no log output available")
	}

	return sample(zapcore.NewTee(outputs...), cfg.Sampling), nil
}

func encoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("trace")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// sample routes Error and above straight through and samples the rest.
func sample(core zapcore.Core, s Sampling) zapcore.Core {
	if !s.Enabled {
		return core
	}
	loud := &band{Core: core, lo: zapcore.ErrorLevel, hi: zapcore.FatalLevel}
	quiet := zapcore.NewSamplerWithOptions(
		&band{Core: core, lo: TraceLevel, hi: zapcore.WarnLevel},
		s.Tick, s.First, s.Thereafter,
	)
	return zapcore.NewTee(loud, quiet)
}

// band passes entries whose level lies in [lo, hi].
type band struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (b *band) Enabled(l zapcore.Level) bool {
	return l >= b.lo && l <= b.hi && b.Core.Enabled(l)
}

func (b *band) With(fields []zapcore.Field) zapcore.Core {
	return &band{Core: b.Core.With(fields), lo: b.lo, hi: b.hi}
}

func (b *band) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !b.Enabled(ent.Level) {
		return ce
	}
	return b.Core.Check(ent, ce)
}
