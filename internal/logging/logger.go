// Package logging provides the coordinator's structured logger: a thin
// wrapper over zap that fixes the level policy — info for lifecycle
// events, debug for per-connection and
// IPC traffic gated behind a flag, warn for recoverable operation
// failures, error immediately before a startup-fatal exit — so call
// sites never have to reason about level thresholds themselves.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the non-sugared structured logger used on the coordinator's
// hot paths (proxy connection handling, IPC requests).
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger offers printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger writing JSON lines to os.Stderr. debug controls
// whether Debug-level records are emitted at all; it does not affect
// Info/Warn/Error, which are always emitted.
func New(debug bool) *Logger {
	return newWithWriter(os.Stderr, debug)
}

func newWithWriter(w io.Writer, debug bool) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeTime:  zapcore.RFC3339TimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return &Logger{zap: zap.New(core)}
}

// WithOutput returns a copy of l writing to w instead, preserving its
// level threshold. Used by tests that want to assert on log output.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewCore(zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "ts",
			LevelKey:    "level",
			MessageKey:  "msg",
			EncodeTime:  zapcore.RFC3339TimeEncoder,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		}), zapcore.AddSync(w), c)
	}))}
}

// With returns a Logger with additional structured fields attached to
// every subsequent record.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Debug logs a per-connection/IPC-traffic-level record.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs a lifecycle event: started, stopped, launched, connected.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs a recoverable operation failure that does not abort the
// process: a failed rendezvous write, a dropped proxy connection, an
// IPC timeout that fell back to the protocol-level path.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs a startup-fatal condition. Callers are expected to
// os.Exit(1) immediately after.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }

// Sugar returns a SugaredLogger for printf-style CLI output.
func (l *Logger) Sugar() *SugaredLogger { return &SugaredLogger{sugar: l.zap.Sugar()} }

func (s *SugaredLogger) Debugf(template string, args ...any) { s.sugar.Debugf(template, args...) }
func (s *SugaredLogger) Infof(template string, args ...any)  { s.sugar.Infof(template, args...) }
func (s *SugaredLogger) Warnf(template string, args ...any)  { s.sugar.Warnf(template, args...) }
func (s *SugaredLogger) Errorf(template string, args ...any) { s.sugar.Errorf(template, args...) }
