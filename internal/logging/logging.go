// Package logging provides structured logging for the circularity-gap pipeline.
//
// One process-wide zap logger is configured from the logging section of the
// config. Engine runs derive a child logger carrying the run id and pass it
// down through the context, so table loads, phases and sinks of one run can
// be correlated in a JSON log.
package logging

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level" yaml:"level"`

	// Format is "console" for people or "json" for log collectors
	Format string `json:"format" yaml:"format"`

	// Output is stderr, stdout or a file path the log is appended to
	Output string `json:"output" yaml:"output"`

	// Development adds caller stack traces to error entries
	Development bool `json:"development" yaml:"development"`
}

// DefaultConfig logs info and above to stderr, leaving stdout to reports
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "stderr"}
}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
	file *os.File
)

// Initialize replaces the process logger. An unknown level means info.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sink, f, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	replace(zap.New(zapcore.NewCore(encoder(cfg.Format), sink, level), opts...), f)
	return nil
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.StringDurationEncoder
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

func openOutput(output string) (zapcore.WriteSyncer, *os.File, error) {
	switch output {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil, nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), f, nil
}

// replace swaps the process logger and closes the previous log file
func replace(l *zap.Logger, f *os.File) {
	mu.Lock()
	prev, prevFile := base, file
	base, file = l, f
	mu.Unlock()

	_ = prev.Sync()
	if prevFile != nil {
		_ = prevFile.Close()
	}
}

// Silence discards every entry. Tests call it after running commands.
func Silence() {
	replace(zap.NewNop(), nil)
}

// Sync flushes buffered entries; main defers it
func Sync() error {
	mu.RLock()
	l, f := base, file
	mu.RUnlock()

	// stderr and stdout cannot be fsynced on most terminals
	if err := l.Sync(); err != nil && f != nil {
		return err
	}
	return nil
}

// L returns the process logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

type contextKey struct{}

// NewContext attaches a logger to ctx
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger attached to ctx, or the process logger
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L()
}

// ForRun returns ctx with a logger tagged with the run id, and that logger
func ForRun(ctx context.Context, runID string) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(zap.String("run_id", runID))
	return NewContext(ctx, l), l
}

// Phase logs the start of a pipeline phase and returns the func that closes
// it: "phase finished" with the elapsed time, or "phase failed" with err.
func Phase(ctx context.Context, name string, fields ...zap.Field) func(err error) {
	l := FromContext(ctx).With(zap.String("phase", name))
	l.Debug("phase started", fields...)
	start := time.Now()

	return func(err error) {
		done := append(fields, zap.Duration("elapsed", time.Since(start)))
		if err != nil {
			l.Error("phase failed", append(done, zap.Error(err))...)
			return
		}
		l.Info("phase finished", done...)
	}
}

func init() {
	_ = Initialize(DefaultConfig())
}
