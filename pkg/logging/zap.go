package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format represents the log output format
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
	// FormatText is accepted as an alias of FormatConsole
	FormatText Format = "text"
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum level: debug, info, warn or error
	Level string
	// Format is json or console
	Format Format
	// OutputPath is stdout, stderr or a file path
	OutputPath string
	// MaxSize is the file size in bytes that triggers rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the number of rotated files kept
	MaxBackups int
}

// ZapLogger implements Logger on top of zap
type ZapLogger struct {
	z      *zap.Logger
	closer io.Closer
}

// NewZapLogger builds a logger writing to cfg.OutputPath
func NewZapLogger(cfg Config) (*ZapLogger, error) {
	var encoder zapcore.Encoder
	switch cfg.Format {
	case FormatJSON, "":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case FormatConsole, FormatText:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var (
		sink   zapcore.WriteSyncer
		closer io.Closer
	)
	switch cfg.OutputPath {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	default:
		f, err := openRotatingFile(cfg.OutputPath, cfg.MaxSize, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		sink, closer = f, f
	}

	core := zapcore.NewCore(encoder, sink, zapLevel(ParseLevel(cfg.Level)))
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	return &ZapLogger{z: z, closer: closer}, nil
}

// NewZapLoggerFromZap wraps an existing zap logger
func NewZapLoggerFromZap(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z}
}

// Zap returns the underlying zap logger
func (l *ZapLogger) Zap() *zap.Logger {
	return l.z
}

// Debug logs a debug message
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.z.Debug(msg, zapFields(fields)...)
}

// Info logs an info message
func (l *ZapLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.z.Info(msg, zapFields(fields)...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.z.Warn(msg, zapFields(fields)...)
}

// Error logs an error message
func (l *ZapLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(msg, zf...)
}

// WithFields returns a logger with additional fields
func (l *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{z: l.z.With(zapFields(fields)...), closer: l.closer}
}

// Close flushes the logger and closes its file, if any
func (l *ZapLogger) Close() error {
	// syncing a terminal fails on some platforms
	syncErr := l.z.Sync()
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return err
	}
	return syncErr
}

func zapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
