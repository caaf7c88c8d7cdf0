package logging

import "context"

var (
	_ Logger = (*NullLogger)(nil)
	_ Logger = (*ZapLogger)(nil)
)

// NullLogger discards everything. Packages taking an optional logger fall
// back to it through OrNull.
type NullLogger struct{}

// NewNullLogger returns a logger that discards all output
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

// OrNull returns l, or a NullLogger when l is nil
func OrNull(l Logger) Logger {
	if l == nil {
		return NewNullLogger()
	}
	return l
}

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields returns the receiver; there is nothing to attach fields to
func (l *NullLogger) WithFields(Fields) Logger {
	return l
}

func (*NullLogger) Close() error {
	return nil
}
