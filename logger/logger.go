// Package logger defines the logging contract used across the transfer flow.
package logger

// Logger is the minimal structured-logging interface the flow depends on.
// Fields are free-form key/value pairs; implementations decide encoding.
//
// No field passed through this interface may ever contain key material.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
