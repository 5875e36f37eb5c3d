// Package logger provides structured logging for LessonForge
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with LessonForge-specific helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "lessonforge").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string) *zerolog.Event {
	return l.zlog.Fatal().Str("msg", msg)
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// HTTPLogger returns a logger for HTTP handler operations
func (l *Logger) HTTPLogger(route string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "http").
			Str("route", route).
			Logger(),
	}
}

// UploadLogger returns a logger for object storage operations
func (l *Logger) UploadLogger(kind string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "upload").
			Str("kind", kind).
			Logger(),
	}
}

// GatewayLogger returns a logger for persistence gateway operations
func (l *Logger) GatewayLogger(operation string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "gateway").
			Str("operation", operation).
			Logger(),
	}
}

// LogHTTPRequest logs a completed HTTP request with structured fields
func (l *Logger) LogHTTPRequest(method, path string, status int, duration time.Duration) {
	event := l.zlog.Info()
	if status >= 500 {
		event = l.zlog.Error()
	}
	event.
		Str("component", "http").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration_ms", duration).
		Msg("HTTP request completed")
}

// LogUpload logs an object storage upload with structured fields
func (l *Logger) LogUpload(key string, size int, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "upload").
		Str("key", key).
		Int("size_bytes", size).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "upload").
			Str("key", key).
			Int("size_bytes", size).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Upload completed")
}

// LogGatewayOperation logs a persistence operation with structured fields
func (l *Logger) LogGatewayOperation(operation, contentID string, duration time.Duration, err error) {
	event := l.zlog.Debug().
		Str("component", "gateway").
		Str("operation", operation).
		Str("content_id", contentID).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "gateway").
			Str("operation", operation).
			Str("content_id", contentID).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Gateway operation completed")
}

// LogServerStart logs server startup
func (l *Logger) LogServerStart(port int, dataDir string) {
	l.zlog.Info().
		Str("event", "server_start").
		Int("port", port).
		Str("data_dir", dataDir).
		Msg("LessonForge server starting")
}

// LogServerReady logs when the server is ready
func (l *Logger) LogServerReady(port int) {
	l.zlog.Info().
		Str("event", "server_ready").
		Int("port", port).
		Msg("LessonForge server ready to accept connections")
}

// LogServerShutdown logs server shutdown
func (l *Logger) LogServerShutdown() {
	l.zlog.Info().
		Str("event", "server_shutdown").
		Msg("LessonForge server shutting down")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
