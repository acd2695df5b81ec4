// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableStoreLogging bool
	EnableWSLogging    bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableStoreLogging: true,
	EnableWSLogging:    true,
}

// StoreLogger provides structured logging for document store operations.
type StoreLogger struct {
	driver string
	logger *Logger
}

// NewStoreLogger creates a new StoreLogger for the given driver name.
func NewStoreLogger(driver string) *StoreLogger {
	return &StoreLogger{
		driver: driver,
		logger: GlobalLogger,
	}
}

// LogWrite logs a document write (set, update, delete or increment).
func (l *StoreLogger) LogWrite(ctx context.Context, operation, path string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.InfoContext(ctx, "store write",
		slog.String("driver", l.driver),
		slog.String("operation", operation),
		slog.String("path", path),
	)
}

// LogTransaction logs a completed transaction with its write count.
func (l *StoreLogger) LogTransaction(ctx context.Context, writes int, err error) {
	if !Config.EnableStoreLogging {
		return
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "store transaction failed",
			slog.String("driver", l.driver),
			slog.Int("writes", writes),
			slog.String("error", err.Error()),
		)
		return
	}
	l.logger.InfoContext(ctx, "store transaction committed",
		slog.String("driver", l.driver),
		slog.Int("writes", writes),
	)
}

// LogBatch logs a committed batch with its write count.
func (l *StoreLogger) LogBatch(ctx context.Context, writes int) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.InfoContext(ctx, "store batch committed",
		slog.String("driver", l.driver),
		slog.Int("writes", writes),
	)
}

// LogError logs a store operation error.
func (l *StoreLogger) LogError(ctx context.Context, err error, operation, path string) {
	if !Config.EnableStoreLogging {
		return
	}
	l.logger.ErrorContext(ctx, "store error",
		slog.String("driver", l.driver),
		slog.String("operation", operation),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
	logger  *Logger
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, userID string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation started", attrs...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "async operation completed", attrs...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "async operation failed", attrs...)
}
