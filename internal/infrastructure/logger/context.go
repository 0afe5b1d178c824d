package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is unexported so callers go through the helpers below
type ctxKey int

const (
	loggerCtxKey ctxKey = iota
	requestIDCtxKey
	tenantIDCtxKey
)

// WithContext attaches the request-scoped logger to the context
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, log)
}

// FromContext returns the logger attached to the context, or a no-op
// logger when none was attached
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// ContextWithRequestID stores the request correlation ID. SQL trace
// logs and L pick it up from here.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, requestID)
}

// ContextWithTenantID stores the resolved tenant ID so every log line
// downstream of tenant resolution carries it
func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDCtxKey, tenantID)
}

// RequestIDFromContext returns the stored request ID, if any
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return requestID
	}
	return ""
}

// TenantIDFromContext returns the stored tenant ID, if any
func TenantIDFromContext(ctx context.Context) string {
	if tenantID, ok := ctx.Value(tenantIDCtxKey).(string); ok {
		return tenantID
	}
	return ""
}

// ContextLogger wraps a zap logger and stamps every entry with the
// correlation fields carried by the context: trace_id and span_id from
// the active span, plus request_id and tenant_id when present.
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
}

// L returns a ContextLogger backed by the logger attached to the
// context. Usage: logger.L(ctx).Info("counter flushed", ...)
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: FromContext(ctx)}
}

// WithLogger returns a ContextLogger over an explicitly provided
// logger. Handlers use this with their injected logger so correlation
// fields come from the request context without relying on middleware
// having attached a logger.
func WithLogger(ctx context.Context, log *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: log}
}

// With returns a child ContextLogger carrying extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	base := cl.base
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{ctx: cl.ctx, base: base.With(fields...)}
}

// Debug logs at debug level with correlation fields
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

// Info logs at info level with correlation fields
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

// Warn logs at warn level with correlation fields
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

// Error logs at error level with correlation fields
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying logger with correlation fields applied,
// for call sites that need a plain *zap.Logger
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}

func (cl *ContextLogger) enriched() *zap.Logger {
	log := cl.base
	if log == nil {
		log = zap.NewNop()
	}

	if spanCtx := trace.SpanContextFromContext(cl.ctx); spanCtx.IsValid() {
		log = log.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if requestID := RequestIDFromContext(cl.ctx); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}
	if tenantID := TenantIDFromContext(cl.ctx); tenantID != "" {
		log = log.With(zap.String("tenant_id", tenantID))
	}

	return log
}
