package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldACM is the standardized key for the ACM (content database) name.
	FieldACM = "acm"
	// FieldRevision is the standardized key for a dbN.zip revision filename.
	FieldRevision = "revision"
	// FieldHolder is the standardized key for the user holding a checkout.
	FieldHolder = "holder"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType tags protocol decisions.
	FieldDecisionType = "decision_type"
)

type contextKey int

const (
	acmKey contextKey = iota
	requestIDKey
)

// WithACM tags ctx with the ACM name being operated on.
func WithACM(ctx context.Context, acm string) context.Context {
	return context.WithValue(ctx, acmKey, acm)
}

// WithRequestID tags ctx with a request correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier stored in ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if acm, ok := ctx.Value(acmKey).(string); ok && acm != "" {
		fields = append(fields, slog.String(FieldACM, acm))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
