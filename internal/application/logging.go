package application

import (
	"cmp"
	"context"
	"errors"
	"log/slog"

	"github.com/example/skillswap/internal/logging"
)

// serviceLogger returns the logger for one marketplace operation, tagged with
// the service and operation names plus attrs such as principal_id or swap_id.
// A logger stored in ctx by the HTTP layer carries the request id and takes
// precedence over base.
func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := cmp.Or(logging.FromContext(ctx), base, slog.Default())
	tags := make([]any, 0, 4+len(attrs))
	tags = append(tags, "service", service, "operation", operation)
	return logger.With(append(tags, attrs...)...)
}

// ErrorKind labels a service error for the error_kind log attribute. Swap,
// request and schedule failures share the same small vocabulary.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
