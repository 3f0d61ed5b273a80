package notify

import (
	"context"
	"log/slog"
)

// LoggingSender emits recovery codes to the structured log instead of a
// delivery provider. Real deployments swap this for the messaging gateway;
// the code itself is never logged outside dev.
type LoggingSender struct {
	logger  *slog.Logger
	devMode bool
}

func NewLoggingSender(logger *slog.Logger, devMode bool) *LoggingSender {
	return &LoggingSender{logger: logger, devMode: devMode}
}

func (s *LoggingSender) Send(ctx context.Context, recipient, kind, code string) error {
	fields := []any{
		"module", "notify",
		"layer", "adapter",
		"operation", "send_code",
		"outcome", "success",
		"recipient", recipient,
		"kind", kind,
	}
	if s.devMode {
		fields = append(fields, "code", code)
	}
	s.logger.InfoContext(ctx, "recovery code dispatched", fields...)
	return nil
}
