package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentspace/internal/app/commands"
	"rentspace/internal/domain/shared/errkind"
)

// Logging logs every command outcome. Business rejections log at Info,
// everything else that fails at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			switch kind := errkind.KindOf(err); kind {
			case "":
				logger.DebugContext(ctx, "command handled", attrs...)
			case errkind.Unknown, errkind.ExternalServiceFailure:
				logger.ErrorContext(ctx, "command failed", append(attrs, "kind", kind, "err", err)...)
			default:
				logger.InfoContext(ctx, "command rejected", append(attrs, "kind", kind, "reason", errkind.MessageOf(err))...)
			}
			return res, err
		})
	}
}
