package middleware

import (
	"context"
	"log/slog"

	"warehub/internal/app/commands"
	"warehub/internal/app/outbox"
)

// OutboxFlush hands committed events to the outbox once the inner pipeline
// succeeds. The command's writes are already durable at that point, so a
// failed flush is logged and the result is still returned.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
