package middleware

import (
	"context"
	"fmt"

	"staysync/internal/app/commands"
	"staysync/internal/app/outbox"
)

// OutboxFlush flushes events recorded by a successful command while its unit
// of work is still open, so a failed flush rolls the calendar change back.
// It must sit inside Transaction.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, fmt.Errorf("middleware: flush outbox after %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
