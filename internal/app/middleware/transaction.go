package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// RetryPolicy re-runs a command whose unit of work lost an optimistic
// version race. Zero Attempts means a single try.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
}

func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, retry RetryPolicy) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	attempts := retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var lastErr error
			for attempt := 1; attempt <= attempts; attempt++ {
				res, err := runInUnit(ctx, factory, opts, nextFn, cmd)
				if err == nil {
					return res, nil
				}
				if !errors.Is(err, uow.ErrConcurrentUpdate) {
					return nil, err
				}
				lastErr = err
				if retry.Logger != nil {
					retry.Logger.Debug("command lost version race, retrying", "command", cmd.Key(), "attempt", attempt)
				}
				if attempt < attempts && retry.Backoff > 0 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(retry.Backoff * time.Duration(attempt)):
					}
				}
			}
			return nil, lastErr
		})
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, next commandFunc, cmd commands.Command) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := next(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}
