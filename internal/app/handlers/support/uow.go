package support

import (
	"context"
	"time"

	"github.com/google/uuid"

	"staysync/internal/app/uow"
)

// BeginReadOnlyUnit joins the unit already in ctx or opens a read-only one.
// The returned cleanup rolls back only a unit it opened.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Bind(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// Clock returns now() in UTC, falling back to the wall clock.
func Clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now().UTC()
}

// NewID returns gen() or a random UUID when gen is nil.
func NewID(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}
