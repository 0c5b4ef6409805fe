package uow

import (
	"context"
	"errors"

	domainavailability "staysync/internal/domain/availability"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

// ErrConcurrentUpdate is returned by repositories (or Commit) when another
// writer changed the aggregate after it was loaded. Commands that hit it
// are safe to run again on fresh state.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() domainproperty.Repository
	Calendars() domainavailability.Repository
	Pricing() domainpricing.Calculator

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
