package memory

import (
	"context"
	"errors"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	PropertiesRepo domainproperty.Repository
	CalendarsRepo  domainavailability.Repository
	PricingSvc     domainpricing.Calculator
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight boundary. There is no rollback; consistency
// comes from the version check each repository performs on Save.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.PropertiesRepo == nil || f.CalendarsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		properties: f.PropertiesRepo,
		calendars:  f.CalendarsRepo,
		pricing:    f.PricingSvc,
	}, nil
}

type Unit struct {
	properties domainproperty.Repository
	calendars  domainavailability.Repository
	pricing    domainpricing.Calculator
}

func (u *Unit) Properties() domainproperty.Repository {
	return u.properties
}

func (u *Unit) Calendars() domainavailability.Repository {
	return u.calendars
}

func (u *Unit) Pricing() domainpricing.Calculator {
	return u.pricing
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
