package gormdb

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

var ErrFactoryMisconfigured = errors.New("gormdb: unit of work factory missing database")

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB         *gorm.DB
	PricingSvc domainpricing.Calculator
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrFactoryMisconfigured
	}
	var txOpts *sql.TxOptions
	if opts.ReadOnly && f.DB.Dialector.Name() == "postgres" {
		txOpts = &sql.TxOptions{ReadOnly: true}
	}
	tx := f.DB.WithContext(ctx).Begin(txOpts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{
		tx:         tx,
		properties: NewPropertyRepository(f.DB),
		calendars:  NewCalendarRepository(f.DB),
		pricing:    f.PricingSvc,
	}, nil
}

type Unit struct {
	tx   *gorm.DB
	done bool

	properties *PropertyRepository
	calendars  *CalendarRepository
	pricing    domainpricing.Calculator
}

func (u *Unit) Properties() domainproperty.Repository    { return u.properties }
func (u *Unit) Calendars() domainavailability.Repository { return u.calendars }
func (u *Unit) Pricing() domainpricing.Calculator        { return u.pricing }

// InjectContext hands the transaction to repositories and the outbox.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return retryable(u.tx.Commit().Error)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	err := u.tx.Rollback().Error
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
