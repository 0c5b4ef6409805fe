package pricing

import (
	"context"
	"errors"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset = errors.New("pricing: currency must be defined")
	ErrNoNights      = errors.New("pricing: nights must be positive")
	ErrPropertyUnset = errors.New("pricing: property is required")
)

type PriceBreakdown struct {
	Nights  int         `json:"nights"`
	Nightly money.Money `json:"nightly"`
	Total   money.Money `json:"total"`
}

func (p *PriceBreakdown) Validate() error {
	if p.Nightly.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrNoNights
	}
	return nil
}

func (p *PriceBreakdown) RecalculateTotal() error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Total = p.Nightly.Multiply(int64(p.Nights))
	return nil
}

type QuoteInput struct {
	Property *property.Property
	Range    daterange.DateRange
	Guests   int
}

type Calculator interface {
	Quote(ctx context.Context, input QuoteInput) (PriceBreakdown, error)
}
