package pricing

import (
	"context"

	domainpricing "staysync/internal/domain/pricing"
)

// NightlyCalculator prices a stay as nights times the property's nightly
// rate, using the per-guest-count override when the host set one.
type NightlyCalculator struct{}

func NewNightlyCalculator() NightlyCalculator {
	return NightlyCalculator{}
}

func (NightlyCalculator) Quote(ctx context.Context, input domainpricing.QuoteInput) (domainpricing.PriceBreakdown, error) {
	if input.Property == nil {
		return domainpricing.PriceBreakdown{}, domainpricing.ErrPropertyUnset
	}
	breakdown := domainpricing.PriceBreakdown{
		Nights:  input.Range.Nights(),
		Nightly: input.Property.NightlyRate(input.Guests),
	}
	if err := breakdown.RecalculateTotal(); err != nil {
		return domainpricing.PriceBreakdown{}, err
	}
	return breakdown, nil
}

var _ domainpricing.Calculator = NightlyCalculator{}
