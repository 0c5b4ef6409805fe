package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainpricing "staysync/internal/domain/pricing"
	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

func TestNightlyCalculatorQuote(t *testing.T) {
	p := &property.Property{
		PricePerNight: money.Must(10000, "USD"),
		GuestPrices:   map[int]money.Money{3: money.Must(12500, "USD")},
		MaxGuests:     4,
	}
	stay, err := daterange.Days("2025-03-10", "2025-03-15")
	require.NoError(t, err)

	calc := NewNightlyCalculator()

	base, err := calc.Quote(context.Background(), domainpricing.QuoteInput{Property: p, Range: stay, Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, base.Nights)
	assert.Equal(t, money.Must(50000, "USD"), base.Total)

	override, err := calc.Quote(context.Background(), domainpricing.QuoteInput{Property: p, Range: stay, Guests: 3})
	require.NoError(t, err)
	assert.Equal(t, money.Must(62500, "USD"), override.Total)
}

func TestNightlyCalculatorRequiresProperty(t *testing.T) {
	_, err := NewNightlyCalculator().Quote(context.Background(), domainpricing.QuoteInput{})
	assert.ErrorIs(t, err, domainpricing.ErrPropertyUnset)
}
