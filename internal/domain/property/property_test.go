package property

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/shared/money"
)

func newTestProperty(t *testing.T) *Property {
	t.Helper()
	p, err := New(CreateParams{
		ID:            "prop-1",
		HostID:        "host-1",
		Title:         "Cabin",
		PricePerNight: money.Must(10000, "usd"),
		GuestPrices:   map[int]money.Money{4: money.Must(14000, "USD")},
		MaxGuests:     4,
		Now:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestNightlyRateUsesGuestOverride(t *testing.T) {
	p := newTestProperty(t)
	assert.Equal(t, int64(10000), p.NightlyRate(2).Amount)
	assert.Equal(t, int64(14000), p.NightlyRate(4).Amount)
}

func TestNewValidates(t *testing.T) {
	_, err := New(CreateParams{HostID: "h", MaxGuests: 1, PricePerNight: money.Must(1, "USD")})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = New(CreateParams{Title: "x", HostID: "h", MaxGuests: 0, PricePerNight: money.Must(1, "USD")})
	assert.ErrorIs(t, err, ErrGuestsLimit)

	_, err = New(CreateParams{Title: "x", HostID: "h", MaxGuests: 1, PricePerNight: money.Must(1, "USD"), ExternalCalendarURL: "ftp://example.com/a.ics"})
	assert.ErrorIs(t, err, ErrInvalidCalendarURL)
}

func TestSetExternalCalendarURL(t *testing.T) {
	p := newTestProperty(t)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	changed, err := p.SetExternalCalendarURL(" https://airbnb.example/ical/1.ics ", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "https://airbnb.example/ical/1.ics", p.ExternalCalendarURL)
	assert.Len(t, p.PendingEvents(), 1)

	changed, err = p.SetExternalCalendarURL("https://airbnb.example/ical/1.ics", now)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = p.SetExternalCalendarURL("javascript:alert(1)", now)
	assert.ErrorIs(t, err, ErrInvalidCalendarURL)
}
