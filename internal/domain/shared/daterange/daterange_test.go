package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDays(t *testing.T, start, end string) DateRange {
	t.Helper()
	dr, err := Days(start, end)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsEmptyAndInverted(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := New(now, now)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, now)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	dr, err := New(time.Date(2025, 3, 10, 3, 0, 0, 0, loc), time.Date(2025, 3, 11, 3, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, dr.Start.Location())
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), dr.Start)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b DateRange
		want bool
	}{
		{"disjoint", mustDays(t, "2025-03-01", "2025-03-05"), mustDays(t, "2025-03-10", "2025-03-12"), false},
		{"touching", mustDays(t, "2025-03-10", "2025-03-15"), mustDays(t, "2025-03-15", "2025-03-18"), false},
		{"partial", mustDays(t, "2025-03-10", "2025-03-15"), mustDays(t, "2025-03-14", "2025-03-18"), true},
		{"nested", mustDays(t, "2025-03-01", "2025-03-31"), mustDays(t, "2025-03-10", "2025-03-11"), true},
		{"identical", mustDays(t, "2025-03-10", "2025-03-11"), mustDays(t, "2025-03-10", "2025-03-11"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a))
		})
	}
}

func TestNights(t *testing.T) {
	assert.Equal(t, 5, mustDays(t, "2025-03-10", "2025-03-15").Nights())

	start := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	partial, err := New(start, start.Add(30*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, partial.Nights())
}

func TestParseBound(t *testing.T) {
	d, err := ParseBound("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	ts, err := ParseBound("2025-03-10T14:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, time.UTC, ts.Location())

	_, err = ParseBound("10/03/2025")
	assert.ErrorIs(t, err, ErrInvalidRange)
}
