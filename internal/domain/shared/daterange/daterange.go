package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [start, end).
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// MustNew panics on invalid input; fixtures and tests only.
func MustNew(start, end time.Time) DateRange {
	dr, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return dr
}

// Days builds a range from calendar dates (midnight UTC) in YYYY-MM-DD form.
func Days(start, end string) (DateRange, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return DateRange{}, ErrInvalidRange
	}
	return New(s, e)
}

// ParseBound reads YYYY-MM-DD (midnight UTC) or an RFC 3339 timestamp.
func ParseBound(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidRange
	}
	return t.UTC(), nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.Start.Before(dr.End) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts whole nights, rounding a partial trailing day up.
func (dr DateRange) Nights() int {
	d := dr.End.Sub(dr.Start)
	if d <= 0 {
		return 0
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return n
}

// Overlaps reports a.start < b.end && a.end > b.start. Touching ranges do not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && dr.End.After(other.Start)
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.Start.Equal(other.Start) && dr.End.Equal(other.End)
}

func (dr DateRange) String() string {
	return dr.Start.Format(time.RFC3339) + "/" + dr.End.Format(time.RFC3339)
}
