package dto

import (
	"time"

	domainavailability "staysync/internal/domain/availability"
	"staysync/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

// Interval is the public shape of one calendar entry.
type Interval struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
}

type Calendar struct {
	PropertyID string     `json:"property_id"`
	Intervals  []Interval `json:"intervals"`
}

type Availability struct {
	PropertyID string    `json:"property_id"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Available  bool      `json:"available"`
	// ConflictID is set when the range is taken.
	ConflictID string `json:"conflict_id,omitempty"`
}

type ImportResult struct {
	PropertyID string     `json:"property_id"`
	Blocked    int        `json:"blocked"`
	Skipped    int        `json:"skipped"`
	Intervals  []Interval `json:"intervals"`
}

// CalendarFeed is a rendered iCal document with its validator.
type CalendarFeed struct {
	PropertyID string
	Name       string
	ETag       string
	Body       []byte
}

func MapInterval(iv domainavailability.Interval) Interval {
	return Interval{
		ID:         string(iv.ID),
		PropertyID: string(iv.PropertyID),
		Start:      iv.Range.Start,
		End:        iv.Range.End,
		Status:     string(iv.Status),
		Source:     string(iv.Source),
	}
}

func MapIntervals(list []domainavailability.Interval) []Interval {
	out := make([]Interval, 0, len(list))
	for _, iv := range list {
		out = append(out, MapInterval(iv))
	}
	return out
}

type SyncTarget struct {
	PropertyID string `json:"property_id"`
	URL        string `json:"url"`
}
