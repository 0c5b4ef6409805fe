package booking

import (
	"errors"
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

var (
	ErrCheckInInPast = errors.New("booking: check-in date is in the past")
	ErrInvalidGuests = errors.New("booking: guests count must be between 1 and the property limit")
	ErrPriceMismatch = errors.New("booking: total does not match the quoted price")
)

func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(dr.Start.Year(), dr.Start.Month(), dr.Start.Day(), 0, 0, 0, 0, time.UTC)
	if checkIn.Before(today) {
		return ErrCheckInInPast
	}
	return nil
}

func ValidateGuests(p *property.Property, guests int) error {
	if guests < 1 || (p.MaxGuests > 0 && guests > p.MaxGuests) {
		return ErrInvalidGuests
	}
	return nil
}

// MatchQuote accepts an empty client total; otherwise it must equal the quote.
func MatchQuote(client, quoted money.Money) error {
	if client.Amount == 0 && client.Currency == "" {
		return nil
	}
	if !client.Equal(quoted) {
		return ErrPriceMismatch
	}
	return nil
}
