package dto

import (
	"time"

	domainpricing "staysync/internal/domain/pricing"
)

type Quote struct {
	PropertyID string    `json:"property_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Guests     int       `json:"guests"`
	Nights     int       `json:"nights"`
	Nightly    MoneyDTO  `json:"nightly"`
	Total      MoneyDTO  `json:"total"`
}

func MapQuote(propertyID string, checkIn, checkOut time.Time, guests int, p domainpricing.PriceBreakdown) Quote {
	return Quote{
		PropertyID: propertyID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     guests,
		Nights:     p.Nights,
		Nightly:    MapMoney(p.Nightly),
		Total:      MapMoney(p.Total),
	}
}
