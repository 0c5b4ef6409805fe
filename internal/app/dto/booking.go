package dto

import (
	"time"

	domainavailability "staysync/internal/domain/availability"
)

type Booking struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	GuestID      string    `json:"guest_id"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Guests       int       `json:"guests"`
	Nights       int       `json:"nights"`
	Status       string    `json:"status"`
	Total        MoneyDTO  `json:"total"`
	PaymentRef   string    `json:"payment_ref,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func MapBooking(iv domainavailability.Interval) Booking {
	return Booking{
		ID:           string(iv.ID),
		PropertyID:   string(iv.PropertyID),
		GuestID:      iv.GuestID,
		CheckIn:      iv.Range.Start,
		CheckOut:     iv.Range.End,
		Guests:       iv.Guests,
		Nights:       iv.Range.Nights(),
		Status:       string(iv.Status),
		Total:        MapMoney(iv.TotalPrice),
		PaymentRef:   iv.PaymentRef,
		CancelReason: iv.CancelReason,
		CreatedAt:    iv.CreatedAt,
		UpdatedAt:    iv.UpdatedAt,
	}
}
