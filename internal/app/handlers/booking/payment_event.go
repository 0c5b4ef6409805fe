package booking

import (
	"fmt"
	"strings"

	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

// PaymentCaptured is the payload the payment provider sends (via webhook
// or the payments topic) once money for a stay has been taken.
type PaymentCaptured struct {
	EventID    string `json:"event_id"`
	PaymentID  string `json:"payment_id"`
	PropertyID string `json:"property_id"`
	GuestID    string `json:"guest_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

// DedupKey identifies the delivery; providers that omit event ids are
// deduplicated by payment id.
func (p PaymentCaptured) DedupKey() string {
	if p.EventID != "" {
		return p.EventID
	}
	return p.PaymentID
}

func (p PaymentCaptured) Command() (CapturePaymentCommand, error) {
	checkIn, err := daterange.ParseBound(strings.TrimSpace(p.CheckIn))
	if err != nil {
		return CapturePaymentCommand{}, fmt.Errorf("check_in: %w", err)
	}
	checkOut, err := daterange.ParseBound(strings.TrimSpace(p.CheckOut))
	if err != nil {
		return CapturePaymentCommand{}, fmt.Errorf("check_out: %w", err)
	}
	cmd := CapturePaymentCommand{
		PaymentID:  p.PaymentID,
		PropertyID: p.PropertyID,
		GuestID:    p.GuestID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     p.Guests,
	}
	if p.Amount != 0 || p.Currency != "" {
		amount, err := money.New(p.Amount, p.Currency)
		if err != nil {
			return CapturePaymentCommand{}, err
		}
		cmd.Amount = amount
	}
	return cmd, nil
}
