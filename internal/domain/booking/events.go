package booking

import (
	"time"

	"staysync/internal/domain/availability"
	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

type ConfirmTrigger string

const (
	TriggerPayment    ConfirmTrigger = "PAYMENT_CAPTURED"
	TriggerHostAccept ConfirmTrigger = "HOST_ACCEPTED"
)

type Requested struct {
	BookingID  availability.IntervalID
	PropertyID property.PropertyID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	Total      money.Money
	At         time.Time
}

func (e Requested) EventName() string     { return "booking.requested" }
func (e Requested) AggregateID() string   { return string(e.BookingID) }
func (e Requested) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	BookingID  availability.IntervalID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Total      money.Money
	Trigger    ConfirmTrigger
	At         time.Time
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.BookingID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID  availability.IntervalID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	From       availability.Status
	Rejected   bool
	Reason     string
	At         time.Time
}

func (e Cancelled) EventName() string {
	if e.Rejected {
		return "booking.rejected"
	}
	return "booking.cancelled"
}
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }
