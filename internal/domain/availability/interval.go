package availability

import (
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

type IntervalID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusBlocked   Status = "BLOCKED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusBlocked:
		return true
	}
	return false
}

type Source string

const (
	SourceGuestBooking   Source = "GUEST_BOOKING"
	SourceHostBlock      Source = "HOST_BLOCK"
	SourceExternalImport Source = "EXTERNAL_IMPORT"
)

// Interval is one occupied range on a property's calendar: a guest booking
// or a block. Booking-only fields are empty for blocks.
type Interval struct {
	ID         IntervalID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Status     Status
	Source     Source

	GuestID      string
	Guests       int
	TotalPrice   money.Money
	PaymentRef   string
	CancelReason string

	// Seq is the insertion order within the property and breaks ties on equal starts.
	Seq       int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps is the only overlap predicate used for conflict checks.
func Overlaps(a, b daterange.DateRange) bool {
	return a.Overlaps(b)
}

func IsActive(iv Interval) bool {
	return iv.Status != StatusCancelled
}

func (iv Interval) IsBooking() bool {
	return iv.Source == SourceGuestBooking
}

func (iv Interval) IsBlock() bool {
	return iv.Status == StatusBlocked && iv.Source != SourceGuestBooking
}

// StatusFilter selects which active statuses take part in a conflict check.
// CANCELLED is never matched even if listed.
type StatusFilter []Status

func (f StatusFilter) Matches(s Status) bool {
	if s == StatusCancelled {
		return false
	}
	for _, candidate := range f {
		if candidate == s {
			return true
		}
	}
	return false
}

var (
	// FilterRequest guards request-to-book and host blocks.
	FilterRequest = StatusFilter{StatusConfirmed, StatusPending, StatusBlocked}
	// FilterPaymentCapture only respects confirmed stays; see booking.Capture.
	FilterPaymentCapture = StatusFilter{StatusConfirmed}
	// FilterAccept re-validates a pending booking before it becomes confirmed.
	FilterAccept = StatusFilter{StatusConfirmed, StatusBlocked}
	// FilterImport decides which intervals shadow an imported event.
	FilterImport = StatusFilter{StatusConfirmed, StatusBlocked}
	// FilterAllActive is every non-cancelled interval.
	FilterAllActive = StatusFilter{StatusConfirmed, StatusPending, StatusBlocked}
)

// ParseStatusFilter maps raw names onto a filter; empty input means all active statuses.
func ParseStatusFilter(raw []string) (StatusFilter, error) {
	if len(raw) == 0 {
		return FilterAllActive, nil
	}
	out := make(StatusFilter, 0, len(raw))
	for _, item := range raw {
		s := Status(item)
		if !s.Valid() {
			return nil, ErrInvalidStatus
		}
		out = append(out, s)
	}
	return out, nil
}
