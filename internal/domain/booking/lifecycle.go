package booking

import (
	"errors"
	"strings"
	"time"

	"staysync/internal/domain/availability"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

var (
	ErrGuestRequired      = errors.New("booking: guest id required")
	ErrPaymentRefRequired = errors.New("booking: payment reference required")
)

// transitions is the whole booking state machine. CANCELLED is terminal.
var transitions = map[availability.Status][]availability.Status{
	availability.StatusPending:   {availability.StatusConfirmed, availability.StatusCancelled},
	availability.StatusConfirmed: {availability.StatusCancelled},
}

func CanTransition(from, to availability.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Draft describes a booking that is not on the calendar yet.
type Draft struct {
	ID         availability.IntervalID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	Total      money.Money
	PaymentRef string
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.GuestID) == "" {
		return ErrGuestRequired
	}
	if d.Guests < 1 {
		return ErrInvalidGuests
	}
	return d.Range.Validate()
}

func (d Draft) interval(status availability.Status) availability.Interval {
	return availability.Interval{
		ID:         d.ID,
		Range:      d.Range,
		Status:     status,
		Source:     availability.SourceGuestBooking,
		GuestID:    d.GuestID,
		Guests:     d.Guests,
		TotalPrice: d.Total,
		PaymentRef: d.PaymentRef,
	}
}

// Request places a PENDING booking; it conflicts with anything confirmed,
// pending or blocked.
func Request(cal *availability.Calendar, d Draft, now time.Time) (availability.Interval, error) {
	if err := d.validate(); err != nil {
		return availability.Interval{}, err
	}
	iv, err := cal.Reserve(d.interval(availability.StatusPending), availability.FilterRequest, now)
	if err != nil {
		return availability.Interval{}, err
	}
	cal.Record(Requested{BookingID: iv.ID, PropertyID: iv.PropertyID, GuestID: iv.GuestID, Range: iv.Range, Guests: iv.Guests, Total: iv.TotalPrice, At: iv.CreatedAt})
	return iv, nil
}

// Capture records a paid stay directly as CONFIRMED. Only confirmed
// stays are checked: money has already moved, so pending requests and
// blocks on the same nights do not stop it. Those pending requests can
// no longer be accepted afterwards.
func Capture(cal *availability.Calendar, d Draft, now time.Time) (availability.Interval, error) {
	if err := d.validate(); err != nil {
		return availability.Interval{}, err
	}
	if strings.TrimSpace(d.PaymentRef) == "" {
		return availability.Interval{}, ErrPaymentRefRequired
	}
	iv, err := cal.Reserve(d.interval(availability.StatusConfirmed), availability.FilterPaymentCapture, now)
	if err != nil {
		return availability.Interval{}, err
	}
	cal.Record(Confirmed{BookingID: iv.ID, PropertyID: iv.PropertyID, Range: iv.Range, Total: iv.TotalPrice, Trigger: TriggerPayment, At: iv.CreatedAt})
	return iv, nil
}

// Accept confirms a pending booking after re-checking confirmed stays and blocks.
func Accept(cal *availability.Calendar, id availability.IntervalID, now time.Time) (availability.Interval, error) {
	iv, err := bookingInterval(cal, id)
	if err != nil {
		return availability.Interval{}, err
	}
	if !CanTransition(iv.Status, availability.StatusConfirmed) {
		return availability.Interval{}, availability.ErrInvalidState
	}
	if existing, conflict := cal.FindConflict(iv.Range, availability.FilterAccept, iv.ID); conflict {
		return availability.Interval{}, &availability.ConflictError{Candidate: iv.Range, Existing: existing}
	}
	updated, err := cal.UpdateStatus(id, availability.StatusConfirmed, nil, now)
	if err != nil {
		return availability.Interval{}, err
	}
	cal.Record(Confirmed{BookingID: updated.ID, PropertyID: updated.PropertyID, Range: updated.Range, Total: updated.TotalPrice, Trigger: TriggerHostAccept, At: updated.UpdatedAt})
	return updated, nil
}

// Reject declines a pending request.
func Reject(cal *availability.Calendar, id availability.IntervalID, reason string, now time.Time) (availability.Interval, error) {
	iv, err := bookingInterval(cal, id)
	if err != nil {
		return availability.Interval{}, err
	}
	if iv.Status != availability.StatusPending {
		return availability.Interval{}, availability.ErrInvalidState
	}
	return cancel(cal, iv, reason, true, now)
}

// Cancel withdraws a pending request or cancels a confirmed stay.
func Cancel(cal *availability.Calendar, id availability.IntervalID, reason string, now time.Time) (availability.Interval, error) {
	iv, err := bookingInterval(cal, id)
	if err != nil {
		return availability.Interval{}, err
	}
	return cancel(cal, iv, reason, false, now)
}

func cancel(cal *availability.Calendar, iv availability.Interval, reason string, rejected bool, now time.Time) (availability.Interval, error) {
	if !CanTransition(iv.Status, availability.StatusCancelled) {
		return availability.Interval{}, availability.ErrInvalidState
	}
	previous := iv.Status
	updated, err := cal.UpdateStatus(iv.ID, availability.StatusCancelled, func(target *availability.Interval) {
		target.CancelReason = strings.TrimSpace(reason)
	}, now)
	if err != nil {
		return availability.Interval{}, err
	}
	cal.Record(Cancelled{BookingID: updated.ID, PropertyID: updated.PropertyID, Range: updated.Range, From: previous, Rejected: rejected, Reason: updated.CancelReason, At: updated.UpdatedAt})
	return updated, nil
}

func bookingInterval(cal *availability.Calendar, id availability.IntervalID) (availability.Interval, error) {
	iv, ok := cal.Interval(id)
	if !ok {
		return availability.Interval{}, availability.ErrIntervalNotFound
	}
	if !iv.IsBooking() {
		return availability.Interval{}, availability.ErrInvalidState
	}
	return iv, nil
}
