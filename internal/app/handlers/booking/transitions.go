package booking

import (
	"context"
	"log/slog"
	"time"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
)

const (
	acceptBookingKey = "booking.accept"
	rejectBookingKey = "booking.reject"
	cancelBookingKey = "booking.cancel"
)

type AcceptBookingCommand struct {
	BookingID string `validate:"required"`
	HostID    string
}

func (c AcceptBookingCommand) Key() string     { return acceptBookingKey }
func (c AcceptBookingCommand) ActorID() string { return c.HostID }

type RejectBookingCommand struct {
	BookingID string `validate:"required"`
	HostID    string
	Reason    string `validate:"max=500"`
}

func (c RejectBookingCommand) Key() string     { return rejectBookingKey }
func (c RejectBookingCommand) ActorID() string { return c.HostID }

// CancelBookingCommand may come from the guest who booked or the property's host.
type CancelBookingCommand struct {
	BookingID string `validate:"required"`
	UserID    string
	Reason    string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string     { return cancelBookingKey }
func (c CancelBookingCommand) ActorID() string { return c.UserID }

// TransitionHandler runs the host and guest status changes of a booking.
type TransitionHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *TransitionHandler) Accept(ctx context.Context, cmd AcceptBookingCommand) (dto.Booking, error) {
	return h.apply(ctx, cmd.BookingID, hostOnly(cmd.HostID), func(cal *domainavailability.Calendar, now time.Time) (domainavailability.Interval, error) {
		return domainbooking.Accept(cal, domainavailability.IntervalID(cmd.BookingID), now)
	})
}

func (h *TransitionHandler) Reject(ctx context.Context, cmd RejectBookingCommand) (dto.Booking, error) {
	return h.apply(ctx, cmd.BookingID, hostOnly(cmd.HostID), func(cal *domainavailability.Calendar, now time.Time) (domainavailability.Interval, error) {
		return domainbooking.Reject(cal, domainavailability.IntervalID(cmd.BookingID), cmd.Reason, now)
	})
}

func (h *TransitionHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (dto.Booking, error) {
	allow := func(prop *domainproperty.Property, iv domainavailability.Interval) bool {
		return iv.GuestID == cmd.UserID || prop.OwnedBy(domainproperty.HostID(cmd.UserID))
	}
	return h.apply(ctx, cmd.BookingID, allow, func(cal *domainavailability.Calendar, now time.Time) (domainavailability.Interval, error) {
		return domainbooking.Cancel(cal, domainavailability.IntervalID(cmd.BookingID), cmd.Reason, now)
	})
}

type accessRule func(prop *domainproperty.Property, iv domainavailability.Interval) bool

func hostOnly(hostID string) accessRule {
	return func(prop *domainproperty.Property, _ domainavailability.Interval) bool {
		return prop.OwnedBy(domainproperty.HostID(hostID))
	}
}

func (h *TransitionHandler) apply(
	ctx context.Context,
	bookingID string,
	allowed accessRule,
	transition func(cal *domainavailability.Calendar, now time.Time) (domainavailability.Interval, error),
) (dto.Booking, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	cal, prop, current, err := loadBooking(ctx, unit, bookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if !allowed(prop, current) {
		return dto.Booking{}, domainavailability.ErrForbidden
	}
	updated, err := transition(cal, support.Clock(h.Now))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Info("booking transition refused", "property_id", string(cal.PropertyID), "interval_id", bookingID, "status", string(current.Status), "error", err)
		}
		return dto.Booking{}, err
	}
	if err := unit.Calendars().Save(ctx, cal); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, cal.PullEvents()); err != nil {
		return dto.Booking{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("booking status changed", "property_id", string(cal.PropertyID), "interval_id", bookingID, "from", string(current.Status), "status", string(updated.Status))
	}
	return dto.MapBooking(updated), nil
}

func loadBooking(ctx context.Context, unit uow.UnitOfWork, bookingID string) (*domainavailability.Calendar, *domainproperty.Property, domainavailability.Interval, error) {
	id := domainavailability.IntervalID(bookingID)
	cal, err := unit.Calendars().CalendarByInterval(ctx, id)
	if err != nil {
		return nil, nil, domainavailability.Interval{}, err
	}
	iv, ok := cal.Interval(id)
	if !ok {
		return nil, nil, domainavailability.Interval{}, domainavailability.ErrIntervalNotFound
	}
	prop, err := unit.Properties().ByID(ctx, cal.PropertyID)
	if err != nil {
		return nil, nil, domainavailability.Interval{}, err
	}
	return cal, prop, iv, nil
}
