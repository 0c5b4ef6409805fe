package booking

import (
	"context"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	BookingID  string
	PropertyID string    `validate:"required"`
	GuestID    string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int       `validate:"min=1"`
	// Total is the price the guest saw; zero skips the comparison.
	Total           money.Money
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string          { return requestBookingKey }
func (c RequestBookingCommand) ActorID() string      { return c.GuestID }
func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// IdempotencyKey is scoped to the guest so two guests cannot share a key.
func (c RequestBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

type RequestBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (dto.Booking, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	now := support.Clock(h.Now)
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return dto.Booking{}, err
	}

	propertyID := domainproperty.PropertyID(cmd.PropertyID)
	prop, err := unit.Properties().ByID(ctx, propertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	if err := domainbooking.ValidateGuests(prop, cmd.Guests); err != nil {
		return dto.Booking{}, err
	}
	quote, err := unit.Pricing().Quote(ctx, domainpricing.QuoteInput{Property: prop, Range: dr, Guests: cmd.Guests})
	if err != nil {
		return dto.Booking{}, err
	}
	if err := domainbooking.MatchQuote(cmd.Total, quote.Total); err != nil {
		return dto.Booking{}, err
	}

	cal, err := unit.Calendars().Calendar(ctx, propertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	bookingID := cmd.BookingID
	if bookingID == "" {
		bookingID = support.NewID(h.NewID)
	}
	iv, err := domainbooking.Request(cal, domainbooking.Draft{
		ID:      domainavailability.IntervalID(bookingID),
		GuestID: cmd.GuestID,
		Range:   dr,
		Guests:  cmd.Guests,
		Total:   quote.Total,
	}, now)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Info("booking request rejected", "property_id", cmd.PropertyID, "range", dr.String(), "error", err)
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
		h.Logger.Info("booking requested", "property_id", cmd.PropertyID, "interval_id", bookingID, "status", string(iv.Status))
	}
	return dto.MapBooking(iv), nil
}

var (
	_ commands.Handler[RequestBookingCommand, dto.Booking] = (*RequestBookingHandler)(nil)
	_ middleware.IdempotentCommand                         = RequestBookingCommand{}
)
