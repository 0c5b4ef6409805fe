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

const capturePaymentKey = "booking.capture_payment"

// CapturePaymentCommand books a stay that was paid before any request
// existed. It lands as CONFIRMED and only confirmed stays can stop it.
type CapturePaymentCommand struct {
	PaymentID  string    `validate:"required"`
	PropertyID string    `validate:"required"`
	GuestID    string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int       `validate:"min=1"`
	// Amount is what the provider charged; when set it must equal the quote.
	Amount money.Money
}

func (c CapturePaymentCommand) Key() string { return capturePaymentKey }

// IdempotencyKey makes redelivered payment events replay the first result.
func (c CapturePaymentCommand) IdempotencyKey() string { return "payment:" + c.PaymentID }
func (c CapturePaymentCommand) ResultPrototype() any   { return &dto.Booking{} }

type CapturePaymentHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *CapturePaymentHandler) Handle(ctx context.Context, cmd CapturePaymentCommand) (dto.Booking, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Booking{}, err
	}
	dr, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
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
	if err := domainbooking.MatchQuote(cmd.Amount, quote.Total); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("captured amount differs from quote", "property_id", cmd.PropertyID, "payment_id", cmd.PaymentID, "amount", cmd.Amount.String(), "quote", quote.Total.String())
		}
		return dto.Booking{}, err
	}

	cal, err := unit.Calendars().Calendar(ctx, propertyID)
	if err != nil {
		return dto.Booking{}, err
	}
	bookingID := support.NewID(h.NewID)
	iv, err := domainbooking.Capture(cal, domainbooking.Draft{
		ID:         domainavailability.IntervalID(bookingID),
		GuestID:    cmd.GuestID,
		Range:      dr,
		Guests:     cmd.Guests,
		Total:      quote.Total,
		PaymentRef: cmd.PaymentID,
	}, support.Clock(h.Now))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("paid booking conflicts with a confirmed stay", "property_id", cmd.PropertyID, "payment_id", cmd.PaymentID, "error", err)
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
		h.Logger.Info("booking confirmed by payment", "property_id", cmd.PropertyID, "interval_id", bookingID, "payment_id", cmd.PaymentID)
	}
	return dto.MapBooking(iv), nil
}

var (
	_ commands.Handler[CapturePaymentCommand, dto.Booking] = (*CapturePaymentHandler)(nil)
	_ middleware.IdempotentCommand                         = CapturePaymentCommand{}
)
