package booking

import (
	"context"
	"time"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

const (
	getBookingKey = "booking.get"
	quoteKey      = "booking.quote"
)

// GetBookingQuery is answered for the booking's guest and the property's host only.
type GetBookingQuery struct {
	BookingID string `validate:"required"`
	UserID    string
}

func (q GetBookingQuery) Key() string     { return getBookingKey }
func (q GetBookingQuery) ActorID() string { return q.UserID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Booking{}, err
	}
	defer cleanup()
	_, prop, iv, err := loadBooking(ctx, unit, q.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	if !iv.IsBooking() {
		return dto.Booking{}, domainavailability.ErrIntervalNotFound
	}
	if iv.GuestID != q.UserID && !prop.OwnedBy(domainproperty.HostID(q.UserID)) {
		return dto.Booking{}, domainavailability.ErrForbidden
	}
	return dto.MapBooking(iv), nil
}

type QuoteQuery struct {
	PropertyID string    `validate:"required"`
	CheckIn    time.Time `validate:"required"`
	CheckOut   time.Time `validate:"required"`
	Guests     int       `validate:"min=1"`
}

func (q QuoteQuery) Key() string { return quoteKey }

type QuoteHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.Quote, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Quote{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Quote{}, err
	}
	defer cleanup()
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		return dto.Quote{}, err
	}
	if err := domainbooking.ValidateGuests(prop, q.Guests); err != nil {
		return dto.Quote{}, err
	}
	breakdown, err := unit.Pricing().Quote(ctx, domainpricing.QuoteInput{Property: prop, Range: dr, Guests: q.Guests})
	if err != nil {
		return dto.Quote{}, err
	}
	return dto.MapQuote(q.PropertyID, dr.Start, dr.End, q.Guests, breakdown), nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
	_ queries.Handler[QuoteQuery, dto.Quote]        = (*QuoteHandler)(nil)
)
