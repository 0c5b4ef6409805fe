package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/middleware"
	"staysync/internal/app/outbox"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

// Inbox deduplicates consumed events.
type Inbox interface {
	Seen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// PaymentsHandler turns payment-captured events into confirmed bookings.
type PaymentsHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h PaymentsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event bookingapp.PaymentCaptured
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log().Error("payment event undecodable, dropping", "offset", msg.Offset, "error", err)
		return nil
	}
	key := event.DedupKey()
	if key == "" {
		h.log().Error("payment event without id, dropping", "offset", msg.Offset)
		return nil
	}
	seen, err := h.Inbox.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		h.log().Debug("payment event already processed", "event_id", key)
		return nil
	}

	ctx = outbox.WithCorrelationID(ctx, key)
	cmd, err := event.Command()
	if err == nil {
		var booking dto.Booking
		booking, err = commands.Dispatch[bookingapp.CapturePaymentCommand, dto.Booking](ctx, h.Commands, cmd)
		if err == nil {
			h.log().Info("payment captured", "payment_id", event.PaymentID, "interval_id", booking.ID, "property_id", booking.PropertyID)
			return nil
		}
	}
	if permanent(err) {
		h.log().Warn("payment event rejected", "payment_id", event.PaymentID, "property_id", event.PropertyID, "error", err)
		return nil
	}
	if forgetErr := h.Inbox.Forget(ctx, key); forgetErr != nil {
		return errors.Join(err, forgetErr)
	}
	return err
}

// permanent errors will not go away on redelivery.
func permanent(err error) bool {
	return errors.Is(err, domainavailability.ErrConflict) ||
		errors.Is(err, domainproperty.ErrNotFound) ||
		errors.Is(err, daterange.ErrInvalidRange) ||
		errors.Is(err, domainbooking.ErrInvalidGuests) ||
		errors.Is(err, domainbooking.ErrPriceMismatch) ||
		errors.Is(err, middleware.ErrValidation) ||
		errors.Is(err, middleware.ErrIdempotencyKeyReused)
}

func (h PaymentsHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = PaymentsHandler{}
