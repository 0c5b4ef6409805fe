package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/middleware"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainbooking "staysync/internal/domain/booking"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
	"staysync/internal/infra/ical"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainavailability.ErrConflict),
		errors.Is(err, uow.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domainproperty.ErrNotFound),
		errors.Is(err, domainavailability.ErrIntervalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainavailability.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domainbooking.ErrPriceMismatch),
		errors.Is(err, middleware.ErrIdempotencyKeyReused),
		errors.Is(err, ical.ErrMalformedFeed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ical.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domainavailability.ErrInvalidState),
		errors.Is(err, domainavailability.ErrInvalidStatus),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrCheckInInPast),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainproperty.ErrInvalidCalendarURL),
		errors.Is(err, availabilityapp.ErrNoExternalCalendar),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrCurrencyMismatch):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// conflictMessage is all a caller learns about a taken range; the interval
// holding it may belong to another guest.
const conflictMessage = "dates no longer available"

// respondError writes the mapped status. Server errors are logged and hidden.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	switch {
	case status == http.StatusConflict:
		body["error"] = conflictMessage
		if logger != nil {
			logger.InfoContext(c.Request.Context(), "request conflicted", "path", c.FullPath(), "error", err)
		}
	case status >= http.StatusInternalServerError:
		body["error"] = http.StatusText(status)
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "status", status, "error", err)
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
