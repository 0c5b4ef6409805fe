package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/queries"
	"staysync/internal/domain/shared/money"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	PropertyID string    `json:"property_id" binding:"required"`
	CheckIn    string    `json:"check_in" binding:"required"`
	CheckOut   string    `json:"check_out" binding:"required"`
	Guests     int       `json:"guests" binding:"required"`
	TotalPrice *moneyReq `json:"total_price"`
}

type moneyReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Create files a request-to-book. The booking starts PENDING.
func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	checkIn, checkOut, err := parseDates(req.CheckIn, req.CheckOut)
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		PropertyID:      req.PropertyID,
		GuestID:         callerID(c),
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	if req.TotalPrice != nil {
		total, err := money.New(req.TotalPrice.Amount, req.TotalPrice.Currency)
		if err != nil {
			badRequest(c, err)
			return
		}
		cmd.Total = total
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), UserID: callerID(c)}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Quote(c *gin.Context) {
	checkIn, checkOut, err := parseDates(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		badRequest(c, err)
		return
	}
	guests := 1
	if raw := c.Query("guests"); raw != "" {
		if guests, err = strconv.Atoi(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	query := bookingapp.QuoteQuery{PropertyID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut, Guests: guests}
	result, err := queries.Ask[bookingapp.QuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Accept(c *gin.Context) {
	cmd := bookingapp.AcceptBookingCommand{BookingID: c.Param("id"), HostID: callerID(c)}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.AcceptBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Reject(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	cmd := bookingapp.RejectBookingCommand{BookingID: c.Param("id"), HostID: callerID(c), Reason: reason}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.RejectBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	reason, ok := bindReason(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), UserID: callerID(c), Reason: reason}
	h.transition(c, func() (dto.Booking, error) {
		return commands.Dispatch[bookingapp.CancelBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) transition(c *gin.Context, run func() (dto.Booking, error)) {
	result, err := run()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindReason accepts an empty body.
func bindReason(c *gin.Context) (string, bool) {
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return "", false
		}
	}
	return strings.TrimSpace(req.Reason), true
}

var _ BookingHTTP = BookingHandler{}
