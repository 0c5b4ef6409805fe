package ginserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	bookingapp "staysync/internal/app/handlers/booking"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 64 << 10
)

var errBadSignature = errors.New("webhook signature mismatch")

// WebhookHandler accepts payment-captured callbacks from the provider.
type WebhookHandler struct {
	Commands commands.Bus
	// Secret enables HMAC-SHA256 verification of the raw body when set.
	Secret string
	Logger *slog.Logger
}

func (h WebhookHandler) Payments(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	if h.Secret != "" && !validSignature(h.Secret, body, c.GetHeader(signatureHeader)) {
		if h.Logger != nil {
			h.Logger.Warn("payment webhook rejected", "reason", "signature")
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadSignature.Error()})
		return
	}
	var event bookingapp.PaymentCaptured
	if err := json.Unmarshal(body, &event); err != nil {
		badRequest(c, err)
		return
	}
	cmd, err := event.Command()
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := commands.Dispatch[bookingapp.CapturePaymentCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Sign returns the hex HMAC-SHA256 the provider sends in X-Signature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, header string) bool {
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	got, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(got, want)
}

var _ WebhookHTTP = WebhookHandler{}
