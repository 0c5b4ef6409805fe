package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Quote(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
}

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Check(c *gin.Context)
	Export(c *gin.Context)
}

type HostCalendarHTTP interface {
	Block(c *gin.Context)
	RemoveBlock(c *gin.Context)
	Sync(c *gin.Context)
}

type WebhookHTTP interface {
	Payments(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Availability AvailabilityHTTP
	HostCalendar HostCalendarHTTP
	Webhook      WebhookHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine; split out so tests can drive it with httptest.
func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "If-None-Match", headerUserID, headerUserRoles},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"ETag",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(PrincipalMiddleware())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/properties/:id/availability", h.Availability.Calendar)
		api.GET("/properties/:id/availability/check", h.Availability.Check)
		api.GET("/properties/:id/calendar.ics", h.Availability.Export)
	}
	if h.Booking != nil {
		api.GET("/properties/:id/quote", h.Booking.Quote)
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/accept", h.Booking.Accept)
		api.POST("/bookings/:id/reject", h.Booking.Reject)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.HostCalendar != nil {
		hostGroup := api.Group("/host")
		hostGroup.POST("/properties/:id/blocks", h.HostCalendar.Block)
		hostGroup.DELETE("/blocks/:id", h.HostCalendar.RemoveBlock)
		hostGroup.POST("/properties/:id/calendar/sync", h.HostCalendar.Sync)
	}
	if h.Webhook != nil {
		api.POST("/webhooks/payments", h.Webhook.Payments)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
