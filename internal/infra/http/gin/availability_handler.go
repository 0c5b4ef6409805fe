package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Calendar lists active intervals, optionally limited to [from, to).
func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := optionalDate(c, "from")
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := optionalDate(c, "to")
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{PropertyID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	from, to, err := parseDates(c.Query("from"), c.Query("to"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		PropertyID: c.Param("id"),
		From:       from,
		To:         to,
		Statuses:   statusesFromQuery(c),
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Export serves the property's iCal feed with an ETag validator.
func (h AvailabilityHandler) Export(c *gin.Context) {
	id := c.Param("id")
	feed, err := queries.Ask[availabilityapp.ExportCalendarQuery, dto.CalendarFeed](c.Request.Context(), h.Queries, availabilityapp.ExportCalendarQuery{PropertyID: id})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("ETag", feed.ETag)
	c.Header("Cache-Control", "no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), feed.ETag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+feed.PropertyID+`.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", feed.Body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

var _ AvailabilityHTTP = AvailabilityHandler{}
