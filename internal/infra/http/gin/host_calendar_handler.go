package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/services/calendarsync"
)

// HostCalendarHandler serves the host's calendar management routes.
type HostCalendarHandler struct {
	Commands commands.Bus
	Syncer   *calendarsync.Service
	Logger   *slog.Logger
}

type blockRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type syncRequest struct {
	URL string `json:"url"`
}

func (h HostCalendarHandler) Block(c *gin.Context) {
	host, ok := requireRole(c, "host")
	if !ok {
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := parseDates(req.Start, req.End)
	if err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.BlockDatesCommand{PropertyID: c.Param("id"), HostID: host.ID, Start: start, End: end}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, dto.Interval](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostCalendarHandler) RemoveBlock(c *gin.Context) {
	host, ok := requireRole(c, "host")
	if !ok {
		return
	}
	cmd := availabilityapp.RemoveBlockCommand{BlockID: c.Param("id"), HostID: host.ID}
	if _, err := commands.Dispatch[availabilityapp.RemoveBlockCommand, dto.Interval](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sync fetches the property's external feed now. A url in the body
// replaces the stored one.
func (h HostCalendarHandler) Sync(c *gin.Context) {
	host, ok := requireRole(c, "host")
	if !ok {
		return
	}
	if h.Syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar sync unavailable"})
		return
	}
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	result, err := h.Syncer.SyncProperty(c.Request.Context(), host.ID, c.Param("id"), req.URL)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostCalendarHTTP = HostCalendarHandler{}
