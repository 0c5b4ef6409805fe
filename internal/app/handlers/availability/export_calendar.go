package availability

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/policies"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainproperty "staysync/internal/domain/property"
)

const exportCalendarKey = "availability.export"

var ErrRendererMissing = errors.New("availability: calendar renderer not configured")

type ExportCalendarQuery struct {
	PropertyID string `validate:"required"`
}

func (q ExportCalendarQuery) Key() string { return exportCalendarKey }

type ExportCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Renderer   policies.CalendarRenderer
}

func (h *ExportCalendarHandler) Handle(ctx context.Context, q ExportCalendarQuery) (dto.CalendarFeed, error) {
	if h.Renderer == nil {
		return dto.CalendarFeed{}, ErrRendererMissing
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CalendarFeed{}, err
	}
	defer cleanup()

	id := domainproperty.PropertyID(q.PropertyID)
	prop, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return dto.CalendarFeed{}, err
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if err != nil {
		return dto.CalendarFeed{}, err
	}
	body := h.Renderer.RenderCalendar(prop.Title, cal.Exportable())
	return dto.CalendarFeed{
		PropertyID: q.PropertyID,
		Name:       prop.Title,
		ETag:       FeedETag(body),
		Body:       body,
	}, nil
}

// FeedETag is a strong validator over the rendered bytes.
func FeedETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

var _ queries.Handler[ExportCalendarQuery, dto.CalendarFeed] = (*ExportCalendarHandler)(nil)
