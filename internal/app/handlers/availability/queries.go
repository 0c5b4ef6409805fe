package availability

import (
	"context"
	"time"

	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

const (
	getCalendarKey       = "availability.calendar"
	checkAvailabilityKey = "availability.check"
)

// GetCalendarQuery lists active intervals. Zero From/To leave that side
// open; with both zero only intervals ending today or later are listed.
type GetCalendarQuery struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	defer cleanup()

	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		return dto.Calendar{}, daterange.ErrInvalidRange
	}
	id := domainproperty.PropertyID(q.PropertyID)
	if _, err := unit.Properties().ByID(ctx, id); err != nil {
		return dto.Calendar{}, err
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if err != nil {
		return dto.Calendar{}, err
	}
	window := domainavailability.Window{From: q.From, To: q.To}
	return dto.Calendar{
		PropertyID: q.PropertyID,
		Intervals:  dto.MapIntervals(cal.Blocked(window, support.Clock(h.Now))),
	}, nil
}

// CheckAvailabilityQuery answers whether [From, To) is free of intervals
// whose status is in Statuses. Empty Statuses means every active status.
type CheckAvailabilityQuery struct {
	PropertyID string `validate:"required"`
	From       time.Time
	To         time.Time
	Statuses   []string
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := daterange.New(q.From, q.To)
	if err != nil {
		return dto.Availability{}, err
	}
	filter, err := domainavailability.ParseStatusFilter(q.Statuses)
	if err != nil {
		return dto.Availability{}, err
	}
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Availability{}, err
	}
	defer cleanup()

	id := domainproperty.PropertyID(q.PropertyID)
	if _, err := unit.Properties().ByID(ctx, id); err != nil {
		return dto.Availability{}, err
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if err != nil {
		return dto.Availability{}, err
	}
	out := dto.Availability{PropertyID: q.PropertyID, From: dr.Start, To: dr.End, Available: true}
	if existing, conflict := cal.FindConflict(dr, filter, ""); conflict {
		out.Available = false
		out.ConflictID = string(existing.ID)
	}
	return out, nil
}

var (
	_ queries.Handler[GetCalendarQuery, dto.Calendar]           = (*GetCalendarHandler)(nil)
	_ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
)
