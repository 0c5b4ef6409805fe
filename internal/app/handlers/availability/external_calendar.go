package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/queries"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

const (
	linkCalendarKey    = "availability.link_external"
	importExternalKey  = "availability.import_external"
	listSyncTargetsKey = "availability.sync_targets"
)

var ErrNoExternalCalendar = errors.New("availability: no external calendar url configured")

// LinkExternalCalendarCommand resolves the feed url for a host-triggered
// sync. A non-empty URL replaces the stored one; an empty URL falls back to it.
type LinkExternalCalendarCommand struct {
	PropertyID string `validate:"required"`
	HostID     string
	URL        string `validate:"omitempty,url"`
}

func (c LinkExternalCalendarCommand) Key() string     { return linkCalendarKey }
func (c LinkExternalCalendarCommand) ActorID() string { return c.HostID }

type LinkExternalCalendarHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *LinkExternalCalendarHandler) Handle(ctx context.Context, cmd LinkExternalCalendarCommand) (dto.SyncTarget, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.SyncTarget{}, err
	}
	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		return dto.SyncTarget{}, err
	}
	if !prop.OwnedBy(domainproperty.HostID(cmd.HostID)) {
		return dto.SyncTarget{}, domainavailability.ErrForbidden
	}
	if cmd.URL != "" {
		changed, err := prop.SetExternalCalendarURL(cmd.URL, support.Clock(h.Now))
		if err != nil {
			return dto.SyncTarget{}, err
		}
		if changed {
			if err := unit.Properties().Save(ctx, prop); err != nil {
				return dto.SyncTarget{}, err
			}
			if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, prop.PullEvents()); err != nil {
				return dto.SyncTarget{}, err
			}
		}
	}
	if prop.ExternalCalendarURL == "" {
		return dto.SyncTarget{}, ErrNoExternalCalendar
	}
	return dto.SyncTarget{PropertyID: string(prop.ID), URL: prop.ExternalCalendarURL}, nil
}

// ImportExternalBlocksCommand applies an already fetched feed. Ranges come
// from the caller so no network call happens inside the unit of work.
type ImportExternalBlocksCommand struct {
	PropertyID string `validate:"required"`
	Ranges     []daterange.DateRange
	// Skipped is the parser's count of dropped events, reported back as-is.
	Skipped int
}

func (c ImportExternalBlocksCommand) Key() string { return importExternalKey }

type ImportExternalBlocksHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *ImportExternalBlocksHandler) Handle(ctx context.Context, cmd ImportExternalBlocksCommand) (dto.ImportResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ImportResult{}, err
	}
	id := domainproperty.PropertyID(cmd.PropertyID)
	if _, err := unit.Properties().ByID(ctx, id); err != nil {
		return dto.ImportResult{}, err
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if err != nil {
		return dto.ImportResult{}, err
	}
	inserted := cal.ImportExternal(cmd.Ranges, func() domainavailability.IntervalID {
		return domainavailability.IntervalID(support.NewID(h.NewID))
	}, support.Clock(h.Now))
	result := dto.ImportResult{
		PropertyID: cmd.PropertyID,
		Blocked:    len(inserted),
		Skipped:    cmd.Skipped,
		Intervals:  dto.MapIntervals(inserted),
	}
	if len(inserted) == 0 {
		return result, nil
	}
	if err := unit.Calendars().Save(ctx, cal); err != nil {
		return dto.ImportResult{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, cal.PullEvents()); err != nil {
		return dto.ImportResult{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("external blocks imported", "property_id", cmd.PropertyID, "blocked", len(inserted), "offered", len(cmd.Ranges))
	}
	return result, nil
}

// ListSyncTargetsQuery lists every property with a feed url, or every
// property at all when All is set.
type ListSyncTargetsQuery struct {
	All bool
}

func (q ListSyncTargetsQuery) Key() string { return listSyncTargetsKey }

type ListSyncTargetsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListSyncTargetsHandler) Handle(ctx context.Context, q ListSyncTargetsQuery) ([]dto.SyncTarget, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	var props []*domainproperty.Property
	if q.All {
		props, err = unit.Properties().List(ctx)
	} else {
		props, err = unit.Properties().WithExternalCalendar(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.SyncTarget, 0, len(props))
	for _, p := range props {
		out = append(out, dto.SyncTarget{PropertyID: string(p.ID), URL: p.ExternalCalendarURL})
	}
	return out, nil
}

var (
	_ commands.Handler[LinkExternalCalendarCommand, dto.SyncTarget]   = (*LinkExternalCalendarHandler)(nil)
	_ commands.Handler[ImportExternalBlocksCommand, dto.ImportResult] = (*ImportExternalBlocksHandler)(nil)
	_ queries.Handler[ListSyncTargetsQuery, []dto.SyncTarget]         = (*ListSyncTargetsHandler)(nil)
)
