package availability

import (
	"context"
	"log/slog"
	"time"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	"staysync/internal/app/handlers/support"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

const (
	blockDatesKey  = "availability.block"
	removeBlockKey = "availability.unblock"
)

type BlockDatesCommand struct {
	PropertyID string `validate:"required"`
	HostID     string
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required"`
	// BlockID is optional; a UUID is generated when empty.
	BlockID string
}

func (c BlockDatesCommand) Key() string     { return blockDatesKey }
func (c BlockDatesCommand) ActorID() string { return c.HostID }

type BlockDatesHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (dto.Interval, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Interval{}, err
	}
	dr, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return dto.Interval{}, err
	}
	id := domainproperty.PropertyID(cmd.PropertyID)
	prop, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return dto.Interval{}, err
	}
	if !prop.OwnedBy(domainproperty.HostID(cmd.HostID)) {
		return dto.Interval{}, domainavailability.ErrForbidden
	}
	cal, err := unit.Calendars().Calendar(ctx, id)
	if err != nil {
		return dto.Interval{}, err
	}
	blockID := cmd.BlockID
	if blockID == "" {
		blockID = support.NewID(h.NewID)
	}
	block, err := cal.Block(domainavailability.IntervalID(blockID), dr, support.Clock(h.Now))
	if err != nil {
		return dto.Interval{}, err
	}
	if err := unit.Calendars().Save(ctx, cal); err != nil {
		return dto.Interval{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, cal.PullEvents()); err != nil {
		return dto.Interval{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("dates blocked", "property_id", cmd.PropertyID, "interval_id", blockID, "range", dr.String())
	}
	return dto.MapInterval(block), nil
}

type RemoveBlockCommand struct {
	BlockID string `validate:"required"`
	HostID  string
}

func (c RemoveBlockCommand) Key() string     { return removeBlockKey }
func (c RemoveBlockCommand) ActorID() string { return c.HostID }

type RemoveBlockHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *RemoveBlockHandler) Handle(ctx context.Context, cmd RemoveBlockCommand) (dto.Interval, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Interval{}, err
	}
	id := domainavailability.IntervalID(cmd.BlockID)
	cal, err := unit.Calendars().CalendarByInterval(ctx, id)
	if err != nil {
		return dto.Interval{}, err
	}
	prop, err := unit.Properties().ByID(ctx, cal.PropertyID)
	if err != nil {
		return dto.Interval{}, err
	}
	if !prop.OwnedBy(domainproperty.HostID(cmd.HostID)) {
		return dto.Interval{}, domainavailability.ErrForbidden
	}
	removed, err := cal.RemoveBlock(id, support.Clock(h.Now))
	if err != nil {
		return dto.Interval{}, err
	}
	if err := unit.Calendars().Save(ctx, cal); err != nil {
		return dto.Interval{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, cal.PullEvents()); err != nil {
		return dto.Interval{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("block removed", "property_id", string(cal.PropertyID), "interval_id", cmd.BlockID, "source", string(removed.Source))
	}
	return dto.MapInterval(removed), nil
}

var (
	_ commands.Handler[BlockDatesCommand, dto.Interval]  = (*BlockDatesHandler)(nil)
	_ commands.Handler[RemoveBlockCommand, dto.Interval] = (*RemoveBlockHandler)(nil)
)
