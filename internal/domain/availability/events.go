package availability

import (
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
)

type IntervalAdded struct {
	PropertyID property.PropertyID
	IntervalID IntervalID
	Range      daterange.DateRange
	Status     Status
	Source     Source
	At         time.Time
}

func (e IntervalAdded) EventName() string     { return "calendar.interval_added" }
func (e IntervalAdded) AggregateID() string   { return string(e.PropertyID) }
func (e IntervalAdded) OccurredAt() time.Time { return e.At }

type IntervalStatusChanged struct {
	PropertyID property.PropertyID
	IntervalID IntervalID
	From       Status
	To         Status
	At         time.Time
}

func (e IntervalStatusChanged) EventName() string     { return "calendar.interval_status_changed" }
func (e IntervalStatusChanged) AggregateID() string   { return string(e.PropertyID) }
func (e IntervalStatusChanged) OccurredAt() time.Time { return e.At }

type BlockRemoved struct {
	PropertyID property.PropertyID
	IntervalID IntervalID
	Range      daterange.DateRange
	Source     Source
	At         time.Time
}

func (e BlockRemoved) EventName() string     { return "calendar.block_removed" }
func (e BlockRemoved) AggregateID() string   { return string(e.PropertyID) }
func (e BlockRemoved) OccurredAt() time.Time { return e.At }

type ExternalBlocksImported struct {
	PropertyID property.PropertyID
	Count      int
	At         time.Time
}

func (e ExternalBlocksImported) EventName() string     { return "calendar.external_blocks_imported" }
func (e ExternalBlocksImported) AggregateID() string   { return string(e.PropertyID) }
func (e ExternalBlocksImported) OccurredAt() time.Time { return e.At }
