package availability

import (
	"context"
	"slices"
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/events"
)

// Repository persists calendars. Save must fail with uow.ErrConcurrentUpdate
// when the stored version differs from the loaded one.
type Repository interface {
	Calendar(ctx context.Context, id property.PropertyID) (*Calendar, error)
	CalendarByInterval(ctx context.Context, id IntervalID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

// Calendar is the per-property aggregate holding every interval. All
// conflict checks and inserts for one property go through a single loaded
// snapshot, so check-then-insert is atomic once the save succeeds.
type Calendar struct {
	PropertyID property.PropertyID
	Intervals  []Interval
	NextSeq    int64
	Version    int64
	events.EventRecorder
}

func NewCalendar(id property.PropertyID) *Calendar {
	return &Calendar{PropertyID: id, NextSeq: 1}
}

// Window bounds a calendar query; a zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

func (w Window) overlaps(r daterange.DateRange) bool {
	if !w.From.IsZero() && !r.End.After(w.From) {
		return false
	}
	if !w.To.IsZero() && !r.Start.Before(w.To) {
		return false
	}
	return true
}

func (c *Calendar) Interval(id IntervalID) (Interval, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return Interval{}, false
	}
	return c.Intervals[idx], true
}

// FindConflict returns the earliest active interval matching filter that overlaps r.
func (c *Calendar) FindConflict(r daterange.DateRange, filter StatusFilter, exclude IntervalID) (Interval, bool) {
	var (
		found Interval
		ok    bool
	)
	for _, iv := range c.Intervals {
		if iv.ID == exclude || !IsActive(iv) || !filter.Matches(iv.Status) {
			continue
		}
		if !Overlaps(iv.Range, r) {
			continue
		}
		if !ok || before(iv, found) {
			found, ok = iv, true
		}
	}
	return found, ok
}

func (c *Calendar) Available(r daterange.DateRange, filter StatusFilter, exclude IntervalID) bool {
	_, conflict := c.FindConflict(r, filter, exclude)
	return !conflict
}

// Blocked lists active intervals ordered by start then insertion order.
// Without a window only intervals with end >= now are returned.
func (c *Calendar) Blocked(w Window, now time.Time) []Interval {
	out := make([]Interval, 0, len(c.Intervals))
	for _, iv := range c.Intervals {
		if !IsActive(iv) {
			continue
		}
		if w.IsZero() {
			if iv.Range.End.Before(now) {
				continue
			}
		} else if !w.overlaps(iv.Range) {
			continue
		}
		out = append(out, iv)
	}
	sortIntervals(out)
	return out
}

// Exportable lists confirmed bookings and blocks in export order.
func (c *Calendar) Exportable() []Interval {
	out := make([]Interval, 0, len(c.Intervals))
	for _, iv := range c.Intervals {
		if iv.Status == StatusConfirmed || iv.Status == StatusBlocked {
			out = append(out, iv)
		}
	}
	sortIntervals(out)
	return out
}

// Reserve inserts candidate unless an active interval matching filter overlaps it.
// ID, Range, Status and Source come from the candidate; the rest is assigned here.
func (c *Calendar) Reserve(candidate Interval, filter StatusFilter, now time.Time) (Interval, error) {
	if err := candidate.Range.Validate(); err != nil {
		return Interval{}, err
	}
	if candidate.ID == "" || candidate.Status == StatusCancelled || !candidate.Status.Valid() {
		return Interval{}, ErrInvalidState
	}
	if existing, conflict := c.FindConflict(candidate.Range, filter, ""); conflict {
		return Interval{}, &ConflictError{Candidate: candidate.Range, Existing: existing}
	}
	return c.insert(candidate, now), nil
}

// Block places a host block; any active interval prevents it.
func (c *Calendar) Block(id IntervalID, r daterange.DateRange, now time.Time) (Interval, error) {
	return c.Reserve(Interval{
		ID:     id,
		Range:  r,
		Status: StatusBlocked,
		Source: SourceHostBlock,
	}, FilterAllActive, now)
}

// RemoveBlock deletes a block outright. Guest bookings are cancelled, never removed.
func (c *Calendar) RemoveBlock(id IntervalID, now time.Time) (Interval, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return Interval{}, ErrIntervalNotFound
	}
	removed := c.Intervals[idx]
	if !removed.IsBlock() {
		return Interval{}, ErrInvalidState
	}
	c.Intervals = slices.Delete(c.Intervals, idx, idx+1)
	c.Record(BlockRemoved{PropertyID: c.PropertyID, IntervalID: removed.ID, Range: removed.Range, Source: removed.Source, At: now.UTC()})
	return removed, nil
}

// ImportExternal inserts one EXTERNAL_IMPORT block per usable range and
// returns the inserted intervals. Ranges that ended before now, ranges that
// are invalid and ranges shadowed by a confirmed stay or an existing block
// are skipped; existing intervals are never touched, so a repeated import
// of the same feed inserts nothing.
func (c *Calendar) ImportExternal(ranges []daterange.DateRange, newID func() IntervalID, now time.Time) []Interval {
	var inserted []Interval
	for _, r := range ranges {
		if r.Validate() != nil {
			continue
		}
		if r.End.Before(now) {
			continue
		}
		if !c.Available(r, FilterImport, "") {
			continue
		}
		inserted = append(inserted, c.insert(Interval{
			ID:     newID(),
			Range:  r,
			Status: StatusBlocked,
			Source: SourceExternalImport,
		}, now))
	}
	if len(inserted) > 0 {
		c.Record(ExternalBlocksImported{PropertyID: c.PropertyID, Count: len(inserted), At: now.UTC()})
	}
	return inserted
}

// UpdateStatus moves an interval to a new status without any rule checks.
// Transition rules live in the booking package.
func (c *Calendar) UpdateStatus(id IntervalID, to Status, mutate func(*Interval), now time.Time) (Interval, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return Interval{}, ErrIntervalNotFound
	}
	iv := &c.Intervals[idx]
	from := iv.Status
	iv.Status = to
	iv.UpdatedAt = now.UTC()
	if mutate != nil {
		mutate(iv)
	}
	c.Record(IntervalStatusChanged{PropertyID: c.PropertyID, IntervalID: iv.ID, From: from, To: to, At: iv.UpdatedAt})
	return *iv, nil
}

// Clone deep-copies the calendar without pending events.
func (c *Calendar) Clone() *Calendar {
	return &Calendar{
		PropertyID: c.PropertyID,
		Intervals:  slices.Clone(c.Intervals),
		NextSeq:    c.NextSeq,
		Version:    c.Version,
	}
}

func (c *Calendar) insert(iv Interval, now time.Time) Interval {
	if c.NextSeq < 1 {
		c.NextSeq = 1
	}
	iv.PropertyID = c.PropertyID
	iv.Seq = c.NextSeq
	c.NextSeq++
	iv.CreatedAt = now.UTC()
	iv.UpdatedAt = iv.CreatedAt
	c.Intervals = append(c.Intervals, iv)
	c.Record(IntervalAdded{PropertyID: c.PropertyID, IntervalID: iv.ID, Range: iv.Range, Status: iv.Status, Source: iv.Source, At: iv.CreatedAt})
	return iv
}

func (c *Calendar) indexOf(id IntervalID) int {
	return slices.IndexFunc(c.Intervals, func(iv Interval) bool { return iv.ID == id })
}

func before(a, b Interval) bool {
	if !a.Range.Start.Equal(b.Range.Start) {
		return a.Range.Start.Before(b.Range.Start)
	}
	return a.Seq < b.Seq
}

func sortIntervals(list []Interval) {
	slices.SortStableFunc(list, func(a, b Interval) int {
		if c := a.Range.Start.Compare(b.Range.Start); c != 0 {
			return c
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
}
