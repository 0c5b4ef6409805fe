package memory

import (
	"context"
	"sync"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
)

// CalendarRepository keeps calendars in memory. Reads hand out detached
// copies and Save is a version compare-and-swap, so two units that loaded
// the same version cannot both write.
type CalendarRepository struct {
	mu         sync.RWMutex
	calendars  map[domainproperty.PropertyID]*domainavailability.Calendar
	byInterval map[domainavailability.IntervalID]domainproperty.PropertyID
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{
		calendars:  make(map[domainproperty.PropertyID]*domainavailability.Calendar),
		byInterval: make(map[domainavailability.IntervalID]domainproperty.PropertyID),
	}
}

// Calendar returns a copy of the stored calendar or a fresh empty one.
func (r *CalendarRepository) Calendar(ctx context.Context, id domainproperty.PropertyID) (*domainavailability.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cal, ok := r.calendars[id]; ok {
		return cal.Clone(), nil
	}
	return domainavailability.NewCalendar(id), nil
}

func (r *CalendarRepository) CalendarByInterval(ctx context.Context, id domainavailability.IntervalID) (*domainavailability.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	propertyID, ok := r.byInterval[id]
	if !ok {
		return nil, domainavailability.ErrIntervalNotFound
	}
	return r.calendars[propertyID].Clone(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if stored, ok := r.calendars[cal.PropertyID]; ok {
		current = stored.Version
		for _, iv := range stored.Intervals {
			delete(r.byInterval, iv.ID)
		}
	}
	if cal.Version != current {
		r.reindex(cal.PropertyID)
		return uow.ErrConcurrentUpdate
	}
	stored := cal.Clone()
	stored.Version = current + 1
	r.calendars[cal.PropertyID] = stored
	r.reindex(cal.PropertyID)
	cal.Version = stored.Version
	return nil
}

func (r *CalendarRepository) reindex(id domainproperty.PropertyID) {
	stored, ok := r.calendars[id]
	if !ok {
		return
	}
	for _, iv := range stored.Intervals {
		r.byInterval[iv.ID] = id
	}
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
