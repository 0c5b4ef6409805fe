package gormdb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var m propertyModel
	if err := conn(ctx, r.db).First(&m, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, err
	}
	return m.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	m := newPropertyModel(p)
	m.Version = p.Version + 1
	db := conn(ctx, r.db)
	if p.Version == 0 {
		if err := db.Create(&m).Error; err != nil {
			return retryable(err)
		}
		p.Version = m.Version
		return nil
	}
	res := db.Model(&propertyModel{}).
		Where("id = ? AND version = ?", m.ID, p.Version).
		Select("*").
		Updates(&m)
	if res.Error != nil {
		return retryable(res.Error)
	}
	if res.RowsAffected == 0 {
		return uow.ErrConcurrentUpdate
	}
	p.Version = m.Version
	return nil
}

func (r *PropertyRepository) WithExternalCalendar(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.find(conn(ctx, r.db).Where("external_calendar_url <> ''"))
}

func (r *PropertyRepository) List(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.find(conn(ctx, r.db))
}

func (r *PropertyRepository) find(q *gorm.DB) ([]*domainproperty.Property, error) {
	var rows []propertyModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domainproperty.Property, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toAggregate())
	}
	return out, nil
}

// CalendarRepository keeps a version row per property plus one row per
// interval. Save bumps the version row first; a writer holding a stale
// version updates nothing and gets ErrConcurrentUpdate.
type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainproperty.PropertyID) (*domainavailability.Calendar, error) {
	db := conn(ctx, r.db)
	var head calendarModel
	if err := db.First(&head, "property_id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	var rows []intervalModel
	if err := db.Where("property_id = ?", string(id)).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	cal := domainavailability.NewCalendar(id)
	cal.NextSeq = head.NextSeq
	cal.Version = head.Version
	cal.Intervals = make([]domainavailability.Interval, 0, len(rows))
	for _, m := range rows {
		cal.Intervals = append(cal.Intervals, m.toInterval())
	}
	return cal, nil
}

func (r *CalendarRepository) CalendarByInterval(ctx context.Context, id domainavailability.IntervalID) (*domainavailability.Calendar, error) {
	var m intervalModel
	if err := conn(ctx, r.db).Select("property_id").First(&m, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainavailability.ErrIntervalNotFound
		}
		return nil, err
	}
	return r.Calendar(ctx, domainproperty.PropertyID(m.PropertyID))
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	db := conn(ctx, r.db)
	next := cal.Version + 1
	if cal.Version == 0 {
		head := calendarModel{PropertyID: string(cal.PropertyID), NextSeq: cal.NextSeq, Version: next}
		if err := db.Create(&head).Error; err != nil {
			return retryable(err)
		}
	} else {
		res := db.Model(&calendarModel{}).
			Where("property_id = ? AND version = ?", string(cal.PropertyID), cal.Version).
			Updates(map[string]any{"version": next, "next_seq": cal.NextSeq})
		if res.Error != nil {
			return retryable(res.Error)
		}
		if res.RowsAffected == 0 {
			return uow.ErrConcurrentUpdate
		}
	}
	if err := db.Where("property_id = ?", string(cal.PropertyID)).Delete(&intervalModel{}).Error; err != nil {
		return err
	}
	if len(cal.Intervals) > 0 {
		rows := make([]intervalModel, 0, len(cal.Intervals))
		for _, iv := range cal.Intervals {
			rows = append(rows, newIntervalModel(iv))
		}
		if err := db.Create(&rows).Error; err != nil {
			return retryable(err)
		}
	}
	cal.Version = next
	return nil
}

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var (
	_ domainproperty.Repository     = (*PropertyRepository)(nil)
	_ domainavailability.Repository = (*CalendarRepository)(nil)
)
