package gormdb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staysync/internal/app/middleware"
	appoutbox "staysync/internal/app/outbox"
	infraoutbox "staysync/internal/infra/outbox"
)

// IdempotencyStore keeps command results in the idempotency_records table.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl, now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var m idempotencyModel
	if err := s.db.WithContext(ctx).First(&m, "record_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	occurred := millis(m.OccurredAt)
	if s.ttl > 0 && s.now().Sub(occurred) > s.ttl {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return middleware.IdempotencyRecord{Key: m.Key, Fingerprint: m.Fingerprint, Payload: m.Payload, OccurredAt: occurred}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	m := idempotencyModel{Key: rec.Key, Fingerprint: rec.Fingerprint, Payload: rec.Payload, OccurredAt: rec.OccurredAt.UnixMilli()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "record_key"}}, UpdateAll: true}).
		Create(&m).Error
}

// Purge drops records older than the TTL.
func (s *IdempotencyStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixMilli()
	res := s.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&idempotencyModel{})
	return res.RowsAffected, res.Error
}

// Outbox writes events through the unit's transaction and serves them to
// the relay worker.
type Outbox struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db, now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := o.now().UTC().UnixMilli()
	m := outboxModel{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt.UnixMilli(),
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	return conn(ctx, o.db).Create(&m).Error
}

func (o *Outbox) Flush(context.Context) error {
	return nil
}

// Claim picks the oldest due event. The state guard on the update keeps
// two workers from claiming the same row.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	db := o.db.WithContext(ctx)
	for range 3 {
		now := o.now().UTC().UnixMilli()
		var m outboxModel
		err := db.Where("state IN ? AND next_attempt <= ?", []string{infraoutbox.StateNew, infraoutbox.StateFailed}, now).
			Order("next_attempt").Order("created_at").
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		res := db.Model(&outboxModel{}).
			Where("id = ? AND state = ?", m.ID, m.State).
			Updates(map[string]any{"state": infraoutbox.StateClaimed, "claimed_by": workerID})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &infraoutbox.Message{
				ID:         m.ID,
				Name:       m.Name,
				Payload:    m.Payload,
				OccurredAt: millis(m.OccurredAt),
				Aggregate:  m.Aggregate,
				Headers:    m.Headers,
				Attempts:   m.Attempts,
			}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	return o.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).
		Update("state", infraoutbox.StateSent).Error
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.db.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"state":        infraoutbox.StateFailed,
			"next_attempt": next.UTC().UnixMilli(),
			"last_error":   errMsg,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

// Inbox deduplicates consumed events by (event id, consumer).
type Inbox struct {
	db       *gorm.DB
	consumer string
}

func NewInbox(db *gorm.DB, consumer string) *Inbox {
	return &Inbox{db: db, consumer: consumer}
}

func (i *Inbox) Seen(ctx context.Context, id string) (bool, error) {
	m := inboxModel{EventID: id, Consumer: i.consumer, ReceivedAt: time.Now().UTC().UnixMilli()}
	err := i.db.WithContext(ctx).Create(&m).Error
	if err == nil {
		return false, nil
	}
	if isDuplicate(err) {
		return true, nil
	}
	return false, err
}

func (i *Inbox) Forget(ctx context.Context, id string) error {
	return i.db.WithContext(ctx).
		Where("event_id = ? AND consumer = ?", id, i.consumer).
		Delete(&inboxModel{}).Error
}

var (
	_ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
	_ appoutbox.Outbox            = (*Outbox)(nil)
	_ infraoutbox.Queue           = (*Outbox)(nil)
)
