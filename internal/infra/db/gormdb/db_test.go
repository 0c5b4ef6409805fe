package gormdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"staysync/internal/app/middleware"
	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
	"staysync/internal/infra/obs"
	infraoutbox "staysync/internal/infra/outbox"
)

var testNow = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := Connect(dsn, obs.Discard())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedProperty(t *testing.T, db *gorm.DB, id, url string) {
	t.Helper()
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID:                  domainproperty.PropertyID(id),
		HostID:              "host-1",
		Title:               "Villa " + id,
		PricePerNight:       money.Must(10000, "USD"),
		GuestPrices:         map[int]money.Money{4: money.Must(12000, "USD")},
		MaxGuests:           4,
		ExternalCalendarURL: url,
		Now:                 testNow,
	})
	require.NoError(t, err)
	require.NoError(t, NewPropertyRepository(db).Save(context.Background(), p))
}

func march(t *testing.T, from, to string) daterange.DateRange {
	t.Helper()
	r, err := daterange.Days(from, to)
	require.NoError(t, err)
	return r
}

func TestPropertyRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedProperty(t, db, "villa", "")
	seedProperty(t, db, "cabin", "https://example.com/cabin.ics")
	repo := NewPropertyRepository(db)

	p, err := repo.ByID(ctx, "villa")
	require.NoError(t, err)
	assert.Equal(t, domainproperty.HostID("host-1"), p.HostID)
	assert.Equal(t, int64(12000), p.NightlyRate(4).Amount)
	assert.Equal(t, int64(1), p.Version)

	_, err = repo.ByID(ctx, "missing")
	assert.ErrorIs(t, err, domainproperty.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domainproperty.PropertyID("cabin"), all[0].ID)

	linked, err := repo.WithExternalCalendar(ctx)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, domainproperty.PropertyID("cabin"), linked[0].ID)

	_, err = p.SetExternalCalendarURL("https://example.com/villa.ics", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))
	stale, err := repo.ByID(ctx, "cabin")
	require.NoError(t, err)
	stale.Version = 7
	assert.ErrorIs(t, repo.Save(ctx, stale), uow.ErrConcurrentUpdate)
}

func TestCalendarSaveReloadAndConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCalendarRepository(db)

	cal, err := repo.Calendar(ctx, "villa")
	require.NoError(t, err)
	assert.Zero(t, cal.Version)
	_, err = cal.Block("block-1", march(t, "2025-03-10", "2025-03-15"), testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cal))
	assert.Equal(t, int64(1), cal.Version)

	first, err := repo.Calendar(ctx, "villa")
	require.NoError(t, err)
	second, err := repo.Calendar(ctx, "villa")
	require.NoError(t, err)
	require.Len(t, first.Intervals, 1)
	assert.Equal(t, domainavailability.StatusBlocked, first.Intervals[0].Status)
	assert.Equal(t, march(t, "2025-03-10", "2025-03-15"), first.Intervals[0].Range)

	_, err = first.Block("block-2", march(t, "2025-03-20", "2025-03-22"), testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	_, err = second.Block("block-3", march(t, "2025-03-20", "2025-03-21"), testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, second), uow.ErrConcurrentUpdate)

	byInterval, err := repo.CalendarByInterval(ctx, "block-2")
	require.NoError(t, err)
	assert.Equal(t, domainproperty.PropertyID("villa"), byInterval.PropertyID)
	assert.Len(t, byInterval.Intervals, 2)

	_, err = repo.CalendarByInterval(ctx, "block-3")
	assert.ErrorIs(t, err, domainavailability.ErrIntervalNotFound)
}

func TestUnitRollbackDiscardsWrites(t *testing.T) {
	db := openTestDB(t)
	factory := Factory{DB: db}

	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	txCtx := unit.(*Unit).InjectContext(context.Background())
	cal, err := unit.Calendars().Calendar(txCtx, "villa")
	require.NoError(t, err)
	_, err = cal.Block("block-1", march(t, "2025-03-10", "2025-03-15"), testNow)
	require.NoError(t, err)
	require.NoError(t, unit.Calendars().Save(txCtx, cal))
	require.NoError(t, NewOutbox(db).Add(txCtx, appoutbox.EventRecord{ID: "ev-1", Name: "calendar.interval_added", Payload: []byte(`{}`)}))
	require.NoError(t, unit.Rollback(txCtx))

	after, err := NewCalendarRepository(db).Calendar(context.Background(), "villa")
	require.NoError(t, err)
	assert.Empty(t, after.Intervals)
	msg, err := NewOutbox(db).Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewIdempotencyStore(db, time.Hour)
	clock := testNow
	store.now = func() time.Time { return clock }

	rec := middleware.IdempotencyRecord{Key: "booking.request:k1", Payload: []byte(`{"id":"b1"}`), OccurredAt: testNow}
	require.NoError(t, store.Save(ctx, rec))
	require.NoError(t, store.Save(ctx, rec))

	got, ok, err := store.Get(ctx, rec.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"b1"}`, string(got.Payload))

	clock = testNow.Add(2 * time.Hour)
	_, ok, err = store.Get(ctx, rec.Key)
	require.NoError(t, err)
	assert.False(t, ok)
	purged, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestOutboxClaimLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	box := NewOutbox(db)
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{
		ID: "ev-1", Name: "booking.requested", Payload: []byte(`{"a":1}`),
		OccurredAt: testNow, Aggregate: "b1", Headers: map[string]string{"x": "y"},
	}))

	msg, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "booking.requested", msg.Name)
	assert.Equal(t, map[string]string{"x": "y"}, msg.Headers)

	again, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, box.MarkFailed(ctx, "ev-1", time.Now().Add(-time.Second), "broker down"))
	retry, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempts)

	require.NoError(t, box.MarkSent(ctx, "ev-1"))
	var m outboxModel
	require.NoError(t, db.First(&m, "id = ?", "ev-1").Error)
	assert.Equal(t, infraoutbox.StateSent, m.State)
}

func TestInboxSeenAndForget(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inbox := NewInbox(db, "payments")

	seen, err := inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	other, err := NewInbox(db, "other").Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, other)

	require.NoError(t, inbox.Forget(ctx, "evt-1"))
	seen, err = inbox.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
