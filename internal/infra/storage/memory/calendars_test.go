package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/middleware"
	appoutbox "staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	"staysync/internal/domain/shared/daterange"
)

func TestCalendarRepositoryCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	r, err := daterange.Days("2025-03-01", "2025-03-03")
	require.NoError(t, err)

	a, err := repo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	b, err := repo.Calendar(ctx, "prop-1")
	require.NoError(t, err)

	_, err = a.Block("blk-a", r, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, a))
	assert.Equal(t, int64(1), a.Version)

	_, err = b.Block("blk-b", r, now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, b), uow.ErrConcurrentUpdate)

	stored, err := repo.CalendarByInterval(ctx, "blk-a")
	require.NoError(t, err)
	assert.Len(t, stored.Intervals, 1)

	_, err = repo.CalendarByInterval(ctx, "blk-b")
	assert.ErrorIs(t, err, domainavailability.ErrIntervalNotFound)
}

func TestCalendarRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	r, err := daterange.Days("2025-03-01", "2025-03-03")
	require.NoError(t, err)

	cal, err := repo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	_, err = cal.Block("blk", r, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cal))

	cal.Intervals[0].Status = domainavailability.StatusCancelled

	fresh, err := repo.Calendar(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, domainavailability.StatusBlocked, fresh.Intervals[0].Status)
}

func TestRemovedIntervalsLeaveIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewCalendarRepository()
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	r, err := daterange.Days("2025-03-01", "2025-03-03")
	require.NoError(t, err)

	cal, _ := repo.Calendar(ctx, "prop-1")
	_, err = cal.Block("blk", r, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cal))

	_, err = cal.RemoveBlock("blk", now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, cal))

	_, err = repo.CalendarByInterval(ctx, "blk")
	assert.ErrorIs(t, err, domainavailability.ErrIntervalNotFound)
}

func TestIdempotencyStoreExpires(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, idempotencyRecord("k", base)))
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOutboxQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	require.NoError(t, box.Add(ctx, outboxRecord("e1")))
	require.NoError(t, box.Add(ctx, outboxRecord("e2")))

	msg, err := box.Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "e1", msg.ID)

	require.NoError(t, box.MarkFailed(ctx, "e1", time.Now().Add(time.Hour), "broker down"))
	msg, err = box.Claim(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "e2", msg.ID)
	require.NoError(t, box.MarkSent(ctx, "e2"))

	msg, err = box.Claim(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Len(t, box.Pending(), 1)
}

func idempotencyRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Payload: []byte(`{}`), OccurredAt: at}
}

func outboxRecord(id string) appoutbox.EventRecord {
	return appoutbox.EventRecord{ID: id, Name: "calendar.interval_added", Payload: []byte(`{}`), OccurredAt: time.Now()}
}
