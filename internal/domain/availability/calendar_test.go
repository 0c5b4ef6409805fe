package availability

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/shared/daterange"
)

var testNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func days(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Days(start, end)
	require.NoError(t, err)
	return dr
}

func sequence(prefix string) func() IntervalID {
	n := 0
	return func() IntervalID {
		n++
		return IntervalID(fmt.Sprintf("%s-%d", prefix, n))
	}
}

func pending(id string, r daterange.DateRange) Interval {
	return Interval{ID: IntervalID(id), Range: r, Status: StatusPending, Source: SourceGuestBooking, GuestID: "guest-1", Guests: 2}
}

func TestReserveHalfOpenBoundary(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(pending("a", days(t, "2025-03-10", "2025-03-15")), FilterRequest, testNow)
	require.NoError(t, err)

	_, err = cal.Reserve(pending("b", days(t, "2025-03-15", "2025-03-18")), FilterRequest, testNow)
	require.NoError(t, err)

	_, err = cal.Reserve(pending("c", days(t, "2025-03-05", "2025-03-10")), FilterRequest, testNow)
	require.NoError(t, err)
	assert.Len(t, cal.Intervals, 3)
}

func TestReserveReturnsTypedConflict(t *testing.T) {
	cal := NewCalendar("prop-1")
	first, err := cal.Reserve(pending("a", days(t, "2025-03-10", "2025-03-15")), FilterRequest, testNow)
	require.NoError(t, err)

	_, err = cal.Reserve(pending("b", days(t, "2025-03-14", "2025-03-18")), FilterRequest, testNow)
	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.Existing.ID)
	assert.Len(t, cal.Intervals, 1)
}

func TestReserveAssignsSequenceAndTimestamps(t *testing.T) {
	cal := NewCalendar("prop-1")
	a, err := cal.Reserve(pending("a", days(t, "2025-03-01", "2025-03-02")), FilterRequest, testNow)
	require.NoError(t, err)
	b, err := cal.Reserve(pending("b", days(t, "2025-03-02", "2025-03-03")), FilterRequest, testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.Seq)
	assert.Equal(t, int64(2), b.Seq)
	assert.Equal(t, cal.PropertyID, a.PropertyID)
	assert.Equal(t, testNow, a.CreatedAt)
	assert.Len(t, cal.PendingEvents(), 2)
}

func TestReserveRejectsInvalidCandidates(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(pending("a", daterange.DateRange{}), FilterRequest, testNow)
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	cancelled := pending("b", days(t, "2025-03-01", "2025-03-02"))
	cancelled.Status = StatusCancelled
	_, err = cal.Reserve(cancelled, FilterRequest, testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelledIntervalsNeverConflict(t *testing.T) {
	cal := NewCalendar("prop-1")
	r := days(t, "2025-03-10", "2025-03-15")
	_, err := cal.Reserve(pending("a", r), FilterRequest, testNow)
	require.NoError(t, err)
	_, err = cal.UpdateStatus("a", StatusCancelled, nil, testNow)
	require.NoError(t, err)

	assert.True(t, cal.Available(r, StatusFilter{StatusCancelled, StatusConfirmed, StatusPending, StatusBlocked}, ""))
	_, err = cal.Reserve(pending("b", r), FilterRequest, testNow)
	assert.NoError(t, err)
}

func TestAvailableHonoursFilterAndExclusion(t *testing.T) {
	cal := NewCalendar("prop-1")
	r := days(t, "2025-03-10", "2025-03-15")
	_, err := cal.Reserve(pending("a", r), FilterRequest, testNow)
	require.NoError(t, err)

	assert.False(t, cal.Available(r, FilterRequest, ""))
	assert.True(t, cal.Available(r, FilterPaymentCapture, ""))
	assert.True(t, cal.Available(r, FilterRequest, "a"))
}

func TestBlockedOrderingAndWindow(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(pending("late", days(t, "2025-04-01", "2025-04-03")), FilterRequest, testNow)
	require.NoError(t, err)
	_, err = cal.Block("blk", days(t, "2025-03-01", "2025-03-03"), testNow)
	require.NoError(t, err)
	_, err = cal.Reserve(pending("tie", days(t, "2025-03-01", "2025-03-02")), StatusFilter{}, testNow)
	require.NoError(t, err)
	_, err = cal.Reserve(pending("past", days(t, "2025-01-01", "2025-01-05")), FilterRequest, testNow)
	require.NoError(t, err)

	all := cal.Blocked(Window{}, testNow)
	require.Len(t, all, 3)
	assert.Equal(t, IntervalID("blk"), all[0].ID)
	assert.Equal(t, IntervalID("tie"), all[1].ID)
	assert.Equal(t, IntervalID("late"), all[2].ID)

	windowed := cal.Blocked(Window{From: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}, testNow)
	require.Len(t, windowed, 1)
	assert.Equal(t, IntervalID("past"), windowed[0].ID)
}

func TestRemoveBlock(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Block("blk", days(t, "2025-03-01", "2025-03-03"), testNow)
	require.NoError(t, err)
	_, err = cal.Reserve(pending("bk", days(t, "2025-03-05", "2025-03-07")), FilterRequest, testNow)
	require.NoError(t, err)

	_, err = cal.RemoveBlock("missing", testNow)
	assert.ErrorIs(t, err, ErrIntervalNotFound)

	_, err = cal.RemoveBlock("bk", testNow)
	assert.ErrorIs(t, err, ErrInvalidState)

	removed, err := cal.RemoveBlock("blk", testNow)
	require.NoError(t, err)
	assert.Equal(t, SourceHostBlock, removed.Source)
	_, ok := cal.Interval("blk")
	assert.False(t, ok)
}

func TestHostBlockRespectsPendingRequests(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(pending("bk", days(t, "2025-03-05", "2025-03-07")), FilterRequest, testNow)
	require.NoError(t, err)

	_, err = cal.Block("blk", days(t, "2025-03-06", "2025-03-08"), testNow)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestImportExternalIsIdempotent(t *testing.T) {
	cal := NewCalendar("prop-1")
	feed := []daterange.DateRange{
		days(t, "2025-05-01", "2025-05-05"),
		days(t, "2025-05-10", "2025-05-12"),
	}
	ids := sequence("imp")

	inserted := cal.ImportExternal(feed, ids, testNow)
	assert.Len(t, inserted, 2)

	again := cal.ImportExternal(feed, ids, testNow)
	assert.Empty(t, again)
	assert.Len(t, cal.Intervals, 2)
	for _, iv := range cal.Intervals {
		assert.Equal(t, StatusBlocked, iv.Status)
		assert.Equal(t, SourceExternalImport, iv.Source)
	}
}

func TestImportExternalSkipRules(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(Interval{ID: "conf", Range: days(t, "2025-06-01", "2025-06-05"), Status: StatusConfirmed, Source: SourceGuestBooking}, FilterRequest, testNow)
	require.NoError(t, err)
	_, err = cal.Reserve(pending("pend", days(t, "2025-07-01", "2025-07-05")), FilterRequest, testNow)
	require.NoError(t, err)

	inserted := cal.ImportExternal([]daterange.DateRange{
		days(t, "2025-01-01", "2025-01-05"),
		days(t, "2025-06-03", "2025-06-06"),
		days(t, "2025-07-02", "2025-07-03"),
		{Start: testNow, End: testNow},
		days(t, "2025-08-01", "2025-08-03"),
		days(t, "2025-08-02", "2025-08-04"),
	}, sequence("imp"), testNow)

	require.Len(t, inserted, 2)
	assert.Equal(t, days(t, "2025-07-02", "2025-07-03"), inserted[0].Range)
	assert.Equal(t, days(t, "2025-08-01", "2025-08-03"), inserted[1].Range)
}

func TestImportKeepsRangeEndingToday(t *testing.T) {
	cal := NewCalendar("prop-1")
	r := daterange.DateRange{Start: testNow.Add(-48 * time.Hour), End: testNow}
	inserted := cal.ImportExternal([]daterange.DateRange{r}, sequence("imp"), testNow)
	assert.Len(t, inserted, 1)
}

func TestExportableOnlyConfirmedAndBlocked(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Reserve(pending("pend", days(t, "2025-03-01", "2025-03-02")), FilterRequest, testNow)
	require.NoError(t, err)
	_, err = cal.Block("blk", days(t, "2025-03-05", "2025-03-06"), testNow)
	require.NoError(t, err)
	_, err = cal.Reserve(Interval{ID: "conf", Range: days(t, "2025-02-20", "2025-02-22"), Status: StatusConfirmed, Source: SourceGuestBooking}, FilterRequest, testNow)
	require.NoError(t, err)

	out := cal.Exportable()
	require.Len(t, out, 2)
	assert.Equal(t, IntervalID("conf"), out[0].ID)
	assert.Equal(t, IntervalID("blk"), out[1].ID)
}

func TestCloneIsDetached(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.Block("blk", days(t, "2025-03-05", "2025-03-06"), testNow)
	require.NoError(t, err)

	clone := cal.Clone()
	clone.Intervals[0].Status = StatusCancelled
	assert.Equal(t, StatusBlocked, cal.Intervals[0].Status)
	assert.Empty(t, clone.PendingEvents())
}

func TestParseStatusFilter(t *testing.T) {
	f, err := ParseStatusFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, FilterAllActive, f)

	f, err = ParseStatusFilter([]string{"CONFIRMED"})
	require.NoError(t, err)
	assert.True(t, f.Matches(StatusConfirmed))
	assert.False(t, f.Matches(StatusPending))

	_, err = ParseStatusFilter([]string{"NOPE"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
