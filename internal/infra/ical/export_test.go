package ical

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/domain/availability"
	"staysync/internal/domain/shared/daterange"
)

var stamp = time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)

func sampleIntervals(t *testing.T) []availability.Interval {
	t.Helper()
	mk := func(id string, start, end string, status availability.Status, source availability.Source, seq int64) availability.Interval {
		r, err := daterange.Days(start, end)
		require.NoError(t, err)
		return availability.Interval{ID: availability.IntervalID(id), Range: r, Status: status, Source: source, Seq: seq, CreatedAt: stamp, UpdatedAt: stamp}
	}
	return []availability.Interval{
		mk("bk-1", "2025-03-10", "2025-03-15", availability.StatusConfirmed, availability.SourceGuestBooking, 1),
		mk("blk-1", "2025-04-01", "2025-04-03", availability.StatusBlocked, availability.SourceHostBlock, 2),
		mk("pend-1", "2025-05-01", "2025-05-03", availability.StatusPending, availability.SourceGuestBooking, 3),
	}
}

func TestRenderIsByteStable(t *testing.T) {
	exp := Exporter{UIDDomain: "staysync.test"}
	f := Feed{Name: "Lake Cabin", Intervals: sampleIntervals(t)}

	first := exp.Render(f)
	second := exp.Render(f)
	assert.True(t, bytes.Equal(first, second))
}

func TestRenderFormat(t *testing.T) {
	out := string(Exporter{UIDDomain: "staysync.test"}.Render(Feed{Name: "Lake Cabin", Intervals: sampleIntervals(t)}))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "PRODID:"+DefaultProdID+"\r\n")
	assert.Contains(t, out, "CALSCALE:GREGORIAN\r\n")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "METHOD:PUBLISH\r\n")
	assert.Contains(t, out, "X-WR-CALNAME:Lake Cabin (Availability)\r\n")
	assert.Contains(t, out, "UID:bk-1@staysync.test\r\n")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250310\r\nDTEND;VALUE=DATE:20250315\r\n")
	assert.Contains(t, out, "DTSTAMP:20250201T103000Z\r\n")
	assert.NotContains(t, out, "pend-1")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(out, "STATUS:CONFIRMED"))
}

func TestRenderRoundTripsThroughParser(t *testing.T) {
	ivs := sampleIntervals(t)
	out := Exporter{}.Render(Feed{Name: "x", Intervals: ivs})

	res, err := Parser{}.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, res.Ranges, 2)
	assert.True(t, res.Ranges[0].Equal(ivs[0].Range))
	assert.True(t, res.Ranges[1].Equal(ivs[1].Range))
}

func TestRenderWidensPartialDays(t *testing.T) {
	r := daterange.MustNew(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC))
	out := string(Exporter{}.Render(Feed{Intervals: []availability.Interval{{ID: "x", Range: r, Status: availability.StatusBlocked, Source: availability.SourceExternalImport, UpdatedAt: stamp}}}))
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250310\r\nDTEND;VALUE=DATE:20250313\r\n")
}

func TestRenderFoldsLongLines(t *testing.T) {
	name := strings.Repeat("Lakeside cabin ", 10)
	out := Exporter{}.Render(Feed{Name: name, Intervals: sampleIntervals(t)})
	for _, line := range strings.Split(strings.TrimSuffix(string(out), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 75, line)
	}

	res, err := Parser{}.Parse(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, res.Ranges, 2)
}
