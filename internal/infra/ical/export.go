package ical

import (
	"time"

	ics "github.com/arran4/golang-ical"

	"staysync/internal/app/policies"
	"staysync/internal/domain/availability"
)

const DefaultProdID = "-//staysync//availability//EN"

// Exporter renders a property's confirmed stays and blocks as a feed other
// channels can subscribe to. Output depends only on its input, so an
// unchanged calendar always renders to the same bytes.
type Exporter struct {
	ProdID    string
	UIDDomain string
}

type Feed struct {
	Name      string
	Intervals []availability.Interval
}

func (e Exporter) Render(feed Feed) []byte {
	prodID := e.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	domain := e.UIDDomain
	if domain == "" {
		domain = "staysync.local"
	}

	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if feed.Name != "" {
		cal.SetXWRCalName(feed.Name + " (Availability)")
	}
	for _, iv := range feed.Intervals {
		if iv.Status != availability.StatusConfirmed && iv.Status != availability.StatusBlocked {
			continue
		}
		start, end := dateBounds(iv)
		event := cal.AddEvent(string(iv.ID) + "@" + domain)
		event.SetDtStampTime(iv.UpdatedAt)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(end)
		event.SetSummary(summaryFor(iv))
		event.SetStatus(ics.ObjectStatusConfirmed)
		event.SetProperty(ics.ComponentProperty("TRANSP"), "OPAQUE")
	}
	return []byte(cal.Serialize())
}

func summaryFor(iv availability.Interval) string {
	if iv.IsBooking() {
		return "Reserved"
	}
	return "Not available"
}

// dateBounds widens a range to whole days: start floors, end ceils.
func dateBounds(iv availability.Interval) (time.Time, time.Time) {
	start := truncateDay(iv.Range.Start)
	end := truncateDay(iv.Range.End)
	if !end.Equal(iv.Range.End.UTC()) {
		end = end.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RenderCalendar renders a named feed for the export query.
func (e Exporter) RenderCalendar(name string, intervals []availability.Interval) []byte {
	return e.Render(Feed{Name: name, Intervals: intervals})
}

var _ policies.CalendarRenderer = Exporter{}
