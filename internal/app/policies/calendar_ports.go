package policies

import (
	"context"

	domainavailability "staysync/internal/domain/availability"
	"staysync/internal/domain/shared/daterange"
)

// ExternalFeed is the usable content of a remote calendar: one range per
// event, plus how many events were dropped as malformed.
type ExternalFeed struct {
	Ranges  []daterange.DateRange
	Skipped int
}

// CalendarFetcher downloads and parses a remote calendar feed.
type CalendarFetcher interface {
	FetchBlocks(ctx context.Context, url string) (ExternalFeed, error)
}

// CalendarRenderer turns blocking intervals into a calendar document.
type CalendarRenderer interface {
	RenderCalendar(name string, intervals []domainavailability.Interval) []byte
}

// FeedPublisher stores a rendered feed where external platforms can poll it.
type FeedPublisher interface {
	PublishFeed(ctx context.Context, propertyID string, body []byte) error
}
