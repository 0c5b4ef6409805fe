package calendarsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/policies"
	"staysync/internal/app/queries"
)

var ErrFetcherMissing = errors.New("calendarsync: fetcher not configured")

// Service pulls external calendars and turns their events into blocks.
// The feed is fetched before the import command starts, so a slow or dead
// upstream never holds a unit of work open.
type Service struct {
	Commands commands.Bus
	Queries  queries.Bus
	Fetcher  policies.CalendarFetcher
	Logger   *slog.Logger
}

// SyncProperty runs a host-triggered sync. A non-empty url is stored on
// the property first; otherwise the stored url is used.
func (s *Service) SyncProperty(ctx context.Context, hostID, propertyID, url string) (dto.ImportResult, error) {
	target, err := commands.Dispatch[availabilityapp.LinkExternalCalendarCommand, dto.SyncTarget](ctx, s.Commands, availabilityapp.LinkExternalCalendarCommand{
		PropertyID: propertyID,
		HostID:     hostID,
		URL:        url,
	})
	if err != nil {
		return dto.ImportResult{}, err
	}
	return s.sync(ctx, target)
}

type Summary struct {
	Properties int
	Blocked    int
	Failed     int
}

// SyncAll syncs every property with a feed url. One failing feed does not
// stop the others.
func (s *Service) SyncAll(ctx context.Context) (Summary, error) {
	targets, err := queries.Ask[availabilityapp.ListSyncTargetsQuery, []dto.SyncTarget](ctx, s.Queries, availabilityapp.ListSyncTargetsQuery{})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Properties: len(targets)}
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := s.sync(ctx, target)
		if err != nil {
			summary.Failed++
			s.log().Warn("calendar sync failed", "property_id", target.PropertyID, "error", err)
			continue
		}
		summary.Blocked += res.Blocked
	}
	s.log().Info("calendar sync finished", "properties", summary.Properties, "blocked", summary.Blocked, "failed", summary.Failed)
	return summary, nil
}

func (s *Service) sync(ctx context.Context, target dto.SyncTarget) (dto.ImportResult, error) {
	if s.Fetcher == nil {
		return dto.ImportResult{}, ErrFetcherMissing
	}
	feed, err := s.Fetcher.FetchBlocks(ctx, target.URL)
	if err != nil {
		return dto.ImportResult{}, fmt.Errorf("fetch %s: %w", target.PropertyID, err)
	}
	if feed.Skipped > 0 {
		s.log().Info("malformed events skipped", "property_id", target.PropertyID, "skipped", feed.Skipped)
	}
	return commands.Dispatch[availabilityapp.ImportExternalBlocksCommand, dto.ImportResult](ctx, s.Commands, availabilityapp.ImportExternalBlocksCommand{
		PropertyID: target.PropertyID,
		Ranges:     feed.Ranges,
		Skipped:    feed.Skipped,
	})
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
