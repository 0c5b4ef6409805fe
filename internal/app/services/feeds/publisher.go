package feeds

import (
	"context"
	"errors"
	"log/slog"

	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/policies"
	"staysync/internal/app/queries"
)

// Service uploads every property's rendered feed to object storage, skipping
// feeds whose bytes did not change since the last upload.
type Service struct {
	Queries   queries.Bus
	Publisher policies.FeedPublisher
	Logger    *slog.Logger

	published map[string]string
}

// PublishAll renders and uploads the feed of every property.
func (s *Service) PublishAll(ctx context.Context) (int, error) {
	if s.Publisher == nil {
		return 0, errors.New("feeds: publisher not configured")
	}
	targets, err := queries.Ask[availabilityapp.ListSyncTargetsQuery, []dto.SyncTarget](ctx, s.Queries, availabilityapp.ListSyncTargetsQuery{All: true})
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.PropertyID)
	}
	if s.published == nil {
		s.published = map[string]string{}
	}

	uploaded := 0
	var errs []error
	for _, id := range ids {
		feed, err := queries.Ask[availabilityapp.ExportCalendarQuery, dto.CalendarFeed](ctx, s.Queries, availabilityapp.ExportCalendarQuery{PropertyID: id})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if s.published[id] == feed.ETag {
			continue
		}
		if err := s.Publisher.PublishFeed(ctx, id, feed.Body); err != nil {
			errs = append(errs, err)
			continue
		}
		s.published[id] = feed.ETag
		uploaded++
	}
	if s.Logger != nil {
		s.Logger.Info("calendar feeds published", "uploaded", uploaded, "candidates", len(ids), "failed", len(errs))
	}
	return uploaded, errors.Join(errs...)
}
