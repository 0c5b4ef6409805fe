package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/money"
)

type propertyFixture struct {
	ID                  string              `json:"id" yaml:"id"`
	HostID              string              `json:"host_id" yaml:"host_id"`
	Title               string              `json:"title" yaml:"title"`
	PricePerNight       money.Money         `json:"price_per_night" yaml:"price_per_night"`
	GuestPrices         map[int]money.Money `json:"guest_prices" yaml:"guest_prices"`
	MaxGuests           int                 `json:"max_guests" yaml:"max_guests"`
	ExternalCalendarURL string              `json:"external_calendar_url" yaml:"external_calendar_url"`
}

// loadPropertyFixtures seeds properties that are not stored yet. Existing
// properties are left untouched so restarts do not reset versions.
func loadPropertyFixtures(ctx context.Context, repo domainproperty.Repository, path string, logger *slog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fixtures, err := decodeFixtures(path, data)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	now := time.Now().UTC()
	loaded := 0
	for _, fx := range fixtures {
		id := domainproperty.PropertyID(strings.TrimSpace(fx.ID))
		if id == "" {
			logger.Warn("property fixture without id skipped", "title", fx.Title)
			continue
		}
		if _, err := repo.ByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, domainproperty.ErrNotFound) {
			return loaded, err
		}
		p, err := domainproperty.New(domainproperty.CreateParams{
			ID:                  id,
			HostID:              domainproperty.HostID(fx.HostID),
			Title:               fx.Title,
			PricePerNight:       fx.PricePerNight,
			GuestPrices:         fx.GuestPrices,
			MaxGuests:           fx.MaxGuests,
			ExternalCalendarURL: fx.ExternalCalendarURL,
			Now:                 now,
		})
		if err != nil {
			logger.Warn("invalid property fixture skipped", "property_id", id, "error", err)
			continue
		}
		if err := repo.Save(ctx, p); err != nil {
			return loaded, fmt.Errorf("save %s: %w", id, err)
		}
		loaded++
	}
	return loaded, nil
}

func decodeFixtures(path string, data []byte) ([]propertyFixture, error) {
	var fixtures []propertyFixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fixtures); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &fixtures); err != nil {
			return nil, err
		}
	}
	return fixtures, nil
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "properties.yaml"),
		filepath.Join("data", "properties.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
