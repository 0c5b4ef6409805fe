package property

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"staysync/internal/domain/shared/events"
	"staysync/internal/domain/shared/money"
)

var (
	ErrNotFound           = errors.New("property: not found")
	ErrTitleRequired      = errors.New("property: title is required")
	ErrHostRequired       = errors.New("property: host is required")
	ErrGuestsLimit        = errors.New("property: max guests must be at least 1")
	ErrNightlyRate        = errors.New("property: nightly rate must be positive")
	ErrInvalidCalendarURL = errors.New("property: external calendar url must be http or https")
)

type PropertyID string
type HostID string

type Property struct {
	ID            PropertyID
	HostID        HostID
	Title         string
	PricePerNight money.Money
	// GuestPrices overrides PricePerNight for an exact guest count.
	GuestPrices         map[int]money.Money
	MaxGuests           int
	ExternalCalendarURL string
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	// WithExternalCalendar lists properties that have a feed url configured.
	WithExternalCalendar(ctx context.Context) ([]*Property, error)
	List(ctx context.Context) ([]*Property, error)
}

type CreateParams struct {
	ID                  PropertyID
	HostID              HostID
	Title               string
	PricePerNight       money.Money
	GuestPrices         map[int]money.Money
	MaxGuests           int
	ExternalCalendarURL string
	Now                 time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.HostID == "" {
		return nil, ErrHostRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.PricePerNight.Amount <= 0 {
		return nil, ErrNightlyRate
	}
	for _, price := range params.GuestPrices {
		if price.Amount <= 0 || price.Currency != params.PricePerNight.Currency {
			return nil, ErrNightlyRate
		}
	}
	now := params.Now.UTC()
	p := &Property{
		ID:            params.ID,
		HostID:        params.HostID,
		Title:         strings.TrimSpace(params.Title),
		PricePerNight: params.PricePerNight,
		GuestPrices:   copyPrices(params.GuestPrices),
		MaxGuests:     params.MaxGuests,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if params.ExternalCalendarURL != "" {
		u, err := normalizeCalendarURL(params.ExternalCalendarURL)
		if err != nil {
			return nil, err
		}
		p.ExternalCalendarURL = u
	}
	return p, nil
}

// NightlyRate picks the guest-count override when one exists.
func (p *Property) NightlyRate(guests int) money.Money {
	if price, ok := p.GuestPrices[guests]; ok {
		return price
	}
	return p.PricePerNight
}

func (p *Property) OwnedBy(host HostID) bool {
	return host != "" && p.HostID == host
}

// SetExternalCalendarURL stores a new feed url. Returns true if the value changed.
func (p *Property) SetExternalCalendarURL(raw string, now time.Time) (bool, error) {
	normalized, err := normalizeCalendarURL(raw)
	if err != nil {
		return false, err
	}
	if normalized == p.ExternalCalendarURL {
		return false, nil
	}
	p.ExternalCalendarURL = normalized
	p.UpdatedAt = now.UTC()
	p.Record(ExternalCalendarLinked{PropertyID: p.ID, URL: normalized, At: p.UpdatedAt})
	return true, nil
}

func normalizeCalendarURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidCalendarURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrInvalidCalendarURL
	}
	return u.String(), nil
}

func copyPrices(in map[int]money.Money) map[int]money.Money {
	if len(in) == 0 {
		return nil
	}
	out := make(map[int]money.Money, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Clone returns a detached copy without pending events.
func (p *Property) Clone() *Property {
	clone := &Property{
		ID:                  p.ID,
		HostID:              p.HostID,
		Title:               p.Title,
		PricePerNight:       p.PricePerNight,
		GuestPrices:         copyPrices(p.GuestPrices),
		MaxGuests:           p.MaxGuests,
		ExternalCalendarURL: p.ExternalCalendarURL,
		Version:             p.Version,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	return clone
}

type ExternalCalendarLinked struct {
	PropertyID PropertyID
	URL        string
	At         time.Time
}

func (e ExternalCalendarLinked) EventName() string     { return "property.external_calendar_linked" }
func (e ExternalCalendarLinked) AggregateID() string   { return string(e.PropertyID) }
func (e ExternalCalendarLinked) OccurredAt() time.Time { return e.At }
