package feeds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	"staysync/internal/app/wiring"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
	"staysync/internal/infra/ical"
	infrapricing "staysync/internal/infra/pricing"
	"staysync/internal/infra/storage/memory"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) PublishFeed(ctx context.Context, propertyID string, body []byte) error {
	return m.Called(ctx, propertyID, body).Error(0)
}

func TestPublishAllSkipsUnchangedFeeds(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	props := memory.NewPropertyRepository()
	buses := wiring.Build(wiring.Deps{
		UoWFactory: memory.Factory{
			PropertiesRepo: props,
			CalendarsRepo:  memory.NewCalendarRepository(),
			PricingSvc:     infrapricing.NewNightlyCalculator(),
		},
		Renderer: ical.Exporter{},
		Now:      func() time.Time { return now },
	})
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID: "loft", HostID: "h", Title: "Loft", PricePerNight: money.Must(100, "USD"), MaxGuests: 2, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, props.Save(context.Background(), p))

	pub := &publisherMock{}
	pub.On("PublishFeed", mock.Anything, "loft", mock.Anything).Return(nil)
	svc := &Service{Queries: buses.Queries, Publisher: pub}
	ctx := context.Background()

	n, err := svc.PublishAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.PublishAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	r, err := daterange.Days("2025-03-01", "2025-03-04")
	require.NoError(t, err)
	_, err = commands.Dispatch[availabilityapp.BlockDatesCommand, dto.Interval](ctx, buses.Commands, availabilityapp.BlockDatesCommand{
		PropertyID: "loft", HostID: "h", Start: r.Start, End: r.End,
	})
	require.NoError(t, err)

	n, err = svc.PublishAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pub.AssertNumberOfCalls(t, "PublishFeed", 2)
}

func TestPublishAllReportsUploadErrors(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	props := memory.NewPropertyRepository()
	buses := wiring.Build(wiring.Deps{
		UoWFactory: memory.Factory{PropertiesRepo: props, CalendarsRepo: memory.NewCalendarRepository()},
		Renderer:   ical.Exporter{},
	})
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID: "loft", HostID: "h", Title: "Loft", PricePerNight: money.Must(100, "USD"), MaxGuests: 2, Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, props.Save(context.Background(), p))

	pub := &publisherMock{}
	pub.On("PublishFeed", mock.Anything, "loft", mock.Anything).Return(errors.New("bucket missing"))
	svc := &Service{Queries: buses.Queries, Publisher: pub}

	n, err := svc.PublishAll(context.Background())
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "bucket missing")
}
