package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainproperty "staysync/internal/domain/property"
	"staysync/internal/infra/obs"
	"staysync/internal/infra/storage/memory"
)

const yamlFixtures = `
- id: loft-1
  host_id: host-1
  title: Riverside loft
  price_per_night: {amount: 12000, currency: EUR}
  guest_prices:
    4: {amount: 15000, currency: EUR}
  max_guests: 4
  external_calendar_url: https://example.com/loft.ics
- id: broken
  host_id: host-1
  title: ""
  price_per_night: {amount: 1000, currency: EUR}
  max_guests: 2
`

func TestLoadPropertyFixturesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlFixtures), 0o600))
	repo := memory.NewPropertyRepository()

	n, err := loadPropertyFixtures(context.Background(), repo, path, obs.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, err := repo.ByID(context.Background(), "loft-1")
	require.NoError(t, err)
	assert.Equal(t, domainproperty.HostID("host-1"), p.HostID)
	assert.Equal(t, int64(15000), p.NightlyRate(4).Amount)
	assert.Equal(t, int64(12000), p.NightlyRate(2).Amount)
	assert.Equal(t, "https://example.com/loft.ics", p.ExternalCalendarURL)

	_, err = repo.ByID(context.Background(), "broken")
	assert.ErrorIs(t, err, domainproperty.ErrNotFound)
}

func TestLoadPropertyFixturesKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.json")
	body := `[{"id":"p1","host_id":"h1","title":"Cabin","price_per_night":{"amount":9000,"currency":"USD"},"max_guests":2}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	repo := memory.NewPropertyRepository()

	n, err := loadPropertyFixtures(context.Background(), repo, path, obs.Discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = loadPropertyFixtures(context.Background(), repo, path, obs.Discard())
	require.NoError(t, err)
	assert.Zero(t, n)

	p, err := repo.ByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)
}

func TestLoadPropertyFixturesBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := loadPropertyFixtures(context.Background(), memory.NewPropertyRepository(), path, obs.Discard())
	assert.Error(t, err)

	n, err := loadPropertyFixtures(context.Background(), memory.NewPropertyRepository(), "", obs.Discard())
	require.NoError(t, err)
	assert.Zero(t, n)
}
