package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/uow"
	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
	infrapricing "staysync/internal/infra/pricing"
)

func TestOpenStorageMemory(t *testing.T) {
	st, err := openStorage(context.Background(), config.Config{StorageBackend: config.BackendMemory, IdempotencyTTL: time.Hour}, infrapricing.NewNightlyCalculator(), obs.Discard())
	require.NoError(t, err)
	defer st.close(context.Background())

	assert.Nil(t, st.purge)
	assert.Empty(t, st.checks)
	unit, err := st.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	assert.NotNil(t, unit.Calendars())
	require.NoError(t, unit.Rollback(context.Background()))
}

func TestOpenStorageSQLite(t *testing.T) {
	cfg := config.Config{
		StorageBackend: config.BackendSQLite,
		DatabaseDSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
		IdempotencyTTL: time.Hour,
	}
	st, err := openStorage(context.Background(), cfg, infrapricing.NewNightlyCalculator(), obs.Discard())
	require.NoError(t, err)
	defer st.close(context.Background())

	require.Contains(t, st.checks, config.BackendSQLite)
	assert.NoError(t, st.checks[config.BackendSQLite](context.Background()))
	require.NotNil(t, st.purge)
	_, err = st.purge(context.Background())
	assert.NoError(t, err)

	seen, err := st.inbox.Seen(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = st.inbox.Seen(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
}
