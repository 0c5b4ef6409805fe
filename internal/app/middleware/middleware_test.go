package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staysync/internal/app/commands"
	"staysync/internal/app/outbox"
	"staysync/internal/app/uow"
	domainavailability "staysync/internal/domain/availability"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
)

type reserveCommand struct {
	Property string `validate:"required"`
	Actor    string
	IdemKey  string
}

func (c reserveCommand) Key() string            { return "test.reserve" }
func (c reserveCommand) ActorID() string        { return c.Actor }
func (c reserveCommand) IdempotencyKey() string { return c.IdemKey }
func (c reserveCommand) ResultPrototype() any   { return new(string) }

type mapStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysOnlySuccess(t *testing.T) {
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	calls := 0
	fail := true
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		if fail {
			return nil, domainavailability.ErrConflict
		}
		return "booking-1", nil
	})
	bus := ChainCommands(base, Idempotency(store, nil))
	cmd := reserveCommand{Property: "p", Actor: "g", IdemKey: "k"}

	_, err := bus.Dispatch(context.Background(), cmd)
	require.ErrorIs(t, err, domainavailability.ErrConflict)
	assert.Empty(t, store.items)

	fail = false
	res, err := commands.Dispatch[reserveCommand, string](context.Background(), bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, "booking-1", res)

	replayed, err := commands.Dispatch[reserveCommand, string](context.Background(), bus, cmd)
	require.NoError(t, err)
	assert.Equal(t, "booking-1", replayed)
	assert.Equal(t, 2, calls)
	assert.Contains(t, store.items, "test.reserve:k")
}

func TestIdempotencyRejectsKeyReuseWithOtherBody(t *testing.T) {
	store := &mapStore{items: map[string]IdempotencyRecord{}}
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		return "booking-" + cmd.(reserveCommand).Property, nil
	})
	bus := ChainCommands(base, Idempotency(store, nil))

	res, err := bus.Dispatch(context.Background(), reserveCommand{Property: "p1", Actor: "g", IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "booking-p1", res)
	assert.NotEmpty(t, store.items["test.reserve:k"].Fingerprint)

	_, err = bus.Dispatch(context.Background(), reserveCommand{Property: "p2", Actor: "g", IdemKey: "k"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
}

type countingFactory struct {
	begun, committed, rolledBack int
}

type countingUnit struct{ f *countingFactory }

func (u countingUnit) Properties() domainproperty.Repository    { return nil }
func (u countingUnit) Calendars() domainavailability.Repository { return nil }
func (u countingUnit) Pricing() domainpricing.Calculator        { return nil }
func (u countingUnit) Commit(ctx context.Context) error {
	u.f.committed++
	return nil
}
func (u countingUnit) Rollback(ctx context.Context) error {
	u.f.rolledBack++
	return nil
}

func (f *countingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.begun++
	return countingUnit{f: f}, nil
}

func TestTransactionRetriesLostRaces(t *testing.T) {
	factory := &countingFactory{}
	attempts := 0
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, ok := uow.FromContext(ctx)
		require.True(t, ok)
		attempts++
		if attempts < 3 {
			return nil, uow.ErrConcurrentUpdate
		}
		return "ok", nil
	})
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Attempts: 3}))

	res, err := bus.Dispatch(context.Background(), reserveCommand{Property: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, factory.begun)
	assert.Equal(t, 1, factory.committed)
	assert.Equal(t, 2, factory.rolledBack)
}

func TestTransactionGivesUpAfterAttempts(t *testing.T) {
	factory := &countingFactory{}
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		return nil, uow.ErrConcurrentUpdate
	})
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Attempts: 2}))

	_, err := bus.Dispatch(context.Background(), reserveCommand{Property: "p"})
	assert.ErrorIs(t, err, uow.ErrConcurrentUpdate)
	assert.Equal(t, 2, factory.begun)
	assert.Zero(t, factory.committed)
}

func TestTransactionDoesNotRetryDomainErrors(t *testing.T) {
	factory := &countingFactory{}
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		return nil, domainavailability.ErrConflict
	})
	bus := ChainCommands(base, Transaction(factory, nil, RetryPolicy{Attempts: 5}))

	_, err := bus.Dispatch(context.Background(), reserveCommand{Property: "p"})
	assert.ErrorIs(t, err, domainavailability.ErrConflict)
	assert.Equal(t, 1, factory.begun)
}

func TestValidationAndAuthorization(t *testing.T) {
	base := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) { return "ok", nil })
	bus := ChainCommands(base, Authorization(ActorAuthorizer{}), Validation(NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), reserveCommand{Actor: "g"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Property is required")

	_, err = bus.Dispatch(context.Background(), reserveCommand{Property: "p", Actor: "  "})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = bus.Dispatch(context.Background(), reserveCommand{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrValidation)

	res, err := bus.Dispatch(context.Background(), reserveCommand{Property: "p", Actor: "g"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestOutboxFlushSkippedOnError(t *testing.T) {
	box := &flushCounter{}
	failing := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) { return nil, errors.New("boom") })
	_, err := ChainCommands(failing, OutboxFlush(box)).Dispatch(context.Background(), reserveCommand{})
	require.Error(t, err)
	assert.Zero(t, box.flushes)

	ok := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) { return nil, nil })
	_, err = ChainCommands(ok, OutboxFlush(box)).Dispatch(context.Background(), reserveCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, box.flushes)
}

type flushCounter struct{ flushes int }

func (f *flushCounter) Add(ctx context.Context, rec outbox.EventRecord) error { return nil }
func (f *flushCounter) Flush(ctx context.Context) error {
	f.flushes++
	return nil
}
