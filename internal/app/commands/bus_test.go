package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type holdCommand struct{ Nights int }

func (holdCommand) Key() string { return "test.hold" }

type releaseCommand struct{}

func (releaseCommand) Key() string { return "test.release" }

func TestRegisterHandlerRoutesByCommandKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, HandlerFunc[holdCommand, int](func(ctx context.Context, cmd holdCommand) (int, error) {
		return cmd.Nights * 2, nil
	}))

	got, err := Dispatch[holdCommand, int](context.Background(), bus, holdCommand{Nights: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Equal(t, []string{"test.hold"}, bus.Keys())

	_, err = bus.Dispatch(context.Background(), releaseCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "test.release")

	_, err = Dispatch[holdCommand, string](context.Background(), bus, holdCommand{})
	assert.ErrorIs(t, err, ErrResultType)
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[holdCommand, int](func(ctx context.Context, cmd holdCommand) (int, error) { return 0, nil })
	RegisterHandler(bus, h)
	assert.Panics(t, func() { RegisterHandler(bus, h) })
}

func TestDispatchNilBus(t *testing.T) {
	_, err := Dispatch[holdCommand, int](context.Background(), nil, holdCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}
