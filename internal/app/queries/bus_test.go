package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ Text string }

func (echoQuery) Key() string { return "test.echo" }

type blankQuery struct{}

func (blankQuery) Key() string { return "" }

func TestAskRoutesByKey(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return q.Text, nil
	}))

	got, err := Ask[echoQuery, string](context.Background(), bus, echoQuery{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = Ask[echoQuery, int](context.Background(), bus, echoQuery{})
	assert.ErrorIs(t, err, ErrResultType)
}

func TestAskUnknownQuery(t *testing.T) {
	_, err := Ask[echoQuery, string](context.Background(), NewInMemoryBus(), echoQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestRegisterHandlerRejectsEmptyKey(t *testing.T) {
	bus := NewInMemoryBus()
	assert.Panics(t, func() {
		RegisterHandler(bus, HandlerFunc[blankQuery, string](func(context.Context, blankQuery) (string, error) { return "", nil }))
	})
	assert.Empty(t, bus.Keys())
}
