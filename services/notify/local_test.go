package notifysvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kyleyee20/aevum/core"
)

func TestLocalBus_FanOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	want := core.Change{Namespace: "ns", Keys: []string{core.KeyAssignments}, Source: "add"}
	require.NoError(t, bus.Publish(ctx, want))
	assert.Equal(t, want, <-a)
	assert.Equal(t, want, <-b)

	cancel()
	_, open := <-a // closed once the subscription is dropped
	assert.False(t, open)
	require.NoError(t, bus.Close())
}

func TestLocalBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewLocalBus()
	defer func() { _ = bus.Close() }()

	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, bus.Publish(context.Background(), core.Change{Source: "add"}))
	}
	assert.Len(t, sub, subscriberBuffer)
}

func TestLocalBus_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewLocalBus()
	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, open := <-sub
	assert.False(t, open)
	assert.ErrorIs(t, bus.Publish(context.Background(), core.Change{}), ErrClosed)
	_, err = bus.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Close())
}
