package notifysvc

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleyee20/aevum/core"
)

// Runs against a real server only: TEST_REDIS_ADDR=localhost:6379.
func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	bus, err := NewRedisBus(addr, "aevum-test-"+t.Name(), nil)
	require.NoError(t, err)
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	want := core.Change{Namespace: "ns", Keys: []string{core.KeyCompleted}, Source: "complete", At: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, bus.Publish(ctx, want))

	select {
	case got := <-sub:
		assert.Equal(t, want.Keys, got.Keys)
		assert.Equal(t, want.Source, got.Source)
		assert.True(t, want.At.Equal(got.At))
	case <-ctx.Done():
		t.Fatal("no change received")
	}
}
