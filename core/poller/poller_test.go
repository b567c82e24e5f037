package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
	logsvc "github.com/kyleyee20/aevum/services/logger"
	notifysvc "github.com/kyleyee20/aevum/services/notify"
	testutil "github.com/kyleyee20/aevum/tests"
)

// rollbar-go starts its async transport goroutine when the package loads.
var ignoreRollbar = goleak.IgnoreTopFunction("github.com/rollbar/rollbar-go.NewAsyncTransport.func1")

type countingEngine struct {
	calls atomic.Int32
	err   error
}

func (e *countingEngine) Refresh(context.Context) (assignment.Transition, error) {
	e.calls.Add(1)
	return assignment.Unchanged, e.err
}

func TestPoller_RefreshesOnTick(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	engine := &countingEngine{}
	p := New(engine, nil, 5*time.Millisecond, nil)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Start(context.Background())) // no-op

	assert.Eventually(t, func() bool { return engine.calls.Load() >= 3 }, time.Second, time.Millisecond)
	p.Stop()
	p.Stop()

	calls := engine.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, engine.calls.Load(), "no refresh after Stop")
}

func TestPoller_WakesOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	bus := notifysvc.NewLocalBus()
	engine := &countingEngine{}
	p := New(engine, bus, time.Hour, nil)
	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool { return engine.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, core.Change{Source: "poller"}))
	require.NoError(t, bus.Publish(ctx, core.Change{Source: "add"}))
	assert.Eventually(t, func() bool { return engine.calls.Load() == 2 }, time.Second, time.Millisecond)

	p.Stop()
	require.NoError(t, bus.Close())
}

func TestPoller_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	engine := &countingEngine{}
	ctx, cancel := context.WithCancel(context.Background())
	p := New(engine, notifysvc.NewLocalBus(), 5*time.Millisecond, nil)
	require.NoError(t, p.Start(ctx))
	cancel()
	p.Stop()
}

func TestPoller_LogsRepeatedErrorOnce(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	log := logsvc.NewRecordingLogger()
	engine := &countingEngine{err: errors.New("disk on fire")}
	p := New(engine, nil, time.Millisecond, log)
	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool { return engine.calls.Load() >= 5 }, time.Second, time.Millisecond)
	p.Stop()

	assert.Equal(t, 1, log.Count("error"))
}

func TestPoller_ObservesSignOutElsewhere(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRollbar)

	store := testutil.OpenStore(t)
	testutil.Put(t, store, core.KeyCredential, "token")
	bus := notifysvc.NewLocalBus()
	defer func() { _ = bus.Close() }()

	svc := assignment.NewService(assignment.Deps{Store: store, Namespace: testutil.Namespace, Bus: bus})
	transitions := make(chan assignment.Transition, 4)
	p := New(svc, bus, time.Hour, nil)
	p.OnTransition = func(tr assignment.Transition) { transitions <- tr }
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Equal(t, assignment.SignedIn, <-transitions)
	_, err := svc.AddAssignment(context.Background(), assignment.NewAssignment{Title: "Essay"})
	require.NoError(t, err)

	// another surface signs out and announces it
	testutil.Put(t, store, core.KeyCredential, "")
	core.Announce(context.Background(), bus, nil, testutil.Namespace, "session", core.KeyCredential)

	assert.Equal(t, assignment.SignedOut, <-transitions)
	assert.False(t, svc.Authenticated())
	assert.Len(t, testutil.Get[[]assignment.Assignment](t, store, core.KeyAssignments), 1)
}
