package notifysvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
)

// subscriberBuffer is how many changes a slow subscriber may lag behind before new ones are
// dropped for it. Subscribers are expected to re-read the store, not to replay changes.
const subscriberBuffer = 16

var ErrClosed = errors.New("change bus is closed")

// LocalBus is an in-process core.ChangeBus.
type LocalBus struct {
	mu     sync.Mutex
	subs   map[int]chan core.Change
	nextID int
	closed bool
	done   chan struct{}
}

var _ core.ChangeBus = (*LocalBus)(nil)

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan core.Change), done: make(chan struct{})}
}

func (b *LocalBus) Publish(_ context.Context, ch core.Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs {
		select {
		case sub <- ch:
		default: // subscriber is behind; it will catch up on its next read
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan core.Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	sub := make(chan core.Change, subscriberBuffer)
	b.subs[id] = sub

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(id)
		case <-b.done:
		}
	}()
	return sub, nil
}

func (b *LocalBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub)
	}
}

// Close closes every subscription channel.
func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub)
	}
	return nil
}
