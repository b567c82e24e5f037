package notifysvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kyleyee20/aevum/core"
)

// RedisBus is a core.ChangeBus over a Redis pub/sub channel, shared by every process using the
// same record store.
type RedisBus struct {
	rdb     *goredis.Client
	channel string
	log     core.Logger
}

var _ core.ChangeBus = (*RedisBus)(nil)

// NewRedisBus connects to addr and checks the connection.
func NewRedisBus(addr, channel string, log core.Logger) (*RedisBus, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if channel == "" {
		channel = "aevum-changes"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return NewRedisBusFrom(rdb, channel, log), nil
}

// NewRedisBusFrom wraps an existing client.
func NewRedisBusFrom(rdb *goredis.Client, channel string, log core.Logger) *RedisBus {
	if log == nil {
		log = core.Discard
	}
	return &RedisBus{rdb: rdb, channel: channel, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, ch core.Change) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan core.Change, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrap(err, "redis subscribe")
	}

	out := make(chan core.Change, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok || m == nil {
					return
				}
				var ch core.Change
				if err := json.Unmarshal([]byte(m.Payload), &ch); err != nil {
					b.log.Warn("bad change payload", "channel", b.channel, "error", err)
					continue
				}
				select {
				case out <- ch:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
