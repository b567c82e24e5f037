package core

import (
	"context"
	"time"
)

type (
	// Change announces a committed mutation of the record store.
	Change struct {
		Namespace string    `json:"namespace"`
		Keys      []string  `json:"keys"`
		Source    string    `json:"source"`
		At        time.Time `json:"at"`
	}

	// ChangeBus fans committed changes out to every surface sharing the record store.
	ChangeBus interface {
		Publish(ctx context.Context, ch Change) error
		// Subscribe returns a channel closed once ctx is done or the bus is closed.
		Subscribe(ctx context.Context) (<-chan Change, error)
		Close() error
	}
)

// Announce publishes a change on bus, if any. Publishing is best-effort: a failure is logged and
// never undoes the committed mutation.
func Announce(ctx context.Context, bus ChangeBus, log Logger, namespace, source string, keys ...string) {
	if bus == nil {
		return
	}
	ch := Change{Namespace: namespace, Keys: keys, Source: source, At: NowFunc().UTC()}
	if err := bus.Publish(ctx, ch); err != nil && log != nil {
		log.Warn("could not publish change", "namespace", namespace, "keys", keys, "error", err)
	}
}
