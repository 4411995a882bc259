package vesting

import (
	"context"

	"solana-vesting/internal/domain"
)

// EventSink receives committed state changes. Publish must not block the
// caller for long; slow consumers should buffer or drop.
type EventSink interface {
	Publish(ctx context.Context, e domain.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e domain.Event)

// Publish calls f.
func (f EventSinkFunc) Publish(ctx context.Context, e domain.Event) {
	f(ctx, e)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Publish forwards e to each sink.
func (m MultiSink) Publish(ctx context.Context, e domain.Event) {
	for _, s := range m {
		s.Publish(ctx, e)
	}
}

type nopSink struct{}

func (nopSink) Publish(context.Context, domain.Event) {}
