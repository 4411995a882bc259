// Package notify fans committed vesting events out to websocket clients,
// Kafka and the analytics store.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/observability"
)

const (
	// DefaultBufferSize is the number of events held while publishers catch up.
	DefaultBufferSize = 1024

	// DefaultPublishTimeout bounds one delivery to one publisher.
	DefaultPublishTimeout = 5 * time.Second

	dispatcherSink = "dispatcher"
)

// Publisher delivers an event to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e domain.Event) error
}

// Dispatcher queues events and delivers them to publishers on a background
// goroutine. Publish never blocks: when the buffer is full the event is dropped.
type Dispatcher struct {
	publishers []Publisher
	events     chan domain.Event
	timeout    time.Duration
	log        *logrus.Entry

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with room for bufferSize pending events.
func NewDispatcher(bufferSize int, log *logrus.Entry, publishers ...Publisher) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{
		publishers: publishers,
		events:     make(chan domain.Event, bufferSize),
		timeout:    DefaultPublishTimeout,
		log:        log.WithField("component", "notify"),
	}
}

// Publish enqueues e. It implements vesting.EventSink.
func (d *Dispatcher) Publish(_ context.Context, e domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		observability.RecordEventDropped(dispatcherSink)
		return
	}

	select {
	case d.events <- e:
	default:
		observability.RecordEventDropped(dispatcherSink)
		d.log.WithFields(logrus.Fields{
			"type": e.Type,
			"pool": e.PoolAddress,
		}).Warn("event buffer full, dropping event")
	}
}

// Run delivers queued events until ctx is cancelled or Close has been called
// and the buffer is drained.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.events:
			if !ok {
				return
			}
			d.deliver(ctx, e)
		}
	}
}

// Close stops accepting events. Events already queued are still delivered by Run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}

func (d *Dispatcher) deliver(ctx context.Context, e domain.Event) {
	for _, p := range d.publishers {
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := p.Publish(pctx, e)
		cancel()
		if err != nil {
			observability.RecordEventDropped(p.Name())
			d.log.WithFields(logrus.Fields{
				"publisher": p.Name(),
				"type":      e.Type,
				"pool":      e.PoolAddress,
			}).WithError(err).Warn("publish failed")
			continue
		}
		observability.RecordEventPublished(p.Name())
	}
}
