package amqp

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"saldo/internal/log"
	"saldo/internal/ports"
)

const (
	DefaultOutboxSize = 1024

	outboxSendTimeout  = 15 * time.Second
	outboxDrainTimeout = 5 * time.Second
)

var errOutboxFull = errors.New("event outbox is full")

// Outbox queues ledger events and publishes them from Run, so a slow or
// flapping broker never holds up the mutation that produced them. Events
// that do not fit are dropped and counted.
type Outbox struct {
	pub     ports.EventPublisher
	events  chan ports.LedgerEvent
	logger  *log.Logger
	dropped atomic.Int64
}

var _ ports.EventPublisher = (*Outbox)(nil)

func NewOutbox(pub ports.EventPublisher, size int, logger *log.Logger) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Outbox{
		pub:    pub,
		events: make(chan ports.LedgerEvent, size),
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

// PublishLedgerEvent enqueues e without blocking.
func (o *Outbox) PublishLedgerEvent(_ context.Context, e ports.LedgerEvent) error {
	select {
	case o.events <- e:
		return nil
	default:
		o.dropped.Add(1)
		return errOutboxFull
	}
}

// Run publishes queued events until ctx is done, then tries to flush what
// is left for a few seconds.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.drain()
			return
		case e := <-o.events:
			o.send(context.Background(), e)
		}
	}
}

func (o *Outbox) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), outboxDrainTimeout)
	defer cancel()
	for {
		select {
		case e := <-o.events:
			if ctx.Err() != nil {
				o.dropped.Add(1)
				continue
			}
			o.send(ctx, e)
		default:
			if n := o.dropped.Load(); n > 0 {
				o.logger.Warn("Ledger events dropped", "count", n)
			}
			return
		}
	}
}

func (o *Outbox) send(parent context.Context, e ports.LedgerEvent) {
	ctx, cancel := context.WithTimeout(parent, outboxSendTimeout)
	defer cancel()
	if err := o.pub.PublishLedgerEvent(ctx, e); err != nil {
		o.logger.Error("Failed to publish ledger event",
			log.FieldOwnerID, e.OwnerID,
			log.FieldEventType, string(e.Type),
			log.FieldEntity, string(e.Entity),
			log.FieldError, err.Error())
	}
}

// Pending reports how many events wait to be published.
func (o *Outbox) Pending() int {
	return len(o.events)
}

// Dropped reports how many events were lost to a full queue or shutdown.
func (o *Outbox) Dropped() int64 {
	return o.dropped.Load()
}
