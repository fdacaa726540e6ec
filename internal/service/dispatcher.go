package service

import (
	"context"
	"sync"
	"time"

	"sacco-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Dispatcher decouples the webhook ack from payment processing. Handlers
// enqueue normalized events and return 200 immediately; a fixed pool of
// workers drains the queue through the intake service.
type Dispatcher struct {
	intake  ports.IntakeService
	queue   chan ports.InboundEvent
	workers int
	log     zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given worker count and
// queue capacity.
func NewDispatcher(intake ports.IntakeService, workers, queueSize int, log zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		intake:  intake,
		queue:   make(chan ports.InboundEvent, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker pool. Workers exit when Stop closes the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("intake dispatcher started")
}

// Enqueue hands an event to the pool. It never blocks the ack path: if the
// queue is full the event is dropped and relies on provider redelivery.
func (d *Dispatcher) Enqueue(ev ports.InboundEvent) bool {
	select {
	case d.queue <- ev:
		return true
	default:
		d.log.Warn().
			Str("channel", string(ev.Channel)).
			Str("external_key", ev.ExternalKey()).
			Msg("intake queue full, dropping event for provider redelivery")
		return false
	}
}

// Stop closes the queue and waits for in-flight events to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := d.intake.ProcessInbound(ctx, ev); err != nil {
			d.log.Error().Err(err).
				Int("worker", id).
				Str("channel", string(ev.Channel)).
				Str("external_key", ev.ExternalKey()).
				Msg("inbound event processing failed")
		}
		cancel()
	}
}
