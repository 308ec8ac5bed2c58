package events

import (
	"context"
	"log/slog"

	"pacto/pkg/platform/circuit"
)

// Publisher writes one event to the backing transport.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// openProbeInterval is how many events are dropped between probe attempts
// while the breaker is open.
const openProbeInterval = 16

// Worker buffers emitted events and publishes them in the background. Emit
// never blocks: when the buffer is full the event is dropped and counted in
// the log. A circuit breaker guards the broker so a hard outage degrades to
// cheap drops instead of a produce timeout per event.
type Worker struct {
	ch        chan Event
	publisher Publisher
	breaker   *circuit.Breaker
	skipped   int
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		ch:        make(chan Event, buffer),
		publisher: publisher,
		breaker:   circuit.New("event-broker"),
		logger:    logger,
	}
}

func (w *Worker) Emit(evt Event) {
	select {
	case w.ch <- evt:
	default:
		w.logger.Warn("event buffer full, dropping event",
			"type", string(evt.Type),
			"consent_id", evt.ConsentID.String())
	}
}

// Run drains the buffer until ctx is cancelled, then flushes what remains.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.ch:
			w.publish(ctx, evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-w.ch:
					w.publish(context.Background(), evt)
				default:
					return ctx.Err()
				}
			}
		}
	}
}

func (w *Worker) publish(ctx context.Context, evt Event) {
	if w.breaker.IsOpen() {
		w.skipped++
		if w.skipped%openProbeInterval != 0 {
			return
		}
		// Every openProbeInterval-th event probes the broker.
	}

	if err := w.publisher.Publish(ctx, evt); err != nil {
		if _, change := w.breaker.RecordFailure(); change.Opened {
			w.logger.Error("event broker unavailable, dropping events until it recovers",
				"breaker", w.breaker.Name(),
				"error", err)
			return
		}
		w.logger.Error("publish lifecycle event",
			"type", string(evt.Type),
			"consent_id", evt.ConsentID.String(),
			"error", err)
		return
	}

	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.logger.Info("event broker recovered", "breaker", w.breaker.Name(), "skipped", w.skipped)
		w.skipped = 0
	}
}
