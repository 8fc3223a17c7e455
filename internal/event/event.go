// Package event delivers domain events to an external sink.
//
// Emission is fire-and-forget: Emit returns immediately and the delivery
// runs on its own goroutine, detached from the request's cancellation. A
// failed delivery is logged and counted, never surfaced to the caller.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/marketplace-api/internal/metrics"
)

// Event names.
const (
	UserCreated = "user_created"
)

const defaultTimeout = 5 * time.Second

// Event is the envelope handed to a Sink.
type Event struct {
	Name       string    `json:"name"`
	Payload    any       `json:"payload"`
	RequestID  string    `json:"requestId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Sink delivers a single event.
type Sink interface {
	Send(ctx context.Context, ev Event) error
}

// Recorder counts delivery outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	RecordEvent(name, outcome string)
}

// Emitter dispatches events to a Sink in the background.
type Emitter struct {
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
	recorder Recorder
	wg       sync.WaitGroup
}

// NewEmitter creates an Emitter. recorder may be nil. A non-positive timeout
// means five seconds.
func NewEmitter(sink Sink, logger *slog.Logger, timeout time.Duration, recorder Recorder) *Emitter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Emitter{
		sink:     sink,
		logger:   logger,
		timeout:  timeout,
		recorder: recorder,
	}
}

// Emit schedules delivery of name/payload and returns at once. Values on ctx
// (the request id) are kept; its deadline and cancellation are not.
func (e *Emitter) Emit(ctx context.Context, name string, payload any) {
	ev := Event{
		Name:       name,
		Payload:    payload,
		RequestID:  chimiddleware.GetReqID(ctx),
		OccurredAt: time.Now().UTC(),
	}
	detached := context.WithoutCancel(ctx)

	e.wg.Go(func() {
		ctx, cancel := context.WithTimeout(detached, e.timeout)
		defer cancel()

		if err := e.sink.Send(ctx, ev); err != nil {
			e.logger.Error("event delivery failed",
				slog.String("event", ev.Name),
				slog.String("request_id", ev.RequestID),
				slog.String("error", err.Error()),
			)
			e.record(ev.Name, metrics.OutcomeFailed)
			return
		}
		e.logger.Debug("event delivered", slog.String("event", ev.Name))
		e.record(ev.Name, metrics.OutcomeSent)
	})
}

// Wait blocks until every in-flight delivery has finished.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) record(name, outcome string) {
	if e.recorder != nil {
		e.recorder.RecordEvent(name, outcome)
	}
}
