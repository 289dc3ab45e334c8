package backtest

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// EventKind identifica el tipo de evento del stream de una ejecución.
type EventKind int

const (
	EventProgress EventKind = iota
	EventDone
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event es un mensaje del stream: progreso, o el evento terminal con el
// resultado o el error.
type Event struct {
	Kind    EventKind
	Percent float64
	Result  *domain.BacktestResult
	Err     error
}

// progressBuffer es la holgura del canal antes de descartar eventos de progreso.
const progressBuffer = 16

// Stream ejecuta Run en una goroutine y devuelve el stream de eventos.
// Los eventos de progreso nunca bloquean al engine: si el consumidor va lento
// se descartan. El evento terminal (Done o Failed) siempre se entrega salvo
// que el contexto se cancele, y después el canal se cierra.
func (e *Engine) Stream(ctx context.Context, in Input) <-chan Event {
	events := make(chan Event, progressBuffer)

	go func() {
		defer close(events)

		result, err := e.Run(ctx, in, func(p float64) {
			select {
			case events <- Event{Kind: EventProgress, Percent: p}:
			default:
			}
		})

		final := Event{Kind: EventDone, Percent: 100, Result: &result}
		if err != nil {
			final = Event{Kind: EventFailed, Err: err}
		}
		select {
		case events <- final:
			return
		default:
		}
		select {
		case events <- final:
		case <-ctx.Done():
		}
	}()

	return events
}
