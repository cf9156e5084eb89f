package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
)

// EventFanout drains the single ordered event channel and delivers each
// event to every connection subscribed to one of the event's rooms.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. Ordering within one conversation is preserved
// because one fanout worker consumes the channel sequentially, in the
// order events were published.
//
// A slow or dead connection never blocks the others: each sink consumes
// under a bounded timeout and a failure is logged, isolated per connection.
var _ contract.Worker = (*EventFanout)(nil)

type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to the sinks subscribed at the moment of the call.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	exclude := ""
	if tagged, ok := evt.(event.OriginTagged); ok {
		exclude = tagged.OriginConnection()
	}

	sinks := w.registry.SinksForRooms(evt.Rooms(), exclude)
	for connectionID, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Event delivery failed",
				"event", evt.Name(),
				"connection_id", connectionID,
				"error", err)
		}
		cancel()
	}
}
