package sink

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poryaazizi7428/global-private-messenger/domain/event"
)

// ConnectionSink is the bounded send queue of one live connection.
//
// Consume is called by the fan-out worker. It redirects the event through
// the channel owned by the connection's write pump; the transport takes it
// from there. When the queue is full the oldest pending event is dropped so
// a frozen client can never block delivery to anyone else.
type ConnectionSink struct {
	Events chan event.DomainEvent

	mu     sync.Mutex
	closed bool
	log    *slog.Logger
}

func NewConnectionSink(log *slog.Logger, bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
	}
}

func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Queue full: drop the oldest pending event to make room. Holding the
	// mutex keeps the pop/push pair atomic with respect to other Consume
	// calls; the write pump draining concurrently only helps.
	select {
	case dropped := <-s.Events:
		s.log.Warn("Send queue full, dropping oldest event", "dropped", dropped.Name())
	default:
	}
	select {
	case s.Events <- e:
	default:
	}
	return nil
}

// Close marks the sink dead. Later Consume calls become no-ops, so the
// fan-out worker can race with connection teardown safely.
func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Events)
}
