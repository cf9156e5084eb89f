//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
)

// EventSink is the delivery end of one live connection.
// Consume must never block longer than the caller's context allows.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry owns the process-wide room tables: which connections exist
// and which rooms each of them listens to.
type IRegistry interface {
	Register(connectionID string, sink EventSink)
	Subscribe(connectionID string, roomID domain.RoomID)
	Unsubscribe(connectionID string, roomID domain.RoomID)
	// DropConnection removes the connection from every room it was in.
	DropConnection(connectionID string)
	// SinksForRoom resolves the sinks currently subscribed to a room,
	// skipping the excluded connection id when non-empty.
	SinksForRoom(roomID domain.RoomID, exclude string) []EventSink
	// SinksForRooms resolves sinks across several rooms, deduplicated by
	// connection id.
	SinksForRooms(rooms []domain.RoomID, exclude string) map[string]EventSink
}

// EventPublisher is the write side of the broadcast pipeline.
type EventPublisher interface {
	// Publish enqueues an event for fan-out, preserving call order.
	Publish(ctx context.Context, e event.DomainEvent) error
	// TryPublish enqueues best-effort and drops silently under backpressure.
	TryPublish(e event.DomainEvent)
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
