// Package runtime handles event propagation and room membership for live
// connections. It orchestrates the system without containing business logic
// or domain rules.
package runtime

import (
	"sync"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain"
)

type Set map[string]struct{}

// Registry is the process-wide router state: which connections are alive,
// which rooms each one listens to, and the reverse room table used for
// fan-out. It is created at service start and torn down at shutdown, never
// an ambient global.
type Registry struct {
	mu sync.RWMutex
	// Sinks maps connection id -> delivery sink.
	Sinks map[string]contract.EventSink
	// RoomMembers maps room -> connection ids.
	RoomMembers map[domain.RoomID]Set
	// Subscriptions maps connection id -> rooms, for O(rooms) teardown.
	Subscriptions map[string]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		Sinks:         make(map[string]contract.EventSink),
		RoomMembers:   make(map[domain.RoomID]Set),
		Subscriptions: make(map[string]map[domain.RoomID]struct{}),
	}
}

// Register attaches the delivery sink of a new live connection.
func (r *Registry) Register(connectionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sinks[connectionID] = sink
}

// Subscribe adds the connection to a room. Subscribing twice is a no-op.
func (r *Registry) Subscribe(connectionID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Sinks[connectionID]; !ok {
		return
	}
	if _, ok := r.RoomMembers[roomID]; !ok {
		r.RoomMembers[roomID] = make(Set)
	}
	r.RoomMembers[roomID][connectionID] = struct{}{}

	if _, ok := r.Subscriptions[connectionID]; !ok {
		r.Subscriptions[connectionID] = make(map[domain.RoomID]struct{})
	}
	r.Subscriptions[connectionID][roomID] = struct{}{}
}

// Unsubscribe removes the connection from a room. Unsubscribing a connection
// not in the room is a no-op. Empty room sets are removed entirely to prevent
// memory leaks over time.
func (r *Registry) Unsubscribe(connectionID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(connectionID, roomID)
}

func (r *Registry) unsubscribeLocked(connectionID string, roomID domain.RoomID) {
	if members, ok := r.RoomMembers[roomID]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.RoomMembers, roomID)
		}
	}
	if rooms, ok := r.Subscriptions[connectionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.Subscriptions, connectionID)
		}
	}
}

// DropConnection removes the connection from every room it was subscribed to
// and forgets its sink. This is the single cleanup transition for a closed
// connection.
func (r *Registry) DropConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.Subscriptions[connectionID] {
		if members, ok := r.RoomMembers[roomID]; ok {
			delete(members, connectionID)
			if len(members) == 0 {
				delete(r.RoomMembers, roomID)
			}
		}
	}
	delete(r.Subscriptions, connectionID)
	delete(r.Sinks, connectionID)
}

// SinksForRooms resolves every sink subscribed to at least one of the rooms,
// keyed by connection id so a connection sitting in several target rooms is
// delivered to exactly once.
func (r *Registry) SinksForRooms(rooms []domain.RoomID, exclude string) map[string]contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make(map[string]contract.EventSink)
	for _, roomID := range rooms {
		for connectionID := range r.RoomMembers[roomID] {
			if exclude != "" && connectionID == exclude {
				continue
			}
			if sink, exists := r.Sinks[connectionID]; exists {
				sinks[connectionID] = sink
			}
		}
	}
	return sinks
}

// SinksForRoom resolves the sinks subscribed to a room at the moment of the
// call. The excluded connection id, when non-empty, is skipped; typing events
// use it so a client never sees its own signal.
func (r *Registry) SinksForRoom(roomID domain.RoomID, exclude string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.RoomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connectionID := range members {
		if exclude != "" && connectionID == exclude {
			continue
		}
		if sink, exists := r.Sinks[connectionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}
