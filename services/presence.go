package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/repositories"
)

// PresenceTracker derives online/away/offline from connection lifecycle
// signals. The policy is the explicit-state one: connect sets online,
// closing the last live connection sets offline, and a sweep demotes idle
// online users to away. Snapshot returns the stored state only; the
// last-seen timestamp is never reinterpreted as a freshness window.
//
// Every write here is best-effort telemetry. A failed persistence or a
// dropped status event is logged and swallowed, never failing the
// surrounding request.
type PresenceTracker struct {
	log           *slog.Logger
	users         repositories.IUserRepository
	conversations repositories.IConversationRepository
	publisher     contract.EventPublisher
	awayAfter     time.Duration

	mu        sync.Mutex
	states    map[string]domain.PresenceState
	lastSeen  map[string]time.Time
	liveConns map[string]int
}

func NewPresenceTracker(log *slog.Logger, users repositories.IUserRepository,
	conversations repositories.IConversationRepository,
	publisher contract.EventPublisher, awayAfter time.Duration) *PresenceTracker {
	return &PresenceTracker{
		log:           log,
		users:         users,
		conversations: conversations,
		publisher:     publisher,
		awayAfter:     awayAfter,
		states:        make(map[string]domain.PresenceState),
		lastSeen:      make(map[string]time.Time),
		liveConns:     make(map[string]int),
	}
}

// OnConnect registers one more live connection for the user and marks it
// online.
func (p *PresenceTracker) OnConnect(userID string) {
	now := time.Now().UTC()

	p.mu.Lock()
	p.liveConns[userID]++
	p.lastSeen[userID] = now
	changed := p.states[userID] != domain.PresenceOnline
	p.states[userID] = domain.PresenceOnline
	p.mu.Unlock()

	p.persistLastSeen(userID, now)
	if changed {
		p.emitStatus(userID, domain.PresenceOnline)
	}
}

// OnDisconnect drops one live connection. Only the last one flips the user
// offline; a user with another open session stays online.
func (p *PresenceTracker) OnDisconnect(userID string) {
	now := time.Now().UTC()

	p.mu.Lock()
	p.liveConns[userID]--
	last := p.liveConns[userID] <= 0
	if last {
		delete(p.liveConns, userID)
		p.states[userID] = domain.PresenceOffline
	}
	p.lastSeen[userID] = now
	p.mu.Unlock()

	p.persistLastSeen(userID, now)
	if last {
		p.emitStatus(userID, domain.PresenceOffline)
	}
}

// OnActivity refreshes last-seen on message send or explicit heartbeat.
// An away user producing activity is promoted back to online.
func (p *PresenceTracker) OnActivity(userID string) {
	now := time.Now().UTC()

	p.mu.Lock()
	p.lastSeen[userID] = now
	promoted := p.states[userID] == domain.PresenceAway
	if promoted {
		p.states[userID] = domain.PresenceOnline
	}
	p.mu.Unlock()

	p.persistLastSeen(userID, now)
	if promoted {
		p.emitStatus(userID, domain.PresenceOnline)
	}
}

// Snapshot returns the stored state. Users never seen are offline.
func (p *PresenceTracker) Snapshot(userID string) domain.PresenceState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state, ok := p.states[userID]; ok {
		return state
	}
	return domain.PresenceOffline
}

// SweepIdle demotes online users whose last activity is older than the
// configured idle window. Called periodically by the presence sweep worker.
func (p *PresenceTracker) SweepIdle(now time.Time) {
	p.mu.Lock()
	var idle []string
	for userID, state := range p.states {
		if state == domain.PresenceOnline && now.Sub(p.lastSeen[userID]) > p.awayAfter {
			p.states[userID] = domain.PresenceAway
			idle = append(idle, userID)
		}
	}
	p.mu.Unlock()

	for _, userID := range idle {
		p.emitStatus(userID, domain.PresenceAway)
	}
}

func (p *PresenceTracker) persistLastSeen(userID string, at time.Time) {
	if err := p.users.TouchLastSeen(userID, at); err != nil {
		p.log.Warn("Presence write failed", "user_id", userID, "error", err)
	}
}

// emitStatus fans the transition out to the user's own room and to every
// conversation the user belongs to. Best-effort: resolution failures and
// backpressure drops are logged, never propagated.
func (p *PresenceTracker) emitStatus(userID string, state domain.PresenceState) {
	rooms := []domain.RoomID{domain.UserRoom(userID)}
	conversations, err := p.conversations.ListForUser(userID)
	if err != nil {
		p.log.Warn("Presence room resolution failed", "user_id", userID, "error", err)
	}
	for _, conv := range conversations {
		rooms = append(rooms, domain.ConversationRoom(conv.ID))
	}

	p.publisher.TryPublish(event.StatusChanged{
		UserID:      userID,
		State:       state,
		TargetRooms: rooms,
	})
}
