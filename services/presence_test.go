package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
)

func statusEvents(env *testEnv) []event.StatusChanged {
	var transitions []event.StatusChanged
	for _, e := range env.publisher.all() {
		if sc, ok := e.(event.StatusChanged); ok {
			transitions = append(transitions, sc)
		}
	}
	return transitions
}

func Test_Presence_Connect_Disconnect_Cycle(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	env.saveUsers(t, "alice", "bob")
	conversation := env.createConversation(t, "alice", "bob")

	// Given a user never seen
	req.Equal(domain.PresenceOffline, env.presence.Snapshot("alice"))

	// When alice connects
	env.presence.OnConnect("alice")
	req.Equal(domain.PresenceOnline, env.presence.Snapshot("alice"))

	// And disconnects
	env.presence.OnDisconnect("alice")
	req.Equal(domain.PresenceOffline, env.presence.Snapshot("alice"))

	// Then both transitions were broadcast to her room and her conversations
	transitions := statusEvents(env)
	req.Len(transitions, 2)
	req.Equal(domain.PresenceOnline, transitions[0].State)
	req.Equal(domain.PresenceOffline, transitions[1].State)
	req.Contains(transitions[0].Rooms(), domain.UserRoom("alice"))
	req.Contains(transitions[0].Rooms(), domain.ConversationRoom(conversation.ID))

	// And last_seen was persisted
	user, err := env.users.GetUser("alice")
	req.NoError(err)
	req.False(user.LastSeen.IsZero())
}

func Test_Presence_Second_Connection_Keeps_User_Online(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.saveUsers(t, "alice")

	// Given two live connections
	env.presence.OnConnect("alice")
	env.presence.OnConnect("alice")

	// When one closes
	env.presence.OnDisconnect("alice")

	// Then the user stays online until the last one closes
	req.Equal(domain.PresenceOnline, env.presence.Snapshot("alice"))
	env.presence.OnDisconnect("alice")
	req.Equal(domain.PresenceOffline, env.presence.Snapshot("alice"))

	// Only one online and one offline transition were emitted
	transitions := statusEvents(env)
	req.Len(transitions, 2)
}

func Test_Presence_Sweep_Demotes_Idle_To_Away(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.saveUsers(t, "alice", "bob")

	env.presence.OnConnect("alice")
	env.presence.OnConnect("bob")

	// When the sweep runs past the idle window
	env.presence.SweepIdle(time.Now().UTC().Add(10 * time.Minute))

	// Then both idle users are away, not offline
	req.Equal(domain.PresenceAway, env.presence.Snapshot("alice"))
	req.Equal(domain.PresenceAway, env.presence.Snapshot("bob"))

	// And a sweep within the window changes nothing
	env.presence.OnActivity("alice")
	env.presence.SweepIdle(time.Now().UTC())
	req.Equal(domain.PresenceOnline, env.presence.Snapshot("alice"))
}

func Test_Presence_Activity_Promotes_Away_To_Online(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.saveUsers(t, "alice")

	env.presence.OnConnect("alice")
	env.presence.SweepIdle(time.Now().UTC().Add(10 * time.Minute))
	req.Equal(domain.PresenceAway, env.presence.Snapshot("alice"))

	// When the away user produces activity
	env.presence.OnActivity("alice")

	// Then the stored state is online again and the promotion was broadcast
	req.Equal(domain.PresenceOnline, env.presence.Snapshot("alice"))
	transitions := statusEvents(env)
	req.Equal(domain.PresenceOnline, transitions[len(transitions)-1].State)
}

func Test_Presence_LastSeen_Persistence_Failure_Is_Swallowed(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	// Given a user the repository has never seen, the touch fails internally
	env.presence.OnConnect("ghost")

	// Then presence still tracks the in-memory state
	req.Equal(domain.PresenceOnline, env.presence.Snapshot("ghost"))
}
