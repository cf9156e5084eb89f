package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/repositories"
)

// capturePublisher records every published event in arrival order.
type capturePublisher struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (p *capturePublisher) Publish(ctx context.Context, e event.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) TryPublish(e event.DomainEvent) {
	_ = p.Publish(context.Background(), e)
}

func (p *capturePublisher) all() []event.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.DomainEvent{}, p.events...)
}

func (p *capturePublisher) names() []string {
	events := p.all()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name()
	}
	return names
}

type testEnv struct {
	chat      *ChatService
	directory *DirectoryService
	presence  *PresenceTracker
	publisher *capturePublisher
	users     repositories.UserRepository
	messages  repositories.MessageRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	messages, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	conversations := repositories.NewConversationRepository(db)
	users := repositories.NewUserRepository(db)
	reactions := repositories.NewReactionAggregator(messages)

	publisher := &capturePublisher{}
	presence := NewPresenceTracker(log, users, conversations, publisher, 5*time.Minute)
	directory := NewDirectoryService(log, conversations, users, publisher)
	chat := NewChatService(log, messages, conversations, users, reactions, publisher, presence)

	return &testEnv{
		chat:      chat,
		directory: directory,
		presence:  presence,
		publisher: publisher,
		users:     users,
		messages:  messages,
	}
}

func (e *testEnv) saveUsers(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, e.users.SaveUser(domain.User{
			ID:          id,
			Username:    id,
			DisplayName: id,
			CreatedAt:   time.Now().UTC(),
		}))
	}
}

func (e *testEnv) createConversation(t *testing.T, creatorID string, memberIDs ...string) domain.Conversation {
	t.Helper()
	conversation, err := e.directory.CreateConversation(context.Background(), domain.CreateConversationCommand{
		ActorID:   creatorID,
		Title:     "test conversation",
		IsGroup:   len(memberIDs) > 1,
		MemberIDs: memberIDs,
	})
	require.NoError(t, err)
	return conversation
}
