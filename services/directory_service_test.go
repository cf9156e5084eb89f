package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

func Test_CreateConversation_Skips_Unknown_Members(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	env.saveUsers(t, "alice", "bob")

	// When creating with one real and one unknown member id
	conversation, err := env.directory.CreateConversation(context.Background(), domain.CreateConversationCommand{
		ActorID:   "alice",
		Title:     "team",
		IsGroup:   true,
		MemberIDs: []string{"bob", "ghost"},
	})
	req.NoError(err)

	// Then the unknown id was silently skipped
	req.Len(conversation.Members, 2)
	req.True(conversation.IsMember("alice"))
	req.True(conversation.IsMember("bob"))
	req.False(conversation.IsMember("ghost"))
	req.Equal("alice", conversation.CreatorID)
}

func Test_CreateConversation_Unknown_Creator_Rejected(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	_, err := env.directory.CreateConversation(context.Background(), domain.CreateConversationCommand{
		ActorID: "nobody",
		Title:   "void",
	})
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_AddMember_Rules(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.saveUsers(t, "alice", "bob", "clara", "mallory")
	conversation := env.createConversation(t, "alice", "bob")

	// A non-member cannot invite
	_, err := env.directory.AddMember(ctx, "mallory", conversation.ID, "clara")
	req.ErrorIs(err, errors.ErrUnauthorized)

	// A member can
	updated, err := env.directory.AddMember(ctx, "bob", conversation.ID, "clara")
	req.NoError(err)
	req.True(updated.IsMember("clara"))

	// Adding again is a duplicate
	_, err = env.directory.AddMember(ctx, "alice", conversation.ID, "clara")
	req.ErrorIs(err, errors.ErrAlreadyMember)

	// Unknown users cannot be added at all
	_, err = env.directory.AddMember(ctx, "alice", conversation.ID, "ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	// The successful add was broadcast to the room and the new member
	events := env.publisher.all()
	req.Len(events, 1)
	joined := events[0].(event.MembershipEvent)
	req.Equal("user_joined", joined.Name())
	req.Equal("clara", joined.UserID)
	req.Contains(joined.Rooms(), domain.UserRoom("clara"))
	req.Contains(joined.Rooms(), domain.ConversationRoom(conversation.ID))
}

func Test_RemoveMember_Rules(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.saveUsers(t, "alice", "bob", "clara")
	conversation := env.createConversation(t, "alice", "bob", "clara")

	// A stranger to the pair cannot remove someone else
	_, err := env.directory.RemoveMember(ctx, "bob", conversation.ID, "clara")
	req.ErrorIs(err, errors.ErrUnauthorized)

	// Self-leave is allowed
	updated, err := env.directory.RemoveMember(ctx, "clara", conversation.ID, "clara")
	req.NoError(err)
	req.False(updated.IsMember("clara"))

	// The creator can remove anyone
	updated, err = env.directory.RemoveMember(ctx, "alice", conversation.ID, "bob")
	req.NoError(err)
	req.False(updated.IsMember("bob"))

	// Removing a non-member fails
	_, err = env.directory.RemoveMember(ctx, "alice", conversation.ID, "bob")
	req.ErrorIs(err, errors.ErrNotFound)

	// The last member cannot be removed
	_, err = env.directory.RemoveMember(ctx, "alice", conversation.ID, "alice")
	req.ErrorIs(err, errors.ErrLastMember)
}

func Test_UpdateMetadata_Creator_Only(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.saveUsers(t, "alice", "bob")
	conversation := env.createConversation(t, "alice", "bob")

	title := "renamed"
	_, err := env.directory.UpdateMetadata(ctx, "bob", conversation.ID, domain.MetadataPatch{Title: &title})
	req.ErrorIs(err, errors.ErrUnauthorized)

	description := "the room formerly known as test"
	updated, err := env.directory.UpdateMetadata(ctx, "alice", conversation.ID, domain.MetadataPatch{
		Title:       &title,
		Description: &description,
	})
	req.NoError(err)
	req.Equal("renamed", updated.Title)
	req.Equal(description, updated.Description)
	req.True(updated.UpdatedAt.After(conversation.UpdatedAt) || updated.UpdatedAt.Equal(conversation.UpdatedAt))
}

func Test_IsMember_And_ListForUser(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	env.saveUsers(t, "alice", "bob")
	conversation := env.createConversation(t, "alice", "bob")
	_ = env.createConversation(t, "bob")

	member, err := env.directory.IsMember(conversation.ID, "alice")
	req.NoError(err)
	req.True(member)

	member, err = env.directory.IsMember(conversation.ID, "ghost")
	req.NoError(err)
	req.False(member)

	conversations, err := env.directory.ListForUser("alice")
	req.NoError(err)
	req.Len(conversations, 1)

	conversations, err = env.directory.ListForUser("bob")
	req.NoError(err)
	req.Len(conversations, 2)
}
