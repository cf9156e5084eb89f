//go:generate go run go.uber.org/mock/mockgen -source=directory_service.go -destination=../mocks/mock_directory_service.go -package=mocks
package services

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/errors"
	"github.com/poryaazizi7428/global-private-messenger/repositories"
)

type IDirectoryService interface {
	CreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, error)
	AddMember(ctx context.Context, actorID, conversationID, userID string) (domain.Conversation, error)
	RemoveMember(ctx context.Context, actorID, conversationID, userID string) (domain.Conversation, error)
	UpdateMetadata(ctx context.Context, actorID, conversationID string, patch domain.MetadataPatch) (domain.Conversation, error)
	IsMember(conversationID, userID string) (bool, error)
	ListForUser(userID string) ([]domain.Conversation, error)
}

// DirectoryService owns conversation records and their membership sets.
// It is the authorization gate every other component consults before
// touching a conversation's messages.
type DirectoryService struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	publisher     contract.EventPublisher
}

func NewDirectoryService(log *slog.Logger, conversations repositories.IConversationRepository,
	users repositories.IUserRepository, publisher contract.EventPublisher) *DirectoryService {
	return &DirectoryService{log: log, conversations: conversations, users: users, publisher: publisher}
}

// CreateConversation creates the record with the actor as first member, then
// adds each requested id that resolves to a real user and is not already
// present. Unknown ids are silently skipped; the returned membership set is
// the only signal of what was actually added.
func (s *DirectoryService) CreateConversation(ctx context.Context, cmd domain.CreateConversationCommand) (domain.Conversation, error) {
	if _, err := s.users.GetUser(cmd.ActorID); err != nil {
		return domain.Conversation{}, fmt.Errorf("creator: %w", err)
	}

	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     cmd.Title,
		IsGroup:   cmd.IsGroup,
		CreatorID: cmd.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
		Members:   map[string]time.Time{cmd.ActorID: now},
	}

	for _, memberID := range cmd.MemberIDs {
		if conversation.IsMember(memberID) {
			continue
		}
		if _, err := s.users.GetUser(memberID); err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				s.log.Debug("Skipping unknown member id", "user_id", memberID)
				continue
			}
			return domain.Conversation{}, err
		}
		conversation.Members[memberID] = now
	}

	if err := withStoreRetry(func() error {
		return s.conversations.Create(conversation)
	}); err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// AddMember inserts a new member. Only existing members may invite.
func (s *DirectoryService) AddMember(ctx context.Context, actorID, conversationID, userID string) (domain.Conversation, error) {
	if _, err := s.users.GetUser(userID); err != nil {
		return domain.Conversation{}, err
	}

	conversation, err := s.conversations.Mutate(conversationID, func(conv *domain.Conversation) error {
		if !conv.IsMember(actorID) {
			return errors.ErrUnauthorized
		}
		if conv.IsMember(userID) {
			return errors.ErrAlreadyMember
		}
		now := time.Now().UTC()
		conv.Members[userID] = now
		conv.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}

	if err := s.publisher.Publish(ctx, event.UserJoined(userID, conversationID)); err != nil {
		s.log.Warn("Membership event dropped", "conversation_id", conversationID, "error", err)
	}
	return conversation, nil
}

// RemoveMember takes a member out. Allowed for the creator and for the user
// leaving on their own. A conversation never loses its last member.
func (s *DirectoryService) RemoveMember(ctx context.Context, actorID, conversationID, userID string) (domain.Conversation, error) {
	conversation, err := s.conversations.Mutate(conversationID, func(conv *domain.Conversation) error {
		if actorID != conv.CreatorID && actorID != userID {
			return errors.ErrUnauthorized
		}
		if !conv.IsMember(userID) {
			return fmt.Errorf("member %s: %w", userID, errors.ErrNotFound)
		}
		if len(conv.Members) == 1 {
			return errors.ErrLastMember
		}
		delete(conv.Members, userID)
		conv.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}

	if err := s.publisher.Publish(ctx, event.UserLeft(userID, conversationID)); err != nil {
		s.log.Warn("Membership event dropped", "conversation_id", conversationID, "error", err)
	}
	return conversation, nil
}

// UpdateMetadata edits title/description. Creator only.
func (s *DirectoryService) UpdateMetadata(ctx context.Context, actorID, conversationID string, patch domain.MetadataPatch) (domain.Conversation, error) {
	return s.conversations.Mutate(conversationID, func(conv *domain.Conversation) error {
		if actorID != conv.CreatorID {
			return errors.ErrUnauthorized
		}
		if patch.Title != nil {
			conv.Title = *patch.Title
		}
		if patch.Description != nil {
			conv.Description = *patch.Description
		}
		conv.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (s *DirectoryService) IsMember(conversationID, userID string) (bool, error) {
	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return false, err
	}
	return conversation.IsMember(userID), nil
}

func (s *DirectoryService) ListForUser(userID string) ([]domain.Conversation, error) {
	return s.conversations.ListForUser(userID)
}
