//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poryaazizi7428/global-private-messenger/contract"
	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/domain/event"
	"github.com/poryaazizi7428/global-private-messenger/errors"
	"github.com/poryaazizi7428/global-private-messenger/repositories"
)

type IChatService interface {
	SendMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	EditMessage(ctx context.Context, cmd domain.EditMessageCommand) (domain.Message, error)
	DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) (domain.Message, error)
	React(ctx context.Context, cmd domain.ReactCommand) (domain.Message, error)
	ListMessages(cmd domain.ListMessagesCommand) ([]domain.Message, error)
	StartTyping(actorID, conversationID, originConnection string) error
	StopTyping(actorID, conversationID, originConnection string) error
}

// ChatService drives the message lifecycle. Every operation first validates
// authorization against the conversation's membership, then mutates the
// store, then fans the resulting event out.
//
// Mutations of a single conversation are serialized through a per-conversation
// lock held across append-and-publish, so the order committed to the store is
// the order entering the broadcast pipeline.
type ChatService struct {
	log           *slog.Logger
	messages      repositories.IMessageRepository
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	reactions     repositories.IReactionAggregator
	publisher     contract.EventPublisher
	presence      *PresenceTracker
	convLocks     *keyedMutex
}

func NewChatService(log *slog.Logger,
	messages repositories.IMessageRepository,
	conversations repositories.IConversationRepository,
	users repositories.IUserRepository,
	reactions repositories.IReactionAggregator,
	publisher contract.EventPublisher,
	presence *PresenceTracker) *ChatService {
	return &ChatService{
		log:           log,
		messages:      messages,
		conversations: conversations,
		users:         users,
		reactions:     reactions,
		publisher:     publisher,
		presence:      presence,
		convLocks:     newKeyedMutex(),
	}
}

// SendMessage appends to the conversation's transcript and broadcasts
// new_message to its room. The caller always gets an explicit success or
// failure for the persisted write.
func (s *ChatService) SendMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := s.requireMember(cmd.ConversationID, cmd.ActorID); err != nil {
		return domain.Message{}, err
	}
	if err := validateContent(cmd); err != nil {
		return domain.Message{}, err
	}

	unlock := s.convLocks.Lock(cmd.ConversationID)
	defer unlock()

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	message := domain.Message{
		ConversationID: cmd.ConversationID,
		SenderID:       cmd.ActorID,
		Content:        cmd.Content,
		Type:           cmd.Type,
		Attachment:     cmd.Attachment,
		CreatedAt:      createdAt,
	}

	var persisted domain.Message
	err := withStoreRetry(func() error {
		var err error
		persisted, err = s.messages.Append(message)
		return err
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}

	if s.presence != nil {
		s.presence.OnActivity(cmd.ActorID)
	}
	s.publishMessage(ctx, event.NewMessage(persisted, s.senderName(persisted.SenderID)))
	return persisted, nil
}

// EditMessage rewrites content. Sender only; deleted messages reject edits.
func (s *ChatService) EditMessage(ctx context.Context, cmd domain.EditMessageCommand) (domain.Message, error) {
	message, err := s.messages.Get(cmd.MessageID)
	if err != nil {
		return domain.Message{}, err
	}
	if message.SenderID != cmd.ActorID {
		return domain.Message{}, errors.ErrUnauthorized
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, errors.ErrInvalidContent
	}

	unlock := s.convLocks.Lock(message.ConversationID)
	defer unlock()

	var edited domain.Message
	err = withStoreRetry(func() error {
		var err error
		edited, err = s.messages.Edit(cmd.MessageID, cmd.Content, time.Now().UTC())
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}

	s.publishMessage(ctx, event.MessageEdited(edited, s.senderName(edited.SenderID)))
	return edited, nil
}

// DeleteMessage soft-deletes: the row keeps its identity, the content goes.
// Deleting an already-deleted message returns current state without error
// and without re-broadcasting.
func (s *ChatService) DeleteMessage(ctx context.Context, cmd domain.DeleteMessageCommand) (domain.Message, error) {
	message, err := s.messages.Get(cmd.MessageID)
	if err != nil {
		return domain.Message{}, err
	}
	if message.SenderID != cmd.ActorID {
		return domain.Message{}, errors.ErrUnauthorized
	}

	unlock := s.convLocks.Lock(message.ConversationID)
	defer unlock()

	if message.IsDeleted {
		return message, nil
	}

	var deleted domain.Message
	err = withStoreRetry(func() error {
		var err error
		deleted, err = s.messages.SoftDelete(cmd.MessageID)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}

	s.publishMessage(ctx, event.MessageDeleted(deleted, s.senderName(deleted.SenderID)))
	return deleted, nil
}

// React increments the (message, emoji) counter and re-emits the message.
// Any member of the owning conversation may react.
func (s *ChatService) React(ctx context.Context, cmd domain.ReactCommand) (domain.Message, error) {
	message, err := s.messages.Get(cmd.MessageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.requireMember(message.ConversationID, cmd.ActorID); err != nil {
		return domain.Message{}, err
	}

	var reacted domain.Message
	err = withStoreRetry(func() error {
		var err error
		reacted, err = s.reactions.React(cmd.MessageID, cmd.Emoji)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}

	if s.presence != nil {
		s.presence.OnActivity(cmd.ActorID)
	}
	s.publishMessage(ctx, event.MessageReacted(reacted, s.senderName(reacted.SenderID)))
	return reacted, nil
}

// ListMessages returns one page of the transcript, oldest first within the
// page. Members only.
func (s *ChatService) ListMessages(cmd domain.ListMessagesCommand) ([]domain.Message, error) {
	if err := s.requireMember(cmd.ConversationID, cmd.ActorID); err != nil {
		return nil, err
	}
	return s.messages.List(cmd.ConversationID, cmd.Page, cmd.PageSize)
}

// StartTyping broadcasts an ephemeral typing signal to the conversation's
// room, excluding the originating connection. No persistence, no delivery
// guarantee.
func (s *ChatService) StartTyping(actorID, conversationID, originConnection string) error {
	if err := s.requireMember(conversationID, actorID); err != nil {
		return err
	}
	s.publisher.TryPublish(event.UserTyping(actorID, conversationID, originConnection))
	return nil
}

func (s *ChatService) StopTyping(actorID, conversationID, originConnection string) error {
	if err := s.requireMember(conversationID, actorID); err != nil {
		return err
	}
	s.publisher.TryPublish(event.UserStopTyping(actorID, conversationID, originConnection))
	return nil
}

func (s *ChatService) requireMember(conversationID, userID string) error {
	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return err
	}
	if !conversation.IsMember(userID) {
		return errors.ErrUnauthorized
	}
	return nil
}

func (s *ChatService) publishMessage(ctx context.Context, evt event.MessageEvent) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("Message event not published",
			"event", evt.Name(),
			"message_id", evt.Message.ID,
			"error", err)
	}
}

// senderName resolves the display name embedded in message events.
// Resolution failures degrade to an empty name rather than failing the send.
func (s *ChatService) senderName(userID string) string {
	user, err := s.users.GetUser(userID)
	if err != nil {
		if !goerrors.Is(err, errors.ErrNotFound) {
			s.log.Debug("Sender name lookup failed", "user_id", userID, "error", err)
		}
		return ""
	}
	return user.DisplayName
}

func validateContent(cmd domain.PostMessageCommand) error {
	switch cmd.Type {
	case domain.MessageTypeText:
		if strings.TrimSpace(cmd.Content) == "" && cmd.Attachment == nil {
			return errors.ErrInvalidContent
		}
	case domain.MessageTypeAttachment:
		if cmd.Attachment == nil {
			return fmt.Errorf("%w: attachment message without attachment", errors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown message type %q", errors.ErrInvalidInput, cmd.Type)
	}
	return nil
}
