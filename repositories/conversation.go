//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

type IConversationRepository interface {
	Create(conversation domain.Conversation) error
	Get(conversationID string) (domain.Conversation, error)
	Mutate(conversationID string, fn func(*domain.Conversation) error) (domain.Conversation, error)
	ListForUser(userID string) ([]domain.Conversation, error)
}

// ConversationRepository persists conversation records, membership included,
// as single Badger values. Membership edits are read-modify-write cycles on
// the whole record, which Badger serializes via conflict detection.
type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) ConversationRepository {
	return ConversationRepository{db: db}
}

func conversationKey(id string) []byte {
	return []byte("conv:" + id)
}

func (c ConversationRepository) Create(conversation domain.Conversation) error {
	bytes, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		key := conversationKey(conversation.ID)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("conversation %s already exists: %w", conversation.ID, errors.ErrInvalidInput)
		}
		return txn.Set(key, bytes)
	})
}

func (c ConversationRepository) Get(conversationID string) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(conversationID))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("conversation %s: %w", conversationID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &conversation)
		})
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// Mutate applies fn to the stored record atomically and returns the updated
// conversation. fn returning an error aborts the write untouched.
func (c ConversationRepository) Mutate(conversationID string, fn func(*domain.Conversation) error) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := updateWithRetry(c.db, func(txn *badger.Txn) error {
		key := conversationKey(conversationID)
		item, err := txn.Get(key)
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("conversation %s: %w", conversationID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var conv domain.Conversation
		if err = item.Value(func(v []byte) error {
			return json.Unmarshal(v, &conv)
		}); err != nil {
			return err
		}
		if err = fn(&conv); err != nil {
			return err
		}
		bytes, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		if err = txn.Set(key, bytes); err != nil {
			return err
		}
		conversation = conv
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// ListForUser scans the conversation prefix and keeps records the user
// belongs to. The conversation set is small enough that a prefix scan
// beats maintaining a per-user index.
func (c ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("conv:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var conv domain.Conversation
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &conv)
			})
			if err != nil {
				return err
			}
			if conv.IsMember(userID) {
				conversations = append(conversations, conv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conversations, nil
}
