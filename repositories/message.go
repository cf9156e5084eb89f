//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Get(messageID uint64) (domain.Message, error)
	Edit(messageID uint64, newContent string, at time.Time) (domain.Message, error)
	SoftDelete(messageID uint64) (domain.Message, error)
	Mutate(messageID uint64, fn func(*domain.Message) error) (domain.Message, error)
	List(conversationID string, page, pageSize int) ([]domain.Message, error)
	Close() error
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

// NewMessageRepository reserves the message id sequence in Badger.
// Ids are process-wide and strictly increasing, so within one conversation
// the (created_at, id) pair totally orders the transcript.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:message"), 128)
	if err != nil {
		return MessageRepository{}, fmt.Errorf("message id sequence: %w", err)
	}
	return MessageRepository{db: db, log: log, seq: seq}, nil
}

// Close releases the unused part of the id sequence back to Badger.
func (m MessageRepository) Close() error {
	return m.seq.Release()
}

// Message keys are formatted as "msg:{conversation_id}:{timestamp_padded}:{id_padded}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Break timestamp ties deterministically with the padded message id.
//
// A secondary index "msgidx:{id_padded}" points at the primary key so that
// edit/delete/react can resolve a message from its id alone.
func messageKey(conversationID string, at time.Time, id uint64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%020d", conversationID, at.UnixNano(), id))
}

func messageIndexKey(id uint64) []byte {
	return []byte(fmt.Sprintf("msgidx:%020d", id))
}

// Append assigns the next message id and persists the message with its index
// entry in a single transaction. The caller owns CreatedAt.
func (m MessageRepository) Append(message domain.Message) (domain.Message, error) {
	id, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("next message id: %w", err)
	}
	// Sequences start at 0; message ids start at 1.
	message.ID = id + 1

	bytes, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}

	key := messageKey(message.ConversationID, message.CreatedAt, message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (m MessageRepository) Get(messageID uint64) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		message, _, err = getByID(txn, messageID)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// Edit rewrites the content of a live message. Deleted messages reject
// further edits.
func (m MessageRepository) Edit(messageID uint64, newContent string, at time.Time) (domain.Message, error) {
	return m.Mutate(messageID, func(msg *domain.Message) error {
		if msg.IsDeleted {
			return errors.ErrAlreadyDeleted
		}
		msg.Content = newContent
		msg.IsEdited = true
		msg.EditedAt = &at
		return nil
	})
}

// SoftDelete clears the content but keeps the row and its identity.
// Deleting an already-deleted message is a no-op returning current state.
func (m MessageRepository) SoftDelete(messageID uint64) (domain.Message, error) {
	return m.Mutate(messageID, func(msg *domain.Message) error {
		if msg.IsDeleted {
			return nil
		}
		msg.IsDeleted = true
		msg.Content = ""
		return nil
	})
}

// Mutate runs a read-modify-write cycle on one message inside a single
// transaction, retried on commit conflicts. The primary key never changes
// because CreatedAt and ID are immutable.
func (m MessageRepository) Mutate(messageID uint64, fn func(*domain.Message) error) (domain.Message, error) {
	var message domain.Message
	err := updateWithRetry(m.db, func(txn *badger.Txn) error {
		msg, key, err := getByID(txn, messageID)
		if err != nil {
			return err
		}
		if err = fn(&msg); err != nil {
			return err
		}
		bytes, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err = txn.Set(key, bytes); err != nil {
			return err
		}
		message = msg
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// List retrieves one page of a conversation's transcript.
// Pagination is newest-first at the storage layer (reverse iteration over the
// padded keys), then the page is re-ordered to chronological order to match a
// transcript view. Page numbering starts at 1.
func (m MessageRepository) List(conversationID string, page, pageSize int) ([]domain.Message, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page and page size must be positive", errors.ErrInvalidInput)
	}

	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", conversationID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible timestamp for this conversation.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		it.Seek(seekKey)

		skip := (page - 1) * pageSize
		for ; it.ValidForPrefix(prefix); it.Next() {
			if skip > 0 {
				skip--
				continue
			}
			if len(byteMessages) == pageSize {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse iteration yields newest first; flip to oldest first.
	messages := make([]domain.Message, len(byteMessages))
	for i, b := range byteMessages {
		var msg domain.Message
		if err = json.Unmarshal(b, &msg); err != nil {
			return nil, err
		}
		messages[len(messages)-1-i] = msg
	}
	return messages, nil
}

func getByID(txn *badger.Txn, messageID uint64) (domain.Message, []byte, error) {
	item, err := txn.Get(messageIndexKey(messageID))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, nil, fmt.Errorf("message %d: %w", messageID, errors.ErrNotFound)
	}
	if err != nil {
		return domain.Message{}, nil, err
	}

	var key []byte
	if err = item.Value(func(v []byte) error {
		key = append([]byte{}, v...)
		return nil
	}); err != nil {
		return domain.Message{}, nil, err
	}

	item, err = txn.Get(key)
	if err != nil {
		return domain.Message{}, nil, err
	}
	var message domain.Message
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &message)
	})
	return message, key, err
}
