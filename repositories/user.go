//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

type IUserRepository interface {
	SaveUser(user domain.User) error
	GetUser(userID string) (domain.User, error)
	ListUsers(excludeID string) ([]domain.User, error)
	TouchLastSeen(userID string, at time.Time) error
}

// UserRepository holds read-mostly reference data owned by the auth
// collaborator. The core only writes LastSeen, and only forward.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}

func (u UserRepository) SaveUser(user domain.User) error {
	bytes, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), bytes)
	})
}

func (u UserRepository) GetUser(userID string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("user %s: %w", userID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) ListUsers(excludeID string) ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user domain.User
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &user)
			})
			if err != nil {
				return err
			}
			if user.ID != excludeID {
				users = append(users, user)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// TouchLastSeen moves LastSeen forward. An older timestamp is ignored so the
// invariant "last_seen only moves forward" holds under concurrent touches.
func (u UserRepository) TouchLastSeen(userID string, at time.Time) error {
	return updateWithRetry(u.db, func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("user %s: %w", userID, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var user domain.User
		if err = item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		}); err != nil {
			return err
		}
		if !at.After(user.LastSeen) {
			return nil
		}
		user.LastSeen = at
		bytes, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(userID), bytes)
	})
}
