package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

func Test_SaveUser_And_GetUser(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	user := domain.User{
		ID:          "alice",
		Username:    "alice",
		DisplayName: "Alice C.",
		CreatedAt:   time.Now().UTC(),
	}
	req.NoError(repository.SaveUser(user))

	fetched, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal("Alice C.", fetched.DisplayName)

	_, err = repository.GetUser("nobody")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ListUsers_Excludes_Requester(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	for _, id := range []string{"alice", "bob", "clara"} {
		req.NoError(repository.SaveUser(domain.User{ID: id, Username: id}))
	}

	users, err := repository.ListUsers("bob")
	req.NoError(err)
	req.Len(users, 2)
	for _, user := range users {
		req.NotEqual("bob", user.ID)
	}
}

func Test_TouchLastSeen_Only_Moves_Forward(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	at := time.Now().UTC()
	req.NoError(repository.SaveUser(domain.User{ID: "alice", Username: "alice", LastSeen: at}))

	// When touching with a newer then an older timestamp
	req.NoError(repository.TouchLastSeen("alice", at.Add(time.Minute)))
	req.NoError(repository.TouchLastSeen("alice", at.Add(-time.Hour)))

	// Then only the newer one sticks
	fetched, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal(at.Add(time.Minute).UnixNano(), fetched.LastSeen.UnixNano())
}
