package repositories

import (
	goerrors "errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestMessageRepository(t *testing.T) MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(openTestDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func Test_Append_Multiple_Messages_Ordered(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	conversationID := "conv-1"
	at := time.Now().UTC()

	// Given three messages appended in order
	senders := []string{"alice", "bob", "clara"}
	for i, sender := range senders {
		_, err := repository.Append(domain.Message{
			ConversationID: conversationID,
			SenderID:       sender,
			Content:        fmt.Sprintf("message %d", i),
			Type:           domain.MessageTypeText,
			CreatedAt:      at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	// When listing the transcript
	messages, err := repository.List(conversationID, 1, 10)
	req.NoError(err)

	// Then they come back chronologically with strictly increasing ids
	req.Len(messages, 3)
	for i, message := range messages {
		req.Equal(senders[i], message.SenderID)
		req.Equal(uint64(i+1), message.ID)
	}
}

func Test_Append_Same_Timestamp_Tie_Broken_By_Id(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	conversationID := "conv-tie"
	at := time.Now().UTC()

	// Given two messages sharing the exact same timestamp
	first, err := repository.Append(domain.Message{
		ConversationID: conversationID, SenderID: "alice", Content: "first", CreatedAt: at,
	})
	req.NoError(err)
	second, err := repository.Append(domain.Message{
		ConversationID: conversationID, SenderID: "bob", Content: "second", CreatedAt: at,
	})
	req.NoError(err)
	req.Greater(second.ID, first.ID)

	// Then the lower id sorts first
	messages, err := repository.List(conversationID, 1, 10)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal(first.ID, messages[0].ID)
	req.Equal(second.ID, messages[1].ID)
}

func Test_List_Pages_Concatenate_To_Full_Transcript(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	conversationID := "conv-pages"
	at := time.Now().UTC()
	total := 7
	pageSize := 3

	for i := 0; i < total; i++ {
		_, err := repository.Append(domain.Message{
			ConversationID: conversationID,
			SenderID:       "alice",
			Content:        fmt.Sprintf("message %d", i),
			CreatedAt:      at.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
	}

	// When fetching page after page, pages hold no duplicates and no gaps.
	// Page 1 is the newest slice of the transcript.
	var seen []uint64
	for page := 1; ; page++ {
		messages, err := repository.List(conversationID, page, pageSize)
		req.NoError(err)
		if len(messages) == 0 {
			break
		}
		for _, message := range messages {
			seen = append(seen, message.ID)
		}
	}

	req.Len(seen, total)
	req.Equal([]uint64{5, 6, 7, 2, 3, 4, 1}, seen)
}

func Test_List_Rejects_Invalid_Pagination(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	_, err := repository.List("conv-1", 0, 10)
	req.ErrorIs(err, errors.ErrInvalidInput)

	_, err = repository.List("conv-1", 1, 0)
	req.ErrorIs(err, errors.ErrInvalidInput)
}

func Test_Edit_Rewrites_Content_And_Flags(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	message, err := repository.Append(domain.Message{
		ConversationID: "conv-1", SenderID: "alice", Content: "helo", CreatedAt: time.Now().UTC(),
	})
	req.NoError(err)

	editedAt := time.Now().UTC()
	edited, err := repository.Edit(message.ID, "hello", editedAt)
	req.NoError(err)

	req.Equal("hello", edited.Content)
	req.True(edited.IsEdited)
	req.NotNil(edited.EditedAt)
	req.Equal(message.ID, edited.ID)
	req.Equal(message.CreatedAt.UnixNano(), edited.CreatedAt.UnixNano())

	fetched, err := repository.Get(message.ID)
	req.NoError(err)
	req.Equal("hello", fetched.Content)
}

func Test_SoftDelete_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	message, err := repository.Append(domain.Message{
		ConversationID: "conv-1", SenderID: "alice", Content: "secret", CreatedAt: time.Now().UTC(),
	})
	req.NoError(err)

	// When deleting twice
	deleted, err := repository.SoftDelete(message.ID)
	req.NoError(err)
	again, err := repository.SoftDelete(message.ID)
	req.NoError(err)

	// Then both calls succeed, the row survives tombstoned with empty content
	req.True(deleted.IsDeleted)
	req.Empty(deleted.Content)
	req.Equal(deleted, again)

	messages, err := repository.List("conv-1", 1, 10)
	req.NoError(err)
	req.Len(messages, 1)
	req.True(messages[0].IsDeleted)
}

func Test_Edit_After_Delete_Fails(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	message, err := repository.Append(domain.Message{
		ConversationID: "conv-1", SenderID: "alice", Content: "bye", CreatedAt: time.Now().UTC(),
	})
	req.NoError(err)
	_, err = repository.SoftDelete(message.ID)
	req.NoError(err)

	_, err = repository.Edit(message.ID, "resurrected", time.Now().UTC())
	req.True(goerrors.Is(err, errors.ErrAlreadyDeleted))
}

func Test_Get_Unknown_Message_Is_NotFound(t *testing.T) {
	req := require.New(t)
	repository := newTestMessageRepository(t)

	_, err := repository.Get(42)
	req.ErrorIs(err, errors.ErrNotFound)
}
