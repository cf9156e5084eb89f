package sink

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poryaazizi7428/global-private-messenger/domain/event"
)

func Test_Consume_Delivers_In_Order(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(slog.Default(), 4)

	for i := 0; i < 3; i++ {
		evt := event.UserTyping(fmt.Sprintf("user-%d", i), "conv-1", "")
		req.NoError(s.Consume(context.Background(), evt))
	}

	for i := 0; i < 3; i++ {
		evt := <-s.Events
		req.Equal(fmt.Sprintf("user-%d", i), evt.(event.TypingEvent).UserID)
	}
}

func Test_Consume_Full_Queue_Drops_Oldest(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(slog.Default(), 2)

	// Given a full queue
	req.NoError(s.Consume(context.Background(), event.UserTyping("oldest", "conv-1", "")))
	req.NoError(s.Consume(context.Background(), event.UserTyping("middle", "conv-1", "")))

	// When one more event arrives
	req.NoError(s.Consume(context.Background(), event.UserTyping("newest", "conv-1", "")))

	// Then the oldest was dropped, the rest stayed in order
	first := <-s.Events
	second := <-s.Events
	req.Equal("middle", first.(event.TypingEvent).UserID)
	req.Equal("newest", second.(event.TypingEvent).UserID)
	req.Empty(s.Events)
}

func Test_Consume_After_Close_Is_Noop(t *testing.T) {
	req := require.New(t)
	s := NewConnectionSink(slog.Default(), 2)

	s.Close()
	// Closing twice must not panic either.
	s.Close()

	req.NoError(s.Consume(context.Background(), event.UserTyping("alice", "conv-1", "")))
	_, open := <-s.Events
	req.False(open)
}
