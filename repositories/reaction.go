//go:generate go run go.uber.org/mock/mockgen -source=reaction.go -destination=../mocks/mock_reaction_aggregator.go -package=mocks
package repositories

import (
	"github.com/poryaazizi7428/global-private-messenger/domain"
	"github.com/poryaazizi7428/global-private-messenger/errors"
)

type IReactionAggregator interface {
	React(messageID uint64, emoji string) (domain.Message, error)
}

// ReactionAggregator layers per-message emoji counters on the message store.
// Counters live inside the message record, so an increment is one atomic
// read-modify-write on that record and two concurrent reactions on the same
// (message, emoji) pair both land.
//
// Counts carry no per-user attribution: a user cannot un-react and nothing
// stops the same user from incrementing the same emoji twice.
type ReactionAggregator struct {
	messages IMessageRepository
}

func NewReactionAggregator(messages IMessageRepository) ReactionAggregator {
	return ReactionAggregator{messages: messages}
}

// React increments the counter for (messageID, emoji) and returns the updated
// message. Reacting to a soft-deleted message is rejected.
func (r ReactionAggregator) React(messageID uint64, emoji string) (domain.Message, error) {
	if emoji == "" {
		return domain.Message{}, errors.ErrInvalidInput
	}
	return r.messages.Mutate(messageID, func(msg *domain.Message) error {
		if msg.IsDeleted {
			return errors.ErrMessageDeleted
		}
		if msg.Reactions == nil {
			msg.Reactions = make(map[string]int)
		}
		msg.Reactions[emoji]++
		return nil
	})
}
