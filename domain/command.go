package domain

import "time"

// Commands carried from the connection layer into the services.
// ActorID is an already-verified identity supplied by the auth collaborator.

type PostMessageCommand struct {
	ActorID        string
	ConversationID string
	Content        string
	Type           MessageType
	Attachment     *AttachmentRef
	CreatedAt      time.Time
}

type EditMessageCommand struct {
	ActorID   string
	MessageID uint64
	Content   string
}

type DeleteMessageCommand struct {
	ActorID   string
	MessageID uint64
}

type ReactCommand struct {
	ActorID   string
	MessageID uint64
	Emoji     string
}

type ListMessagesCommand struct {
	ActorID        string
	ConversationID string
	Page           int
	PageSize       int
}

type CreateConversationCommand struct {
	ActorID   string
	Title     string
	IsGroup   bool
	MemberIDs []string
}
