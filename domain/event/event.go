// Package event defines the domain events fanned out to live connections.
// Events are plain values, safe to copy, and carry their own routing.
package event

import (
	"github.com/poryaazizi7428/global-private-messenger/domain"
)

// DomainEvent is anything the router can deliver to subscribed connections.
type DomainEvent interface {
	// Name is the wire-level event name seen by clients.
	Name() string
	// Rooms lists every room the event must be delivered to.
	Rooms() []domain.RoomID
}

// OriginTagged is implemented by events that must not be echoed back
// to the connection that produced them, typing signals in particular.
type OriginTagged interface {
	OriginConnection() string
}

// MessageEvent re-emits the full message representation after any
// lifecycle change: created, edited, deleted or reacted-to.
type MessageEvent struct {
	EventName  string         `json:"-"`
	Message    domain.Message `json:"message"`
	SenderName string         `json:"sender_name,omitempty"`
}

func (e MessageEvent) Name() string { return e.EventName }

func (e MessageEvent) Rooms() []domain.RoomID {
	return []domain.RoomID{domain.ConversationRoom(e.Message.ConversationID)}
}

func NewMessage(msg domain.Message, senderName string) MessageEvent {
	return MessageEvent{EventName: "new_message", Message: msg, SenderName: senderName}
}

func MessageEdited(msg domain.Message, senderName string) MessageEvent {
	return MessageEvent{EventName: "message_edited", Message: msg, SenderName: senderName}
}

func MessageDeleted(msg domain.Message, senderName string) MessageEvent {
	return MessageEvent{EventName: "message_deleted", Message: msg, SenderName: senderName}
}

func MessageReacted(msg domain.Message, senderName string) MessageEvent {
	return MessageEvent{EventName: "message_reacted", Message: msg, SenderName: senderName}
}

// MembershipEvent signals a user joining or leaving a conversation.
// Delivered to the conversation room and to the affected user's own room,
// so a user removed while not viewing the conversation still learns about it.
type MembershipEvent struct {
	EventName      string `json:"-"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

func (e MembershipEvent) Name() string { return e.EventName }

func (e MembershipEvent) Rooms() []domain.RoomID {
	return []domain.RoomID{
		domain.ConversationRoom(e.ConversationID),
		domain.UserRoom(e.UserID),
	}
}

func UserJoined(userID, conversationID string) MembershipEvent {
	return MembershipEvent{EventName: "user_joined", UserID: userID, ConversationID: conversationID}
}

func UserLeft(userID, conversationID string) MembershipEvent {
	return MembershipEvent{EventName: "user_left", UserID: userID, ConversationID: conversationID}
}

// StatusChanged announces a presence transition to every conversation
// the user belongs to.
type StatusChanged struct {
	UserID string               `json:"user_id"`
	State  domain.PresenceState `json:"state"`
	// TargetRooms is resolved when the event is built; presence has no
	// single owning conversation.
	TargetRooms []domain.RoomID `json:"-"`
}

func (e StatusChanged) Name() string           { return "status_changed" }
func (e StatusChanged) Rooms() []domain.RoomID { return e.TargetRooms }

// TypingEvent is ephemeral: never persisted, best-effort delivery,
// and never echoed to the originating connection.
type TypingEvent struct {
	EventName      string `json:"-"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Origin         string `json:"-"`
}

func (e TypingEvent) Name() string { return e.EventName }

func (e TypingEvent) Rooms() []domain.RoomID {
	return []domain.RoomID{domain.ConversationRoom(e.ConversationID)}
}

func (e TypingEvent) OriginConnection() string { return e.Origin }

func UserTyping(userID, conversationID, origin string) TypingEvent {
	return TypingEvent{EventName: "user_typing", UserID: userID, ConversationID: conversationID, Origin: origin}
}

func UserStopTyping(userID, conversationID, origin string) TypingEvent {
	return TypingEvent{EventName: "user_stop_typing", UserID: userID, ConversationID: conversationID, Origin: origin}
}
