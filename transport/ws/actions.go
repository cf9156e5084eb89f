package ws

import "encoding/json"

// Envelope is the wire frame for both directions: inbound carries an action
// name plus payload, outbound an event name plus payload.
type Envelope struct {
	Action string          `json:"action,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Inbound action payloads. Validation tags are enforced before any service
// call; the actor identity never travels in the payload, it is bound to the
// connection at upgrade time by the auth collaborator.

type SendMessagePayload struct {
	ConversationID string             `json:"conversation_id" validate:"required"`
	Content        string             `json:"content" validate:"max=4096"`
	Type           string             `json:"type" validate:"omitempty,oneof=text attachment"`
	Attachment     *AttachmentPayload `json:"attachment,omitempty" validate:"omitempty"`
}

type AttachmentPayload struct {
	URL  string `json:"url" validate:"required"`
	Name string `json:"name" validate:"required"`
	Size int64  `json:"size" validate:"gte=0"`
}

type EditMessagePayload struct {
	MessageID uint64 `json:"message_id" validate:"required"`
	Content   string `json:"content" validate:"required,max=4096"`
}

type DeleteMessagePayload struct {
	MessageID uint64 `json:"message_id" validate:"required"`
}

type ReactPayload struct {
	MessageID uint64 `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type ConversationPayload struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// Outbound ack for persistence-affecting actions: the client always learns
// whether its write landed.
type AckPayload struct {
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
