// Package domain contains core concepts of the messenger.
// This file defines Message entities and related rules.
// Messages are mutated only through the repository layer.
package domain

import "time"

type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeAttachment MessageType = "attachment"
)

// AttachmentRef is an opaque pointer to a stored file.
// The file bytes themselves are owned by the upload collaborator.
type AttachmentRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Message is a single entry of a conversation transcript.
// Once created, ID, ConversationID, SenderID and CreatedAt never change.
type Message struct {
	ID             uint64         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Content        string         `json:"content"`
	Type           MessageType    `json:"type"`
	Attachment     *AttachmentRef `json:"attachment,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	IsEdited       bool           `json:"is_edited"`
	EditedAt       *time.Time     `json:"edited_at,omitempty"`
	IsDeleted      bool           `json:"is_deleted"`
	// Reactions maps an emoji to the number of times it was used.
	// There is no per-user attribution, a repeated reaction increments.
	Reactions map[string]int `json:"reactions,omitempty"`
}
