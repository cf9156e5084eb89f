package domain

import (
	"time"

	"github.com/samber/lo"
)

// Conversation owns its membership set. Conversations are never hard-deleted,
// only their messages soft-delete.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsGroup     bool      `json:"is_group"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Members maps a user id to the time it joined. A user appears at most once.
	Members map[string]time.Time `json:"members"`
}

func (c Conversation) IsMember(userID string) bool {
	_, ok := c.Members[userID]
	return ok
}

// MemberIDs returns the current membership as a plain slice, order unspecified.
func (c Conversation) MemberIDs() []string {
	return lo.Keys(c.Members)
}

// MetadataPatch carries the mutable conversation fields.
// A nil pointer leaves the field untouched.
type MetadataPatch struct {
	Title       *string
	Description *string
}
