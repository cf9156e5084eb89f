package domain

import "time"

// User is reference data owned by the auth collaborator.
// The core only reads it and moves LastSeen forward.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}
