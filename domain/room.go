package domain

// RoomID names a fan-out group a live connection can subscribe to.
// A connection holds one room per conversation it may see plus one
// personal room keyed by its user id.
type RoomID string

func ConversationRoom(conversationID string) RoomID {
	return RoomID("conversation:" + conversationID)
}

func UserRoom(userID string) RoomID {
	return RoomID("user:" + userID)
}
