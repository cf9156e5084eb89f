package errors

import "fmt"

var (
	ErrUnauthorized   = fmt.Errorf("actor is not allowed to perform this operation")
	ErrNotFound       = fmt.Errorf("entity not found")
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrInvalidContent = fmt.Errorf("message content is empty")
	ErrAlreadyDeleted = fmt.Errorf("message already deleted")
	ErrAlreadyMember  = fmt.Errorf("user is already a member")
	ErrMessageDeleted = fmt.Errorf("target message is deleted")
	ErrLastMember     = fmt.Errorf("conversation must keep at least one member")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
)
