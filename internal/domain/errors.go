package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("username or email already exists")
	ErrWrongPassword   = errors.New("wrong password")
	ErrEmptyMessage    = errors.New("empty message")
	ErrMessageTooLong  = errors.New("message too long")
	ErrNotAuthorized   = errors.New("actor is not the message author")
)
