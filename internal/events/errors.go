package events

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNotOwner      = errors.New("only the owner can modify this event")
)
