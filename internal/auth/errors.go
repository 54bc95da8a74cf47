package auth

import "errors"

var (
	ErrInvalidAppSecret   = errors.New("invalid app secret")
	ErrInvalidDeviceToken = errors.New("invalid device token")
	ErrUnauthorized       = errors.New("unauthorized")
)
