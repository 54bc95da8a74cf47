package auth

import (
	"crypto/subtle"

	"github.com/google/uuid"
)

const maxDeviceTokenLength = 255

// NewToken returns a fresh random token. Used for auth tokens and for device
// tokens the client did not supply.
func NewToken() string {
	return uuid.NewString()
}

// secretMatches compares the provided app secret in constant time. An empty
// provided value never matches.
func secretMatches(expected, provided string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
