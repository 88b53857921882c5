package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const networkIDLength = 21

// NewNetworkID returns a random identifier for one network build.
func NewNetworkID() string {
	id, err := gonanoid.New(networkIDLength)
	if err != nil {
		// crypto/rand failures are not recoverable here
		panic(err)
	}
	return id
}

// IsNetworkID reports whether s has the shape of an id from NewNetworkID.
func IsNetworkID(s string) bool {
	if len(s) != networkIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
