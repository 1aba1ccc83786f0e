// Package session carries the authenticated caller explicitly through the
// request instead of looking it up from a global auth client.
package session

import (
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when an operation needs a caller and none is present.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider names how the caller authenticated.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderFirebase Provider = "firebase"
)

// Caller identifies the user on whose behalf an operation runs.
type Caller struct {
	UID      string
	Email    string
	Provider Provider
}

// Require returns the caller's uid or ErrNotAuthenticated.
func (c Caller) Require() (string, error) {
	uid := strings.TrimSpace(c.UID)
	if uid == "" {
		return "", ErrNotAuthenticated
	}
	return uid, nil
}
