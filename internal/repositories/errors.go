package repositories

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGroupCode is returned when no group carries the requested join code.
	ErrInvalidGroupCode = errors.New("invalid group code")

	// ErrGroupNotFound is returned when a group id does not resolve.
	ErrGroupNotFound = errors.New("group not found")

	// ErrJoinCodeExhausted is returned when every join-code draw collided.
	ErrJoinCodeExhausted = errors.New("unable to generate unique code")

	// ErrNotGroupMember is returned when the caller is not in the group's member list.
	ErrNotGroupMember = errors.New("not a member of this group")

	// ErrUserNotFound is returned when a profile lookup by email finds nothing.
	ErrUserNotFound = errors.New("user not found")

	// ErrFriendRequestNotFound is returned for unknown friend request ids.
	ErrFriendRequestNotFound = errors.New("friend request not found")

	// ErrFriendRequestResolved is returned when a request is no longer pending.
	ErrFriendRequestResolved = errors.New("friend request already resolved")

	// ErrNotRecipient is returned when the caller is not the addressee of a friend request.
	ErrNotRecipient = errors.New("friend request is addressed to another user")

	// ErrTournamentNotFound is returned when joining a tournament that does not exist.
	ErrTournamentNotFound = errors.New("tournament not found")

	// ErrAccountNotFound is returned by the account repository for unknown emails or uids.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when signing up with an email that is already registered.
	ErrAccountExists = errors.New("account already exists")
)

// ValidationError reports input rejected before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
