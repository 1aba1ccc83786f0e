package models

import "time"

// FriendRequestStatus is the state of a friend request. pending moves to
// accepted or declined, both terminal.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest represents a friend request between two users (friend_requests/{id})
type FriendRequest struct {
	ID        string              `json:"id" firestore:"-" bson:"-"`
	FromUID   string              `json:"fromUid" firestore:"fromUid" bson:"fromUid"` // sender
	ToUID     string              `json:"toUid" firestore:"toUid" bson:"toUid"`       // recipient
	Status    FriendRequestStatus `json:"status" firestore:"status" bson:"status"`
	CreatedAt time.Time           `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// Friendship is one side of an accepted friendship, stored under the owner's
// own list at friends/{uid}/items/{friendUid}
type Friendship struct {
	FriendUID string    `json:"friendUid" firestore:"friendUid" bson:"friendUid"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// CreateFriendRequest defines the request body for sending a friend request.
// The recipient is given either by uid or by email.
type CreateFriendRequest struct {
	ToUID string `json:"toUid" validate:"required_without=Email"`
	Email string `json:"email" validate:"omitempty,email"`
}

// AcceptFriendRequest defines the request body for accepting a friend request.
// FromUID defaults to the stored sender when empty.
type AcceptFriendRequest struct {
	FromUID string `json:"fromUid"`
}
