package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/session"
)

const (
	friendRequestsCollection = "friend_requests"
	friendsCollection        = "friends"
	friendItemsCollection    = "items"
)

// FriendshipRepository defines the interface for friend request and friendship operations
type FriendshipRepository interface {
	SendFriendRequest(ctx context.Context, caller session.Caller, toUID string) (string, error)
	AcceptRequest(ctx context.Context, caller session.Caller, requestID, fromUID string) error
	DeclineRequest(ctx context.Context, caller session.Caller, requestID string) error
	PendingRequests(ctx context.Context, caller session.Caller) ([]models.FriendRequest, error)
	ListFriends(ctx context.Context, caller session.Caller) ([]models.Friendship, error)
	FindUserByEmail(ctx context.Context, email string) (string, error)
}

// DocFriendshipRepository implements FriendshipRepository on a document store
type DocFriendshipRepository struct {
	store docstore.Store
}

// NewDocFriendshipRepository creates a new DocFriendshipRepository
func NewDocFriendshipRepository(store docstore.Store) *DocFriendshipRepository {
	return &DocFriendshipRepository{store: store}
}

// SendFriendRequest creates a pending request from the caller to toUID.
// Sending to oneself is a no-op and returns an empty id.
func (r *DocFriendshipRepository) SendFriendRequest(ctx context.Context, caller session.Caller, toUID string) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	toUID = strings.TrimSpace(toUID)
	if toUID == "" {
		return "", invalid("toUid", "is required")
	}
	if toUID == uid {
		return "", nil
	}

	id, err := r.store.Add(ctx, friendRequestsCollection, map[string]any{
		"fromUid":   uid,
		"toUid":     toUID,
		"status":    string(models.FriendRequestPending),
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("send friend request: %w", err)
	}
	return id, nil
}

// AcceptRequest marks the request accepted and writes one friendship edge
// under each participant. The three writes are sequential with no rollback.
func (r *DocFriendshipRepository) AcceptRequest(ctx context.Context, caller session.Caller, requestID, fromUID string) error {
	uid, err := caller.Require()
	if err != nil {
		return err
	}
	req, err := r.pendingRequestFor(ctx, uid, requestID)
	if err != nil {
		return err
	}
	fromUID = strings.TrimSpace(fromUID)
	if fromUID == "" {
		fromUID = req.FromUID
	}
	if fromUID != req.FromUID {
		return invalid("fromUid", "does not match the request sender")
	}

	if err := r.store.Update(ctx, docstore.Join(friendRequestsCollection, req.ID), map[string]any{
		"status": string(models.FriendRequestAccepted),
	}); err != nil {
		return fmt.Errorf("accept friend request: %w", err)
	}

	edges := [][2]string{{uid, fromUID}, {fromUID, uid}}
	for i, e := range edges {
		path := docstore.Join(friendsCollection, e[0], friendItemsCollection, e[1])
		err := r.store.Set(ctx, path, map[string]any{
			"friendUid": e[1],
			"createdAt": docstore.ServerTimestamp,
		})
		if err != nil {
			slog.Error("friendship edge write failed after accept",
				"request_id", req.ID, "edges_written", i, "path", path, "error", err)
			return fmt.Errorf("write friendship edge: %w", err)
		}
	}
	slog.Info("friend request accepted", "request_id", req.ID, "from", fromUID, "to", uid)
	return nil
}

// DeclineRequest marks the request declined. No edges are written.
func (r *DocFriendshipRepository) DeclineRequest(ctx context.Context, caller session.Caller, requestID string) error {
	uid, err := caller.Require()
	if err != nil {
		return err
	}
	req, err := r.pendingRequestFor(ctx, uid, requestID)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, docstore.Join(friendRequestsCollection, req.ID), map[string]any{
		"status": string(models.FriendRequestDeclined),
	}); err != nil {
		return fmt.Errorf("decline friend request: %w", err)
	}
	return nil
}

func (r *DocFriendshipRepository) pendingRequestFor(ctx context.Context, uid, requestID string) (*models.FriendRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" || strings.Contains(requestID, "/") {
		return nil, invalid("requestId", "is required")
	}
	doc, err := r.store.Get(ctx, docstore.Join(friendRequestsCollection, requestID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	var req models.FriendRequest
	if err := doc.DataTo(&req); err != nil {
		return nil, fmt.Errorf("decode friend request %s: %w", requestID, err)
	}
	req.ID = doc.ID
	if req.ToUID != uid {
		return nil, ErrNotRecipient
	}
	if req.Status != models.FriendRequestPending {
		return nil, ErrFriendRequestResolved
	}
	return &req, nil
}

// PendingRequests lists the requests addressed to the caller that are still pending.
func (r *DocFriendshipRepository) PendingRequests(ctx context.Context, caller session.Caller) ([]models.FriendRequest, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, docstore.Collection(friendRequestsCollection).
		Where("toUid", docstore.OpEqual, uid).
		Where("status", docstore.OpEqual, string(models.FriendRequestPending)))
	if err != nil {
		return nil, fmt.Errorf("list pending friend requests: %w", err)
	}
	return decodeAll(docs, func(fr *models.FriendRequest, id string) { fr.ID = id })
}

// ListFriends returns the caller's friendship edges.
func (r *DocFriendshipRepository) ListFriends(ctx context.Context, caller session.Caller) ([]models.Friendship, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, docstore.Collection(docstore.Join(friendsCollection, uid, friendItemsCollection)))
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return decodeAll[models.Friendship](docs, nil)
}

// FindUserByEmail resolves a profile uid by its email.
func (r *DocFriendshipRepository) FindUserByEmail(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", invalid("email", "is required")
	}
	docs, err := r.store.Query(ctx, docstore.Collection(usersCollection).
		Where("email", docstore.OpEqual, email).
		Take(1))
	if err != nil {
		return "", fmt.Errorf("find user by email: %w", err)
	}
	if len(docs) == 0 {
		return "", ErrUserNotFound
	}
	return docs[0].ID, nil
}
