package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/session"
)

const chatsCollection = "chats"

// ChatIDFor returns the canonical id of the conversation between a and b.
// The result does not depend on argument order.
func ChatIDFor(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// DirectChatRepository defines the interface for one-to-one chat operations
type DirectChatRepository interface {
	SendMessage(ctx context.Context, caller session.Caller, peerUID, text string) (string, error)
	MessagesQuery(caller session.Caller, peerUID string) (docstore.Query, error)
}

// DocDirectChatRepository implements DirectChatRepository on a document store
type DocDirectChatRepository struct {
	store docstore.Store
}

// NewDocDirectChatRepository creates a new DocDirectChatRepository
func NewDocDirectChatRepository(store docstore.Store) *DocDirectChatRepository {
	return &DocDirectChatRepository{store: store}
}

// SendMessage upserts the chat document for the pair, then appends the message.
func (r *DocDirectChatRepository) SendMessage(ctx context.Context, caller session.Caller, peerUID, text string) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	peerUID, err = requireID("peerUid", peerUID)
	if err != nil {
		return "", err
	}
	if peerUID == uid {
		return "", invalid("peerUid", "must be another user")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "is required")
	}

	chatID := ChatIDFor(uid, peerUID)
	chatPath := docstore.Join(chatsCollection, chatID)
	if err := r.store.Merge(ctx, chatPath, map[string]any{
		"participants": []any{uid, peerUID},
		"updatedAt":    docstore.ServerTimestamp,
	}); err != nil {
		return "", fmt.Errorf("upsert chat: %w", err)
	}

	id, err := r.store.Add(ctx, docstore.Join(chatPath, messagesCollection), newMessage(uid, text))
	if err != nil {
		slog.Error("chat upserted but message not appended", "chat_id", chatID, "error", err)
		return "", fmt.Errorf("send direct message: %w", err)
	}
	return id, nil
}

// MessagesQuery is the oldest-first query over the caller's conversation with peerUID.
func (r *DocDirectChatRepository) MessagesQuery(caller session.Caller, peerUID string) (docstore.Query, error) {
	uid, err := caller.Require()
	if err != nil {
		return docstore.Query{}, err
	}
	peerUID, err = requireID("peerUid", peerUID)
	if err != nil {
		return docstore.Query{}, err
	}
	return docstore.Collection(docstore.Join(chatsCollection, ChatIDFor(uid, peerUID), messagesCollection)).
		Order("createdAt", docstore.Asc), nil
}
