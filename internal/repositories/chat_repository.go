package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/session"
)

const messagesCollection = "messages"

// ChatRepository defines the interface for group chat operations
type ChatRepository interface {
	SendMessage(ctx context.Context, caller session.Caller, groupID, text string) (string, error)
	MessagesQuery(groupID string) (docstore.Query, error)
}

// DocChatRepository implements ChatRepository on a document store
type DocChatRepository struct {
	store docstore.Store
}

// NewDocChatRepository creates a new DocChatRepository
func NewDocChatRepository(store docstore.Store) *DocChatRepository {
	return &DocChatRepository{store: store}
}

// SendMessage appends a message to the group's message list.
func (r *DocChatRepository) SendMessage(ctx context.Context, caller session.Caller, groupID, text string) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	groupID, err = requireID("groupId", groupID)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("text", "is required")
	}

	id, err := r.store.Add(ctx, docstore.Join(groupsCollection, groupID, messagesCollection), newMessage(uid, text))
	if err != nil {
		return "", fmt.Errorf("send group message: %w", err)
	}
	return id, nil
}

// MessagesQuery is the oldest-first query over a group's messages.
func (r *DocChatRepository) MessagesQuery(groupID string) (docstore.Query, error) {
	groupID, err := requireID("groupId", groupID)
	if err != nil {
		return docstore.Query{}, err
	}
	return docstore.Collection(docstore.Join(groupsCollection, groupID, messagesCollection)).
		Order("createdAt", docstore.Asc), nil
}

// DecodeMessages maps snapshot documents to messages.
func DecodeMessages(docs []*docstore.Document) ([]models.Message, error) {
	return decodeAll(docs, func(m *models.Message, id string) { m.ID = id })
}

func newMessage(uid, text string) map[string]any {
	return map[string]any{
		"senderUid": uid,
		"text":      text,
		"createdAt": docstore.ServerTimestamp,
	}
}

// requireID trims an id taken from user input and rejects blanks and embedded separators.
func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalid(field, "is required")
	}
	if strings.Contains(id, "/") {
		return "", invalid(field, "is malformed")
	}
	return id, nil
}
