package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/docstore/memory"
	"github.com/unicollab/backend/internal/models"
)

func TestChatIDFor(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"zed", "amy"},
		{"u1", "u1"},
		{"A", "a"},
		{"", "x"},
	}
	for _, p := range pairs {
		ab, ba := ChatIDFor(p[0], p[1]), ChatIDFor(p[1], p[0])
		if ab != ba {
			t.Errorf("ChatIDFor(%q,%q)=%q but reversed gives %q", p[0], p[1], ab, ba)
		}
	}
	if got := ChatIDFor("bob", "alice"); got != "alice_bob" {
		t.Errorf("expected alice_bob, got %s", got)
	}
}

func TestDirectChatSendMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewDocDirectChatRepository(store)

	if _, err := repo.SendMessage(ctx, caller("bob"), "alice", " hi "); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, err := repo.SendMessage(ctx, caller("alice"), "bob", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	doc, err := store.Get(ctx, "chats/alice_bob")
	if err != nil {
		t.Fatalf("chat document missing: %v", err)
	}
	var chat models.Chat
	if err := doc.DataTo(&chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if len(chat.Participants) != 2 || chat.UpdatedAt.IsZero() {
		t.Errorf("unexpected chat %+v", chat)
	}

	q, err := repo.MessagesQuery(caller("bob"), "alice")
	if err != nil {
		t.Fatalf("MessagesQuery failed: %v", err)
	}
	docs, err := store.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	msgs, err := DecodeMessages(docs)
	if err != nil {
		t.Fatalf("DecodeMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hi" || msgs[0].SenderUID != "bob" || msgs[1].Text != "hello" {
		t.Errorf("unexpected messages %+v", msgs)
	}

	tests := []struct {
		name, peer, text string
	}{
		{"blank peer", " ", "x"},
		{"self", "alice", "x"},
		{"blank text", "bob", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.SendMessage(ctx, caller("alice"), tt.peer, tt.text)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGroupChatSendMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewDocChatRepository(store)

	id, err := repo.SendMessage(ctx, caller("u1"), "g1", "  see you at 5 ")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	doc, err := store.Get(ctx, docstore.Join("groups", "g1", "messages", id))
	if err != nil {
		t.Fatalf("message missing: %v", err)
	}
	var m models.Message
	doc.DataTo(&m)
	if m.Text != "see you at 5" || m.SenderUID != "u1" {
		t.Errorf("unexpected message %+v", m)
	}

	if _, err := repo.SendMessage(ctx, caller("u1"), "g1", ""); err == nil {
		t.Error("expected blank text to be rejected")
	}
	if _, err := repo.MessagesQuery(""); err == nil {
		t.Error("expected blank group id to be rejected")
	}
}
