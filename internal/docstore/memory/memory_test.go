package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unicollab/backend/internal/docstore"
)

type groupDoc struct {
	Name        string    `bson:"name"`
	Members     []string  `bson:"members"`
	MemberCount int64     `bson:"memberCount"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	store := New()
	defer store.Close()

	t.Run("Add then Get decodes fields", func(t *testing.T) {
		id, err := store.Add(ctx, "groups", map[string]any{
			"name":        "Algorithms",
			"members":     []string{"u1"},
			"memberCount": 1,
			"createdAt":   docstore.ServerTimestamp,
		})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		doc, err := store.Get(ctx, docstore.Join("groups", id))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if doc.ID != id {
			t.Errorf("expected id %s, got %s", id, doc.ID)
		}

		var g groupDoc
		if err := doc.DataTo(&g); err != nil {
			t.Fatalf("DataTo failed: %v", err)
		}
		if g.Name != "Algorithms" || g.MemberCount != 1 || len(g.Members) != 1 {
			t.Errorf("unexpected decoded group: %+v", g)
		}
		if g.CreatedAt.IsZero() {
			t.Error("expected server timestamp to be resolved")
		}
	})

	t.Run("Update applies union and increment together", func(t *testing.T) {
		id, _ := store.Add(ctx, "groups", map[string]any{"members": []string{"u1"}, "memberCount": 1})
		path := docstore.Join("groups", id)

		for i := 0; i < 2; i++ {
			err := store.Update(ctx, path, map[string]any{
				"members":     docstore.ArrayUnion("u2"),
				"memberCount": docstore.Increment(1),
			})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
		}

		doc, _ := store.Get(ctx, path)
		var g groupDoc
		if err := doc.DataTo(&g); err != nil {
			t.Fatalf("DataTo failed: %v", err)
		}
		if len(g.Members) != 2 {
			t.Errorf("array union should not duplicate, got %v", g.Members)
		}
		if g.MemberCount != 3 {
			t.Errorf("expected memberCount 3, got %d", g.MemberCount)
		}
	})

	t.Run("Update on missing document", func(t *testing.T) {
		err := store.Update(ctx, "groups/missing", map[string]any{"name": "x"})
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Merge creates and keeps other fields", func(t *testing.T) {
		path := "wallets/u1"
		if err := store.Merge(ctx, path, map[string]any{"balance": docstore.Increment(500)}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		if err := store.Merge(ctx, path, map[string]any{"owner": "u1"}); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
		doc, _ := store.Get(ctx, path)
		if doc.Data()["balance"] != int64(500) || doc.Data()["owner"] != "u1" {
			t.Errorf("unexpected wallet: %v", doc.Data())
		}
	})

	t.Run("Rejects malformed paths", func(t *testing.T) {
		if _, err := store.Get(ctx, "groups"); !errors.Is(err, docstore.ErrInvalidPath) {
			t.Errorf("expected ErrInvalidPath, got %v", err)
		}
		if _, err := store.Add(ctx, "groups/g1", nil); !errors.Is(err, docstore.ErrInvalidPath) {
			t.Errorf("expected ErrInvalidPath, got %v", err)
		}
	})
}

func TestStoreQuery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store := New(WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}), WithMissingIndex("slow", "createdAt"))

	for _, name := range []string{"first", "second", "third"} {
		_, err := store.Add(ctx, "groups", map[string]any{
			"name":      name,
			"code":      "123456",
			"members":   []string{"u1", name},
			"createdAt": docstore.ServerTimestamp,
		})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	store.Add(ctx, "groups", map[string]any{"name": "other", "code": "654321", "members": []string{"u2"}})

	tests := []struct {
		name  string
		query docstore.Query
		want  []string
	}{
		{
			name:  "equality with limit",
			query: docstore.Collection("groups").Where("code", docstore.OpEqual, "654321").Take(1),
			want:  []string{"other"},
		},
		{
			name:  "array contains ordered ascending",
			query: docstore.Collection("groups").Where("members", docstore.OpArrayContains, "u1").Order("createdAt", docstore.Asc),
			want:  []string{"first", "second", "third"},
		},
		{
			name:  "ordered descending with limit",
			query: docstore.Collection("groups").Order("createdAt", docstore.Desc).Take(2),
			want:  []string{"third", "second"},
		},
		{
			name:  "no match",
			query: docstore.Collection("groups").Where("code", docstore.OpEqual, "000000"),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(docs) != len(tt.want) {
				t.Fatalf("expected %d docs, got %d", len(tt.want), len(docs))
			}
			for i, d := range docs {
				if got := d.Data()["name"]; got != tt.want[i] {
					t.Errorf("doc %d: expected %s, got %v", i, tt.want[i], got)
				}
			}
		})
	}

	t.Run("missing index", func(t *testing.T) {
		store.Add(ctx, "slow", map[string]any{"createdAt": docstore.ServerTimestamp})
		_, err := store.Query(ctx, docstore.Collection("slow").Order("createdAt", docstore.Asc))
		if !errors.Is(err, docstore.ErrIndexUnavailable) {
			t.Errorf("expected ErrIndexUnavailable, got %v", err)
		}
		docs, err := store.Query(ctx, docstore.Collection("slow"))
		if err != nil || len(docs) != 1 {
			t.Errorf("unordered query should succeed, got %d docs, err %v", len(docs), err)
		}
	})
}

func TestStoreSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := New()

	sub, err := store.Subscribe(ctx, docstore.Collection("chats/a_b/messages").Order("createdAt", docstore.Asc))
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	recv := func() []*docstore.Document {
		t.Helper()
		select {
		case docs, ok := <-sub.Snapshots():
			if !ok {
				t.Fatal("subscription closed unexpectedly")
			}
			return docs
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}

	if docs := recv(); len(docs) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(docs))
	}

	store.Add(ctx, "chats/a_b/messages", map[string]any{"text": "hi", "createdAt": docstore.ServerTimestamp})
	if docs := recv(); len(docs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(docs))
	}

	// writes elsewhere do not notify
	store.Add(ctx, "chats/a_c/messages", map[string]any{"text": "other"})
	select {
	case docs := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot with %d docs", len(docs))
	case <-time.After(50 * time.Millisecond):
	}

	sub.Stop()
	sub.Stop()
	if _, ok := <-sub.Snapshots(); ok {
		t.Error("expected channel to be closed after Stop")
	}
}
