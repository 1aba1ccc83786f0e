package screens

import (
	"context"
	"testing"
	"time"

	"github.com/unicollab/backend/internal/docstore/memory"
	"github.com/unicollab/backend/internal/repositories"
)

func TestLiveList_FollowsStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	chat := repositories.NewDocChatRepository(store)

	q, err := chat.MessagesQuery("g1")
	if err != nil {
		t.Fatalf("MessagesQuery failed: %v", err)
	}
	list, err := OpenLiveList(ctx, store, q, "group_messages", repositories.DecodeMessages)
	if err != nil {
		t.Fatalf("OpenLiveList failed: %v", err)
	}

	ch, cancel := list.State().Subscribe()
	defer cancel()

	// wait for the first store snapshot to land
	deadline := time.After(time.Second)
	for {
		snap := recvSnapshot(t, ch, time.Second)
		if !snap.State.Loading {
			if len(snap.State.Items) != 0 {
				t.Fatalf("expected empty list, got %+v", snap.State.Items)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("list never left loading")
		default:
		}
	}

	if _, err := chat.SendMessage(ctx, alice, "g1", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	snap := recvSnapshot(t, ch, time.Second)
	if len(snap.State.Items) != 1 || snap.State.Items[0].Text != "hello" {
		t.Errorf("expected one message, got %+v", snap.State.Items)
	}

	list.Close()
	select {
	case <-list.Done():
	case <-time.After(time.Second):
		t.Fatal("list did not stop after Close")
	}
	for range ch {
	}
	if _, err := chat.SendMessage(ctx, alice, "g1", "after close"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
}

func TestLiveList_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.New()
	tournaments := repositories.NewDocTournamentRepository(store)
	q, _ := tournaments.TournamentsQuery("g1")

	list, err := OpenLiveList(ctx, store, q, "tournaments", repositories.DecodeTournaments)
	if err != nil {
		t.Fatalf("OpenLiveList failed: %v", err)
	}
	cancel()

	select {
	case <-list.Done():
	case <-time.After(time.Second):
		t.Fatal("list did not stop after context cancel")
	}
	list.Close()
}
