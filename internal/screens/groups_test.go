package screens

import (
	"context"
	"testing"
	"time"

	"github.com/unicollab/backend/internal/docstore/memory"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
)

var alice = session.Caller{UID: "alice"}

func recvEvent(t *testing.T, ch <-chan string, within time.Duration) string {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return ""
	}
}

// blockingGroups blocks FetchMyGroups and CreateGroup until release is closed.
type blockingGroups struct {
	repositories.GroupRepository
	entered chan struct{}
	release chan struct{}
}

func (b *blockingGroups) FetchMyGroups(ctx context.Context, caller session.Caller) ([]models.Group, error) {
	b.entered <- struct{}{}
	<-b.release
	return nil, nil
}

func (b *blockingGroups) CreateGroup(ctx context.Context, caller session.Caller, req models.CreateGroupRequest) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return "g1", nil
}

func TestGroupsScreen_LoadCreateJoin(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocGroupRepository(memory.New())
	screen := NewGroupsScreen(repo, alice)
	defer screen.Close()

	if st := screen.State().Snapshot().State.Status(""); st.Phase != PhaseLoading {
		t.Fatalf("expected initial loading phase, got %s", st.Phase)
	}

	screen.Load(ctx)
	st := screen.State().Snapshot().State.Status("")
	if st.Phase != PhaseEmpty || st.Message != MsgNoGroups {
		t.Fatalf("expected empty phase, got %+v", st)
	}

	if !screen.CreateGroup(ctx, models.CreateGroupRequest{Name: "Compilers", University: "UI", Department: "CS"}) {
		t.Fatal("expected create to run")
	}
	if e := recvEvent(t, screen.Events(), time.Second); e != MsgGroupCreated {
		t.Errorf("expected %q, got %q", MsgGroupCreated, e)
	}
	state := screen.State().Snapshot().State
	if state.IsActionLoading || state.IsLoading || len(state.Groups) != 1 {
		t.Fatalf("unexpected state after create: %+v", state)
	}

	// bob creates a group alice then joins by code
	bob := session.Caller{UID: "bob"}
	id, err := repo.CreateGroup(ctx, bob, models.CreateGroupRequest{Name: "Databases"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	g, _ := repo.GetGroupByID(ctx, id)

	screen.JoinGroup(ctx, g.Code)
	if e := recvEvent(t, screen.Events(), time.Second); e != MsgGroupJoined {
		t.Errorf("expected %q, got %q", MsgGroupJoined, e)
	}
	st = screen.State().Snapshot().State.Status("")
	if st.Phase != PhaseSuccess || len(st.Groups) != 2 || st.Groups[0].ID != id {
		t.Errorf("expected joined group first, got %+v", st)
	}

	if st := screen.State().Snapshot().State.Status("data"); len(st.Groups) != 1 || st.Groups[0].Name != "Databases" {
		t.Errorf("expected search to match one group, got %+v", st)
	}
	if st := screen.State().Snapshot().State.Status("zzz"); st.Phase != PhaseEmpty || st.Message != MsgNoSearchResults {
		t.Errorf("expected no results, got %+v", st)
	}
}

func TestGroupsScreen_JoinInvalidCode(t *testing.T) {
	ctx := context.Background()
	screen := NewGroupsScreen(repositories.NewDocGroupRepository(memory.New()), alice)
	screen.Load(ctx)

	screen.JoinGroup(ctx, "000000")
	st := screen.State().Snapshot().State
	if st.Error != MsgInvalidCode || st.IsActionLoading {
		t.Errorf("unexpected state %+v", st)
	}
	status := st.Status("")
	if status.Phase != PhaseError || !status.CanRetry {
		t.Errorf("expected retryable error, got %+v", status)
	}
	select {
	case e := <-screen.Events():
		t.Errorf("expected no event, got %q", e)
	default:
	}
}

func TestGroupsScreen_NotAuthenticated(t *testing.T) {
	screen := NewGroupsScreen(repositories.NewDocGroupRepository(memory.New()), session.Caller{})
	screen.Load(context.Background())
	if st := screen.State().Snapshot().State; st.Error != MsgPermission {
		t.Errorf("expected permission message, got %q", st.Error)
	}
}

func TestGroupsScreen_IgnoresWhileInFlight(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh", func(t *testing.T) {
		repo := &blockingGroups{entered: make(chan struct{}, 2), release: make(chan struct{})}
		screen := NewGroupsScreen(repo, alice)

		// the screen starts loading, so Refresh is ignored until Load finishes
		if screen.Refresh(ctx) {
			t.Fatal("expected refresh to be ignored during the initial load")
		}

		close(repo.release)
		screen.Load(ctx)
		<-repo.entered
		if !screen.Refresh(ctx) {
			t.Error("expected refresh to run once idle")
		}
	})

	t.Run("create", func(t *testing.T) {
		repo := &blockingGroups{entered: make(chan struct{}, 4), release: make(chan struct{})}
		screen := NewGroupsScreen(repo, alice)

		done := make(chan bool)
		go func() { done <- screen.CreateGroup(ctx, models.CreateGroupRequest{Name: "A"}) }()
		<-repo.entered

		if screen.CreateGroup(ctx, models.CreateGroupRequest{Name: "B"}) {
			t.Error("expected second create to be ignored")
		}
		if screen.JoinGroup(ctx, "123456") {
			t.Error("expected join to be ignored while create is in flight")
		}

		close(repo.release)
		if !<-done {
			t.Error("expected first create to run")
		}
	})
}

func TestGroupDetailsScreen(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocGroupRepository(memory.New())
	id, err := repo.CreateGroup(ctx, alice, models.CreateGroupRequest{Name: "Stats"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	screen := NewGroupDetailsScreen(repo, alice)
	defer screen.Close()

	if !screen.Fetch(ctx, id, false) {
		t.Fatal("expected first fetch to run")
	}
	st := screen.State().Snapshot().State
	if st.Phase != PhaseSuccess || st.Group == nil || st.Group.Name != "Stats" {
		t.Fatalf("unexpected state %+v", st)
	}

	if screen.Fetch(ctx, id, false) {
		t.Error("expected repeat fetch of the same id to be skipped")
	}
	if !screen.Refresh(ctx) {
		t.Error("expected forced refresh to run")
	}

	screen.Fetch(ctx, "gone", false)
	st = screen.State().Snapshot().State
	if st.Phase != PhaseError || st.Error != MsgGroupGone {
		t.Errorf("expected group-gone error, got %+v", st)
	}
	if !screen.Retry(ctx) {
		t.Error("expected retry to run")
	}
	if got := screen.State().Snapshot().State.Phase; got != PhaseError {
		t.Errorf("expected error phase after retry, got %s", got)
	}
}

func TestGroupDetailsScreen_RefreshWithoutGroup(t *testing.T) {
	screen := NewGroupDetailsScreen(repositories.NewDocGroupRepository(memory.New()), alice)
	if screen.Refresh(context.Background()) {
		t.Error("expected refresh without a group to be ignored")
	}
}

func TestGroupDetailsScreen_Outsider(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewDocGroupRepository(memory.New())
	id, err := repo.CreateGroup(ctx, alice, models.CreateGroupRequest{Name: "Stats"})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	screen := NewGroupDetailsScreen(repo, session.Caller{UID: "mallory"})
	defer screen.Close()

	screen.Fetch(ctx, id, false)
	st := screen.State().Snapshot().State
	if st.Phase != PhaseError || st.Error != MsgNotMember || st.Group != nil {
		t.Errorf("expected not-a-member error, got %+v", st)
	}
}
