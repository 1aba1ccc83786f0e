package screens

import (
	"context"
	"log/slog"
	"strings"

	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
)

// Phase is the display state a client renders.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseEmpty   Phase = "empty"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// GroupsState is the groups list screen state.
type GroupsState struct {
	Groups          []models.Group `json:"groups"`
	IsLoading       bool           `json:"isLoading"`       // list fetch in flight
	IsActionLoading bool           `json:"isActionLoading"` // create or join in flight
	Error           string         `json:"error,omitempty"`
}

// GroupsStatus is what the list area shows for a state and search term.
type GroupsStatus struct {
	Phase      Phase          `json:"phase"`
	Groups     []models.Group `json:"groups,omitempty"`
	Message    string         `json:"message,omitempty"`
	CanRetry   bool           `json:"canRetry,omitempty"`
	Refreshing bool           `json:"refreshing,omitempty"`
}

// Status projects the state onto one display phase. An error wins over
// content; search filters by name, university and department.
func (s GroupsState) Status(search string) GroupsStatus {
	if s.Error != "" {
		return GroupsStatus{Phase: PhaseError, Message: s.Error, CanRetry: !s.IsLoading}
	}
	groups := filterGroups(s.Groups, search)
	if len(groups) == 0 {
		if s.IsLoading {
			return GroupsStatus{Phase: PhaseLoading}
		}
		msg := MsgNoGroups
		if strings.TrimSpace(search) != "" {
			msg = MsgNoSearchResults
		}
		return GroupsStatus{Phase: PhaseEmpty, Message: msg}
	}
	return GroupsStatus{Phase: PhaseSuccess, Groups: groups, Refreshing: s.IsLoading}
}

func filterGroups(groups []models.Group, search string) []models.Group {
	q := strings.ToLower(strings.TrimSpace(search))
	if q == "" {
		return groups
	}
	var out []models.Group
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.Name), q) ||
			strings.Contains(strings.ToLower(g.University), q) ||
			strings.Contains(strings.ToLower(g.Department), q) {
			out = append(out, g)
		}
	}
	return out
}

// GroupsScreen drives the caller's group list and the create/join actions.
type GroupsScreen struct {
	repo   repositories.GroupRepository
	caller session.Caller
	state  *Holder[GroupsState]
	events chan string
}

// NewGroupsScreen creates a screen in the loading state. Call Load to fetch.
func NewGroupsScreen(repo repositories.GroupRepository, caller session.Caller) *GroupsScreen {
	return &GroupsScreen{
		repo:   repo,
		caller: caller,
		state:  NewHolder(GroupsState{IsLoading: true}),
		events: make(chan string, 16),
	}
}

// State exposes the screen's state holder.
func (s *GroupsScreen) State() *Holder[GroupsState] { return s.state }

// Events delivers one-shot notices such as "Group created ✅".
func (s *GroupsScreen) Events() <-chan string { return s.events }

// Load fetches the list regardless of the loading flag.
func (s *GroupsScreen) Load(ctx context.Context) {
	s.state.Update(func(st GroupsState) GroupsState {
		st.IsLoading = true
		st.Error = ""
		return st
	})
	s.fetch(ctx)
}

// Refresh refetches the list. It is ignored while a fetch is in flight and
// reports whether it ran.
func (s *GroupsScreen) Refresh(ctx context.Context) bool {
	_, started := s.state.UpdateIf(func(st GroupsState) (GroupsState, bool) {
		if st.IsLoading {
			return st, false
		}
		st.IsLoading = true
		st.Error = ""
		return st, true
	})
	if !started {
		return false
	}
	s.fetch(ctx)
	return true
}

// CreateGroup creates a group and refreshes the list. It is ignored while
// another create or join is in flight.
func (s *GroupsScreen) CreateGroup(ctx context.Context, req models.CreateGroupRequest) bool {
	if !s.beginAction() {
		return false
	}
	_, err := s.repo.CreateGroup(ctx, s.caller, req)
	s.finishAction(ctx, err, MsgGroupCreated)
	return true
}

// JoinGroup joins by code and refreshes the list. It is ignored while
// another create or join is in flight.
func (s *GroupsScreen) JoinGroup(ctx context.Context, code string) bool {
	if !s.beginAction() {
		return false
	}
	_, err := s.repo.JoinGroupByCode(ctx, s.caller, code)
	s.finishAction(ctx, err, MsgGroupJoined)
	return true
}

// Close ends all state subscriptions.
func (s *GroupsScreen) Close() {
	s.state.Close()
}

func (s *GroupsScreen) beginAction() bool {
	_, ok := s.state.UpdateIf(func(st GroupsState) (GroupsState, bool) {
		if st.IsActionLoading {
			return st, false
		}
		st.IsActionLoading = true
		st.Error = ""
		return st, true
	})
	return ok
}

func (s *GroupsScreen) finishAction(ctx context.Context, err error, notice string) {
	if err != nil {
		s.state.Update(func(st GroupsState) GroupsState {
			st.Error = UserMessage(err)
			st.IsActionLoading = false
			return st
		})
		return
	}
	s.emit(notice)
	// the current list stays visible while the forced refetch runs
	s.state.Update(func(st GroupsState) GroupsState {
		st.IsActionLoading = false
		return st
	})
	s.fetch(ctx)
}

func (s *GroupsScreen) fetch(ctx context.Context) {
	groups, err := s.repo.FetchMyGroups(ctx, s.caller)
	s.state.Update(func(st GroupsState) GroupsState {
		if err != nil {
			st.Error = UserMessage(err)
		} else {
			st.Groups = groups
		}
		st.IsLoading = false
		return st
	})
}

func (s *GroupsScreen) emit(notice string) {
	select {
	case s.events <- notice:
	default:
		slog.Warn("screen event dropped", "event", notice)
	}
}
