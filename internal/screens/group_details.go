package screens

import (
	"context"
	"sync"

	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
)

// GroupDetailsState is the group details screen state.
type GroupDetailsState struct {
	Phase Phase         `json:"phase"`
	Group *models.Group `json:"group,omitempty"`
	Error string        `json:"error,omitempty"`
}

// GroupDetailsScreen loads one group at a time, for a caller who must be a member.
type GroupDetailsScreen struct {
	repo   repositories.GroupRepository
	caller session.Caller
	state  *Holder[GroupDetailsState]

	mu     sync.Mutex
	lastID string
}

func NewGroupDetailsScreen(repo repositories.GroupRepository, caller session.Caller) *GroupDetailsScreen {
	return &GroupDetailsScreen{
		repo:   repo,
		caller: caller,
		state:  NewHolder(GroupDetailsState{Phase: PhaseLoading}),
	}
}

func (s *GroupDetailsScreen) State() *Holder[GroupDetailsState] { return s.state }

// Fetch loads the group. Fetching the group already shown is skipped unless
// force is set. Results for an id that is no longer current are discarded.
func (s *GroupDetailsScreen) Fetch(ctx context.Context, id string, force bool) bool {
	s.mu.Lock()
	if !force && s.lastID == id && s.state.Snapshot().State.Phase == PhaseSuccess {
		s.mu.Unlock()
		return false
	}
	s.lastID = id
	s.mu.Unlock()

	s.state.Update(func(GroupDetailsState) GroupDetailsState {
		return GroupDetailsState{Phase: PhaseLoading}
	})

	group, err := s.repo.RequireMember(ctx, s.caller, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastID != id {
		return true
	}
	s.state.Update(func(GroupDetailsState) GroupDetailsState {
		if err != nil {
			return GroupDetailsState{Phase: PhaseError, Error: UserMessage(err)}
		}
		return GroupDetailsState{Phase: PhaseSuccess, Group: group}
	})
	return true
}

// Refresh refetches the current group, if any.
func (s *GroupDetailsScreen) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	id := s.lastID
	s.mu.Unlock()
	if id == "" {
		return false
	}
	return s.Fetch(ctx, id, true)
}

// Retry is Refresh, offered after an error.
func (s *GroupDetailsScreen) Retry(ctx context.Context) bool {
	return s.Refresh(ctx)
}

func (s *GroupDetailsScreen) Close() {
	s.state.Close()
}
