package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/metrics"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/session"
)

const (
	groupsCollection = "groups"

	// DefaultJoinCodeAttempts is how many codes CreateGroup draws before giving up.
	DefaultJoinCodeAttempts = 8
)

// GroupRepository defines the interface for study group operations
type GroupRepository interface {
	CreateGroup(ctx context.Context, caller session.Caller, req models.CreateGroupRequest) (string, error)
	JoinGroupByCode(ctx context.Context, caller session.Caller, code string) (string, error)
	FetchMyGroups(ctx context.Context, caller session.Caller) ([]models.Group, error)
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
	RequireMember(ctx context.Context, caller session.Caller, groupID string) (*models.Group, error)
}

// DocGroupRepository implements GroupRepository on a document store
type DocGroupRepository struct {
	store    docstore.Store
	attempts int
	draw     func() int
}

// GroupOption configures a DocGroupRepository.
type GroupOption func(*DocGroupRepository)

// WithJoinCodeAttempts overrides the attempt ceiling. Values below 1 are ignored.
func WithJoinCodeAttempts(n int) GroupOption {
	return func(r *DocGroupRepository) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithCodeSource replaces the random draw. The result must lie in [100000, 999999].
func WithCodeSource(draw func() int) GroupOption {
	return func(r *DocGroupRepository) {
		r.draw = draw
	}
}

// NewDocGroupRepository creates a new DocGroupRepository
func NewDocGroupRepository(store docstore.Store, opts ...GroupOption) *DocGroupRepository {
	r := &DocGroupRepository{
		store:    store,
		attempts: DefaultJoinCodeAttempts,
		draw:     func() int { return 100000 + rand.IntN(900000) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateGroup allocates a unique join code and writes the group with the caller as sole member.
func (r *DocGroupRepository) CreateGroup(ctx context.Context, caller session.Caller, req models.CreateGroupRequest) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", invalid("name", "is required")
	}

	code, err := r.allocateCode(ctx)
	if err != nil {
		return "", err
	}

	id, err := r.store.Add(ctx, groupsCollection, map[string]any{
		"name":        name,
		"uni":         strings.TrimSpace(req.University),
		"dept":        strings.TrimSpace(req.Department),
		"level":       strings.TrimSpace(req.Level),
		"code":        code,
		"ownerId":     uid,
		"members":     []any{uid},
		"memberCount": int64(1),
		"createdAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	slog.Info("group created", "group_id", id, "owner", uid)
	return id, nil
}

// allocateCode draws codes until one is not used by any group. The check and
// the later write are not atomic.
func (r *DocGroupRepository) allocateCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		code := strconv.Itoa(r.draw())
		docs, err := r.store.Query(ctx, docstore.Collection(groupsCollection).
			Where("code", docstore.OpEqual, code).
			Take(1))
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if len(docs) == 0 {
			metrics.JoinCodeAttempts.Observe(float64(attempt))
			return code, nil
		}
		slog.Debug("join code collision", "attempt", attempt)
	}
	metrics.JoinCodeExhausted.Inc()
	return "", ErrJoinCodeExhausted
}

// JoinGroupByCode adds the caller to the group with the given code. Joining a
// group the caller already belongs to succeeds without writing.
func (r *DocGroupRepository) JoinGroupByCode(ctx context.Context, caller session.Caller, code string) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", invalid("code", "is required")
	}

	docs, err := r.store.Query(ctx, docstore.Collection(groupsCollection).
		Where("code", docstore.OpEqual, code).
		Take(1))
	if err != nil {
		return "", fmt.Errorf("find group by code: %w", err)
	}
	if len(docs) == 0 {
		return "", ErrInvalidGroupCode
	}

	doc := docs[0]
	var group models.Group
	if err := doc.DataTo(&group); err != nil {
		return "", fmt.Errorf("decode group %s: %w", doc.ID, err)
	}
	if group.HasMember(uid) {
		return doc.ID, nil
	}

	err = r.store.Update(ctx, doc.Path, map[string]any{
		"members":     docstore.ArrayUnion(uid),
		"memberCount": docstore.Increment(1),
	})
	if err != nil {
		return "", fmt.Errorf("join group: %w", err)
	}
	slog.Info("group joined", "group_id", doc.ID, "uid", uid)
	return doc.ID, nil
}

// FetchMyGroups returns the caller's groups, newest first. When the store
// cannot order the query the groups are fetched unordered and sorted here.
func (r *DocGroupRepository) FetchMyGroups(ctx context.Context, caller session.Caller) ([]models.Group, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}

	q := docstore.Collection(groupsCollection).
		Where("members", docstore.OpArrayContains, uid).
		Order("createdAt", docstore.Asc)

	docs, err := r.store.Query(ctx, q)
	degraded := false
	if errors.Is(err, docstore.ErrIndexUnavailable) {
		slog.Warn("groups ordering index unavailable, sorting locally", "uid", uid)
		degraded = true
		docs, err = r.store.Query(ctx, q.Unordered())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}

	groups, err := decodeAll(docs, func(g *models.Group, id string) { g.ID = id })
	if err != nil {
		return nil, err
	}
	if degraded {
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		})
		return groups, nil
	}
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return groups, nil
}

// GetGroupByID reads a single group.
func (r *DocGroupRepository) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return nil, ErrGroupNotFound
	}
	doc, err := r.store.Get(ctx, docstore.Join(groupsCollection, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	var group models.Group
	if err := doc.DataTo(&group); err != nil {
		return nil, fmt.Errorf("decode group %s: %w", id, err)
	}
	group.ID = doc.ID
	return &group, nil
}

// RequireMember loads the group and fails with ErrNotGroupMember unless the
// caller is one of its members. Group-scoped reads and writes go through it.
func (r *DocGroupRepository) RequireMember(ctx context.Context, caller session.Caller, groupID string) (*models.Group, error) {
	uid, err := caller.Require()
	if err != nil {
		return nil, err
	}
	group, err := r.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(uid) {
		return nil, ErrNotGroupMember
	}
	return group, nil
}
