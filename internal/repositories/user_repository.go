package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/models"
)

const usersCollection = "users"

// profileFields are the fields an owner may change.
var profileFields = map[string]bool{
	"displayName": true,
	"department":  true,
	"university":  true,
	"level":       true,
	"bio":         true,
	"avatarColor": true,
}

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	FindProfile(ctx context.Context, uid string) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, uid string, profile models.UserProfile) (*models.UserProfile, error)
	UpdateFields(ctx context.Context, uid string, fields map[string]any) (*models.UserProfile, error)
	SetEmail(ctx context.Context, uid, email string) error
}

// DocUserRepository implements UserRepository on a document store
type DocUserRepository struct {
	store docstore.Store
}

// NewDocUserRepository creates a new DocUserRepository
func NewDocUserRepository(store docstore.Store) *DocUserRepository {
	return &DocUserRepository{store: store}
}

// GetProfile reads the profile at users/{uid}, creating a default one first if absent.
func (r *DocUserRepository) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	uid, err := requireID("uid", uid)
	if err != nil {
		return nil, err
	}
	path := docstore.Join(usersCollection, uid)
	doc, err := r.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		if err := r.store.Merge(ctx, path, map[string]any{
			"uid":         uid,
			"displayName": "",
			"department":  "",
			"university":  "",
			"level":       "",
			"bio":         "",
			"avatarColor": models.DefaultAvatarColor,
			"updatedAt":   docstore.ServerTimestamp,
		}); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		doc, err = r.store.Get(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile(doc)
}

// FindProfile reads an existing profile without creating one.
func (r *DocUserRepository) FindProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	uid, err := requireID("uid", uid)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Get(ctx, docstore.Join(usersCollection, uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile(doc)
}

// UpsertProfile replaces every editable field of the profile. The email link is kept.
func (r *DocUserRepository) UpsertProfile(ctx context.Context, uid string, profile models.UserProfile) (*models.UserProfile, error) {
	uid, err := requireID("uid", uid)
	if err != nil {
		return nil, err
	}
	color := profile.AvatarColor
	if color == 0 {
		color = models.DefaultAvatarColor
	}
	return r.merge(ctx, uid, map[string]any{
		"uid":         uid,
		"displayName": strings.TrimSpace(profile.DisplayName),
		"department":  strings.TrimSpace(profile.Department),
		"university":  strings.TrimSpace(profile.University),
		"level":       strings.TrimSpace(profile.Level),
		"bio":         strings.TrimSpace(profile.Bio),
		"avatarColor": color,
	})
}

// UpdateFields merges the given editable fields into the profile. Unknown
// field names are rejected before anything is written.
func (r *DocUserRepository) UpdateFields(ctx context.Context, uid string, fields map[string]any) (*models.UserProfile, error) {
	uid, err := requireID("uid", uid)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		if !profileFields[k] {
			return nil, invalid(k, "cannot be updated")
		}
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		data[k] = v
	}
	data["uid"] = uid
	return r.merge(ctx, uid, data)
}

// SetEmail records the login email on the profile so others can find the user by it.
func (r *DocUserRepository) SetEmail(ctx context.Context, uid, email string) error {
	uid, err := requireID("uid", uid)
	if err != nil {
		return err
	}
	err = r.store.Merge(ctx, docstore.Join(usersCollection, uid), map[string]any{
		"uid":   uid,
		"email": normalizeEmail(email),
	})
	if err != nil {
		return fmt.Errorf("set profile email: %w", err)
	}
	return nil
}

func (r *DocUserRepository) merge(ctx context.Context, uid string, data map[string]any) (*models.UserProfile, error) {
	path := docstore.Join(usersCollection, uid)
	data["updatedAt"] = docstore.ServerTimestamp
	if err := r.store.Merge(ctx, path, data); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	doc, err := r.store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reload profile: %w", err)
	}
	return decodeProfile(doc)
}

func decodeProfile(doc *docstore.Document) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", doc.ID, err)
	}
	p.UID = doc.ID
	if p.AvatarColor == 0 {
		p.AvatarColor = models.DefaultAvatarColor
	}
	return &p, nil
}
