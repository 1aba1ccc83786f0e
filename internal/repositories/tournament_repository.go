package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/session"
)

const (
	tournamentsCollection  = "tournaments"
	participantsCollection = "participants"
)

// TournamentRepository defines the interface for group tournament operations
type TournamentRepository interface {
	CreateTournament(ctx context.Context, caller session.Caller, groupID string, req models.CreateTournamentRequest) (string, error)
	JoinTournament(ctx context.Context, caller session.Caller, groupID, tournamentID string) error
	ListParticipants(ctx context.Context, groupID, tournamentID string) ([]models.Participant, error)
	TournamentsQuery(groupID string) (docstore.Query, error)
}

// DocTournamentRepository implements TournamentRepository on a document store
type DocTournamentRepository struct {
	store docstore.Store
}

// NewDocTournamentRepository creates a new DocTournamentRepository
func NewDocTournamentRepository(store docstore.Store) *DocTournamentRepository {
	return &DocTournamentRepository{store: store}
}

// CreateTournament writes a tournament under the group and returns its id.
func (r *DocTournamentRepository) CreateTournament(ctx context.Context, caller session.Caller, groupID string, req models.CreateTournamentRequest) (string, error) {
	uid, err := caller.Require()
	if err != nil {
		return "", err
	}
	groupID, err = requireID("groupId", groupID)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if req.EntryFee < 0 {
		return "", invalid("entryFee", "must not be negative")
	}

	id, err := r.store.Add(ctx, docstore.Join(groupsCollection, groupID, tournamentsCollection), map[string]any{
		"title":     title,
		"entryFee":  req.EntryFee,
		"createdBy": uid,
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create tournament: %w", err)
	}
	return id, nil
}

// JoinTournament merges the caller's participant entry with a zero score.
func (r *DocTournamentRepository) JoinTournament(ctx context.Context, caller session.Caller, groupID, tournamentID string) error {
	uid, err := caller.Require()
	if err != nil {
		return err
	}
	path, err := tournamentPath(groupID, tournamentID)
	if err != nil {
		return err
	}
	if _, err := r.store.Get(ctx, path); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("get tournament: %w", err)
	}

	err = r.store.Merge(ctx, docstore.Join(path, participantsCollection, uid), map[string]any{
		"uid":      uid,
		"score":    int64(0),
		"joinedAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("join tournament: %w", err)
	}
	return nil
}

// ListParticipants returns the tournament's participants in join order.
func (r *DocTournamentRepository) ListParticipants(ctx context.Context, groupID, tournamentID string) ([]models.Participant, error) {
	path, err := tournamentPath(groupID, tournamentID)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, docstore.Collection(docstore.Join(path, participantsCollection)).
		Order("joinedAt", docstore.Asc))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return decodeAll[models.Participant](docs, nil)
}

// TournamentsQuery is the newest-first query over a group's tournaments.
func (r *DocTournamentRepository) TournamentsQuery(groupID string) (docstore.Query, error) {
	groupID, err := requireID("groupId", groupID)
	if err != nil {
		return docstore.Query{}, err
	}
	return docstore.Collection(docstore.Join(groupsCollection, groupID, tournamentsCollection)).
		Order("createdAt", docstore.Desc), nil
}

// DecodeTournaments maps snapshot documents to tournaments.
func DecodeTournaments(docs []*docstore.Document) ([]models.Tournament, error) {
	return decodeAll(docs, func(t *models.Tournament, id string) { t.ID = id })
}

func tournamentPath(groupID, tournamentID string) (string, error) {
	groupID, err := requireID("groupId", groupID)
	if err != nil {
		return "", err
	}
	tournamentID, err = requireID("tournamentId", tournamentID)
	if err != nil {
		return "", err
	}
	return docstore.Join(groupsCollection, groupID, tournamentsCollection, tournamentID), nil
}
