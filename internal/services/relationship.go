package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// CandidateFilter narrows a friend search. Predicate, when set, drops
// accounts for which it returns false.
type CandidateFilter struct {
	Query     string
	Limit     int
	Predicate func(models.Account) bool
}

// RelationshipService answers read-only questions about how two accounts
// relate. Blocks are not consulted.
type RelationshipService struct {
	store        RelationshipStore
	accounts     AccountDirectory
	defaultLimit int
	maxLimit     int
}

func NewRelationshipService(store RelationshipStore, accounts AccountDirectory) *RelationshipService {
	return &RelationshipService{
		store:        store,
		accounts:     accounts,
		defaultLimit: DefaultSearchLimit,
		maxLimit:     MaxSearchLimit,
	}
}

func (s *RelationshipService) SetSearchLimits(defaultLimit, maxLimit int) {
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
}

func (s *RelationshipService) RelationshipBetween(ctx context.Context, viewerID, otherID uuid.UUID) (*models.RelationshipView, error) {
	if viewerID == uuid.Nil {
		return nil, ErrNoActor
	}
	if _, err := Canonicalize(viewerID, otherID); err != nil {
		return nil, err
	}
	pair, err := s.store.FindFriendPair(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	view := models.NewRelationshipView(viewerID, otherID, pair)
	return &view, nil
}

// SearchCandidates lists accounts matching filter together with their
// relationship to viewerID. No match is an empty result, not an error.
func (s *RelationshipService) SearchCandidates(ctx context.Context, viewerID uuid.UUID, filter CandidateFilter) ([]models.CandidateView, error) {
	if viewerID == uuid.Nil {
		return nil, ErrNoActor
	}

	candidates, err := s.accounts.ListCandidates(ctx, viewerID, filter.Query, s.limit(filter.Limit))
	if err != nil {
		return nil, err
	}

	kept := make([]models.Account, 0, len(candidates))
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, account := range candidates {
		if account.ID == viewerID {
			continue
		}
		if filter.Predicate != nil && !filter.Predicate(account) {
			continue
		}
		kept = append(kept, account)
		ids = append(ids, account.ID)
	}

	pairs, err := s.store.FindFriendPairsWith(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.CandidateView, 0, len(kept))
	for _, account := range kept {
		var pair *models.FriendPair
		if found, ok := pairs[account.ID]; ok {
			pair = &found
		}
		views = append(views, models.CandidateView{
			Account:      account,
			Relationship: models.NewRelationshipView(viewerID, account.ID, pair),
		})
	}
	return views, nil
}

func (s *RelationshipService) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.defaultLimit
	case requested > s.maxLimit:
		return s.maxLimit
	default:
		return requested
	}
}
