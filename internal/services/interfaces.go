package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

// FriendServiceInterface is the surface the HTTP layer depends on.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error)
	AcceptRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error)
	RejectRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error)
	CancelRequest(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error)
	Unfriend(ctx context.Context, actorID, targetID uuid.UUID) error
	ListSentRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
	ListReceivedRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
	ListFriends(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
}

type BlockServiceInterface interface {
	Block(ctx context.Context, actorID, targetID uuid.UUID, reason *string) (*models.Block, error)
	Unblock(ctx context.Context, actorID, targetID uuid.UUID) error
	ListBlocked(ctx context.Context, actorID uuid.UUID) ([]models.BlockedAccount, error)
	IsBlockedEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error)
	HasBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
}

type RelationshipServiceInterface interface {
	RelationshipBetween(ctx context.Context, viewerID, otherID uuid.UUID) (*models.RelationshipView, error)
	SearchCandidates(ctx context.Context, viewerID uuid.UUID, filter CandidateFilter) ([]models.CandidateView, error)
}

var (
	_ FriendServiceInterface       = (*FriendService)(nil)
	_ BlockServiceInterface        = (*BlockService)(nil)
	_ RelationshipServiceInterface = (*RelationshipService)(nil)
	_ RelationshipStore            = (*PostgresRelationshipStore)(nil)
	_ RelationshipStore            = (*MemoryRelationshipStore)(nil)
	_ AccountDirectory             = (*PostgresAccountDirectory)(nil)
	_ AccountDirectory             = (*MemoryAccountDirectory)(nil)
	_ DB                           = (*PoolAdapter)(nil)
)
