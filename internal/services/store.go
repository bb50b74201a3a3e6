package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

// RelationshipReader is the read surface shared by stores and transactions.
// Missing records are reported as nil with a nil error.
type RelationshipReader interface {
	FindFriendPair(ctx context.Context, a, b uuid.UUID) (*models.FriendPair, error)
	FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*models.Block, error)
	ExistsBlockEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// RelationshipStore persists friend pairs and blocks.
type RelationshipStore interface {
	RelationshipReader

	ListFriendRequestsReceivedBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error)
	ListFriendRequestsSentBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error)
	ListAcceptedFriendsOf(ctx context.Context, userID uuid.UUID) ([]models.FriendPair, error)
	ListBlockedBy(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error)

	// FindFriendPairsWith returns the pairs between userID and each of others
	// that exist, keyed by the other account.
	FindFriendPairsWith(ctx context.Context, userID uuid.UUID, others []uuid.UUID) (map[uuid.UUID]models.FriendPair, error)

	// WithinTx runs fn in a single transaction. A nil return commits every
	// write fn made; any error rolls all of them back.
	WithinTx(ctx context.Context, fn func(tx RelationshipTx) error) error
}

// RelationshipTx is a unit of work opened by RelationshipStore.WithinTx.
type RelationshipTx interface {
	RelationshipReader

	// LockPair blocks until no other transaction holds the pair lock for
	// {a, b}. The lock is released when the transaction ends.
	LockPair(ctx context.Context, a, b uuid.UUID) error

	// SaveFriendPair inserts the pair when Version is 0 and otherwise replaces
	// the stored row if its version still matches. On success pair.Version
	// holds the new version. A lost race returns ErrTxConflict.
	SaveFriendPair(ctx context.Context, pair *models.FriendPair) error
	DeleteFriendPair(ctx context.Context, a, b uuid.UUID) (bool, error)

	// SaveBlock returns ErrBlockExists when the directed block is present.
	SaveBlock(ctx context.Context, block models.Block) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
}

func validateFriendPair(pair *models.FriendPair) error {
	key, err := Canonicalize(pair.LowID, pair.HighID)
	if err != nil {
		return err
	}
	if key.Low != pair.LowID {
		return ErrInvalidPair
	}
	if !key.Contains(pair.RequesterID) {
		return ErrInvalidRequester
	}
	if !pair.Status.Valid() {
		return fmt.Errorf("%w: unknown friendship status %q", ErrInvalidOperation, pair.Status)
	}
	return nil
}
