package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/logging"
	"github.com/HammerMeetNail/pairgraph/internal/models"
)

type BlockService struct {
	store    RelationshipStore
	accounts AccountDirectory
	retry    retryPolicy
	now      func() time.Time
}

func NewBlockService(store RelationshipStore, accounts AccountDirectory) *BlockService {
	return &BlockService{
		store:    store,
		accounts: accounts,
		retry:    defaultRetryPolicy(),
		now:      time.Now,
	}
}

func (s *BlockService) SetRetryPolicy(attempts int, backoff time.Duration) {
	s.retry = newRetryPolicy(attempts, backoff)
}

// Block records that actorID blocks targetID and removes any friend relation
// between them, whatever its status. Unblocking later does not restore it.
func (s *BlockService) Block(ctx context.Context, actorID, targetID uuid.UUID, reason *string) (block *models.Block, err error) {
	started := time.Now()
	defer func() { observe("block", started, err) }()
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	if actorID == targetID {
		return nil, ErrCannotBlockSelf
	}
	reason, err = normalizeBlockReason(reason)
	if err != nil {
		return nil, err
	}
	exists, err := s.accounts.ExistsAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	var removed bool
	err = s.retry.run(ctx, s.store, "block", func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		existing, err := tx.FindBlock(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrBlockExists
		}

		next := models.Block{
			BlockerID: actorID,
			BlockedID: targetID,
			Reason:    reason,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.SaveBlock(ctx, next); err != nil {
			return err
		}
		removed, err = tx.DeleteFriendPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		block = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		logging.Info("Block removed friend relation", map[string]interface{}{
			"blocker_id": actorID.String(),
			"blocked_id": targetID.String(),
		})
	}
	return block, nil
}

func normalizeBlockReason(reason *string) (*string, error) {
	if reason == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > models.BlockReasonMaxLength {
		return nil, ErrReasonTooLong
	}
	return &trimmed, nil
}

// Unblock removes the block actorID placed on targetID.
func (s *BlockService) Unblock(ctx context.Context, actorID, targetID uuid.UUID) (err error) {
	started := time.Now()
	defer func() { observe("unblock", started, err) }()
	if actorID == uuid.Nil {
		return ErrNoActor
	}
	if actorID == targetID {
		return ErrBlockNotFound
	}

	return s.retry.run(ctx, s.store, "unblock", func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		deleted, err := tx.DeleteBlock(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrBlockNotFound
		}
		return nil
	})
}

// ListBlocked returns the accounts actorID has blocked, newest first.
func (s *BlockService) ListBlocked(ctx context.Context, actorID uuid.UUID) ([]models.BlockedAccount, error) {
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	blocks, err := s.store.ListBlockedBy(ctx, actorID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(blocks))
	for _, block := range blocks {
		ids = append(ids, block.BlockedID)
	}
	accounts, err := s.accounts.ResolveAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	blocked := make([]models.BlockedAccount, 0, len(blocks))
	for _, block := range blocks {
		blocked = append(blocked, models.BlockedAccount{
			ID:        block.BlockedID,
			Username:  accounts[block.BlockedID].Username,
			Reason:    block.Reason,
			BlockedAt: block.CreatedAt,
		})
	}
	return blocked, nil
}

func (s *BlockService) IsBlockedEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}
	return s.store.ExistsBlockEitherDirection(ctx, a, b)
}

func (s *BlockService) HasBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	block, err := s.store.FindBlock(ctx, blockerID, blockedID)
	if err != nil {
		return false, err
	}
	return block != nil, nil
}
