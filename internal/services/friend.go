package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/logging"
	"github.com/HammerMeetNail/pairgraph/internal/metrics"
	"github.com/HammerMeetNail/pairgraph/internal/models"
)

// FriendService drives the friend request lifecycle between two accounts.
type FriendService struct {
	store    RelationshipStore
	accounts AccountDirectory
	retry    retryPolicy
	now      func() time.Time
}

func NewFriendService(store RelationshipStore, accounts AccountDirectory) *FriendService {
	return &FriendService{
		store:    store,
		accounts: accounts,
		retry:    defaultRetryPolicy(),
		now:      time.Now,
	}
}

func (s *FriendService) SetRetryPolicy(attempts int, backoff time.Duration) {
	s.retry = newRetryPolicy(attempts, backoff)
}

func observe(operation string, started time.Time, err error) {
	metrics.ObserveMutation(operation, resultLabel(err), started)
}

// SendRequest creates a friend relation from actorID to targetID. Private
// targets receive a pending request; public targets are befriended at once.
// A rejected relation is replaced by the new request.
func (s *FriendService) SendRequest(ctx context.Context, actorID, targetID uuid.UUID) (pair *models.FriendPair, err error) {
	started := time.Now()
	defer func() { observe("send_request", started, err) }()
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	if actorID == targetID {
		return nil, ErrCannotFriendSelf
	}
	exists, err := s.accounts.ExistsAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAccountNotFound
	}
	// Pool reads finish before the transaction takes a connection. A
	// privacy lookup error is reported after the pair checks.
	private, privateErr := s.accounts.IsProfilePrivate(ctx, targetID)
	key, err := Canonicalize(actorID, targetID)
	if err != nil {
		return nil, err
	}

	err = s.retry.run(ctx, s.store, "send_request", func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		existing, err := tx.FindFriendPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.FriendshipStatusAccepted:
				return ErrAlreadyFriends
			case models.FriendshipStatusPending:
				return ErrRequestExists
			}
		}
		blocked, err := tx.ExistsBlockEitherDirection(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrUserBlocked
		}
		if privateErr != nil {
			return privateErr
		}

		now := s.now().UTC()
		next := &models.FriendPair{
			LowID:       key.Low,
			HighID:      key.High,
			RequesterID: actorID,
			Status:      models.FriendshipStatusAccepted,
			CreatedAt:   now,
		}
		if private {
			next.Status = models.FriendshipStatusPending
		} else {
			next.AcceptedAt = &now
		}
		if existing != nil {
			next.Version = existing.Version
		}
		if err := tx.SaveFriendPair(ctx, next); err != nil {
			return err
		}
		pair = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Friend request sent", map[string]interface{}{
		"requester_id": actorID.String(),
		"receiver_id":  targetID.String(),
		"status":       string(pair.Status),
	})
	return pair, nil
}

// AcceptRequest accepts the pending request requesterID sent to actorID.
func (s *FriendService) AcceptRequest(ctx context.Context, actorID, requesterID uuid.UUID) (pair *models.FriendPair, err error) {
	started := time.Now()
	defer func() { observe("accept_request", started, err) }()
	return s.respond(ctx, "accept_request", actorID, requesterID, models.FriendshipStatusAccepted)
}

// RejectRequest rejects the pending request requesterID sent to actorID.
func (s *FriendService) RejectRequest(ctx context.Context, actorID, requesterID uuid.UUID) (pair *models.FriendPair, err error) {
	started := time.Now()
	defer func() { observe("reject_request", started, err) }()
	return s.respond(ctx, "reject_request", actorID, requesterID, models.FriendshipStatusRejected)
}

func (s *FriendService) respond(ctx context.Context, operation string, actorID, requesterID uuid.UUID, status models.FriendshipStatus) (*models.FriendPair, error) {
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	if _, err := Canonicalize(actorID, requesterID); err != nil {
		return nil, err
	}

	var pair *models.FriendPair
	err := s.retry.run(ctx, s.store, operation, func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, requesterID); err != nil {
			return err
		}
		current, err := tx.FindFriendPair(ctx, actorID, requesterID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrFriendRequestNotFound
		}
		if current.RequesterID != requesterID {
			return ErrInvalidRequester
		}
		if current.Status != models.FriendshipStatusPending {
			return errNotPending(current.Status)
		}

		current.Status = status
		if status == models.FriendshipStatusAccepted {
			now := s.now().UTC()
			current.AcceptedAt = &now
		}
		if err := tx.SaveFriendPair(ctx, current); err != nil {
			return err
		}
		pair = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// CancelRequest withdraws the pending request actorID sent to targetID.
func (s *FriendService) CancelRequest(ctx context.Context, actorID, targetID uuid.UUID) (pair *models.FriendPair, err error) {
	started := time.Now()
	defer func() { observe("cancel_request", started, err) }()
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	if _, err := Canonicalize(actorID, targetID); err != nil {
		return nil, err
	}

	err = s.retry.run(ctx, s.store, "cancel_request", func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		current, err := tx.FindFriendPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrFriendRequestNotFound
		}
		if current.Status != models.FriendshipStatusPending {
			return errCannotCancel(current.Status)
		}
		if current.RequesterID != actorID {
			return ErrNotRequestSender
		}
		current.Status = models.FriendshipStatusRejected
		if err := tx.SaveFriendPair(ctx, current); err != nil {
			return err
		}
		pair = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Unfriend removes an accepted friend relation. Either side may unfriend.
func (s *FriendService) Unfriend(ctx context.Context, actorID, targetID uuid.UUID) (err error) {
	started := time.Now()
	defer func() { observe("unfriend", started, err) }()
	if actorID == uuid.Nil {
		return ErrNoActor
	}
	if _, err := Canonicalize(actorID, targetID); err != nil {
		return err
	}

	return s.retry.run(ctx, s.store, "unfriend", func(tx RelationshipTx) error {
		if err := tx.LockPair(ctx, actorID, targetID); err != nil {
			return err
		}
		current, err := tx.FindFriendPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrFriendshipNotFound
		}
		if current.Status != models.FriendshipStatusAccepted {
			return errNotFriends(current.Status)
		}
		if _, err := tx.DeleteFriendPair(ctx, actorID, targetID); err != nil {
			return err
		}
		return nil
	})
}

func (s *FriendService) ListSentRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	return s.store.ListFriendRequestsSentBy(ctx, actorID, models.FriendshipStatusPending)
}

func (s *FriendService) ListReceivedRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	return s.store.ListFriendRequestsReceivedBy(ctx, actorID, models.FriendshipStatusPending)
}

func (s *FriendService) ListFriends(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if actorID == uuid.Nil {
		return nil, ErrNoActor
	}
	return s.store.ListAcceptedFriendsOf(ctx, actorID)
}
