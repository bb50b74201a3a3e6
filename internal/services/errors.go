package services

import (
	"errors"
	"fmt"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

// Error kinds. Every error returned by the relationship services either wraps
// exactly one of these or is a storage failure.
var (
	ErrInvalidPair      = errors.New("invalid pair")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

var (
	ErrSelfPair = fmt.Errorf("%w: an account cannot be paired with itself", ErrInvalidPair)
	ErrNilID    = fmt.Errorf("%w: account id is required", ErrInvalidPair)

	ErrNoActor = fmt.Errorf("%w: no authenticated actor", ErrUnauthenticated)

	ErrAccountNotFound       = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrProfileNotFound       = fmt.Errorf("%w: profile not found", ErrNotFound)
	ErrFriendRequestNotFound = fmt.Errorf("%w: friend request not found", ErrNotFound)
	ErrFriendshipNotFound    = fmt.Errorf("%w: friend relation not found", ErrNotFound)
	ErrBlockNotFound         = fmt.Errorf("%w: user is not blocked", ErrNotFound)

	ErrAlreadyFriends   = fmt.Errorf("%w: already friends with this user", ErrConflict)
	ErrRequestExists    = fmt.Errorf("%w: friend request already exists", ErrConflict)
	ErrBlockExists      = fmt.Errorf("%w: user already blocked", ErrConflict)
	ErrRetriesExhausted = fmt.Errorf("%w: concurrent modification, try again", ErrConflict)

	ErrInvalidRequester = fmt.Errorf("%w: invalid requester", ErrUnauthorized)
	ErrNotRequestSender = fmt.Errorf("%w: you can only cancel your own requests", ErrUnauthorized)

	ErrCannotFriendSelf = fmt.Errorf("%w: cannot send friend request to yourself", ErrInvalidOperation)
	ErrCannotBlockSelf  = fmt.Errorf("%w: cannot block yourself", ErrInvalidOperation)
	ErrUserBlocked      = fmt.Errorf("%w: a block exists between these users", ErrInvalidOperation)
	ErrReasonTooLong    = fmt.Errorf("%w: block reason is too long", ErrInvalidOperation)
)

// ErrTxConflict is returned by a store when a transaction lost a race on a
// pair (lock timeout, version mismatch, serialization failure). The mutation
// runner retries it; it never reaches callers as-is.
var ErrTxConflict = errors.New("concurrent modification")

func errNotPending(status models.FriendshipStatus) error {
	return fmt.Errorf("%w: friend request is not pending, current status: %s", ErrInvalidOperation, status)
}

func errCannotCancel(status models.FriendshipStatus) error {
	return fmt.Errorf("%w: cannot cancel non-pending request, current status: %s", ErrInvalidOperation, status)
}

func errNotFriends(status models.FriendshipStatus) error {
	return fmt.Errorf("%w: cannot unfriend, friend status is not accepted, current status: %s", ErrInvalidOperation, status)
}

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPair
	KindNotFound
	KindUnauthorized
	KindInvalidOperation
	KindConflict
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPair:
		return "invalid_pair"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// KindOf classifies err. nil is reported as KindUnknown; callers check err first.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidPair):
		return KindInvalidPair
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidOperation):
		return KindInvalidOperation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindUnknown
	}
}

// resultLabel is the metrics label for the outcome of an operation.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
