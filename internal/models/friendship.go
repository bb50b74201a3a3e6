package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"

	// FriendshipStatusNone is only reported in views; it is never stored.
	FriendshipStatusNone FriendshipStatus = "none"
)

// Valid reports whether s is a status a stored FriendPair may carry.
func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipStatusPending, FriendshipStatusAccepted, FriendshipStatusRejected:
		return true
	}
	return false
}

// FriendPair is the single record describing the friend relationship between
// two accounts. LowID is always the smaller identifier of the pair.
type FriendPair struct {
	LowID       uuid.UUID        `json:"low_id"`
	HighID      uuid.UUID        `json:"high_id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	Status      FriendshipStatus `json:"status"`
	Version     int64            `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
}

// ReceiverID returns the side of the pair that did not initiate it.
func (p FriendPair) ReceiverID() uuid.UUID {
	if p.RequesterID == p.LowID {
		return p.HighID
	}
	return p.LowID
}

// Involves reports whether id is one of the two parties.
func (p FriendPair) Involves(id uuid.UUID) bool {
	return id == p.LowID || id == p.HighID
}

// Other returns the party opposite to id. The result is meaningless when
// id is not part of the pair.
func (p FriendPair) Other(id uuid.UUID) uuid.UUID {
	if id == p.LowID {
		return p.HighID
	}
	return p.LowID
}
