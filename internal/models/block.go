package models

import (
	"time"

	"github.com/google/uuid"
)

const BlockReasonMaxLength = 255

// Block suppresses BlockedID from the point of view of BlockerID. A block in
// one direction says nothing about the other direction.
type Block struct {
	BlockerID uuid.UUID `json:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BlockedAccount struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Reason    *string   `json:"reason,omitempty"`
	BlockedAt time.Time `json:"blocked_at"`
}
