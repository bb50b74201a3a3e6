package models

import (
	"github.com/google/uuid"
)

// Account is the read-only projection of a user the relationship core needs.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	IsPrivate   bool      `json:"is_private"`
}
