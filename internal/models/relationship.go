package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipView describes a FriendPair as seen by ViewerID.
type RelationshipView struct {
	ViewerID          uuid.UUID        `json:"viewer_id"`
	OtherID           uuid.UUID        `json:"other_id"`
	Status            FriendshipStatus `json:"status"`
	RequesterID       *uuid.UUID       `json:"requester_id,omitempty"`
	ReceiverID        *uuid.UUID       `json:"receiver_id,omitempty"`
	IsRequestSent     bool             `json:"is_request_sent"`
	IsRequestReceived bool             `json:"is_request_received"`
	CreatedAt         *time.Time       `json:"created_at,omitempty"`
	AcceptedAt        *time.Time       `json:"accepted_at,omitempty"`
}

// NewRelationshipView builds the view of pair for viewer. A nil pair yields
// the neutral "none" view.
func NewRelationshipView(viewerID, otherID uuid.UUID, pair *FriendPair) RelationshipView {
	view := RelationshipView{
		ViewerID: viewerID,
		OtherID:  otherID,
		Status:   FriendshipStatusNone,
	}
	if pair == nil {
		return view
	}

	requester := pair.RequesterID
	receiver := pair.ReceiverID()
	createdAt := pair.CreatedAt

	view.Status = pair.Status
	view.RequesterID = &requester
	view.ReceiverID = &receiver
	view.IsRequestSent = requester == viewerID
	view.IsRequestReceived = !view.IsRequestSent && pair.Status == FriendshipStatusPending
	view.CreatedAt = &createdAt
	if pair.AcceptedAt != nil {
		acceptedAt := *pair.AcceptedAt
		view.AcceptedAt = &acceptedAt
	}
	return view
}

type CandidateView struct {
	Account
	Relationship RelationshipView `json:"relationship"`
}
