package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

type RelationshipHandler struct {
	relationshipService services.RelationshipServiceInterface
	blockService        services.BlockServiceInterface
}

func NewRelationshipHandler(relationshipService services.RelationshipServiceInterface, blockService services.BlockServiceInterface) *RelationshipHandler {
	return &RelationshipHandler{
		relationshipService: relationshipService,
		blockService:        blockService,
	}
}

// RelationshipResponse adds the viewer's own block state to the friend view.
// Blocked reports only whether the viewer blocked the other account.
type RelationshipResponse struct {
	Relationship *models.RelationshipView `json:"relationship"`
	Blocked      bool                     `json:"blocked"`
}

func (h *RelationshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	otherID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	view, err := h.relationshipService.RelationshipBetween(r.Context(), actorID, otherID)
	if err != nil {
		writeServiceError(w, "relationship_between", err)
		return
	}

	blocked, err := h.blockService.HasBlocked(r.Context(), actorID, otherID)
	if err != nil {
		writeServiceError(w, "has_blocked", err)
		return
	}
	writeJSON(w, http.StatusOK, RelationshipResponse{Relationship: view, Blocked: blocked})
}
