package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

type BlockHandler struct {
	blockService services.BlockServiceInterface
}

func NewBlockHandler(blockService services.BlockServiceInterface) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

type BlockResponse struct {
	Block   *models.Block `json:"block,omitempty"`
	Message string        `json:"message,omitempty"`
}

type BlockListResponse struct {
	Blocked []models.BlockedAccount `json:"blocked"`
}

func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req BlockRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	block, err := h.blockService.Block(r.Context(), actorID, targetID, req.Reason)
	if err != nil {
		writeServiceError(w, "block", err)
		return
	}
	writeJSON(w, http.StatusCreated, BlockResponse{Block: block, Message: "User blocked"})
}

func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	targetID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.blockService.Unblock(r.Context(), actorID, targetID); err != nil {
		writeServiceError(w, "unblock", err)
		return
	}
	writeJSON(w, http.StatusOK, BlockResponse{Message: "User unblocked"})
}

func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	blocked, err := h.blockService.ListBlocked(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, "list_blocked", err)
		return
	}
	if blocked == nil {
		blocked = []models.BlockedAccount{}
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Blocked: blocked})
}
