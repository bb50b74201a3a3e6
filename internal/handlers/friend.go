package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

// minSearchQueryLength is the shortest non-empty query that reaches the
// directory. An empty query lists candidates without filtering.
const minSearchQueryLength = 2

type FriendHandler struct {
	friendService       services.FriendServiceInterface
	relationshipService services.RelationshipServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface, relationshipService services.RelationshipServiceInterface) *FriendHandler {
	return &FriendHandler{
		friendService:       friendService,
		relationshipService: relationshipService,
	}
}

type FriendshipResponse struct {
	Friendship *models.RelationshipView `json:"friendship,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

type FriendListResponse struct {
	Friends []models.RelationshipView `json:"friends"`
}

type FriendRequestListResponse struct {
	Requests []models.RelationshipView `json:"requests"`
}

type UserSearchResponse struct {
	Users []models.CandidateView `json:"users"`
}

// viewsFor projects stored pairs onto actorID's point of view.
func viewsFor(actorID uuid.UUID, pairs []models.FriendPair) []models.RelationshipView {
	views := make([]models.RelationshipView, 0, len(pairs))
	for i := range pairs {
		views = append(views, models.NewRelationshipView(actorID, pairs[i].Other(actorID), &pairs[i]))
	}
	return views
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pairs, err := h.friendService.ListFriends(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, "list_friends", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Friends: viewsFor(actorID, pairs)})
}

func (h *FriendHandler) Search(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query != "" && len([]rune(query)) < minSearchQueryLength {
		writeJSON(w, http.StatusOK, UserSearchResponse{Users: []models.CandidateView{}})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	users, err := h.relationshipService.SearchCandidates(r.Context(), actorID, services.CandidateFilter{
		Query: query,
		Limit: limit,
	})
	if err != nil {
		writeServiceError(w, "search_candidates", err)
		return
	}
	if users == nil {
		users = []models.CandidateView{}
	}
	writeJSON(w, http.StatusOK, UserSearchResponse{Users: users})
}

func (h *FriendHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pairs, err := h.friendService.ListSentRequests(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, "list_sent_requests", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: viewsFor(actorID, pairs)})
}

func (h *FriendHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pairs, err := h.friendService.ListReceivedRequests(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, "list_received_requests", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendRequestListResponse{Requests: viewsFor(actorID, pairs)})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	actorID := GetActorFromContext(r.Context())
	if actorID == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req TargetRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	pair, err := h.friendService.SendRequest(r.Context(), actorID, targetID)
	if err != nil {
		writeServiceError(w, "send_request", err)
		return
	}

	view := models.NewRelationshipView(actorID, targetID, pair)
	message := "Friend request sent"
	if pair != nil && pair.Status == models.FriendshipStatusAccepted {
		message = "You are now friends"
	}
	writeJSON(w, http.StatusCreated, FriendshipResponse{Friendship: &view, Message: message})
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept_request", func(ctx context.Context, actorID, otherID uuid.UUID) (*models.FriendPair, error) {
		return h.friendService.AcceptRequest(ctx, actorID, otherID)
	}, "Friend request accepted")
}

func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject_request", func(ctx context.Context, actorID, otherID uuid.UUID) (*models.FriendPair, error) {
		return h.friendService.RejectRequest(ctx, actorID, otherID)
	}, "Friend request rejected")
}

func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "cancel_request", func(ctx context.Context, actorID, otherID uuid.UUID) (*models.FriendPair, error) {
		return h.friendService.CancelRequest(ctx, actorID, otherID)
	}, "Friend request canceled")
}

type pairMutation func(ctx context.Context, actorID, otherID uuid.UUID) (*models.FriendPair, error)

func (h *FriendHandler) respond(w http.ResponseWriter, r *http.Request, operation string, mutate pairMutation, message string) {
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

	pair, err := mutate(r.Context(), actorID, otherID)
	if err != nil {
		writeServiceError(w, operation, err)
		return
	}

	view := models.NewRelationshipView(actorID, otherID, pair)
	writeJSON(w, http.StatusOK, FriendshipResponse{Friendship: &view, Message: message})
}

func (h *FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
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

	if err := h.friendService.Unfriend(r.Context(), actorID, otherID); err != nil {
		writeServiceError(w, "unfriend", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendshipResponse{Message: "Friend removed"})
}
