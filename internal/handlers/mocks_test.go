package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

type mockFriendService struct {
	SendRequestFunc          func(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error)
	AcceptRequestFunc        func(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error)
	RejectRequestFunc        func(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error)
	CancelRequestFunc        func(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error)
	UnfriendFunc             func(ctx context.Context, actorID, targetID uuid.UUID) error
	ListSentRequestsFunc     func(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
	ListReceivedRequestsFunc func(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
	ListFriendsFunc          func(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, actorID, targetID)
	}
	return nil, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, actorID, requesterID)
	}
	return nil, nil
}

func (m *mockFriendService) RejectRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*models.FriendPair, error) {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, actorID, requesterID)
	}
	return nil, nil
}

func (m *mockFriendService) CancelRequest(ctx context.Context, actorID, targetID uuid.UUID) (*models.FriendPair, error) {
	if m.CancelRequestFunc != nil {
		return m.CancelRequestFunc(ctx, actorID, targetID)
	}
	return nil, nil
}

func (m *mockFriendService) Unfriend(ctx context.Context, actorID, targetID uuid.UUID) error {
	if m.UnfriendFunc != nil {
		return m.UnfriendFunc(ctx, actorID, targetID)
	}
	return nil
}

func (m *mockFriendService) ListSentRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if m.ListSentRequestsFunc != nil {
		return m.ListSentRequestsFunc(ctx, actorID)
	}
	return nil, nil
}

func (m *mockFriendService) ListReceivedRequests(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if m.ListReceivedRequestsFunc != nil {
		return m.ListReceivedRequestsFunc(ctx, actorID)
	}
	return nil, nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, actorID uuid.UUID) ([]models.FriendPair, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, actorID)
	}
	return nil, nil
}

type mockBlockService struct {
	BlockFunc                    func(ctx context.Context, actorID, targetID uuid.UUID, reason *string) (*models.Block, error)
	UnblockFunc                  func(ctx context.Context, actorID, targetID uuid.UUID) error
	ListBlockedFunc              func(ctx context.Context, actorID uuid.UUID) ([]models.BlockedAccount, error)
	IsBlockedEitherDirectionFunc func(ctx context.Context, a, b uuid.UUID) (bool, error)
	HasBlockedFunc               func(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
}

func (m *mockBlockService) Block(ctx context.Context, actorID, targetID uuid.UUID, reason *string) (*models.Block, error) {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, actorID, targetID, reason)
	}
	return nil, nil
}

func (m *mockBlockService) Unblock(ctx context.Context, actorID, targetID uuid.UUID) error {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, actorID, targetID)
	}
	return nil
}

func (m *mockBlockService) ListBlocked(ctx context.Context, actorID uuid.UUID) ([]models.BlockedAccount, error) {
	if m.ListBlockedFunc != nil {
		return m.ListBlockedFunc(ctx, actorID)
	}
	return nil, nil
}

func (m *mockBlockService) IsBlockedEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if m.IsBlockedEitherDirectionFunc != nil {
		return m.IsBlockedEitherDirectionFunc(ctx, a, b)
	}
	return false, nil
}

func (m *mockBlockService) HasBlocked(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	if m.HasBlockedFunc != nil {
		return m.HasBlockedFunc(ctx, blockerID, blockedID)
	}
	return false, nil
}

type mockRelationshipService struct {
	RelationshipBetweenFunc func(ctx context.Context, viewerID, otherID uuid.UUID) (*models.RelationshipView, error)
	SearchCandidatesFunc    func(ctx context.Context, viewerID uuid.UUID, filter services.CandidateFilter) ([]models.CandidateView, error)
}

func (m *mockRelationshipService) RelationshipBetween(ctx context.Context, viewerID, otherID uuid.UUID) (*models.RelationshipView, error) {
	if m.RelationshipBetweenFunc != nil {
		return m.RelationshipBetweenFunc(ctx, viewerID, otherID)
	}
	view := models.NewRelationshipView(viewerID, otherID, nil)
	return &view, nil
}

func (m *mockRelationshipService) SearchCandidates(ctx context.Context, viewerID uuid.UUID, filter services.CandidateFilter) ([]models.CandidateView, error) {
	if m.SearchCandidatesFunc != nil {
		return m.SearchCandidatesFunc(ctx, viewerID, filter)
	}
	return nil, nil
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rr.Code, rr.Body.String())
	}
	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}
