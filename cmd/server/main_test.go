package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/pairgraph/internal/config"
	"github.com/HammerMeetNail/pairgraph/internal/handlers"
	"github.com/HammerMeetNail/pairgraph/internal/logging"
	"github.com/HammerMeetNail/pairgraph/internal/middleware"
	"github.com/HammerMeetNail/pairgraph/internal/models"
	"github.com/HammerMeetNail/pairgraph/internal/services"
)

const testSecret = "router-test-secret"

type testServer struct {
	t      *testing.T
	server *httptest.Server
	tokens map[uuid.UUID]string
}

func newTestServer(t *testing.T, accounts ...models.Account) *testServer {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: testSecret},
		Relationships: config.RelationshipConfig{
			MaxAttempts:        3,
			DefaultSearchLimit: 20,
			MaxSearchLimit:     50,
		},
		RateLimit: config.RateLimitConfig{FriendRequests: 10, Blocks: 10, Window: time.Minute},
	}

	directory := services.NewMemoryAccountDirectory()
	for _, account := range accounts {
		directory.Add(account)
	}

	ts := &testServer{t: t, tokens: map[uuid.UUID]string{}}
	ts.server = httptest.NewServer(newRouter(routerDeps{
		cfg:      cfg,
		logger:   logging.New().SetOutput(io.Discard),
		store:    services.NewMemoryRelationshipStore(),
		accounts: directory,
	}))
	t.Cleanup(ts.server.Close)

	for _, account := range accounts {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		ts.tokens[account.ID] = token
	}
	return ts
}

func (ts *testServer) do(actorID uuid.UUID, method, path string, body interface{}) *http.Response {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		ts.t.Fatalf("new request: %v", err)
	}
	if token, ok := ts.tokens[actorID]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.server.Client().Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	ts.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestRouter_FriendRequestLifecycle(t *testing.T) {
	alice := models.Account{ID: uuid.New(), Username: "alice"}
	bob := models.Account{ID: uuid.New(), Username: "bob", IsPrivate: true}
	ts := newTestServer(t, alice, bob)

	resp := ts.do(alice.ID, http.MethodPost, "/api/friends/requests", map[string]string{"target_id": bob.ID.String()})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request: expected 201, got %d", resp.StatusCode)
	}

	resp = ts.do(bob.ID, http.MethodGet, "/api/friends/requests/received", nil)
	var received handlers.FriendRequestListResponse
	decodeBody(t, resp, &received)
	if len(received.Requests) != 1 || received.Requests[0].OtherID != alice.ID || !received.Requests[0].IsRequestReceived {
		t.Fatalf("unexpected received requests %+v", received.Requests)
	}

	resp = ts.do(alice.ID, http.MethodPost, "/api/friends/requests", map[string]string{"target_id": bob.ID.String()})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate request: expected 409, got %d", resp.StatusCode)
	}

	resp = ts.do(alice.ID, http.MethodPut, "/api/friends/requests/"+bob.ID.String()+"/accept", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("requester accepting own request: expected 403, got %d", resp.StatusCode)
	}

	resp = ts.do(bob.ID, http.MethodPut, "/api/friends/requests/"+alice.ID.String()+"/accept", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d", resp.StatusCode)
	}

	resp = ts.do(alice.ID, http.MethodGet, "/api/relationships/"+bob.ID.String(), nil)
	var rel handlers.RelationshipResponse
	decodeBody(t, resp, &rel)
	if rel.Relationship == nil || rel.Relationship.Status != models.FriendshipStatusAccepted || rel.Blocked {
		t.Fatalf("unexpected relationship %+v", rel)
	}

	resp = ts.do(bob.ID, http.MethodDelete, "/api/friends/"+alice.ID.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unfriend: expected 200, got %d", resp.StatusCode)
	}

	resp = ts.do(alice.ID, http.MethodGet, "/api/friends", nil)
	var friends handlers.FriendListResponse
	decodeBody(t, resp, &friends)
	if len(friends.Friends) != 0 {
		t.Fatalf("expected no friends after unfriend, got %+v", friends.Friends)
	}
}

func TestRouter_BlockRemovesFriendshipAndPreventsRequests(t *testing.T) {
	alice := models.Account{ID: uuid.New(), Username: "alice"}
	carol := models.Account{ID: uuid.New(), Username: "carol"}
	ts := newTestServer(t, alice, carol)

	resp := ts.do(alice.ID, http.MethodPost, "/api/friends/requests", map[string]string{"target_id": carol.ID.String()})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request: expected 201, got %d", resp.StatusCode)
	}

	resp = ts.do(carol.ID, http.MethodPost, "/api/blocks", map[string]string{"target_id": alice.ID.String(), "reason": "  spam  "})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("block: expected 201, got %d", resp.StatusCode)
	}

	resp = ts.do(alice.ID, http.MethodGet, "/api/friends", nil)
	var friends handlers.FriendListResponse
	decodeBody(t, resp, &friends)
	if len(friends.Friends) != 0 {
		t.Fatalf("block should remove the friendship, got %+v", friends.Friends)
	}

	resp = ts.do(alice.ID, http.MethodPost, "/api/friends/requests", map[string]string{"target_id": carol.ID.String()})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("request to blocker: expected 400, got %d", resp.StatusCode)
	}

	resp = ts.do(carol.ID, http.MethodGet, "/api/blocks", nil)
	var blocked handlers.BlockListResponse
	decodeBody(t, resp, &blocked)
	if len(blocked.Blocked) != 1 || blocked.Blocked[0].Username != "alice" {
		t.Fatalf("unexpected blocked list %+v", blocked.Blocked)
	}
	if blocked.Blocked[0].Reason == nil || *blocked.Blocked[0].Reason != "spam" {
		t.Fatalf("expected trimmed reason, got %v", blocked.Blocked[0].Reason)
	}

	resp = ts.do(carol.ID, http.MethodDelete, "/api/blocks/"+alice.ID.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unblock: expected 200, got %d", resp.StatusCode)
	}
	resp = ts.do(carol.ID, http.MethodDelete, "/api/blocks/"+alice.ID.String(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second unblock: expected 404, got %d", resp.StatusCode)
	}
}

func TestRouter_SearchAnnotatesRelationship(t *testing.T) {
	alice := models.Account{ID: uuid.New(), Username: "alice"}
	alina := models.Account{ID: uuid.New(), Username: "alina", IsPrivate: true}
	bob := models.Account{ID: uuid.New(), Username: "bob"}
	ts := newTestServer(t, alice, alina, bob)

	resp := ts.do(alice.ID, http.MethodPost, "/api/friends/requests", map[string]string{"target_id": alina.ID.String()})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request: expected 201, got %d", resp.StatusCode)
	}

	resp = ts.do(alice.ID, http.MethodGet, "/api/friends/search?q=al", nil)
	var search handlers.UserSearchResponse
	decodeBody(t, resp, &search)
	if len(search.Users) != 1 {
		t.Fatalf("expected only alina, got %+v", search.Users)
	}
	if search.Users[0].ID != alina.ID || !search.Users[0].Relationship.IsRequestSent {
		t.Fatalf("unexpected candidate %+v", search.Users[0])
	}
}

func TestRouter_RejectsAnonymousAndBadTokens(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(uuid.Nil, http.MethodGet, "/api/friends", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.server.URL+"/api/blocks", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	badResp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = badResp.Body.Close() }()
	if badResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", badResp.StatusCode)
	}

	resp = ts.do(uuid.Nil, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.StatusCode)
	}

	resp = ts.do(uuid.Nil, http.MethodGet, "/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics: unexpected response %d", resp.StatusCode)
	}
}

func TestRouter_LocalRateLimitWithoutRedis(t *testing.T) {
	alice := models.Account{ID: uuid.New(), Username: "alice"}
	ts := newTestServer(t, alice)

	codes := []int{}
	for i := 0; i < 11; i++ {
		resp := ts.do(alice.ID, http.MethodPost, "/api/blocks", map[string]string{"target_id": uuid.NewString()})
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != http.StatusNotFound {
		t.Fatalf("unknown target: expected 404, got %d", codes[0])
	}
	if codes[10] != http.StatusTooManyRequests {
		t.Fatalf("expected the eleventh block to be limited, got %v", codes)
	}
}

func TestNewLimiter_SelectsBackend(t *testing.T) {
	if _, ok := newLimiter(nil, 1, time.Minute, "p:").(*middleware.LocalRateLimiter); !ok {
		t.Fatal("expected local limiter without redis")
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer func() { _ = client.Close() }()
	if _, ok := newLimiter(client, 1, time.Minute, "p:").(*middleware.RateLimiter); !ok {
		t.Fatal("expected redis limiter when a client is configured")
	}
}
