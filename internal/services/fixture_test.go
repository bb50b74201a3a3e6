package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type relationshipFixture struct {
	store    *MemoryRelationshipStore
	accounts *MemoryAccountDirectory
	friends  *FriendService
	blocks   *BlockService
	views    *RelationshipService
	clock    *testClock

	// alice and carol have public profiles, bob's profile is private.
	alice uuid.UUID
	bob   uuid.UUID
	carol uuid.UUID
}

func newRelationshipFixture(t *testing.T) *relationshipFixture {
	t.Helper()
	f := &relationshipFixture{
		store:    NewMemoryRelationshipStore(),
		accounts: NewMemoryAccountDirectory(),
		clock:    &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		alice:    uuid.New(),
		bob:      uuid.New(),
		carol:    uuid.New(),
	}
	f.accounts.Add(models.Account{ID: f.alice, Username: "alice", DisplayName: "Alice"})
	f.accounts.Add(models.Account{ID: f.bob, Username: "bob", DisplayName: "Bob", IsPrivate: true})
	f.accounts.Add(models.Account{ID: f.carol, Username: "carol", DisplayName: "Carol"})

	f.friends = NewFriendService(f.store, f.accounts)
	f.friends.now = f.clock.Now
	f.friends.SetRetryPolicy(3, 0)
	f.blocks = NewBlockService(f.store, f.accounts)
	f.blocks.now = f.clock.Now
	f.blocks.SetRetryPolicy(3, 0)
	f.views = NewRelationshipService(f.store, f.accounts)
	return f
}

func (f *relationshipFixture) pair(t *testing.T, a, b uuid.UUID) *models.FriendPair {
	t.Helper()
	pair, err := f.store.FindFriendPair(context.Background(), a, b)
	if err != nil {
		t.Fatalf("find pair: %v", err)
	}
	return pair
}

// conflictStore fails every transaction as if it lost a race.
type conflictStore struct {
	*MemoryRelationshipStore
	attempts int
}

func (s *conflictStore) WithinTx(ctx context.Context, fn func(tx RelationshipTx) error) error {
	s.attempts++
	return ErrTxConflict
}
