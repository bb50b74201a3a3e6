package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

const defaultMemoryLockTimeout = 2 * time.Second

type blockKey struct {
	blocker uuid.UUID
	blocked uuid.UUID
}

// MemoryRelationshipStore is an in-process RelationshipStore. Transactions
// stage their writes and apply them atomically on commit.
type MemoryRelationshipStore struct {
	mu     sync.RWMutex
	pairs  map[PairKey]models.FriendPair
	blocks map[blockKey]models.Block

	lockTimeout time.Duration
	locksMu     sync.Mutex
	locks       map[PairKey]*pairLock
}

// pairLock is dropped from the store once no transaction holds or waits on it.
type pairLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryRelationshipStore() *MemoryRelationshipStore {
	return &MemoryRelationshipStore{
		pairs:       make(map[PairKey]models.FriendPair),
		blocks:      make(map[blockKey]models.Block),
		lockTimeout: defaultMemoryLockTimeout,
		locks:       make(map[PairKey]*pairLock),
	}
}

// SetLockTimeout bounds how long LockPair waits. Zero waits until ctx is done.
func (s *MemoryRelationshipStore) SetLockTimeout(timeout time.Duration) {
	s.lockTimeout = timeout
}

func (s *MemoryRelationshipStore) FindFriendPair(ctx context.Context, a, b uuid.UUID) (*models.FriendPair, error) {
	key, err := Canonicalize(a, b)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.pairs[key]
	if !ok {
		return nil, nil
	}
	return &pair, nil
}

func (s *MemoryRelationshipStore) FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.blocks[blockKey{blocker: blockerID, blocked: blockedID}]
	if !ok {
		return nil, nil
	}
	return &block, nil
}

func (s *MemoryRelationshipStore) ExistsBlockEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, forward := s.blocks[blockKey{blocker: a, blocked: b}]
	_, backward := s.blocks[blockKey{blocker: b, blocked: a}]
	return forward || backward, nil
}

func (s *MemoryRelationshipStore) ListFriendRequestsReceivedBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error) {
	return s.filterPairs(func(p models.FriendPair) bool {
		return p.Involves(userID) && p.RequesterID != userID && p.Status == status
	}, byCreatedDesc), nil
}

func (s *MemoryRelationshipStore) ListFriendRequestsSentBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error) {
	return s.filterPairs(func(p models.FriendPair) bool {
		return p.RequesterID == userID && p.Status == status
	}, byCreatedDesc), nil
}

func (s *MemoryRelationshipStore) ListAcceptedFriendsOf(ctx context.Context, userID uuid.UUID) ([]models.FriendPair, error) {
	return s.filterPairs(func(p models.FriendPair) bool {
		return p.Involves(userID) && p.Status == models.FriendshipStatusAccepted
	}, byAcceptedDesc), nil
}

func (s *MemoryRelationshipStore) FindFriendPairsWith(ctx context.Context, userID uuid.UUID, others []uuid.UUID) (map[uuid.UUID]models.FriendPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[uuid.UUID]models.FriendPair, len(others))
	for _, other := range others {
		key, err := Canonicalize(userID, other)
		if err != nil {
			continue
		}
		if pair, ok := s.pairs[key]; ok {
			result[other] = pair
		}
	}
	return result, nil
}

func (s *MemoryRelationshipStore) ListBlockedBy(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	s.mu.RLock()
	blocks := []models.Block{}
	for key, block := range s.blocks {
		if key.blocker == blockerID {
			blocks = append(blocks, block)
		}
	}
	s.mu.RUnlock()
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].CreatedAt.After(blocks[j].CreatedAt)
	})
	return blocks, nil
}

func (s *MemoryRelationshipStore) filterPairs(keep func(models.FriendPair) bool, less func(a, b models.FriendPair) bool) []models.FriendPair {
	s.mu.RLock()
	pairs := []models.FriendPair{}
	for _, pair := range s.pairs {
		if keep(pair) {
			pairs = append(pairs, pair)
		}
	}
	s.mu.RUnlock()
	sort.Slice(pairs, func(i, j int) bool { return less(pairs[i], pairs[j]) })
	return pairs
}

func byCreatedDesc(a, b models.FriendPair) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func byAcceptedDesc(a, b models.FriendPair) bool {
	if a.AcceptedAt == nil || b.AcceptedAt == nil {
		return a.AcceptedAt != nil
	}
	return a.AcceptedAt.After(*b.AcceptedAt)
}

func (s *MemoryRelationshipStore) WithinTx(ctx context.Context, fn func(tx RelationshipTx) error) error {
	tx := &memoryRelationshipTx{
		store:  s,
		pairs:  make(map[PairKey]stagedPair),
		blocks: make(map[blockKey]stagedBlock),
	}
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryRelationshipStore) commit(tx *memoryRelationshipTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, staged := range tx.pairs {
		if s.pairVersion(key) != staged.baseVersion {
			return ErrTxConflict
		}
	}
	for key, staged := range tx.blocks {
		if _, exists := s.blocks[key]; exists != staged.baseExists {
			return ErrTxConflict
		}
	}

	for key, staged := range tx.pairs {
		if staged.pair == nil {
			delete(s.pairs, key)
			continue
		}
		s.pairs[key] = *staged.pair
	}
	for key, staged := range tx.blocks {
		if staged.block == nil {
			delete(s.blocks, key)
			continue
		}
		s.blocks[key] = *staged.block
	}
	return nil
}

// pairVersion requires s.mu to be held.
func (s *MemoryRelationshipStore) pairVersion(key PairKey) int64 {
	if pair, ok := s.pairs[key]; ok {
		return pair.Version
	}
	return 0
}

func (s *MemoryRelationshipStore) acquire(ctx context.Context, key PairKey) error {
	s.locksMu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &pairLock{ch: make(chan struct{}, 1)}
		s.locks[key] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lock.ch <- struct{}{}:
		return nil
	case <-timeout:
		s.unref(key, lock)
		return ErrTxConflict
	case <-ctx.Done():
		s.unref(key, lock)
		return ctx.Err()
	}
}

func (s *MemoryRelationshipStore) release(key PairKey) {
	s.locksMu.Lock()
	lock := s.locks[key]
	s.locksMu.Unlock()
	<-lock.ch
	s.unref(key, lock)
}

func (s *MemoryRelationshipStore) unref(key PairKey, lock *pairLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, key)
	}
}

type stagedPair struct {
	pair        *models.FriendPair
	baseVersion int64
}

type stagedBlock struct {
	block      *models.Block
	baseExists bool
}

type memoryRelationshipTx struct {
	store  *MemoryRelationshipStore
	pairs  map[PairKey]stagedPair
	blocks map[blockKey]stagedBlock
	held   []PairKey
}

func (t *memoryRelationshipTx) releaseLocks() {
	for _, key := range t.held {
		t.store.release(key)
	}
	t.held = nil
}

func (t *memoryRelationshipTx) LockPair(ctx context.Context, a, b uuid.UUID) error {
	key, err := Canonicalize(a, b)
	if err != nil {
		return err
	}
	for _, held := range t.held {
		if held == key {
			return nil
		}
	}
	if err := t.store.acquire(ctx, key); err != nil {
		return err
	}
	t.held = append(t.held, key)
	return nil
}

func (t *memoryRelationshipTx) FindFriendPair(ctx context.Context, a, b uuid.UUID) (*models.FriendPair, error) {
	key, err := Canonicalize(a, b)
	if err != nil {
		return nil, err
	}
	if staged, ok := t.pairs[key]; ok {
		if staged.pair == nil {
			return nil, nil
		}
		pair := *staged.pair
		return &pair, nil
	}
	return t.store.FindFriendPair(ctx, a, b)
}

func (t *memoryRelationshipTx) FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*models.Block, error) {
	if staged, ok := t.blocks[blockKey{blocker: blockerID, blocked: blockedID}]; ok {
		if staged.block == nil {
			return nil, nil
		}
		block := *staged.block
		return &block, nil
	}
	return t.store.FindBlock(ctx, blockerID, blockedID)
}

func (t *memoryRelationshipTx) ExistsBlockEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error) {
	for _, key := range []blockKey{{blocker: a, blocked: b}, {blocker: b, blocked: a}} {
		block, err := t.FindBlock(ctx, key.blocker, key.blocked)
		if err != nil {
			return false, err
		}
		if block != nil {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryRelationshipTx) SaveFriendPair(ctx context.Context, pair *models.FriendPair) error {
	if err := validateFriendPair(pair); err != nil {
		return err
	}
	key := PairKey{Low: pair.LowID, High: pair.HighID}

	current, err := t.FindFriendPair(ctx, pair.LowID, pair.HighID)
	if err != nil {
		return err
	}
	var currentVersion int64
	if current != nil {
		currentVersion = current.Version
	}
	if currentVersion != pair.Version {
		return ErrTxConflict
	}

	stored := *pair
	stored.Version = pair.Version + 1
	t.pairs[key] = stagedPair{pair: &stored, baseVersion: t.baseVersion(key)}
	pair.Version = stored.Version
	return nil
}

func (t *memoryRelationshipTx) DeleteFriendPair(ctx context.Context, a, b uuid.UUID) (bool, error) {
	key, err := Canonicalize(a, b)
	if err != nil {
		return false, err
	}
	current, err := t.FindFriendPair(ctx, a, b)
	if err != nil || current == nil {
		return false, err
	}
	t.pairs[key] = stagedPair{pair: nil, baseVersion: t.baseVersion(key)}
	return true, nil
}

func (t *memoryRelationshipTx) SaveBlock(ctx context.Context, block models.Block) error {
	key := blockKey{blocker: block.BlockerID, blocked: block.BlockedID}
	current, err := t.FindBlock(ctx, block.BlockerID, block.BlockedID)
	if err != nil {
		return err
	}
	if current != nil {
		return ErrBlockExists
	}
	t.blocks[key] = stagedBlock{block: &block, baseExists: t.baseBlockExists(key)}
	return nil
}

func (t *memoryRelationshipTx) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	key := blockKey{blocker: blockerID, blocked: blockedID}
	current, err := t.FindBlock(ctx, blockerID, blockedID)
	if err != nil || current == nil {
		return false, err
	}
	t.blocks[key] = stagedBlock{block: nil, baseExists: t.baseBlockExists(key)}
	return true, nil
}

// baseVersion is the committed version the transaction first observed for key.
func (t *memoryRelationshipTx) baseVersion(key PairKey) int64 {
	if staged, ok := t.pairs[key]; ok {
		return staged.baseVersion
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.pairVersion(key)
}

func (t *memoryRelationshipTx) baseBlockExists(key blockKey) bool {
	if staged, ok := t.blocks[key]; ok {
		return staged.baseExists
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	_, exists := t.store.blocks[key]
	return exists
}
