package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

const friendPairColumns = `low_id, high_id, requester_id, status, version, created_at, accepted_at`

// PostgresRelationshipStore keeps friend pairs in friend_pairs and directed
// blocks in blocks.
type PostgresRelationshipStore struct {
	pgRelationshipReader
	db          DB
	lockTimeout time.Duration
}

func NewPostgresRelationshipStore(db DB, lockTimeout time.Duration) *PostgresRelationshipStore {
	return &PostgresRelationshipStore{
		pgRelationshipReader: pgRelationshipReader{q: db},
		db:                   db,
		lockTimeout:          lockTimeout,
	}
}

func (s *PostgresRelationshipStore) WithinTx(ctx context.Context, fn func(tx RelationshipTx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin relationship tx: %w", classifyPgError(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if s.lockTimeout > 0 {
		timeout := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", classifyPgError(err))
		}
	}

	if err := fn(&pgRelationshipTx{pgRelationshipReader: pgRelationshipReader{q: tx}, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit relationship tx: %w", classifyPgError(err))
	}
	committed = true
	return nil
}

func (s *PostgresRelationshipStore) ListFriendRequestsReceivedBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error) {
	return s.listFriendPairs(ctx,
		`SELECT `+friendPairColumns+`
		 FROM friend_pairs
		 WHERE (low_id = $1 OR high_id = $1)
		   AND requester_id <> $1
		   AND status = $2
		 ORDER BY created_at DESC`,
		userID, string(status),
	)
}

func (s *PostgresRelationshipStore) ListFriendRequestsSentBy(ctx context.Context, userID uuid.UUID, status models.FriendshipStatus) ([]models.FriendPair, error) {
	return s.listFriendPairs(ctx,
		`SELECT `+friendPairColumns+`
		 FROM friend_pairs
		 WHERE requester_id = $1
		   AND status = $2
		 ORDER BY created_at DESC`,
		userID, string(status),
	)
}

func (s *PostgresRelationshipStore) ListAcceptedFriendsOf(ctx context.Context, userID uuid.UUID) ([]models.FriendPair, error) {
	return s.listFriendPairs(ctx,
		`SELECT `+friendPairColumns+`
		 FROM friend_pairs
		 WHERE (low_id = $1 OR high_id = $1)
		   AND status = $2
		 ORDER BY accepted_at DESC NULLS LAST, created_at DESC`,
		userID, string(models.FriendshipStatusAccepted),
	)
}

func (s *PostgresRelationshipStore) FindFriendPairsWith(ctx context.Context, userID uuid.UUID, others []uuid.UUID) (map[uuid.UUID]models.FriendPair, error) {
	result := make(map[uuid.UUID]models.FriendPair, len(others))
	if len(others) == 0 {
		return result, nil
	}
	pairs, err := s.listFriendPairs(ctx,
		`SELECT `+friendPairColumns+`
		 FROM friend_pairs
		 WHERE (low_id = $1 AND high_id = ANY($2))
		    OR (high_id = $1 AND low_id = ANY($2))`,
		userID, others,
	)
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		result[pair.Other(userID)] = pair
	}
	return result, nil
}

func (s *PostgresRelationshipStore) ListBlockedBy(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	rows, err := s.db.Query(ctx,
		`SELECT blocker_id, blocked_id, reason, created_at
		 FROM blocks
		 WHERE blocker_id = $1
		 ORDER BY created_at DESC`,
		blockerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var block models.Block
		if err := rows.Scan(&block.BlockerID, &block.BlockedID, &block.Reason, &block.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	if blocks == nil {
		blocks = []models.Block{}
	}
	return blocks, nil
}

func (s *PostgresRelationshipStore) listFriendPairs(ctx context.Context, sql string, args ...any) ([]models.FriendPair, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.FriendPair
	for rows.Next() {
		pair, err := scanFriendPair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend pair: %w", err)
		}
		pairs = append(pairs, *pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend pairs: %w", err)
	}
	if pairs == nil {
		pairs = []models.FriendPair{}
	}
	return pairs, nil
}

func scanFriendPair(row Row) (*models.FriendPair, error) {
	var pair models.FriendPair
	var status string
	if err := row.Scan(&pair.LowID, &pair.HighID, &pair.RequesterID, &status, &pair.Version, &pair.CreatedAt, &pair.AcceptedAt); err != nil {
		return nil, err
	}
	pair.Status = models.FriendshipStatus(status)
	return &pair, nil
}

type pgRelationshipReader struct {
	q DBConn
}

func (r pgRelationshipReader) FindFriendPair(ctx context.Context, a, b uuid.UUID) (*models.FriendPair, error) {
	key, err := Canonicalize(a, b)
	if err != nil {
		return nil, err
	}
	pair, err := scanFriendPair(r.q.QueryRow(ctx,
		`SELECT `+friendPairColumns+`
		 FROM friend_pairs
		 WHERE low_id = $1 AND high_id = $2`,
		key.Low, key.High,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find friend pair: %w", classifyPgError(err))
	}
	return pair, nil
}

func (r pgRelationshipReader) FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*models.Block, error) {
	var block models.Block
	err := r.q.QueryRow(ctx,
		`SELECT blocker_id, blocked_id, reason, created_at
		 FROM blocks
		 WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID,
	).Scan(&block.BlockerID, &block.BlockedID, &block.Reason, &block.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find block: %w", classifyPgError(err))
	}
	return &block, nil
}

func (r pgRelationshipReader) ExistsBlockEitherDirection(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)`,
		a, b,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", classifyPgError(err))
	}
	return exists, nil
}

type pgRelationshipTx struct {
	pgRelationshipReader
	tx Tx
}

// LockPair takes a transaction-scoped advisory lock. The key is hashed by the
// server so every process agrees on it.
func (t *pgRelationshipTx) LockPair(ctx context.Context, a, b uuid.UUID) error {
	key, err := Canonicalize(a, b)
	if err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
		return fmt.Errorf("lock pair: %w", classifyPgError(err))
	}
	return nil
}

func (t *pgRelationshipTx) SaveFriendPair(ctx context.Context, pair *models.FriendPair) error {
	if err := validateFriendPair(pair); err != nil {
		return err
	}

	if pair.Version == 0 {
		result, err := t.tx.Exec(ctx,
			`INSERT INTO friend_pairs (`+friendPairColumns+`)
			 VALUES ($1, $2, $3, $4, 1, $5, $6)
			 ON CONFLICT (low_id, high_id) DO NOTHING`,
			pair.LowID, pair.HighID, pair.RequesterID, string(pair.Status), pair.CreatedAt, pair.AcceptedAt,
		)
		if err != nil {
			return fmt.Errorf("insert friend pair: %w", classifyPgError(err))
		}
		if result.RowsAffected() == 0 {
			return ErrTxConflict
		}
		pair.Version = 1
		return nil
	}

	result, err := t.tx.Exec(ctx,
		`UPDATE friend_pairs
		 SET requester_id = $3, status = $4, created_at = $5, accepted_at = $6, version = version + 1
		 WHERE low_id = $1 AND high_id = $2 AND version = $7`,
		pair.LowID, pair.HighID, pair.RequesterID, string(pair.Status), pair.CreatedAt, pair.AcceptedAt, pair.Version,
	)
	if err != nil {
		return fmt.Errorf("update friend pair: %w", classifyPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrTxConflict
	}
	pair.Version++
	return nil
}

func (t *pgRelationshipTx) DeleteFriendPair(ctx context.Context, a, b uuid.UUID) (bool, error) {
	key, err := Canonicalize(a, b)
	if err != nil {
		return false, err
	}
	result, err := t.tx.Exec(ctx,
		`DELETE FROM friend_pairs WHERE low_id = $1 AND high_id = $2`,
		key.Low, key.High,
	)
	if err != nil {
		return false, fmt.Errorf("delete friend pair: %w", classifyPgError(err))
	}
	return result.RowsAffected() > 0, nil
}

func (t *pgRelationshipTx) SaveBlock(ctx context.Context, block models.Block) error {
	result, err := t.tx.Exec(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id, reason, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		block.BlockerID, block.BlockedID, block.Reason, block.CreatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return ErrAccountNotFound
		}
		return fmt.Errorf("insert block: %w", classifyPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrBlockExists
	}
	return nil
}

func (t *pgRelationshipTx) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	result, err := t.tx.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID,
	)
	if err != nil {
		return false, fmt.Errorf("delete block: %w", classifyPgError(err))
	}
	return result.RowsAffected() > 0, nil
}
