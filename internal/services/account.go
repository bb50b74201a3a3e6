package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/pairgraph/internal/models"
)

// AccountDirectory resolves the accounts and profiles that relationships
// refer to. Relationship services only read from it.
type AccountDirectory interface {
	ResolveAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Account, error)
	ExistsAccount(ctx context.Context, id uuid.UUID) (bool, error)
	// IsProfilePrivate returns ErrProfileNotFound when the account has no profile.
	IsProfilePrivate(ctx context.Context, id uuid.UUID) (bool, error)
	// ListCandidates returns active accounts other than excludeID whose
	// username or display name starts with query, ordered by username.
	ListCandidates(ctx context.Context, excludeID uuid.UUID, query string, limit int) ([]models.Account, error)
}

const accountColumns = `u.id, u.username, COALESCE(p.display_name, ''), p.avatar_url, COALESCE(p.is_private, false)`

type PostgresAccountDirectory struct {
	db DBConn
}

func NewPostgresAccountDirectory(db DBConn) *PostgresAccountDirectory {
	return &PostgresAccountDirectory{db: db}
}

func scanAccount(row Row) (*models.Account, error) {
	var account models.Account
	if err := row.Scan(&account.ID, &account.Username, &account.DisplayName, &account.AvatarURL, &account.IsPrivate); err != nil {
		return nil, err
	}
	return &account, nil
}

func (d *PostgresAccountDirectory) ResolveAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := scanAccount(d.db.QueryRow(ctx,
		`SELECT `+accountColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = $1 AND u.deleted_at IS NULL`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	return account, nil
}

func (d *PostgresAccountDirectory) ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Account, error) {
	accounts := make(map[uuid.UUID]models.Account, len(ids))
	if len(ids) == 0 {
		return accounts, nil
	}
	rows, err := d.db.Query(ctx,
		`SELECT `+accountColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = ANY($1) AND u.deleted_at IS NULL`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts[account.ID] = *account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve accounts: %w", err)
	}
	return accounts, nil
}

func (d *PostgresAccountDirectory) ExistsAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := d.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking account existence: %w", err)
	}
	return exists, nil
}

func (d *PostgresAccountDirectory) IsProfilePrivate(ctx context.Context, id uuid.UUID) (bool, error) {
	var private bool
	err := d.db.QueryRow(ctx, "SELECT is_private FROM profiles WHERE user_id = $1", id).Scan(&private)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrProfileNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load profile privacy: %w", err)
	}
	return private, nil
}

func (d *PostgresAccountDirectory) ListCandidates(ctx context.Context, excludeID uuid.UUID, query string, limit int) ([]models.Account, error) {
	rows, err := d.db.Query(ctx,
		`SELECT `+accountColumns+`
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.id <> $1
		   AND u.deleted_at IS NULL
		   AND (LOWER(u.username) LIKE $2 ESCAPE '\' OR LOWER(COALESCE(p.display_name, '')) LIKE $2 ESCAPE '\')
		 ORDER BY u.username
		 LIMIT $3`,
		excludeID, prefixPattern(query), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return accounts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func prefixPattern(query string) string {
	return likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

// MemoryAccountDirectory is an in-process AccountDirectory.
type MemoryAccountDirectory struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	profiles map[uuid.UUID]bool
}

func NewMemoryAccountDirectory() *MemoryAccountDirectory {
	return &MemoryAccountDirectory{
		accounts: make(map[uuid.UUID]models.Account),
		profiles: make(map[uuid.UUID]bool),
	}
}

// Add registers an account together with its profile.
func (d *MemoryAccountDirectory) Add(account models.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[account.ID] = account
	d.profiles[account.ID] = true
}

// AddWithoutProfile registers an account that has no profile yet.
func (d *MemoryAccountDirectory) AddWithoutProfile(account models.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[account.ID] = account
	delete(d.profiles, account.ID)
}

func (d *MemoryAccountDirectory) Remove(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.accounts, id)
	delete(d.profiles, id)
}

func (d *MemoryAccountDirectory) ResolveAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (d *MemoryAccountDirectory) ResolveAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	accounts := make(map[uuid.UUID]models.Account, len(ids))
	for _, id := range ids {
		if account, ok := d.accounts[id]; ok {
			accounts[id] = account
		}
	}
	return accounts, nil
}

func (d *MemoryAccountDirectory) ExistsAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.accounts[id]
	return ok, nil
}

func (d *MemoryAccountDirectory) IsProfilePrivate(ctx context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.profiles[id] {
		return false, ErrProfileNotFound
	}
	return d.accounts[id].IsPrivate, nil
}

func (d *MemoryAccountDirectory) ListCandidates(ctx context.Context, excludeID uuid.UUID, query string, limit int) ([]models.Account, error) {
	prefix := strings.ToLower(strings.TrimSpace(query))
	d.mu.RLock()
	accounts := []models.Account{}
	for id, account := range d.accounts {
		if id == excludeID {
			continue
		}
		if strings.HasPrefix(strings.ToLower(account.Username), prefix) || strings.HasPrefix(strings.ToLower(account.DisplayName), prefix) {
			accounts = append(accounts, account)
		}
	}
	d.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}
