package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// TokenAccountStore implements storage.TokenAccountStore using PostgreSQL.
type TokenAccountStore struct {
	db        querier
	forUpdate bool
}

// NewTokenAccountStore creates a new TokenAccountStore.
func NewTokenAccountStore(pool *Pool) *TokenAccountStore {
	return &TokenAccountStore{db: pool}
}

// Compile-time interface check.
var _ storage.TokenAccountStore = (*TokenAccountStore)(nil)

// Insert adds a new token account. Returns ErrDuplicateKey if address exists.
func (s *TokenAccountStore) Insert(ctx context.Context, a *domain.TokenAccount) error {
	if a == nil || a.Address == "" || a.Mint == "" || a.Owner == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_accounts (address, mint, owner, amount)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query, a.Address, a.Mint, a.Owner, int64(a.Amount))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token account: %w", err)
	}
	return nil
}

// Open returns the account at a.Address, inserting a if it is missing. A
// concurrent insert of the same address is waited for, not reported as a
// duplicate, and the returned row is locked inside a transaction.
func (s *TokenAccountStore) Open(ctx context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error) {
	if a == nil || a.Address == "" || a.Mint == "" || a.Owner == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_accounts (address, mint, owner, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, a.Address, a.Mint, a.Owner, int64(a.Amount)); err != nil {
		return nil, fmt.Errorf("open token account: %w", err)
	}
	return s.GetByAddress(ctx, a.Address)
}

// GetByAddress retrieves an account. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) GetByAddress(ctx context.Context, address string) (*domain.TokenAccount, error) {
	query := `SELECT address, mint, owner, amount FROM token_accounts WHERE address = $1` + lockClause(s.forUpdate)

	a, err := scanTokenAccount(s.db.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token account: %w", err)
	}
	return a, nil
}

// GetByOwner retrieves all accounts owned by owner, ordered by address ASC.
func (s *TokenAccountStore) GetByOwner(ctx context.Context, owner string) ([]*domain.TokenAccount, error) {
	query := `
		SELECT address, mint, owner, amount
		FROM token_accounts
		WHERE owner = $1
		ORDER BY address ASC
	`

	rows, err := s.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("get token accounts by owner: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.TokenAccount
	for rows.Next() {
		a, err := scanTokenAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token account rows: %w", err)
	}
	return accounts, nil
}

// UpdateAmount sets the balance. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) UpdateAmount(ctx context.Context, address string, amount uint64) error {
	query := `UPDATE token_accounts SET amount = $2 WHERE address = $1`

	tag, err := s.db.Exec(ctx, query, address, int64(amount))
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update token account: %v: %w", err, storage.ErrInvalidInput)
		}
		return fmt.Errorf("update token account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanTokenAccount scans a single row into a TokenAccount.
func scanTokenAccount(row pgx.Row) (*domain.TokenAccount, error) {
	var a domain.TokenAccount
	var amount int64

	if err := row.Scan(&a.Address, &a.Mint, &a.Owner, &amount); err != nil {
		return nil, err
	}

	a.Amount = uint64(amount)
	return &a, nil
}
