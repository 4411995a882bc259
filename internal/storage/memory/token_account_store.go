package memory

import (
	"context"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// TokenAccountStore is an in-memory implementation of storage.TokenAccountStore.
type TokenAccountStore struct {
	rows table[domain.TokenAccount]
}

// Insert adds a new token account. Returns ErrDuplicateKey if address exists.
func (s *TokenAccountStore) Insert(_ context.Context, a *domain.TokenAccount) error {
	if a == nil || a.Address == "" || a.Mint == "" || a.Owner == "" {
		return storage.ErrInvalidInput
	}
	return s.rows.insert(a.Address, *a)
}

// Open returns the account at a.Address, inserting a if it is missing.
func (s *TokenAccountStore) Open(_ context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error) {
	if a == nil || a.Address == "" || a.Mint == "" || a.Owner == "" {
		return nil, storage.ErrInvalidInput
	}
	got := s.rows.getOrInsert(a.Address, *a)
	return &got, nil
}

// GetByAddress retrieves an account. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) GetByAddress(_ context.Context, address string) (*domain.TokenAccount, error) {
	a, exists := s.rows.get(address)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

// GetByOwner retrieves all accounts owned by owner, ordered by address ASC.
func (s *TokenAccountStore) GetByOwner(_ context.Context, owner string) ([]*domain.TokenAccount, error) {
	return s.rows.filter(func(a *domain.TokenAccount) bool {
		return a.Owner == owner
	}), nil
}

// UpdateAmount sets the balance. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) UpdateAmount(_ context.Context, address string, amount uint64) error {
	return s.rows.update(address, func(a *domain.TokenAccount) {
		a.Amount = amount
	})
}

// Verify interface compliance at compile time.
var _ storage.TokenAccountStore = (*TokenAccountStore)(nil)
