package memory

import (
	"context"
	"sort"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	rows table[domain.VestingPool]
}

// Insert adds a new pool. Returns ErrDuplicateKey if address or company name exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.VestingPool) error {
	if p == nil || p.Address == "" || p.CompanyName == "" {
		return storage.ErrInvalidInput
	}

	sameCompany := s.rows.filter(func(existing *domain.VestingPool) bool {
		return existing.CompanyName == p.CompanyName
	})
	if len(sameCompany) > 0 {
		return storage.ErrDuplicateKey
	}

	return s.rows.insert(p.Address, *p)
}

// GetByAddress retrieves a pool by its derived address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(_ context.Context, address string) (*domain.VestingPool, error) {
	p, exists := s.rows.get(address)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

// GetByCompany retrieves a pool by company name. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByCompany(_ context.Context, companyName string) (*domain.VestingPool, error) {
	result := s.rows.filter(func(p *domain.VestingPool) bool {
		return p.CompanyName == companyName
	})
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result[0], nil
}

// List retrieves all pools, ordered by company name ASC.
func (s *PoolStore) List(_ context.Context) ([]*domain.VestingPool, error) {
	result := s.rows.filter(func(*domain.VestingPool) bool { return true })

	sort.Slice(result, func(i, j int) bool {
		return result[i].CompanyName < result[j].CompanyName
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)
