package memory

import (
	"context"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ScheduleStore is an in-memory implementation of storage.ScheduleStore.
type ScheduleStore struct {
	rows table[domain.Schedule]
}

// Insert adds a new schedule. Returns ErrDuplicateKey if address exists.
func (s *ScheduleStore) Insert(_ context.Context, sch *domain.Schedule) error {
	if sch == nil || sch.Address == "" || sch.PoolAddress == "" {
		return storage.ErrInvalidInput
	}
	return s.rows.insert(sch.Address, *sch)
}

// GetByAddress retrieves a schedule by its derived address. Returns ErrNotFound if not exists.
func (s *ScheduleStore) GetByAddress(_ context.Context, address string) (*domain.Schedule, error) {
	sch, exists := s.rows.get(address)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &sch, nil
}

// GetByPool retrieves all schedules of a pool, ordered by address ASC.
func (s *ScheduleStore) GetByPool(_ context.Context, poolAddress string) ([]*domain.Schedule, error) {
	return s.rows.filter(func(sch *domain.Schedule) bool {
		return sch.PoolAddress == poolAddress
	}), nil
}

// GetByBeneficiary retrieves all schedules of a beneficiary, ordered by address ASC.
func (s *ScheduleStore) GetByBeneficiary(_ context.Context, beneficiary string) ([]*domain.Schedule, error) {
	return s.rows.filter(func(sch *domain.Schedule) bool {
		return sch.Beneficiary == beneficiary
	}), nil
}

// UpdateClaimed sets claimed_amount. Returns ErrNotFound if not exists.
func (s *ScheduleStore) UpdateClaimed(_ context.Context, address string, claimed uint64) error {
	return s.rows.update(address, func(sch *domain.Schedule) {
		sch.ClaimedAmount = claimed
	})
}

// Verify interface compliance at compile time.
var _ storage.ScheduleStore = (*ScheduleStore)(nil)
