package memory

import (
	"context"
	"sort"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore.
type ClaimStore struct {
	rows table[domain.ClaimRecord]
}

// Insert adds a new claim record. Returns ErrDuplicateKey if claim_id exists.
func (s *ClaimStore) Insert(_ context.Context, c *domain.ClaimRecord) error {
	if c == nil || c.ClaimID == "" {
		return storage.ErrInvalidInput
	}
	return s.rows.insert(c.ClaimID, *c)
}

// GetBySchedule retrieves all claims of a schedule, ordered by claimed_at ASC.
func (s *ClaimStore) GetBySchedule(_ context.Context, scheduleAddress string) ([]*domain.ClaimRecord, error) {
	result := s.rows.filter(func(c *domain.ClaimRecord) bool {
		return c.ScheduleAddress == scheduleAddress
	})
	sortClaims(result)
	return result, nil
}

// GetByPool retrieves all claims drawn from a pool, ordered by claimed_at ASC.
func (s *ClaimStore) GetByPool(_ context.Context, poolAddress string) ([]*domain.ClaimRecord, error) {
	result := s.rows.filter(func(c *domain.ClaimRecord) bool {
		return c.PoolAddress == poolAddress
	})
	sortClaims(result)
	return result, nil
}

// sortClaims orders by claimed_at, then by claimed_after so claims in the
// same second keep their commit order.
func sortClaims(claims []*domain.ClaimRecord) {
	sort.SliceStable(claims, func(i, j int) bool {
		if claims[i].ClaimedAt != claims[j].ClaimedAt {
			return claims[i].ClaimedAt < claims[j].ClaimedAt
		}
		return claims[i].ClaimedAfter < claims[j].ClaimedAfter
	})
}

// Verify interface compliance at compile time.
var _ storage.ClaimStore = (*ClaimStore)(nil)
