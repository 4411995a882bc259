package memory

import (
	"context"
	"sort"
	"sync"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ClaimEventStore is an in-memory implementation of storage.ClaimEventStore.
type ClaimEventStore struct {
	mu   sync.RWMutex
	data []*domain.ClaimEvent
	keys map[string]bool // claim_id
}

// NewClaimEventStore creates a new in-memory claim event store.
func NewClaimEventStore() *ClaimEventStore {
	return &ClaimEventStore{
		data: make([]*domain.ClaimEvent, 0),
		keys: make(map[string]bool),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ClaimEventStore) InsertBulk(_ context.Context, events []*domain.ClaimEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]bool)
	for _, e := range events {
		if e == nil || e.ClaimID == "" {
			return storage.ErrInvalidInput
		}
		if s.keys[e.ClaimID] || batchKeys[e.ClaimID] {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ClaimID] = true
	}

	for _, e := range events {
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
		s.keys[e.ClaimID] = true
	}

	return nil
}

// GetByPool retrieves events for a pool within [start, end] (inclusive), ordered by claimed_at ASC.
func (s *ClaimEventStore) GetByPool(_ context.Context, poolAddress string, start, end int64) ([]*domain.ClaimEvent, error) {
	return s.collect(func(e *domain.ClaimEvent) bool {
		return e.PoolAddress == poolAddress && e.ClaimedAt >= start && e.ClaimedAt <= end
	}), nil
}

// GetByBeneficiary retrieves all events for a beneficiary, ordered by claimed_at ASC.
func (s *ClaimEventStore) GetByBeneficiary(_ context.Context, beneficiary string) ([]*domain.ClaimEvent, error) {
	return s.collect(func(e *domain.ClaimEvent) bool {
		return e.Beneficiary == beneficiary
	}), nil
}

func (s *ClaimEventStore) collect(keep func(*domain.ClaimEvent) bool) []*domain.ClaimEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimEvent
	for _, e := range s.data {
		if keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ClaimedAt < result[j].ClaimedAt
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.ClaimEventStore = (*ClaimEventStore)(nil)
