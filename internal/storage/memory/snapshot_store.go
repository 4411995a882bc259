package memory

import (
	"context"
	"sort"
	"sync"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// snapshotKey is the composite key for snapshot deduplication.
type snapshotKey struct {
	ScheduleAddress string
	SnapshotAt      int64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.VestingSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.VestingSnapshot),
	}
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.VestingSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[snapshotKey]bool)
	for _, snap := range snapshots {
		if snap == nil || snap.ScheduleAddress == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey{snap.ScheduleAddress, snap.SnapshotAt}
		if _, exists := s.data[key]; exists || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snapshotKey{snap.ScheduleAddress, snap.SnapshotAt}] = &snapCopy
	}

	return nil
}

// GetBySchedule retrieves snapshots of a schedule, ordered by snapshot_at ASC.
func (s *SnapshotStore) GetBySchedule(_ context.Context, scheduleAddress string) ([]*domain.VestingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VestingSnapshot
	for key, snap := range s.data {
		if key.ScheduleAddress == scheduleAddress {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotAt < result[j].SnapshotAt
	})

	return result, nil
}

// GetByPoolAt retrieves all snapshots of a pool taken at snapshotAt, ordered by schedule address ASC.
func (s *SnapshotStore) GetByPoolAt(_ context.Context, poolAddress string, snapshotAt int64) ([]*domain.VestingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VestingSnapshot
	for key, snap := range s.data {
		if key.SnapshotAt == snapshotAt && snap.PoolAddress == poolAddress {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduleAddress < result[j].ScheduleAddress
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
