package memory

import (
	"context"
	"errors"
	"testing"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

func TestClaimEventStore_InsertBulkAndQuery(t *testing.T) {
	store := NewClaimEventStore()
	ctx := context.Background()

	events := []*domain.ClaimEvent{
		{ClaimID: "c1", PoolAddress: "p1", Beneficiary: "alice", Amount: 250, ClaimedAt: 5},
		{ClaimID: "c2", PoolAddress: "p1", Beneficiary: "alice", Amount: 750, ClaimedAt: 20},
		{ClaimID: "c3", PoolAddress: "p2", Beneficiary: "bob", Amount: 10, ClaimedAt: 8},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	inRange, _ := store.GetByPool(ctx, "p1", 0, 10)
	if len(inRange) != 1 || inRange[0].ClaimID != "c1" {
		t.Errorf("GetByPool range: got %+v", inRange)
	}

	alice, _ := store.GetByBeneficiary(ctx, "alice")
	if len(alice) != 2 || alice[0].ClaimedAt > alice[1].ClaimedAt {
		t.Errorf("GetByBeneficiary: got %+v", alice)
	}
}

func TestClaimEventStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewClaimEventStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.ClaimEvent{{ClaimID: "c1", PoolAddress: "p1"}}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.ClaimEvent{
		{ClaimID: "c2", PoolAddress: "p1"},
		{ClaimID: "c1", PoolAddress: "p1"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetByPool(ctx, "p1", 0, 100)
	if len(all) != 1 {
		t.Errorf("partial batch was written: got %d events", len(all))
	}
}

func TestSnapshotStore_InsertBulkAndQuery(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	snaps := []*domain.VestingSnapshot{
		{ScheduleAddress: "s2", PoolAddress: "p1", SnapshotAt: 100, Vested: 10},
		{ScheduleAddress: "s1", PoolAddress: "p1", SnapshotAt: 100, Vested: 20},
		{ScheduleAddress: "s1", PoolAddress: "p1", SnapshotAt: 50, Vested: 5},
	}
	if err := store.InsertBulk(ctx, snaps); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	history, _ := store.GetBySchedule(ctx, "s1")
	if len(history) != 2 || history[0].SnapshotAt != 50 {
		t.Errorf("GetBySchedule: got %+v", history)
	}

	at, _ := store.GetByPoolAt(ctx, "p1", 100)
	if len(at) != 2 || at[0].ScheduleAddress != "s1" {
		t.Errorf("GetByPoolAt: got %+v", at)
	}

	err := store.InsertBulk(ctx, []*domain.VestingSnapshot{{ScheduleAddress: "s1", PoolAddress: "p1", SnapshotAt: 50}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
