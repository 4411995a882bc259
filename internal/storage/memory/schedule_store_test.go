package memory

import (
	"context"
	"errors"
	"testing"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

func TestScheduleStore_QueriesAndUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	schedules := []*domain.Schedule{
		{Address: "s2", Beneficiary: "alice", PoolAddress: "pool1", EndTime: 10, TotalAllocation: 10},
		{Address: "s1", Beneficiary: "bob", PoolAddress: "pool1", EndTime: 10, TotalAllocation: 20},
		{Address: "s3", Beneficiary: "alice", PoolAddress: "pool2", EndTime: 10, TotalAllocation: 30},
	}
	for _, sch := range schedules {
		if err := s.Schedules().Insert(ctx, sch); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	byPool, _ := s.Schedules().GetByPool(ctx, "pool1")
	if len(byPool) != 2 || byPool[0].Address != "s1" || byPool[1].Address != "s2" {
		t.Errorf("GetByPool returned unexpected result: %+v", byPool)
	}

	byBeneficiary, _ := s.Schedules().GetByBeneficiary(ctx, "alice")
	if len(byBeneficiary) != 2 {
		t.Errorf("GetByBeneficiary: got %d, want 2", len(byBeneficiary))
	}

	if err := s.Schedules().UpdateClaimed(ctx, "s1", 7); err != nil {
		t.Fatalf("UpdateClaimed failed: %v", err)
	}
	got, _ := s.Schedules().GetByAddress(ctx, "s1")
	if got.ClaimedAmount != 7 {
		t.Errorf("ClaimedAmount: got %d, want 7", got.ClaimedAmount)
	}

	if err := s.Schedules().UpdateClaimed(ctx, "missing", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Schedules().Insert(ctx, schedules[0]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestClaimStore_OrderedByTime(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	claims := []*domain.ClaimRecord{
		{ClaimID: "c2", ScheduleAddress: "s1", PoolAddress: "p1", ClaimedAt: 20, ClaimedAfter: 1000},
		{ClaimID: "c1", ScheduleAddress: "s1", PoolAddress: "p1", ClaimedAt: 5, ClaimedAfter: 250},
		{ClaimID: "c3", ScheduleAddress: "s2", PoolAddress: "p1", ClaimedAt: 7, ClaimedAfter: 10},
	}
	for _, c := range claims {
		if err := s.Claims().Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	bySchedule, _ := s.Claims().GetBySchedule(ctx, "s1")
	if len(bySchedule) != 2 || bySchedule[0].ClaimID != "c1" || bySchedule[1].ClaimID != "c2" {
		t.Errorf("GetBySchedule returned unexpected order: %+v", bySchedule)
	}

	byPool, _ := s.Claims().GetByPool(ctx, "p1")
	if len(byPool) != 3 || byPool[1].ClaimID != "c3" {
		t.Errorf("GetByPool returned unexpected order: %+v", byPool)
	}
}
