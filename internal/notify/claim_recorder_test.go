package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage/memory"
)

func TestClaimRecorder_WritesClaims(t *testing.T) {
	store := memory.NewClaimEventStore()
	r := NewClaimRecorder(store)
	ctx := context.Background()

	claim := &domain.ClaimRecord{
		ClaimID:         "claim-1",
		ScheduleAddress: "ScheduleA",
		PoolAddress:     "PoolA",
		Beneficiary:     "Alice",
		Amount:          250,
		ClaimedAfter:    250,
		ClaimedAt:       25,
	}
	require.NoError(t, r.Publish(ctx, domain.Event{
		Type:            domain.EventClaim,
		PoolAddress:     "PoolA",
		CompanyName:     "Acme",
		Mint:            "MintA",
		TotalAllocation: 1000,
		Claim:           claim,
	}))

	got, err := store.GetByBeneficiary(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, &domain.ClaimEvent{
		ClaimID:         "claim-1",
		PoolAddress:     "PoolA",
		CompanyName:     "Acme",
		ScheduleAddress: "ScheduleA",
		Beneficiary:     "Alice",
		Mint:            "MintA",
		Amount:          250,
		ClaimedAfter:    250,
		TotalAllocation: 1000,
		ClaimedAt:       25,
	}, got[0])
}

func TestClaimRecorder_IgnoresOtherEvents(t *testing.T) {
	store := memory.NewClaimEventStore()
	r := NewClaimRecorder(store)

	require.NoError(t, r.Publish(context.Background(), domain.Event{Type: domain.EventDeposit, PoolAddress: "PoolA"}))

	got, err := store.GetByPool(context.Background(), "PoolA", 0, 1<<62)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClaimRecorder_DuplicateClaim(t *testing.T) {
	r := NewClaimRecorder(memory.NewClaimEventStore())
	e := domain.Event{Type: domain.EventClaim, Claim: &domain.ClaimRecord{ClaimID: "dup"}}

	require.NoError(t, r.Publish(context.Background(), e))
	assert.Error(t, r.Publish(context.Background(), e))
}
