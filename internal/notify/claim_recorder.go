package notify

import (
	"context"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ClaimRecorder writes claim events to the analytics store. Other event
// types are ignored.
type ClaimRecorder struct {
	store storage.ClaimEventStore
}

// NewClaimRecorder creates a recorder writing to store.
func NewClaimRecorder(store storage.ClaimEventStore) *ClaimRecorder {
	return &ClaimRecorder{store: store}
}

// Name implements Publisher.
func (r *ClaimRecorder) Name() string {
	return "claim_events"
}

// Publish implements Publisher.
func (r *ClaimRecorder) Publish(ctx context.Context, e domain.Event) error {
	if e.Type != domain.EventClaim || e.Claim == nil {
		return nil
	}
	return r.store.InsertBulk(ctx, []*domain.ClaimEvent{ToClaimEvent(e)})
}

// ToClaimEvent builds the analytics row for a claim event.
func ToClaimEvent(e domain.Event) *domain.ClaimEvent {
	c := e.Claim
	return &domain.ClaimEvent{
		ClaimID:         c.ClaimID,
		PoolAddress:     c.PoolAddress,
		CompanyName:     e.CompanyName,
		ScheduleAddress: c.ScheduleAddress,
		Beneficiary:     c.Beneficiary,
		Mint:            e.Mint,
		Amount:          c.Amount,
		ClaimedAfter:    c.ClaimedAfter,
		TotalAllocation: e.TotalAllocation,
		ClaimedAt:       c.ClaimedAt,
	}
}
