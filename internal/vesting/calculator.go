package vesting

import (
	"math/bits"

	"solana-vesting/internal/domain"
)

// VestedAmount returns the amount of s vested at now.
//
// Nothing vests before the cliff, everything vests from EndTime on, and in
// between the allocation accrues linearly from StartTime with truncating
// division. The product is computed in 128 bits, so any uint64 allocation
// over any valid interval is exact.
func VestedAmount(s *domain.Schedule, now int64) uint64 {
	if now < s.CliffTime {
		return 0
	}
	if now >= s.EndTime {
		return s.TotalAllocation
	}

	// start <= cliff <= now < end, so both differences are positive and
	// fit uint64 even when the int64 subtraction would overflow.
	elapsed := uint64(now) - uint64(s.StartTime)
	duration := uint64(s.EndTime) - uint64(s.StartTime)

	hi, lo := bits.Mul64(s.TotalAllocation, elapsed)
	// elapsed < duration keeps hi < duration, so Div64 cannot panic.
	vested, _ := bits.Div64(hi, lo, duration)
	return vested
}

// Claimable returns the vested amount not yet withdrawn at now.
func Claimable(s *domain.Schedule, now int64) uint64 {
	vested := VestedAmount(s, now)
	if vested <= s.ClaimedAmount {
		return 0
	}
	return vested - s.ClaimedAmount
}

// Status is a schedule's position on its vesting curve at one instant.
type Status struct {
	At        int64  `json:"at"`
	Vested    uint64 `json:"vested,string"`
	Claimed   uint64 `json:"claimed,string"`
	Claimable uint64 `json:"claimable,string"`
	Locked    uint64 `json:"locked,string"` // not yet vested
}

// StatusAt evaluates s at now.
func StatusAt(s *domain.Schedule, now int64) Status {
	vested := VestedAmount(s, now)
	st := Status{
		At:      now,
		Vested:  vested,
		Claimed: s.ClaimedAmount,
		Locked:  s.TotalAllocation - vested,
	}
	if vested > s.ClaimedAmount {
		st.Claimable = vested - s.ClaimedAmount
	}
	return st
}

// Snapshot builds the analytics row for s at now.
func Snapshot(s *domain.Schedule, now int64, custodyBalance uint64) *domain.VestingSnapshot {
	st := StatusAt(s, now)
	return &domain.VestingSnapshot{
		ScheduleAddress: s.Address,
		PoolAddress:     s.PoolAddress,
		Beneficiary:     s.Beneficiary,
		SnapshotAt:      now,
		TotalAllocation: s.TotalAllocation,
		Vested:          st.Vested,
		Claimed:         st.Claimed,
		Claimable:       st.Claimable,
		Locked:          st.Locked,
		CustodyBalance:  custodyBalance,
	}
}

// validateTerms checks the shape of a schedule before it is persisted.
func validateTerms(start, cliff, end int64, total uint64) error {
	switch {
	case start >= end:
		return ErrInvalidSchedule
	case cliff < start || cliff > end:
		return ErrInvalidSchedule
	case total > domain.MaxAmount:
		return ErrInvalidSchedule
	}
	return nil
}
