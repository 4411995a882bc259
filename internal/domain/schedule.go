package domain

// Schedule holds one beneficiary's vesting terms within a pool.
// Corresponds to vesting_schedules table in PostgreSQL.
type Schedule struct {
	Address         string // PRIMARY KEY, derived from beneficiary and pool
	Beneficiary     string // principal allowed to claim
	PoolAddress     string // pool this schedule draws from
	StartTime       int64  // linear curve anchor (Unix seconds)
	CliffTime       int64  // nothing vests before this
	EndTime         int64  // everything is vested from this point
	TotalAllocation uint64 // tokens ultimately claimable
	ClaimedAmount   uint64 // cumulative tokens withdrawn
	Bump            uint8  // bump for Address
	CreatedAt       int64  // record creation timestamp (Unix seconds)
}

// Duration returns EndTime - StartTime.
func (s *Schedule) Duration() int64 {
	return s.EndTime - s.StartTime
}

// FullyClaimed reports whether the whole allocation has been withdrawn.
func (s *Schedule) FullyClaimed() bool {
	return s.ClaimedAmount >= s.TotalAllocation
}
