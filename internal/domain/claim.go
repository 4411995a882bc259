package domain

// ClaimRecord is the ledger entry written by a successful claim.
// Corresponds to claims table in PostgreSQL.
type ClaimRecord struct {
	ClaimID         string `json:"claim_id"` // deterministic hash
	ScheduleAddress string `json:"schedule_address"`
	PoolAddress     string `json:"pool_address"`
	Beneficiary     string `json:"beneficiary"`
	Destination     string `json:"destination"`          // beneficiary token account credited
	Amount          uint64 `json:"amount,string"`        // tokens transferred
	VestedAmount    uint64 `json:"vested_amount,string"` // vested total at ClaimedAt
	ClaimedBefore   uint64 `json:"claimed_before,string"`
	ClaimedAfter    uint64 `json:"claimed_after,string"`
	ClaimedAt       int64  `json:"claimed_at"` // clock value supplied to the claim (Unix seconds)
}

// ClaimEvent is the analytics row for a claim.
// Corresponds to claim_events table in ClickHouse.
type ClaimEvent struct {
	ClaimID         string
	PoolAddress     string
	CompanyName     string
	ScheduleAddress string
	Beneficiary     string
	Mint            string
	Amount          uint64
	ClaimedAfter    uint64
	TotalAllocation uint64
	ClaimedAt       int64
}
