package reporting

import (
	"time"

	"solana-vesting/internal/domain"
)

// Report is a point-in-time view of every pool and schedule.
type Report struct {
	GeneratedAt time.Time
	SnapshotAt  int64 // vesting clock value the figures are evaluated at

	// Pools sorted by company name
	Pools []PoolSummaryRow

	// Schedules sorted by pool company name, then schedule address
	Schedules []ScheduleRow
}

// PoolSummaryRow aggregates the schedules of one pool.
type PoolSummaryRow struct {
	PoolAddress     string
	CompanyName     string
	Mint            string
	Decimals        uint8
	ScheduleCount   int
	TotalAllocation uint64
	Vested          uint64
	Claimed         uint64
	Claimable       uint64
	Locked          uint64
	CustodyBalance  uint64
	Outstanding     uint64 // allocated but not yet claimed
	Shortfall       uint64 // Outstanding not covered by CustodyBalance
}

// ScheduleRow is one schedule's state, carrying its pool's mint for formatting.
type ScheduleRow struct {
	CompanyName string
	Decimals    uint8
	Snapshot    domain.VestingSnapshot
}
