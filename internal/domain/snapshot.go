package domain

// VestingSnapshot captures a schedule's vesting state at a point in time.
// Corresponds to vesting_snapshots table in ClickHouse.
type VestingSnapshot struct {
	ScheduleAddress string
	PoolAddress     string
	Beneficiary     string
	SnapshotAt      int64 // Unix seconds
	TotalAllocation uint64
	Vested          uint64
	Claimed         uint64
	Claimable       uint64
	Locked          uint64 // TotalAllocation - Vested
	CustodyBalance  uint64 // pool custody balance at SnapshotAt
}
