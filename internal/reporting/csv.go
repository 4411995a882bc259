package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"solana-vesting/internal/vesting"
)

var poolsHeader = []string{
	"company_name", "pool_address", "mint", "decimals", "schedules",
	"total_allocation", "vested", "claimed", "claimable", "locked",
	"custody_balance", "outstanding", "shortfall",
	"total_allocation_ui", "custody_balance_ui",
}

var schedulesHeader = []string{
	"company_name", "pool_address", "schedule_address", "beneficiary", "snapshot_at",
	"total_allocation", "vested", "claimed", "claimable", "locked", "claimable_ui",
}

// WritePoolsCSV writes one row per pool summary after a header row.
func WritePoolsCSV(w io.Writer, rows []PoolSummaryRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, poolsHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.CompanyName,
			r.PoolAddress,
			r.Mint,
			strconv.Itoa(int(r.Decimals)),
			strconv.Itoa(r.ScheduleCount),
			u64(r.TotalAllocation),
			u64(r.Vested),
			u64(r.Claimed),
			u64(r.Claimable),
			u64(r.Locked),
			u64(r.CustodyBalance),
			u64(r.Outstanding),
			u64(r.Shortfall),
			vesting.UIAmount(r.TotalAllocation, r.Decimals),
			vesting.UIAmount(r.CustodyBalance, r.Decimals),
		})
	}
	if err := csv.NewWriter(w).WriteAll(records); err != nil {
		return fmt.Errorf("write pools csv: %w", err)
	}
	return nil
}

// WriteSchedulesCSV writes one row per schedule snapshot after a header row.
func WriteSchedulesCSV(w io.Writer, rows []ScheduleRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, schedulesHeader)
	for _, r := range rows {
		s := r.Snapshot
		records = append(records, []string{
			r.CompanyName,
			s.PoolAddress,
			s.ScheduleAddress,
			s.Beneficiary,
			strconv.FormatInt(s.SnapshotAt, 10),
			u64(s.TotalAllocation),
			u64(s.Vested),
			u64(s.Claimed),
			u64(s.Claimable),
			u64(s.Locked),
			vesting.UIAmount(s.Claimable, r.Decimals),
		})
	}
	if err := csv.NewWriter(w).WriteAll(records); err != nil {
		return fmt.Errorf("write schedules csv: %w", err)
	}
	return nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
