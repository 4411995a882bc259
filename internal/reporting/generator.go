package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/vesting"
)

// Source reads the vesting state a report is built from. *vesting.Engine implements it.
type Source interface {
	ListPools(ctx context.Context) ([]*domain.VestingPool, error)
	ListSchedules(ctx context.Context, poolAddress string) ([]*domain.Schedule, error)
	CustodyBalance(ctx context.Context, poolAddress string) (uint64, error)
}

// Generator produces reports from the vesting state.
type Generator struct {
	source Source
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate evaluates every schedule of every pool at the vesting time at.
func (g *Generator) Generate(ctx context.Context, at int64) (*Report, error) {
	pools, err := g.source.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].CompanyName < pools[j].CompanyName
	})

	report := &Report{
		GeneratedAt: g.now(),
		SnapshotAt:  at,
		Pools:       make([]PoolSummaryRow, 0, len(pools)),
	}

	for _, pool := range pools {
		custody, err := g.source.CustodyBalance(ctx, pool.Address)
		if err != nil {
			return nil, fmt.Errorf("custody balance of %s: %w", pool.Address, err)
		}
		schedules, err := g.source.ListSchedules(ctx, pool.Address)
		if err != nil {
			return nil, fmt.Errorf("list schedules of %s: %w", pool.Address, err)
		}
		sort.Slice(schedules, func(i, j int) bool {
			return schedules[i].Address < schedules[j].Address
		})

		summary := PoolSummaryRow{
			PoolAddress:    pool.Address,
			CompanyName:    pool.CompanyName,
			Mint:           pool.Mint,
			Decimals:       pool.Decimals,
			ScheduleCount:  len(schedules),
			CustodyBalance: custody,
		}
		for _, s := range schedules {
			snap := vesting.Snapshot(s, at, custody)
			summary.TotalAllocation = addSat(summary.TotalAllocation, snap.TotalAllocation)
			summary.Vested = addSat(summary.Vested, snap.Vested)
			summary.Claimed = addSat(summary.Claimed, snap.Claimed)
			summary.Claimable = addSat(summary.Claimable, snap.Claimable)
			summary.Locked = addSat(summary.Locked, snap.Locked)
			summary.Outstanding = addSat(summary.Outstanding, snap.TotalAllocation-snap.Claimed)

			report.Schedules = append(report.Schedules, ScheduleRow{
				CompanyName: pool.CompanyName,
				Decimals:    pool.Decimals,
				Snapshot:    *snap,
			})
		}
		if summary.Outstanding > custody {
			summary.Shortfall = summary.Outstanding - custody
		}
		report.Pools = append(report.Pools, summary)
	}

	return report, nil
}

// Snapshots returns the schedule snapshots of r for analytics storage.
func (r *Report) Snapshots() []*domain.VestingSnapshot {
	out := make([]*domain.VestingSnapshot, 0, len(r.Schedules))
	for i := range r.Schedules {
		snap := r.Schedules[i].Snapshot
		out = append(out, &snap)
	}
	return out
}

// addSat adds two amounts, saturating at the uint64 maximum.
func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
