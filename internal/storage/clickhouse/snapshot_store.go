package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	schedule_address, pool_address, beneficiary, snapshot_at,
	total_allocation, vested, claimed, claimable, locked, custody_balance
`

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.VestingSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	type key struct {
		schedule string
		at       int64
	}
	seen := make(map[key]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.ScheduleAddress == "" {
			return storage.ErrInvalidInput
		}
		k := key{snap.ScheduleAddress, snap.SnapshotAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Snapshots of one run share snapshot_at, so check per distinct timestamp.
	byTime := make(map[int64][]string)
	for _, snap := range snapshots {
		byTime[snap.SnapshotAt] = append(byTime[snap.SnapshotAt], snap.ScheduleAddress)
	}
	for at, schedules := range byTime {
		var existing uint64
		err := s.conn.QueryRow(ctx,
			`SELECT count() FROM vesting_snapshots WHERE snapshot_at = ? AND schedule_address IN (?)`,
			at, schedules,
		).Scan(&existing)
		if err != nil {
			return fmt.Errorf("check existing snapshots: %w", err)
		}
		if existing > 0 {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO vesting_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.ScheduleAddress, snap.PoolAddress, snap.Beneficiary, snap.SnapshotAt,
			snap.TotalAllocation, snap.Vested, snap.Claimed, snap.Claimable, snap.Locked, snap.CustodyBalance,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySchedule retrieves snapshots of a schedule, ordered by snapshot_at ASC.
func (s *SnapshotStore) GetBySchedule(ctx context.Context, scheduleAddress string) ([]*domain.VestingSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM vesting_snapshots FINAL
		WHERE schedule_address = ?
		ORDER BY snapshot_at ASC
	`

	rows, err := s.conn.Query(ctx, query, scheduleAddress)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by schedule: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByPoolAt retrieves all snapshots of a pool taken at snapshotAt, ordered by schedule address ASC.
func (s *SnapshotStore) GetByPoolAt(ctx context.Context, poolAddress string, snapshotAt int64) ([]*domain.VestingSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM vesting_snapshots FINAL
		WHERE pool_address = ? AND snapshot_at = ?
		ORDER BY schedule_address ASC
	`

	rows, err := s.conn.Query(ctx, query, poolAddress, snapshotAt)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by pool: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows driver.Rows) ([]*domain.VestingSnapshot, error) {
	var snapshots []*domain.VestingSnapshot
	for rows.Next() {
		var snap domain.VestingSnapshot
		err := rows.Scan(
			&snap.ScheduleAddress, &snap.PoolAddress, &snap.Beneficiary, &snap.SnapshotAt,
			&snap.TotalAllocation, &snap.Vested, &snap.Claimed, &snap.Claimable, &snap.Locked, &snap.CustodyBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}
