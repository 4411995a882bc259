package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ScheduleStore implements storage.ScheduleStore using PostgreSQL.
type ScheduleStore struct {
	db        querier
	forUpdate bool
}

// NewScheduleStore creates a new ScheduleStore.
func NewScheduleStore(pool *Pool) *ScheduleStore {
	return &ScheduleStore{db: pool}
}

// Compile-time interface check.
var _ storage.ScheduleStore = (*ScheduleStore)(nil)

const scheduleColumns = `address, beneficiary, pool_address, start_time, cliff_time, end_time, total_allocation, claimed_amount, bump, created_at`

// Insert adds a new schedule. Returns ErrDuplicateKey if address exists.
func (s *ScheduleStore) Insert(ctx context.Context, sch *domain.Schedule) error {
	if sch == nil || sch.Address == "" || sch.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vesting_schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		sch.Address,
		sch.Beneficiary,
		sch.PoolAddress,
		sch.StartTime,
		sch.CliffTime,
		sch.EndTime,
		int64(sch.TotalAllocation),
		int64(sch.ClaimedAmount),
		int16(sch.Bump),
		sch.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return fmt.Errorf("insert schedule: %v: %w", err, storage.ErrInvalidInput)
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByAddress retrieves a schedule by its derived address. Returns ErrNotFound if not exists.
func (s *ScheduleStore) GetByAddress(ctx context.Context, address string) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM vesting_schedules WHERE address = $1` + lockClause(s.forUpdate)

	sch, err := scanSchedule(s.db.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get schedule by address: %w", err)
	}
	return sch, nil
}

// GetByPool retrieves all schedules of a pool, ordered by address ASC.
func (s *ScheduleStore) GetByPool(ctx context.Context, poolAddress string) ([]*domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM vesting_schedules
		WHERE pool_address = $1
		ORDER BY address ASC
	`

	rows, err := s.db.Query(ctx, query, poolAddress)
	if err != nil {
		return nil, fmt.Errorf("get schedules by pool: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// GetByBeneficiary retrieves all schedules of a beneficiary, ordered by address ASC.
func (s *ScheduleStore) GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM vesting_schedules
		WHERE beneficiary = $1
		ORDER BY address ASC
	`

	rows, err := s.db.Query(ctx, query, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("get schedules by beneficiary: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// UpdateClaimed sets claimed_amount. Returns ErrNotFound if not exists.
func (s *ScheduleStore) UpdateClaimed(ctx context.Context, address string, claimed uint64) error {
	query := `UPDATE vesting_schedules SET claimed_amount = $2 WHERE address = $1`

	tag, err := s.db.Exec(ctx, query, address, int64(claimed))
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update claimed amount: %v: %w", err, storage.ErrInvalidInput)
		}
		return fmt.Errorf("update claimed amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanSchedule scans a single row into a Schedule.
func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var sch domain.Schedule
	var total, claimed int64
	var bump int16

	err := row.Scan(
		&sch.Address,
		&sch.Beneficiary,
		&sch.PoolAddress,
		&sch.StartTime,
		&sch.CliffTime,
		&sch.EndTime,
		&total,
		&claimed,
		&bump,
		&sch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sch.TotalAllocation = uint64(total)
	sch.ClaimedAmount = uint64(claimed)
	sch.Bump = uint8(bump)
	return &sch, nil
}

// scanSchedules scans multiple rows into a slice of Schedule.
func scanSchedules(rows pgx.Rows) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule

	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		schedules = append(schedules, sch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}

	return schedules, nil
}
