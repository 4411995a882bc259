package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ClaimStore implements storage.ClaimStore using PostgreSQL.
type ClaimStore struct {
	db querier
}

// NewClaimStore creates a new ClaimStore.
func NewClaimStore(pool *Pool) *ClaimStore {
	return &ClaimStore{db: pool}
}

// Compile-time interface check.
var _ storage.ClaimStore = (*ClaimStore)(nil)

const claimColumns = `claim_id, schedule_address, pool_address, beneficiary, destination, amount, vested_amount, claimed_before, claimed_after, claimed_at`

// Insert adds a new claim record. Returns ErrDuplicateKey if claim_id exists.
func (s *ClaimStore) Insert(ctx context.Context, c *domain.ClaimRecord) error {
	if c == nil || c.ClaimID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		c.ClaimID,
		c.ScheduleAddress,
		c.PoolAddress,
		c.Beneficiary,
		c.Destination,
		int64(c.Amount),
		int64(c.VestedAmount),
		int64(c.ClaimedBefore),
		int64(c.ClaimedAfter),
		c.ClaimedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetBySchedule retrieves all claims of a schedule, ordered by claimed_at ASC.
func (s *ClaimStore) GetBySchedule(ctx context.Context, scheduleAddress string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE schedule_address = $1
		ORDER BY claimed_at ASC, claimed_after ASC
	`

	rows, err := s.db.Query(ctx, query, scheduleAddress)
	if err != nil {
		return nil, fmt.Errorf("get claims by schedule: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// GetByPool retrieves all claims drawn from a pool, ordered by claimed_at ASC.
func (s *ClaimStore) GetByPool(ctx context.Context, poolAddress string) ([]*domain.ClaimRecord, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE pool_address = $1
		ORDER BY claimed_at ASC, claimed_after ASC
	`

	rows, err := s.db.Query(ctx, query, poolAddress)
	if err != nil {
		return nil, fmt.Errorf("get claims by pool: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// scanClaims scans multiple rows into a slice of ClaimRecord.
func scanClaims(rows pgx.Rows) ([]*domain.ClaimRecord, error) {
	var claims []*domain.ClaimRecord

	for rows.Next() {
		var c domain.ClaimRecord
		var amount, vested, before, after int64

		err := rows.Scan(
			&c.ClaimID,
			&c.ScheduleAddress,
			&c.PoolAddress,
			&c.Beneficiary,
			&c.Destination,
			&amount,
			&vested,
			&before,
			&after,
			&c.ClaimedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim row: %w", err)
		}

		c.Amount = uint64(amount)
		c.VestedAmount = uint64(vested)
		c.ClaimedBefore = uint64(before)
		c.ClaimedAfter = uint64(after)
		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim rows: %w", err)
	}

	return claims, nil
}
