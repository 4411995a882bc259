package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// ClaimEventStore implements storage.ClaimEventStore using ClickHouse.
type ClaimEventStore struct {
	conn *Conn
}

// NewClaimEventStore creates a new ClaimEventStore.
func NewClaimEventStore(conn *Conn) *ClaimEventStore {
	return &ClaimEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ClaimEventStore = (*ClaimEventStore)(nil)

const claimEventColumns = `
	claim_id, pool_address, company_name, schedule_address, beneficiary, mint,
	amount, claimed_after, total_allocation, claimed_at
`

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *ClaimEventStore) InsertBulk(ctx context.Context, events []*domain.ClaimEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e == nil || e.ClaimID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.ClaimID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ClaimID] = struct{}{}
		ids = append(ids, e.ClaimID)
	}

	// ReplacingMergeTree would collapse duplicates silently; keep append-only semantics.
	var existing uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM claim_events WHERE claim_id IN (?)`, ids).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check existing claim events: %w", err)
	}
	if existing > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO claim_events (`+claimEventColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.ClaimID, e.PoolAddress, e.CompanyName, e.ScheduleAddress, e.Beneficiary, e.Mint,
			e.Amount, e.ClaimedAfter, e.TotalAllocation, e.ClaimedAt,
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

// GetByPool retrieves events for a pool within [start, end] (inclusive), ordered by claimed_at ASC.
func (s *ClaimEventStore) GetByPool(ctx context.Context, poolAddress string, start, end int64) ([]*domain.ClaimEvent, error) {
	query := `
		SELECT ` + claimEventColumns + `
		FROM claim_events FINAL
		WHERE pool_address = ? AND claimed_at >= ? AND claimed_at <= ?
		ORDER BY claimed_at ASC, claimed_after ASC
	`

	rows, err := s.conn.Query(ctx, query, poolAddress, start, end)
	if err != nil {
		return nil, fmt.Errorf("query claim events by pool: %w", err)
	}
	defer rows.Close()

	return scanClaimEvents(rows)
}

// GetByBeneficiary retrieves all events for a beneficiary, ordered by claimed_at ASC.
func (s *ClaimEventStore) GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.ClaimEvent, error) {
	query := `
		SELECT ` + claimEventColumns + `
		FROM claim_events FINAL
		WHERE beneficiary = ?
		ORDER BY claimed_at ASC, claimed_after ASC
	`

	rows, err := s.conn.Query(ctx, query, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("query claim events by beneficiary: %w", err)
	}
	defer rows.Close()

	return scanClaimEvents(rows)
}

func scanClaimEvents(rows driver.Rows) ([]*domain.ClaimEvent, error) {
	var events []*domain.ClaimEvent
	for rows.Next() {
		var e domain.ClaimEvent
		err := rows.Scan(
			&e.ClaimID, &e.PoolAddress, &e.CompanyName, &e.ScheduleAddress, &e.Beneficiary, &e.Mint,
			&e.Amount, &e.ClaimedAfter, &e.TotalAllocation, &e.ClaimedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claim event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim events: %w", err)
	}
	return events, nil
}
