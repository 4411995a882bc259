package storage

import (
	"context"

	"solana-vesting/internal/domain"
)

// PoolStore provides access to vesting_pools storage.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if address or company name exists.
	Insert(ctx context.Context, p *domain.VestingPool) error

	// GetByAddress retrieves a pool by its derived address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.VestingPool, error)

	// GetByCompany retrieves a pool by company name. Returns ErrNotFound if not exists.
	GetByCompany(ctx context.Context, companyName string) (*domain.VestingPool, error)

	// List retrieves all pools, ordered by company name ASC.
	List(ctx context.Context) ([]*domain.VestingPool, error)
}

// ScheduleStore provides access to vesting_schedules storage.
type ScheduleStore interface {
	// Insert adds a new schedule. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, s *domain.Schedule) error

	// GetByAddress retrieves a schedule by its derived address. Returns ErrNotFound if not exists.
	// Inside a transaction the row is locked until commit.
	GetByAddress(ctx context.Context, address string) (*domain.Schedule, error)

	// GetByPool retrieves all schedules of a pool, ordered by address ASC.
	GetByPool(ctx context.Context, poolAddress string) ([]*domain.Schedule, error)

	// GetByBeneficiary retrieves all schedules of a beneficiary, ordered by address ASC.
	GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.Schedule, error)

	// UpdateClaimed sets claimed_amount. Returns ErrNotFound if not exists.
	UpdateClaimed(ctx context.Context, address string, claimed uint64) error
}

// TokenAccountStore provides access to token_accounts storage.
type TokenAccountStore interface {
	// Insert adds a new token account. Returns ErrDuplicateKey if address exists.
	Insert(ctx context.Context, a *domain.TokenAccount) error

	// Open returns the account at a.Address, creating it from a when it does
	// not exist yet. Concurrent opens of one address all see the same row.
	// Inside a transaction the row is locked until commit.
	Open(ctx context.Context, a *domain.TokenAccount) (*domain.TokenAccount, error)

	// GetByAddress retrieves an account. Returns ErrNotFound if not exists.
	// Inside a transaction the row is locked until commit.
	GetByAddress(ctx context.Context, address string) (*domain.TokenAccount, error)

	// GetByOwner retrieves all accounts owned by owner, ordered by address ASC.
	GetByOwner(ctx context.Context, owner string) ([]*domain.TokenAccount, error)

	// UpdateAmount sets the balance. Returns ErrNotFound if not exists.
	UpdateAmount(ctx context.Context, address string, amount uint64) error
}

// ClaimStore provides access to claims storage.
type ClaimStore interface {
	// Insert adds a new claim record. Returns ErrDuplicateKey if claim_id exists.
	Insert(ctx context.Context, c *domain.ClaimRecord) error

	// GetBySchedule retrieves all claims of a schedule, ordered by claimed_at ASC.
	GetBySchedule(ctx context.Context, scheduleAddress string) ([]*domain.ClaimRecord, error)

	// GetByPool retrieves all claims drawn from a pool, ordered by claimed_at ASC.
	GetByPool(ctx context.Context, poolAddress string) ([]*domain.ClaimRecord, error)
}

// Tx groups the stores that take part in one atomic unit of work.
type Tx interface {
	Pools() PoolStore
	Schedules() ScheduleStore
	Accounts() TokenAccountStore
	Claims() ClaimStore
}

// Store is the authoritative vesting state. Stores returned directly by a
// Store autocommit every call; WithTx commits all writes made through tx
// together, or none of them if fn returns an error.
type Store interface {
	Tx

	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ClaimEventStore provides access to claim_events analytics storage.
type ClaimEventStore interface {
	// InsertBulk adds multiple events. Fails entire batch on duplicate claim_id.
	InsertBulk(ctx context.Context, events []*domain.ClaimEvent) error

	// GetByPool retrieves events for a pool within [start, end] (inclusive), ordered by claimed_at ASC.
	GetByPool(ctx context.Context, poolAddress string, start, end int64) ([]*domain.ClaimEvent, error)

	// GetByBeneficiary retrieves all events for a beneficiary, ordered by claimed_at ASC.
	GetByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.ClaimEvent, error)
}

// SnapshotStore provides access to vesting_snapshots analytics storage.
type SnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (schedule_address, snapshot_at).
	InsertBulk(ctx context.Context, snapshots []*domain.VestingSnapshot) error

	// GetBySchedule retrieves snapshots of a schedule, ordered by snapshot_at ASC.
	GetBySchedule(ctx context.Context, scheduleAddress string) ([]*domain.VestingSnapshot, error)

	// GetByPoolAt retrieves all snapshots of a pool taken at snapshotAt, ordered by schedule address ASC.
	GetByPoolAt(ctx context.Context, poolAddress string, snapshotAt int64) ([]*domain.VestingSnapshot, error)
}
