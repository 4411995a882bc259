package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-vesting/internal/observability"
	"solana-vesting/internal/storage"
)

// Store implements storage.Store on PostgreSQL.
//
// Inside WithTx all stores share one pgx transaction, and single-row reads of
// schedules and token accounts take row locks (SELECT ... FOR UPDATE) that
// are held until commit.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Pools returns an autocommit PoolStore.
func (s *Store) Pools() storage.PoolStore {
	return NewPoolStore(s.pool)
}

// Schedules returns an autocommit ScheduleStore.
func (s *Store) Schedules() storage.ScheduleStore {
	return NewScheduleStore(s.pool)
}

// Accounts returns an autocommit TokenAccountStore.
func (s *Store) Accounts() storage.TokenAccountStore {
	return NewTokenAccountStore(s.pool)
}

// Claims returns an autocommit ClaimStore.
func (s *Store) Claims() storage.ClaimStore {
	return NewClaimStore(s.pool)
}

// WithTx runs fn in a single transaction, committing if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	observability.RecordDBQuery("postgres", "tx", time.Since(start).Seconds(), err)
	return err
}

// pgTx implements storage.Tx over one pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Pools() storage.PoolStore {
	return &PoolStore{db: t.tx}
}

func (t *pgTx) Schedules() storage.ScheduleStore {
	return &ScheduleStore{db: t.tx, forUpdate: true}
}

func (t *pgTx) Accounts() storage.TokenAccountStore {
	return &TokenAccountStore{db: t.tx, forUpdate: true}
}

func (t *pgTx) Claims() storage.ClaimStore {
	return &ClaimStore{db: t.tx}
}
