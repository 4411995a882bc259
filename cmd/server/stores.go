package main

import (
	"context"
	"fmt"

	"solana-vesting/internal/config"
	"solana-vesting/internal/storage"
	chstore "solana-vesting/internal/storage/clickhouse"
	"solana-vesting/internal/storage/memory"
	pgstore "solana-vesting/internal/storage/postgres"
)

// stores holds the storage implementations the service runs on. The
// analytics stores are nil when ClickHouse is not configured.
type stores struct {
	vesting     storage.Store
	claimEvents storage.ClaimEventStore
	snapshots   storage.SnapshotStore
}

func createStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.UseMemory {
		return &stores{
			vesting:     memory.NewStore(),
			claimEvents: memory.NewClaimEventStore(),
			snapshots:   memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	s := &stores{vesting: pgstore.NewStore(pool)}
	if cfg.ClickHouseDSN == "" {
		return s, pool.Close, nil
	}

	chConn, err := chstore.Open(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open clickhouse: %w", err)
	}
	s.claimEvents = chstore.NewClaimEventStore(chConn)
	s.snapshots = chstore.NewSnapshotStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return s, cleanup, nil
}
