package vesting

import (
	"context"
	"errors"
	"fmt"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/storage"
)

// StorePoolLookup reads pools straight from a PoolStore.
type StorePoolLookup struct {
	Pools storage.PoolStore
}

// GetPool implements PoolLookup.
func (l StorePoolLookup) GetPool(ctx context.Context, address string) (*domain.VestingPool, error) {
	return l.Pools.GetByAddress(ctx, address)
}

// Now reads the engine clock.
func (e *Engine) Now(ctx context.Context) (int64, error) {
	return e.clock.Now(ctx)
}

// GetPool returns the pool at address.
func (e *Engine) GetPool(ctx context.Context, address string) (*domain.VestingPool, error) {
	pool, err := e.pools.GetPool(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("pool %s: %w", address, ErrPoolNotFound)
		}
		return nil, fmt.Errorf("load pool %s: %w", address, err)
	}
	return pool, nil
}

// GetPoolByCompany returns the pool registered for companyName.
func (e *Engine) GetPoolByCompany(ctx context.Context, companyName string) (*domain.VestingPool, error) {
	pool, err := e.store.Pools().GetByCompany(ctx, companyName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("company %q: %w", companyName, ErrPoolNotFound)
		}
		return nil, fmt.Errorf("load pool for %q: %w", companyName, err)
	}
	return pool, nil
}

// ListPools returns all pools ordered by company name.
func (e *Engine) ListPools(ctx context.Context) ([]*domain.VestingPool, error) {
	return e.store.Pools().List(ctx)
}

// GetSchedule returns the schedule at address.
func (e *Engine) GetSchedule(ctx context.Context, address string) (*domain.Schedule, error) {
	sch, err := e.store.Schedules().GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("schedule %s: %w", address, ErrScheduleNotFound)
		}
		return nil, fmt.Errorf("load schedule %s: %w", address, err)
	}
	return sch, nil
}

// ListSchedules returns the schedules of a pool.
func (e *Engine) ListSchedules(ctx context.Context, poolAddress string) ([]*domain.Schedule, error) {
	if _, err := e.GetPool(ctx, poolAddress); err != nil {
		return nil, err
	}
	return e.store.Schedules().GetByPool(ctx, poolAddress)
}

// ListSchedulesByBeneficiary returns every schedule granted to beneficiary.
func (e *Engine) ListSchedulesByBeneficiary(ctx context.Context, beneficiary string) ([]*domain.Schedule, error) {
	return e.store.Schedules().GetByBeneficiary(ctx, beneficiary)
}

// ScheduleStatus returns the schedule at address with its status at now.
func (e *Engine) ScheduleStatus(ctx context.Context, address string, now int64) (*domain.Schedule, Status, error) {
	sch, err := e.GetSchedule(ctx, address)
	if err != nil {
		return nil, Status{}, err
	}
	return sch, StatusAt(sch, now), nil
}

// CustodyBalance returns the balance held in a pool's custody account.
func (e *Engine) CustodyBalance(ctx context.Context, poolAddress string) (uint64, error) {
	pool, err := e.GetPool(ctx, poolAddress)
	if err != nil {
		return 0, err
	}
	custody, err := e.store.Accounts().GetByAddress(ctx, pool.CustodyAccount)
	if err != nil {
		return 0, fmt.Errorf("load custody %s: %w", pool.CustodyAccount, err)
	}
	return custody.Amount, nil
}

// ListClaims returns the claim ledger of a schedule, oldest first.
func (e *Engine) ListClaims(ctx context.Context, scheduleAddress string) ([]*domain.ClaimRecord, error) {
	if _, err := e.GetSchedule(ctx, scheduleAddress); err != nil {
		return nil, err
	}
	return e.store.Claims().GetBySchedule(ctx, scheduleAddress)
}

// TokenBalance returns owner's balance of mint in its associated token
// account. An account that was never opened holds zero.
func (e *Engine) TokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	ownerKey, err := pda.ParsePublicKey(owner)
	if err != nil {
		return 0, fmt.Errorf("owner %q: %w", owner, ErrInvalidInput)
	}
	mintKey, err := pda.ParsePublicKey(mint)
	if err != nil {
		return 0, fmt.Errorf("mint %q: %w", mint, ErrInvalidInput)
	}
	ata, err := pda.AssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %v: %w", err, ErrDerivationFailure)
	}

	acct, err := e.store.Accounts().GetByAddress(ctx, ata.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load token account %s: %w", ata.String(), err)
	}
	return acct.Amount, nil
}
