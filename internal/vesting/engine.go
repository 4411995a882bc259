// Package vesting implements time-based token vesting: company pools with a
// program-controlled custody account, per-beneficiary schedules with a cliff
// and linear release, and claims of the vested-but-unclaimed delta.
package vesting

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/idhash"
	"solana-vesting/internal/observability"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/storage"
)

// PoolLookup resolves pools by address. Pool records never change after
// creation, so implementations may cache them indefinitely.
type PoolLookup interface {
	GetPool(ctx context.Context, address string) (*domain.VestingPool, error)
}

// ScheduleParams are the terms of a new beneficiary schedule.
type ScheduleParams struct {
	PoolAddress     string
	Beneficiary     string
	StartTime       int64
	EndTime         int64
	CliffTime       int64
	TotalAllocation uint64
}

// Engine executes vesting operations against a Store.
type Engine struct {
	store   storage.Store
	deriver *pda.Deriver
	clock   Clock
	pools   PoolLookup
	sink    EventSink
	log     *logrus.Entry
	locks   *keyedMutex
}

// Option configures Engine.
type Option func(*Engine)

// WithClock sets the clock used for record timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPoolLookup sets a pool reader, typically a cache in front of the store.
func WithPoolLookup(p PoolLookup) Option {
	return func(e *Engine) {
		e.pools = p
	}
}

// WithEventSink sets where committed events are published.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) {
		e.sink = s
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine creates an Engine deriving addresses with deriver.
func NewEngine(store storage.Store, deriver *pda.Deriver, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		deriver: deriver,
		clock:   SystemClock{},
		sink:    nopSink{},
		log:     logrus.NewEntry(logrus.StandardLogger()),
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pools == nil {
		e.pools = StorePoolLookup{Pools: store.Pools()}
	}
	e.log = e.log.WithField("component", "vesting")
	return e
}

// Deriver returns the address deriver bound to the vesting program.
func (e *Engine) Deriver() *pda.Deriver {
	return e.deriver
}

// CreatePool registers a company pool for mint and opens its empty custody account.
func (e *Engine) CreatePool(ctx context.Context, operator, companyName string, mint domain.Mint) (*domain.VestingPool, error) {
	if _, err := pda.ParsePublicKey(operator); err != nil {
		return nil, fmt.Errorf("operator %q: %w", operator, ErrInvalidInput)
	}
	if _, err := pda.ParsePublicKey(mint.Address); err != nil {
		return nil, fmt.Errorf("mint %q: %w", mint.Address, ErrInvalidInput)
	}
	if companyName == "" || len(companyName) > pda.MaxSeedLength {
		return nil, fmt.Errorf("company name must be 1-%d bytes: %w", pda.MaxSeedLength, ErrInvalidInput)
	}

	poolAddr, err := e.deriver.PoolAddress(companyName)
	if err != nil {
		return nil, fmt.Errorf("derive pool address: %v: %w", err, ErrDerivationFailure)
	}
	custodyAddr, err := e.deriver.CustodyAddress(companyName)
	if err != nil {
		return nil, fmt.Errorf("derive custody address: %v: %w", err, ErrDerivationFailure)
	}

	unlock := e.locks.Lock(poolAddr.String())
	defer unlock()

	now, err := e.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	pool := &domain.VestingPool{
		Address:        poolAddr.String(),
		CompanyName:    companyName,
		Owner:          operator,
		Mint:           mint.Address,
		Decimals:       mint.Decimals,
		CustodyAccount: custodyAddr.String(),
		PoolBump:       poolAddr.Bump,
		CustodyBump:    custodyAddr.Bump,
		CreatedAt:      now,
	}

	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Pools().Insert(ctx, pool); err != nil {
			return fmt.Errorf("insert pool: %w", err)
		}
		custody := &domain.TokenAccount{
			Address: pool.CustodyAccount,
			Mint:    pool.Mint,
			Owner:   pool.CustodyAccount,
		}
		if err := tx.Accounts().Insert(ctx, custody); err != nil {
			return fmt.Errorf("insert custody account: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("pool %s for %q: %w", pool.Address, companyName, ErrAlreadyExists)
		}
		return nil, err
	}

	observability.RecordPoolCreated()
	e.log.WithFields(logrus.Fields{
		"pool":    pool.Address,
		"company": companyName,
		"mint":    pool.Mint,
	}).Info("pool created")

	e.sink.Publish(ctx, domain.Event{
		Type:        domain.EventPoolCreated,
		PoolAddress: pool.Address,
		CompanyName: companyName,
		Mint:        pool.Mint,
		Actor:       operator,
		Timestamp:   now,
	})
	return pool, nil
}

// CreateSchedule grants a beneficiary an allocation from a pool. Only the
// pool owner may create schedules. Custody funding is not checked here.
func (e *Engine) CreateSchedule(ctx context.Context, operator string, p ScheduleParams) (*domain.Schedule, error) {
	if err := validateTerms(p.StartTime, p.CliffTime, p.EndTime, p.TotalAllocation); err != nil {
		return nil, fmt.Errorf("start=%d cliff=%d end=%d total=%d: %w",
			p.StartTime, p.CliffTime, p.EndTime, p.TotalAllocation, err)
	}

	if _, err := pda.ParsePublicKey(operator); err != nil {
		return nil, fmt.Errorf("operator %q: %w", operator, ErrInvalidInput)
	}
	beneficiary, err := pda.ParsePublicKey(p.Beneficiary)
	if err != nil {
		return nil, fmt.Errorf("beneficiary %q: %w", p.Beneficiary, ErrInvalidInput)
	}
	poolKey, err := pda.ParsePublicKey(p.PoolAddress)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", p.PoolAddress, ErrInvalidInput)
	}

	pool, err := e.GetPool(ctx, p.PoolAddress)
	if err != nil {
		return nil, err
	}
	if pool.Owner != operator {
		return nil, fmt.Errorf("operator %s does not own pool %s: %w", operator, pool.Address, ErrUnauthorized)
	}

	addr, err := e.deriver.ScheduleAddress(beneficiary, poolKey)
	if err != nil {
		return nil, fmt.Errorf("derive schedule address: %v: %w", err, ErrDerivationFailure)
	}

	unlock := e.locks.Lock(addr.String())
	defer unlock()

	now, err := e.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	sch := &domain.Schedule{
		Address:         addr.String(),
		Beneficiary:     p.Beneficiary,
		PoolAddress:     pool.Address,
		StartTime:       p.StartTime,
		CliffTime:       p.CliffTime,
		EndTime:         p.EndTime,
		TotalAllocation: p.TotalAllocation,
		Bump:            addr.Bump,
		CreatedAt:       now,
	}
	if err := e.store.Schedules().Insert(ctx, sch); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("schedule %s: %w", sch.Address, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert schedule: %w", err)
	}

	observability.RecordScheduleCreated()
	e.log.WithFields(logrus.Fields{
		"pool":        pool.Address,
		"schedule":    sch.Address,
		"beneficiary": sch.Beneficiary,
		"total":       sch.TotalAllocation,
	}).Info("schedule created")

	e.sink.Publish(ctx, domain.Event{
		Type:            domain.EventScheduleCreated,
		PoolAddress:     pool.Address,
		CompanyName:     pool.CompanyName,
		ScheduleAddress: sch.Address,
		Mint:            pool.Mint,
		Actor:           operator,
		Amount:          sch.TotalAllocation,
		TotalAllocation: sch.TotalAllocation,
		Timestamp:       now,
	})
	return sch, nil
}

// Deposit credits amount to the pool's custody account and returns the new
// balance. It stands in for an external token transfer into custody.
func (e *Engine) Deposit(ctx context.Context, funder, poolAddress string, amount uint64) (uint64, error) {
	if _, err := pda.ParsePublicKey(funder); err != nil {
		return 0, fmt.Errorf("funder %q: %w", funder, ErrInvalidInput)
	}
	if amount == 0 || amount > domain.MaxAmount {
		return 0, fmt.Errorf("deposit amount %d: %w", amount, ErrInvalidInput)
	}

	pool, err := e.GetPool(ctx, poolAddress)
	if err != nil {
		return 0, err
	}

	unlock := e.locks.Lock(pool.Address)
	defer unlock()

	now, err := e.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("read clock: %w", err)
	}

	var balance uint64
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		custody, err := tx.Accounts().GetByAddress(ctx, pool.CustodyAccount)
		if err != nil {
			return fmt.Errorf("load custody %s: %w", pool.CustodyAccount, err)
		}
		if amount > domain.MaxAmount-custody.Amount {
			return fmt.Errorf("custody balance would exceed %d: %w", domain.MaxAmount, ErrInvalidInput)
		}
		balance = custody.Amount + amount
		return tx.Accounts().UpdateAmount(ctx, custody.Address, balance)
	})
	if err != nil {
		return 0, err
	}

	observability.RecordDeposit(amount)
	e.log.WithFields(logrus.Fields{
		"pool":    pool.Address,
		"amount":  amount,
		"balance": balance,
	}).Info("custody funded")

	e.sink.Publish(ctx, domain.Event{
		Type:           domain.EventDeposit,
		PoolAddress:    pool.Address,
		CompanyName:    pool.CompanyName,
		Mint:           pool.Mint,
		Actor:          funder,
		Amount:         amount,
		CustodyBalance: balance,
		Timestamp:      now,
	})
	return balance, nil
}

// Claim transfers the claimable amount of a schedule at now from the pool
// custody to the beneficiary's associated token account.
//
// Checks run in order: the schedule exists, caller is its beneficiary,
// something is claimable, and custody covers it. Debit, credit, claimed
// amount and the ledger record commit together or not at all.
func (e *Engine) Claim(ctx context.Context, caller, scheduleAddress string, now int64) (*domain.ClaimRecord, error) {
	rec, pool, total, err := e.claim(ctx, caller, scheduleAddress, now)
	if err != nil {
		observability.RecordClaim(claimResult(err), 0)
		e.log.WithFields(logrus.Fields{
			"schedule": scheduleAddress,
			"caller":   caller,
			"now":      now,
		}).WithError(err).Debug("claim rejected")
		return nil, err
	}

	observability.RecordClaim(observability.ClaimResultSuccess, rec.Amount)
	e.log.WithFields(logrus.Fields{
		"pool":     rec.PoolAddress,
		"schedule": rec.ScheduleAddress,
		"amount":   rec.Amount,
		"claimed":  rec.ClaimedAfter,
	}).Info("claim settled")

	custody, err := e.store.Accounts().GetByAddress(ctx, pool.CustodyAccount)
	var balance uint64
	if err == nil {
		balance = custody.Amount
	}
	e.sink.Publish(ctx, domain.Event{
		Type:            domain.EventClaim,
		PoolAddress:     rec.PoolAddress,
		CompanyName:     pool.CompanyName,
		ScheduleAddress: rec.ScheduleAddress,
		Mint:            pool.Mint,
		Actor:           caller,
		Amount:          rec.Amount,
		TotalAllocation: total,
		CustodyBalance:  balance,
		Timestamp:       now,
		Claim:           rec,
	})
	return rec, nil
}

// claim runs the checks and the transfer. It returns the ledger record, the
// pool drawn from and the schedule's total allocation.
func (e *Engine) claim(ctx context.Context, caller, scheduleAddress string, now int64) (*domain.ClaimRecord, *domain.VestingPool, uint64, error) {
	unlockSchedule := e.locks.Lock(scheduleAddress)
	defer unlockSchedule()

	sch, err := e.GetSchedule(ctx, scheduleAddress)
	if err != nil {
		return nil, nil, 0, err
	}

	unlockPool := e.locks.Lock(sch.PoolAddress)
	defer unlockPool()

	pool, err := e.GetPool(ctx, sch.PoolAddress)
	if err != nil {
		return nil, nil, 0, err
	}

	// Schedules in other pools of the same mint pay into this account too.
	destAddress, err := beneficiaryTokenAddress(sch.Beneficiary, pool.Mint)
	if err != nil {
		return nil, nil, 0, err
	}
	unlockDest := e.locks.Lock(destAddress)
	defer unlockDest()

	var rec *domain.ClaimRecord
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		sch, err := tx.Schedules().GetByAddress(ctx, scheduleAddress)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("schedule %s: %w", scheduleAddress, ErrScheduleNotFound)
			}
			return fmt.Errorf("load schedule: %w", err)
		}
		if caller != sch.Beneficiary {
			return fmt.Errorf("caller %s is not beneficiary of %s: %w", caller, sch.Address, ErrUnauthorized)
		}

		vested := VestedAmount(sch, now)
		if vested <= sch.ClaimedAmount {
			return fmt.Errorf("schedule %s vested=%d claimed=%d: %w", sch.Address, vested, sch.ClaimedAmount, ErrNothingToClaim)
		}
		amount := vested - sch.ClaimedAmount

		custody, err := tx.Accounts().GetByAddress(ctx, pool.CustodyAccount)
		if err != nil {
			return fmt.Errorf("load custody %s: %w", pool.CustodyAccount, err)
		}
		if custody.Amount < amount {
			return fmt.Errorf("custody %s holds %d, claim needs %d: %w", custody.Address, custody.Amount, amount, ErrInsufficientCustody)
		}

		dest, err := tx.Accounts().Open(ctx, &domain.TokenAccount{Address: destAddress, Mint: pool.Mint, Owner: sch.Beneficiary})
		if err != nil {
			return fmt.Errorf("open token account %s: %w", destAddress, err)
		}
		if dest.Mint != pool.Mint {
			return fmt.Errorf("token account %s holds mint %s, want %s: %w", dest.Address, dest.Mint, pool.Mint, ErrInvalidInput)
		}
		if dest.Amount > domain.MaxAmount-amount {
			return fmt.Errorf("destination %s balance would exceed %d: %w", dest.Address, domain.MaxAmount, ErrInvalidInput)
		}

		if err := tx.Accounts().UpdateAmount(ctx, custody.Address, custody.Amount-amount); err != nil {
			return fmt.Errorf("debit custody: %w", err)
		}
		if err := tx.Accounts().UpdateAmount(ctx, dest.Address, dest.Amount+amount); err != nil {
			return fmt.Errorf("credit beneficiary: %w", err)
		}

		claimedAfter := sch.ClaimedAmount + amount
		if err := tx.Schedules().UpdateClaimed(ctx, sch.Address, claimedAfter); err != nil {
			return fmt.Errorf("update claimed amount: %w", err)
		}

		rec = &domain.ClaimRecord{
			ClaimID:         idhash.ComputeClaimID(sch.Address, sch.ClaimedAmount, claimedAfter, now),
			ScheduleAddress: sch.Address,
			PoolAddress:     pool.Address,
			Beneficiary:     sch.Beneficiary,
			Destination:     dest.Address,
			Amount:          amount,
			VestedAmount:    vested,
			ClaimedBefore:   sch.ClaimedAmount,
			ClaimedAfter:    claimedAfter,
			ClaimedAt:       now,
		}
		if err := tx.Claims().Insert(ctx, rec); err != nil {
			return fmt.Errorf("insert claim record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return rec, pool, sch.TotalAllocation, nil
}

// beneficiaryTokenAddress derives the beneficiary's associated token
// account for mint.
func beneficiaryTokenAddress(beneficiary, mint string) (string, error) {
	owner, err := pda.ParsePublicKey(beneficiary)
	if err != nil {
		return "", fmt.Errorf("beneficiary %q: %w", beneficiary, ErrInvalidInput)
	}
	mintKey, err := pda.ParsePublicKey(mint)
	if err != nil {
		return "", fmt.Errorf("mint %q: %w", mint, ErrInvalidInput)
	}
	ata, err := pda.AssociatedTokenAddress(owner, mintKey)
	if err != nil {
		return "", fmt.Errorf("derive token account: %v: %w", err, ErrDerivationFailure)
	}
	return ata.String(), nil
}

func claimResult(err error) string {
	switch {
	case errors.Is(err, ErrScheduleNotFound):
		return observability.ClaimResultNotFound
	case errors.Is(err, ErrUnauthorized):
		return observability.ClaimResultUnauthorized
	case errors.Is(err, ErrNothingToClaim):
		return observability.ClaimResultNothingToClaim
	case errors.Is(err, ErrInsufficientCustody):
		return observability.ClaimResultInsufficientCustody
	default:
		return observability.ClaimResultError
	}
}
