package vesting

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/storage"
	"solana-vesting/internal/storage/memory"
)

// recordingSink captures published events.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Publish(_ context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	engine   *Engine
	store    *memory.Store
	clock    *FixedClock
	sink     *recordingSink
	operator string
	mint     domain.Mint
}

func newKey(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var pk pda.PublicKey
	copy(pk[:], pub)
	return pk.String()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		clock:    NewFixedClock(1_700_000_000),
		sink:     &recordingSink{},
		operator: newKey(t),
		mint:     domain.Mint{Address: newKey(t), Decimals: 6},
	}
	f.engine = NewEngine(f.store, pda.NewDeriver(pda.DefaultVestingProgramID),
		WithClock(f.clock),
		WithEventSink(f.sink),
	)
	return f
}

func (f *fixture) pool(t *testing.T, company string, funding uint64) *domain.VestingPool {
	t.Helper()
	ctx := context.Background()
	pool, err := f.engine.CreatePool(ctx, f.operator, company, f.mint)
	require.NoError(t, err)
	if funding > 0 {
		_, err = f.engine.Deposit(ctx, f.operator, pool.Address, funding)
		require.NoError(t, err)
	}
	return pool
}

// schedule creates the reference schedule: start=0, cliff=5, end=20, total=1000.
func (f *fixture) schedule(t *testing.T, pool *domain.VestingPool, beneficiary string) *domain.Schedule {
	t.Helper()
	sch, err := f.engine.CreateSchedule(context.Background(), f.operator, ScheduleParams{
		PoolAddress:     pool.Address,
		Beneficiary:     beneficiary,
		StartTime:       0,
		CliffTime:       5,
		EndTime:         20,
		TotalAllocation: 1000,
	})
	require.NoError(t, err)
	return sch
}

func TestCreatePool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.engine.CreatePool(ctx, f.operator, "Acme", f.mint)
	require.NoError(t, err)

	deriver := pda.NewDeriver(pda.DefaultVestingProgramID)
	wantPool, err := deriver.PoolAddress("Acme")
	require.NoError(t, err)
	wantCustody, err := deriver.CustodyAddress("Acme")
	require.NoError(t, err)

	assert.Equal(t, wantPool.String(), pool.Address)
	assert.Equal(t, wantPool.Bump, pool.PoolBump)
	assert.Equal(t, wantCustody.String(), pool.CustodyAccount)
	assert.Equal(t, f.operator, pool.Owner)
	assert.Equal(t, f.mint.Address, pool.Mint)
	assert.Equal(t, uint8(6), pool.Decimals)
	assert.Equal(t, int64(1_700_000_000), pool.CreatedAt)

	custody, err := f.store.Accounts().GetByAddress(ctx, pool.CustodyAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), custody.Amount)
	assert.Equal(t, pool.CustodyAccount, custody.Owner)
	assert.Equal(t, f.mint.Address, custody.Mint)

	assert.Equal(t, []domain.EventType{domain.EventPoolCreated}, f.sink.types())
}

func TestCreatePool_AlreadyExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CreatePool(ctx, f.operator, "Acme", f.mint)
	require.NoError(t, err)

	otherMint := domain.Mint{Address: newKey(t)}
	_, err = f.engine.CreatePool(ctx, newKey(t), "Acme", otherMint)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	pools, err := f.engine.ListPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, f.mint.Address, pools[0].Mint)
}

func TestCreatePool_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		operator string
		company  string
		mint     string
	}{
		{"bad operator", "not-a-key", "Acme", f.mint.Address},
		{"bad mint", f.operator, "Acme", "0OIl"},
		{"empty company", f.operator, "", f.mint.Address},
		{"company too long", f.operator, "a-company-name-longer-than-32-bytes", f.mint.Address},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreatePool(ctx, tt.operator, tt.company, domain.Mint{Address: tt.mint})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCreateSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 0)
	alice := newKey(t)

	sch := f.schedule(t, pool, alice)

	wantAddr, err := f.engine.Deriver().ScheduleAddress(pda.MustParsePublicKey(alice), pda.MustParsePublicKey(pool.Address))
	require.NoError(t, err)
	assert.Equal(t, wantAddr.String(), sch.Address)
	assert.Equal(t, wantAddr.Bump, sch.Bump)
	assert.Equal(t, uint64(0), sch.ClaimedAmount)

	stored, err := f.engine.GetSchedule(ctx, sch.Address)
	require.NoError(t, err)
	assert.Equal(t, *sch, *stored)

	// Funding is bound at claim time, not at creation.
	balance, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestCreateSchedule_AlreadyExists(t *testing.T) {
	f := newFixture(t)
	pool := f.pool(t, "Acme", 0)
	alice := newKey(t)
	f.schedule(t, pool, alice)

	_, err := f.engine.CreateSchedule(context.Background(), f.operator, ScheduleParams{
		PoolAddress:     pool.Address,
		Beneficiary:     alice,
		StartTime:       100,
		CliffTime:       100,
		EndTime:         200,
		TotalAllocation: 5,
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateSchedule_SameBeneficiaryDifferentPools(t *testing.T) {
	f := newFixture(t)
	alice := newKey(t)

	a := f.schedule(t, f.pool(t, "Acme", 0), alice)
	b := f.schedule(t, f.pool(t, "Globex", 0), alice)

	assert.NotEqual(t, a.Address, b.Address)

	schedules, err := f.engine.ListSchedulesByBeneficiary(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, schedules, 2)
}

func TestCreateSchedule_Rejections(t *testing.T) {
	f := newFixture(t)
	pool := f.pool(t, "Acme", 0)
	valid := ScheduleParams{
		PoolAddress:     pool.Address,
		Beneficiary:     newKey(t),
		StartTime:       0,
		CliffTime:       5,
		EndTime:         20,
		TotalAllocation: 1000,
	}

	tests := []struct {
		name     string
		operator string
		mutate   func(p *ScheduleParams)
		wantErr  error
	}{
		{"start equals end", f.operator, func(p *ScheduleParams) { p.StartTime, p.CliffTime, p.EndTime = 10, 10, 10 }, ErrInvalidSchedule},
		{"cliff before start", f.operator, func(p *ScheduleParams) { p.CliffTime = -1 }, ErrInvalidSchedule},
		{"cliff after end", f.operator, func(p *ScheduleParams) { p.CliffTime = 21 }, ErrInvalidSchedule},
		{"allocation too large", f.operator, func(p *ScheduleParams) { p.TotalAllocation = domain.MaxAmount + 1 }, ErrInvalidSchedule},
		{"bad beneficiary", f.operator, func(p *ScheduleParams) { p.Beneficiary = "x" }, ErrInvalidInput},
		{"bad pool key", f.operator, func(p *ScheduleParams) { p.PoolAddress = "x" }, ErrInvalidInput},
		{"unknown pool", f.operator, func(p *ScheduleParams) { p.PoolAddress = newKey(t) }, ErrPoolNotFound},
		{"not pool owner", newKey(t), func(*ScheduleParams) {}, ErrUnauthorized},
		{"shape checked before authority", newKey(t), func(p *ScheduleParams) { p.CliffTime = 30 }, ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := f.engine.CreateSchedule(context.Background(), tt.operator, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	schedules, err := f.engine.ListSchedules(context.Background(), pool.Address)
	require.NoError(t, err)
	assert.Empty(t, schedules)
}

func TestClaim_ReferenceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	_, err := f.engine.Claim(ctx, alice, sch.Address, 4)
	assert.ErrorIs(t, err, ErrNothingToClaim)

	rec, err := f.engine.Claim(ctx, alice, sch.Address, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), rec.Amount)
	assert.Equal(t, uint64(0), rec.ClaimedBefore)
	assert.Equal(t, uint64(250), rec.ClaimedAfter)
	assert.Equal(t, int64(5), rec.ClaimedAt)

	_, err = f.engine.Claim(ctx, alice, sch.Address, 5)
	assert.ErrorIs(t, err, ErrNothingToClaim)

	rec, err = f.engine.Claim(ctx, alice, sch.Address, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), rec.Amount)
	assert.Equal(t, uint64(1000), rec.ClaimedAfter)

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), custody)

	received, err := f.engine.TokenBalance(ctx, alice, f.mint.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), received)

	claims, err := f.engine.ListClaims(ctx, sch.Address)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, uint64(250), claims[0].Amount)
	assert.Equal(t, uint64(750), claims[1].Amount)
	assert.NotEqual(t, claims[0].ClaimID, claims[1].ClaimID)

	assert.Equal(t, []domain.EventType{
		domain.EventPoolCreated,
		domain.EventDeposit,
		domain.EventScheduleCreated,
		domain.EventClaim,
		domain.EventClaim,
	}, f.sink.types())
}

func TestClaim_FullyClaimedAfterEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 5000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	_, err := f.engine.Claim(ctx, alice, sch.Address, 25)
	require.NoError(t, err)

	for _, now := range []int64{25, 26, 1_000, 1 << 40} {
		_, err := f.engine.Claim(ctx, alice, sch.Address, now)
		assert.ErrorIs(t, err, ErrNothingToClaim, "now=%d", now)
	}

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), custody)
}

func TestClaim_InsufficientCustody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 100)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	_, err := f.engine.Claim(ctx, alice, sch.Address, 5)
	assert.ErrorIs(t, err, ErrInsufficientCustody)

	stored, err := f.engine.GetSchedule(ctx, sch.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.ClaimedAmount)

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), custody)

	received, err := f.engine.TokenBalance(ctx, alice, f.mint.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), received)

	claims, err := f.engine.ListClaims(ctx, sch.Address)
	require.NoError(t, err)
	assert.Empty(t, claims)

	// Topping up custody makes the same claim succeed.
	_, err = f.engine.Deposit(ctx, f.operator, pool.Address, 150)
	require.NoError(t, err)
	rec, err := f.engine.Claim(ctx, alice, sch.Address, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), rec.Amount)
}

func TestClaim_Unauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	for _, caller := range []string{newKey(t), f.operator} {
		_, err := f.engine.Claim(ctx, caller, sch.Address, 10)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}

	stored, err := f.engine.GetSchedule(ctx, sch.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.ClaimedAmount)

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), custody)
}

func TestClaim_CheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 0)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	_, err := f.engine.Claim(ctx, alice, newKey(t), 10)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	// Unauthorized wins over nothing-to-claim and insufficient custody.
	_, err = f.engine.Claim(ctx, newKey(t), sch.Address, 0)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Nothing-to-claim wins over insufficient custody.
	_, err = f.engine.Claim(ctx, alice, sch.Address, 0)
	assert.ErrorIs(t, err, ErrNothingToClaim)

	_, err = f.engine.Claim(ctx, alice, sch.Address, 10)
	assert.ErrorIs(t, err, ErrInsufficientCustody)
}

func TestClaim_ExistingTokenAccountIsCredited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	ata, err := pda.AssociatedTokenAddress(pda.MustParsePublicKey(alice), pda.MustParsePublicKey(f.mint.Address))
	require.NoError(t, err)
	require.NoError(t, f.store.Accounts().Insert(ctx, &domain.TokenAccount{
		Address: ata.String(),
		Mint:    f.mint.Address,
		Owner:   alice,
		Amount:  7,
	}))

	rec, err := f.engine.Claim(ctx, alice, sch.Address, 10)
	require.NoError(t, err)
	assert.Equal(t, ata.String(), rec.Destination)

	received, err := f.engine.TokenBalance(ctx, alice, f.mint.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(507), received)
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 0)

	balance, err := f.engine.Deposit(ctx, f.operator, pool.Address, 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), balance)

	_, err = f.engine.Deposit(ctx, f.operator, pool.Address, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Deposit(ctx, f.operator, pool.Address, domain.MaxAmount)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Deposit(ctx, f.operator, newKey(t), 1)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = f.engine.Deposit(ctx, "bad", pool.Address, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	balance, err = f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), balance)
}

func TestClaim_ConcurrentConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const beneficiaries = 16
	// Underfund so some claims must fail on custody.
	pool := f.pool(t, "Acme", 1000*beneficiaries/2)

	keys := make([]string, beneficiaries)
	schedules := make([]*domain.Schedule, beneficiaries)
	for i := range keys {
		keys[i] = newKey(t)
		schedules[i] = f.schedule(t, pool, keys[i])
	}

	var wg sync.WaitGroup
	for i := range schedules {
		for _, now := range []int64{5, 10, 20} {
			wg.Add(1)
			go func(i int, now int64) {
				defer wg.Done()
				_, err := f.engine.Claim(ctx, keys[i], schedules[i].Address, now)
				if err != nil && !errors.Is(err, ErrNothingToClaim) && !errors.Is(err, ErrInsufficientCustody) {
					t.Errorf("unexpected claim error: %v", err)
				}
			}(i, now)
		}
	}
	wg.Wait()

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)

	var paid, claimed uint64
	for i, s := range schedules {
		received, err := f.engine.TokenBalance(ctx, keys[i], f.mint.Address)
		require.NoError(t, err)
		paid += received

		stored, err := f.engine.GetSchedule(ctx, s.Address)
		require.NoError(t, err)
		assert.Equal(t, received, stored.ClaimedAmount)
		assert.LessOrEqual(t, stored.ClaimedAmount, stored.TotalAllocation)
		claimed += stored.ClaimedAmount
	}

	assert.Equal(t, uint64(1000*beneficiaries/2), custody+paid)
	assert.Equal(t, paid, claimed)
	assert.Equal(t, 0, f.engine.locks.size())
}

// rendezvousStore holds each transaction between fn and commit until a
// second transaction reaches the same point or wait elapses, so two claims
// that are not serialized commit on top of each other's reads.
type rendezvousStore struct {
	*memory.Store
	arrived chan struct{}
	wait    time.Duration
}

func newRendezvousStore(s *memory.Store) *rendezvousStore {
	return &rendezvousStore{Store: s, arrived: make(chan struct{}), wait: 200 * time.Millisecond}
}

func (s *rendezvousStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		select {
		case s.arrived <- struct{}{}:
		case <-s.arrived:
		case <-time.After(s.wait):
		}
		return nil
	})
}

// claimConcurrently claims every schedule at now from its own goroutine.
func claimConcurrently(t *testing.T, e *Engine, caller string, schedules []*domain.Schedule, now int64) {
	t.Helper()
	var wg sync.WaitGroup
	for _, sch := range schedules {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			_, err := e.Claim(context.Background(), caller, addr, now)
			assert.NoError(t, err, "claim %s", addr)
		}(sch.Address)
	}
	wg.Wait()
}

func TestClaim_ConcurrentPoolsShareTokenAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := newKey(t)

	var pools []*domain.VestingPool
	var schedules []*domain.Schedule
	for _, company := range []string{"Acme", "Globex", "Initech"} {
		p := f.pool(t, company, 1000)
		pools = append(pools, p)
		schedules = append(schedules, f.schedule(t, p, alice))
	}

	// The token account exists before the racing claims.
	_, err := f.engine.Claim(ctx, alice, schedules[2].Address, 10)
	require.NoError(t, err)

	racing := NewEngine(newRendezvousStore(f.store), f.engine.Deriver(), WithClock(f.clock))
	claimConcurrently(t, racing, alice, schedules[:2], 20)

	balance, err := f.engine.TokenBalance(ctx, alice, f.mint.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(250+1000+1000), balance)

	var custody uint64
	for _, p := range pools {
		c, err := f.engine.CustodyBalance(ctx, p.Address)
		require.NoError(t, err)
		custody += c
	}
	assert.Equal(t, uint64(3000), custody+balance)
	assert.Equal(t, 0, racing.locks.size())
}

func TestClaim_ConcurrentFirstClaimsOpenOneTokenAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := newKey(t)

	var schedules []*domain.Schedule
	for _, company := range []string{"Acme", "Globex"} {
		schedules = append(schedules, f.schedule(t, f.pool(t, company, 1000), bob))
	}

	racing := NewEngine(newRendezvousStore(f.store), f.engine.Deriver(), WithClock(f.clock))
	claimConcurrently(t, racing, bob, schedules, 10)

	accounts, err := f.store.Accounts().GetByOwner(ctx, bob)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, uint64(500), accounts[0].Amount)

	for _, sch := range schedules {
		stored, err := f.engine.GetSchedule(ctx, sch.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(250), stored.ClaimedAmount)
	}
}

func TestClaim_ConcurrentSameSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Claim(ctx, alice, sch.Address, 10); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), custody)
}

func TestQueries_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.GetPool(ctx, newKey(t))
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = f.engine.GetPoolByCompany(ctx, "nobody")
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = f.engine.ListSchedules(ctx, newKey(t))
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, _, err = f.engine.ScheduleStatus(ctx, newKey(t), 0)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = f.engine.ListClaims(ctx, newKey(t))
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestScheduleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	_, err := f.engine.Claim(ctx, alice, sch.Address, 5)
	require.NoError(t, err)

	_, st, err := f.engine.ScheduleStatus(ctx, sch.Address, 10)
	require.NoError(t, err)
	assert.Equal(t, Status{At: 10, Vested: 500, Claimed: 250, Claimable: 250, Locked: 500}, st)
}

// failingStore aborts every transaction after fn runs.
type failingStore struct {
	*memory.Store
}

func (s failingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errors.New("commit failed")
	})
}

func TestClaim_StorageFailureLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.pool(t, "Acme", 1000)
	alice := newKey(t)
	sch := f.schedule(t, pool, alice)

	broken := NewEngine(failingStore{f.store}, f.engine.Deriver(), WithClock(f.clock))
	_, err := broken.Claim(ctx, alice, sch.Address, 10)
	require.Error(t, err)

	stored, err := f.engine.GetSchedule(ctx, sch.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.ClaimedAmount)

	custody, err := f.engine.CustodyBalance(ctx, pool.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), custody)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var called int
	sink := MultiSink{a, b, EventSinkFunc(func(context.Context, domain.Event) { called++ })}

	sink.Publish(context.Background(), domain.Event{Type: domain.EventDeposit})

	assert.Equal(t, []domain.EventType{domain.EventDeposit}, a.types())
	assert.Equal(t, []domain.EventType{domain.EventDeposit}, b.types())
	assert.Equal(t, 1, called)
}

func TestFixedClock(t *testing.T) {
	c := NewFixedClock(100)
	c.Advance(5)
	now, err := c.Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(105), now)

	c.Set(7)
	now, _ = c.Now(context.Background())
	assert.Equal(t, int64(7), now)
}
