package onchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vesting/internal/pda"
	"solana-vesting/internal/solana"
	"solana-vesting/internal/solana/stub"
)

type fixture struct {
	rpc       *stub.RPCClient
	inspector *Inspector
	program   pda.PublicKey
	pool      pda.Address
	custody   pda.Address
	mint      pda.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rpc:     stub.NewRPCClient(),
		program: pda.DefaultVestingProgramID,
		mint:    key(9),
	}
	f.inspector = NewInspector(f.rpc, f.program, nil)

	d := pda.NewDeriver(f.program)
	var err error
	f.pool, err = d.PoolAddress("Acme")
	require.NoError(t, err)
	f.custody, err = d.CustodyAddress("Acme")
	require.NoError(t, err)

	f.set(f.pool.String(), f.program, (&VestingAccount{
		Owner:                key(1),
		Mint:                 f.mint,
		TreasuryTokenAccount: f.custody.Key,
		CompanyName:          "Acme",
		TreasuryBump:         f.custody.Bump,
		VestingBump:          f.pool.Bump,
	}).Encode())
	f.set(f.mint.String(), pda.TokenProgramID, EncodeMint(6))
	f.set(f.custody.String(), pda.TokenProgramID, EncodeTokenAccount(&TokenAccount{
		Mint:   f.mint,
		Owner:  f.custody.Key,
		Amount: 750,
	}))
	return f
}

func (f *fixture) set(address string, owner pda.PublicKey, data []byte) {
	f.rpc.SetAccount(address, &solana.AccountInfo{Owner: owner.String(), Data: data, Lamports: 1})
}

func (f *fixture) addEmployee(t *testing.T, beneficiary, pool pda.PublicKey, total uint64) pda.Address {
	t.Helper()
	addr, err := f.inspector.EmployeeAddress(beneficiary)
	require.NoError(t, err)
	f.set(addr.String(), f.program, (&EmployeeAccount{
		Beneficiary:    beneficiary,
		StartTime:      100,
		CliffTime:      150,
		EndTime:        200,
		VestingAccount: pool,
		TotalAmount:    total,
		Bump:           addr.Bump,
	}).Encode())
	return addr
}

func TestInspector_Pool(t *testing.T) {
	f := newFixture(t)

	state, err := f.inspector.Pool(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, f.pool.String(), state.Pool.Address)
	assert.Equal(t, "Acme", state.Pool.CompanyName)
	assert.Equal(t, f.mint.String(), state.Pool.Mint)
	assert.Equal(t, uint8(6), state.Pool.Decimals)
	assert.Equal(t, f.custody.String(), state.Pool.CustodyAccount)
	assert.Equal(t, uint64(750), state.CustodyBalance)
}

func TestInspector_PoolNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.inspector.Pool(context.Background(), "Globex")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestInspector_PoolWrongOwner(t *testing.T) {
	f := newFixture(t)
	f.set(f.pool.String(), key(8), (&VestingAccount{CompanyName: "Acme"}).Encode())

	_, err := f.inspector.Pool(context.Background(), "Acme")
	assert.ErrorIs(t, err, ErrWrongOwner)
}

func TestInspector_Schedule(t *testing.T) {
	f := newFixture(t)
	addr := f.addEmployee(t, key(20), f.pool.Key, 1000)

	s, err := f.inspector.Schedule(context.Background(), key(20))
	require.NoError(t, err)
	assert.Equal(t, addr.String(), s.Address)
	assert.Equal(t, f.pool.String(), s.PoolAddress)
	assert.Equal(t, uint64(1000), s.TotalAllocation)

	_, err = f.inspector.Schedule(context.Background(), key(21))
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestInspector_EmployeeAddressIgnoresPool(t *testing.T) {
	f := newFixture(t)
	onchain, err := f.inspector.EmployeeAddress(key(20))
	require.NoError(t, err)

	engine, err := pda.NewDeriver(f.program).ScheduleAddress(key(20), f.pool.Key)
	require.NoError(t, err)
	assert.NotEqual(t, onchain.Key, engine.Key)
}

func TestInspector_Schedules(t *testing.T) {
	f := newFixture(t)
	a := f.addEmployee(t, key(20), f.pool.Key, 1000)
	b := f.addEmployee(t, key(21), f.pool.Key, 400)
	f.addEmployee(t, key(22), key(99), 50)
	f.set("Junk", f.program, make([]byte, EmployeeAccountSize))

	got, err := f.inspector.Schedules(context.Background(), f.pool.Key)
	require.NoError(t, err)
	require.Len(t, got, 2)

	addrs := []string{got[0].Address, got[1].Address}
	assert.ElementsMatch(t, []string{a.String(), b.String()}, addrs)
	assert.Less(t, got[0].Address, got[1].Address)
}

func TestInspector_TokenBalance(t *testing.T) {
	f := newFixture(t)
	bal, err := f.inspector.TokenBalance(context.Background(), f.custody.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(750), bal)

	_, err = f.inspector.TokenBalance(context.Background(), f.pool.String())
	assert.ErrorIs(t, err, ErrWrongOwner)
}
