package onchain

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/solana"
)

var (
	// ErrAccountNotFound is returned when an expected account does not exist.
	ErrAccountNotFound = errors.New("onchain: account not found")

	// ErrWrongOwner is returned when an account is not owned by the expected program.
	ErrWrongOwner = errors.New("onchain: account has unexpected owner")
)

// PoolState is a deployed pool with its custody balance.
type PoolState struct {
	Pool           *domain.VestingPool
	CustodyBalance uint64
}

// Inspector reads deployed vesting state through RPC.
type Inspector struct {
	rpc     solana.RPCClient
	deriver *pda.Deriver
	log     *logrus.Entry
}

// NewInspector creates an Inspector for programID.
func NewInspector(rpc solana.RPCClient, programID pda.PublicKey, log *logrus.Entry) *Inspector {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Inspector{
		rpc:     rpc,
		deriver: pda.NewDeriver(programID),
		log:     log.WithField("component", "onchain"),
	}
}

// EmployeeAddress derives a beneficiary's schedule account as the deployed
// program does. Seeds: ["employee_account", beneficiary]. Unlike the engine's
// schedule address, it does not include the pool.
func (i *Inspector) EmployeeAddress(beneficiary pda.PublicKey) (pda.Address, error) {
	key, bump, err := pda.FindProgramAddress([][]byte{pda.ScheduleSeedPrefix, beneficiary.Bytes()}, i.deriver.ProgramID())
	if err != nil {
		return pda.Address{}, fmt.Errorf("derive employee address: %w", err)
	}
	return pda.Address{Key: key, Bump: bump}, nil
}

// Pool loads the company's pool, its mint decimals and custody balance.
func (i *Inspector) Pool(ctx context.Context, company string) (*PoolState, error) {
	addr, err := i.deriver.PoolAddress(company)
	if err != nil {
		return nil, err
	}
	info, err := i.account(ctx, addr.String(), i.deriver.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", company, err)
	}
	va, err := DecodeVestingAccount(info.Data)
	if err != nil {
		return nil, err
	}

	mintInfo, err := i.account(ctx, va.Mint.String(), pda.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", va.Mint, err)
	}
	decimals, err := DecodeMintDecimals(mintInfo.Data)
	if err != nil {
		return nil, err
	}

	balance, err := i.TokenBalance(ctx, va.TreasuryTokenAccount.String())
	if err != nil {
		return nil, fmt.Errorf("custody %s: %w", va.TreasuryTokenAccount, err)
	}

	i.log.WithFields(logrus.Fields{
		"pool":    addr.String(),
		"company": company,
		"custody": balance,
	}).Debug("Loaded on-chain pool")

	return &PoolState{Pool: va.ToPool(addr.String(), decimals), CustodyBalance: balance}, nil
}

// Schedule loads the beneficiary's schedule account.
func (i *Inspector) Schedule(ctx context.Context, beneficiary pda.PublicKey) (*domain.Schedule, error) {
	addr, err := i.EmployeeAddress(beneficiary)
	if err != nil {
		return nil, err
	}
	info, err := i.account(ctx, addr.String(), i.deriver.ProgramID())
	if err != nil {
		return nil, fmt.Errorf("schedule of %s: %w", beneficiary, err)
	}
	ea, err := DecodeEmployeeAccount(info.Data)
	if err != nil {
		return nil, err
	}
	return ea.ToSchedule(addr.String()), nil
}

// Schedules lists every schedule account that draws from pool, ordered by address.
func (i *Inspector) Schedules(ctx context.Context, pool pda.PublicKey) ([]*domain.Schedule, error) {
	accounts, err := i.rpc.GetProgramAccounts(ctx, i.deriver.ProgramID().String(),
		solana.DataSizeFilter(EmployeeAccountSize),
		solana.MemcmpFilter(0, EmployeeAccountDiscriminator[:]),
		solana.MemcmpFilter(EmployeeVestingAccountOffset, pool.Bytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules of %s: %w", pool, err)
	}

	out := make([]*domain.Schedule, 0, len(accounts))
	for _, acc := range accounts {
		ea, err := DecodeEmployeeAccount(acc.Account.Data)
		if err != nil {
			i.log.WithError(err).WithField("address", acc.Pubkey).Warn("Skipping undecodable schedule account")
			continue
		}
		out = append(out, ea.ToSchedule(acc.Pubkey))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Address < out[b].Address })
	return out, nil
}

// TokenBalance returns the amount held by an SPL token account.
func (i *Inspector) TokenBalance(ctx context.Context, address string) (uint64, error) {
	info, err := i.account(ctx, address, pda.TokenProgramID)
	if err != nil {
		return 0, err
	}
	ta, err := DecodeTokenAccount(info.Data)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

func (i *Inspector) account(ctx context.Context, address string, owner pda.PublicKey) (*solana.AccountInfo, error) {
	info, err := i.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	if info.Owner != owner.String() {
		return nil, fmt.Errorf("%s owned by %s: %w", address, info.Owner, ErrWrongOwner)
	}
	return info, nil
}
