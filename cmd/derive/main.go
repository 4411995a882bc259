// Package main derives vesting account addresses offline and, given an RPC
// endpoint, inspects the deployed accounts behind them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"solana-vesting/internal/logger"
	"solana-vesting/internal/onchain"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/solana"
	"solana-vesting/internal/vesting"
)

type output struct {
	ProgramID       string          `json:"program_id"`
	Pool            *pda.Address    `json:"-"`
	PoolAddress     string          `json:"pool,omitempty"`
	PoolBump        *uint8          `json:"pool_bump,omitempty"`
	Custody         string          `json:"custody,omitempty"`
	CustodyBump     *uint8          `json:"custody_bump,omitempty"`
	Schedule        string          `json:"schedule,omitempty"`
	EmployeeAccount string          `json:"employee_account,omitempty"`
	TokenAccount    string          `json:"beneficiary_token_account,omitempty"`
	OnChain         *onchainSummary `json:"onchain,omitempty"`
}

type onchainSummary struct {
	PoolFound      bool                `json:"pool_found"`
	Mint           string              `json:"mint,omitempty"`
	CustodyBalance string              `json:"custody_balance,omitempty"`
	ScheduleCount  int                 `json:"schedule_count"`
	Beneficiary    *beneficiarySummary `json:"beneficiary,omitempty"`
}

type beneficiarySummary struct {
	Total     string `json:"total"`
	Withdrawn string `json:"withdrawn"`
	Claimable string `json:"claimable"`
}

func main() {
	company := flag.String("company", "", "Company name (pool seed)")
	beneficiary := flag.String("beneficiary", "", "Beneficiary public key (base58)")
	mint := flag.String("mint", "", "Token mint (base58); derives the beneficiary's associated token account")
	programID := flag.String("program-id", os.Getenv("PROGRAM_ID"), "Vesting program ID (base58)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC endpoint; inspects the deployed accounts when set")
	timeout := flag.Duration("timeout", 30*time.Second, "RPC timeout")
	flag.Parse()

	if *company == "" && *beneficiary == "" {
		fmt.Fprintln(os.Stderr, "Error: --company or --beneficiary is required")
		os.Exit(1)
	}

	program := pda.DefaultVestingProgramID
	if *programID != "" {
		var err error
		if program, err = pda.ParsePublicKey(*programID); err != nil {
			fatalf("Invalid --program-id: %v", err)
		}
	}

	out, err := derive(program, *company, *beneficiary, *mint)
	if err != nil {
		fatalf("Error: %v", err)
	}

	if *rpcEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		inspector := onchain.NewInspector(solana.NewHTTPClient(*rpcEndpoint), program, logger.Component("derive"))
		out.OnChain, err = inspect(ctx, inspector, *company, *beneficiary, out.Pool)
		if err != nil {
			fatalf("Error inspecting chain: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatalf("Error encoding output: %v", err)
	}
}

func derive(program pda.PublicKey, company, beneficiary, mint string) (*output, error) {
	d := pda.NewDeriver(program)
	out := &output{ProgramID: program.String()}

	if company != "" {
		pool, err := d.PoolAddress(company)
		if err != nil {
			return nil, err
		}
		custody, err := d.CustodyAddress(company)
		if err != nil {
			return nil, err
		}
		out.Pool = &pool
		out.PoolAddress = pool.String()
		out.PoolBump = &pool.Bump
		out.Custody = custody.String()
		out.CustodyBump = &custody.Bump
	}

	if beneficiary == "" {
		return out, nil
	}
	owner, err := pda.ParsePublicKey(beneficiary)
	if err != nil {
		return nil, fmt.Errorf("beneficiary: %w", err)
	}
	employee, _, err := pda.FindProgramAddress([][]byte{pda.ScheduleSeedPrefix, owner.Bytes()}, program)
	if err != nil {
		return nil, err
	}
	out.EmployeeAccount = employee.String()

	if out.Pool != nil {
		schedule, err := d.ScheduleAddress(owner, out.Pool.Key)
		if err != nil {
			return nil, err
		}
		out.Schedule = schedule.String()
	}
	if mint != "" {
		m, err := pda.ParsePublicKey(mint)
		if err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		ata, err := pda.AssociatedTokenAddress(owner, m)
		if err != nil {
			return nil, err
		}
		out.TokenAccount = ata.String()
	}
	return out, nil
}

func inspect(ctx context.Context, inspector *onchain.Inspector, company, beneficiary string, pool *pda.Address) (*onchainSummary, error) {
	sum := &onchainSummary{}
	var decimals uint8

	if company != "" {
		state, err := inspector.Pool(ctx, company)
		switch {
		case errors.Is(err, onchain.ErrAccountNotFound):
		case err != nil:
			return nil, err
		default:
			sum.PoolFound = true
			sum.Mint = state.Pool.Mint
			decimals = state.Pool.Decimals
			sum.CustodyBalance = vesting.UIAmount(state.CustodyBalance, decimals)
			schedules, err := inspector.Schedules(ctx, pool.Key)
			if err != nil {
				return nil, err
			}
			sum.ScheduleCount = len(schedules)
		}
	}

	if beneficiary == "" {
		return sum, nil
	}
	owner, err := pda.ParsePublicKey(beneficiary)
	if err != nil {
		return nil, err
	}
	s, err := inspector.Schedule(ctx, owner)
	if errors.Is(err, onchain.ErrAccountNotFound) {
		return sum, nil
	}
	if err != nil {
		return nil, err
	}
	sum.Beneficiary = &beneficiarySummary{
		Total:     vesting.UIAmount(s.TotalAllocation, decimals),
		Withdrawn: vesting.UIAmount(s.ClaimedAmount, decimals),
		Claimable: vesting.UIAmount(vesting.Claimable(s, time.Now().Unix()), decimals),
	}
	return sum, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
