package api

import (
	"solana-vesting/internal/domain"
	"solana-vesting/internal/vesting"
)

// Amounts are JSON strings so that values above 2^53 survive JavaScript
// clients; *_ui fields format them with the mint decimals.

// CreatePoolRequest is the body of POST /v1/pools.
type CreatePoolRequest struct {
	CompanyName string `json:"company_name"`
	Mint        string `json:"mint"`
	Decimals    uint8  `json:"decimals"`
}

// DepositRequest is the body of POST /v1/pools/{address}/deposits.
type DepositRequest struct {
	Amount uint64 `json:"amount,string"`
}

// CreateScheduleRequest is the body of POST /v1/pools/{address}/schedules.
type CreateScheduleRequest struct {
	Beneficiary     string `json:"beneficiary"`
	StartTime       int64  `json:"start_time"`
	EndTime         int64  `json:"end_time"`
	CliffTime       int64  `json:"cliff_time"`
	TotalAllocation uint64 `json:"total_allocation,string"`
}

// PoolResponse describes a pool and its custody balance.
type PoolResponse struct {
	Address          string `json:"address"`
	CompanyName      string `json:"company_name"`
	Owner            string `json:"owner"`
	Mint             string `json:"mint"`
	Decimals         uint8  `json:"decimals"`
	CustodyAccount   string `json:"custody_account"`
	CustodyBalance   uint64 `json:"custody_balance,string"`
	CustodyBalanceUI string `json:"custody_balance_ui"`
	PoolBump         uint8  `json:"pool_bump"`
	CustodyBump      uint8  `json:"custody_bump"`
	CreatedAt        int64  `json:"created_at"`
}

// DepositResponse reports the custody balance after a deposit.
type DepositResponse struct {
	PoolAddress      string `json:"pool_address"`
	Amount           uint64 `json:"amount,string"`
	CustodyBalance   uint64 `json:"custody_balance,string"`
	CustodyBalanceUI string `json:"custody_balance_ui"`
}

// StatusResponse is a schedule's vesting position at At.
type StatusResponse struct {
	At          int64  `json:"at"`
	Vested      uint64 `json:"vested,string"`
	Claimed     uint64 `json:"claimed,string"`
	Claimable   uint64 `json:"claimable,string"`
	Locked      uint64 `json:"locked,string"`
	VestedUI    string `json:"vested_ui"`
	ClaimableUI string `json:"claimable_ui"`
}

// ScheduleResponse describes a schedule, optionally with its status.
type ScheduleResponse struct {
	Address           string          `json:"address"`
	PoolAddress       string          `json:"pool_address"`
	Beneficiary       string          `json:"beneficiary"`
	StartTime         int64           `json:"start_time"`
	CliffTime         int64           `json:"cliff_time"`
	EndTime           int64           `json:"end_time"`
	TotalAllocation   uint64          `json:"total_allocation,string"`
	TotalAllocationUI string          `json:"total_allocation_ui"`
	ClaimedAmount     uint64          `json:"claimed_amount,string"`
	Bump              uint8           `json:"bump"`
	CreatedAt         int64           `json:"created_at"`
	Status            *StatusResponse `json:"status,omitempty"`
}

// ClaimResponse is a claim ledger entry.
type ClaimResponse struct {
	domain.ClaimRecord
	AmountUI string `json:"amount_ui"`
}

// BalanceResponse is an owner's balance of a mint.
type BalanceResponse struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount,string"`
}

func newPoolResponse(p *domain.VestingPool, custody uint64) PoolResponse {
	return PoolResponse{
		Address:          p.Address,
		CompanyName:      p.CompanyName,
		Owner:            p.Owner,
		Mint:             p.Mint,
		Decimals:         p.Decimals,
		CustodyAccount:   p.CustodyAccount,
		CustodyBalance:   custody,
		CustodyBalanceUI: vesting.UIAmount(custody, p.Decimals),
		PoolBump:         p.PoolBump,
		CustodyBump:      p.CustodyBump,
		CreatedAt:        p.CreatedAt,
	}
}

func newScheduleResponse(s *domain.Schedule, decimals uint8) ScheduleResponse {
	return ScheduleResponse{
		Address:           s.Address,
		PoolAddress:       s.PoolAddress,
		Beneficiary:       s.Beneficiary,
		StartTime:         s.StartTime,
		CliffTime:         s.CliffTime,
		EndTime:           s.EndTime,
		TotalAllocation:   s.TotalAllocation,
		TotalAllocationUI: vesting.UIAmount(s.TotalAllocation, decimals),
		ClaimedAmount:     s.ClaimedAmount,
		Bump:              s.Bump,
		CreatedAt:         s.CreatedAt,
	}
}

func newStatusResponse(st vesting.Status, decimals uint8) *StatusResponse {
	return &StatusResponse{
		At:          st.At,
		Vested:      st.Vested,
		Claimed:     st.Claimed,
		Claimable:   st.Claimable,
		Locked:      st.Locked,
		VestedUI:    vesting.UIAmount(st.Vested, decimals),
		ClaimableUI: vesting.UIAmount(st.Claimable, decimals),
	}
}

func newClaimResponse(c *domain.ClaimRecord, decimals uint8) ClaimResponse {
	return ClaimResponse{ClaimRecord: *c, AmountUI: vesting.UIAmount(c.Amount, decimals)}
}
