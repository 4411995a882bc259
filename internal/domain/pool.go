package domain

import "math"

// MaxAmount is the largest token amount the engine accepts.
// Amounts are stored in BIGINT columns, so the signed 64-bit range applies.
const MaxAmount uint64 = math.MaxInt64

// Mint identifies the fungible token a pool distributes.
type Mint struct {
	Address  string // base58 mint address
	Decimals uint8  // decimal places for UI amounts
}

// VestingPool is a company's vesting program for a single mint.
// Corresponds to vesting_pools table in PostgreSQL.
type VestingPool struct {
	Address        string // PRIMARY KEY, derived from company name
	CompanyName    string // derivation seed, unique
	Owner          string // operator that created the pool
	Mint           string // token mint address, immutable
	Decimals       uint8  // mint decimals
	CustodyAccount string // derived custody token account address
	PoolBump       uint8  // bump for Address
	CustodyBump    uint8  // bump for CustodyAccount
	CreatedAt      int64  // record creation timestamp (Unix seconds)
}
