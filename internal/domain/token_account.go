package domain

// TokenAccount is a balance of one mint held at an address.
// Corresponds to token_accounts table in PostgreSQL.
type TokenAccount struct {
	Address string // PRIMARY KEY
	Mint    string // token mint address
	Owner   string // authority allowed to move funds
	Amount  uint64 // balance in base units
}
