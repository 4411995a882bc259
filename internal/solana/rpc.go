package solana

import "context"

// RPCClient defines the Solana RPC HTTP calls the service uses.
type RPCClient interface {
	// GetAccountInfo retrieves an account. Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetProgramAccounts retrieves the accounts owned by program matching every filter.
	GetProgramAccounts(ctx context.Context, program string, filters ...AccountFilter) ([]ProgramAccount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockTime retrieves the estimated production time of a block.
	// Returns nil for slots without a block.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded from base64
	Executable bool
	RentEpoch  uint64
}

// ProgramAccount is an account returned by getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string
	Account AccountInfo
}

// AccountFilter narrows getProgramAccounts. Exactly one field is set.
type AccountFilter struct {
	DataSize *uint64
	Memcmp   *Memcmp
}

// Memcmp matches Bytes at Offset in the account data.
type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

// DataSizeFilter matches accounts whose data is exactly size bytes.
func DataSizeFilter(size uint64) AccountFilter {
	return AccountFilter{DataSize: &size}
}

// MemcmpFilter matches accounts with b at offset.
func MemcmpFilter(offset uint64, b []byte) AccountFilter {
	return AccountFilter{Memcmp: &Memcmp{Offset: offset, Bytes: b}}
}
