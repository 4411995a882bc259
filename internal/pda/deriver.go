package pda

import "fmt"

// Well-known program IDs.
var (
	// DefaultVestingProgramID is the vesting program the addresses are derived under.
	DefaultVestingProgramID = MustParsePublicKey("AtoVkaLbapASexGgVGi7YGgL95QLpMA1iPENf8iEzzQf")

	TokenProgramID           = MustParsePublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustParsePublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNqLJA8knL")
)

// Seed prefixes for each account kind.
var (
	CustodySeedPrefix  = []byte("vesting_treasury")
	ScheduleSeedPrefix = []byte("employee_account")
)

// Address is a derived address and the bump that produced it.
type Address struct {
	Key  PublicKey
	Bump uint8
}

// String returns the base58 address.
func (a Address) String() string {
	return a.Key.String()
}

// Deriver derives the vesting program's account addresses.
type Deriver struct {
	programID PublicKey
}

// NewDeriver creates a Deriver for programID.
func NewDeriver(programID PublicKey) *Deriver {
	return &Deriver{programID: programID}
}

// ProgramID returns the program the addresses are derived under.
func (d *Deriver) ProgramID() PublicKey {
	return d.programID
}

// PoolAddress derives the pool record address. Seeds: [company].
func (d *Deriver) PoolAddress(company string) (Address, error) {
	return d.find("pool", []byte(company))
}

// CustodyAddress derives the pool custody token account. Seeds: ["vesting_treasury", company].
func (d *Deriver) CustodyAddress(company string) (Address, error) {
	return d.find("custody", CustodySeedPrefix, []byte(company))
}

// ScheduleAddress derives a beneficiary schedule address within a pool.
// Seeds: ["employee_account", beneficiary, pool].
func (d *Deriver) ScheduleAddress(beneficiary, pool PublicKey) (Address, error) {
	return d.find("schedule", ScheduleSeedPrefix, beneficiary.Bytes(), pool.Bytes())
}

// AssociatedTokenAddress derives the SPL associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint PublicKey) (Address, error) {
	key, bump, err := FindProgramAddress([][]byte{owner.Bytes(), TokenProgramID.Bytes(), mint.Bytes()}, AssociatedTokenProgramID)
	if err != nil {
		return Address{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return Address{Key: key, Bump: bump}, nil
}

func (d *Deriver) find(kind string, seeds ...[]byte) (Address, error) {
	key, bump, err := FindProgramAddress(seeds, d.programID)
	if err != nil {
		return Address{}, fmt.Errorf("derive %s address: %w", kind, err)
	}
	return Address{Key: key, Bump: bump}, nil
}
