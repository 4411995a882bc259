// Package onchain decodes the deployed vesting program's Anchor accounts and
// the SPL token accounts they reference.
package onchain

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/pda"
)

// ErrInvalidAccountData is returned when account data does not match the expected layout.
var ErrInvalidAccountData = errors.New("onchain: invalid account data")

const (
	discriminatorLength = 8

	// MaxCompanyNameLength is the max_len the program reserves for company_name.
	MaxCompanyNameLength = 50

	// VestingAccountSize is the allocated size of a VestingAccount.
	VestingAccountSize = discriminatorLength + 3*32 + 4 + MaxCompanyNameLength + 1 + 1

	// EmployeeAccountSize is the allocated size of an EmployeeAccount.
	EmployeeAccountSize = discriminatorLength + 32 + 3*8 + 32 + 2*8 + 1

	// EmployeeVestingAccountOffset is where the pool key sits in an EmployeeAccount.
	EmployeeVestingAccountOffset = discriminatorLength + 32 + 3*8

	// TokenAccountSize is the size of an SPL token account.
	TokenAccountSize = 165

	// MintSize is the size of an SPL mint.
	MintSize = 82

	mintDecimalsOffset = 44
)

// Anchor account discriminators: sha256("account:<Name>")[:8].
var (
	VestingAccountDiscriminator  = AccountDiscriminator("VestingAccount")
	EmployeeAccountDiscriminator = AccountDiscriminator("EmployeeAccount")
)

// AccountDiscriminator returns the Anchor discriminator for an account type name.
func AccountDiscriminator(name string) [discriminatorLength]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [discriminatorLength]byte
	copy(d[:], sum[:discriminatorLength])
	return d
}

// VestingAccount is the on-chain pool record.
type VestingAccount struct {
	Owner                pda.PublicKey
	Mint                 pda.PublicKey
	TreasuryTokenAccount pda.PublicKey
	CompanyName          string
	TreasuryBump         uint8
	VestingBump          uint8
}

// EmployeeAccount is the on-chain beneficiary schedule.
type EmployeeAccount struct {
	Beneficiary    pda.PublicKey
	StartTime      int64
	EndTime        int64
	CliffTime      int64
	VestingAccount pda.PublicKey
	TotalAmount    uint64
	TotalWithdrawn uint64
	Bump           uint8
}

// TokenAccount holds the SPL token account fields the service reads.
type TokenAccount struct {
	Mint   pda.PublicKey
	Owner  pda.PublicKey
	Amount uint64
}

// DecodeVestingAccount parses VestingAccount data, discriminator included.
func DecodeVestingAccount(data []byte) (*VestingAccount, error) {
	r, err := newAnchorReader(data, VestingAccountDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("vesting account: %w", err)
	}
	v := &VestingAccount{
		Owner:                r.pubkey(),
		Mint:                 r.pubkey(),
		TreasuryTokenAccount: r.pubkey(),
		CompanyName:          r.str(MaxCompanyNameLength),
		TreasuryBump:         r.u8(),
		VestingBump:          r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("vesting account: %w", r.err)
	}
	return v, nil
}

// Encode serializes v in the program's layout, padded to VestingAccountSize.
// Company names longer than MaxCompanyNameLength are truncated.
func (v *VestingAccount) Encode() []byte {
	name := v.CompanyName
	if len(name) > MaxCompanyNameLength {
		name = name[:MaxCompanyNameLength]
	}
	w := newAnchorWriter(VestingAccountSize, VestingAccountDiscriminator)
	w.pubkey(v.Owner)
	w.pubkey(v.Mint)
	w.pubkey(v.TreasuryTokenAccount)
	w.str(name)
	w.u8(v.TreasuryBump)
	w.u8(v.VestingBump)
	return w.bytes()
}

// ToPool converts v stored at address to the engine's pool record.
func (v *VestingAccount) ToPool(address string, decimals uint8) *domain.VestingPool {
	return &domain.VestingPool{
		Address:        address,
		CompanyName:    v.CompanyName,
		Owner:          v.Owner.String(),
		Mint:           v.Mint.String(),
		Decimals:       decimals,
		CustodyAccount: v.TreasuryTokenAccount.String(),
		PoolBump:       v.VestingBump,
		CustodyBump:    v.TreasuryBump,
	}
}

// DecodeEmployeeAccount parses EmployeeAccount data, discriminator included.
func DecodeEmployeeAccount(data []byte) (*EmployeeAccount, error) {
	r, err := newAnchorReader(data, EmployeeAccountDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("employee account: %w", err)
	}
	e := &EmployeeAccount{
		Beneficiary:    r.pubkey(),
		StartTime:      r.i64(),
		EndTime:        r.i64(),
		CliffTime:      r.i64(),
		VestingAccount: r.pubkey(),
		TotalAmount:    r.u64(),
		TotalWithdrawn: r.u64(),
		Bump:           r.u8(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("employee account: %w", r.err)
	}
	return e, nil
}

// Encode serializes e in the program's layout.
func (e *EmployeeAccount) Encode() []byte {
	w := newAnchorWriter(EmployeeAccountSize, EmployeeAccountDiscriminator)
	w.pubkey(e.Beneficiary)
	w.i64(e.StartTime)
	w.i64(e.EndTime)
	w.i64(e.CliffTime)
	w.pubkey(e.VestingAccount)
	w.u64(e.TotalAmount)
	w.u64(e.TotalWithdrawn)
	w.u8(e.Bump)
	return w.bytes()
}

// ToSchedule converts e stored at address to the engine's schedule record.
func (e *EmployeeAccount) ToSchedule(address string) *domain.Schedule {
	return &domain.Schedule{
		Address:         address,
		Beneficiary:     e.Beneficiary.String(),
		PoolAddress:     e.VestingAccount.String(),
		StartTime:       e.StartTime,
		CliffTime:       e.CliffTime,
		EndTime:         e.EndTime,
		TotalAllocation: e.TotalAmount,
		ClaimedAmount:   e.TotalWithdrawn,
		Bump:            e.Bump,
	}
}

// DecodeTokenAccount parses an SPL token account.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account is %d bytes, want %d: %w", len(data), TokenAccountSize, ErrInvalidAccountData)
	}
	r := &reader{data: data}
	return &TokenAccount{
		Mint:   r.pubkey(),
		Owner:  r.pubkey(),
		Amount: r.u64(),
	}, nil
}

// EncodeTokenAccount builds an initialized SPL token account holding amount.
func EncodeTokenAccount(a *TokenAccount) []byte {
	data := make([]byte, TokenAccountSize)
	copy(data[0:32], a.Mint[:])
	copy(data[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.Amount)
	data[108] = 1 // state: initialized
	return data
}

// DecodeMintDecimals reads the decimals of an SPL mint.
func DecodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < MintSize {
		return 0, fmt.Errorf("mint is %d bytes, want %d: %w", len(data), MintSize, ErrInvalidAccountData)
	}
	return data[mintDecimalsOffset], nil
}

// EncodeMint builds an initialized SPL mint with decimals.
func EncodeMint(decimals uint8) []byte {
	data := make([]byte, MintSize)
	data[mintDecimalsOffset] = decimals
	data[45] = 1 // is_initialized
	return data
}

// reader decodes borsh little-endian fields; the first failure sticks in err.
type reader struct {
	data []byte
	off  int
	err  error
}

func newAnchorReader(data []byte, disc [discriminatorLength]byte) (*reader, error) {
	if len(data) < discriminatorLength {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrInvalidAccountData)
	}
	if [discriminatorLength]byte(data[:discriminatorLength]) != disc {
		return nil, fmt.Errorf("discriminator mismatch: %w", ErrInvalidAccountData)
	}
	return &reader{data: data, off: discriminatorLength}, nil
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("read %d bytes at offset %d of %d: %w", n, r.off, len(r.data), ErrInvalidAccountData)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) pubkey() pda.PublicKey {
	var pk pda.PublicKey
	if b := r.take(32); b != nil {
		copy(pk[:], b)
	}
	return pk
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) str(maxLen int) string {
	n := r.u32()
	if r.err == nil && int(n) > maxLen {
		r.err = fmt.Errorf("string length %d exceeds %d: %w", n, maxLen, ErrInvalidAccountData)
		return ""
	}
	return string(r.take(int(n)))
}

type writer struct {
	buf []byte
	off int
}

func newAnchorWriter(size int, disc [discriminatorLength]byte) *writer {
	w := &writer{buf: make([]byte, size)}
	copy(w.buf, disc[:])
	w.off = discriminatorLength
	return w
}

func (w *writer) put(b []byte) {
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

func (w *writer) pubkey(pk pda.PublicKey) {
	w.put(pk[:])
}

func (w *writer) u8(v uint8) {
	w.put([]byte{v})
}

func (w *writer) u64(v uint64) {
	w.put(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) str(s string) {
	w.put(binary.LittleEndian.AppendUint32(nil, uint32(len(s))))
	w.put([]byte(s))
}

func (w *writer) bytes() []byte {
	return w.buf
}
