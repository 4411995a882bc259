// Package pda derives Solana program addresses: deterministic, off-curve
// addresses that no private key can sign for.
package pda

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// PublicKeyLength is the size of an ed25519 public key / account address.
	PublicKeyLength = 32
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32
	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLength is returned when a seed is longer than MaxSeedLength
	// or too many seeds are supplied.
	ErrMaxSeedLength = errors.New("pda: seed length or count exceeded")

	// ErrOnCurve is returned by CreateProgramAddress when the hash lands on
	// the ed25519 curve and therefore could have a private key.
	ErrOnCurve = errors.New("pda: derived address is on the ed25519 curve")

	// ErrNoViableBump is returned when no bump in the search range yields
	// an off-curve address.
	ErrNoViableBump = errors.New("pda: unable to find a viable program address bump")

	// ErrInvalidPublicKey is returned when a base58 string is not a 32-byte key.
	ErrInvalidPublicKey = errors.New("pda: invalid public key")
)

// PublicKey is a 32-byte account address.
type PublicKey [PublicKeyLength]byte

// ParsePublicKey decodes a base58 address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if s == "" {
		return pk, ErrInvalidPublicKey
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != PublicKeyLength {
		return pk, fmt.Errorf("%w: %d bytes", ErrInvalidPublicKey, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustParsePublicKey is ParsePublicKey for package-level constants.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 encoding.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns the key as a slice.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// Equals compares two keys.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// IsOnCurve reports whether b decodes to a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress hashes seeds with the program ID:
// sha256(seed_0 || ... || seed_n || programID || "ProgramDerivedAddress").
// The last seed is normally the bump. Fails with ErrOnCurve if the result
// could be a regular keypair address.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, ErrMaxSeedLength
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, ErrMaxSeedLength
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var out PublicKey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out[:]) {
		return PublicKey{}, ErrOnCurve
	}
	return out, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return PublicKey{}, 0, ErrMaxSeedLength
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		switch {
		case err == nil:
			return addr, uint8(bump), nil
		case errors.Is(err, ErrOnCurve):
			continue
		default:
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// VerifyProgramAddress checks that addr was derived from seeds and bump.
func VerifyProgramAddress(addr PublicKey, seeds [][]byte, bump uint8, programID PublicKey) bool {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	got, err := CreateProgramAddress(withBump, programID)
	if err != nil {
		return false
	}
	return got.Equals(addr)
}
