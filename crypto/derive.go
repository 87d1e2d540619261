package crypto

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seeds, bump included.
	MaxSeeds = 16
	// MaxSeedLength bounds each individual seed.
	MaxSeedLength = 32
)

var (
	ErrInvalidSeeds  = errors.New("crypto: seeds derive an on-curve address")
	ErrSeedTooLong   = errors.New("crypto: seed exceeds maximum length")
	ErrTooManySeeds  = errors.New("crypto: too many seeds")
	ErrNoViableBump  = errors.New("crypto: no viable bump for seeds")
	derivedAddrLabel = []byte("ProgramDerivedAddress")
)

// IsOnCurve reports whether b is the x-coordinate of a secp256k1 point, i.e.
// whether some private key could control the address.
func IsOnCurve(b []byte) bool {
	if len(b) != AddressLength {
		return false
	}
	compressed := make([]byte, 0, AddressLength+1)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, b...)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}

// CreateProgramAddress derives the address owned by program for the exact seed
// list. Results that fall on the curve are rejected.
func CreateProgramAddress(seeds [][]byte, program Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrTooManySeeds
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, ErrSeedTooLong
		}
		parts = append(parts, seed)
	}
	parts = append(parts, program[:], derivedAddrLabel)
	digest := crypto.Keccak256(parts...)
	if IsOnCurve(digest) {
		return Address{}, ErrInvalidSeeds
	}
	var addr Address
	copy(addr[:], digest)
	return addr, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first
// off-curve derived address along with its bump.
func FindProgramAddress(seeds [][]byte, program Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		switch {
		case err == nil:
			return addr, uint8(bump), nil
		case errors.Is(err, ErrInvalidSeeds):
			continue
		default:
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// VerifyProgramAddress recomputes the derived address from seeds and a stored
// bump and reports whether it equals expected.
func VerifyProgramAddress(expected Address, seeds [][]byte, bump uint8, program Address) bool {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	withBump[len(seeds)] = []byte{bump}
	addr, err := CreateProgramAddress(withBump, program)
	if err != nil {
		return false
	}
	return addr == expected
}
