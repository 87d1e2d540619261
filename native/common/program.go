package common

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/crypto"
)

// Program is a native program the runtime can dispatch instructions to.
type Program interface {
	ID() crypto.Address
	Name() string
	// Execute runs one instruction. accounts is the instruction's ordered
	// account list; data starts with an opcode byte followed by an RLP payload.
	Execute(ctx *Context, accounts []crypto.Address, data []byte) error
	// Describe names the instruction encoded in data for logs and metrics.
	Describe(data []byte) string
}

// ProgramAddress derives a fixed program identifier from its name.
func ProgramAddress(name string) crypto.Address {
	return crypto.MustAddress(crypto.Keccak256([]byte("nftmarket/program/" + name)))
}

// EncodeInstruction serialises an opcode and payload.
func EncodeInstruction(op byte, payload interface{}) ([]byte, error) {
	if payload == nil {
		return []byte{op}, nil
	}
	body, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	return append([]byte{op}, body...), nil
}

// SplitInstruction separates the opcode from the payload.
func SplitInstruction(data []byte) (byte, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty instruction data", ErrInvalidInstruction)
	}
	return data[0], data[1:], nil
}

// DecodePayload decodes an RLP payload into out.
func DecodePayload(payload []byte, out interface{}) error {
	if err := rlp.DecodeBytes(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	return nil
}

// RequireAccounts fails unless at least n accounts were supplied.
func RequireAccounts(accounts []crypto.Address, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: expected %d accounts, got %d", ErrInvalidInstruction, n, len(accounts))
	}
	return nil
}

// ExpectAddress fails with ErrAddressMismatch when provided differs from want.
func ExpectAddress(label string, provided, want crypto.Address) error {
	if provided != want {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrAddressMismatch, label, provided, want)
	}
	return nil
}

// DecodeRecord decodes account data into out.
func DecodeRecord(data []byte, out interface{}) error {
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	return nil
}

// EncodeRecord encodes a typed record for account data.
func EncodeRecord(record interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(record)
}
