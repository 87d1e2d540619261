package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/crypto"
)

// MaxInstructions bounds the number of instructions carried by one transaction.
const MaxInstructions = 16

var (
	ErrNoInstructions    = errors.New("transaction has no instructions")
	ErrTooManyInstr      = errors.New("transaction carries too many instructions")
	ErrMissingSignatures = errors.New("transaction is not signed")
	ErrDuplicateSigner   = errors.New("transaction signed twice by the same key")
)

// Instruction invokes one program. Accounts lists, in program-defined order,
// every address the program may read or write; the runtime rejects access to
// anything else and locks these addresses for the duration of the transaction.
type Instruction struct {
	Program  crypto.Address   `json:"program"`
	Accounts []crypto.Address `json:"accounts"`
	Data     []byte           `json:"data"`
}

// Transaction groups instructions that commit or fail together.
type Transaction struct {
	Payer        crypto.Address `json:"payer"`
	Nonce        uint64         `json:"nonce"`
	Instructions []Instruction  `json:"instructions"`
	Signatures   [][]byte       `json:"signatures"`

	signers []crypto.Address
}

type unsignedTx struct {
	Payer        crypto.Address
	Nonce        uint64
	Instructions []Instruction
}

// Hash returns the keccak256 digest of the transaction without signatures.
func (tx *Transaction) Hash() ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&unsignedTx{Payer: tx.Payer, Nonce: tx.Nonce, Instructions: tx.Instructions})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// Sign appends a signature produced by key.
func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := key.Sign(hash)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	tx.signers = nil
	return nil
}

// Signers recovers the addresses behind every signature in order.
func (tx *Transaction) Signers() ([]crypto.Address, error) {
	if tx.signers != nil {
		return tx.signers, nil
	}
	if len(tx.Signatures) == 0 {
		return nil, ErrMissingSignatures
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	seen := make(map[crypto.Address]struct{}, len(tx.Signatures))
	signers := make([]crypto.Address, 0, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		addr, err := crypto.RecoverAddress(hash, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, ErrDuplicateSigner
		}
		seen[addr] = struct{}{}
		signers = append(signers, addr)
	}
	tx.signers = signers
	return signers, nil
}

// ValidateBasic performs stateless checks.
func (tx *Transaction) ValidateBasic() error {
	if len(tx.Instructions) == 0 {
		return ErrNoInstructions
	}
	if len(tx.Instructions) > MaxInstructions {
		return ErrTooManyInstr
	}
	if len(tx.Signatures) == 0 {
		return ErrMissingSignatures
	}
	return nil
}

// Encode returns the RLP wire form including signatures.
func (tx *Transaction) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// DecodeTransaction parses the RLP wire form.
func DecodeTransaction(data []byte) (*Transaction, error) {
	tx := new(Transaction)
	if err := rlp.DecodeBytes(data, tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}
