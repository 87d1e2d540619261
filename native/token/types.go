package token

import (
	"errors"

	"nftmarket/crypto"
)

var (
	// ProgramID owns mints and holding accounts.
	ProgramID = programID("token")
	// AssociatedProgramID owns the derivation of associated holding addresses.
	AssociatedProgramID = programID("associated-token")

	ErrDecimalsMismatch = errors.New("token: decimals mismatch")
	ErrMintMismatch     = errors.New("token: mint mismatch")
	ErrNonZeroBalance   = errors.New("token: holding balance is not zero")
)

// Mint is the issuance record of a token. A zero MintAuthority means the
// supply is fixed.
type Mint struct {
	Decimals      uint8
	Supply        uint64
	MintAuthority crypto.Address
}

// Holding records the balance of one owner for one mint.
type Holding struct {
	Mint   crypto.Address
	Owner  crypto.Address
	Amount uint64
}
