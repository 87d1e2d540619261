package common

import "errors"

// Failure classes shared by every native program. Programs wrap these with
// context; callers match them with errors.Is.
var (
	ErrAddressMismatch     = errors.New("address mismatch")
	ErrAlreadyExists       = errors.New("account already exists")
	ErrNotFound            = errors.New("account not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingSignature    = errors.New("missing required signature")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrInvalidOwner        = errors.New("account owned by unexpected program")
	ErrInvalidAccountData  = errors.New("invalid account data")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvokeDepth         = errors.New("cross-program invocation too deep")
)
