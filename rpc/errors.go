package rpc

import (
	"errors"

	"nftmarket/core"
	"nftmarket/core/types"
	"nftmarket/native/common"
	"nftmarket/native/marketplace"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

// Ledger failures carry stable codes so clients can branch without parsing
// messages.
const (
	codeAddressMismatch      = -32031
	codeTxUnauthorized       = -32032
	codeUnverifiedCollection = -32033
	codeInsufficientFunds    = -32034
	codeBadNonce             = -32035
)

type errorMapping struct {
	target error
	code   int
	reason string
}

// Order matters: the first match wins, so narrower errors come first.
var errorTable = []errorMapping{
	{marketplace.ErrNotInitialized, codeNotFound, "not_initialized"},
	{marketplace.ErrListingNotFound, codeNotFound, "listing_not_found"},
	{common.ErrNotFound, codeNotFound, "not_found"},
	{common.ErrAlreadyExists, codeAlreadyExists, "already_exists"},
	{common.ErrAddressMismatch, codeAddressMismatch, "address_mismatch"},
	{marketplace.ErrUnverifiedCollection, codeUnverifiedCollection, "unverified_collection"},
	{common.ErrUnauthorized, codeTxUnauthorized, "unauthorized"},
	{common.ErrMissingSignature, codeTxUnauthorized, "missing_signature"},
	{core.ErrPayerNotSigner, codeTxUnauthorized, "payer_not_signer"},
	{common.ErrInsufficientFunds, codeInsufficientFunds, "insufficient_funds"},
	{common.ErrInsufficientBalance, codeInsufficientFunds, "insufficient_balance"},
	{core.ErrBadNonce, codeBadNonce, "bad_nonce"},
	{core.ErrUnknownProgram, codeInvalidParams, "unknown_program"},
	{types.ErrNoInstructions, codeInvalidParams, "no_instructions"},
	{types.ErrTooManyInstr, codeInvalidParams, "too_many_instructions"},
	{types.ErrMissingSignatures, codeInvalidParams, "unsigned"},
	{types.ErrDuplicateSigner, codeInvalidParams, "duplicate_signer"},
	{marketplace.ErrInvalidName, codeInvalidParams, "invalid_name"},
	{marketplace.ErrFeeOutOfRange, codeInvalidParams, "fee_out_of_range"},
	{metadata.ErrFieldTooLong, codeInvalidParams, "field_too_long"},
	{metadata.ErrNotUniqueAsset, codeInvalidParams, "not_unique_asset"},
	{metadata.ErrCollectionMismatch, codeInvalidParams, "collection_mismatch"},
	{metadata.ErrNoCollection, codeInvalidParams, "no_collection"},
	{token.ErrDecimalsMismatch, codeInvalidParams, "decimals_mismatch"},
	{token.ErrMintMismatch, codeInvalidParams, "mint_mismatch"},
	{token.ErrNonZeroBalance, codeInvalidParams, "non_zero_balance"},
	{common.ErrInvalidOwner, codeTxRejected, "invalid_owner"},
	{common.ErrInvalidInstruction, codeInvalidParams, "invalid_instruction"},
	{common.ErrArithmeticOverflow, codeTxRejected, "arithmetic_overflow"},
}

// ledgerError converts an execution or query failure into an RPC error.
func ledgerError(err error) *RPCError {
	data := map[string]string{"error": err.Error()}
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			data["reason"] = m.reason
			return &RPCError{Code: m.code, Message: m.reason, Data: data}
		}
	}
	return &RPCError{Code: codeTxRejected, Message: "transaction rejected", Data: data}
}

func internalError(err error) *RPCError {
	return &RPCError{Code: codeServerError, Message: "internal error", Data: err.Error()}
}

func invalidParams(message string, data interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: message, Data: data}
}
