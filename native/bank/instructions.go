package bank

import (
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

// NewTransferInstruction moves lamports from a signing wallet.
func NewTransferInstruction(from, to crypto.Address, lamports uint64) (types.Instruction, error) {
	data, err := common.EncodeInstruction(opTransfer, &TransferArgs{Lamports: lamports})
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{
		Program:  ProgramID,
		Accounts: []crypto.Address{from, to},
		Data:     data,
	}, nil
}
