package token

import (
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

func instruction(op byte, payload interface{}, accounts ...crypto.Address) (types.Instruction, error) {
	data, err := common.EncodeInstruction(op, payload)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{Program: ProgramID, Accounts: accounts, Data: data}, nil
}

// NewInitializeMintInstruction creates a mint. Both payer and mint sign.
func NewInitializeMintInstruction(payer, mint crypto.Address, decimals uint8, authority crypto.Address) (types.Instruction, error) {
	return instruction(opInitializeMint, &InitializeMintArgs{Decimals: decimals, Authority: authority}, payer, mint)
}

// NewCreateAssociatedInstruction creates the associated holding of owner for
// mint. The holding address is derived here.
func NewCreateAssociatedInstruction(payer, owner, mint crypto.Address, idempotent bool) (types.Instruction, error) {
	holding, _, err := AssociatedAddress(owner, mint)
	if err != nil {
		return types.Instruction{}, err
	}
	op := opCreateAssociated
	if idempotent {
		op = opCreateAssociatedIdem
	}
	return instruction(op, nil, payer, holding, owner, mint)
}

// NewMintToInstruction issues amount units into dest. The mint authority must
// sign the transaction.
func NewMintToInstruction(mint, dest crypto.Address, amount uint64) (types.Instruction, error) {
	return instruction(opMintTo, &AmountArgs{Amount: amount}, mint, dest)
}

// NewTransferCheckedInstruction moves tokens between holdings.
func NewTransferCheckedInstruction(from, mint, to, authority crypto.Address, amount uint64, decimals uint8) (types.Instruction, error) {
	return instruction(opTransferChecked, &TransferCheckedArgs{Amount: amount, Decimals: decimals}, from, mint, to, authority)
}

// NewCloseHoldingInstruction closes an empty holding.
func NewCloseHoldingInstruction(holding, dest, authority crypto.Address) (types.Instruction, error) {
	return instruction(opCloseHolding, nil, holding, dest, authority)
}
