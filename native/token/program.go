package token

import (
	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	opInitializeMint       byte = 0x01
	opCreateAssociated     byte = 0x02
	opCreateAssociatedIdem byte = 0x03
	opMintTo               byte = 0x04
	opTransferChecked      byte = 0x05
	opCloseHolding         byte = 0x06
)

// InitializeMintArgs is the payload of an initialize-mint instruction.
type InitializeMintArgs struct {
	Decimals  uint8
	Authority crypto.Address
}

// AmountArgs carries a token amount.
type AmountArgs struct {
	Amount uint64
}

// TransferCheckedArgs carries an amount plus the decimals the sender expects.
type TransferCheckedArgs struct {
	Amount   uint64
	Decimals uint8
}

var opNames = map[byte]string{
	opInitializeMint:       "initialize_mint",
	opCreateAssociated:     "create_associated",
	opCreateAssociatedIdem: "create_associated_idempotent",
	opMintTo:               "mint_to",
	opTransferChecked:      "transfer_checked",
	opCloseHolding:         "close_holding",
}

// Program dispatches token instructions.
type Program struct{}

func NewProgram() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }
func (*Program) Name() string       { return "token" }

func (*Program) Describe(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	if name, ok := opNames[data[0]]; ok {
		return name
	}
	return "unknown"
}

// Execute decodes and runs a token instruction.
//
//	initialize_mint:   [payer, mint]
//	create_associated: [payer, holding, owner, mint]
//	mint_to:           [mint, dest]
//	transfer_checked:  [from, mint, to, authority]
//	close_holding:     [holding, dest, authority]
func (*Program) Execute(ctx *common.Context, accounts []crypto.Address, data []byte) error {
	op, payload, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch op {
	case opInitializeMint:
		if err := common.RequireAccounts(accounts, 2); err != nil {
			return err
		}
		var args InitializeMintArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		return InitializeMint(ctx, accounts[0], accounts[1], args.Decimals, args.Authority)
	case opCreateAssociated, opCreateAssociatedIdem:
		if err := common.RequireAccounts(accounts, 4); err != nil {
			return err
		}
		want, _, err := AssociatedAddress(accounts[2], accounts[3])
		if err != nil {
			return err
		}
		if err := common.ExpectAddress("holding", accounts[1], want); err != nil {
			return err
		}
		if op == opCreateAssociatedIdem {
			_, err = CreateAssociatedIdempotent(ctx, accounts[0], accounts[2], accounts[3])
		} else {
			_, err = CreateAssociated(ctx, accounts[0], accounts[2], accounts[3])
		}
		return err
	case opMintTo:
		if err := common.RequireAccounts(accounts, 2); err != nil {
			return err
		}
		var args AmountArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		return MintTo(ctx, accounts[0], accounts[1], args.Amount)
	case opTransferChecked:
		if err := common.RequireAccounts(accounts, 4); err != nil {
			return err
		}
		var args TransferCheckedArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		return TransferChecked(ctx, accounts[0], accounts[1], accounts[2], accounts[3], args.Amount, args.Decimals)
	case opCloseHolding:
		if err := common.RequireAccounts(accounts, 3); err != nil {
			return err
		}
		return CloseHolding(ctx, accounts[0], accounts[1], accounts[2])
	default:
		return common.ErrInvalidInstruction
	}
}
