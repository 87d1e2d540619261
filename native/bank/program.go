package bank

import (
	"nftmarket/core/events"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	opTransfer byte = 0x01
)

// TransferArgs is the payload of a transfer instruction.
type TransferArgs struct {
	Lamports uint64
}

// Program dispatches bank instructions.
type Program struct{}

func NewProgram() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }
func (*Program) Name() string       { return "bank" }

func (*Program) Describe(data []byte) string {
	if len(data) > 0 && data[0] == opTransfer {
		return "transfer"
	}
	return "unknown"
}

// Execute handles transfer. Accounts: [from, to].
func (*Program) Execute(ctx *common.Context, accounts []crypto.Address, data []byte) error {
	op, payload, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch op {
	case opTransfer:
		if err := common.RequireAccounts(accounts, 2); err != nil {
			return err
		}
		var args TransferArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		if err := Transfer(ctx, accounts[0], accounts[1], args.Lamports); err != nil {
			return err
		}
		ctx.Emit(events.Transfer{From: accounts[0], To: accounts[1], Lamports: args.Lamports}.Event())
		return nil
	default:
		return common.ErrInvalidInstruction
	}
}
