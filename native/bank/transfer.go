package bank

import (
	"fmt"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

// ProgramID owns every plain wallet account.
var ProgramID = common.ProgramAddress("bank")

func loadOrEmpty(ctx *common.Context, addr crypto.Address) (*types.Account, bool, error) {
	acc, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &types.Account{Owner: ProgramID, Kind: types.KindSystem}, false, nil
	}
	return acc, true, nil
}

// Credit adds lamports to addr, creating a wallet account if none exists.
// Any account may receive lamports.
func Credit(ctx *common.Context, addr crypto.Address, lamports uint64) error {
	acc, _, err := loadOrEmpty(ctx, addr)
	if err != nil {
		return err
	}
	next, err := common.CheckedAdd(acc.Lamports, lamports)
	if err != nil {
		return fmt.Errorf("bank: credit %s: %w", addr, err)
	}
	acc.Lamports = next
	return ctx.State().PutAccount(addr, acc)
}

// Transfer moves lamports between wallets. from must be a bank-owned wallet
// that signed the transaction.
func Transfer(ctx *common.Context, from, to crypto.Address, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	if err := ctx.RequireSigner(from); err != nil {
		return fmt.Errorf("bank: transfer: %w", err)
	}
	src, ok, err := ctx.State().GetAccount(from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bank: transfer from %s: %w", from, common.ErrInsufficientFunds)
	}
	if src.Owner != ProgramID || len(src.Data) != 0 {
		return fmt.Errorf("bank: transfer from %s: %w", from, common.ErrInvalidOwner)
	}
	if src.Lamports < lamports {
		return fmt.Errorf("bank: transfer %d from %s (balance %d): %w", lamports, from, src.Lamports, common.ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	src.Lamports -= lamports
	if err := ctx.State().PutAccount(from, src); err != nil {
		return err
	}
	return Credit(ctx, to, lamports)
}

// CreateAccount allocates addr for owner and funds it with the rent minimum
// for data, paid by payer. Both payer and addr must be signers. An address
// that only holds stray lamports is adopted rather than rejected so nobody can
// block a creation by pre-funding the address.
func CreateAccount(ctx *common.Context, payer, addr, owner crypto.Address, kind types.AccountKind, data []byte) error {
	if err := ctx.RequireSigner(payer); err != nil {
		return fmt.Errorf("bank: create account payer: %w", err)
	}
	if err := ctx.RequireSigner(addr); err != nil {
		return fmt.Errorf("bank: create account %s: %w", addr, err)
	}
	existing, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return err
	}
	var held uint64
	if ok {
		if existing.Owner != ProgramID || existing.Kind != types.KindSystem || len(existing.Data) != 0 {
			return fmt.Errorf("bank: create account %s: %w", addr, common.ErrAlreadyExists)
		}
		held = existing.Lamports
	}
	required := ctx.Rent().MinimumBalance(len(data))
	if held < required {
		if err := Transfer(ctx, payer, addr, required-held); err != nil {
			return fmt.Errorf("bank: fund %s: %w", addr, err)
		}
		held = required
	}
	return ctx.State().PutAccount(addr, &types.Account{
		Lamports: held,
		Owner:    owner,
		Kind:     kind,
		Data:     append([]byte(nil), data...),
	})
}

// WriteData replaces the data of an account owned by the calling program.
func WriteData(ctx *common.Context, addr crypto.Address, data []byte) error {
	acc, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bank: write %s: %w", addr, common.ErrNotFound)
	}
	if acc.Owner != ctx.Program() {
		return fmt.Errorf("bank: write %s: %w", addr, common.ErrInvalidOwner)
	}
	acc.Data = append([]byte(nil), data...)
	return ctx.State().PutAccount(addr, acc)
}

// Close deletes an account owned by the calling program and sends its
// lamports to dest.
func Close(ctx *common.Context, addr, dest crypto.Address) error {
	acc, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bank: close %s: %w", addr, common.ErrNotFound)
	}
	if acc.Owner != ctx.Program() {
		return fmt.Errorf("bank: close %s: %w", addr, common.ErrInvalidOwner)
	}
	if addr == dest {
		return fmt.Errorf("bank: close %s into itself: %w", addr, common.ErrInvalidInstruction)
	}
	if err := ctx.State().DeleteAccount(addr); err != nil {
		return err
	}
	return Credit(ctx, dest, acc.Lamports)
}

// Balance returns the lamports held by addr, zero when absent.
func Balance(ctx *common.Context, addr crypto.Address) (uint64, error) {
	acc, _, err := loadOrEmpty(ctx, addr)
	if err != nil {
		return 0, err
	}
	return acc.Lamports, nil
}
