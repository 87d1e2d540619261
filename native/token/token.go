package token

import (
	"fmt"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
)

func programID(name string) crypto.Address { return common.ProgramAddress(name) }

// AssociatedAddress derives the canonical holding address of owner for mint.
func AssociatedAddress(owner, mint crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(associatedSeeds(owner, mint), AssociatedProgramID)
}

func associatedSeeds(owner, mint crypto.Address) [][]byte {
	return [][]byte{owner.Bytes(), ProgramID.Bytes(), mint.Bytes()}
}

func loadTokenAccount(ctx *common.Context, addr crypto.Address, kind types.AccountKind, out interface{}) (*types.Account, error) {
	acc, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("token: %s %s: %w", kind, addr, common.ErrNotFound)
	}
	if acc.Owner != ProgramID || acc.Kind != kind {
		return nil, fmt.Errorf("token: %s %s: %w", kind, addr, common.ErrInvalidOwner)
	}
	if err := common.DecodeRecord(acc.Data, out); err != nil {
		return nil, err
	}
	return acc, nil
}

func storeRecord(ctx *common.Context, addr crypto.Address, acc *types.Account, record interface{}) error {
	data, err := common.EncodeRecord(record)
	if err != nil {
		return err
	}
	acc.Data = data
	return ctx.State().PutAccount(addr, acc)
}

// GetMint loads a mint record.
func GetMint(ctx *common.Context, addr crypto.Address) (*Mint, error) {
	mint := new(Mint)
	if _, err := loadTokenAccount(ctx, addr, types.KindMint, mint); err != nil {
		return nil, err
	}
	return mint, nil
}

// GetHolding loads a holding record.
func GetHolding(ctx *common.Context, addr crypto.Address) (*Holding, error) {
	holding := new(Holding)
	if _, err := loadTokenAccount(ctx, addr, types.KindHolding, holding); err != nil {
		return nil, err
	}
	return holding, nil
}

// InitializeMint creates a mint at addr, which must be a signer, paid by payer.
func InitializeMint(ctx *common.Context, payer, addr crypto.Address, decimals uint8, authority crypto.Address) error {
	data, err := common.EncodeRecord(&Mint{Decimals: decimals, MintAuthority: authority})
	if err != nil {
		return err
	}
	if err := bank.CreateAccount(ctx, payer, addr, ProgramID, types.KindMint, data); err != nil {
		return fmt.Errorf("token: initialize mint: %w", err)
	}
	return nil
}

// CreateAssociated creates the associated holding of owner for mint and fails
// if one already exists.
func CreateAssociated(ctx *common.Context, payer, owner, mint crypto.Address) (crypto.Address, error) {
	return createAssociated(ctx, payer, owner, mint, false)
}

// CreateAssociatedIdempotent returns the existing associated holding when it is
// already in place and creates it otherwise.
func CreateAssociatedIdempotent(ctx *common.Context, payer, owner, mint crypto.Address) (crypto.Address, error) {
	return createAssociated(ctx, payer, owner, mint, true)
}

func createAssociated(ctx *common.Context, payer, owner, mint crypto.Address, idempotent bool) (crypto.Address, error) {
	addr, bump, err := AssociatedAddress(owner, mint)
	if err != nil {
		return crypto.Address{}, err
	}
	if _, err := GetMint(ctx, mint); err != nil {
		return crypto.Address{}, err
	}
	if idempotent {
		existing, ok, err := ctx.State().GetAccount(addr)
		if err != nil {
			return crypto.Address{}, err
		}
		if ok && existing.Owner == ProgramID && existing.Kind == types.KindHolding {
			holding := new(Holding)
			if err := common.DecodeRecord(existing.Data, holding); err != nil {
				return crypto.Address{}, err
			}
			if holding.Owner != owner || holding.Mint != mint {
				return crypto.Address{}, fmt.Errorf("token: associated holding %s: %w", addr, common.ErrAddressMismatch)
			}
			return addr, nil
		}
	}
	assoc, err := ctx.Invoke(AssociatedProgramID)
	if err != nil {
		return crypto.Address{}, err
	}
	sys, err := assoc.Invoke(bank.ProgramID, common.SeedsWithBump(associatedSeeds(owner, mint), bump))
	if err != nil {
		return crypto.Address{}, err
	}
	data, err := common.EncodeRecord(&Holding{Mint: mint, Owner: owner})
	if err != nil {
		return crypto.Address{}, err
	}
	if err := bank.CreateAccount(sys, payer, addr, ProgramID, types.KindHolding, data); err != nil {
		return crypto.Address{}, fmt.Errorf("token: create associated holding: %w", err)
	}
	return addr, nil
}

// MintTo issues amount new units of mint into dest. The mint authority signs.
func MintTo(ctx *common.Context, mintAddr, dest crypto.Address, amount uint64) error {
	mint := new(Mint)
	mintAcc, err := loadTokenAccount(ctx, mintAddr, types.KindMint, mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority.IsZero() {
		return fmt.Errorf("token: mint %s has fixed supply: %w", mintAddr, common.ErrUnauthorized)
	}
	if err := ctx.RequireSigner(mint.MintAuthority); err != nil {
		return fmt.Errorf("token: mint to: %w", err)
	}
	holding := new(Holding)
	holdingAcc, err := loadTokenAccount(ctx, dest, types.KindHolding, holding)
	if err != nil {
		return err
	}
	if holding.Mint != mintAddr {
		return ErrMintMismatch
	}
	if mint.Supply, err = common.CheckedAdd(mint.Supply, amount); err != nil {
		return err
	}
	if holding.Amount, err = common.CheckedAdd(holding.Amount, amount); err != nil {
		return err
	}
	if err := storeRecord(ctx, mintAddr, mintAcc, mint); err != nil {
		return err
	}
	return storeRecord(ctx, dest, holdingAcc, holding)
}

// TransferChecked moves amount units of mint from one holding to another. The
// caller must state the mint's decimals; authority must own the source
// holding and sign.
func TransferChecked(ctx *common.Context, from, mintAddr, to, authority crypto.Address, amount uint64, decimals uint8) error {
	mint, err := GetMint(ctx, mintAddr)
	if err != nil {
		return err
	}
	if mint.Decimals != decimals {
		return fmt.Errorf("%w: mint has %d, caller stated %d", ErrDecimalsMismatch, mint.Decimals, decimals)
	}
	src := new(Holding)
	srcAcc, err := loadTokenAccount(ctx, from, types.KindHolding, src)
	if err != nil {
		return err
	}
	dst := new(Holding)
	dstAcc, err := loadTokenAccount(ctx, to, types.KindHolding, dst)
	if err != nil {
		return err
	}
	if src.Mint != mintAddr || dst.Mint != mintAddr {
		return ErrMintMismatch
	}
	if src.Owner != authority {
		return fmt.Errorf("token: %s does not own holding %s: %w", authority, from, common.ErrUnauthorized)
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return fmt.Errorf("token: transfer: %w", err)
	}
	if src.Amount < amount {
		return fmt.Errorf("token: transfer %d from %s (balance %d): %w", amount, from, src.Amount, common.ErrInsufficientBalance)
	}
	if from == to || amount == 0 {
		return nil
	}
	src.Amount -= amount
	if dst.Amount, err = common.CheckedAdd(dst.Amount, amount); err != nil {
		return err
	}
	if err := storeRecord(ctx, from, srcAcc, src); err != nil {
		return err
	}
	return storeRecord(ctx, to, dstAcc, dst)
}

// CloseHolding deletes an empty holding and sends its rent lamports to dest.
func CloseHolding(ctx *common.Context, addr, dest, authority crypto.Address) error {
	holding := new(Holding)
	acc, err := loadTokenAccount(ctx, addr, types.KindHolding, holding)
	if err != nil {
		return err
	}
	if holding.Owner != authority {
		return fmt.Errorf("token: close %s: %w", addr, common.ErrUnauthorized)
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return fmt.Errorf("token: close: %w", err)
	}
	if holding.Amount != 0 {
		return ErrNonZeroBalance
	}
	if addr == dest {
		return fmt.Errorf("token: close %s into itself: %w", addr, common.ErrInvalidInstruction)
	}
	if err := ctx.State().DeleteAccount(addr); err != nil {
		return err
	}
	return bank.Credit(ctx, dest, acc.Lamports)
}

// SetMintAuthority hands mint authority from the current signer to next.
func SetMintAuthority(ctx *common.Context, mintAddr, next crypto.Address) error {
	mint := new(Mint)
	acc, err := loadTokenAccount(ctx, mintAddr, types.KindMint, mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority.IsZero() {
		return fmt.Errorf("token: mint %s has fixed supply: %w", mintAddr, common.ErrUnauthorized)
	}
	if err := ctx.RequireSigner(mint.MintAuthority); err != nil {
		return fmt.Errorf("token: set authority: %w", err)
	}
	mint.MintAuthority = next
	return storeRecord(ctx, mintAddr, acc, mint)
}
