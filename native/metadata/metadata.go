package metadata

import (
	"fmt"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/native/token"
)

func metadataSeeds(mint crypto.Address) [][]byte {
	return [][]byte{seedPrefix, ProgramID.Bytes(), mint.Bytes()}
}

func editionSeeds(mint crypto.Address) [][]byte {
	return append(metadataSeeds(mint), seedEdition)
}

// MetadataAddress derives the metadata record address of mint.
func MetadataAddress(mint crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(metadataSeeds(mint), ProgramID)
}

// EditionAddress derives the master edition address of mint.
func EditionAddress(mint crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(editionSeeds(mint), ProgramID)
}

// enter returns a context executing as the metadata program.
func enter(ctx *common.Context) (*common.Context, error) {
	if ctx.Program() == ProgramID {
		return ctx, nil
	}
	return ctx.Invoke(ProgramID)
}

func load(ctx *common.Context, addr crypto.Address, kind types.AccountKind, out interface{}) (*types.Account, error) {
	acc, ok, err := ctx.State().GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metadata: %s %s: %w", kind, addr, common.ErrNotFound)
	}
	if acc.Owner != ProgramID || acc.Kind != kind {
		return nil, fmt.Errorf("metadata: %s %s: %w", kind, addr, common.ErrInvalidOwner)
	}
	if err := common.DecodeRecord(acc.Data, out); err != nil {
		return nil, err
	}
	return acc, nil
}

// Get loads the metadata record of mint.
func Get(ctx *common.Context, mint crypto.Address) (*Metadata, error) {
	addr, _, err := MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	return GetAt(ctx, addr)
}

// GetAt loads a metadata record by address.
func GetAt(ctx *common.Context, addr crypto.Address) (*Metadata, error) {
	record := new(Metadata)
	if _, err := load(ctx, addr, types.KindMetadata, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetEditionAt loads a master edition record by address.
func GetEditionAt(ctx *common.Context, addr crypto.Address) (*MasterEdition, error) {
	record := new(MasterEdition)
	if _, err := load(ctx, addr, types.KindMasterEdition, record); err != nil {
		return nil, err
	}
	return record, nil
}

// CreateArgs describes a new metadata record.
type CreateArgs struct {
	Name            string
	Symbol          string
	URI             string
	UpdateAuthority crypto.Address
	// Collection is the collection mint the asset claims membership of. The
	// claim starts unverified.
	Collection *crypto.Address `rlp:"nil"`
}

func (a *CreateArgs) validate() error {
	switch {
	case len(a.Name) > MaxNameLength:
		return fmt.Errorf("%w: name", ErrFieldTooLong)
	case len(a.Symbol) > MaxSymbolLength:
		return fmt.Errorf("%w: symbol", ErrFieldTooLong)
	case len(a.URI) > MaxURILength:
		return fmt.Errorf("%w: uri", ErrFieldTooLong)
	}
	return nil
}

// CreateMetadata attaches a metadata record to mint. The mint authority signs.
func CreateMetadata(ctx *common.Context, payer, mint crypto.Address, args *CreateArgs) (crypto.Address, error) {
	if err := args.validate(); err != nil {
		return crypto.Address{}, err
	}
	mintRecord, err := token.GetMint(ctx, mint)
	if err != nil {
		return crypto.Address{}, err
	}
	if err := ctx.RequireSigner(mintRecord.MintAuthority); err != nil {
		return crypto.Address{}, fmt.Errorf("metadata: create: %w", err)
	}
	addr, bump, err := MetadataAddress(mint)
	if err != nil {
		return crypto.Address{}, err
	}
	record := &Metadata{
		Mint:            mint,
		UpdateAuthority: args.UpdateAuthority,
		Name:            args.Name,
		Symbol:          args.Symbol,
		URI:             args.URI,
	}
	if args.Collection != nil {
		record.Collection = &Collection{Key: *args.Collection}
	}
	if err := create(ctx, payer, addr, common.SeedsWithBump(metadataSeeds(mint), bump), types.KindMetadata, record); err != nil {
		return crypto.Address{}, err
	}
	return addr, nil
}

// CreateMasterEdition marks mint as a unique original and moves its mint
// authority to the edition address.
func CreateMasterEdition(ctx *common.Context, payer, mint crypto.Address, maxSupply uint64) (crypto.Address, error) {
	mintRecord, err := token.GetMint(ctx, mint)
	if err != nil {
		return crypto.Address{}, err
	}
	if mintRecord.Supply != 1 || mintRecord.Decimals != 0 {
		return crypto.Address{}, fmt.Errorf("%w: supply %d decimals %d", ErrNotUniqueAsset, mintRecord.Supply, mintRecord.Decimals)
	}
	if _, err := Get(ctx, mint); err != nil {
		return crypto.Address{}, err
	}
	addr, bump, err := EditionAddress(mint)
	if err != nil {
		return crypto.Address{}, err
	}
	record := &MasterEdition{Mint: mint, Supply: 0, MaxSupply: maxSupply}
	if err := create(ctx, payer, addr, common.SeedsWithBump(editionSeeds(mint), bump), types.KindMasterEdition, record); err != nil {
		return crypto.Address{}, err
	}
	if err := token.SetMintAuthority(ctx, mint, addr); err != nil {
		return crypto.Address{}, err
	}
	return addr, nil
}

func create(ctx *common.Context, payer, addr crypto.Address, seeds [][]byte, kind types.AccountKind, record interface{}) error {
	data, err := common.EncodeRecord(record)
	if err != nil {
		return err
	}
	self, err := enter(ctx)
	if err != nil {
		return err
	}
	sys, err := self.Invoke(bank.ProgramID, seeds)
	if err != nil {
		return err
	}
	if err := bank.CreateAccount(sys, payer, addr, ProgramID, kind, data); err != nil {
		return fmt.Errorf("metadata: create %s: %w", kind, err)
	}
	return nil
}

// VerifyCollection marks the collection claim of the asset at metadataAddr as
// verified. authority must be the update authority of the collection's own
// metadata record and sign.
func VerifyCollection(ctx *common.Context, metadataAddr, collectionMint, authority crypto.Address) error {
	return setVerified(ctx, metadataAddr, collectionMint, authority, true)
}

// UnverifyCollection clears a verified collection claim.
func UnverifyCollection(ctx *common.Context, metadataAddr, collectionMint, authority crypto.Address) error {
	return setVerified(ctx, metadataAddr, collectionMint, authority, false)
}

func setVerified(ctx *common.Context, metadataAddr, collectionMint, authority crypto.Address, verified bool) error {
	record := new(Metadata)
	acc, err := load(ctx, metadataAddr, types.KindMetadata, record)
	if err != nil {
		return err
	}
	if record.Collection == nil {
		return ErrNoCollection
	}
	if record.Collection.Key != collectionMint {
		return fmt.Errorf("%w: asset claims %s, got %s", ErrCollectionMismatch, record.Collection.Key, collectionMint)
	}
	collection, err := Get(ctx, collectionMint)
	if err != nil {
		return fmt.Errorf("metadata: collection %s: %w", collectionMint, err)
	}
	if collection.UpdateAuthority != authority {
		return fmt.Errorf("metadata: %s is not the collection authority: %w", authority, common.ErrUnauthorized)
	}
	if err := ctx.RequireSigner(authority); err != nil {
		return fmt.Errorf("metadata: verify collection: %w", err)
	}
	record.Collection.Verified = verified
	data, err := common.EncodeRecord(record)
	if err != nil {
		return err
	}
	acc.Data = data
	return ctx.State().PutAccount(metadataAddr, acc)
}
