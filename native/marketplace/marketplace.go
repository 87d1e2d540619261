package marketplace

import (
	"errors"
	"fmt"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

// InitializeAccounts lists the accounts an initialize instruction touches.
type InitializeAccounts struct {
	Admin       crypto.Address
	Marketplace crypto.Address
	Treasury    crypto.Address
	RewardsMint crypto.Address
}

// ListAccounts lists the accounts a list instruction touches.
type ListAccounts struct {
	Seller         crypto.Address
	Marketplace    crypto.Address
	Mint           crypto.Address
	SellerHolding  crypto.Address
	Listing        crypto.Address
	Vault          crypto.Address
	CollectionMint crypto.Address
	Metadata       crypto.Address
	MasterEdition  crypto.Address
}

// DelistAccounts lists the accounts a delist instruction touches.
type DelistAccounts struct {
	Seller        crypto.Address
	Marketplace   crypto.Address
	Mint          crypto.Address
	SellerHolding crypto.Address
	Listing       crypto.Address
	Vault         crypto.Address
}

// PurchaseAccounts lists the accounts a purchase instruction touches.
type PurchaseAccounts struct {
	Buyer        crypto.Address
	Seller       crypto.Address
	Marketplace  crypto.Address
	Mint         crypto.Address
	BuyerHolding crypto.Address
	Listing      crypto.Address
	Vault        crypto.Address
	Treasury     crypto.Address
}

// enter returns a context executing as the marketplace program.
func enter(ctx *common.Context) (*common.Context, error) {
	if ctx.Program() == ProgramID {
		return ctx, nil
	}
	return ctx.Invoke(ProgramID)
}

// Initialize creates the marketplace named name with admin as its
// administrator and payer, together with its reward mint.
func Initialize(ctx *common.Context, accts InitializeAccounts, name string, feeBps uint16) (*Marketplace, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if feeBps > MaxFeeBps {
		return nil, fmt.Errorf("%w: %d", ErrFeeOutOfRange, feeBps)
	}
	if err := ctx.RequireSigner(accts.Admin); err != nil {
		return nil, fmt.Errorf("marketplace: initialize: %w", err)
	}
	self, err := enter(ctx)
	if err != nil {
		return nil, err
	}
	marketAddr, bump, err := MarketplaceAddress(name)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("marketplace", accts.Marketplace, marketAddr); err != nil {
		return nil, err
	}
	treasuryAddr, treasuryBump, err := TreasuryAddress(marketAddr)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("treasury", accts.Treasury, treasuryAddr); err != nil {
		return nil, err
	}
	rewardsAddr, rewardsBump, err := RewardsMintAddress(marketAddr)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("rewards mint", accts.RewardsMint, rewardsAddr); err != nil {
		return nil, err
	}

	record := &Marketplace{
		Admin:        accts.Admin,
		FeeBps:       feeBps,
		Bump:         bump,
		TreasuryBump: treasuryBump,
		RewardsBump:  rewardsBump,
		Name:         name,
	}
	data, err := common.EncodeRecord(record)
	if err != nil {
		return nil, err
	}
	sys, err := self.Invoke(bank.ProgramID, common.SeedsWithBump(marketplaceSeeds(name), bump))
	if err != nil {
		return nil, err
	}
	if err := bank.CreateAccount(sys, accts.Admin, marketAddr, ProgramID, types.KindMarketplace, data); err != nil {
		return nil, fmt.Errorf("marketplace %q: %w", name, err)
	}
	tok, err := self.Invoke(token.ProgramID, common.SeedsWithBump(rewardsSeeds(marketAddr), rewardsBump))
	if err != nil {
		return nil, err
	}
	if err := token.InitializeMint(tok, accts.Admin, rewardsAddr, RewardDecimals, marketAddr); err != nil {
		return nil, fmt.Errorf("marketplace %q rewards mint: %w", name, err)
	}
	self.Emit(NewInitializedEvent(marketAddr, record))
	return record, nil
}

// loadVerifiedMarketplace loads the marketplace at addr and checks the address
// re-derives from its stored name and bump.
func loadVerifiedMarketplace(ctx *common.Context, addr crypto.Address) (*Marketplace, error) {
	record, err := readMarketplace(ctx.State(), addr)
	if err != nil {
		return nil, err
	}
	if !crypto.VerifyProgramAddress(addr, marketplaceSeeds(record.Name), record.Bump, ProgramID) {
		return nil, fmt.Errorf("%w: marketplace %s does not derive from %q", common.ErrAddressMismatch, addr, record.Name)
	}
	return record, nil
}

// loadVerifiedListing loads the listing at addr and checks the address
// re-derives from (market, mint) with the stored bump.
func loadVerifiedListing(ctx *common.Context, addr, market, mint crypto.Address) (*Listing, error) {
	record, _, err := readListing(ctx.State(), addr)
	if err != nil {
		return nil, err
	}
	if record.Mint != mint || !crypto.VerifyProgramAddress(addr, listingSeeds(market, mint), record.Bump, ProgramID) {
		return nil, fmt.Errorf("%w: listing %s", common.ErrAddressMismatch, addr)
	}
	return record, nil
}

func expectAssociated(label string, provided, owner, mint crypto.Address) error {
	want, _, err := token.AssociatedAddress(owner, mint)
	if err != nil {
		return err
	}
	return common.ExpectAddress(label, provided, want)
}

// List creates a listing for the seller's asset at price and moves the
// seller's entire balance of it into the listing's vault.
func List(ctx *common.Context, accts ListAccounts, name string, price uint64) (*Listing, error) {
	if err := ctx.RequireSigner(accts.Seller); err != nil {
		return nil, fmt.Errorf("marketplace: list: %w", err)
	}
	self, err := enter(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	market, err := readMarketplace(self.State(), accts.Marketplace)
	if err != nil {
		return nil, err
	}
	if market.Name != name || !crypto.VerifyProgramAddress(accts.Marketplace, marketplaceSeeds(name), market.Bump, ProgramID) {
		return nil, fmt.Errorf("%w: marketplace %s does not derive from %q", common.ErrAddressMismatch, accts.Marketplace, name)
	}

	listingAddr, listingBump, err := ListingAddress(accts.Marketplace, accts.Mint)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("listing", accts.Listing, listingAddr); err != nil {
		return nil, err
	}
	switch _, _, err := readListing(self.State(), listingAddr); {
	case err == nil:
		return nil, fmt.Errorf("marketplace: listing %s: %w", listingAddr, common.ErrAlreadyExists)
	case !errors.Is(err, common.ErrNotFound) && !errors.Is(err, common.ErrInvalidOwner):
		return nil, err
	}

	if err := expectAssociated("seller holding", accts.SellerHolding, accts.Seller, accts.Mint); err != nil {
		return nil, err
	}
	holding, err := token.GetHolding(self, accts.SellerHolding)
	if err != nil {
		return nil, err
	}
	if holding.Amount < 1 {
		return nil, fmt.Errorf("marketplace: seller holds no %s: %w", accts.Mint, common.ErrInsufficientBalance)
	}
	mint, err := token.GetMint(self, accts.Mint)
	if err != nil {
		return nil, err
	}

	wantMeta, _, err := metadata.MetadataAddress(accts.Mint)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("metadata", accts.Metadata, wantMeta); err != nil {
		return nil, err
	}
	wantEdition, _, err := metadata.EditionAddress(accts.Mint)
	if err != nil {
		return nil, err
	}
	if err := common.ExpectAddress("master edition", accts.MasterEdition, wantEdition); err != nil {
		return nil, err
	}
	if _, err := metadata.GetEditionAt(self, accts.MasterEdition); err != nil {
		return nil, err
	}
	meta, err := metadata.GetAt(self, accts.Metadata)
	if err != nil {
		return nil, err
	}
	if !meta.VerifiedMember(accts.CollectionMint) {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnverifiedCollection, accts.Mint, accts.CollectionMint)
	}

	if err := expectAssociated("vault", accts.Vault, listingAddr, accts.Mint); err != nil {
		return nil, err
	}

	listing := &Listing{
		Seller:   accts.Seller,
		Mint:     accts.Mint,
		Price:    price,
		Amount:   holding.Amount,
		Bump:     listingBump,
		ListedAt: uint64(self.Now()),
	}
	data, err := common.EncodeRecord(listing)
	if err != nil {
		return nil, err
	}
	sys, err := self.Invoke(bank.ProgramID, common.SeedsWithBump(listingSeeds(accts.Marketplace, accts.Mint), listingBump))
	if err != nil {
		return nil, err
	}
	if err := bank.CreateAccount(sys, accts.Seller, listingAddr, ProgramID, types.KindListing, data); err != nil {
		return nil, fmt.Errorf("marketplace: listing %s: %w", listingAddr, err)
	}
	// Anyone may create a holding for any owner, so a pre-created vault is
	// adopted instead of blocking the listing.
	if _, err := token.CreateAssociatedIdempotent(self, accts.Seller, listingAddr, accts.Mint); err != nil {
		return nil, fmt.Errorf("marketplace: vault: %w", err)
	}
	tok, err := self.Invoke(token.ProgramID)
	if err != nil {
		return nil, err
	}
	if err := token.TransferChecked(tok, accts.SellerHolding, accts.Mint, accts.Vault, accts.Seller, holding.Amount, mint.Decimals); err != nil {
		return nil, fmt.Errorf("marketplace: deposit: %w", err)
	}
	self.Emit(NewListedEvent(accts.Marketplace, listingAddr, listing))
	return listing, nil
}

// Delist returns the escrowed asset to its seller and closes the listing and
// its vault. Reclaimed rent goes to the seller.
func Delist(ctx *common.Context, accts DelistAccounts) error {
	if err := ctx.RequireSigner(accts.Seller); err != nil {
		return fmt.Errorf("marketplace: delist: %w", err)
	}
	self, err := enter(ctx)
	if err != nil {
		return err
	}
	if _, err := loadVerifiedMarketplace(self, accts.Marketplace); err != nil {
		return err
	}
	listing, err := loadVerifiedListing(self, accts.Listing, accts.Marketplace, accts.Mint)
	if err != nil {
		return err
	}
	if listing.Seller != accts.Seller {
		return fmt.Errorf("marketplace: %s is not the seller of %s: %w", accts.Seller, accts.Listing, common.ErrUnauthorized)
	}
	if err := expectAssociated("vault", accts.Vault, accts.Listing, accts.Mint); err != nil {
		return err
	}
	if err := expectAssociated("seller holding", accts.SellerHolding, accts.Seller, accts.Mint); err != nil {
		return err
	}
	if _, err := token.CreateAssociatedIdempotent(self, accts.Seller, accts.Seller, accts.Mint); err != nil {
		return err
	}
	if err := release(self, accts.Marketplace, accts.Listing, listing, accts.Vault, accts.SellerHolding); err != nil {
		return err
	}
	self.Emit(NewDelistedEvent(accts.Marketplace, accts.Listing, listing))
	return nil
}

// Purchase pays the listing price from buyer (fee to the treasury, the rest to
// the seller), delivers the escrowed asset to the buyer and closes the
// listing. Payment happens first so a failed payment never releases the asset.
func Purchase(ctx *common.Context, accts PurchaseAccounts) (fee, proceeds uint64, err error) {
	if err := ctx.RequireSigner(accts.Buyer); err != nil {
		return 0, 0, fmt.Errorf("marketplace: purchase: %w", err)
	}
	self, err := enter(ctx)
	if err != nil {
		return 0, 0, err
	}
	market, err := loadVerifiedMarketplace(self, accts.Marketplace)
	if err != nil {
		return 0, 0, err
	}
	if !crypto.VerifyProgramAddress(accts.Treasury, treasurySeeds(accts.Marketplace), market.TreasuryBump, ProgramID) {
		return 0, 0, fmt.Errorf("%w: treasury %s", common.ErrAddressMismatch, accts.Treasury)
	}
	listing, err := loadVerifiedListing(self, accts.Listing, accts.Marketplace, accts.Mint)
	if err != nil {
		return 0, 0, err
	}
	if err := common.ExpectAddress("seller", accts.Seller, listing.Seller); err != nil {
		return 0, 0, err
	}
	if err := expectAssociated("vault", accts.Vault, accts.Listing, accts.Mint); err != nil {
		return 0, 0, err
	}
	if err := expectAssociated("buyer holding", accts.BuyerHolding, accts.Buyer, accts.Mint); err != nil {
		return 0, 0, err
	}

	fee, proceeds, err = Fee(listing.Price, market.FeeBps)
	if err != nil {
		return 0, 0, err
	}
	sys, err := self.Invoke(bank.ProgramID)
	if err != nil {
		return 0, 0, err
	}
	if err := bank.Transfer(sys, accts.Buyer, accts.Treasury, fee); err != nil {
		return 0, 0, fmt.Errorf("marketplace: fee: %w", err)
	}
	if err := bank.Transfer(sys, accts.Buyer, accts.Seller, proceeds); err != nil {
		return 0, 0, fmt.Errorf("marketplace: payment: %w", err)
	}

	if _, err := token.CreateAssociatedIdempotent(self, accts.Buyer, accts.Buyer, accts.Mint); err != nil {
		return 0, 0, err
	}
	if err := release(self, accts.Marketplace, accts.Listing, listing, accts.Vault, accts.BuyerHolding); err != nil {
		return 0, 0, err
	}
	self.Emit(NewPurchasedEvent(accts.Marketplace, accts.Listing, listing, accts.Buyer, fee, proceeds))
	return fee, proceeds, nil
}

// release moves the vault's balance to dest, signing as the listing, then
// closes the vault and the listing with their rent returned to the seller.
func release(self *common.Context, market, listingAddr crypto.Address, listing *Listing, vault, dest crypto.Address) error {
	held, err := token.GetHolding(self, vault)
	if err != nil {
		return err
	}
	mint, err := token.GetMint(self, listing.Mint)
	if err != nil {
		return err
	}
	tok, err := self.Invoke(token.ProgramID, common.SeedsWithBump(listingSeeds(market, listing.Mint), listing.Bump))
	if err != nil {
		return err
	}
	if err := token.TransferChecked(tok, vault, listing.Mint, dest, listingAddr, held.Amount, mint.Decimals); err != nil {
		return fmt.Errorf("marketplace: release: %w", err)
	}
	if err := token.CloseHolding(tok, vault, listing.Seller, listingAddr); err != nil {
		return fmt.Errorf("marketplace: close vault: %w", err)
	}
	if err := bank.Close(self, listingAddr, listing.Seller); err != nil {
		return fmt.Errorf("marketplace: close listing: %w", err)
	}
	return nil
}
