package marketplace

import (
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

// NewInitializeAccounts derives the accounts of an initialize instruction.
func NewInitializeAccounts(admin crypto.Address, name string) (InitializeAccounts, error) {
	market, _, err := MarketplaceAddress(name)
	if err != nil {
		return InitializeAccounts{}, err
	}
	treasury, _, err := TreasuryAddress(market)
	if err != nil {
		return InitializeAccounts{}, err
	}
	rewards, _, err := RewardsMintAddress(market)
	if err != nil {
		return InitializeAccounts{}, err
	}
	return InitializeAccounts{Admin: admin, Marketplace: market, Treasury: treasury, RewardsMint: rewards}, nil
}

// NewListAccounts derives the accounts of a list instruction.
func NewListAccounts(seller crypto.Address, name string, mint, collectionMint crypto.Address) (ListAccounts, error) {
	market, _, err := MarketplaceAddress(name)
	if err != nil {
		return ListAccounts{}, err
	}
	holding, _, err := token.AssociatedAddress(seller, mint)
	if err != nil {
		return ListAccounts{}, err
	}
	listing, _, err := ListingAddress(market, mint)
	if err != nil {
		return ListAccounts{}, err
	}
	vault, _, err := token.AssociatedAddress(listing, mint)
	if err != nil {
		return ListAccounts{}, err
	}
	meta, _, err := metadata.MetadataAddress(mint)
	if err != nil {
		return ListAccounts{}, err
	}
	edition, _, err := metadata.EditionAddress(mint)
	if err != nil {
		return ListAccounts{}, err
	}
	return ListAccounts{
		Seller:         seller,
		Marketplace:    market,
		Mint:           mint,
		SellerHolding:  holding,
		Listing:        listing,
		Vault:          vault,
		CollectionMint: collectionMint,
		Metadata:       meta,
		MasterEdition:  edition,
	}, nil
}

// NewDelistAccounts derives the accounts of a delist instruction.
func NewDelistAccounts(seller crypto.Address, name string, mint crypto.Address) (DelistAccounts, error) {
	list, err := NewListAccounts(seller, name, mint, crypto.Address{})
	if err != nil {
		return DelistAccounts{}, err
	}
	return DelistAccounts{
		Seller:        seller,
		Marketplace:   list.Marketplace,
		Mint:          mint,
		SellerHolding: list.SellerHolding,
		Listing:       list.Listing,
		Vault:         list.Vault,
	}, nil
}

// NewPurchaseAccounts derives the accounts of a purchase instruction. The
// seller must be the seller stored on the listing.
func NewPurchaseAccounts(buyer, seller crypto.Address, name string, mint crypto.Address) (PurchaseAccounts, error) {
	market, _, err := MarketplaceAddress(name)
	if err != nil {
		return PurchaseAccounts{}, err
	}
	holding, _, err := token.AssociatedAddress(buyer, mint)
	if err != nil {
		return PurchaseAccounts{}, err
	}
	listing, _, err := ListingAddress(market, mint)
	if err != nil {
		return PurchaseAccounts{}, err
	}
	vault, _, err := token.AssociatedAddress(listing, mint)
	if err != nil {
		return PurchaseAccounts{}, err
	}
	treasury, _, err := TreasuryAddress(market)
	if err != nil {
		return PurchaseAccounts{}, err
	}
	return PurchaseAccounts{
		Buyer:        buyer,
		Seller:       seller,
		Marketplace:  market,
		Mint:         mint,
		BuyerHolding: holding,
		Listing:      listing,
		Vault:        vault,
		Treasury:     treasury,
	}, nil
}

func instruction(op byte, payload interface{}, accounts []crypto.Address) (types.Instruction, error) {
	data, err := common.EncodeInstruction(op, payload)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{Program: ProgramID, Accounts: accounts, Data: data}, nil
}

// NewInitializeInstruction builds an initialize instruction.
func NewInitializeInstruction(a InitializeAccounts, name string, feeBps uint16) (types.Instruction, error) {
	return instruction(opInitialize, &InitializeArgs{Name: name, FeeBps: feeBps},
		[]crypto.Address{a.Admin, a.Marketplace, a.Treasury, a.RewardsMint})
}

// NewListInstruction builds a list instruction.
func NewListInstruction(a ListAccounts, name string, price uint64) (types.Instruction, error) {
	return instruction(opList, &ListArgs{Name: name, Price: price}, []crypto.Address{
		a.Seller, a.Marketplace, a.Mint, a.SellerHolding, a.Listing, a.Vault,
		a.CollectionMint, a.Metadata, a.MasterEdition,
	})
}

// NewDelistInstruction builds a delist instruction.
func NewDelistInstruction(a DelistAccounts) (types.Instruction, error) {
	return instruction(opDelist, nil, []crypto.Address{
		a.Seller, a.Marketplace, a.Mint, a.SellerHolding, a.Listing, a.Vault,
	})
}

// NewPurchaseInstruction builds a purchase instruction.
func NewPurchaseInstruction(a PurchaseAccounts) (types.Instruction, error) {
	return instruction(opPurchase, nil, []crypto.Address{
		a.Buyer, a.Seller, a.Marketplace, a.Mint, a.BuyerHolding, a.Listing, a.Vault, a.Treasury,
	})
}
