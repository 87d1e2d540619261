package marketplace

import (
	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	opInitialize byte = 0x01
	opList       byte = 0x02
	opDelist     byte = 0x03
	opPurchase   byte = 0x04
)

// InitializeArgs is the payload of an initialize instruction.
type InitializeArgs struct {
	Name   string
	FeeBps uint16
}

// ListArgs is the payload of a list instruction.
type ListArgs struct {
	Name  string
	Price uint64
}

// Program dispatches marketplace instructions.
type Program struct{}

func NewProgram() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }
func (*Program) Name() string       { return "marketplace" }

func (*Program) Describe(data []byte) string {
	if len(data) == 0 {
		return "unknown"
	}
	switch data[0] {
	case opInitialize:
		return "initialize"
	case opList:
		return "list"
	case opDelist:
		return "delist"
	case opPurchase:
		return "purchase"
	}
	return "unknown"
}

// Execute decodes and runs a marketplace instruction.
//
//	initialize: [admin, marketplace, treasury, rewardsMint]
//	list:       [seller, marketplace, mint, sellerHolding, listing, vault, collectionMint, metadata, masterEdition]
//	delist:     [seller, marketplace, mint, sellerHolding, listing, vault]
//	purchase:   [buyer, seller, marketplace, mint, buyerHolding, listing, vault, treasury]
func (*Program) Execute(ctx *common.Context, accounts []crypto.Address, data []byte) error {
	op, payload, err := common.SplitInstruction(data)
	if err != nil {
		return err
	}
	switch op {
	case opInitialize:
		if err := common.RequireAccounts(accounts, 4); err != nil {
			return err
		}
		var args InitializeArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		_, err := Initialize(ctx, InitializeAccounts{
			Admin:       accounts[0],
			Marketplace: accounts[1],
			Treasury:    accounts[2],
			RewardsMint: accounts[3],
		}, args.Name, args.FeeBps)
		return err
	case opList:
		if err := common.RequireAccounts(accounts, 9); err != nil {
			return err
		}
		var args ListArgs
		if err := common.DecodePayload(payload, &args); err != nil {
			return err
		}
		_, err := List(ctx, ListAccounts{
			Seller:         accounts[0],
			Marketplace:    accounts[1],
			Mint:           accounts[2],
			SellerHolding:  accounts[3],
			Listing:        accounts[4],
			Vault:          accounts[5],
			CollectionMint: accounts[6],
			Metadata:       accounts[7],
			MasterEdition:  accounts[8],
		}, args.Name, args.Price)
		return err
	case opDelist:
		if err := common.RequireAccounts(accounts, 6); err != nil {
			return err
		}
		return Delist(ctx, DelistAccounts{
			Seller:        accounts[0],
			Marketplace:   accounts[1],
			Mint:          accounts[2],
			SellerHolding: accounts[3],
			Listing:       accounts[4],
			Vault:         accounts[5],
		})
	case opPurchase:
		if err := common.RequireAccounts(accounts, 8); err != nil {
			return err
		}
		_, _, err := Purchase(ctx, PurchaseAccounts{
			Buyer:        accounts[0],
			Seller:       accounts[1],
			Marketplace:  accounts[2],
			Mint:         accounts[3],
			BuyerHolding: accounts[4],
			Listing:      accounts[5],
			Vault:        accounts[6],
			Treasury:     accounts[7],
		})
		return err
	default:
		return common.ErrInvalidInstruction
	}
}
