package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"nftmarket/config"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/marketplace"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
	"nftmarket/rpc"
)

var (
	balanceCommand = cli.Command{
		Name:  "balance",
		Usage: "Show the lamport balance of an address or of the wallet",
		Flags: []cli.Flag{&cli.StringFlag{Name: "address", Usage: "address to query"}},
		Action: func(ctx *cli.Context) error {
			var addr crypto.Address
			if ctx.String("address") != "" {
				var err error
				if addr, err = addressArg(ctx, "address"); err != nil {
					return err
				}
			} else {
				key, err := loadKey(ctx)
				if err != nil {
					return err
				}
				addr = key.Address()
			}
			account, err := newClient(ctx).Account(ctx.Context, addr)
			if err != nil {
				return err
			}
			return printResult(ctx, account)
		},
	}
	transferCommand = cli.Command{
		Name:  "transfer",
		Usage: "Send lamports from the wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "recipient address", Required: true},
			&cli.Uint64Flag{Name: "amount", Usage: "lamports to send", Required: true},
			dryRunFlag,
		},
		Action: func(ctx *cli.Context) error {
			to, err := addressArg(ctx, "to")
			if err != nil {
				return err
			}
			return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
				ix, err := bank.NewTransferInstruction(wallet, to, ctx.Uint64("amount"))
				return []types.Instruction{ix}, err
			}, nil)
		},
	}
	nftCommand = cli.Command{
		Name:  "nft",
		Usage: "Issue single-unit assets",
		Subcommands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "Mint a new asset with metadata and a master edition to the wallet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "asset name", Required: true},
					&cli.StringFlag{Name: "symbol", Usage: "asset symbol"},
					&cli.StringFlag{Name: "uri", Usage: "off-ledger metadata uri"},
					collectionFlag,
					dryRunFlag,
				},
				Action: mintNFT,
			},
		},
	}
	collectionCommand = cli.Command{
		Name:  "collection",
		Usage: "Manage collection membership",
		Subcommands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Verify an asset's collection claim as the collection authority",
				Flags: []cli.Flag{mintFlag, &cli.StringFlag{Name: "collection", Usage: "collection mint address", Required: true}, dryRunFlag},
				Action: func(ctx *cli.Context) error {
					return verifyCollection(ctx, true)
				},
			},
			{
				Name:  "unverify",
				Usage: "Withdraw a previously verified collection claim",
				Flags: []cli.Flag{mintFlag, &cli.StringFlag{Name: "collection", Usage: "collection mint address", Required: true}, dryRunFlag},
				Action: func(ctx *cli.Context) error {
					return verifyCollection(ctx, false)
				},
			},
		},
	}
	marketCommand = cli.Command{
		Name:  "market",
		Usage: "Create marketplaces and trade listed assets",
		Subcommands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create a marketplace administered by the wallet",
				Flags:  []cli.Flag{nameFlag, &cli.UintFlag{Name: "fee-bps", Usage: "fee in basis points of the price"}, dryRunFlag},
				Action: initMarketplace,
			},
			{
				Name:  "list",
				Usage: "Escrow an asset for sale",
				Flags: []cli.Flag{
					nameFlag, mintFlag,
					&cli.StringFlag{Name: "collection", Usage: "verified collection mint of the asset", Required: true},
					&cli.Uint64Flag{Name: "price", Usage: "asking price in lamports", Required: true},
					dryRunFlag,
				},
				Action: listAsset,
			},
			{
				Name:   "delist",
				Usage:  "Withdraw a listed asset back to the wallet",
				Flags:  []cli.Flag{nameFlag, mintFlag, dryRunFlag},
				Action: delistAsset,
			},
			{
				Name:   "purchase",
				Usage:  "Buy a listed asset at its asking price",
				Flags:  []cli.Flag{nameFlag, mintFlag, dryRunFlag},
				Action: purchaseAsset,
			},
			{
				Name:  "show",
				Usage: "Show a marketplace",
				Flags: []cli.Flag{nameFlag},
				Action: func(ctx *cli.Context) error {
					market, err := newClient(ctx).Marketplace(ctx.Context, ctx.String(nameFlag.Name))
					if err != nil {
						return err
					}
					return printResult(ctx, market)
				},
			},
			{
				Name:  "listings",
				Usage: "Show the open listings of a marketplace",
				Flags: []cli.Flag{
					nameFlag,
					&cli.IntFlag{Name: "limit", Usage: "maximum listings, 0 for the server maximum"},
				},
				Action: func(ctx *cli.Context) error {
					open, err := newClient(ctx).Listings(ctx.Context, ctx.String(nameFlag.Name), ctx.Int("limit"))
					if err != nil {
						return err
					}
					return printResult(ctx, open)
				},
			},
			{
				Name:  "listing",
				Usage: "Show the active listing of an asset",
				Flags: []cli.Flag{nameFlag, mintFlag},
				Action: func(ctx *cli.Context) error {
					mint, err := addressArg(ctx, mintFlag.Name)
					if err != nil {
						return err
					}
					listing, err := newClient(ctx).Listing(ctx.Context, ctx.String(nameFlag.Name), mint)
					if err != nil {
						return err
					}
					return printResult(ctx, listing)
				},
			},
		},
	}
	eventsCommand = cli.Command{
		Name:  "events",
		Usage: "Show recently committed events",
		Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Usage: "maximum events", Value: 20}},
		Action: func(ctx *cli.Context) error {
			logs, err := newClient(ctx).RecentEvents(ctx.Context, ctx.Int("limit"))
			if err != nil {
				return err
			}
			return printResult(ctx, logs)
		},
	}
	tokenCommand = cli.Command{
		Name:  "token",
		Usage: "Issue bearer tokens for guarded RPC methods",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Sign a bearer token with the shared secret",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "secret-env", Usage: "environment variable holding the secret", Value: "MARKET_RPC_JWT_SECRET"},
					&cli.StringFlag{Name: "issuer", Usage: "iss claim"},
					&cli.StringFlag{Name: "audience", Usage: "aud claim"},
					&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: time.Hour},
				},
				Action: issueToken,
			},
		},
	}
)

func mintNFT(ctx *cli.Context) error {
	mintKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	mint := mintKey.Address()
	var collection *crypto.Address
	if ctx.String(collectionFlag.Name) != "" {
		addr, err := addressArg(ctx, collectionFlag.Name)
		if err != nil {
			return err
		}
		collection = &addr
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		holding, _, err := token.AssociatedAddress(wallet, mint)
		if err != nil {
			return nil, err
		}
		return collect(
			func() (types.Instruction, error) { return token.NewInitializeMintInstruction(wallet, mint, 0, wallet) },
			func() (types.Instruction, error) { return token.NewCreateAssociatedInstruction(wallet, wallet, mint, false) },
			func() (types.Instruction, error) { return token.NewMintToInstruction(mint, holding, 1) },
			func() (types.Instruction, error) {
				return metadata.NewCreateMetadataInstruction(wallet, mint, &metadata.CreateArgs{
					Name:            ctx.String("title"),
					Symbol:          ctx.String("symbol"),
					URI:             ctx.String("uri"),
					UpdateAuthority: wallet,
					Collection:      collection,
				})
			},
			func() (types.Instruction, error) { return metadata.NewCreateMasterEditionInstruction(wallet, mint, 0) },
		)
	}, map[string]string{"mint": mint.String()}, mintKey)
}

func verifyCollection(ctx *cli.Context, verified bool) error {
	mint, err := addressArg(ctx, mintFlag.Name)
	if err != nil {
		return err
	}
	collection, err := addressArg(ctx, "collection")
	if err != nil {
		return err
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		return collect(func() (types.Instruction, error) {
			return metadata.NewVerifyCollectionInstruction(mint, collection, wallet, verified)
		})
	}, nil)
}

func initMarketplace(ctx *cli.Context) error {
	name := ctx.String(nameFlag.Name)
	fee := ctx.Uint("fee-bps")
	if fee > marketplace.MaxFeeBps {
		return fmt.Errorf("--fee-bps must not exceed %d", marketplace.MaxFeeBps)
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		accts, err := marketplace.NewInitializeAccounts(wallet, name)
		if err != nil {
			return nil, err
		}
		return collect(func() (types.Instruction, error) {
			return marketplace.NewInitializeInstruction(accts, name, uint16(fee))
		})
	}, nil)
}

func listAsset(ctx *cli.Context) error {
	name := ctx.String(nameFlag.Name)
	mint, err := addressArg(ctx, mintFlag.Name)
	if err != nil {
		return err
	}
	collection, err := addressArg(ctx, "collection")
	if err != nil {
		return err
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		accts, err := marketplace.NewListAccounts(wallet, name, mint, collection)
		if err != nil {
			return nil, err
		}
		return collect(func() (types.Instruction, error) {
			return marketplace.NewListInstruction(accts, name, ctx.Uint64("price"))
		})
	}, nil)
}

func delistAsset(ctx *cli.Context) error {
	name := ctx.String(nameFlag.Name)
	mint, err := addressArg(ctx, mintFlag.Name)
	if err != nil {
		return err
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		accts, err := marketplace.NewDelistAccounts(wallet, name, mint)
		if err != nil {
			return nil, err
		}
		return collect(func() (types.Instruction, error) { return marketplace.NewDelistInstruction(accts) })
	}, nil)
}

// purchaseAsset resolves the seller from the active listing before building
// the instruction.
func purchaseAsset(ctx *cli.Context) error {
	name := ctx.String(nameFlag.Name)
	mint, err := addressArg(ctx, mintFlag.Name)
	if err != nil {
		return err
	}
	listing, err := newClient(ctx).Listing(ctx.Context, name, mint)
	if err != nil {
		return fmt.Errorf("lookup listing: %w", err)
	}
	seller, err := crypto.DecodeAddress(listing.Seller)
	if err != nil {
		return err
	}
	return send(ctx, func(wallet crypto.Address) ([]types.Instruction, error) {
		accts, err := marketplace.NewPurchaseAccounts(wallet, seller, name, mint)
		if err != nil {
			return nil, err
		}
		return collect(func() (types.Instruction, error) { return marketplace.NewPurchaseInstruction(accts) })
	}, map[string]string{"price": listing.Price, "seller": listing.Seller})
}

func issueToken(ctx *cli.Context) error {
	auth := config.RPCAuth{
		Enabled:   true,
		SecretEnv: ctx.String("secret-env"),
		Issuer:    ctx.String("issuer"),
		Audience:  ctx.String("audience"),
	}
	secret, err := auth.Secret()
	if err != nil {
		return err
	}
	signed, err := rpc.IssueToken(secret, auth.Issuer, auth.Audience, ctx.Duration("ttl"))
	if err != nil {
		return err
	}
	return printResult(ctx, map[string]string{"token": signed})
}

func collect(builders ...func() (types.Instruction, error)) ([]types.Instruction, error) {
	out := make([]types.Instruction, 0, len(builders))
	for _, build := range builders {
		ix, err := build()
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}
