package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is stamped at build time.
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "market-cli"
	app.Usage = "wallet and marketplace client for marketd"
	app.Flags = []cli.Flag{rpcFlag, tokenFlag, outputFlag, keyFlag}
	app.Commands = []*cli.Command{
		&keygenCommand,
		&addressCommand,
		&balanceCommand,
		&transferCommand,
		&nftCommand,
		&collectionCommand,
		&marketCommand,
		&eventsCommand,
		&tokenCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		switch ctx.String(outputFlag.Name) {
		case "json", "yaml":
			return nil
		default:
			return fmt.Errorf("unsupported output format %q", ctx.String(outputFlag.Name))
		}
	}
	return app
}

var (
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "marketd JSON-RPC endpoint",
		Value:   "http://127.0.0.1:8080",
		EnvVars: []string{"MARKET_RPC"},
	}
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "bearer token for guarded methods",
		EnvVars: []string{"MARKET_RPC_TOKEN"},
	}
	outputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "output format: json or yaml",
		Value: "json",
	}
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "path of the wallet keystore file",
		Value:   "wallet.json",
		EnvVars: []string{"MARKET_KEY"},
	}
	dryRunFlag = &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "simulate the transaction without committing it",
	}
	nameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "marketplace name",
		Required: true,
	}
	mintFlag = &cli.StringFlag{
		Name:     "mint",
		Usage:    "asset mint address",
		Required: true,
	}
	collectionFlag = &cli.StringFlag{
		Name:  "collection",
		Usage: "collection mint address",
	}
)
