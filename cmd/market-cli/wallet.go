package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"nftmarket/cmd/internal/passphrase"
	"nftmarket/crypto"
)

var (
	keygenCommand = cli.Command{
		Name:  "keygen",
		Usage: "Generate a wallet key and write it to the keystore path",
		Action: func(ctx *cli.Context) error {
			return keygen(ctx)
		},
	}
	addressCommand = cli.Command{
		Name:  "address",
		Usage: "Show the wallet address",
		Action: func(ctx *cli.Context) error {
			key, err := loadKey(ctx)
			if err != nil {
				return err
			}
			return printResult(ctx, map[string]string{"address": key.Address().String()})
		},
	}
)

func keygen(ctx *cli.Context) error {
	pass, err := passphrase.NewSource(passphrase.DefaultEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	path := ctx.String(keyFlag.Name)
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return printResult(ctx, map[string]string{
		"address":  key.Address().String(),
		"keystore": path,
	})
}

func loadKey(ctx *cli.Context) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(passphrase.DefaultEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(ctx.String(keyFlag.Name), pass)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore: %w", err)
	}
	return key, nil
}

func addressArg(ctx *cli.Context, flag string) (crypto.Address, error) {
	value := ctx.String(flag)
	if value == "" {
		return crypto.Address{}, fmt.Errorf("--%s is required", flag)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return addr, nil
}
