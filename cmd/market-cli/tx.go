package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/rpc"
)

type submitter interface {
	Nonce(ctx context.Context, addr crypto.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) (*rpc.ReceiptResult, error)
	SimulateTransaction(ctx context.Context, tx *types.Transaction) (*rpc.ReceiptResult, error)
}

func newClient(ctx *cli.Context) *rpc.Client {
	return rpc.NewClient(ctx.String(rpcFlag.Name), ctx.String(tokenFlag.Name))
}

// submitInstructions signs instrs with payer first and any cosigners after,
// using the payer's next nonce.
func submitInstructions(ctx context.Context, node submitter, dryRun bool, payer *crypto.PrivateKey, instrs []types.Instruction, cosigners ...*crypto.PrivateKey) (*rpc.ReceiptResult, error) {
	nonce, err := node.Nonce(ctx, payer.Address())
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	tx := &types.Transaction{Payer: payer.Address(), Nonce: nonce, Instructions: instrs}
	for _, key := range append([]*crypto.PrivateKey{payer}, cosigners...) {
		if err := tx.Sign(key); err != nil {
			return nil, err
		}
	}
	if dryRun {
		return node.SimulateTransaction(ctx, tx)
	}
	return node.SendTransaction(ctx, tx)
}

// send loads the wallet, submits instrs and prints the receipt merged with
// extra fields.
func send(ctx *cli.Context, build func(wallet crypto.Address) ([]types.Instruction, error), extra map[string]string, cosigners ...*crypto.PrivateKey) error {
	key, err := loadKey(ctx)
	if err != nil {
		return err
	}
	instrs, err := build(key.Address())
	if err != nil {
		return err
	}
	receipt, err := submitInstructions(ctx.Context, newClient(ctx), ctx.Bool(dryRunFlag.Name), key, instrs, cosigners...)
	if err != nil {
		return err
	}
	if len(extra) == 0 {
		return printResult(ctx, receipt)
	}
	return printResult(ctx, struct {
		*rpc.ReceiptResult
		Extra map[string]string `json:"extra"`
	}{receipt, extra})
}
