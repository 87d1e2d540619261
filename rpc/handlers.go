package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"nftmarket/core"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
	"nftmarket/native/marketplace"
	"nftmarket/native/token"
)

const (
	maxRecentEvents = 256
	maxListings     = 500
)

func stringParam(params []json.RawMessage, idx int, name string) (string, *RPCError) {
	if len(params) <= idx {
		return "", invalidParams(name+" parameter required", nil)
	}
	var value string
	if err := json.Unmarshal(params[idx], &value); err != nil {
		return "", invalidParams("invalid "+name, err.Error())
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidParams(name+" must not be empty", nil)
	}
	return value, nil
}

func addressParam(params []json.RawMessage, idx int, name string) (crypto.Address, *RPCError) {
	raw, rpcErr := stringParam(params, idx, name)
	if rpcErr != nil {
		return crypto.Address{}, rpcErr
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, invalidParams("invalid "+name, err.Error())
	}
	return addr, nil
}

func transactionParam(params []json.RawMessage) (*types.Transaction, *RPCError) {
	raw, rpcErr := stringParam(params, 0, "transaction")
	if rpcErr != nil {
		return nil, rpcErr
	}
	encoded, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, invalidParams("transaction must be hex encoded", err.Error())
	}
	tx, err := types.DecodeTransaction(encoded)
	if err != nil {
		return nil, invalidParams("invalid transaction format", err.Error())
	}
	return tx, nil
}

func receiptResult(receipt *core.Receipt, status string) ReceiptResult {
	return ReceiptResult{
		TransactionHash: receipt.TxHash,
		Payer:           receipt.Payer.String(),
		Nonce:           receipt.Nonce,
		Status:          status,
		Instructions:    receipt.Instructions,
		Logs:            receiptLogs(receipt.Events),
	}
}

func (s *Server) handleSendTransaction(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	tx, rpcErr := transactionParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.proc.Process(ctx, tx)
	if err != nil {
		return nil, ledgerError(err)
	}
	return receiptResult(receipt, "committed"), nil
}

func (s *Server) handleSimulateTransaction(ctx context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	tx, rpcErr := transactionParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.proc.Simulate(ctx, tx)
	if err != nil {
		return nil, ledgerError(err)
	}
	return receiptResult(receipt, "simulated"), nil
}

func (s *Server) handleGetAccount(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	addr, rpcErr := addressParam(params, 0, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	st := s.proc.State()
	acc, ok, err := st.GetAccount(addr)
	if err != nil {
		return nil, internalError(err)
	}
	nonce, err := st.Nonce(addr)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		acc = nil
	}
	return accountResult(addr, acc, nonce), nil
}

func (s *Server) handleGetNonce(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	addr, rpcErr := addressParam(params, 0, "address")
	if rpcErr != nil {
		return nil, rpcErr
	}
	nonce, err := s.proc.State().Nonce(addr)
	if err != nil {
		return nil, internalError(err)
	}
	return nonce, nil
}

func (s *Server) handleGetMarketplace(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	name, rpcErr := stringParam(params, 0, "name")
	if rpcErr != nil {
		return nil, rpcErr
	}
	st := s.proc.State()
	record, addr, err := marketplace.GetMarketplace(st, name)
	if err != nil {
		return nil, ledgerError(err)
	}
	balance, err := marketplace.TreasuryBalance(st, addr)
	if err != nil {
		return nil, internalError(err)
	}
	res, err := marketplaceResult(addr, record, balance)
	if err != nil {
		return nil, internalError(err)
	}
	return res, nil
}

func (s *Server) handleGetListing(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	name, rpcErr := stringParam(params, 0, "name")
	if rpcErr != nil {
		return nil, rpcErr
	}
	mint, rpcErr := addressParam(params, 1, "mint")
	if rpcErr != nil {
		return nil, rpcErr
	}
	market, _, err := marketplace.MarketplaceAddress(name)
	if err != nil {
		return nil, ledgerError(err)
	}
	listing, addr, err := marketplace.GetListing(s.proc.State(), market, mint)
	if err != nil {
		return nil, ledgerError(err)
	}
	res, err := listingResult(market, addr, listing)
	if err != nil {
		return nil, internalError(err)
	}
	return res, nil
}

func (s *Server) handleGetTokenBalance(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	owner, rpcErr := addressParam(params, 0, "owner")
	if rpcErr != nil {
		return nil, rpcErr
	}
	mint, rpcErr := addressParam(params, 1, "mint")
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, _, err := token.AssociatedAddress(owner, mint)
	if err != nil {
		return nil, internalError(err)
	}
	res := TokenBalanceResult{Owner: owner.String(), Mint: mint.String(), Holding: addr.String(), Amount: "0"}
	acc, ok, err := s.proc.State().GetAccount(addr)
	if err != nil {
		return nil, internalError(err)
	}
	if !ok {
		return res, nil
	}
	if acc.Owner != token.ProgramID || acc.Kind != types.KindHolding {
		return nil, ledgerError(common.ErrInvalidOwner)
	}
	holding := new(token.Holding)
	if err := common.DecodeRecord(acc.Data, holding); err != nil {
		return nil, internalError(err)
	}
	res.Amount = formatUint(holding.Amount)
	return res, nil
}

func (s *Server) handleTreasuryBalance(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	name, rpcErr := stringParam(params, 0, "name")
	if rpcErr != nil {
		return nil, rpcErr
	}
	_, addr, err := marketplace.GetMarketplace(s.proc.State(), name)
	if err != nil {
		return nil, ledgerError(err)
	}
	balance, err := marketplace.TreasuryBalance(s.proc.State(), addr)
	if err != nil {
		return nil, internalError(err)
	}
	return formatUint(balance), nil
}

func (s *Server) handleRecentEvents(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	if s.recorder == nil {
		return nil, internalError(errors.New("event history disabled"))
	}
	limit := maxRecentEvents
	if len(params) > 0 {
		if err := json.Unmarshal(params[0], &limit); err != nil {
			return nil, invalidParams("limit must be an integer", err.Error())
		}
		if limit <= 0 || limit > maxRecentEvents {
			limit = maxRecentEvents
		}
	}
	return receiptLogs(s.recorder.Recent(limit)), nil
}

func (s *Server) handleStateRoot(_ context.Context, _ []json.RawMessage) (interface{}, *RPCError) {
	root, err := s.proc.State().Root()
	if err != nil {
		return nil, internalError(err)
	}
	return "0x" + hex.EncodeToString(root), nil
}

func (s *Server) handleListListings(_ context.Context, params []json.RawMessage) (interface{}, *RPCError) {
	name, rpcErr := stringParam(params, 0, "name")
	if rpcErr != nil {
		return nil, rpcErr
	}
	limit := maxListings
	if len(params) > 1 {
		if err := json.Unmarshal(params[1], &limit); err != nil {
			return nil, invalidParams("limit must be an integer", err.Error())
		}
		if limit <= 0 || limit > maxListings {
			limit = maxListings
		}
	}
	st := s.proc.State()
	_, market, err := marketplace.GetMarketplace(st, name)
	if err != nil {
		return nil, ledgerError(err)
	}
	open, err := marketplace.OpenListings(st, market, limit)
	if err != nil {
		return nil, internalError(err)
	}
	out := make([]ListingResult, 0, len(open))
	for _, entry := range open {
		res, err := listingResult(market, entry.Address, entry.Listing)
		if err != nil {
			return nil, internalError(err)
		}
		out = append(out, res)
	}
	return out, nil
}
