package rpc

import (
	"encoding/hex"
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/marketplace"
)

// AccountResult is the RPC view of a ledger account.
type AccountResult struct {
	Address  string `json:"address"`
	Lamports string `json:"lamports"`
	Owner    string `json:"owner"`
	Kind     string `json:"kind"`
	Nonce    uint64 `json:"nonce"`
	Data     string `json:"data,omitempty"`
}

// MarketplaceResult describes an initialized marketplace.
type MarketplaceResult struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Admin    string `json:"admin"`
	FeeBps   uint16 `json:"feeBps"`
	Treasury string `json:"treasury"`
	Rewards  string `json:"rewardsMint"`
	Balance  string `json:"treasuryBalance"`
}

// ListingResult describes an active listing and its escrow vault.
type ListingResult struct {
	Address     string `json:"address"`
	Marketplace string `json:"marketplace"`
	Seller      string `json:"seller"`
	Mint        string `json:"mint"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	Vault       string `json:"vault"`
	ListedAt    int64  `json:"listedAt"`
}

// TokenBalanceResult reports an owner's associated holding for a mint.
type TokenBalanceResult struct {
	Owner   string `json:"owner"`
	Mint    string `json:"mint"`
	Holding string `json:"holding"`
	Amount  string `json:"amount"`
}

// ReceiptResult reflects the outcome of an executed transaction.
type ReceiptResult struct {
	TransactionHash string       `json:"transactionHash"`
	Payer           string       `json:"payer"`
	Nonce           uint64       `json:"nonce"`
	Status          string       `json:"status"`
	Instructions    []string     `json:"instructions"`
	Logs            []ReceiptLog `json:"logs"`
}

// ReceiptLog captures a structured event emitted during transaction execution.
type ReceiptLog map[string]string

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func accountResult(addr crypto.Address, acc *types.Account, nonce uint64) AccountResult {
	res := AccountResult{Address: addr.String(), Lamports: "0", Kind: types.KindSystem.String(), Nonce: nonce}
	if acc == nil {
		return res
	}
	res.Lamports = formatUint(acc.Lamports)
	res.Owner = acc.Owner.String()
	res.Kind = acc.Kind.String()
	if len(acc.Data) > 0 {
		res.Data = "0x" + hex.EncodeToString(acc.Data)
	}
	return res
}

func marketplaceResult(addr crypto.Address, m *marketplace.Marketplace, balance uint64) (MarketplaceResult, error) {
	treasury, _, err := marketplace.TreasuryAddress(addr)
	if err != nil {
		return MarketplaceResult{}, err
	}
	rewards, _, err := marketplace.RewardsMintAddress(addr)
	if err != nil {
		return MarketplaceResult{}, err
	}
	return MarketplaceResult{
		Address:  addr.String(),
		Name:     m.Name,
		Admin:    m.Admin.String(),
		FeeBps:   m.FeeBps,
		Treasury: treasury.String(),
		Rewards:  rewards.String(),
		Balance:  formatUint(balance),
	}, nil
}

func listingResult(market, addr crypto.Address, l *marketplace.Listing) (ListingResult, error) {
	vault, err := marketplace.VaultAddress(market, l.Mint)
	if err != nil {
		return ListingResult{}, err
	}
	return ListingResult{
		Address:     addr.String(),
		Marketplace: market.String(),
		Seller:      l.Seller.String(),
		Mint:        l.Mint.String(),
		Price:       formatUint(l.Price),
		Amount:      formatUint(l.Amount),
		Vault:       vault.String(),
		ListedAt:    int64(l.ListedAt),
	}, nil
}

func receiptLogs(evts []*types.Event) []ReceiptLog {
	logs := make([]ReceiptLog, 0, len(evts))
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		entry := ReceiptLog{"type": evt.Type}
		for k, v := range evt.Attributes {
			entry[k] = v
		}
		logs = append(logs, entry)
	}
	return logs
}
