package types

import "nftmarket/crypto"

// AccountKind tags the record stored in an account's data field.
type AccountKind uint8

const (
	KindSystem        AccountKind = 0x00 // plain wallet holding lamports only
	KindMint          AccountKind = 0x01
	KindHolding       AccountKind = 0x02 // token balance for one (mint, owner) pair
	KindMetadata      AccountKind = 0x03
	KindMasterEdition AccountKind = 0x04
	KindMarketplace   AccountKind = 0x05
	KindListing       AccountKind = 0x06
)

func (k AccountKind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindMint:
		return "mint"
	case KindHolding:
		return "holding"
	case KindMetadata:
		return "metadata"
	case KindMasterEdition:
		return "master_edition"
	case KindMarketplace:
		return "marketplace"
	case KindListing:
		return "listing"
	default:
		return "unknown"
	}
}

// Account is the unit of ledger state. Only the owning program may change Data
// or debit Lamports.
type Account struct {
	Lamports uint64         `json:"lamports"`
	Owner    crypto.Address `json:"owner"`
	Kind     AccountKind    `json:"kind"`
	Data     []byte         `json:"data"`
}

// Clone returns a deep copy so callers can mutate without touching cached state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Data = append([]byte(nil), a.Data...)
	return &clone
}
