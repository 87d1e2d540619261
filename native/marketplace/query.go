package marketplace

import (
	"fmt"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
)

// AccountReader is the read side of ledger state. Both committed state and an
// open transaction satisfy it.
type AccountReader interface {
	GetAccount(addr crypto.Address) (*types.Account, bool, error)
}

func readMarketplace(r AccountReader, addr crypto.Address) (*Marketplace, error) {
	acc, ok, err := r.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, addr)
	}
	if acc.Owner != ProgramID || acc.Kind != types.KindMarketplace {
		return nil, fmt.Errorf("marketplace %s: %w", addr, common.ErrInvalidOwner)
	}
	record := new(Marketplace)
	if err := common.DecodeRecord(acc.Data, record); err != nil {
		return nil, err
	}
	return record, nil
}

func readListing(r AccountReader, addr crypto.Address) (*Listing, *types.Account, error) {
	acc, ok, err := r.GetAccount(addr)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrListingNotFound, addr)
	}
	if acc.Owner != ProgramID || acc.Kind != types.KindListing {
		return nil, nil, fmt.Errorf("listing %s: %w", addr, common.ErrInvalidOwner)
	}
	record := new(Listing)
	if err := common.DecodeRecord(acc.Data, record); err != nil {
		return nil, nil, err
	}
	return record, acc, nil
}

// GetMarketplace loads the marketplace named name and returns it with its
// address.
func GetMarketplace(r AccountReader, name string) (*Marketplace, crypto.Address, error) {
	addr, _, err := MarketplaceAddress(name)
	if err != nil {
		return nil, crypto.Address{}, err
	}
	record, err := readMarketplace(r, addr)
	if err != nil {
		return nil, crypto.Address{}, err
	}
	return record, addr, nil
}

// GetMarketplaceAt loads a marketplace by address.
func GetMarketplaceAt(r AccountReader, addr crypto.Address) (*Marketplace, error) {
	return readMarketplace(r, addr)
}

// GetListing loads the active listing of mint in a marketplace.
func GetListing(r AccountReader, market, mint crypto.Address) (*Listing, crypto.Address, error) {
	addr, _, err := ListingAddress(market, mint)
	if err != nil {
		return nil, crypto.Address{}, err
	}
	record, _, err := readListing(r, addr)
	if err != nil {
		return nil, crypto.Address{}, err
	}
	return record, addr, nil
}

// TreasuryBalance reports the lamports collected by a marketplace.
func TreasuryBalance(r AccountReader, market crypto.Address) (uint64, error) {
	addr, _, err := TreasuryAddress(market)
	if err != nil {
		return 0, err
	}
	acc, ok, err := r.GetAccount(addr)
	if err != nil || !ok {
		return 0, err
	}
	return acc.Lamports, nil
}

// AccountScanner enumerates committed accounts of one kind.
type AccountScanner interface {
	Accounts(kind types.AccountKind, fn func(crypto.Address, *types.Account) bool) error
}

// ActiveListing pairs a listing record with its address.
type ActiveListing struct {
	Address crypto.Address
	Listing *Listing
}

// OpenListings returns up to limit listings of the marketplace at market in
// address order. A listing belongs to market only if its address re-derives
// from (market, mint) with the stored bump. A non-positive limit means no
// limit.
func OpenListings(s AccountScanner, market crypto.Address, limit int) ([]ActiveListing, error) {
	var (
		out     []ActiveListing
		scanErr error
	)
	err := s.Accounts(types.KindListing, func(addr crypto.Address, acc *types.Account) bool {
		if acc.Owner != ProgramID {
			return true
		}
		record := new(Listing)
		if err := common.DecodeRecord(acc.Data, record); err != nil {
			scanErr = fmt.Errorf("listing %s: %w", addr, err)
			return false
		}
		if !crypto.VerifyProgramAddress(addr, listingSeeds(market, record.Mint), record.Bump, ProgramID) {
			return true
		}
		out = append(out, ActiveListing{Address: addr, Listing: record})
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, scanErr
}
