package marketplace

import (
	"errors"
	"fmt"
	"strings"

	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	// MaxNameLength bounds a marketplace name in bytes. Names are used as a
	// derivation seed so the bound matches the seed limit.
	MaxNameLength = crypto.MaxSeedLength
	// MaxFeeBps is 100%.
	MaxFeeBps = 10_000
	// RewardDecimals is the precision of every marketplace reward mint.
	RewardDecimals = 6
)

var (
	// ProgramID owns marketplaces, listings and treasuries.
	ProgramID = common.ProgramAddress("marketplace")

	ErrInvalidName          = errors.New("marketplace: name must be 1-32 bytes")
	ErrFeeOutOfRange        = errors.New("marketplace: fee exceeds 10000 basis points")
	ErrUnverifiedCollection = errors.New("marketplace: asset is not a verified member of the collection")
	ErrNotInitialized       = fmt.Errorf("marketplace: not initialized: %w", common.ErrNotFound)
	ErrListingNotFound      = fmt.Errorf("marketplace: listing: %w", common.ErrNotFound)
)

// Marketplace is the configuration record of one named venue.
type Marketplace struct {
	Admin        crypto.Address
	FeeBps       uint16
	Bump         uint8
	TreasuryBump uint8
	RewardsBump  uint8
	Name         string
}

// Listing is a seller's standing offer for one asset. Amount is the balance
// moved into the vault when the listing was created.
type Listing struct {
	Seller   crypto.Address
	Mint     crypto.Address
	Price    uint64
	Amount   uint64
	Bump     uint8
	ListedAt uint64
}

// Fee splits price into the treasury fee and the seller's proceeds.
func Fee(price uint64, feeBps uint16) (fee, proceeds uint64, err error) {
	if feeBps > MaxFeeBps {
		return 0, 0, fmt.Errorf("%w: %d", ErrFeeOutOfRange, feeBps)
	}
	fee, err = common.MulDiv(price, uint64(feeBps), MaxFeeBps)
	if err != nil {
		return 0, 0, err
	}
	return fee, price - fee, nil
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return fmt.Errorf("%w: got %d", ErrInvalidName, len(name))
	}
	// Names travel through trimmed RPC and CLI parameters.
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	}
	return nil
}
