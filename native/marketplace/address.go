package marketplace

import (
	"nftmarket/crypto"
	"nftmarket/native/token"
)

var (
	seedMarketplace = []byte("marketplace")
	seedTreasury    = []byte("treasury")
	seedRewards     = []byte("rewards")
)

func marketplaceSeeds(name string) [][]byte {
	return [][]byte{seedMarketplace, []byte(name)}
}

func treasurySeeds(market crypto.Address) [][]byte {
	return [][]byte{seedTreasury, market.Bytes()}
}

func rewardsSeeds(market crypto.Address) [][]byte {
	return [][]byte{seedRewards, market.Bytes()}
}

func listingSeeds(market, mint crypto.Address) [][]byte {
	return [][]byte{market.Bytes(), mint.Bytes()}
}

// MarketplaceAddress derives the marketplace address for name.
func MarketplaceAddress(name string) (crypto.Address, uint8, error) {
	if err := validateName(name); err != nil {
		return crypto.Address{}, 0, err
	}
	return crypto.FindProgramAddress(marketplaceSeeds(name), ProgramID)
}

// TreasuryAddress derives the fee treasury of a marketplace.
func TreasuryAddress(market crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(treasurySeeds(market), ProgramID)
}

// RewardsMintAddress derives the reward mint of a marketplace.
func RewardsMintAddress(market crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(rewardsSeeds(market), ProgramID)
}

// ListingAddress derives the listing address of mint within a marketplace.
func ListingAddress(market, mint crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(listingSeeds(market, mint), ProgramID)
}

// VaultAddress derives the escrow vault of a listing: the listing's
// associated holding for mint.
func VaultAddress(market, mint crypto.Address) (crypto.Address, error) {
	listing, _, err := ListingAddress(market, mint)
	if err != nil {
		return crypto.Address{}, err
	}
	vault, _, err := token.AssociatedAddress(listing, mint)
	return vault, err
}
