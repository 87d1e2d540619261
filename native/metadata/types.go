package metadata

import (
	"errors"

	"nftmarket/crypto"
	"nftmarket/native/common"
)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	// ProgramID owns metadata and master edition records.
	ProgramID = common.ProgramAddress("metadata")

	ErrFieldTooLong       = errors.New("metadata: field too long")
	ErrNotUniqueAsset     = errors.New("metadata: master edition requires supply 1 and zero decimals")
	ErrCollectionMismatch = errors.New("metadata: collection does not match")
	ErrNoCollection       = errors.New("metadata: asset has no collection")

	seedPrefix  = []byte("metadata")
	seedEdition = []byte("edition")
)

// Collection links an asset to the mint of its collection. Verified is set
// only by the collection's update authority.
type Collection struct {
	Key      crypto.Address
	Verified bool
}

// Metadata describes a mint.
type Metadata struct {
	Mint            crypto.Address
	UpdateAuthority crypto.Address
	Name            string
	Symbol          string
	URI             string
	Collection      *Collection `rlp:"nil"`
}

// VerifiedMember reports whether the record belongs to collection and the
// membership was verified.
func (m *Metadata) VerifiedMember(collection crypto.Address) bool {
	return m.Collection != nil && m.Collection.Key == collection && m.Collection.Verified
}

// MasterEdition marks a mint as a unique original. Once created the mint's
// authority belongs to the edition address so no further units can be issued.
type MasterEdition struct {
	Mint      crypto.Address
	Supply    uint64
	MaxSupply uint64
}
