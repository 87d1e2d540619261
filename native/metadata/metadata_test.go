package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/state"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/native/token"
	"nftmarket/storage"
)

var (
	payer          = crypto.Address{0x01}
	creator        = crypto.Address{0x02}
	assetMint      = crypto.Address{0x03}
	collectionMint = crypto.Address{0x04}
	stranger       = crypto.Address{0x05}
)

func newTestContext(t *testing.T, signers ...crypto.Address) *common.Context {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	txn := state.NewManager(db).Begin()
	t.Cleanup(txn.Discard)
	ctx := common.NewContext(txn, ProgramID, signers, common.DefaultRent(), 0)
	require.NoError(t, bank.Credit(ctx, payer, 1_000_000_000))
	return ctx
}

func mintUnique(t *testing.T, ctx *common.Context, mint crypto.Address) {
	t.Helper()
	require.NoError(t, token.InitializeMint(ctx, payer, mint, 0, creator))
	holding, err := token.CreateAssociated(ctx, payer, creator, mint)
	require.NoError(t, err)
	require.NoError(t, token.MintTo(ctx, mint, holding, 1))
}

func TestCreateMetadataWithCollectionClaim(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint)
	mintUnique(t, ctx, assetMint)

	collection := collectionMint
	addr, err := CreateMetadata(ctx, payer, assetMint, &CreateArgs{
		Name:            "Sunset #1",
		Symbol:          "SUN",
		URI:             "https://example.com/sunset/1.json",
		UpdateAuthority: creator,
		Collection:      &collection,
	})
	require.NoError(t, err)
	want, _, err := MetadataAddress(assetMint)
	require.NoError(t, err)
	require.Equal(t, want, addr)

	record, err := Get(ctx, assetMint)
	require.NoError(t, err)
	require.Equal(t, "Sunset #1", record.Name)
	require.NotNil(t, record.Collection)
	require.False(t, record.Collection.Verified)
	require.False(t, record.VerifiedMember(collectionMint))

	_, err = CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: "again"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreateMetadataRequiresMintAuthority(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint)
	mintUnique(t, ctx, assetMint)

	unsigned := common.NewContext(ctx.State(), ProgramID, []crypto.Address{payer}, common.DefaultRent(), 0)
	_, err := CreateMetadata(unsigned, payer, assetMint, &CreateArgs{Name: "x"})
	require.ErrorIs(t, err, common.ErrMissingSignature)

	_, err = CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: string(make([]byte, MaxNameLength+1))})
	require.ErrorIs(t, err, ErrFieldTooLong)
}

func TestMasterEditionFreezesSupply(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint)
	mintUnique(t, ctx, assetMint)
	_, err := CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: "Sunset #1", UpdateAuthority: creator})
	require.NoError(t, err)

	edition, err := CreateMasterEdition(ctx, payer, assetMint, 0)
	require.NoError(t, err)
	record, err := GetEditionAt(ctx, edition)
	require.NoError(t, err)
	require.Equal(t, assetMint, record.Mint)

	mint, err := token.GetMint(ctx, assetMint)
	require.NoError(t, err)
	require.Equal(t, edition, mint.MintAuthority)

	holding, _, err := token.AssociatedAddress(creator, assetMint)
	require.NoError(t, err)
	require.ErrorIs(t, token.MintTo(ctx, assetMint, holding, 1), common.ErrMissingSignature)
}

func TestMasterEditionRejectsFungibleMint(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint)
	require.NoError(t, token.InitializeMint(ctx, payer, assetMint, 0, creator))
	holding, err := token.CreateAssociated(ctx, payer, creator, assetMint)
	require.NoError(t, err)
	require.NoError(t, token.MintTo(ctx, assetMint, holding, 2))
	_, err = CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: "Coin", UpdateAuthority: creator})
	require.NoError(t, err)

	_, err = CreateMasterEdition(ctx, payer, assetMint, 0)
	require.ErrorIs(t, err, ErrNotUniqueAsset)
}

func TestVerifyAndUnverifyCollection(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint, collectionMint)
	mintUnique(t, ctx, collectionMint)
	_, err := CreateMetadata(ctx, payer, collectionMint, &CreateArgs{Name: "Sunsets", UpdateAuthority: creator})
	require.NoError(t, err)

	mintUnique(t, ctx, assetMint)
	collection := collectionMint
	metaAddr, err := CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: "Sunset #1", UpdateAuthority: creator, Collection: &collection})
	require.NoError(t, err)

	require.ErrorIs(t, VerifyCollection(ctx, metaAddr, collectionMint, stranger), common.ErrUnauthorized)
	require.ErrorIs(t, VerifyCollection(ctx, metaAddr, assetMint, creator), ErrCollectionMismatch)

	require.NoError(t, VerifyCollection(ctx, metaAddr, collectionMint, creator))
	record, err := GetAt(ctx, metaAddr)
	require.NoError(t, err)
	require.True(t, record.VerifiedMember(collectionMint))

	require.NoError(t, UnverifyCollection(ctx, metaAddr, collectionMint, creator))
	record, err = GetAt(ctx, metaAddr)
	require.NoError(t, err)
	require.False(t, record.VerifiedMember(collectionMint))
}

func TestVerifyRequiresCollectionClaim(t *testing.T) {
	ctx := newTestContext(t, payer, creator, assetMint)
	mintUnique(t, ctx, assetMint)
	metaAddr, err := CreateMetadata(ctx, payer, assetMint, &CreateArgs{Name: "Loose", UpdateAuthority: creator})
	require.NoError(t, err)

	require.ErrorIs(t, VerifyCollection(ctx, metaAddr, collectionMint, creator), ErrNoCollection)
}
