package trie

import (
	"testing"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"nftmarket/storage"
)

func TestRootOfEmptySelection(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, db.Put([]byte("other/x"), []byte("1")))

	root, err := Root(db, []byte("account/"))
	require.NoError(t, err)
	require.Equal(t, gethtypes.EmptyRootHash, root)
}

func TestRootIgnoresInsertionOrderAndUnselectedKeys(t *testing.T) {
	a := storage.NewMemDB()
	require.NoError(t, a.Put([]byte("account/seller"), []byte("10")))
	require.NoError(t, a.Put([]byte("account/buyer"), []byte("20")))
	require.NoError(t, a.Put([]byte("tmp/scratch"), []byte("x")))

	b := storage.NewMemDB()
	require.NoError(t, b.Put([]byte("account/buyer"), []byte("20")))
	require.NoError(t, b.Put([]byte("account/seller"), []byte("10")))

	rootA, err := Root(a, []byte("account/"))
	require.NoError(t, err)
	rootB, err := Root(b, []byte("account/"))
	require.NoError(t, err)
	require.Equal(t, rootA, rootB)
	require.NotEqual(t, gethtypes.EmptyRootHash, rootA)
}

func TestRootTracksValueChanges(t *testing.T) {
	db, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("account/vault"), []byte("1")))
	before, err := Root(db, []byte("account/"))
	require.NoError(t, err)

	require.NoError(t, db.Put([]byte("account/vault"), []byte("0")))
	after, err := Root(db, []byte("account/"))
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}
