package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db)
}

func TestTxnIsolatedUntilCommit(t *testing.T) {
	mgr := newTestManager(t)
	addr := crypto.Address{0x01}

	txn := mgr.Begin()
	require.NoError(t, txn.PutAccount(addr, &types.Account{Lamports: 42, Kind: types.KindSystem}))

	staged, ok, err := txn.GetAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), staged.Lamports)

	_, ok, err = mgr.GetAccount(addr)
	require.NoError(t, err)
	require.False(t, ok, "uncommitted writes must not be visible")

	require.NoError(t, txn.Commit())
	committed, ok, err := mgr.GetAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), committed.Lamports)

	require.ErrorIs(t, txn.PutAccount(addr, committed), ErrTxnClosed)
}

func TestTxnDiscardLeavesNoTrace(t *testing.T) {
	mgr := newTestManager(t)
	keep := crypto.Address{0x02}
	drop := crypto.Address{0x03}

	seed := mgr.Begin()
	require.NoError(t, seed.PutAccount(keep, &types.Account{Lamports: 10}))
	require.NoError(t, seed.Commit())

	txn := mgr.Begin()
	require.NoError(t, txn.DeleteAccount(keep))
	require.NoError(t, txn.PutAccount(drop, &types.Account{Lamports: 5}))
	require.NoError(t, txn.SetNonce(keep, 9))
	require.Equal(t, 3, txn.Dirty())
	txn.Discard()

	acc, ok, err := mgr.GetAccount(keep)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), acc.Lamports)
	_, ok, err = mgr.GetAccount(drop)
	require.NoError(t, err)
	require.False(t, ok)
	nonce, err := mgr.Nonce(keep)
	require.NoError(t, err)
	require.Zero(t, nonce)
}

func TestTxnDeleteThenRecreate(t *testing.T) {
	mgr := newTestManager(t)
	addr := crypto.Address{0x04}
	seed := mgr.Begin()
	require.NoError(t, seed.PutAccount(addr, &types.Account{Lamports: 1}))
	require.NoError(t, seed.Commit())

	txn := mgr.Begin()
	require.NoError(t, txn.DeleteAccount(addr))
	exists, err := txn.AccountExists(addr)
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, txn.PutAccount(addr, &types.Account{Lamports: 2}))
	require.NoError(t, txn.Commit())

	acc, ok, err := mgr.GetAccount(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), acc.Lamports)
}

func TestTxnRestrict(t *testing.T) {
	mgr := newTestManager(t)
	declared := crypto.Address{0x05}
	other := crypto.Address{0x06}

	txn := mgr.Begin()
	defer txn.Discard()
	txn.Restrict([]crypto.Address{declared})

	_, _, err := txn.GetAccount(declared)
	require.NoError(t, err)
	_, _, err = txn.GetAccount(other)
	require.ErrorIs(t, err, ErrUndeclaredAccount)
	require.ErrorIs(t, txn.PutAccount(other, &types.Account{}), ErrUndeclaredAccount)

	txn.Restrict(nil)
	require.NoError(t, txn.PutAccount(other, &types.Account{}))
}

func TestManagerAccountsByKind(t *testing.T) {
	mgr := newTestManager(t)
	txn := mgr.Begin()
	require.NoError(t, txn.PutAccount(crypto.Address{0x09}, &types.Account{Kind: types.KindListing}))
	require.NoError(t, txn.PutAccount(crypto.Address{0x08}, &types.Account{Kind: types.KindListing}))
	require.NoError(t, txn.PutAccount(crypto.Address{0x07}, &types.Account{Kind: types.KindMint}))
	require.NoError(t, txn.Commit())

	var found []crypto.Address
	require.NoError(t, mgr.Accounts(types.KindListing, func(addr crypto.Address, _ *types.Account) bool {
		found = append(found, addr)
		return true
	}))
	require.Equal(t, []crypto.Address{{0x08}, {0x09}}, found)
}

func TestEnsureSchema(t *testing.T) {
	mgr := newTestManager(t)
	_, ok, err := mgr.StoredSchema()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mgr.EnsureSchema())
	version, ok, err := mgr.StoredSchema()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, SchemaVersion, version)
	require.NoError(t, mgr.EnsureSchema())

	require.NoError(t, mgr.stampSchema(SchemaVersion+1))
	require.ErrorIs(t, mgr.EnsureSchema(), ErrSchemaMismatch)
}

func TestRootChangesOnlyOnCommit(t *testing.T) {
	mgr := newTestManager(t)
	empty, err := mgr.Root()
	require.NoError(t, err)

	txn := mgr.Begin()
	require.NoError(t, txn.PutAccount(crypto.Address{0x07}, &types.Account{Lamports: 1, Kind: types.KindSystem}))
	staged, err := mgr.Root()
	require.NoError(t, err)
	require.Equal(t, empty, staged)

	require.NoError(t, txn.Commit())
	committed, err := mgr.Root()
	require.NoError(t, err)
	require.NotEqual(t, empty, committed)

	require.NoError(t, mgr.EnsureSchema())
	afterVersion, err := mgr.Root()
	require.NoError(t, err)
	require.Equal(t, committed, afterVersion, "schema metadata is not part of the commitment")
}
