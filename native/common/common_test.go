package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/state"
	"nftmarket/crypto"
	"nftmarket/storage"
)

func TestCheckedMath(t *testing.T) {
	sum, err := CheckedAdd(1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), sum)
	_, err = CheckedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = CheckedSub(1, 2)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	q, err := MulDiv(math.MaxUint64, 250, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64/10_000*250+(math.MaxUint64%10_000)*250/10_000), q)
	_, err = MulDiv(math.MaxUint64, 3, 2)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
	_, err = MulDiv(1, 1, 0)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestRentMinimumBalance(t *testing.T) {
	rent := DefaultRent()
	require.Equal(t, uint64(128*3480*2), rent.MinimumBalance(0))
	require.Equal(t, uint64((128+82)*3480*2), rent.MinimumBalance(82))
}

func TestInvokeGrantsOnlyOwnDerivations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	txn := state.NewManager(db).Begin()
	defer txn.Discard()

	program := crypto.Address{0xAA}
	other := crypto.Address{0xBB}
	seeds := [][]byte{[]byte("treasury")}
	derived, bump, err := crypto.FindProgramAddress(seeds, program)
	require.NoError(t, err)

	ctx := NewContext(txn, program, nil, DefaultRent(), 0)
	require.ErrorIs(t, ctx.RequireSigner(derived), ErrMissingSignature)

	child, err := ctx.Invoke(other, SeedsWithBump(seeds, bump))
	require.NoError(t, err)
	require.True(t, child.IsSigner(derived))
	require.Equal(t, other, child.Program())
	require.False(t, ctx.IsSigner(derived), "grant must not leak into the caller")

	foreign := NewContext(txn, other, nil, DefaultRent(), 0)
	forged, err := foreign.Invoke(program, SeedsWithBump(seeds, bump))
	if err == nil {
		require.False(t, forged.IsSigner(derived))
	} else {
		require.ErrorIs(t, err, ErrAddressMismatch)
	}
}

func TestInvokeDepthLimit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	txn := state.NewManager(db).Begin()
	defer txn.Discard()

	ctx := NewContext(txn, crypto.Address{0x01}, nil, DefaultRent(), 0)
	var err error
	for i := 0; i < MaxInvokeDepth; i++ {
		ctx, err = ctx.Invoke(crypto.Address{byte(i + 2)})
		require.NoError(t, err)
	}
	_, err = ctx.Invoke(crypto.Address{0xFF})
	require.ErrorIs(t, err, ErrInvokeDepth)
}
