package bank

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
	"nftmarket/storage"
)

func newTestContext(t *testing.T, signers ...crypto.Address) (*common.Context, *state.Txn) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	txn := state.NewManager(db).Begin()
	t.Cleanup(txn.Discard)
	return common.NewContext(txn, ProgramID, signers, common.DefaultRent(), 0), txn
}

func fund(t *testing.T, ctx *common.Context, addr crypto.Address, lamports uint64) {
	t.Helper()
	require.NoError(t, Credit(ctx, addr, lamports))
}

func TestTransferMovesLamports(t *testing.T) {
	alice := crypto.Address{0x01}
	bob := crypto.Address{0x02}
	ctx, _ := newTestContext(t, alice)
	fund(t, ctx, alice, 100)

	require.NoError(t, Transfer(ctx, alice, bob, 40))

	aliceBal, err := Balance(ctx, alice)
	require.NoError(t, err)
	bobBal, err := Balance(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(60), aliceBal)
	require.Equal(t, uint64(40), bobBal)
}

func TestTransferRequiresSignerAndFunds(t *testing.T) {
	alice := crypto.Address{0x01}
	bob := crypto.Address{0x02}
	ctx, _ := newTestContext(t, alice)
	fund(t, ctx, alice, 10)
	fund(t, ctx, bob, 10)

	require.ErrorIs(t, Transfer(ctx, bob, alice, 1), common.ErrMissingSignature)
	require.ErrorIs(t, Transfer(ctx, alice, bob, 11), common.ErrInsufficientFunds)
	require.NoError(t, Transfer(ctx, alice, bob, 0))
}

func TestCreateAccountChargesRentAndRejectsOccupied(t *testing.T) {
	payer := crypto.Address{0x01}
	fresh := crypto.Address{0x03}
	owner := crypto.Address{0x09}
	ctx, txn := newTestContext(t, payer, fresh)
	fund(t, ctx, payer, 10_000_000)

	data := []byte{1, 2, 3}
	require.NoError(t, CreateAccount(ctx, payer, fresh, owner, types.KindListing, data))

	acc, ok, err := txn.GetAccount(fresh)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, ctx.Rent().MinimumBalance(len(data)), acc.Lamports)

	err = CreateAccount(ctx, payer, fresh, owner, types.KindListing, data)
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestCreateAccountAdoptsPrefundedAddress(t *testing.T) {
	payer := crypto.Address{0x01}
	target := crypto.Address{0x04}
	ctx, txn := newTestContext(t, payer, target)
	fund(t, ctx, payer, 10_000_000)
	fund(t, ctx, target, 5)

	require.NoError(t, CreateAccount(ctx, payer, target, crypto.Address{0x09}, types.KindListing, nil))
	acc, _, err := txn.GetAccount(target)
	require.NoError(t, err)
	require.Equal(t, ctx.Rent().MinimumBalance(0), acc.Lamports)
}

func TestCloseReturnsLamportsToDestination(t *testing.T) {
	payer := crypto.Address{0x01}
	target := crypto.Address{0x05}
	ctx, txn := newTestContext(t, payer, target)
	fund(t, ctx, payer, 10_000_000)
	require.NoError(t, CreateAccount(ctx, payer, target, ProgramID, types.KindListing, []byte{1}))
	before, err := Balance(ctx, payer)
	require.NoError(t, err)

	require.NoError(t, Close(ctx, target, payer))
	exists, err := txn.AccountExists(target)
	require.NoError(t, err)
	require.False(t, exists)
	after, err := Balance(ctx, payer)
	require.NoError(t, err)
	require.Equal(t, before+ctx.Rent().MinimumBalance(1), after)

	require.ErrorIs(t, Close(ctx, target, payer), common.ErrNotFound)
}

func TestCloseRejectsForeignOwner(t *testing.T) {
	payer := crypto.Address{0x01}
	target := crypto.Address{0x06}
	ctx, _ := newTestContext(t, payer, target)
	fund(t, ctx, payer, 10_000_000)
	require.NoError(t, CreateAccount(ctx, payer, target, crypto.Address{0x77}, types.KindListing, nil))

	require.ErrorIs(t, Close(ctx, target, payer), common.ErrInvalidOwner)
}

func TestProgramExecuteTransfer(t *testing.T) {
	alice := crypto.Address{0x01}
	bob := crypto.Address{0x02}
	ctx, _ := newTestContext(t, alice)
	fund(t, ctx, alice, 50)

	instr, err := NewTransferInstruction(alice, bob, 20)
	require.NoError(t, err)
	prog := NewProgram()
	require.Equal(t, "transfer", prog.Describe(instr.Data))
	require.NoError(t, prog.Execute(ctx, instr.Accounts, instr.Data))

	bal, err := Balance(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(20), bal)
	evts := ctx.Events()
	require.Len(t, evts, 1)
	require.Equal(t, "20", evts[0].Attributes["lamports"])

	require.ErrorIs(t, prog.Execute(ctx, instr.Accounts[:1], instr.Data), common.ErrInvalidInstruction)
}
