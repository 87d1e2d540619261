package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/native/marketplace"
	"nftmarket/storage"
)

func newTestProcessor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewProcessor(state.NewManager(db), opts...)
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func credit(t *testing.T, p *Processor, addr crypto.Address, lamports uint64) {
	t.Helper()
	txn := p.State().Begin()
	defer txn.Discard()
	ctx := common.NewContext(txn, bank.ProgramID, nil, p.Rent(), 0)
	require.NoError(t, bank.Credit(ctx, addr, lamports))
	require.NoError(t, txn.Commit())
}

func signedTransfer(t *testing.T, key *crypto.PrivateKey, nonce uint64, to crypto.Address, lamports uint64) *types.Transaction {
	t.Helper()
	ix, err := bank.NewTransferInstruction(key.Address(), to, lamports)
	require.NoError(t, err)
	tx := &types.Transaction{Payer: key.Address(), Nonce: nonce, Instructions: []types.Instruction{ix}}
	require.NoError(t, tx.Sign(key))
	return tx
}

func balance(t *testing.T, p *Processor, addr crypto.Address) uint64 {
	t.Helper()
	acc, ok, err := p.State().GetAccount(addr)
	require.NoError(t, err)
	if !ok {
		return 0
	}
	return acc.Lamports
}

func TestProcessCommitsAndBumpsNonce(t *testing.T) {
	recorder := events.NewRecorder(8)
	p := newTestProcessor(t, WithEmitter(recorder))
	alice := newKey(t)
	bob := crypto.Address{0x0b}
	credit(t, p, alice.Address(), 1_000)

	receipt, err := p.Process(context.Background(), signedTransfer(t, alice, 0, bob, 400))
	require.NoError(t, err)
	require.Equal(t, []string{"bank.transfer"}, receipt.Instructions)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, receipt.TxHash, receipt.Events[0].Attributes["tx"])

	require.Equal(t, uint64(600), balance(t, p, alice.Address()))
	require.Equal(t, uint64(400), balance(t, p, bob))
	nonce, err := p.State().Nonce(alice.Address())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
	require.Len(t, recorder.Recent(0), 1)
}

func TestProcessRejectsReplayedNonce(t *testing.T) {
	p := newTestProcessor(t)
	alice := newKey(t)
	credit(t, p, alice.Address(), 1_000)

	tx := signedTransfer(t, alice, 0, crypto.Address{0x0b}, 1)
	_, err := p.Process(context.Background(), tx)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), tx)
	require.ErrorIs(t, err, ErrBadNonce)
}

func TestProcessFailureIsAtomic(t *testing.T) {
	recorder := events.NewRecorder(8)
	p := newTestProcessor(t, WithEmitter(recorder))
	alice := newKey(t)
	bob := crypto.Address{0x0b}
	credit(t, p, alice.Address(), 100)

	first, err := bank.NewTransferInstruction(alice.Address(), bob, 60)
	require.NoError(t, err)
	second, err := bank.NewTransferInstruction(alice.Address(), bob, 60)
	require.NoError(t, err)
	tx := &types.Transaction{Payer: alice.Address(), Instructions: []types.Instruction{first, second}}
	require.NoError(t, tx.Sign(alice))

	_, err = p.Process(context.Background(), tx)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)
	require.Contains(t, err.Error(), "instruction 1 (bank.transfer)")

	require.Equal(t, uint64(100), balance(t, p, alice.Address()))
	require.Zero(t, balance(t, p, bob))
	nonce, err := p.State().Nonce(alice.Address())
	require.NoError(t, err)
	require.Zero(t, nonce)
	require.Empty(t, recorder.Recent(0))
}

func TestProcessRequiresPayerSignature(t *testing.T) {
	p := newTestProcessor(t)
	alice := newKey(t)
	mallory := newKey(t)
	credit(t, p, alice.Address(), 100)

	ix, err := bank.NewTransferInstruction(alice.Address(), mallory.Address(), 10)
	require.NoError(t, err)
	tx := &types.Transaction{Payer: alice.Address(), Instructions: []types.Instruction{ix}}
	require.NoError(t, tx.Sign(mallory))

	_, err = p.Process(context.Background(), tx)
	require.ErrorIs(t, err, ErrPayerNotSigner)
}

func TestProcessRejectsUnknownProgram(t *testing.T) {
	p := newTestProcessor(t)
	alice := newKey(t)
	tx := &types.Transaction{
		Payer:        alice.Address(),
		Instructions: []types.Instruction{{Program: common.ProgramAddress("nope")}},
	}
	require.NoError(t, tx.Sign(alice))

	_, err := p.Process(context.Background(), tx)
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestSimulateLeavesStateUntouched(t *testing.T) {
	p := newTestProcessor(t)
	alice := newKey(t)
	bob := crypto.Address{0x0b}
	credit(t, p, alice.Address(), 100)

	receipt, err := p.Simulate(context.Background(), signedTransfer(t, alice, 0, bob, 25))
	require.NoError(t, err)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, uint64(100), balance(t, p, alice.Address()))
	require.Zero(t, balance(t, p, bob))
}

func TestProcessUsesClock(t *testing.T) {
	p := newTestProcessor(t, WithClock(func() int64 { return 42 }))
	require.Equal(t, int64(42), p.nowFn())
}

func TestLockTableSerializesOverlappingSets(t *testing.T) {
	table := newLockTable()
	a, b := crypto.Address{0x01}, crypto.Address{0x02}

	release, err := table.acquire(context.Background(), []crypto.Address{b, a, a})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = table.acquire(ctx, []crypto.Address{a})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := table.acquire(context.Background(), []crypto.Address{{0x03}})
	require.NoError(t, err)
	other()

	release()
	again, err := table.acquire(context.Background(), []crypto.Address{a, b})
	require.NoError(t, err)
	again()
	require.Empty(t, table.locks)
}

func TestRecordVolumeSkipsUnrepresentablePrices(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	p := newTestProcessor(t, WithMeter(provider.Meter("test")))

	purchase := func(price string) *types.Event {
		return &types.Event{Type: marketplace.EventTypePurchased, Attributes: map[string]string{
			"marketplace": "mkt1market",
			"price":       price,
		}}
	}
	ctx := context.Background()
	p.recordVolume(ctx, purchase("250"))
	p.recordVolume(ctx, purchase("18446744073709551615"))
	p.recordVolume(ctx, purchase("not-a-number"))
	p.recordVolume(ctx, &types.Event{Type: marketplace.EventTypeListed, Attributes: map[string]string{"price": "99"}})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var total int64
	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "nftmarket.marketplace.volume" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			found = true
		}
	}
	require.True(t, found)
	require.Equal(t, int64(250), total)
}
