package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/common"
	"nftmarket/native/marketplace"
	"nftmarket/observability"
)

var (
	ErrBadNonce       = errors.New("core: nonce mismatch")
	ErrUnknownProgram = errors.New("core: unknown program")
	ErrPayerNotSigner = errors.New("core: payer did not sign")
)

// Receipt describes a committed (or simulated) transaction.
type Receipt struct {
	TxHash       string         `json:"txHash"`
	Payer        crypto.Address `json:"payer"`
	Nonce        uint64         `json:"nonce"`
	Instructions []string       `json:"instructions"`
	Events       []*types.Event `json:"events"`
}

// Option customises a Processor.
type Option func(*Processor)

// WithEmitter publishes committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(p *Processor) {
		if emitter != nil {
			p.emitter = emitter
		}
	}
}

// WithRent overrides the rent schedule.
func WithRent(rent common.Rent) Option {
	return func(p *Processor) { p.rent = rent }
}

// WithClock overrides the time source. Primarily for tests.
func WithClock(now func() int64) Option {
	return func(p *Processor) {
		if now != nil {
			p.nowFn = now
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMeter records processor instruments on meter instead of the global
// provider.
func WithMeter(meter metric.Meter) Option {
	return func(p *Processor) {
		if meter != nil {
			p.meter = meter
		}
	}
}

// Processor executes signed transactions against ledger state. Each
// transaction runs in its own state overlay that is committed as one atomic
// batch only when every instruction succeeds; conflicting transactions are
// serialized on account locks.
type Processor struct {
	state    *state.Manager
	programs map[crypto.Address]common.Program
	locks    *lockTable
	emitter  events.Emitter
	rent     common.Rent
	nowFn    func() int64
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	volume   metric.Int64Counter
}

// NewProcessor creates a processor with the default native programs.
func NewProcessor(st *state.Manager, opts ...Option) *Processor {
	p := &Processor{
		state:    st,
		programs: make(map[crypto.Address]common.Program),
		locks:    newLockTable(),
		emitter:  events.NoopEmitter{},
		rent:     common.DefaultRent(),
		nowFn:    func() int64 { return time.Now().Unix() },
		logger:   slog.Default().With(slog.String("component", "processor")),
		tracer:   otel.Tracer("nftmarket/core"),
		meter:    otel.Meter("nftmarket/core"),
	}
	for _, prog := range DefaultPrograms() {
		p.Register(prog)
	}
	for _, opt := range opts {
		opt(p)
	}
	volume, err := p.meter.Int64Counter("nftmarket.marketplace.volume",
		metric.WithDescription("Lamports paid for completed purchases."),
		metric.WithUnit("lamports"))
	if err == nil {
		p.volume = volume
	}
	return p
}

// Register adds or replaces a program.
func (p *Processor) Register(prog common.Program) {
	p.programs[prog.ID()] = prog
}

// State exposes committed state for queries.
func (p *Processor) State() *state.Manager { return p.state }

// Rent returns the rent schedule applied to account creation.
func (p *Processor) Rent() common.Rent { return p.rent }

// Process executes tx and commits its effects atomically.
func (p *Processor) Process(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	return p.execute(ctx, tx, true)
}

// Simulate executes tx without committing anything.
func (p *Processor) Simulate(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	return p.execute(ctx, tx, false)
}

func (p *Processor) execute(ctx context.Context, tx *types.Transaction, commit bool) (receipt *Receipt, err error) {
	if tx == nil {
		return nil, fmt.Errorf("core: nil transaction")
	}
	ctx, span := p.tracer.Start(ctx, "core.Process", trace.WithAttributes(
		attribute.Bool("commit", commit),
		attribute.Int("instructions", len(tx.Instructions)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if commit {
			observability.Ledger().ObserveTransaction(err)
		}
	}()

	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	signers, err := tx.Signers()
	if err != nil {
		return nil, err
	}
	if !containsAddress(signers, tx.Payer) {
		return nil, ErrPayerNotSigner
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	txHash := "0x" + hex.EncodeToString(hash)
	span.SetAttributes(attribute.String("tx", txHash))

	programs := make([]common.Program, len(tx.Instructions))
	lockSet := append([]crypto.Address{tx.Payer}, signers...)
	for i, ix := range tx.Instructions {
		prog, ok := p.programs[ix.Program]
		if !ok {
			return nil, fmt.Errorf("instruction %d: %w: %s", i, ErrUnknownProgram, ix.Program)
		}
		programs[i] = prog
		lockSet = append(lockSet, ix.Accounts...)
	}

	waitStart := time.Now()
	release, err := p.locks.acquire(ctx, lockSet)
	if err != nil {
		return nil, fmt.Errorf("core: acquire account locks: %w", err)
	}
	defer release()
	observability.Ledger().ObserveLockWait(time.Since(waitStart))

	txn := p.state.Begin()
	defer txn.Discard()

	nonce, err := txn.Nonce(tx.Payer)
	if err != nil {
		return nil, err
	}
	if nonce != tx.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBadNonce, nonce, tx.Nonce)
	}

	now := p.nowFn()
	receipt = &Receipt{TxHash: txHash, Payer: tx.Payer, Nonce: tx.Nonce}
	var emitted []*types.Event
	for i, ix := range tx.Instructions {
		prog := programs[i]
		op := prog.Describe(ix.Data)
		receipt.Instructions = append(receipt.Instructions, prog.Name()+"."+op)

		txn.Restrict(ix.Accounts)
		ictx := common.NewContext(txn, prog.ID(), signers, p.rent, now)
		start := time.Now()
		execErr := prog.Execute(ictx, ix.Accounts, ix.Data)
		if commit {
			observability.Ledger().ObserveInstruction(prog.Name(), op, execErr, time.Since(start))
		}
		if execErr != nil {
			p.logger.Debug("instruction failed",
				slog.String("tx", txHash),
				slog.Int("index", i),
				slog.String("program", prog.Name()),
				slog.String("op", op),
				slog.Any("error", execErr))
			return nil, fmt.Errorf("instruction %d (%s.%s): %w", i, prog.Name(), op, execErr)
		}
		emitted = append(emitted, ictx.Events()...)
	}
	txn.Restrict(nil)

	for _, evt := range emitted {
		if evt.Attributes == nil {
			evt.Attributes = map[string]string{}
		}
		evt.Attributes["tx"] = txHash
	}
	receipt.Events = emitted
	if !commit {
		return receipt, nil
	}

	if err := txn.SetNonce(tx.Payer, nonce+1); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		p.logger.Error("commit failed", slog.String("tx", txHash), slog.Any("error", err))
		return nil, err
	}
	for _, evt := range emitted {
		p.emitter.Emit(evt)
		p.recordVolume(ctx, evt)
	}
	p.logger.Info("transaction committed",
		slog.String("tx", txHash),
		slog.String("payer", tx.Payer.String()),
		slog.Uint64("nonce", tx.Nonce),
		slog.Int("events", len(emitted)))
	return receipt, nil
}

func (p *Processor) recordVolume(ctx context.Context, evt *types.Event) {
	if p.volume == nil || evt.Type != marketplace.EventTypePurchased {
		return
	}
	price, err := strconv.ParseUint(evt.Attributes["price"], 10, 64)
	if err != nil || price > math.MaxInt64 {
		p.logger.Debug("volume sample skipped",
			slog.String("listing", evt.Attributes["listing"]),
			slog.String("price", evt.Attributes["price"]))
		return
	}
	p.volume.Add(ctx, int64(price), metric.WithAttributes(attribute.String("marketplace", evt.Attributes["marketplace"])))
}

func containsAddress(list []crypto.Address, addr crypto.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}
