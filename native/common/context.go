package common

import (
	"fmt"

	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
)

// MaxInvokeDepth bounds nested program invocations.
const MaxInvokeDepth = 4

// Context is handed to a program for the duration of one instruction. It
// carries the transaction's state overlay, the executing program and the set
// of addresses that have authorised the call.
type Context struct {
	txn     *state.Txn
	program crypto.Address
	signers map[crypto.Address]struct{}
	rent    Rent
	now     int64
	depth   int
	events  *[]*types.Event
}

// NewContext creates the top-level context for an instruction.
func NewContext(txn *state.Txn, program crypto.Address, signers []crypto.Address, rent Rent, now int64) *Context {
	set := make(map[crypto.Address]struct{}, len(signers))
	for _, s := range signers {
		set[s] = struct{}{}
	}
	events := make([]*types.Event, 0)
	return &Context{
		txn:     txn,
		program: program,
		signers: set,
		rent:    rent,
		now:     now,
		events:  &events,
	}
}

func (c *Context) State() *state.Txn       { return c.txn }
func (c *Context) Program() crypto.Address { return c.program }
func (c *Context) Rent() Rent              { return c.rent }
func (c *Context) Now() int64              { return c.now }

// IsSigner reports whether addr authorised the current invocation, either by
// signing the transaction or through a derived-address grant.
func (c *Context) IsSigner(addr crypto.Address) bool {
	_, ok := c.signers[addr]
	return ok
}

// RequireSigner fails with ErrMissingSignature unless addr is a signer.
func (c *Context) RequireSigner(addr crypto.Address) error {
	if !c.IsSigner(addr) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return nil
}

// Invoke returns a context for calling callee from the current program.
// Every seed set (bump included as the final seed) is re-derived under the
// current program and the resulting address is granted signer rights inside
// the callee. Only the program that owns a derivation can sign for it.
func (c *Context) Invoke(callee crypto.Address, signerSeeds ...[][]byte) (*Context, error) {
	if c.depth+1 > MaxInvokeDepth {
		return nil, ErrInvokeDepth
	}
	signers := make(map[crypto.Address]struct{}, len(c.signers)+len(signerSeeds))
	for s := range c.signers {
		signers[s] = struct{}{}
	}
	for _, seeds := range signerSeeds {
		addr, err := crypto.CreateProgramAddress(seeds, c.program)
		if err != nil {
			return nil, fmt.Errorf("%w: signer seeds: %v", ErrAddressMismatch, err)
		}
		signers[addr] = struct{}{}
	}
	return &Context{
		txn:     c.txn,
		program: callee,
		signers: signers,
		rent:    c.rent,
		now:     c.now,
		depth:   c.depth + 1,
		events:  c.events,
	}, nil
}

// Emit buffers an event. The runtime publishes buffered events only after the
// transaction commits.
func (c *Context) Emit(evt *types.Event) {
	if evt == nil {
		return
	}
	*c.events = append(*c.events, evt)
}

// Events returns the events buffered so far by this instruction tree.
func (c *Context) Events() []*types.Event {
	out := make([]*types.Event, len(*c.events))
	copy(out, *c.events)
	return out
}

// SeedsWithBump appends the bump byte to a seed list.
func SeedsWithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}
