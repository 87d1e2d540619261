package core

import (
	"context"
	"sort"
	"sync"

	"nftmarket/crypto"
)

// lockTable serializes transactions that touch the same accounts. Locks are
// always taken in ascending address order so two transactions can never wait
// on each other.
type lockTable struct {
	mu    sync.Mutex
	locks map[crypto.Address]*accountLock
}

type accountLock struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[crypto.Address]*accountLock)}
}

func (t *lockTable) ref(addr crypto.Address) *accountLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[addr]
	if !ok {
		l = &accountLock{ch: make(chan struct{}, 1)}
		t.locks[addr] = l
	}
	l.refs++
	return l
}

func (t *lockTable) unref(addr crypto.Address, l *accountLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, addr)
	}
}

// acquire locks every address in addrs, blocking until they are free or ctx
// is done. The returned function releases them.
func (t *lockTable) acquire(ctx context.Context, addrs []crypto.Address) (func(), error) {
	ordered := uniqueSorted(addrs)
	held := make([]crypto.Address, 0, len(ordered))
	heldLocks := make([]*accountLock, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-heldLocks[i].ch
			t.unref(held[i], heldLocks[i])
		}
	}
	for _, addr := range ordered {
		l := t.ref(addr)
		select {
		case l.ch <- struct{}{}:
			held = append(held, addr)
			heldLocks = append(heldLocks, l)
		case <-ctx.Done():
			t.unref(addr, l)
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

func uniqueSorted(addrs []crypto.Address) []crypto.Address {
	out := make([]crypto.Address, 0, len(addrs))
	seen := make(map[crypto.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
