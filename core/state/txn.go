package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/storage"
)

var (
	// ErrUndeclaredAccount is returned when an instruction touches an address it
	// did not list up front.
	ErrUndeclaredAccount = errors.New("state: account not declared by instruction")
	// ErrTxnClosed is returned for any use of a committed or discarded Txn.
	ErrTxnClosed = errors.New("state: transaction already closed")
)

// Txn buffers every write of one ledger transaction. Nothing is visible to the
// database or other transactions until Commit applies the overlay as a single
// atomic batch; Discard drops it.
type Txn struct {
	db      storage.Database
	writes  map[string][]byte
	deleted map[string]struct{}
	allowed map[crypto.Address]struct{}
	closed  bool
}

func newTxn(db storage.Database) *Txn {
	return &Txn{
		db:      db,
		writes:  make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Restrict limits account access to addrs until the next call. Passing nil
// lifts the restriction.
func (t *Txn) Restrict(addrs []crypto.Address) {
	if addrs == nil {
		t.allowed = nil
		return
	}
	t.allowed = make(map[crypto.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		t.allowed[addr] = struct{}{}
	}
}

func (t *Txn) checkAccess(addr crypto.Address) error {
	if t.closed {
		return ErrTxnClosed
	}
	if t.allowed == nil {
		return nil
	}
	if _, ok := t.allowed[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	return nil
}

func (t *Txn) get(key []byte) ([]byte, bool, error) {
	k := string(key)
	if _, gone := t.deleted[k]; gone {
		return nil, false, nil
	}
	if v, ok := t.writes[k]; ok {
		return v, true, nil
	}
	return readKey(t.db, key)
}

func (t *Txn) put(key, value []byte) {
	k := string(key)
	delete(t.deleted, k)
	t.writes[k] = value
}

func (t *Txn) del(key []byte) {
	k := string(key)
	delete(t.writes, k)
	t.deleted[k] = struct{}{}
}

// GetAccount returns a copy of the account at addr as seen by this Txn.
func (t *Txn) GetAccount(addr crypto.Address) (*types.Account, bool, error) {
	if err := t.checkAccess(addr); err != nil {
		return nil, false, err
	}
	data, ok, err := t.get(accountKey(addr))
	if err != nil || !ok {
		return nil, ok, err
	}
	acc, err := decodeAccount(data)
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// AccountExists reports whether an account occupies addr.
func (t *Txn) AccountExists(addr crypto.Address) (bool, error) {
	if err := t.checkAccess(addr); err != nil {
		return false, err
	}
	_, ok, err := t.get(accountKey(addr))
	return ok, err
}

// PutAccount stages acc under addr.
func (t *Txn) PutAccount(addr crypto.Address, acc *types.Account) error {
	if err := t.checkAccess(addr); err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	encoded, err := rlp.EncodeToBytes(acc)
	if err != nil {
		return err
	}
	t.put(accountKey(addr), encoded)
	return nil
}

// DeleteAccount stages removal of the account at addr.
func (t *Txn) DeleteAccount(addr crypto.Address) error {
	if err := t.checkAccess(addr); err != nil {
		return err
	}
	t.del(accountKey(addr))
	return nil
}

// Nonce returns the transaction nonce of addr. Nonces bypass the account
// restriction since only the runtime maintains them.
func (t *Txn) Nonce(addr crypto.Address) (uint64, error) {
	if t.closed {
		return 0, ErrTxnClosed
	}
	data, ok, err := t.get(nonceKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	var nonce uint64
	if err := rlp.DecodeBytes(data, &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

func (t *Txn) SetNonce(addr crypto.Address, nonce uint64) error {
	if t.closed {
		return ErrTxnClosed
	}
	encoded, err := rlp.EncodeToBytes(nonce)
	if err != nil {
		return err
	}
	t.put(nonceKey(addr), encoded)
	return nil
}

// KVPut stages an RLP-encoded value under key.
func (t *Txn) KVPut(key []byte, value interface{}) error {
	if t.closed {
		return ErrTxnClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	t.put(kvKey(key), encoded)
	return nil
}

// Dirty reports the number of staged writes and deletions.
func (t *Txn) Dirty() int { return len(t.writes) + len(t.deleted) }

// Commit applies every staged change in one atomic batch and closes the Txn.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	keys := make([]string, 0, len(t.writes)+len(t.deleted))
	for k := range t.writes {
		keys = append(keys, k)
	}
	for k := range t.deleted {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, k := range keys {
		if v, ok := t.writes[k]; ok {
			batch.Put([]byte(k), v)
			continue
		}
		batch.Delete([]byte(k))
	}
	if err := t.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	t.closed = true
	return nil
}

// Discard drops every staged change. Safe to call after Commit.
func (t *Txn) Discard() {
	t.writes = make(map[string][]byte)
	t.deleted = make(map[string]struct{})
	t.closed = true
}
