package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/storage"
	"nftmarket/storage/trie"
)

// Manager provides read access to committed ledger state and opens Txn
// overlays for mutations. Writes reach the database only through Txn.Commit.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a new write overlay on top of committed state.
func (m *Manager) Begin() *Txn {
	return newTxn(m.db)
}

func decodeAccount(data []byte) (*types.Account, error) {
	acc := new(types.Account)
	if err := rlp.DecodeBytes(data, acc); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return acc, nil
}

func readKey(db storage.Database, key []byte) ([]byte, bool, error) {
	data, err := db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// GetAccount returns the committed account stored under addr.
func (m *Manager) GetAccount(addr crypto.Address) (*types.Account, bool, error) {
	data, ok, err := readKey(m.db, accountKey(addr))
	if err != nil || !ok {
		return nil, ok, err
	}
	acc, err := decodeAccount(data)
	if err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// Nonce returns the committed transaction nonce of addr.
func (m *Manager) Nonce(addr crypto.Address) (uint64, error) {
	data, ok, err := readKey(m.db, nonceKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	var nonce uint64
	if err := rlp.DecodeBytes(data, &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// Walk visits every committed account in address order until fn returns
// false.
func (m *Manager) Walk(fn func(crypto.Address, *types.Account) bool) error {
	var walkErr error
	err := m.db.Iterate(accountPrefix, func(key, value []byte) bool {
		addr, err := crypto.BytesToAddress(key[len(accountPrefix):])
		if err != nil {
			walkErr = err
			return false
		}
		acc, err := decodeAccount(value)
		if err != nil {
			walkErr = fmt.Errorf("state: account %s: %w", addr, err)
			return false
		}
		return fn(addr, acc)
	})
	if err != nil {
		return err
	}
	return walkErr
}

// Accounts visits every committed account of the given kind in address order.
func (m *Manager) Accounts(kind types.AccountKind, fn func(crypto.Address, *types.Account) bool) error {
	return m.Walk(func(addr crypto.Address, acc *types.Account) bool {
		if acc.Kind != kind {
			return true
		}
		return fn(addr, acc)
	})
}

// KVGet retrieves the committed value stored under the supplied key and decodes
// it into out. The boolean return value indicates whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := readKey(m.db, kvKey(key))
	if err != nil || !ok {
		return ok, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Root returns the Merkle-Patricia commitment over committed accounts, nonces
// and program key-values.
func (m *Manager) Root() ([]byte, error) {
	root, err := trie.Root(m.db, accountPrefix, noncePrefix, kvPrefix)
	if err != nil {
		return nil, fmt.Errorf("state: root: %w", err)
	}
	return root.Bytes(), nil
}
