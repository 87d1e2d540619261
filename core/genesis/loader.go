package genesis

import (
	"errors"
	"fmt"

	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/native/bank"
)

var appliedKey = []byte("genesis/applied")

// Apply credits every allocation as a bank wallet in one transaction and
// stamps the genesis time. It returns false, leaving state untouched, when
// the database already carries a genesis stamp.
func Apply(spec *Spec, manager *state.Manager) (bool, error) {
	if spec == nil || manager == nil {
		return false, errors.New("genesis: spec and state manager are required")
	}
	var stamped uint64
	done, err := manager.KVGet(appliedKey, &stamped)
	if err != nil {
		return false, fmt.Errorf("genesis: read stamp: %w", err)
	}
	if done {
		return false, nil
	}

	txn := manager.Begin()
	defer txn.Discard()
	for _, alloc := range spec.Allocations() {
		acc, ok, err := txn.GetAccount(alloc.Address)
		if err != nil {
			return false, fmt.Errorf("genesis: load %s: %w", alloc.Address, err)
		}
		if !ok {
			acc = &types.Account{Owner: bank.ProgramID, Kind: types.KindSystem}
		}
		acc.Lamports = alloc.Lamports
		if err := txn.PutAccount(alloc.Address, acc); err != nil {
			return false, fmt.Errorf("genesis: credit %s: %w", alloc.Address, err)
		}
	}
	if err := txn.KVPut(appliedKey, uint64(spec.Time().Unix())); err != nil {
		return false, err
	}
	if err := txn.Commit(); err != nil {
		return false, fmt.Errorf("genesis: commit: %w", err)
	}
	return true, nil
}
