package trie

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethtrie "github.com/ethereum/go-ethereum/trie"

	"nftmarket/storage"
)

type leaf struct {
	key   []byte
	value []byte
}

// Root computes the Merkle-Patricia root committing to every entry of db whose
// key starts with one of prefixes. Keys are keccak256 hashed before insertion
// so the result does not depend on key length or layout. An empty selection
// yields the canonical empty root.
func Root(db storage.Database, prefixes ...[]byte) (common.Hash, error) {
	var leaves []leaf
	for _, prefix := range prefixes {
		err := db.Iterate(prefix, func(key, value []byte) bool {
			if len(value) > 0 {
				leaves = append(leaves, leaf{key: crypto.Keccak256(key), value: value})
			}
			return true
		})
		if err != nil {
			return common.Hash{}, err
		}
	}
	if len(leaves) == 0 {
		return gethtypes.EmptyRootHash, nil
	}
	// The stack trie only accepts keys in ascending order.
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i].key, leaves[j].key) < 0 })

	st := gethtrie.NewStackTrie(nil)
	for _, l := range leaves {
		if err := st.Update(l.key, l.value); err != nil {
			return common.Hash{}, err
		}
	}
	return st.Hash(), nil
}
