package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Database is the key-value store the ledger state is kept in. Values handed
// out are copies; callers may retain and mutate them.
type Database interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// Write applies every operation in the batch atomically.
	Write(batch *Batch) error
	// Iterate visits keys sharing prefix in ascending order until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	Close()
}

type mutation struct {
	key, value []byte
	remove     bool
}

// Batch collects writes that must become visible together.
type Batch struct {
	muts []mutation
}

func NewBatch() *Batch { return new(Batch) }

func (b *Batch) Put(key, value []byte) {
	b.muts = append(b.muts, mutation{key: clone(key), value: clone(value)})
}

func (b *Batch) Delete(key []byte) {
	b.muts = append(b.muts, mutation{key: clone(key), remove: true})
}

// Len reports the number of queued operations.
func (b *Batch) Len() int { return len(b.muts) }

func (b *Batch) empty() bool { return b == nil || len(b.muts) == 0 }

func clone(b []byte) []byte { return append([]byte(nil), b...) }
