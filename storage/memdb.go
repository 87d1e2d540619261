package storage

import (
	"sort"
	"strings"
	"sync"
)

// MemDB keeps everything in a map. Used by tests and dry runs.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if value, ok := db.data[string(key)]; ok {
		return clone(value), nil
	}
	return nil, ErrNotFound
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	_, ok := db.data[string(key)]
	db.mu.RUnlock()
	return ok, nil
}

func (db *MemDB) Put(key, value []byte) error {
	db.mu.Lock()
	db.data[string(key)] = clone(value)
	db.mu.Unlock()
	return nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	delete(db.data, string(key))
	db.mu.Unlock()
	return nil
}

func (db *MemDB) Write(batch *Batch) error {
	if batch.empty() {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, m := range batch.muts {
		if m.remove {
			delete(db.data, string(m.key))
		} else {
			db.data[string(m.key)] = m.value
		}
	}
	return nil
}

// Iterate works on a snapshot taken under the read lock, so fn may write
// back into the database.
func (db *MemDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	type entry struct{ key, value []byte }
	p := string(prefix)

	db.mu.RLock()
	entries := make([]entry, 0, len(db.data))
	for k, v := range db.data {
		if strings.HasPrefix(k, p) {
			entries = append(entries, entry{[]byte(k), clone(v)})
		}
	}
	db.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return string(entries[i].key) < string(entries[j].key) })
	for _, e := range entries {
		if !fn(e.key, e.value) {
			break
		}
	}
	return nil
}

func (db *MemDB) Close() {}
