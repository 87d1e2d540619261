package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the on-disk Database used by marketd.
type LevelDB struct {
	db   *leveldb.DB
	sync *opt.WriteOptions
}

// NewLevelDB opens (creating if needed) the database directory at path.
// Batch writes are fsynced; single-key writes are not.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return &LevelDB{db: db, sync: &opt.WriteOptions{Sync: true}}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (l *LevelDB) Has(key []byte) (bool, error) { return l.db.Has(key, nil) }

func (l *LevelDB) Put(key, value []byte) error { return l.db.Put(key, value, nil) }

func (l *LevelDB) Delete(key []byte) error { return l.db.Delete(key, nil) }

func (l *LevelDB) Write(batch *Batch) error {
	if batch.empty() {
		return nil
	}
	var lb leveldb.Batch
	for _, m := range batch.muts {
		if m.remove {
			lb.Delete(m.key)
		} else {
			lb.Put(m.key, m.value)
		}
	}
	return l.db.Write(&lb, l.sync)
}

func (l *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	it := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !fn(clone(it.Key()), clone(it.Value())) {
			break
		}
	}
	return it.Error()
}

func (l *LevelDB) Close() {
	_ = l.db.Close()
}
