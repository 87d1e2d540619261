package state

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SchemaVersion is the record layout this binary reads and writes. Bump it
// whenever an account or program record changes shape.
const SchemaVersion uint32 = 1

// ErrSchemaMismatch is returned when the database was written by a binary
// with a different record layout.
var ErrSchemaMismatch = errors.New("state: schema version mismatch")

// schemaKey lives outside the committed prefixes so it never affects Root.
var schemaKey = []byte("meta/schema")

// StoredSchema returns the version stamped on the database, if any.
func (m *Manager) StoredSchema() (uint32, bool, error) {
	raw, ok, err := readKey(m.db, schemaKey)
	if err != nil || !ok {
		return 0, false, err
	}
	if len(raw) != 4 {
		return 0, false, fmt.Errorf("state: corrupt schema stamp (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint32(raw), true, nil
}

func (m *Manager) stampSchema(version uint32) error {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], version)
	return m.db.Put(schemaKey, raw[:])
}

// EnsureSchema stamps a fresh database with SchemaVersion and rejects one
// stamped with any other version.
func (m *Manager) EnsureSchema() error {
	version, ok, err := m.StoredSchema()
	if err != nil {
		return err
	}
	switch {
	case !ok:
		return m.stampSchema(SchemaVersion)
	case version != SchemaVersion:
		return fmt.Errorf("%w: database=%d binary=%d", ErrSchemaMismatch, version, SchemaVersion)
	default:
		return nil
	}
}
