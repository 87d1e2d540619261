// Package snapshot exports committed ledger state for audit and offline
// analysis.
package snapshot

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
)

// Row is one account in a snapshot file. Lamports is kept as a decimal
// string because parquet has no unsigned 64-bit physical type.
type Row struct {
	Address  string `parquet:"name=address, type=UTF8, encoding=PLAIN"`
	Owner    string `parquet:"name=owner, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Kind     string `parquet:"name=kind, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Lamports string `parquet:"name=lamports, type=UTF8, encoding=PLAIN"`
	Nonce    int64  `parquet:"name=nonce, type=INT64"`
	DataLen  int32  `parquet:"name=data_len, type=INT32"`
	Data     string `parquet:"name=data, type=UTF8, encoding=PLAIN"`
}

// Summary describes a written snapshot.
type Summary struct {
	Path     string
	Accounts int
	Lamports uint64
	Root     []byte
}

// Source is the committed state a snapshot reads from.
type Source interface {
	Walk(fn func(crypto.Address, *types.Account) bool) error
	Nonce(addr crypto.Address) (uint64, error)
	Root() ([]byte, error)
}

var _ Source = (*state.Manager)(nil)

// WriteParquet writes every committed account, in address order, to a
// snappy compressed parquet file at path. The state root is taken before the
// walk, so callers must not commit concurrently if they need the two to
// match.
func WriteParquet(path string, src Source) (*Summary, error) {
	root, err := src.Root()
	if err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(file), new(Row), 1)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	sum := &Summary{Path: path, Root: root}
	var writeErr error
	walkErr := src.Walk(func(addr crypto.Address, acc *types.Account) bool {
		nonce, err := src.Nonce(addr)
		if err != nil {
			writeErr = err
			return false
		}
		row := &Row{
			Address:  addr.String(),
			Owner:    acc.Owner.String(),
			Kind:     acc.Kind.String(),
			Lamports: strconv.FormatUint(acc.Lamports, 10),
			Nonce:    int64(nonce),
			DataLen:  int32(len(acc.Data)),
			Data:     hex.EncodeToString(acc.Data),
		}
		if err := pw.Write(row); err != nil {
			writeErr = fmt.Errorf("snapshot: write %s: %w", addr, err)
			return false
		}
		sum.Accounts++
		sum.Lamports += acc.Lamports
		return true
	})
	if walkErr == nil {
		walkErr = writeErr
	}
	if err := pw.WriteStop(); err != nil && walkErr == nil {
		walkErr = fmt.Errorf("snapshot: finalize: %w", err)
	}
	if err := file.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		os.Remove(path)
		return nil, walkErr
	}
	return sum, nil
}
