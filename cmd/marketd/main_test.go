package main

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/config"
)

func TestResolveGenesisPath(t *testing.T) {
	env := map[string]string{}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	require.Equal(t, "", resolveGenesisPath("", "", lookup))
	require.Equal(t, "cfg.json", resolveGenesisPath("", " cfg.json ", lookup))

	env[genesisPathEnv] = "env.json"
	require.Equal(t, "env.json", resolveGenesisPath("", "cfg.json", lookup))
	require.Equal(t, "flag.json", resolveGenesisPath("flag.json", "cfg.json", lookup))

	env[genesisPathEnv] = "  "
	require.Equal(t, "cfg.json", resolveGenesisPath("", "cfg.json", lookup))
}

func TestExportStateFromSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = config.BackendSQLite
	out := filepath.Join(t.TempDir(), "ledger.parquet")

	require.NoError(t, exportState(cfg, out, slog.Default()))
	require.FileExists(t, out)
	require.FileExists(t, cfg.StorageDSN())

	cfg.Storage.Backend = "redis"
	require.Error(t, exportState(cfg, out, slog.Default()))
}

func TestOpenDatabaseLevelDB(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	db, err := openDatabase(cfg, slog.Default())
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	db.Close()
}
