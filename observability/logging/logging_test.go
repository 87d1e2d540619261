package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, Options{Service: "marketd", Env: "test", Level: "debug"})
	logger.Debug("listing created", slog.String("program", "marketplace"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "listing created", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "marketd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketd.log")
	logger := SetupWithOptions(Options{Service: "marketd", File: path})
	logger.Info("started")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"message":"started"`)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("passphrase", "hunter2").Value.String())
	require.Equal(t, "marketplace", MaskField("program", "marketplace").Value.String())
	require.Equal(t, "", MaskField("passphrase", "").Value.String())
}

func TestMaskDSN(t *testing.T) {
	require.Equal(t, "/var/lib/market/ledger.db", MaskDSN("dsn", "/var/lib/market/ledger.db").Value.String())

	masked := MaskDSN("dsn", "postgres://ledger:s3cret@db:5432/market?sslmode=disable").Value.String()
	require.NotContains(t, masked, "s3cret")
	require.Contains(t, masked, "ledger:xxxxx@db:5432/market")

	require.Equal(t, RedactedValue, MaskDSN("dsn", "host=db user=ledger password=s3cret").Value.String())
}
