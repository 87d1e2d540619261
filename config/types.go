package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Rent prices account storage for newly created ledger accounts.
type Rent struct {
	LamportsPerByteYear uint64 `toml:"LamportsPerByteYear"`
	ExemptionYears      uint64 `toml:"ExemptionYears"`
}

// Log configures the structured logger.
type Log struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry selects the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	// Headers is a comma separated key=value list sent with every export.
	Headers string `toml:"Headers"`
	Traces  bool   `toml:"Traces"`
	Metrics bool   `toml:"Metrics"`
	// SampleRatio keeps this fraction of root traces; 0 keeps all.
	SampleRatio     float64 `toml:"SampleRatio"`
	MetricIntervalS int     `toml:"MetricIntervalSeconds"`
}

// RPCAuth guards state-changing RPC methods with HMAC signed bearer tokens.
type RPCAuth struct {
	Enabled   bool   `toml:"Enabled"`
	SecretEnv string `toml:"SecretEnv"`
	Issuer    string `toml:"Issuer"`
	Audience  string `toml:"Audience"`
}

// Secret reads the signing secret from the configured environment variable.
func (a RPCAuth) Secret() ([]byte, error) {
	if !a.Enabled {
		return nil, nil
	}
	name := strings.TrimSpace(a.SecretEnv)
	if name == "" {
		return nil, fmt.Errorf("rpc_auth: SecretEnv required when enabled")
	}
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return nil, fmt.Errorf("rpc_auth: environment variable %s is empty", name)
	}
	return []byte(value), nil
}

// RateLimit bounds RPC requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

// ReadHeaderTimeout and friends convert the configured seconds for http.Server.
func (c *Config) ReadHeaderTimeout() time.Duration { return seconds(c.RPCReadHeaderTimeout) }
func (c *Config) ReadTimeout() time.Duration       { return seconds(c.RPCReadTimeout) }
func (c *Config) WriteTimeout() time.Duration      { return seconds(c.RPCWriteTimeout) }
func (c *Config) IdleTimeout() time.Duration       { return seconds(c.RPCIdleTimeout) }

// Storage backends accepted in [storage] Backend.
const (
	BackendLevelDB  = "leveldb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Storage selects where ledger state is kept.
type Storage struct {
	// Backend is leveldb (default), sqlite or postgres.
	Backend string `toml:"Backend"`
	// DSN is a postgres:// URL for postgres or a file path for sqlite. Empty
	// selects ledger.db inside DataDir for sqlite.
	DSN string `toml:"DSN"`
}

// StorageBackend returns the normalised backend name.
func (c *Config) StorageBackend() string {
	if b := strings.ToLower(strings.TrimSpace(c.Storage.Backend)); b != "" {
		return b
	}
	return BackendLevelDB
}

// StorageDSN returns the location handed to the selected backend: the
// DataDir for leveldb, a file or URL for the SQL backends.
func (c *Config) StorageDSN() string {
	dsn := strings.TrimSpace(c.Storage.DSN)
	switch c.StorageBackend() {
	case BackendLevelDB:
		return c.DataDir
	case BackendSQLite:
		if dsn == "" {
			return filepath.Join(c.DataDir, "ledger.db")
		}
	}
	return dsn
}
