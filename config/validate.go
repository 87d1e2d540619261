package config

import (
	"fmt"
	"strings"
)

// Validate rejects settings the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if c.RPCReadHeaderTimeout < 0 || c.RPCReadTimeout < 0 || c.RPCWriteTimeout < 0 || c.RPCIdleTimeout < 0 {
		return fmt.Errorf("rpc timeouts must not be negative")
	}
	if c.EventHistory <= 0 {
		return fmt.Errorf("EventHistory must be positive")
	}
	if c.Rent.ExemptionYears == 0 {
		return fmt.Errorf("rent: ExemptionYears must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit: RequestsPerSecond must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when limiting")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	switch c.StorageBackend() {
	case BackendLevelDB, BackendSQLite:
	case BackendPostgres:
		if !strings.HasPrefix(c.StorageDSN(), "postgres://") && !strings.HasPrefix(c.StorageDSN(), "postgresql://") {
			return fmt.Errorf("storage: postgres backend needs a postgres:// DSN")
		}
	default:
		return fmt.Errorf("storage: unknown Backend %q", c.Storage.Backend)
	}
	if c.RPCAuth.Enabled && strings.TrimSpace(c.RPCAuth.SecretEnv) == "" {
		return fmt.Errorf("rpc_auth: SecretEnv required when enabled")
	}
	return nil
}
