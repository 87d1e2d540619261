package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nftmarket/config"
	"nftmarket/core"
	"nftmarket/core/events"
	"nftmarket/core/genesis"
	"nftmarket/core/snapshot"
	"nftmarket/core/state"
	"nftmarket/native/common"
	"nftmarket/observability"
	"nftmarket/observability/logging"
	telemetry "nftmarket/observability/otel"
	"nftmarket/rpc"
	"nftmarket/storage"
)

const (
	genesisPathEnv = "MARKET_GENESIS"
	serviceName    = "marketd"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides MARKET_GENESIS and config GenesisFile)")
	exportFlag := flag.String("export-state", "", "Write a parquet snapshot of committed accounts to this file and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv("MARKET_ENV"))
	if env == "" {
		env = cfg.Log.Env
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service:    serviceName,
		Env:        env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	if *exportFlag != "" {
		if err := exportState(cfg, *exportFlag, logger); err != nil {
			logger.Error("state export failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, env, resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv), logger); err != nil {
		logger.Error("marketd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, env, genesisPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		Environment:    env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		Network:        cfg.NetworkName,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: time.Duration(cfg.Telemetry.MetricIntervalS) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := manager.EnsureSchema(); err != nil {
		return err
	}
	if genesisPath != "" {
		spec, err := genesis.Load(genesisPath)
		if err != nil {
			return err
		}
		if err := spec.CheckNetwork(cfg.NetworkName); err != nil {
			return err
		}
		applied, err := genesis.Apply(spec, manager)
		if err != nil {
			return err
		}
		logger.Info("genesis checked",
			slog.String("path", genesisPath),
			slog.Bool("applied", applied),
			slog.Int("allocations", len(spec.Allocations())),
			slog.Uint64("supply", spec.Supply()))
	}

	recorder := events.NewRecorder(cfg.EventHistory)
	emitter := events.Fanout{recorder, observability.Market()}
	proc := core.NewProcessor(manager,
		core.WithEmitter(emitter),
		core.WithLogger(logger.With(slog.String("component", "processor"))),
		core.WithRent(common.Rent{
			LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
			ExemptionYears:      cfg.Rent.ExemptionYears,
		}),
	)

	secret, err := cfg.RPCAuth.Secret()
	if err != nil {
		return err
	}
	server := rpc.NewServer(proc, recorder, rpc.Options{
		Logger: logger,
		Auth: rpc.AuthConfig{
			Enabled:  cfg.RPCAuth.Enabled,
			Secret:   secret,
			Issuer:   cfg.RPCAuth.Issuer,
			Audience: cfg.RPCAuth.Audience,
		},
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       cfg.IdleTimeout(),
	})
	if cfg.RPCAuth.Enabled {
		logger.Info("rpc authentication enabled",
			logging.MaskField("issuer", cfg.RPCAuth.Issuer),
			logging.MaskField("audience", cfg.RPCAuth.Audience))
	}
	root, err := manager.Root()
	if err != nil {
		return err
	}
	logger.Info("marketd ready",
		slog.String("network", cfg.NetworkName),
		slog.String("state_root", hex.EncodeToString(root)),
		slog.String("storage", cfg.StorageBackend()),
		slog.String("rpc", cfg.RPCAddress))
	return server.Serve(ctx, cfg.RPCAddress)
}

// openDatabase opens the ledger store selected by [storage] Backend.
func openDatabase(cfg *config.Config, logger *slog.Logger) (storage.Database, error) {
	backend, dsn := cfg.StorageBackend(), cfg.StorageDSN()
	var (
		db  storage.Database
		err error
	)
	switch backend {
	case config.BackendLevelDB:
		db, err = storage.NewLevelDB(dsn)
	case config.BackendSQLite, config.BackendPostgres:
		db, err = storage.OpenSQL(dsn)
	default:
		err = fmt.Errorf("unknown storage backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}
	logger.Info("ledger storage opened", slog.String("backend", backend), logging.MaskDSN("dsn", dsn))
	return db, nil
}

// exportState writes a parquet snapshot of committed accounts. The node must
// not be running against the same leveldb directory.
func exportState(cfg *config.Config, path string, logger *slog.Logger) error {
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	manager := state.NewManager(db)
	if err := manager.EnsureSchema(); err != nil {
		return err
	}
	sum, err := snapshot.WriteParquet(path, manager)
	if err != nil {
		return err
	}
	logger.Info("state exported",
		slog.String("path", sum.Path),
		slog.Int("accounts", sum.Accounts),
		slog.Uint64("lamports", sum.Lamports),
		slog.String("state_root", hex.EncodeToString(sum.Root)))
	return nil
}

// resolveGenesisPath picks the genesis file: flag first, then environment,
// then config.
func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if lookup != nil {
		if v, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(configValue)
}
