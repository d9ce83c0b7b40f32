// Package app wires configuration into the agent's components. It is shared
// by every command under cmd/.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"solana-survival-agent/internal/config"
	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/engine"
	"solana-survival-agent/internal/executor"
	"solana-survival-agent/internal/identity"
	"solana-survival-agent/internal/journal"
	"solana-survival-agent/internal/jupiter"
	"solana-survival-agent/internal/logging"
	"solana-survival-agent/internal/observability"
	"solana-survival-agent/internal/oracle"
	"solana-survival-agent/internal/radar"
	"solana-survival-agent/internal/scanner"
	"solana-survival-agent/internal/security"
	"solana-survival-agent/internal/solana"
	"solana-survival-agent/internal/storage"
	chstore "solana-survival-agent/internal/storage/clickhouse"
	"solana-survival-agent/internal/storage/memory"
	"solana-survival-agent/internal/storage/migrations"
	pgstore "solana-survival-agent/internal/storage/postgres"
	"solana-survival-agent/internal/storage/sqlite"
	"solana-survival-agent/internal/tribute"
)

// Stores holds the audit trail backends. Snapshots is nil without ClickHouse.
type Stores struct {
	Outcomes  storage.OutcomeStore
	Tributes  storage.TributeStore
	Snapshots storage.SnapshotStore
}

// OpenStores opens the configured backend and runs its migrations. The
// returned cleanup closes every connection.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores := &Stores{}
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		stores.Outcomes = memory.NewOutcomeStore()
		stores.Tributes = memory.NewTributeStore()
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.Outcomes = pgstore.NewOutcomeStore(pool)
		stores.Tributes = pgstore.NewTributeStore(pool)
	default:
		db, err := sqlite.NewDB(cfg.SQLitePath())
		if err != nil {
			return nil, cleanup, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		stores.Outcomes = sqlite.NewOutcomeStore(db)
		stores.Tributes = sqlite.NewTributeStore(db)
	}

	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.Snapshots = chstore.NewSnapshotStore(conn)
	}
	return stores, cleanup, nil
}

// Agent is the fully wired agent.
type Agent struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Identity   *identity.Identity
	Ledger     *solana.HTTPClient
	Oracle     *oracle.Oracle
	Aggregator *jupiter.Client
	Scorer     *security.Service
	Scanner    *scanner.Scanner // nil when scanning is disabled
	Executor   *executor.Executor
	Harvester  *tribute.Harvester
	Journal    *journal.Journal
	Stores     *Stores
	Engine     *engine.Engine

	closers []func()
}

// Close releases files and connections.
func (a *Agent) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// LoadConfig reads .env files, the optional YAML file and the environment,
// then validates the result.
func LoadConfig(path string) (*config.Config, error) {
	config.LoadEnvFiles(config.DefaultHome())
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger writes to stdout and the decision log under the agent home. The
// returned closer closes the decision log.
func NewLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	f, err := logging.OpenDecisionLog(cfg.ThoughtsLogPath())
	if err != nil {
		return logging.New(cfg.Agent.LogLevel), func() {}, err
	}
	return logging.New(cfg.Agent.LogLevel, os.Stdout, f), func() { f.Close() }, nil
}

// NewLedger returns an RPC client with transport retries disabled. A failed
// balance read is unknown for the rest of the cycle, and submission retries
// are owned by the executor.
func NewLedger(cfg *config.Config, opts ...solana.ClientOption) *solana.HTTPClient {
	base := []solana.ClientOption{
		solana.WithMaxRetries(0),
		solana.WithCommitment(cfg.Ledger.Commitment),
		solana.WithObserver(func(method string, d time.Duration, err error) {
			observability.RecordRPCLatency(method, d.Seconds(), err)
		}),
	}
	return solana.NewHTTPClient(cfg.Ledger.RPCURL, append(base, opts...)...)
}

// NewScorer builds the trust scorer. Birdeye is used only with a credential.
func NewScorer(cfg *config.Config, logger zerolog.Logger) *security.Service {
	var primary *security.BirdeyeClient
	if cfg.Security.BirdeyeAPIKey != "" {
		primary = security.NewBirdeyeClient(cfg.Security.BirdeyeURL, cfg.Security.BirdeyeAPIKey, cfg.Security.Timeout)
	}
	return security.New(security.Options{
		Primary:       primary,
		Fallback:      security.NewStrictList(cfg.Security.StrictListURL, cfg.Security.StrictListTTL, cfg.Security.Timeout),
		SafeCutoff:    cfg.Security.SafeCutoff,
		FallbackScore: cfg.Security.FallbackScore,
		Logger:        logging.Component(logger, "security"),
	})
}

// NewRadar builds the new-token radar.
func NewRadar(cfg *config.Config, scorer security.Scorer, logger zerolog.Logger) *radar.Radar {
	log := logging.Component(logger, "radar")
	return radar.New(radar.NewFeed(cfg.Radar.URL, nil, log), scorer, cfg.Radar.Keep, log)
}

// Build wires every component. The identity is created on first use.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Agent, error) {
	a := &Agent{Config: cfg, Logger: logger}

	id, err := identity.Load(cfg.WalletPath())
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	a.Identity = id
	if id.Created() {
		logger.Info().Str("address", id.Address()).Str("path", id.Path()).Msg("new identity created")
	}

	a.Ledger = NewLedger(cfg)
	a.Oracle, err = oracle.New(oracle.Options{
		RPC:            a.Ledger,
		Owner:          id.Address(),
		StableMint:     cfg.Survival.StableMint,
		StableDecimals: cfg.Survival.StableDecimals,
		ReadTimeout:    cfg.Ledger.ReadTimeout,
		Logger:         logging.Component(logger, "oracle"),
	})
	if err != nil {
		return nil, err
	}

	jopts := []jupiter.Option{
		jupiter.WithHTTPClient(&http.Client{Timeout: cfg.Jupiter.Timeout}),
		jupiter.WithPriorityFee(cfg.Jupiter.PriorityFeeLamports),
	}
	if cfg.Jupiter.APIKey != "" {
		jopts = append(jopts, jupiter.WithAPIKey(cfg.Jupiter.APIKey))
	}
	a.Aggregator = jupiter.New(cfg.JupiterURL(), jopts...)

	a.Executor = executor.New(executor.Options{
		RPC:            NewLedger(cfg),
		Aggregator:     a.Aggregator,
		Signer:         id,
		SlippageBps:    cfg.Jupiter.SlippageBps,
		SubmitAttempts: cfg.Ledger.SubmitAttempts,
		ConfirmTimeout: cfg.Ledger.ConfirmTimeout,
		PollInterval:   cfg.Ledger.PollInterval,
		Commitment:     cfg.Ledger.Commitment,
		Logger:         logging.Component(logger, "executor"),
	})

	a.Scorer = NewScorer(cfg, logger)
	if cfg.Scanner.Enabled {
		a.Scanner = scanner.New(scanner.Options{
			Source:       scanner.NewDexScreener(cfg.Scanner.BaseURL, cfg.Security.Timeout),
			Scorer:       a.Scorer,
			Query:        cfg.Scanner.Query,
			MinVolumeUSD: cfg.Scanner.MinVolumeUSD,
			MinPairAge:   cfg.Scanner.MinPairAge,
			Depth:        cfg.Scanner.Depth,
			MaxAccepted:  cfg.Scanner.MaxAccepted,
			Concurrency:  cfg.Scanner.Concurrency,
			Exclude:      []string{domain.NativeMint, cfg.Survival.StableMint},
			Logger:       logging.Component(logger, "scanner"),
		})
	}

	a.Journal, err = journal.Open(cfg.MissionLogPath())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { a.Journal.Close() })

	stores, cleanup, err := OpenStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Stores = stores
	a.closers = append(a.closers, cleanup)

	a.Harvester = tribute.New(tribute.Options{
		Balances: a.Oracle,
		Executor: a.Executor,
		Store:    stores.Tributes,
		Journal:  a.Journal,
		Config:   cfg.TributeConfig(),
		Mint:     cfg.Survival.StableMint,
		Decimals: cfg.Survival.StableDecimals,
		Logger:   logging.Component(logger, "tribute"),
	})

	opts := engine.Options{
		Balances:   a.Oracle,
		Executor:   a.Executor,
		Harvester:  a.Harvester,
		Outcomes:   stores.Outcomes,
		Journal:    a.Journal,
		Thresholds: cfg.Thresholds(),
		SwapSize:   cfg.Survival.DefaultSwapSize,
		InvestSize: cfg.InvestAmount(),
		StableMint: cfg.Survival.StableMint,
		Logger:     logging.Component(logger, "engine"),
	}
	// Interface fields stay nil rather than holding typed nil pointers.
	if a.Scanner != nil {
		opts.Scanner = a.Scanner
	}
	if stores.Snapshots != nil {
		opts.Snapshots = stores.Snapshots
	}
	a.Engine = engine.New(opts)
	return a, nil
}
