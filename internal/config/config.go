// Package config holds the agent's tunables, loaded from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"solana-survival-agent/internal/domain"
	"solana-survival-agent/internal/solana"
)

// Endpoint defaults.
const (
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	JupiterFreeURL       = "https://lite-api.jup.ag/swap/v1"
	JupiterKeyedURL      = "https://api.jup.ag/swap/v1"
	DefaultBirdeyeURL    = "https://public-api.birdeye.so"
	DefaultStrictListURL = "https://token.jup.ag/strict"
	DefaultDexScreener   = "https://api.dexscreener.com"
	DefaultRadarURL      = "wss://pumpportal.fun/api/data"
)

// File names under the agent home.
const (
	WalletFile  = "solana-wallet.json"
	MissionLog  = "mission.log"
	ThoughtsLog = "thoughts.log"
	SQLiteFile  = "agent.db"
	EnvFile     = ".env"
	homeDirName = ".automaton"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Agent captures process-wide runtime settings.
type Agent struct {
	Home              string        `yaml:"home"`
	LogLevel          string        `yaml:"log_level"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HTTPAddr          string        `yaml:"http_addr"`
}

// Ledger configures the RPC node and transaction confirmation.
type Ledger struct {
	RPCURL         string        `yaml:"rpc_url"`
	Commitment     string        `yaml:"commitment"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	SubmitAttempts int           `yaml:"submit_attempts"`
}

// Survival holds the tier thresholds and spend sizes. Amounts in whole units.
type Survival struct {
	ReserveFloor    decimal.Decimal `yaml:"reserve_floor"`
	LowWaterMark    decimal.Decimal `yaml:"low_water_mark"`
	DefaultSwapSize decimal.Decimal `yaml:"default_swap_size"`
	InvestSize      decimal.Decimal `yaml:"invest_size"`
	StableMint      string          `yaml:"stable_mint"`
	StableDecimals  int32           `yaml:"stable_decimals"`
}

// Tribute configures surplus forwarding. An empty recipient disables it.
type Tribute struct {
	Recipient string          `yaml:"recipient"`
	Threshold decimal.Decimal `yaml:"threshold"`
}

// Jupiter configures the swap aggregator.
type Jupiter struct {
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	SlippageBps         int           `yaml:"slippage_bps"`
	PriorityFeeLamports uint64        `yaml:"priority_fee_lamports"`
	Timeout             time.Duration `yaml:"timeout"`
}

// Security configures the trust scorer.
type Security struct {
	BirdeyeURL    string        `yaml:"birdeye_url"`
	BirdeyeAPIKey string        `yaml:"birdeye_api_key"`
	StrictListURL string        `yaml:"strict_list_url"`
	StrictListTTL time.Duration `yaml:"strict_list_ttl"`
	SafeCutoff    int           `yaml:"safe_cutoff"`
	FallbackScore int           `yaml:"fallback_score"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Scanner configures the opportunity scan.
type Scanner struct {
	Enabled      bool          `yaml:"enabled"`
	BaseURL      string        `yaml:"base_url"`
	Query        string        `yaml:"query"`
	MinVolumeUSD float64       `yaml:"min_volume_usd"`
	MinPairAge   time.Duration `yaml:"min_pair_age"`
	Depth        int           `yaml:"depth"`
	MaxAccepted  int           `yaml:"max_accepted"`
	Concurrency  int           `yaml:"concurrency"`
}

// Storage selects the audit trail backends.
type Storage struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// Radar configures the new-token websocket feed.
type Radar struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Keep    int    `yaml:"keep"`
}

// Config collects every configuration leaf.
type Config struct {
	Agent    Agent    `yaml:"agent"`
	Ledger   Ledger   `yaml:"ledger"`
	Survival Survival `yaml:"survival"`
	Tribute  Tribute  `yaml:"tribute"`
	Jupiter  Jupiter  `yaml:"jupiter"`
	Security Security `yaml:"security"`
	Scanner  Scanner  `yaml:"scanner"`
	Storage  Storage  `yaml:"storage"`
	Radar    Radar    `yaml:"radar"`
}

// Default returns the built-in tunables. None of these values is asserted to be
// correct for every deployment; they are starting points.
func Default() *Config {
	return &Config{
		Agent: Agent{
			LogLevel:          "info",
			HeartbeatInterval: 10 * time.Second,
			HTTPAddr:          ":8080",
		},
		Ledger: Ledger{
			RPCURL:         DefaultRPCURL,
			Commitment:     solana.CommitmentConfirmed,
			ReadTimeout:    8 * time.Second,
			ConfirmTimeout: 60 * time.Second,
			PollInterval:   2 * time.Second,
			SubmitAttempts: 3,
		},
		Survival: Survival{
			ReserveFloor:    decimal.RequireFromString("0.015"),
			LowWaterMark:    decimal.NewFromInt(5),
			DefaultSwapSize: decimal.RequireFromString("0.05"),
			StableMint:      domain.USDCMint,
			StableDecimals:  6,
		},
		Tribute: Tribute{
			Threshold: decimal.NewFromInt(50),
		},
		Jupiter: Jupiter{
			SlippageBps: 50,
			Timeout:     15 * time.Second,
		},
		Security: Security{
			BirdeyeURL:    DefaultBirdeyeURL,
			StrictListURL: DefaultStrictListURL,
			StrictListTTL: 10 * time.Minute,
			SafeCutoff:    60,
			FallbackScore: 70,
			Timeout:       15 * time.Second,
		},
		Scanner: Scanner{
			Enabled:      true,
			BaseURL:      DefaultDexScreener,
			Query:        "solana",
			MinVolumeUSD: 100_000,
			MinPairAge:   24 * time.Hour,
			Depth:        10,
			MaxAccepted:  3,
			Concurrency:  4,
		},
		Storage: Storage{
			Backend: StorageSQLite,
		},
		Radar: Radar{
			URL:  DefaultRadarURL,
			Keep: 50,
		},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadEnvFiles loads KEY=VALUE pairs from ./.env and <home>/.env without
// overriding variables already set. Missing files are ignored.
func LoadEnvFiles(home string) {
	for _, path := range []string{EnvFile, filepath.Join(home, EnvFile)} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("AGENT_HOME", &c.Agent.Home)
	set("LOG_LEVEL", &c.Agent.LogLevel)
	set("SOLANA_RPC_URL", &c.Ledger.RPCURL)
	set("JUPITER_API_KEY", &c.Jupiter.APIKey)
	set("BIRDEYE_API_KEY", &c.Security.BirdeyeAPIKey)
	set("MASTER_WALLET", &c.Tribute.Recipient)
	set("STORAGE_BACKEND", &c.Storage.Backend)
	set("SQLITE_PATH", &c.Storage.SQLitePath)
	set("POSTGRES_DSN", &c.Storage.PostgresDSN)
	set("CLICKHOUSE_DSN", &c.Storage.ClickHouseDSN)
}

// HomeDir returns the agent home, defaulting to ~/.automaton.
func (c *Config) HomeDir() string {
	if c.Agent.Home != "" {
		return c.Agent.Home
	}
	return DefaultHome()
}

// DefaultHome returns ~/.automaton, or ./.automaton when the user home is unknown.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return homeDirName
	}
	return filepath.Join(home, homeDirName)
}

// WalletPath is the identity secret location.
func (c *Config) WalletPath() string { return filepath.Join(c.HomeDir(), WalletFile) }

// MissionLogPath is the append-only journal location.
func (c *Config) MissionLogPath() string { return filepath.Join(c.HomeDir(), MissionLog) }

// ThoughtsLogPath is the decision log location.
func (c *Config) ThoughtsLogPath() string { return filepath.Join(c.HomeDir(), ThoughtsLog) }

// SQLitePath returns the configured SQLite file or the default under home.
func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.HomeDir(), SQLiteFile)
}

// JupiterURL picks the keyed endpoint when an API key is present.
func (c *Config) JupiterURL() string {
	if c.Jupiter.BaseURL != "" {
		return c.Jupiter.BaseURL
	}
	if c.Jupiter.APIKey != "" {
		return JupiterKeyedURL
	}
	return JupiterFreeURL
}

// InvestAmount returns the native amount per investment.
func (c *Config) InvestAmount() decimal.Decimal {
	if c.Survival.InvestSize.IsPositive() {
		return c.Survival.InvestSize
	}
	return c.Survival.DefaultSwapSize
}

// Thresholds returns the tier thresholds.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		ReserveFloor: c.Survival.ReserveFloor,
		LowWaterMark: c.Survival.LowWaterMark,
	}
}

// TributeConfig returns the harvester configuration.
func (c *Config) TributeConfig() domain.TributeConfig {
	return domain.TributeConfig{
		Recipient: c.Tribute.Recipient,
		Threshold: c.Tribute.Threshold,
	}
}

// Validate checks the configuration for values that would make the agent unsafe.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Ledger.RPCURL == "" {
		fail("ledger.rpc_url is required")
	}
	switch c.Ledger.Commitment {
	case solana.CommitmentProcessed, solana.CommitmentConfirmed, solana.CommitmentFinalized:
	default:
		fail("ledger.commitment %q not one of processed|confirmed|finalized", c.Ledger.Commitment)
	}
	if c.Ledger.SubmitAttempts < 1 {
		fail("ledger.submit_attempts must be at least 1")
	}
	if c.Ledger.ReadTimeout <= 0 || c.Ledger.ConfirmTimeout <= 0 || c.Ledger.PollInterval <= 0 {
		fail("ledger timeouts must be positive")
	}
	if !c.Survival.ReserveFloor.IsPositive() {
		fail("survival.reserve_floor must be positive")
	}
	if !c.Survival.DefaultSwapSize.IsPositive() {
		fail("survival.default_swap_size must be positive")
	}
	if c.Survival.LowWaterMark.IsNegative() || c.Survival.InvestSize.IsNegative() {
		fail("survival thresholds must not be negative")
	}
	if c.Survival.StableMint == "" || c.Survival.StableDecimals < 0 {
		fail("survival.stable_mint and stable_decimals are required")
	}
	if c.Tribute.Threshold.IsNegative() {
		fail("tribute.threshold must not be negative")
	}
	if c.Tribute.Threshold.LessThan(c.Survival.LowWaterMark) {
		fail("tribute.threshold %s below low water mark %s", c.Tribute.Threshold, c.Survival.LowWaterMark)
	}
	if c.Tribute.Recipient != "" && !solana.IsWalletAddress(c.Tribute.Recipient) {
		fail("tribute.recipient %q is not a wallet address", c.Tribute.Recipient)
	}
	if c.Jupiter.SlippageBps < 0 || c.Jupiter.SlippageBps > 10_000 {
		fail("jupiter.slippage_bps out of range")
	}
	if c.Security.SafeCutoff < 0 || c.Security.SafeCutoff > 100 || c.Security.FallbackScore < 0 || c.Security.FallbackScore > 100 {
		fail("security scores must be within 0..100")
	}
	if c.Scanner.MaxAccepted < 1 || c.Scanner.Depth < 1 || c.Scanner.Concurrency < 1 {
		fail("scanner depth, max_accepted and concurrency must be at least 1")
	}
	switch c.Storage.Backend {
	case StorageSQLite, StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			fail("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		fail("storage.backend %q not one of sqlite|postgres|memory", c.Storage.Backend)
	}

	return errors.Join(errs...)
}
