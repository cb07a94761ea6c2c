// Package config loads the host configuration: a YAML file, then DGOV_*
// environment overrides, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"debond_gov/contract/dao"
	"debond_gov/sdk"
)

// EnvPrefix is put in front of every environment override.
const EnvPrefix = "DGOV_"

type Config struct {
	Store      StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	Log        LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	Governance GovernanceConfig `yaml:"governance" envPrefix:"GOV_"`
}

type StoreConfig struct {
	// Backend is memory, badger or sqlite.
	Backend   string `yaml:"backend" env:"BACKEND"`
	Path      string `yaml:"path" env:"PATH"`
	CacheSize int    `yaml:"cache_size" env:"CACHE_SIZE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // json or console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Listen  string `yaml:"listen" env:"LISTEN"`
}

// GovernanceConfig carries the engine settings and its genesis. Amounts are
// decimal strings in the smallest unit.
type GovernanceConfig struct {
	Self             string        `yaml:"self" env:"SELF"`
	Operator         string        `yaml:"operator" env:"OPERATOR"`
	CommunityPool    string        `yaml:"community_pool" env:"COMMUNITY_POOL"`
	PrincipalAsset   string        `yaml:"principal_asset" env:"PRINCIPAL_ASSET"`
	RewardAsset      string        `yaml:"reward_asset" env:"REWARD_ASSET"`
	MinStakeDuration time.Duration `yaml:"min_stake_duration" env:"MIN_STAKE_DURATION"`
	MaxCallDepth     int           `yaml:"max_call_depth" env:"MAX_CALL_DEPTH"`

	ParamsTarget   string `yaml:"params_target" env:"PARAMS_TARGET"`
	TreasuryTarget string `yaml:"treasury_target" env:"TREASURY_TARGET"`
	TreasuryAsset  string `yaml:"treasury_asset" env:"TREASURY_ASSET"`

	GenesisTime int64           `yaml:"genesis_time" env:"GENESIS_TIME"`
	BenchmarkIR string          `yaml:"benchmark_ir" env:"BENCHMARK_IR"`
	Budget      BudgetConfig    `yaml:"budget" envPrefix:"BUDGET_"`
	Classes     []ClassConfig   `yaml:"classes" env:"-"`
	Balances    []BalanceConfig `yaml:"balances" env:"-"`
}

type BudgetConfig struct {
	DGOV string `yaml:"dgov" env:"DGOV"`
	DBIT string `yaml:"dbit" env:"DBIT"`
}

type ClassConfig struct {
	ID                uint64        `yaml:"id"`
	VotingPeriod      time.Duration `yaml:"voting_period"`
	QuorumBps         uint64        `yaml:"quorum_bps"`
	Approval          string        `yaml:"approval"`
	Vetoable          bool          `yaml:"vetoable"`
	ProposalThreshold string        `yaml:"proposal_threshold"`
	ExecutionDelay    time.Duration `yaml:"execution_delay"`
	RewardPerDay      string        `yaml:"reward_per_day"`
}

type BalanceConfig struct {
	Address string `yaml:"address"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

// Default is a runnable in-memory setup with a single simple-majority class.
func Default() *Config {
	d := dao.DefaultConfig()
	return &Config{
		Store:   StoreConfig{Backend: "memory", CacheSize: 4096},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Listen: ":9464"},
		Governance: GovernanceConfig{
			Self:             d.Self.String(),
			Operator:         d.Operator.String(),
			CommunityPool:    d.CommunityPool.String(),
			PrincipalAsset:   d.PrincipalAsset.String(),
			RewardAsset:      d.RewardAsset.String(),
			MinStakeDuration: time.Duration(d.MinStakeDuration) * time.Second,
			MaxCallDepth:     d.MaxCallDepth,
			ParamsTarget:     "contract:params",
			TreasuryTarget:   "contract:treasury",
			TreasuryAsset:    sdk.AssetDBIT.String(),
			BenchmarkIR:      "50000000000000000",
			Budget:           BudgetConfig{DGOV: "0", DBIT: "0"},
			Classes: []ClassConfig{{
				ID:                0,
				VotingPeriod:      72 * time.Hour,
				QuorumBps:         0,
				Approval:          dao.ApprovalSimpleMajority.String(),
				ProposalThreshold: "0",
				RewardPerDay:      "0",
			}},
		},
	}
}

// Load reads path (skipped when empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(raw, cfg); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode strictly unmarshals YAML into cfg; unknown keys are errors.
func Decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	switch c.Store.Backend {
	case "memory":
	case "badger", "sqlite":
		if c.Store.Path == "" {
			err = multierr.Append(err, fmt.Errorf("store.path is required for %s", c.Store.Backend))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("store.backend %q is not one of memory, badger, sqlite", c.Store.Backend))
	}
	if c.Store.CacheSize < 0 {
		err = multierr.Append(err, errors.New("store.cache_size must not be negative"))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		err = multierr.Append(err, fmt.Errorf("log.format %q is not json or console", c.Log.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		err = multierr.Append(err, errors.New("metrics.listen is required when metrics are enabled"))
	}
	_, _, berr := c.Governance.Build()
	return multierr.Append(err, berr)
}

// Build turns the governance section into engine settings and genesis.
func (g GovernanceConfig) Build() (dao.Config, dao.Genesis, error) {
	var err error
	cfg := dao.Config{
		Self:             dao.Address(g.Self),
		Operator:         dao.Address(g.Operator),
		CommunityPool:    dao.Address(g.CommunityPool),
		PrincipalAsset:   dao.Asset(g.PrincipalAsset),
		RewardAsset:      dao.Asset(g.RewardAsset),
		MinStakeDuration: int64(g.MinStakeDuration / time.Second),
		MaxCallDepth:     g.MaxCallDepth,
	}
	err = multierr.Append(err, cfg.Validate())

	gen := dao.Genesis{Classes: make(map[uint64]dao.ClassConfig, len(g.Classes))}
	gen.BenchmarkIR = amount(&err, "governance.benchmark_ir", g.BenchmarkIR)
	gen.Budget.DGOV = amount(&err, "governance.budget.dgov", g.Budget.DGOV)
	gen.Budget.DBIT = amount(&err, "governance.budget.dbit", g.Budget.DBIT)

	for i, c := range g.Classes {
		field := fmt.Sprintf("governance.classes[%d]", i)
		if _, dup := gen.Classes[c.ID]; dup {
			err = multierr.Append(err, fmt.Errorf("%s: class %d defined twice", field, c.ID))
			continue
		}
		mode, perr := dao.ParseApprovalMode(c.Approval)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("%s.approval: unknown mode %q", field, c.Approval))
		}
		cc := dao.ClassConfig{
			VotingPeriod:      int64(c.VotingPeriod / time.Second),
			QuorumBps:         c.QuorumBps,
			Approval:          mode,
			Vetoable:          c.Vetoable,
			ProposalThreshold: amount(&err, field+".proposal_threshold", c.ProposalThreshold),
			ExecutionDelay:    int64(c.ExecutionDelay / time.Second),
			RewardPerDay:      amount(&err, field+".reward_per_day", c.RewardPerDay),
		}
		if perr == nil {
			if verr := cc.Validate(); verr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", field, verr))
			}
		}
		gen.Classes[c.ID] = cc
	}
	for i, b := range g.Balances {
		field := fmt.Sprintf("governance.balances[%d]", i)
		if !sdk.Address(b.Address).IsValid() {
			err = multierr.Append(err, fmt.Errorf("%s.address: invalid %q", field, b.Address))
		}
		if !sdk.Asset(b.Asset).IsKnown() {
			err = multierr.Append(err, fmt.Errorf("%s.asset: unknown %q", field, b.Asset))
		}
		gen.Balances = append(gen.Balances, dao.GenesisBalance{
			Address: dao.Address(b.Address),
			Asset:   dao.Asset(b.Asset),
			Amount:  amount(&err, field+".amount", b.Amount),
		})
	}
	if g.ParamsTarget != "" && !sdk.Address(g.ParamsTarget).IsValid() {
		err = multierr.Append(err, fmt.Errorf("governance.params_target: invalid %q", g.ParamsTarget))
	}
	if g.TreasuryTarget != "" && !sdk.Address(g.TreasuryTarget).IsValid() {
		err = multierr.Append(err, fmt.Errorf("governance.treasury_target: invalid %q", g.TreasuryTarget))
	}
	if g.TreasuryTarget != "" && !sdk.Asset(g.TreasuryAsset).IsKnown() {
		err = multierr.Append(err, fmt.Errorf("governance.treasury_asset: unknown %q", g.TreasuryAsset))
	}
	if g.TreasuryTarget != "" && g.TreasuryAsset == g.PrincipalAsset {
		err = multierr.Append(err, fmt.Errorf("governance.treasury_asset: %q is the staked principal", g.TreasuryAsset))
	}
	return cfg, gen, err
}

// amount parses a decimal amount; empty means zero.
func amount(errs *error, field, s string) *uint256.Int {
	if s == "" {
		return new(uint256.Int)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %q is not a decimal amount", field, s))
		return new(uint256.Int)
	}
	return v
}
