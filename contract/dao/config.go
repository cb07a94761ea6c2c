package dao

import (
	"github.com/holiman/uint256"

	"debond_gov/sdk"
)

// Config names the accounts and assets the engine moves value between.
type Config struct {
	// Self is the vault address holding staked principal.
	Self          Address
	// Operator may veto vetoable classes and cancel any active proposal.
	Operator      Address
	// CommunityPool pays interest and vote rewards.
	CommunityPool Address

	PrincipalAsset   Asset
	RewardAsset      Asset
	MinStakeDuration int64 // seconds

	// MaxCallDepth bounds nested calls back into the engine during execution.
	MaxCallDepth int
}

func DefaultConfig() Config {
	return Config{
		Self:             "contract:debond_gov",
		Operator:         "hive:debond-operator",
		CommunityPool:    "contract:community_pool",
		PrincipalAsset:   sdk.AssetDGOV,
		RewardAsset:      sdk.AssetDBIT,
		MinStakeDuration: 1,
		MaxCallDepth:     4,
	}
}

func (c Config) Validate() error {
	for name, a := range map[string]Address{"self": c.Self, "operator": c.Operator, "community pool": c.CommunityPool} {
		if !a.IsValid() {
			return ErrInvalidConfig.withf("%s address %q", name, a)
		}
	}
	switch {
	case c.PrincipalAsset == "" || c.RewardAsset == "":
		return ErrInvalidConfig.withMsg("assets must be set")
	case c.MinStakeDuration < 1:
		return ErrInvalidConfig.withMsg("minimum stake duration must be at least one second")
	case c.MaxCallDepth < 1:
		return ErrInvalidConfig.withMsg("max call depth must be positive")
	}
	return nil
}

// GenesisBalance seeds one token balance at Init.
type GenesisBalance struct {
	Address Address
	Asset   Asset
	Amount  *uint256.Int
}

// Genesis is the initial parameter set written once by Init.
type Genesis struct {
	BenchmarkIR *uint256.Int
	Budget      Budget
	Classes     map[uint64]ClassConfig
	Balances    []GenesisBalance
}
