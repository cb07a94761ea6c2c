package dispatch

import (
	"fmt"

	"github.com/holiman/uint256"

	"debond_gov/contract/dao"
)

// ParamsABI is the governance parameter surface proposals can call.
const ParamsABI = `[
	{"type":"function","name":"updateBenchmarkInterestRate","stateMutability":"nonpayable",
	 "inputs":[{"name":"rate","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateBudget","stateMutability":"nonpayable",
	 "inputs":[{"name":"dgov","type":"uint256"},{"name":"dbit","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setClassConfig","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"class","type":"uint64"},
		{"name":"votingPeriod","type":"uint64"},
		{"name":"quorumBps","type":"uint64"},
		{"name":"approval","type":"uint8"},
		{"name":"vetoable","type":"bool"},
		{"name":"proposalThreshold","type":"uint256"},
		{"name":"executionDelay","type":"uint64"},
		{"name":"rewardPerDay","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"releaseStake","stateMutability":"nonpayable",
	 "inputs":[{"name":"owner","type":"string"},{"name":"nonce","type":"uint64"}],"outputs":[]}
]`

// TreasuryABI moves funds held at the treasury address.
const TreasuryABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"asset","type":"string"},{"name":"to","type":"string"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"fund","stateMutability":"payable","inputs":[],"outputs":[]}
]`

// NewParams builds the parameter target. Every write goes through the
// CallEnv so it lands in the executing operation.
func NewParams() (*ABITarget, error) {
	return NewABITarget(ParamsABI, map[string]Method{
		"updateBenchmarkInterestRate": func(env *dao.CallEnv, args []interface{}) error {
			rate, err := argU256(args, 0)
			if err != nil {
				return err
			}
			return env.SetBenchmarkIR(rate)
		},
		"updateBudget": func(env *dao.CallEnv, args []interface{}) error {
			dgov, err := argU256(args, 0)
			if err != nil {
				return err
			}
			dbit, err := argU256(args, 1)
			if err != nil {
				return err
			}
			return env.SetBudget(dao.Budget{DGOV: dgov, DBIT: dbit})
		},
		"setClassConfig": setClassConfig,
		"releaseStake": func(env *dao.CallEnv, args []interface{}) error {
			owner, err := argString(args, 0)
			if err != nil {
				return err
			}
			nonce, err := argU64(args, 1)
			if err != nil {
				return err
			}
			return env.ReleaseStake(dao.Address(owner), nonce)
		},
	})
}

func setClassConfig(env *dao.CallEnv, args []interface{}) error {
	class, err := argU64(args, 0)
	if err != nil {
		return err
	}
	period, err := argU64(args, 1)
	if err != nil {
		return err
	}
	quorum, err := argU64(args, 2)
	if err != nil {
		return err
	}
	approval, ok := args[3].(uint8)
	if !ok {
		return fmt.Errorf("%w: approval is %T", ErrBadArgument, args[3])
	}
	vetoable, ok := args[4].(bool)
	if !ok {
		return fmt.Errorf("%w: vetoable is %T", ErrBadArgument, args[4])
	}
	threshold, err := argU256(args, 5)
	if err != nil {
		return err
	}
	delay, err := argU64(args, 6)
	if err != nil {
		return err
	}
	reward, err := argU256(args, 7)
	if err != nil {
		return err
	}
	return env.SetClassConfig(class, dao.ClassConfig{
		VotingPeriod:      int64(period),
		QuorumBps:         quorum,
		Approval:          dao.ApprovalMode(approval),
		Vetoable:          vetoable,
		ProposalThreshold: threshold,
		ExecutionDelay:    int64(delay),
		RewardPerDay:      reward,
	})
}

// NewTreasury builds a treasury holding its balances at its own address.
// fund() pulls the attached value in asset from the engine's vault and
// refuses when asset is the staked principal.
func NewTreasury(asset dao.Asset) (*ABITarget, error) {
	return NewABITarget(TreasuryABI, map[string]Method{
		"transfer": func(env *dao.CallEnv, args []interface{}) error {
			a, err := argString(args, 0)
			if err != nil {
				return err
			}
			to, err := argString(args, 1)
			if err != nil {
				return err
			}
			amount, err := argU256(args, 2)
			if err != nil {
				return err
			}
			if !dao.Address(to).IsValid() {
				return fmt.Errorf("%w: recipient %q", ErrBadArgument, to)
			}
			return env.Tokens().Transfer(dao.Asset(a), env.Target, dao.Address(to), amount)
		},
		"fund": func(env *dao.CallEnv, _ []interface{}) error {
			if env.Value == nil || env.Value.IsZero() {
				return nil
			}
			if asset == env.PrincipalAsset() {
				return fmt.Errorf("%w: fund cannot draw staked %s from the vault", ErrBadArgument, asset)
			}
			return env.Tokens().Transfer(asset, env.Sender, env.Target, new(uint256.Int).Set(env.Value))
		},
	})
}

// Standard wires the parameter and treasury targets at their addresses.
func Standard(params, treasury dao.Address, treasuryAsset dao.Asset) (*Router, error) {
	p, err := NewParams()
	if err != nil {
		return nil, err
	}
	t, err := NewTreasury(treasuryAsset)
	if err != nil {
		return nil, err
	}
	return NewRouter().Register(params, p).Register(treasury, t), nil
}
