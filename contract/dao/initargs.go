package dao

import (
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
)

// InitArgs is the payload of contract_init. Empty fields keep DefaultConfig;
// the operator defaults to the account that deploys.
// Example payload: {"community_pool":"contract:pool","benchmark_ir":"50000000000000000","classes":[{"id":0,"voting_period":259200,"approval":"simple_majority"}]}
type InitArgs struct {
	Operator         string
	CommunityPool    string
	PrincipalAsset   string
	RewardAsset      string
	MinStakeDuration int64
	MaxCallDepth     int
	BenchmarkIR      string
	BudgetDGOV       string
	BudgetDBIT       string
	Classes          []ClassArgs
	Balances         []BalanceArgs
}

// ClassArgs describes one proposal class of InitArgs.
type ClassArgs struct {
	ID                uint64
	VotingPeriod      int64
	QuorumBps         uint64
	Approval          string
	Vetoable          bool
	ProposalThreshold string
	ExecutionDelay    int64
	RewardPerDay      string
}

// BalanceArgs seeds a token balance at init.
type BalanceArgs struct {
	Address string
	Asset   string
	Amount  string
}

// ForwardArgs is what a proposal call to an external contract receives.
// Example payload: {"class":0,"nonce":3,"index":1,"value":"0","calldata":"0x..."}
type ForwardArgs struct {
	Class    uint64
	Nonce    uint64
	Index    int
	Value    string
	Calldata string
}

// BudgetResult is the answer of the budget entry point.
type BudgetResult struct {
	DGOV string
	DBIT string
}

// Build resolves the payload into engine settings and genesis for a contract
// deployed at self by sender.
func (a *InitArgs) Build(self, sender Address) (Config, Genesis, error) {
	cfg := DefaultConfig()
	cfg.Self = self
	cfg.Operator = sender
	if a.Operator != "" {
		cfg.Operator = Address(a.Operator)
	}
	if a.CommunityPool != "" {
		cfg.CommunityPool = Address(a.CommunityPool)
	}
	if a.PrincipalAsset != "" {
		cfg.PrincipalAsset = Asset(a.PrincipalAsset)
	}
	if a.RewardAsset != "" {
		cfg.RewardAsset = Asset(a.RewardAsset)
	}
	if a.MinStakeDuration != 0 {
		cfg.MinStakeDuration = a.MinStakeDuration
	}
	if a.MaxCallDepth != 0 {
		cfg.MaxCallDepth = a.MaxCallDepth
	}
	if err := cfg.Validate(); err != nil {
		return cfg, Genesis{}, err
	}

	var (
		gen = Genesis{Classes: make(map[uint64]ClassConfig, len(a.Classes))}
		err error
	)
	if gen.BenchmarkIR, err = ParseAmount(a.BenchmarkIR); err != nil {
		return cfg, gen, err
	}
	if gen.Budget.DGOV, err = ParseAmount(a.BudgetDGOV); err != nil {
		return cfg, gen, err
	}
	if gen.Budget.DBIT, err = ParseAmount(a.BudgetDBIT); err != nil {
		return cfg, gen, err
	}
	for _, c := range a.Classes {
		if _, dup := gen.Classes[c.ID]; dup {
			return cfg, gen, ErrInvalidConfig.withf("class %d defined twice", c.ID)
		}
		cc, err := c.config()
		if err != nil {
			return cfg, gen, err
		}
		gen.Classes[c.ID] = cc
	}
	for _, b := range a.Balances {
		if !Address(b.Address).IsValid() {
			return cfg, gen, ErrInvalidAddress.withf("genesis balance %q", b.Address)
		}
		if !Asset(b.Asset).IsKnown() {
			return cfg, gen, ErrInvalidConfig.withf("unknown asset %q", b.Asset)
		}
		amt, err := ParseAmount(b.Amount)
		if err != nil {
			return cfg, gen, err
		}
		gen.Balances = append(gen.Balances, GenesisBalance{Address: Address(b.Address), Asset: Asset(b.Asset), Amount: amt})
	}
	return cfg, gen, nil
}

func (c ClassArgs) config() (ClassConfig, error) {
	mode, err := ParseApprovalMode(c.Approval)
	if err != nil {
		return ClassConfig{}, ErrInvalidConfig.withf("class %d: approval %q", c.ID, c.Approval)
	}
	cc := ClassConfig{
		VotingPeriod:   c.VotingPeriod,
		QuorumBps:      c.QuorumBps,
		Approval:       mode,
		Vetoable:       c.Vetoable,
		ExecutionDelay: c.ExecutionDelay,
	}
	if cc.ProposalThreshold, err = ParseAmount(c.ProposalThreshold); err != nil {
		return cc, err
	}
	if cc.RewardPerDay, err = ParseAmount(c.RewardPerDay); err != nil {
		return cc, err
	}
	return cc, cc.Validate()
}

func (v *InitArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "operator":
			v.Operator = in.String()
		case "community_pool":
			v.CommunityPool = in.String()
		case "principal_asset":
			v.PrincipalAsset = in.String()
		case "reward_asset":
			v.RewardAsset = in.String()
		case "min_stake_duration":
			v.MinStakeDuration = in.Int64()
		case "max_call_depth":
			v.MaxCallDepth = in.Int()
		case "benchmark_ir":
			v.BenchmarkIR = in.String()
		case "budget_dgov":
			v.BudgetDGOV = in.String()
		case "budget_dbit":
			v.BudgetDBIT = in.String()
		case "classes":
			v.Classes = []ClassArgs{}
			in.Delim('[')
			for !in.IsDelim(']') {
				var c ClassArgs
				c.UnmarshalTinyJSON(in)
				v.Classes = append(v.Classes, c)
				in.WantComma()
			}
			in.Delim(']')
		case "balances":
			v.Balances = []BalanceArgs{}
			in.Delim('[')
			for !in.IsDelim(']') {
				var b BalanceArgs
				b.UnmarshalTinyJSON(in)
				v.Balances = append(v.Balances, b)
				in.WantComma()
			}
			in.Delim(']')
		default:
			in.SkipRecursive()
		}
	})
}

func (v InitArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"operator":`)
	out.String(v.Operator)
	out.RawString(`,"community_pool":`)
	out.String(v.CommunityPool)
	out.RawString(`,"principal_asset":`)
	out.String(v.PrincipalAsset)
	out.RawString(`,"reward_asset":`)
	out.String(v.RewardAsset)
	out.RawString(`,"min_stake_duration":`)
	out.Int64(v.MinStakeDuration)
	out.RawString(`,"max_call_depth":`)
	out.Int(v.MaxCallDepth)
	out.RawString(`,"benchmark_ir":`)
	out.String(v.BenchmarkIR)
	out.RawString(`,"budget_dgov":`)
	out.String(v.BudgetDGOV)
	out.RawString(`,"budget_dbit":`)
	out.String(v.BudgetDBIT)
	out.RawString(`,"classes":[`)
	for i, c := range v.Classes {
		if i > 0 {
			out.RawByte(',')
		}
		c.MarshalTinyJSON(out)
	}
	out.RawString(`],"balances":[`)
	for i, b := range v.Balances {
		if i > 0 {
			out.RawByte(',')
		}
		b.MarshalTinyJSON(out)
	}
	out.RawString(`]}`)
}

func (v *ClassArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "id":
			v.ID = in.Uint64()
		case "voting_period":
			v.VotingPeriod = in.Int64()
		case "quorum_bps":
			v.QuorumBps = in.Uint64()
		case "approval":
			v.Approval = in.String()
		case "vetoable":
			v.Vetoable = in.Bool()
		case "proposal_threshold":
			v.ProposalThreshold = in.String()
		case "execution_delay":
			v.ExecutionDelay = in.Int64()
		case "reward_per_day":
			v.RewardPerDay = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v ClassArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"id":`)
	out.Uint64(v.ID)
	out.RawString(`,"voting_period":`)
	out.Int64(v.VotingPeriod)
	out.RawString(`,"quorum_bps":`)
	out.Uint64(v.QuorumBps)
	out.RawString(`,"approval":`)
	out.String(v.Approval)
	out.RawString(`,"vetoable":`)
	out.Bool(v.Vetoable)
	out.RawString(`,"proposal_threshold":`)
	out.String(v.ProposalThreshold)
	out.RawString(`,"execution_delay":`)
	out.Int64(v.ExecutionDelay)
	out.RawString(`,"reward_per_day":`)
	out.String(v.RewardPerDay)
	out.RawByte('}')
}

func (v *BalanceArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "address":
			v.Address = in.String()
		case "asset":
			v.Asset = in.String()
		case "amount":
			v.Amount = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v BalanceArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"address":`)
	out.String(v.Address)
	out.RawString(`,"asset":`)
	out.String(v.Asset)
	out.RawString(`,"amount":`)
	out.String(v.Amount)
	out.RawByte('}')
}

func (v *ForwardArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "class":
			v.Class = in.Uint64()
		case "nonce":
			v.Nonce = in.Uint64()
		case "index":
			v.Index = in.Int()
		case "value":
			v.Value = in.String()
		case "calldata":
			v.Calldata = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v ForwardArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"class":`)
	out.Uint64(v.Class)
	out.RawString(`,"nonce":`)
	out.Uint64(v.Nonce)
	out.RawString(`,"index":`)
	out.Int(v.Index)
	out.RawString(`,"value":`)
	out.String(v.Value)
	out.RawString(`,"calldata":`)
	out.String(v.Calldata)
	out.RawByte('}')
}

func (v *BudgetResult) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "dgov":
			v.DGOV = in.String()
		case "dbit":
			v.DBIT = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v BudgetResult) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"dgov":`)
	out.String(v.DGOV)
	out.RawString(`,"dbit":`)
	out.String(v.DBIT)
	out.RawByte('}')
}
