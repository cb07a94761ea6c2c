package main

import (
	"fmt"
	"strconv"
	"strings"

	"debond_gov/contract/dao"
	"debond_gov/contract/dispatch"
)

const (
	contractPrefix = "contract:"

	// configKey holds the resolved contract_init payload. The 0xf0 prefix is
	// outside every range the engine and the ledger use.
	configKey = "\xf0cfg"

	paramsSuffix   = "#params"
	treasurySuffix = "#treasury"
)

// call is one invocation of an exported entry point.
type call struct {
	g       *dao.Governance
	caller  dao.Address
	payload string
}

type handler func(c *call) (string, error)

var handlers = map[string]handler{
	"stake":             stake,
	"unstake":           unstake,
	"withdraw_interest": withdrawInterest,
	"delegate":          delegate,
	"proposals_create":  createProposal,
	"proposals_vote":    vote,
	"proposals_veto":    veto,
	"proposals_cancel":  cancelProposal,
	"proposals_execute": executeProposal,
	"proposals_unlock":  unlockVoteTokens,
	"proposals_status":  proposalStatus,
	"benchmark_ir":      benchmarkIR,
	"budget":            budget,
}

// handle runs entry with payload against the contract state of h.
func handle(h Host, entry, payload string) (string, error) {
	if entry == "contract_init" {
		return initContract(h, payload)
	}
	fn, ok := handlers[entry]
	if !ok {
		return "", fmt.Errorf("%w: unknown entry point %q", dao.ErrInvalidPayload, entry)
	}
	g, err := open(h)
	if err != nil {
		return "", err
	}
	return fn(&call{g: g, caller: h.Env().Sender.Address, payload: payload})
}

// unwrapPayload accepts a payload that arrives quoted as a JSON string.
func unwrapPayload(payload *string) string {
	if payload == nil {
		return ""
	}
	raw := strings.TrimSpace(*payload)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		if s, err := strconv.Unquote(raw); err == nil {
			return s
		}
	}
	return raw
}

func selfAddress(h Host) dao.Address {
	return dao.Address(contractPrefix + h.Env().ContractId)
}

func initContract(h Host, payload string) (string, error) {
	if h.Get(configKey) != nil {
		return "", fmt.Errorf("%w: contract already initialized", dao.ErrInvalidConfig)
	}
	var args dao.InitArgs
	if strings.TrimSpace(payload) != "" {
		if err := dao.DecodePayload(payload, &args); err != nil {
			return "", err
		}
	}
	if args.Operator == "" {
		args.Operator = h.Env().Sender.Address.String()
	}
	g, gen, err := engine(h, &args)
	if err != nil {
		return "", err
	}
	if err := g.Init(gen); err != nil {
		return "", err
	}
	raw, err := dao.EncodePayload(args)
	if err != nil {
		return "", err
	}
	h.Set(configKey, raw)
	return result(dao.Result{Status: "initialized"})
}

// open rebuilds the engine from the stored init payload.
func open(h Host) (*dao.Governance, error) {
	raw := h.Get(configKey)
	if raw == nil {
		return nil, fmt.Errorf("%w: contract not initialized", dao.ErrInvalidConfig)
	}
	var args dao.InitArgs
	if err := dao.DecodePayload(*raw, &args); err != nil {
		return nil, err
	}
	g, _, err := engine(h, &args)
	return g, err
}

func engine(h Host, args *dao.InitArgs) (*dao.Governance, dao.Genesis, error) {
	self := selfAddress(h)
	cfg, gen, err := args.Build(self, dao.Address(args.Operator))
	if err != nil {
		return nil, gen, err
	}
	router, err := dispatch.Standard(self+paramsSuffix, self+treasurySuffix, cfg.RewardAsset)
	if err != nil {
		return nil, gen, err
	}
	g, err := dao.New(hostBackend{h}, cfg,
		dao.WithClock(blockClock(h)),
		dao.WithDispatcher(chainDispatcher{h: h, router: router}),
		dao.WithEventSink(logSink{h}),
	)
	return g, gen, err
}

func result(r dao.Result) (string, error) { return dao.EncodePayload(r) }

func stake(c *call) (string, error) {
	var args dao.StakeArgs
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	amount, err := dao.ParseAmount(args.Amount)
	if err != nil {
		return "", err
	}
	nonce, err := c.g.Stake(c.caller, amount, args.Duration)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: nonce})
}

func unstake(c *call) (string, error) {
	var args dao.StakeRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	out, err := c.g.Unstake(c.caller, args.Nonce)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: args.Nonce, Amount: out.Dec()})
}

func withdrawInterest(c *call) (string, error) {
	var args dao.StakeRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	out, err := c.g.WithdrawInterest(c.caller, args.Nonce)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: args.Nonce, Amount: out.Dec()})
}

func delegate(c *call) (string, error) {
	var args dao.DelegateArgs
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	amount, err := dao.ParseAmount(args.Amount)
	if err != nil {
		return "", err
	}
	if err := c.g.DelegateVoteCredits(c.caller, dao.Address(args.Spender), amount); err != nil {
		return "", err
	}
	return result(dao.Result{Amount: amount.Dec()})
}

func createProposal(c *call) (string, error) {
	var args dao.ProposalArgs
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	in, err := args.Input()
	if err != nil {
		return "", err
	}
	nonce, err := c.g.CreateProposal(c.caller, in)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: nonce, Status: dao.StatusActive.String()})
}

func vote(c *call) (string, error) {
	var args dao.VoteArgs
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	support, err := dao.ParseSupport(args.Support)
	if err != nil {
		return "", err
	}
	amount, err := dao.ParseAmount(args.Amount)
	if err != nil {
		return "", err
	}
	voter := c.caller
	if args.Voter != "" {
		voter = dao.Address(args.Voter)
	}
	if err := c.g.Vote(c.caller, args.Class, args.Nonce, voter, support, amount, args.StakeNonce); err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: args.Nonce, Amount: amount.Dec()})
}

func veto(c *call) (string, error) {
	var args dao.VetoArgs
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	if err := c.g.Veto(c.caller, args.Class, args.Nonce, args.Cancel); err != nil {
		return "", err
	}
	return statusOf(c.g, args.Class, args.Nonce)
}

func cancelProposal(c *call) (string, error) {
	var args dao.ProposalRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	if err := c.g.CancelProposal(c.caller, args.Class, args.Nonce); err != nil {
		return "", err
	}
	return statusOf(c.g, args.Class, args.Nonce)
}

func executeProposal(c *call) (string, error) {
	var args dao.ProposalRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	if err := c.g.ExecuteProposal(c.caller, args.Class, args.Nonce); err != nil {
		return "", err
	}
	return statusOf(c.g, args.Class, args.Nonce)
}

func unlockVoteTokens(c *call) (string, error) {
	var args dao.ProposalRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	reward, err := c.g.UnlockVoteTokens(c.caller, args.Class, args.Nonce)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: args.Nonce, Amount: reward.Dec()})
}

func proposalStatus(c *call) (string, error) {
	var args dao.ProposalRef
	if err := dao.DecodePayload(c.payload, &args); err != nil {
		return "", err
	}
	return statusOf(c.g, args.Class, args.Nonce)
}

func statusOf(g *dao.Governance, class, nonce uint64) (string, error) {
	st, err := g.GetProposalStatus(class, nonce)
	if err != nil {
		return "", err
	}
	return result(dao.Result{Nonce: nonce, Status: st.String()})
}

func benchmarkIR(c *call) (string, error) {
	rate, err := c.g.GetBenchmarkIR()
	if err != nil {
		return "", err
	}
	return result(dao.Result{Amount: rate.Dec()})
}

func budget(c *call) (string, error) {
	b, err := c.g.GetBudget()
	if err != nil {
		return "", err
	}
	return dao.EncodePayload(dao.BudgetResult{DGOV: b.DGOV.Dec(), DBIT: b.DBIT.Dec()})
}
