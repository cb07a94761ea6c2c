package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"debond_gov/contract/dao"
	"debond_gov/contract/dispatch"
)

// Report is the outcome of one run.
type Report struct {
	RunID  uuid.UUID
	Name   string
	Steps  []StepResult
	Failed int
}

// OK reports whether every step behaved as declared.
func (r *Report) OK() bool { return r.Failed == 0 }

type StepResult struct {
	Index  int
	Do     string
	OK     bool
	// Symbol is the error symbol the operation returned, empty on success.
	Symbol string
	Detail string
}

// Runner drives one engine. It is not safe for concurrent runs.
type Runner struct {
	g      *dao.Governance
	clock  *dao.ManualClock
	router *dispatch.Router
	log    *zap.Logger

	last map[uint64]uint64
}

func NewRunner(g *dao.Governance, clock *dao.ManualClock, router *dispatch.Router, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{g: g, clock: clock, router: router, log: log, last: map[uint64]uint64{}}
}

// Run executes every step in order. A step that misbehaves is recorded and the
// run goes on; a step that cannot be understood stops the run with an error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	rep := &Report{RunID: uuid.New(), Name: sc.Name}
	log := r.log.With(zap.String("run", rep.RunID.String()), zap.String("scenario", sc.Name))
	log.Info("scenario started", zap.Int("steps", len(sc.Steps)))

	for i := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		st := &sc.Steps[i]
		res, err := r.step(i, st)
		if err != nil {
			return rep, fmt.Errorf("step %d (%s): %w", i, st.Do, err)
		}
		if !res.OK {
			rep.Failed++
			log.Warn("step failed", zap.Int("step", i), zap.String("do", st.Do), zap.String("detail", res.Detail))
		} else {
			log.Debug("step passed", zap.Int("step", i), zap.String("do", st.Do), zap.String("symbol", res.Symbol))
		}
		rep.Steps = append(rep.Steps, res)
	}
	log.Info("scenario finished", zap.Int("failed", rep.Failed))
	return rep, nil
}

func (r *Runner) step(i int, st *Step) (StepResult, error) {
	res := StepResult{Index: i, Do: st.Do}
	returned, opErr, err := r.apply(st)
	if err != nil {
		return res, err
	}
	if opErr != nil {
		res.Symbol = dao.SymbolOf(opErr)
	}
	switch {
	case st.Error == "" && opErr != nil:
		res.Detail = fmt.Sprintf("unexpected error: %v", opErr)
		return res, nil
	case st.Error != "" && res.Symbol != st.Error:
		res.Detail = fmt.Sprintf("want error %s, got %q", st.Error, res.Symbol)
		return res, nil
	}
	if st.Expect != nil {
		problems, err := r.check(st, returned)
		if err != nil {
			return res, err
		}
		if len(problems) > 0 {
			res.Detail = strings.Join(problems, "; ")
			return res, nil
		}
	}
	res.OK = true
	return res, nil
}

// apply runs the operation. opErr is the engine's answer; err means the step
// itself is malformed.
func (r *Runner) apply(st *Step) (returned *uint256.Int, opErr, err error) {
	caller := dao.Address(st.As)
	switch st.Do {
	case "stake":
		amount, err := ParseAmount(st.Amount)
		if err != nil {
			return nil, nil, err
		}
		n, opErr := r.g.Stake(caller, amount, int64(st.Duration.Seconds()))
		return uint256.NewInt(n), opErr, nil
	case "unstake":
		out, opErr := r.g.Unstake(caller, st.Stake)
		return out, opErr, nil
	case "withdraw":
		out, opErr := r.g.WithdrawInterest(caller, st.Stake)
		return out, opErr, nil
	case "delegate":
		amount, err := ParseAmount(st.Amount)
		if err != nil {
			return nil, nil, err
		}
		return nil, r.g.DelegateVoteCredits(caller, dao.Address(st.Spender), amount), nil
	case "propose":
		in, err := r.proposal(st)
		if err != nil {
			return nil, nil, err
		}
		n, opErr := r.g.CreateProposal(caller, in)
		if opErr == nil {
			r.last[st.Class] = n
		}
		return uint256.NewInt(n), opErr, nil
	case "vote":
		support, err := dao.ParseSupport(st.Support)
		if err != nil {
			return nil, nil, fmt.Errorf("support %q", st.Support)
		}
		amount, err := ParseAmount(st.Amount)
		if err != nil {
			return nil, nil, err
		}
		voter := caller
		if st.Voter != "" {
			voter = dao.Address(st.Voter)
		}
		return nil, r.g.Vote(caller, st.Class, r.proposalNonce(st), voter, support, amount, st.Stake), nil
	case "veto":
		return nil, r.g.Veto(caller, st.Class, r.proposalNonce(st), st.Cancel), nil
	case "cancel":
		return nil, r.g.CancelProposal(caller, st.Class, r.proposalNonce(st)), nil
	case "execute":
		return nil, r.g.ExecuteProposal(caller, st.Class, r.proposalNonce(st)), nil
	case "unlock":
		out, opErr := r.g.UnlockVoteTokens(caller, st.Class, r.proposalNonce(st))
		return out, opErr, nil
	case "advance":
		if st.By <= 0 {
			return nil, nil, fmt.Errorf("advance needs a positive by")
		}
		r.clock.Advance(int64(st.By.Seconds()))
		return nil, nil, nil
	case "expect":
		if st.Expect == nil {
			return nil, nil, fmt.Errorf("expect step without expect block")
		}
		return nil, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown operation %q", st.Do)
}

func (r *Runner) proposalNonce(st *Step) uint64 {
	if st.Proposal != 0 {
		return st.Proposal
	}
	return r.last[st.Class]
}

func (r *Runner) proposal(st *Step) (dao.ProposalInput, error) {
	in := dao.ProposalInput{Class: st.Class, Title: st.Title}
	if st.Description != "" {
		in.DescriptionHash = crypto.Keccak256Hash([]byte(st.Description))
	}
	for j, c := range st.Calls {
		data, err := r.calldata(c)
		if err != nil {
			return in, fmt.Errorf("call %d: %w", j, err)
		}
		value, err := ParseAmount(c.Value)
		if err != nil {
			return in, fmt.Errorf("call %d: %w", j, err)
		}
		in.Targets = append(in.Targets, dao.Address(c.Target))
		in.Values = append(in.Values, value)
		in.Calldatas = append(in.Calldatas, data)
	}
	return in, nil
}

func (r *Runner) calldata(c Call) ([]byte, error) {
	if c.Method == "" {
		if c.Data == "" {
			return nil, nil
		}
		return hexutil.Decode(c.Data)
	}
	if r.router == nil {
		return nil, fmt.Errorf("no router to encode %s", c.Method)
	}
	t, ok := r.router.Lookup(dao.Address(c.Target))
	if !ok {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrUnknownTarget, c.Target)
	}
	abiTarget, ok := t.(*dispatch.ABITarget)
	if !ok {
		return nil, fmt.Errorf("target %s has no ABI", c.Target)
	}
	return abiTarget.PackStrings(c.Method, c.Args)
}

// check compares the engine state with st.Expect and returns every mismatch.
func (r *Runner) check(st *Step, returned *uint256.Int) ([]string, error) {
	exp := st.Expect
	var problems []string
	mismatch := func(what, want, got string) {
		if want != got {
			problems = append(problems, fmt.Sprintf("%s: want %s, got %s", what, want, got))
		}
	}
	amt := func(s string) (string, error) {
		v, err := ParseAmount(s)
		if err != nil {
			return "", err
		}
		return v.Dec(), nil
	}

	if exp.Returned != "" {
		want, err := amt(exp.Returned)
		if err != nil {
			return nil, err
		}
		got := "none"
		if returned != nil {
			got = returned.Dec()
		}
		mismatch("returned", want, got)
	}
	if exp.Status != "" {
		status, err := r.g.GetProposalStatus(st.Class, r.proposalNonce(st))
		if err != nil {
			problems = append(problems, fmt.Sprintf("status: %v", err))
		} else {
			mismatch("status", strings.ToLower(exp.Status), status.String())
		}
	}
	if exp.BenchmarkIR != "" {
		want, err := amt(exp.BenchmarkIR)
		if err != nil {
			return nil, err
		}
		rate, err := r.g.GetBenchmarkIR()
		if err != nil {
			return nil, err
		}
		mismatch("benchmark_ir", want, rate.Dec())
	}
	for _, b := range exp.Balances {
		want, err := amt(b.Amount)
		if err != nil {
			return nil, err
		}
		got, err := r.g.BalanceOf(dao.Asset(b.Asset), dao.Address(b.Address))
		if err != nil {
			return nil, err
		}
		mismatch(fmt.Sprintf("balance %s %s", b.Address, b.Asset), want, got.Dec())
	}
	for _, c := range exp.Credits {
		acct, err := r.g.GetVoteCredits(dao.Address(c.Address))
		if err != nil {
			return nil, err
		}
		if c.Balance != "" {
			want, err := amt(c.Balance)
			if err != nil {
				return nil, err
			}
			mismatch("credits "+c.Address, want, acct.Balance.Dec())
		}
		if c.Locked != "" {
			want, err := amt(c.Locked)
			if err != nil {
				return nil, err
			}
			mismatch("locked "+c.Address, want, acct.Locked.Dec())
		}
	}
	if t := exp.Tally; t != nil {
		tally, err := r.g.GetTally(st.Class, r.proposalNonce(st))
		if err != nil {
			problems = append(problems, fmt.Sprintf("tally: %v", err))
		} else {
			if t.For != "" {
				want, err := amt(t.For)
				if err != nil {
					return nil, err
				}
				mismatch("tally for", want, tally.For.Dec())
			}
			if t.Against != "" {
				want, err := amt(t.Against)
				if err != nil {
					return nil, err
				}
				mismatch("tally against", want, tally.Against.Dec())
			}
			if t.Voters != nil {
				mismatch("tally voters", fmt.Sprint(*t.Voters), fmt.Sprint(tally.Voters))
			}
		}
	}
	for _, s := range exp.Stakes {
		stake, err := r.g.GetStake(dao.Address(s.Owner), s.Nonce)
		if err != nil {
			problems = append(problems, fmt.Sprintf("stake %s/%d: %v", s.Owner, s.Nonce, err))
			continue
		}
		if s.Withdrawn != nil {
			mismatch(fmt.Sprintf("stake %s/%d withdrawn", s.Owner, s.Nonce), fmt.Sprint(*s.Withdrawn), fmt.Sprint(stake.Withdrawn))
		}
		if s.Released != nil {
			mismatch(fmt.Sprintf("stake %s/%d released", s.Owner, s.Nonce), fmt.Sprint(*s.Released), fmt.Sprint(stake.Released))
		}
	}
	return problems, nil
}
