package dao

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (s *session) loadProposal(class, nonce uint64) (*Proposal, error) {
	ptr := s.tx.Get(proposalKey(class, nonce))
	if ptr == nil {
		return nil, ErrProposalNotFound.withf("%d/%d", class, nonce)
	}
	p, err := DecodeProposal([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return p, nil
}

func (s *session) saveProposal(p *Proposal) {
	s.tx.Set(proposalKey(p.Class, p.Nonce), string(EncodeProposal(p)))
}

// ProposalInput is the creation payload of a proposal.
type ProposalInput struct {
	Class           uint64
	Targets         []Address
	Values          []*uint256.Int
	Calldatas       [][]byte
	Title           string
	DescriptionHash common.Hash
}

func (s *session) createProposal(proposer Address, in ProposalInput) (*Proposal, error) {
	if len(in.Targets) != len(in.Values) || len(in.Targets) != len(in.Calldatas) {
		return nil, ErrMalformedProposal.withf("%d targets, %d values, %d calldatas", len(in.Targets), len(in.Values), len(in.Calldatas))
	}
	for i, t := range in.Targets {
		if !t.IsValid() {
			return nil, ErrMalformedProposal.withf("target %d: invalid address %q", i, t)
		}
	}
	cfg, err := s.loadClassConfig(in.Class)
	if err != nil {
		return nil, err
	}
	acct, err := s.loadAccount(proposer)
	if err != nil {
		return nil, err
	}
	if acct.Balance.Lt(cfg.ProposalThreshold) {
		return nil, ErrBelowProposalThreshold.withf("%s below %s", acct.Balance.Dec(), cfg.ProposalThreshold.Dec())
	}
	end, ok := addSeconds(s.now, cfg.VotingPeriod)
	if !ok {
		return nil, ErrArithmeticOverflow.withf("vote window end %d + %d", s.now, cfg.VotingPeriod)
	}
	n, err := getCount(s.tx, proposalCountKey(in.Class))
	if err != nil {
		return nil, err
	}
	n++
	supply, err := s.loadCreditSupply()
	if err != nil {
		return nil, err
	}

	days := cfg.Days()
	schedule := make([]*uint256.Int, days)
	dayTotals := make([]*uint256.Int, days)
	for d := range schedule {
		schedule[d] = cfg.RewardPerDay.Clone()
		dayTotals[d] = zero()
	}
	values := make([]*uint256.Int, len(in.Values))
	calldatas := make([][]byte, len(in.Calldatas))
	for i := range in.Values {
		values[i] = orZero(in.Values[i]).Clone()
		calldatas[i] = append([]byte(nil), in.Calldatas[i]...)
	}
	p := &Proposal{
		Class:           in.Class,
		Nonce:           n,
		Proposer:        proposer,
		Targets:         append([]Address(nil), in.Targets...),
		Values:          values,
		Calldatas:       calldatas,
		Title:           in.Title,
		DescriptionHash: in.DescriptionHash,
		StartVoteTime:   s.now,
		EndVoteTime:     end,
		Status:          StatusActive,
		Config:          *cfg,
		SupplySnapshot:  supply,
		RewardSchedule:  schedule,
	}
	s.saveProposal(p)
	s.saveTally(p.Class, p.Nonce, &Tally{For: zero(), Against: zero(), DayTotals: dayTotals})
	setCount(s.tx, proposalCountKey(in.Class), n)
	s.emitProposalCreated(p)
	return p, nil
}

// passes applies the class approval rule and quorum to a closed tally.
func passes(p *Proposal, t *Tally) (bool, error) {
	cast := t.Cast()
	if p.Config.QuorumBps > 0 {
		lhs, o1 := new(uint256.Int).MulOverflow(cast, uint256.NewInt(10000))
		rhs, o2 := new(uint256.Int).MulOverflow(p.SupplySnapshot, uint256.NewInt(p.Config.QuorumBps))
		if o1 || o2 {
			return false, ErrArithmeticOverflow.withMsg("quorum")
		}
		if lhs.Lt(rhs) {
			return false, nil
		}
	}
	switch p.Config.Approval {
	case ApprovalSimpleMajority:
		return t.For.Gt(t.Against), nil
	case ApprovalAbsoluteMajority:
		twice, overflow := new(uint256.Int).MulOverflow(t.For, uint256.NewInt(2))
		if overflow {
			return false, ErrArithmeticOverflow.withMsg("absolute majority")
		}
		return twice.Gt(p.SupplySnapshot), nil
	case ApprovalSupermajority:
		lhs, o1 := new(uint256.Int).MulOverflow(t.For, uint256.NewInt(3))
		rhs, o2 := new(uint256.Int).MulOverflow(cast, uint256.NewInt(2))
		if o1 || o2 {
			return false, ErrArithmeticOverflow.withMsg("supermajority")
		}
		return !t.For.IsZero() && !lhs.Lt(rhs), nil
	}
	return false, ErrStorage.withf("approval mode %d", p.Config.Approval)
}

// resolve settles an Active proposal whose window closed, once. The outcome is
// written back so later reads never recompute it.
func (s *session) resolve(p *Proposal) (ProposalStatus, error) {
	if p.Status != StatusActive || s.now <= p.EndVoteTime {
		return p.Status, nil
	}
	t, err := s.loadTally(p.Class, p.Nonce)
	if err != nil {
		return 0, err
	}
	ok, err := passes(p, t)
	if err != nil {
		return 0, err
	}
	p.Status = StatusDefeated
	if ok && !p.Vetoed {
		p.Status = StatusSucceeded
	}
	p.ResolvedAt = s.now
	s.saveProposal(p)
	s.emitStatusChanged(p)
	return p.Status, nil
}

func (s *session) veto(caller Address, class, nonce uint64, cancel bool) error {
	if caller != s.g.cfg.Operator {
		return ErrUnauthorized.withf("%s is not the operator", caller)
	}
	p, err := s.loadProposal(class, nonce)
	if err != nil {
		return err
	}
	if !p.Config.Vetoable {
		return ErrNotVetoable.withf("class %d", class)
	}
	status, err := s.resolve(p)
	if err != nil {
		return err
	}
	if status.Terminal() || status == StatusDefeated {
		return ErrAlreadyResolved.withf("proposal is %s", status)
	}
	p.Vetoed = cancel
	if cancel {
		p.Status = StatusCanceled
		p.ResolvedAt = s.now
	}
	s.saveProposal(p)
	s.emitVetoed(p, caller, cancel)
	if cancel {
		s.emitStatusChanged(p)
	}
	return nil
}

func (s *session) cancel(caller Address, class, nonce uint64) error {
	p, err := s.loadProposal(class, nonce)
	if err != nil {
		return err
	}
	if caller != p.Proposer && caller != s.g.cfg.Operator {
		return ErrUnauthorized.withf("%s may not cancel %d/%d", caller, class, nonce)
	}
	status, err := s.resolve(p)
	if err != nil {
		return err
	}
	if status != StatusActive {
		return ErrInvalidStatus.withf("proposal is %s", status)
	}
	p.Status = StatusCanceled
	p.ResolvedAt = s.now
	s.saveProposal(p)
	s.emitStatusChanged(p)
	return nil
}

// execute dispatches every call of a Succeeded proposal in order. The status is
// flipped to Executed before the first call, so a target calling back finds it
// already spent. Any failing call reverts the whole operation.
func (s *session) execute(caller Address, class, nonce uint64) error {
	p, err := s.loadProposal(class, nonce)
	if err != nil {
		return err
	}
	status, err := s.resolve(p)
	if err != nil {
		return err
	}
	if status != StatusSucceeded {
		return ErrInvalidStatus.withf("proposal is %s", status)
	}
	if s.executing {
		return ErrReentrantCall.withf("%d/%d executed during another execution", class, nonce)
	}
	ready, ok := addSeconds(p.EndVoteTime, p.Config.ExecutionDelay)
	if !ok {
		return ErrArithmeticOverflow.withf("execution time %d + %d", p.EndVoteTime, p.Config.ExecutionDelay)
	}
	if s.now <= ready {
		return ErrExecutionDelayed.withf("executable after %d", ready)
	}
	p.Status = StatusExecuted
	p.ExecutedAt = s.now
	s.saveProposal(p)

	s.executing = true
	defer func() { s.executing = false }()
	for i, target := range p.Targets {
		env := &CallEnv{
			Sender: s.g.cfg.Self,
			Target: target,
			Value:  p.Values[i].Clone(),
			Now:    s.now,
			Class:  class,
			Nonce:  nonce,
			Index:  i,
			s:      s,
		}
		if err := s.g.dispatch.Dispatch(env, target, p.Calldatas[i]); err != nil {
			return ErrExecutionReverted.wrap(fmt.Errorf("call %d to %s: %w", i, target, err))
		}
	}
	s.emitStatusChanged(p)
	s.emitExecuted(p, caller)
	return nil
}

// CreateProposal opens a proposal of in.Class and returns its nonce.
// Example payload: g.CreateProposal("hive:alice", dao.ProposalInput{Class: 0, Targets: []dao.Address{"contract:params"}, ...})
func (g *Governance) CreateProposal(proposer Address, in ProposalInput) (uint64, error) {
	var nonce uint64
	err := g.atomic("proposals_create", proposer, func(s *session) error {
		p, err := s.createProposal(proposer, in)
		if err != nil {
			return err
		}
		nonce = p.Nonce
		return nil
	})
	return nonce, err
}

// Veto is operator-only. cancel=true cancels the proposal whatever the tally;
// cancel=false clears a pending veto and lets the tally decide.
func (g *Governance) Veto(caller Address, class, nonce uint64, cancel bool) error {
	return g.atomic("proposals_veto", caller, func(s *session) error {
		return s.veto(caller, class, nonce, cancel)
	})
}

// CancelProposal lets the proposer or the operator withdraw an Active proposal.
func (g *Governance) CancelProposal(caller Address, class, nonce uint64) error {
	return g.atomic("proposals_cancel", caller, func(s *session) error {
		return s.cancel(caller, class, nonce)
	})
}

// ExecuteProposal marks a succeeded proposal executed and dispatches its
// calls in order. Any failing call reverts the whole operation.
func (g *Governance) ExecuteProposal(caller Address, class, nonce uint64) error {
	return g.atomic("proposals_execute", caller, func(s *session) error {
		return s.execute(caller, class, nonce)
	})
}

// GetProposalStatus returns the status, resolving a closed window on first read.
func (g *Governance) GetProposalStatus(class, nonce uint64) (ProposalStatus, error) {
	var status ProposalStatus
	err := g.atomic("proposals_status", "", func(s *session) error {
		p, err := s.loadProposal(class, nonce)
		if err != nil {
			return err
		}
		status, err = s.resolve(p)
		return err
	})
	return status, err
}

// GetProposal returns the stored record with its status resolved at the current time.
func (g *Governance) GetProposal(class, nonce uint64) (*Proposal, error) {
	var out *Proposal
	err := g.atomic("get_proposal", "", func(s *session) error {
		p, err := s.loadProposal(class, nonce)
		if err != nil {
			return err
		}
		if _, err := s.resolve(p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// ProposalCount is the highest nonce issued in class.
func (g *Governance) ProposalCount(class uint64) (uint64, error) {
	var n uint64
	err := g.atomic("proposal_count", "", func(s *session) (err error) {
		n, err = getCount(s.tx, proposalCountKey(class))
		return err
	})
	return n, err
}
