package dao

import (
	"fmt"

	"github.com/holiman/uint256"

	"debond_gov/contract/store"
)

// Dispatcher delivers one proposal call to its target. An error reverts the
// whole execution.
type Dispatcher interface {
	Dispatch(env *CallEnv, target Address, calldata []byte) error
}

// DispatchFunc adapts a function to a Dispatcher.
type DispatchFunc func(env *CallEnv, target Address, calldata []byte) error

func (f DispatchFunc) Dispatch(env *CallEnv, target Address, calldata []byte) error {
	return f(env, target, calldata)
}

type noDispatch struct{}

func (noDispatch) Dispatch(_ *CallEnv, target Address, _ []byte) error {
	return fmt.Errorf("no dispatcher configured for %s", target)
}

// CallEnv is what a target sees while a proposal executes. Writes made through
// it land in the executing operation and are discarded with it.
type CallEnv struct {
	// Sender is the engine itself.
	Sender Address
	Target Address
	Value  *uint256.Int
	Now    int64
	Class  uint64
	Nonce  uint64
	Index  int

	s *session
}

func (e *CallEnv) State() store.State { return e.s.tx }

func (e *CallEnv) Tokens() Tokens { return e.s.tokens() }

// PrincipalAsset is the asset the vault holds for stakers. Targets must not
// move it out of Sender.
func (e *CallEnv) PrincipalAsset() Asset { return e.s.g.cfg.PrincipalAsset }

// Governance hands the target a handle back into the engine, acting as the target.
func (e *CallEnv) Governance() *Reentry {
	return &Reentry{s: e.s, caller: e.Target}
}

func (e *CallEnv) BenchmarkIR() (*uint256.Int, error) { return e.s.loadBenchmark() }

// SetBenchmarkIR replaces the benchmark interest rate.
func (e *CallEnv) SetBenchmarkIR(v *uint256.Int) error {
	if v == nil {
		return ErrInvalidConfig.withMsg("nil rate")
	}
	old, err := e.s.loadBenchmark()
	if err != nil {
		return err
	}
	e.s.saveBenchmark(v)
	e.s.emitParamsUpdated("benchmark_ir", old.Dec(), v.Dec())
	return nil
}

func (e *CallEnv) Budget() (*Budget, error) { return e.s.loadBudget() }

func (e *CallEnv) SetBudget(b Budget) error {
	old, err := e.s.loadBudget()
	if err != nil {
		return err
	}
	b.DGOV, b.DBIT = orZero(b.DGOV), orZero(b.DBIT)
	e.s.saveBudget(&b)
	e.s.emitParamsUpdated("budget", old.DGOV.Dec()+"/"+old.DBIT.Dec(), b.DGOV.Dec()+"/"+b.DBIT.Dec())
	return nil
}

// SetClassConfig changes the rules for proposals created from now on.
func (e *CallEnv) SetClassConfig(class uint64, cfg ClassConfig) error {
	if err := e.s.saveClassConfig(class, cfg); err != nil {
		return err
	}
	e.s.emitParamsUpdated(fmt.Sprintf("class_%d", class), "", cfg.Approval.String())
	return nil
}

// ReleaseStake lets a stake be unstaked before it matures.
func (e *CallEnv) ReleaseStake(owner Address, nonce uint64) error {
	st, err := e.s.loadStake(owner, nonce)
	if err != nil {
		return err
	}
	if st.Withdrawn {
		return ErrAlreadyWithdrawn.withf("stake %d of %s", nonce, owner)
	}
	st.Released = true
	e.s.saveStake(st)
	e.s.emitStakeReleased(owner, nonce)
	return nil
}

// Reentry is a target's way back into the engine. A Reentry only exists
// while a proposal executes, so execute and vote are always refused through
// it; reads run nested and see the executing operation's writes.
type Reentry struct {
	s      *session
	caller Address
}

// ExecuteProposal fails with ErrReentrantCall, or with ErrInvalidStatus for
// the proposal that is executing.
func (r *Reentry) ExecuteProposal(class, nonce uint64) error {
	return r.s.nested(func(c *session) error { return c.execute(r.caller, class, nonce) })
}

// Vote always fails with ErrReentrantCall.
func (r *Reentry) Vote(class, nonce uint64, voter Address, support Support, amount *uint256.Int, stakeNonce uint64) error {
	return ErrReentrantCall.withf("%s voted during execution of %d/%d", r.caller, class, nonce)
}

// ProposalStatus is read-only and allowed at any time.
func (r *Reentry) ProposalStatus(class, nonce uint64) (ProposalStatus, error) {
	var st ProposalStatus
	err := r.s.nested(func(c *session) error {
		p, err := c.loadProposal(class, nonce)
		if err != nil {
			return err
		}
		st, err = c.resolve(p)
		return err
	})
	return st, err
}
