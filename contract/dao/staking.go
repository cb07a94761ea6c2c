package dao

import (
	"github.com/holiman/uint256"

	"debond_gov/contract/interest"
)

func add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrArithmeticOverflow.withf("%s + %s", a.Dec(), b.Dec())
	}
	return out, nil
}

// sub fails on underflow; callers only subtract amounts they know are held.
func sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrArithmeticOverflow.withf("%s - %s", a.Dec(), b.Dec())
	}
	return out, nil
}

// subFloor saturates at zero.
func subFloor(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return zero()
	}
	return new(uint256.Int).Sub(a, b)
}

func minOf(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

func (s *session) loadStake(owner Address, nonce uint64) (*Stake, error) {
	ptr := s.tx.Get(stakeKey(owner, nonce))
	if ptr == nil {
		return nil, ErrStakeNotFound.withf("stake %d of %s", nonce, owner)
	}
	st, err := DecodeStake([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return st, nil
}

func (s *session) saveStake(st *Stake) {
	s.tx.Set(stakeKey(st.Owner, st.Nonce), string(EncodeStake(st)))
}

func (s *session) loadAccount(owner Address) (*Account, error) {
	ptr := s.tx.Get(creditsKey(owner))
	if ptr == nil {
		return &Account{Balance: zero(), Locked: zero()}, nil
	}
	a, err := DecodeAccount([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return a, nil
}

func (s *session) saveAccount(owner Address, a *Account) {
	if a.Balance.IsZero() && a.Locked.IsZero() {
		s.tx.Delete(creditsKey(owner))
		return
	}
	s.tx.Set(creditsKey(owner), string(EncodeAccount(a)))
}

func (s *session) loadAllowance(owner Address) (*Allowance, error) {
	ptr := s.tx.Get(allowanceKey(owner))
	if ptr == nil {
		return &Allowance{Amount: zero()}, nil
	}
	a, err := DecodeAllowance([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return a, nil
}

func (s *session) saveAllowance(owner Address, a *Allowance) {
	if a.Amount.IsZero() {
		s.tx.Delete(allowanceKey(owner))
		return
	}
	s.tx.Set(allowanceKey(owner), string(EncodeAllowance(a)))
}

func (s *session) loadCreditSupply() (*uint256.Int, error) {
	ptr := s.tx.Get(creditSupplyKey())
	if ptr == nil {
		return zero(), nil
	}
	v, err := uint256.FromDecimal(*ptr)
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return v, nil
}

func (s *session) saveCreditSupply(v *uint256.Int) {
	s.tx.Set(creditSupplyKey(), v.Dec())
}

// adjustCredits adds (or with burn, removes) vote credits of owner and keeps
// the supply total in step.
func (s *session) adjustCredits(owner Address, amount *uint256.Int, burn bool) (*Account, error) {
	acct, err := s.loadAccount(owner)
	if err != nil {
		return nil, err
	}
	supply, err := s.loadCreditSupply()
	if err != nil {
		return nil, err
	}
	if burn {
		if acct.Balance, err = sub(acct.Balance, amount); err != nil {
			return nil, err
		}
		if acct.Balance.Lt(acct.Locked) {
			return nil, ErrVoteCreditsLocked.withf("%s has %s locked", owner, acct.Locked.Dec())
		}
		if supply, err = sub(supply, amount); err != nil {
			return nil, err
		}
	} else {
		if acct.Balance, err = add(acct.Balance, amount); err != nil {
			return nil, err
		}
		if supply, err = add(supply, amount); err != nil {
			return nil, err
		}
	}
	s.saveAccount(owner, acct)
	s.saveCreditSupply(supply)
	return acct, nil
}

// stake locks principal for duration seconds and mints the same amount of vote credits.
func (s *session) stake(owner Address, amount *uint256.Int, duration int64) (uint64, error) {
	cfg := s.g.cfg
	if !owner.IsValid() {
		return 0, ErrInvalidAddress.withf("owner %q", owner)
	}
	if amount == nil || amount.IsZero() {
		return 0, ErrZeroAmount
	}
	if duration < cfg.MinStakeDuration {
		return 0, ErrInvalidDuration.withf("%ds below %ds", duration, cfg.MinStakeDuration)
	}
	if _, ok := addSeconds(s.now, duration); !ok {
		return 0, ErrInvalidDuration.withf("%ds overflows the maturity time", duration)
	}
	if err := s.moveTokens(cfg.PrincipalAsset, owner, cfg.Self, amount); err != nil {
		return 0, err
	}
	n, err := getCount(s.tx, stakeCountKey(owner))
	if err != nil {
		return 0, err
	}
	n++
	st := &Stake{
		Owner:             owner,
		Nonce:             n,
		Amount:            amount.Clone(),
		StartTime:         s.now,
		Duration:          duration,
		LastInterestClaim: s.now,
		VotesLocked:       zero(),
	}
	if _, err := s.adjustCredits(owner, st.Amount, false); err != nil {
		return 0, err
	}
	s.saveStake(st)
	setCount(s.tx, stakeCountKey(owner), n)
	s.emitStaked(st)
	return n, nil
}

// unstake returns the principal once the stake matured (or was released) and no
// ballot still holds its credits. The stake stays on record as withdrawn.
func (s *session) unstake(owner Address, nonce uint64) (*uint256.Int, error) {
	cfg := s.g.cfg
	st, err := s.loadStake(owner, nonce)
	if err != nil {
		return nil, err
	}
	if st.Withdrawn {
		return nil, ErrAlreadyWithdrawn.withf("stake %d of %s", nonce, owner)
	}
	if s.now < st.MaturesAt() && !st.Released {
		return nil, ErrStillLocked.withf("matures at %d", st.MaturesAt())
	}
	if !st.VotesLocked.IsZero() {
		return nil, ErrVoteCreditsLocked.withf("%s locked in ballots", st.VotesLocked.Dec())
	}
	acct, err := s.adjustCredits(owner, st.Amount, true)
	if err != nil {
		return nil, err
	}
	// a standing delegation may not outlive the credits behind it
	al, err := s.loadAllowance(owner)
	if err != nil {
		return nil, err
	}
	if free := subFloor(acct.Balance, acct.Locked); al.Amount.Gt(free) {
		al.Amount = free
		s.saveAllowance(owner, al)
	}
	if err := s.moveTokens(cfg.PrincipalAsset, cfg.Self, owner, st.Amount); err != nil {
		return nil, err
	}
	st.Withdrawn = true
	st.WithdrawnAt = s.now
	s.saveStake(st)
	s.emitUnstaked(st)
	return st.Amount.Clone(), nil
}

// withdrawInterest pays interest accrued since the last claim at the current
// benchmark rate. Accrual stops when the stake is withdrawn.
func (s *session) withdrawInterest(owner Address, nonce uint64) (*uint256.Int, error) {
	cfg := s.g.cfg
	st, err := s.loadStake(owner, nonce)
	if err != nil {
		return nil, err
	}
	end := s.now
	if st.Withdrawn {
		end = st.WithdrawnAt
	}
	if end <= st.LastInterestClaim {
		return zero(), nil
	}
	rate, err := s.loadBenchmark()
	if err != nil {
		return nil, err
	}
	paid, err := interest.InterestForDuration(st.Amount, uint64(end-st.LastInterestClaim), rate)
	if err != nil {
		return nil, ErrArithmeticOverflow.wrap(err)
	}
	if err := s.moveTokens(cfg.RewardAsset, cfg.CommunityPool, owner, paid); err != nil {
		return nil, err
	}
	from := st.LastInterestClaim
	st.LastInterestClaim = end
	s.saveStake(st)
	s.emitInterestPaid(st, paid, from, end)
	return paid, nil
}

// delegate replaces the owner's single allowance. A zero amount revokes it.
func (s *session) delegate(owner, spender Address, amount *uint256.Int) error {
	if !spender.IsValid() {
		return ErrInvalidAddress.withf("spender %q", spender)
	}
	if spender == owner {
		return ErrInvalidAddress.withMsg("cannot delegate to self")
	}
	al := &Allowance{Spender: spender, Amount: orZero(amount).Clone()}
	if !al.Amount.IsZero() {
		acct, err := s.loadAccount(owner)
		if err != nil {
			return err
		}
		if free := subFloor(acct.Balance, acct.Locked); al.Amount.Gt(free) {
			return ErrInsufficientVotingPower.withf("allowance %s above free %s", al.Amount.Dec(), free.Dec())
		}
	}
	s.saveAllowance(owner, al)
	s.emitDelegated(owner, al)
	return nil
}

// available is what owner may still vote with directly from the given stake:
// the stake's unlocked part, capped by free credits not reserved for a delegate.
func (s *session) available(owner Address, nonce uint64) (*uint256.Int, error) {
	st, err := s.loadStake(owner, nonce)
	if err != nil {
		return nil, err
	}
	if st.Withdrawn {
		return zero(), nil
	}
	acct, err := s.loadAccount(owner)
	if err != nil {
		return nil, err
	}
	al, err := s.loadAllowance(owner)
	if err != nil {
		return nil, err
	}
	stakeFree := subFloor(st.Amount, st.VotesLocked)
	acctFree := subFloor(subFloor(acct.Balance, acct.Locked), al.Amount)
	return minOf(stakeFree, acctFree), nil
}

// Stake locks amount of principal from owner and returns the new stake nonce.
// Example payload: g.Stake("hive:alice", uint256.NewInt(50), 30*86400)
func (g *Governance) Stake(owner Address, amount *uint256.Int, duration int64) (uint64, error) {
	var nonce uint64
	err := g.atomic("stake", owner, func(s *session) (err error) {
		nonce, err = s.stake(owner, amount, duration)
		return err
	})
	return nonce, err
}

// Unstake returns the stake's principal to its owner.
func (g *Governance) Unstake(owner Address, nonce uint64) (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("unstake", owner, func(s *session) (err error) {
		out, err = s.unstake(owner, nonce)
		return err
	})
	return out, err
}

// WithdrawInterest pays accrued interest on one stake. Calling it twice in the
// same second pays zero the second time.
func (g *Governance) WithdrawInterest(owner Address, nonce uint64) (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("withdraw_interest", owner, func(s *session) (err error) {
		out, err = s.withdrawInterest(owner, nonce)
		return err
	})
	return out, err
}

// DelegateVoteCredits authorizes spender to cast one ballot of up to amount
// on owner's credits.
func (g *Governance) DelegateVoteCredits(owner, spender Address, amount *uint256.Int) error {
	return g.atomic("delegate", owner, func(s *session) error {
		return s.delegate(owner, spender, amount)
	})
}

// TransferVoteCredits always fails: vote credits only follow stakes.
func (g *Governance) TransferVoteCredits(from, to Address, amount *uint256.Int) error {
	return ErrTransferDisallowed.withf("%s to %s", from, to)
}

// GetStake returns one stake of owner, withdrawn ones included.
func (g *Governance) GetStake(owner Address, nonce uint64) (*Stake, error) {
	var out *Stake
	err := g.atomic("get_stake", "", func(s *session) (err error) {
		out, err = s.loadStake(owner, nonce)
		return err
	})
	return out, err
}

// GetStakes lists every stake of owner, withdrawn ones included.
func (g *Governance) GetStakes(owner Address) ([]*Stake, error) {
	var out []*Stake
	err := g.atomic("get_stakes", "", func(s *session) error {
		n, err := getCount(s.tx, stakeCountKey(owner))
		if err != nil {
			return err
		}
		for i := uint64(1); i <= n; i++ {
			st, err := s.loadStake(owner, i)
			if err != nil {
				return err
			}
			out = append(out, st)
		}
		return nil
	})
	return out, err
}

// GetVoteCredits returns the credit balance of owner and how much of it ballots hold.
func (g *Governance) GetVoteCredits(owner Address) (*Account, error) {
	var out *Account
	err := g.atomic("get_credits", "", func(s *session) (err error) {
		out, err = s.loadAccount(owner)
		return err
	})
	return out, err
}

// GetAllowance returns owner's standing delegation; an empty Spender means none.
func (g *Governance) GetAllowance(owner Address) (*Allowance, error) {
	var out *Allowance
	err := g.atomic("get_allowance", "", func(s *session) (err error) {
		out, err = s.loadAllowance(owner)
		return err
	})
	return out, err
}

// VoteCreditSupply is the sum of every holder's vote-credit balance.
func (g *Governance) VoteCreditSupply() (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("credit_supply", "", func(s *session) (err error) {
		out, err = s.loadCreditSupply()
		return err
	})
	return out, err
}

// GetAvailableVoteTokens is what owner can still vote with from one stake.
func (g *Governance) GetAvailableVoteTokens(owner Address, stakeNonce uint64) (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("available_vote_tokens", "", func(s *session) (err error) {
		out, err = s.available(owner, stakeNonce)
		return err
	})
	return out, err
}

// BalanceOf reads a token balance through the configured Tokens.
func (g *Governance) BalanceOf(asset Asset, addr Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("balance_of", "", func(s *session) (err error) {
		out, err = s.tokens().BalanceOf(asset, addr)
		if err != nil {
			return ErrStorage.wrap(err)
		}
		return nil
	})
	return out, err
}

// FloatingInterestRate returns the floating-rate share of twice the benchmark
// for the given fixed/floating supplies.
func (g *Governance) FloatingInterestRate(fixedSupply, floatingSupply *uint256.Int) (*uint256.Int, error) {
	bench, err := g.GetBenchmarkIR()
	if err != nil {
		return nil, err
	}
	out, err := interest.FloatingInterestRate(fixedSupply, floatingSupply, bench)
	if err != nil {
		return nil, ErrInvalidConfig.wrap(err)
	}
	return out, nil
}

func (g *Governance) FixedInterestRate(fixedSupply, floatingSupply *uint256.Int) (*uint256.Int, error) {
	bench, err := g.GetBenchmarkIR()
	if err != nil {
		return nil, err
	}
	out, err := interest.FixedInterestRate(fixedSupply, floatingSupply, bench)
	if err != nil {
		return nil, ErrInvalidConfig.wrap(err)
	}
	return out, nil
}
