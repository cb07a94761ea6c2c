package dao

import (
	"github.com/holiman/uint256"
)

func (s *session) loadTally(class, nonce uint64) (*Tally, error) {
	ptr := s.tx.Get(tallyKey(class, nonce))
	if ptr == nil {
		return nil, ErrStorage.withf("tally missing for %d/%d", class, nonce)
	}
	t, err := DecodeTally([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return t, nil
}

func (s *session) saveTally(class, nonce uint64, t *Tally) {
	s.tx.Set(tallyKey(class, nonce), string(EncodeTally(t)))
}

// loadBallot returns nil when voter has no ballot on the proposal.
func (s *session) loadBallot(class, nonce uint64, voter Address) (*Ballot, error) {
	ptr := s.tx.Get(ballotKey(class, nonce, voter))
	if ptr == nil {
		return nil, nil
	}
	b, err := DecodeBallot([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return b, nil
}

func (s *session) saveBallot(class, nonce uint64, voter Address, b *Ballot) {
	s.tx.Set(ballotKey(class, nonce, voter), string(EncodeBallot(b)))
}

// dayIndex is the reward day a vote cast now falls into.
func dayIndex(p *Proposal, now int64) uint32 {
	d := (now - p.StartVoteTime) / SecondsPerDay
	if last := int64(len(p.RewardSchedule)) - 1; d > last {
		d = last
	}
	if d < 0 {
		d = 0
	}
	return uint32(d)
}

// castVote locks amount of voter's credits from one stake into a ballot. When
// caller differs from voter, caller spends the allowance voter granted.
func (s *session) castVote(caller Address, class, nonce uint64, voter Address, support Support, amount *uint256.Int, stakeNonce uint64) error {
	if support != SupportFor && support != SupportAgainst {
		return ErrInvalidSupport
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	p, err := s.loadProposal(class, nonce)
	if err != nil {
		return err
	}
	status, err := s.resolve(p)
	if err != nil {
		return err
	}
	if status != StatusActive || s.now < p.StartVoteTime || s.now > p.EndVoteTime {
		return ErrVoteWindowClosed.withf("proposal %d/%d is %s", class, nonce, status)
	}
	prior, err := s.loadBallot(class, nonce, voter)
	if err != nil {
		return err
	}
	if prior != nil {
		return ErrAlreadyVoted.withf("%s on %d/%d", voter, class, nonce)
	}
	st, err := s.loadStake(voter, stakeNonce)
	if err != nil {
		return err
	}
	if st.Withdrawn {
		return ErrInsufficientVotingPower.withf("stake %d is withdrawn", stakeNonce)
	}
	acct, err := s.loadAccount(voter)
	if err != nil {
		return err
	}
	al, err := s.loadAllowance(voter)
	if err != nil {
		return err
	}

	var avail *uint256.Int
	stakeFree := subFloor(st.Amount, st.VotesLocked)
	if caller == voter {
		avail = minOf(stakeFree, subFloor(subFloor(acct.Balance, acct.Locked), al.Amount))
	} else {
		if al.Spender != caller || al.Amount.IsZero() {
			return ErrUnauthorized.withf("%s holds no allowance from %s", caller, voter)
		}
		if amount.Gt(al.Amount) {
			return ErrInsufficientVotingPower.withf("allowance %s below %s", al.Amount.Dec(), amount.Dec())
		}
		avail = minOf(stakeFree, subFloor(acct.Balance, acct.Locked))
	}
	if amount.Gt(avail) {
		return ErrInsufficientVotingPower.withf("available %s below %s", avail.Dec(), amount.Dec())
	}

	if st.VotesLocked, err = add(st.VotesLocked, amount); err != nil {
		return err
	}
	if acct.Locked, err = add(acct.Locked, amount); err != nil {
		return err
	}
	if caller != voter {
		// one ballot consumes the whole delegation
		al.Amount = zero()
		s.saveAllowance(voter, al)
	}

	t, err := s.loadTally(class, nonce)
	if err != nil {
		return err
	}
	if support == SupportFor {
		t.For, err = add(t.For, amount)
	} else {
		t.Against, err = add(t.Against, amount)
	}
	if err != nil {
		return err
	}
	t.Voters++
	day := dayIndex(p, s.now)
	for len(t.DayTotals) <= int(day) {
		t.DayTotals = append(t.DayTotals, zero())
	}
	if t.DayTotals[day], err = add(t.DayTotals[day], amount); err != nil {
		return err
	}

	b := &Ballot{
		Support:    support,
		Amount:     amount.Clone(),
		StakeNonce: stakeNonce,
		Day:        day,
		CastBy:     caller,
		Reward:     zero(),
	}
	s.saveStake(st)
	s.saveAccount(voter, acct)
	s.saveTally(class, nonce, t)
	s.saveBallot(class, nonce, voter, b)
	s.emitVoteCast(p, voter, b)
	return nil
}

// ballotReward splits each day's reward pro rata over the credits voted up to
// and including that day, so earlier ballots collect from more days.
func ballotReward(p *Proposal, t *Tally, b *Ballot) (*uint256.Int, error) {
	total := zero()
	cum := zero()
	for d, perDay := range p.RewardSchedule {
		if d < len(t.DayTotals) {
			var err error
			if cum, err = add(cum, t.DayTotals[d]); err != nil {
				return nil, err
			}
		}
		if d < int(b.Day) || cum.IsZero() || perDay.IsZero() {
			continue
		}
		share, overflow := new(uint256.Int).MulDivOverflow(b.Amount, perDay, cum)
		if overflow {
			return nil, ErrArithmeticOverflow.withMsg("reward share")
		}
		var err error
		if total, err = add(total, share); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// unlock releases caller's ballot once the proposal left the voting window and
// pays the vote reward. Canceled proposals pay nothing.
func (s *session) unlock(caller Address, class, nonce uint64) (*uint256.Int, error) {
	cfg := s.g.cfg
	p, err := s.loadProposal(class, nonce)
	if err != nil {
		return nil, err
	}
	status, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	if status == StatusActive {
		return nil, ErrVoteWindowOpen.withf("closes at %d", p.EndVoteTime)
	}
	b, err := s.loadBallot(class, nonce, caller)
	if err != nil {
		return nil, err
	}
	if b == nil || b.Unlocked {
		return nil, ErrNothingToUnlock.withf("%s on %d/%d", caller, class, nonce)
	}

	reward := zero()
	if status != StatusCanceled {
		t, err := s.loadTally(class, nonce)
		if err != nil {
			return nil, err
		}
		if reward, err = ballotReward(p, t, b); err != nil {
			return nil, err
		}
	}

	st, err := s.loadStake(caller, b.StakeNonce)
	if err != nil {
		return nil, err
	}
	if st.VotesLocked, err = sub(st.VotesLocked, b.Amount); err != nil {
		return nil, err
	}
	acct, err := s.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if acct.Locked, err = sub(acct.Locked, b.Amount); err != nil {
		return nil, err
	}
	if err := s.moveTokens(cfg.RewardAsset, cfg.CommunityPool, caller, reward); err != nil {
		return nil, err
	}
	b.Unlocked = true
	b.Reward = reward
	s.saveStake(st)
	s.saveAccount(caller, acct)
	s.saveBallot(class, nonce, caller, b)
	s.emitVoteUnlocked(p, caller, b)
	return reward.Clone(), nil
}

// Vote casts a ballot for voter. caller is voter itself or voter's delegate.
// Example payload: g.Vote("hive:alice", 0, 1, "hive:alice", dao.SupportFor, uint256.NewInt(50), 1)
func (g *Governance) Vote(caller Address, class, nonce uint64, voter Address, support Support, amount *uint256.Int, stakeNonce uint64) error {
	return g.atomic("vote", caller, func(s *session) error {
		return s.castVote(caller, class, nonce, voter, support, amount, stakeNonce)
	})
}

// UnlockVoteTokens frees caller's ballot credits and pays its vote reward.
func (g *Governance) UnlockVoteTokens(caller Address, class, nonce uint64) (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("unlock", caller, func(s *session) (err error) {
		out, err = s.unlock(caller, class, nonce)
		return err
	})
	return out, err
}

func (g *Governance) HasVoted(class, nonce uint64, account Address) (bool, error) {
	var voted bool
	err := g.atomic("has_voted", "", func(s *session) error {
		if _, err := s.loadProposal(class, nonce); err != nil {
			return err
		}
		b, err := s.loadBallot(class, nonce, account)
		voted = b != nil
		return err
	})
	return voted, err
}

// GetBallot returns nil when account did not vote.
func (g *Governance) GetBallot(class, nonce uint64, account Address) (*Ballot, error) {
	var out *Ballot
	err := g.atomic("get_ballot", "", func(s *session) (err error) {
		out, err = s.loadBallot(class, nonce, account)
		return err
	})
	return out, err
}

func (g *Governance) GetTally(class, nonce uint64) (*Tally, error) {
	var out *Tally
	err := g.atomic("get_tally", "", func(s *session) error {
		if _, err := s.loadProposal(class, nonce); err != nil {
			return err
		}
		var err error
		out, err = s.loadTally(class, nonce)
		return err
	})
	return out, err
}
