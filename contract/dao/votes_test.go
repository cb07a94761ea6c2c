package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond_gov/sdk"
)

func TestVoteLocksCredits(t *testing.T) {
	f := newFixture(t)
	n := f.stake(alice, ether(100), 5)
	p := f.propose(alice, 0)

	f.vote(alice, 0, p, SupportFor, ether(60), n)

	tally, err := f.g.GetTally(0, p)
	require.NoError(t, err)
	assert.Equal(t, ether(60).Dec(), tally.For.Dec())
	assert.True(t, tally.Against.IsZero())
	assert.Equal(t, uint64(1), tally.Voters)

	voted, err := f.g.HasVoted(0, p, alice)
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = f.g.HasVoted(0, p, bob)
	require.NoError(t, err)
	assert.False(t, voted)

	avail, err := f.g.GetAvailableVoteTokens(alice, n)
	require.NoError(t, err)
	assert.Equal(t, ether(40).Dec(), avail.Dec())

	// matured, but the ballot still holds the credits
	f.clock.Advance(5)
	_, err = f.g.Unstake(alice, n)
	assert.ErrorIs(t, err, ErrVoteCreditsLocked)
	f.checkCredits(alice)
}

func TestSecondBallotIsRejected(t *testing.T) {
	f := newFixture(t)
	first := f.stake(alice, ether(100), 100)
	second := f.stake(alice, ether(100), 100)
	p := f.propose(alice, 0)

	f.vote(alice, 0, p, SupportFor, ether(10), first)
	err := f.g.Vote(alice, 0, p, alice, SupportFor, ether(10), first)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	err = f.g.Vote(alice, 0, p, alice, SupportAgainst, ether(10), second)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	tally, err := f.g.GetTally(0, p)
	require.NoError(t, err)
	assert.Equal(t, ether(10).Dec(), tally.For.Dec())
	assert.Equal(t, uint64(1), tally.Voters)
}

func TestVoteRejectsBadBallots(t *testing.T) {
	f := newFixture(t)
	n := f.stake(alice, ether(100), 100)
	p := f.propose(alice, 0)

	assert.ErrorIs(t, f.g.Vote(alice, 0, p, alice, Support(9), ether(1), n), ErrInvalidSupport)
	assert.ErrorIs(t, f.g.Vote(alice, 0, p, alice, SupportFor, zero(), n), ErrZeroAmount)
	assert.ErrorIs(t, f.g.Vote(alice, 0, p, alice, SupportFor, ether(101), n), ErrInsufficientVotingPower)
	assert.ErrorIs(t, f.g.Vote(alice, 0, p, alice, SupportFor, ether(1), 7), ErrStakeNotFound)
	assert.ErrorIs(t, f.g.Vote(alice, 0, 99, alice, SupportFor, ether(1), n), ErrProposalNotFound)

	voted, err := f.g.HasVoted(0, p, alice)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestVoteWindowBounds(t *testing.T) {
	f := newFixture(t)
	n := f.stake(alice, ether(100), 100)
	p := f.propose(alice, 0)

	f.clock.Advance(17) // the last second of the window still counts
	f.vote(alice, 0, p, SupportFor, ether(1), n)

	q := f.propose(alice, 0)
	f.clock.Advance(18)
	err := f.g.Vote(alice, 0, q, alice, SupportFor, ether(1), n)
	assert.ErrorIs(t, err, ErrVoteWindowClosed)

	r := f.propose(alice, 0)
	require.NoError(t, f.g.CancelProposal(alice, 0, r))
	err = f.g.Vote(alice, 0, r, alice, SupportFor, ether(1), n)
	assert.ErrorIs(t, err, ErrVoteWindowClosed)
}

func TestDelegatedVoteIsRecordedForOwner(t *testing.T) {
	f := newFixture(t)
	n := f.stake(alice, ether(100), 100)
	p := f.propose(alice, 0)
	require.NoError(t, f.g.DelegateVoteCredits(alice, bob, ether(40)))

	// the allowance is reserved from alice's own voting
	err := f.g.Vote(alice, 0, p, alice, SupportFor, ether(61), n)
	assert.ErrorIs(t, err, ErrInsufficientVotingPower)

	err = f.g.Vote(carol, 0, p, alice, SupportFor, ether(10), n)
	assert.ErrorIs(t, err, ErrUnauthorized)
	err = f.g.Vote(bob, 0, p, alice, SupportFor, ether(41), n)
	assert.ErrorIs(t, err, ErrInsufficientVotingPower)

	require.NoError(t, f.g.Vote(bob, 0, p, alice, SupportAgainst, ether(40), n))

	b, err := f.g.GetBallot(0, p, alice)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, bob, b.CastBy)
	assert.Equal(t, SupportAgainst, b.Support)
	voted, err := f.g.HasVoted(0, p, bob)
	require.NoError(t, err)
	assert.False(t, voted)

	al, err := f.g.GetAllowance(alice)
	require.NoError(t, err)
	assert.True(t, al.Amount.IsZero())

	assert.ErrorIs(t, f.g.Vote(alice, 0, p, alice, SupportFor, ether(1), n), ErrAlreadyVoted)

	// the delegate cannot unlock, the owner does
	f.clock.Advance(18)
	_, err = f.g.UnlockVoteTokens(bob, 0, p)
	assert.ErrorIs(t, err, ErrNothingToUnlock)
	reward, err := f.g.UnlockVoteTokens(alice, 0, p)
	require.NoError(t, err)
	assert.False(t, reward.IsZero())
}

func TestUnlockVoteTokens(t *testing.T) {
	f := newFixture(t)
	na := f.stake(alice, ether(100), 5)
	f.stake(carol, ether(100), 5)
	p := f.propose(alice, 0)
	f.vote(alice, 0, p, SupportFor, ether(100), na)

	_, err := f.g.UnlockVoteTokens(alice, 0, p)
	assert.ErrorIs(t, err, ErrVoteWindowOpen)

	f.clock.Advance(18)
	_, err = f.g.UnlockVoteTokens(carol, 0, p)
	assert.ErrorIs(t, err, ErrNothingToUnlock)

	reward, err := f.g.UnlockVoteTokens(alice, 0, p)
	require.NoError(t, err)
	// alone on a one-day proposal: the whole day's reward
	assert.Equal(t, ether(10).Dec(), reward.Dec())
	assert.Equal(t, ether(10).Dec(), f.balance(sdk.AssetDBIT, alice).Dec())

	_, err = f.g.UnlockVoteTokens(alice, 0, p)
	assert.ErrorIs(t, err, ErrNothingToUnlock)
	assert.Equal(t, ether(10).Dec(), f.balance(sdk.AssetDBIT, alice).Dec())

	acct, err := f.g.GetVoteCredits(alice)
	require.NoError(t, err)
	assert.True(t, acct.Locked.IsZero())
	out, err := f.g.Unstake(alice, na)
	require.NoError(t, err)
	assert.Equal(t, ether(100).Dec(), out.Dec())
	f.checkCredits(alice, carol)
}

func TestRewardFavorsEarlyVoters(t *testing.T) {
	f := newFixture(t)
	na := f.stake(alice, ether(100), 5)
	nb := f.stake(bob, ether(100), 5)
	p := f.propose(alice, 1)

	f.vote(alice, 1, p, SupportFor, ether(100), na)
	f.clock.Advance(SecondsPerDay)
	f.vote(bob, 1, p, SupportFor, ether(100), nb)

	tally, err := f.g.GetTally(1, p)
	require.NoError(t, err)
	require.Len(t, tally.DayTotals, 3)
	assert.Equal(t, ether(100).Dec(), tally.DayTotals[0].Dec())
	assert.Equal(t, ether(100).Dec(), tally.DayTotals[1].Dec())
	assert.True(t, tally.DayTotals[2].IsZero())

	f.clock.Advance(2*SecondsPerDay + 1)
	ra, err := f.g.UnlockVoteTokens(alice, 1, p)
	require.NoError(t, err)
	rb, err := f.g.UnlockVoteTokens(bob, 1, p)
	require.NoError(t, err)

	// day 0: alice alone; days 1 and 2: split evenly
	assert.Equal(t, ether(60).Dec(), ra.Dec())
	assert.Equal(t, ether(30).Dec(), rb.Dec())
}

func TestUnlockAfterCancelPaysNothing(t *testing.T) {
	f := newFixture(t)
	n := f.stake(alice, ether(100), 5)
	p := f.propose(alice, 0)
	f.vote(alice, 0, p, SupportFor, ether(50), n)
	require.NoError(t, f.g.CancelProposal(alice, 0, p))

	reward, err := f.g.UnlockVoteTokens(alice, 0, p)
	require.NoError(t, err)
	assert.True(t, reward.IsZero())

	avail, err := f.g.GetAvailableVoteTokens(alice, n)
	require.NoError(t, err)
	assert.Equal(t, ether(100).Dec(), avail.Dec())
	assert.Len(t, f.eventsWithCode(EventVoteUnlocked), 1)
}
