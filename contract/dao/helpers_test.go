package dao

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"debond_gov/contract/store"
	"debond_gov/sdk"
)

const (
	operator Address = "hive:operator"
	vault    Address = "contract:gov"
	pool     Address = "contract:pool"

	alice Address = "hive:alice"
	bob   Address = "hive:bob"
	carol Address = "hive:carol"
	dave  Address = "hive:dave"
	erin  Address = "hive:erin"

	paramsTarget  Address = "contract:params"
	releaseTarget Address = "contract:release"
	brokenTarget  Address = "contract:broken"

	genesisTime int64 = 1_700_000_000
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

func testConfig() Config {
	return Config{
		Self:             vault,
		Operator:         operator,
		CommunityPool:    pool,
		PrincipalAsset:   sdk.AssetDGOV,
		RewardAsset:      sdk.AssetDBIT,
		MinStakeDuration: 1,
		MaxCallDepth:     4,
	}
}

// class 0 is the short simple-majority class, class 1 the guarded one.
func testGenesis() Genesis {
	gen := Genesis{
		BenchmarkIR: uint256.NewInt(5e16),
		Budget:      Budget{DGOV: ether(1000), DBIT: ether(2000)},
		Classes: map[uint64]ClassConfig{
			0: {
				VotingPeriod:      17,
				Approval:          ApprovalSimpleMajority,
				ProposalThreshold: zero(),
				RewardPerDay:      ether(10),
			},
			1: {
				VotingPeriod:      3 * SecondsPerDay,
				QuorumBps:         2000,
				Approval:          ApprovalSupermajority,
				Vetoable:          true,
				ProposalThreshold: ether(10),
				ExecutionDelay:    60,
				RewardPerDay:      ether(30),
			},
		},
		Balances: []GenesisBalance{{Address: pool, Asset: sdk.AssetDBIT, Amount: ether(1_000_000)}},
	}
	for _, a := range []Address{alice, bob, carol, dave, erin} {
		gen.Balances = append(gen.Balances, GenesisBalance{Address: a, Asset: sdk.AssetDGOV, Amount: ether(1000)})
	}
	return gen
}

// testDispatcher understands three targets: params takes a decimal rate,
// release takes "owner/nonce", broken always reverts.
func testDispatcher() DispatchFunc {
	return func(env *CallEnv, target Address, calldata []byte) error {
		switch target {
		case paramsTarget:
			v, err := uint256.FromDecimal(string(calldata))
			if err != nil {
				return err
			}
			return env.SetBenchmarkIR(v)
		case releaseTarget:
			owner, nonce, _ := strings.Cut(string(calldata), "/")
			n, err := strconv.ParseUint(nonce, 10, 64)
			if err != nil {
				return err
			}
			return env.ReleaseStake(Address(owner), n)
		case brokenTarget:
			return errors.New("target reverted")
		}
		return fmt.Errorf("unknown target %s", target)
	}
}

type fixture struct {
	t      *testing.T
	g      *Governance
	clock  *ManualClock
	mem    *store.MemState
	events []Event
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWithGenesis(t, testGenesis(), opts...)
}

func newFixtureWithGenesis(t *testing.T, gen Genesis, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{t: t, clock: NewManualClock(genesisTime), mem: store.NewMemState()}
	base := []Option{
		WithClock(f.clock),
		WithDispatcher(testDispatcher()),
		WithEventSink(SinkFunc(func(e Event) { f.events = append(f.events, e) })),
	}
	g, err := New(f.mem, testConfig(), append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, g.Init(gen))
	f.g = g
	return f
}

func (f *fixture) stake(owner Address, amount *uint256.Int, duration int64) uint64 {
	f.t.Helper()
	n, err := f.g.Stake(owner, amount, duration)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) balance(asset Asset, addr Address) *uint256.Int {
	f.t.Helper()
	v, err := f.g.BalanceOf(asset, addr)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) status(class, nonce uint64) ProposalStatus {
	f.t.Helper()
	st, err := f.g.GetProposalStatus(class, nonce)
	require.NoError(f.t, err)
	return st
}

type call struct {
	target   Address
	calldata string
}

func (f *fixture) propose(proposer Address, class uint64, calls ...call) uint64 {
	f.t.Helper()
	in := ProposalInput{Class: class, Title: "test proposal"}
	for _, c := range calls {
		in.Targets = append(in.Targets, c.target)
		in.Values = append(in.Values, zero())
		in.Calldatas = append(in.Calldatas, []byte(c.calldata))
	}
	n, err := f.g.CreateProposal(proposer, in)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) vote(voter Address, class, nonce uint64, support Support, amount *uint256.Int, stakeNonce uint64) {
	f.t.Helper()
	require.NoError(f.t, f.g.Vote(voter, class, nonce, voter, support, amount, stakeNonce))
}

func (f *fixture) eventsWithCode(code string) []Event {
	var out []Event
	for _, e := range f.events {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

// snapshot copies the whole backend so tests can prove an operation left no trace.
func (f *fixture) snapshot() map[string]string {
	out := map[string]string{}
	for _, k := range f.mem.Keys() {
		out[k] = *f.mem.Get(k)
	}
	return out
}

// checkCredits asserts that every owner's vote-credit balance equals the sum
// of their active stake principals and that the supply is the sum of balances.
func (f *fixture) checkCredits(owners ...Address) {
	f.t.Helper()
	total := zero()
	for _, o := range owners {
		stakes, err := f.g.GetStakes(o)
		require.NoError(f.t, err)
		sum := zero()
		for _, st := range stakes {
			if !st.Withdrawn {
				sum.Add(sum, st.Amount)
			}
		}
		acct, err := f.g.GetVoteCredits(o)
		require.NoError(f.t, err)
		require.Equal(f.t, sum.Dec(), acct.Balance.Dec(), "credits of %s", o)
		total.Add(total, acct.Balance)
	}
	supply, err := f.g.VoteCreditSupply()
	require.NoError(f.t, err)
	require.Equal(f.t, total.Dec(), supply.Dec(), "credit supply")
}
