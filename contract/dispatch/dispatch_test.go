package dispatch

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond_gov/contract/dao"
	"debond_gov/contract/store"
	"debond_gov/sdk"
)

const (
	vault    dao.Address = "contract:gov"
	params   dao.Address = "contract:params"
	treasury dao.Address = "contract:treasury"
	alice    dao.Address = "hive:alice"
	bob      dao.Address = "hive:bob"
)

func ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

type harness struct {
	t      *testing.T
	g      *dao.Governance
	clock  *dao.ManualClock
	router *Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithTreasury(t, sdk.AssetDBIT)
}

func newHarnessWithTreasury(t *testing.T, asset dao.Asset) *harness {
	t.Helper()
	router, err := Standard(params, treasury, asset)
	require.NoError(t, err)
	clock := dao.NewManualClock(1_700_000_000)
	cfg := dao.DefaultConfig()
	cfg.Self = vault
	g, err := dao.New(store.NewMemState(), cfg, dao.WithClock(clock), dao.WithDispatcher(router))
	require.NoError(t, err)
	require.NoError(t, g.Init(dao.Genesis{
		BenchmarkIR: uint256.NewInt(5e16),
		Budget:      dao.Budget{DGOV: ether(1), DBIT: ether(1)},
		Classes: map[uint64]dao.ClassConfig{
			0: {VotingPeriod: 60, Approval: dao.ApprovalSimpleMajority, ProposalThreshold: new(uint256.Int), RewardPerDay: ether(1)},
		},
		Balances: []dao.GenesisBalance{
			{Address: alice, Asset: sdk.AssetDGOV, Amount: ether(100)},
			{Address: vault, Asset: sdk.AssetDBIT, Amount: ether(50)},
			{Address: treasury, Asset: sdk.AssetDBIT, Amount: ether(20)},
		},
	}))
	return &harness{t: t, g: g, clock: clock, router: router}
}

func (h *harness) pack(addr dao.Address, method string, args ...interface{}) []byte {
	h.t.Helper()
	target, ok := h.router.Lookup(addr)
	require.True(h.t, ok)
	data, err := target.(*ABITarget).Pack(method, args...)
	require.NoError(h.t, err)
	return data
}

// pass runs one proposal through a winning vote and returns its execution error.
func (h *harness) pass(targets []dao.Address, values []*uint256.Int, calldatas [][]byte) error {
	h.t.Helper()
	n, err := h.g.Stake(alice, ether(10), 3600)
	require.NoError(h.t, err)
	p, err := h.g.CreateProposal(alice, dao.ProposalInput{Targets: targets, Values: values, Calldatas: calldatas, Title: "params"})
	require.NoError(h.t, err)
	require.NoError(h.t, h.g.Vote(alice, 0, p, alice, dao.SupportFor, ether(10), n))
	h.clock.Advance(61)
	return h.g.ExecuteProposal(alice, 0, p)
}

func TestRouterAddresses(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, []dao.Address{params, treasury}, h.router.Addresses())
	_, ok := h.router.Lookup("contract:nowhere")
	assert.False(t, ok)
}

func TestUpdateBenchmarkThroughProposal(t *testing.T) {
	h := newHarness(t)
	data := h.pack(params, "updateBenchmarkInterestRate", big.NewInt(7e16))
	require.NoError(t, h.pass([]dao.Address{params}, []*uint256.Int{new(uint256.Int)}, [][]byte{data}))

	rate, err := h.g.GetBenchmarkIR()
	require.NoError(t, err)
	assert.Equal(t, "70000000000000000", rate.Dec())
}

func TestSetClassConfigAndBudget(t *testing.T) {
	h := newHarness(t)
	class := h.pack(params, "setClassConfig",
		uint64(2), uint64(86400), uint64(1000), uint8(dao.ApprovalAbsoluteMajority), true,
		ether(5).ToBig(), uint64(30), ether(3).ToBig())
	budget := h.pack(params, "updateBudget", ether(9).ToBig(), ether(8).ToBig())
	zero := new(uint256.Int)
	require.NoError(t, h.pass([]dao.Address{params, params}, []*uint256.Int{zero, zero}, [][]byte{class, budget}))

	cfg, err := h.g.GetClassConfig(2)
	require.NoError(t, err)
	assert.Equal(t, dao.ApprovalAbsoluteMajority, cfg.Approval)
	assert.True(t, cfg.Vetoable)
	assert.Equal(t, int64(30), cfg.ExecutionDelay)
	assert.Equal(t, ether(5).Dec(), cfg.ProposalThreshold.Dec())

	b, err := h.g.GetBudget()
	require.NoError(t, err)
	assert.Equal(t, ether(9).Dec(), b.DGOV.Dec())
	assert.Equal(t, ether(8).Dec(), b.DBIT.Dec())
}

func TestReleaseStakeThroughProposal(t *testing.T) {
	h := newHarness(t)
	locked, err := h.g.Stake(alice, ether(5), 365*86400)
	require.NoError(t, err)
	data, err := h.router.targets[params].(*ABITarget).PackStrings("releaseStake", []string{alice.String(), "1"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), locked)
	require.NoError(t, h.pass([]dao.Address{params}, []*uint256.Int{new(uint256.Int)}, [][]byte{data}))

	st, err := h.g.GetStake(alice, locked)
	require.NoError(t, err)
	assert.True(t, st.Released)
	out, err := h.g.Unstake(alice, locked)
	require.NoError(t, err)
	assert.Equal(t, ether(5).Dec(), out.Dec())
}

func TestTreasuryFundAndTransfer(t *testing.T) {
	h := newHarness(t)
	fund := h.pack(treasury, "fund")
	pay := h.pack(treasury, "transfer", string(sdk.AssetDBIT), bob.String(), ether(25).ToBig())
	require.NoError(t, h.pass(
		[]dao.Address{treasury, treasury},
		[]*uint256.Int{ether(10), new(uint256.Int)},
		[][]byte{fund, pay},
	))

	got, err := h.g.BalanceOf(sdk.AssetDBIT, bob)
	require.NoError(t, err)
	assert.Equal(t, ether(25).Dec(), got.Dec())
	got, err = h.g.BalanceOf(sdk.AssetDBIT, treasury)
	require.NoError(t, err)
	assert.Equal(t, ether(5).Dec(), got.Dec())
	got, err = h.g.BalanceOf(sdk.AssetDBIT, vault)
	require.NoError(t, err)
	assert.Equal(t, ether(40).Dec(), got.Dec())
}

func TestFundNeverDrawsStakedPrincipal(t *testing.T) {
	h := newHarnessWithTreasury(t, sdk.AssetDGOV)
	idle, err := h.g.Stake(alice, ether(20), 1)
	require.NoError(t, err)
	err = h.pass([]dao.Address{treasury}, []*uint256.Int{ether(30)}, [][]byte{h.pack(treasury, "fund")})
	assert.ErrorIs(t, err, dao.ErrExecutionReverted)
	assert.ErrorIs(t, err, ErrBadArgument)

	got, err := h.g.BalanceOf(sdk.AssetDGOV, vault)
	require.NoError(t, err)
	assert.Equal(t, ether(30).Dec(), got.Dec())

	out, err := h.g.Unstake(alice, idle)
	require.NoError(t, err)
	assert.Equal(t, ether(20).Dec(), out.Dec())
}

func TestSetClassConfigRejectsUnboundedPeriods(t *testing.T) {
	for name, periods := range map[string][2]uint64{
		"voting period":   {1 << 50, 0},
		"wrapping period": {1 << 63, 0},
		"execution delay": {60, 1 << 50},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			data := h.pack(params, "setClassConfig", uint64(4), periods[0], uint64(0), uint8(dao.ApprovalSimpleMajority),
				false, new(big.Int), periods[1], new(big.Int))
			err := h.pass([]dao.Address{params}, []*uint256.Int{new(uint256.Int)}, [][]byte{data})
			assert.ErrorIs(t, err, dao.ErrExecutionReverted)
			assert.ErrorIs(t, err, dao.ErrInvalidConfig)

			_, err = h.g.GetClassConfig(4)
			assert.ErrorIs(t, err, dao.ErrUnknownClass)
		})
	}
}

func TestFailedCallRevertsExecution(t *testing.T) {
	h := newHarness(t)
	rate := h.pack(params, "updateBenchmarkInterestRate", big.NewInt(9e16))
	overdraw := h.pack(treasury, "transfer", string(sdk.AssetDBIT), bob.String(), ether(21).ToBig())
	err := h.pass([]dao.Address{params, treasury}, []*uint256.Int{new(uint256.Int), new(uint256.Int)}, [][]byte{rate, overdraw})
	assert.ErrorIs(t, err, dao.ErrExecutionReverted)

	got, err := h.g.GetBenchmarkIR()
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000", got.Dec())
	st, err := h.g.GetProposalStatus(0, 1)
	require.NoError(t, err)
	assert.Equal(t, dao.StatusSucceeded, st)
}

func TestCalldataChecks(t *testing.T) {
	h := newHarness(t)
	zero := []*uint256.Int{new(uint256.Int)}

	err := h.pass([]dao.Address{params}, zero, [][]byte{{0x01, 0x02}})
	assert.ErrorIs(t, err, ErrShortCalldata)

	err = h.pass([]dao.Address{params}, zero, [][]byte{{0xde, 0xad, 0xbe, 0xef}})
	assert.ErrorIs(t, err, ErrUnknownMethod)

	err = h.pass([]dao.Address{"contract:nowhere"}, zero, [][]byte{{0xde, 0xad, 0xbe, 0xef}})
	assert.ErrorIs(t, err, ErrUnknownTarget)

	rate := h.pack(params, "updateBenchmarkInterestRate", big.NewInt(1))
	err = h.pass([]dao.Address{params}, []*uint256.Int{ether(1)}, [][]byte{rate})
	assert.ErrorIs(t, err, ErrNotPayable)
	assert.ErrorIs(t, err, dao.ErrExecutionReverted)
}

func TestPackStrings(t *testing.T) {
	p, err := NewParams()
	require.NoError(t, err)

	data, err := p.PackStrings("setClassConfig", []string{"3", "600", "0", "1", "false", "0", "0", "1000"})
	require.NoError(t, err)
	want, err := p.Pack("setClassConfig", uint64(3), uint64(600), uint64(0), uint8(1), false, big.NewInt(0), uint64(0), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, want, data)

	_, err = p.PackStrings("setClassConfig", []string{"3"})
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = p.PackStrings("updateBenchmarkInterestRate", []string{"lots"})
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = p.PackStrings("selfDestruct", nil)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestNewABITargetNeedsEveryHandler(t *testing.T) {
	_, err := NewABITarget(TreasuryABI, map[string]Method{
		"fund": func(*dao.CallEnv, []interface{}) error { return nil },
	})
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
