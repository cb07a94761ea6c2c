package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"debond_gov/config"
	"debond_gov/contract/dao"
	"debond_gov/contract/dispatch"
	"debond_gov/contract/store"
	"debond_gov/sdk"
)

type engine struct {
	g      *dao.Governance
	clock  *dao.ManualClock
	router *dispatch.Router
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	cfg := config.Default()
	gov := &cfg.Governance
	gov.Classes[0].VotingPeriod = 17 * time.Second
	gov.Classes[0].RewardPerDay = "10000000000000000000"
	gov.Balances = append(gov.Balances, config.BalanceConfig{Address: gov.CommunityPool, Asset: "dbit", Amount: "1000000000000000000000000"})
	for _, who := range []string{"hive:alice", "hive:bob", "hive:carol", "hive:dave", "hive:erin"} {
		gov.Balances = append(gov.Balances, config.BalanceConfig{Address: who, Asset: "dgov", Amount: "1000000000000000000000"})
	}
	dc, gen, err := gov.Build()
	require.NoError(t, err)

	router, err := dispatch.Standard(dao.Address(gov.ParamsTarget), dao.Address(gov.TreasuryTarget), dao.Asset(gov.TreasuryAsset))
	require.NoError(t, err)
	clock := dao.NewManualClock(1_700_000_000)
	g, err := dao.New(store.NewMemState(), dc, dao.WithClock(clock), dao.WithDispatcher(router))
	require.NoError(t, err)
	require.NoError(t, g.Init(gen))
	return &engine{g: g, clock: clock, router: router}
}

func TestBenchmarkUpdateScenario(t *testing.T) {
	e := newEngine(t)
	sc, err := Load("testdata/benchmark_update.yaml")
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	rep, err := NewRunner(e.g, e.clock, e.router, zap.New(core)).Run(context.Background(), sc)
	require.NoError(t, err)
	for _, s := range rep.Steps {
		assert.True(t, s.OK, "step %d (%s): %s", s.Index, s.Do, s.Detail)
	}
	assert.True(t, rep.OK())
	assert.Len(t, rep.Steps, len(sc.Steps))

	reward, err := e.g.BalanceOf(sdk.AssetDBIT, "hive:alice")
	require.NoError(t, err)
	assert.False(t, reward.IsZero())

	started := logs.FilterMessage("scenario started").All()
	require.Len(t, started, 1)
	assert.Equal(t, rep.RunID.String(), started[0].ContextMap()["run"])
}

func TestMismatchesAreReported(t *testing.T) {
	e := newEngine(t)
	sc, err := Parse([]byte(`
name: wrong expectations
steps:
  - {do: stake, as: "hive:alice", amount: "0", duration: 1h}
  - {do: stake, as: "hive:alice", amount: "5", duration: 1h, error: zero_amount}
  - {do: stake, as: "hive:bob", amount: "5", duration: 1h, expect: {credits: [{address: "hive:bob", balance: "6"}]}}
  - {do: expect, expect: {benchmark_ir: "5e16"}}
`))
	require.NoError(t, err)

	rep, err := NewRunner(e.g, e.clock, e.router, nil).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Failed)
	assert.Equal(t, "zero_amount", rep.Steps[0].Symbol)
	assert.Contains(t, rep.Steps[0].Detail, "unexpected error")
	assert.Contains(t, rep.Steps[1].Detail, "want error zero_amount")
	assert.Contains(t, rep.Steps[2].Detail, "credits hive:bob: want 6, got 5")
	assert.True(t, rep.Steps[3].OK)
}

func TestMalformedStepStopsTheRun(t *testing.T) {
	e := newEngine(t)
	sc, err := Parse([]byte(`
name: typo
steps:
  - {do: advance, by: 1s}
  - {do: stak, as: "hive:alice"}
  - {do: advance, by: 1s}
`))
	require.NoError(t, err)

	rep, err := NewRunner(e.g, e.clock, e.router, nil).Run(context.Background(), sc)
	assert.ErrorContains(t, err, `unknown operation "stak"`)
	assert.Len(t, rep.Steps, 1)
	assert.Equal(t, int64(1_700_000_001), e.clock.Now())
}

func TestParseRejectsUnknownKeysAndEmptyScripts(t *testing.T) {
	_, err := Parse([]byte("name: x\nsteps:\n  - {do: stake, amout: \"1\"}\n"))
	assert.ErrorContains(t, err, "amout")
	_, err = Parse([]byte("name: empty\n"))
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"":       "0",
		"1500":   "1500",
		"100e18": "100000000000000000000",
		"2.5e18": "2500000000000000000",
		"1_000":  "1000",
		"7E16":   "70000000000000000",
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Dec(), in)
	}
	for _, bad := range []string{"1.25e1", "-4", "ten", "1e"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestRawCalldataAndCanceledRun(t *testing.T) {
	e := newEngine(t)
	sc, err := Parse([]byte(`
name: raw
steps:
  - {do: stake, as: "hive:alice", amount: "1e18", duration: 1h}
  - do: propose
    as: "hive:alice"
    calls: [{target: "contract:params", data: "0xdeadbeef"}]
  - {do: cancel, as: "hive:alice", expect: {status: canceled}}
`))
	require.NoError(t, err)
	rep, err := NewRunner(e.g, e.clock, e.router, nil).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, rep.OK(), "%+v", rep.Steps)

	p, err := e.g.GetProposal(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, p.Calldatas[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRunner(e.g, e.clock, e.router, nil).Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}
