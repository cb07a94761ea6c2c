package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const configTemplate = `
store:
  backend: %s
  path: %s
  cache_size: 64
log:
  level: error
governance:
  genesis_time: 1700000000
  classes:
    - id: 0
      voting_period: 17s
      approval: simple_majority
      reward_per_day: "10000000000000000000"
  balances:
    - {address: "contract:community_pool", asset: dbit, amount: "1000000000000000000000000"}
    - {address: "hive:alice", asset: dgov, amount: "1000000000000000000000"}
    - {address: "hive:bob", asset: dgov, amount: "1000000000000000000000"}
    - {address: "hive:carol", asset: dgov, amount: "1000000000000000000000"}
    - {address: "hive:dave", asset: dgov, amount: "1000000000000000000000"}
    - {address: "hive:erin", asset: dgov, amount: "1000000000000000000000"}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dgov.yaml")
	body := fmt.Sprintf(configTemplate, backend, filepath.Join(dir, "state"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dgov version "+Version+" (build: dev)\n", out)
}

func TestRunThenInspect(t *testing.T) {
	for _, backend := range []string{"sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeConfig(t, backend)

			out, err := execute(t, "run", "-c", cfg, "../scenario/testdata/benchmark_update.yaml")
			require.NoError(t, err, out)
			assert.Contains(t, out, "benchmark rate update")
			assert.Contains(t, out, "0 failed")

			// state survives the process: inspect reopens the same store
			out, err = execute(t, "inspect", "proposal", "0", "1", "-c", cfg, "--at", "1700001000")
			require.NoError(t, err)
			var p proposal
			require.NoError(t, yaml.Unmarshal([]byte(out), &p))
			assert.Equal(t, "executed", p.Status)
			assert.Equal(t, "hive:alice", p.Proposer)
			assert.Equal(t, uint64(4), p.Tally.Voters)
			require.Len(t, p.Calls, 1)
			assert.Equal(t, "contract:params", p.Calls[0].Target)

			out, err = execute(t, "inspect", "account", "hive:bob", "-c", cfg)
			require.NoError(t, err)
			var a account
			require.NoError(t, yaml.Unmarshal([]byte(out), &a))
			assert.Equal(t, "85000000000000000000", a.Credits)
			assert.Equal(t, "85000000000000000000", a.Locked)
			require.Len(t, a.Stakes, 1)
			assert.Equal(t, "915000000000000000000", a.Balances["dgov"])

			_, err = execute(t, "inspect", "stake", "hive:bob", "2", "-c", cfg)
			assert.ErrorContains(t, err, "stake does not exist")
		})
	}
}

func TestRunReportsFailedSteps(t *testing.T) {
	cfg := writeConfig(t, "memory")
	script := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
name: bad
steps:
  - {do: unstake, as: "hive:alice", stake: 1}
`), 0o600))

	out, err := execute(t, "run", "-c", cfg, script)
	assert.ErrorContains(t, err, "1 of 1 steps failed")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "stake does not exist")
}

func TestBadConfigIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dgov.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: etcd\n"), 0o600))
	_, err := execute(t, "inspect", "account", "hive:alice", "-c", path)
	assert.ErrorContains(t, err, "etcd")
}
