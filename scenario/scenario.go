// Package scenario replays a YAML script of governance operations against an
// engine on a manual clock and checks the outcomes it declares.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// Scenario is one script.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is a single operation. Do picks the operation; the other fields are
// read as that operation needs them.
type Step struct {
	Do string `yaml:"do"`
	As string `yaml:"as"`

	Amount   string        `yaml:"amount"`
	Duration time.Duration `yaml:"duration"`
	// Stake is the stake nonce for unstake, withdraw and vote.
	Stake    uint64        `yaml:"stake"`
	Spender  string        `yaml:"spender"`

	Class       uint64 `yaml:"class"`
	// Proposal 0 means the last proposal this scenario created in Class.
	Proposal    uint64 `yaml:"proposal"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Calls       []Call `yaml:"calls"`
	Voter       string `yaml:"voter"`
	Support     string `yaml:"support"`
	Cancel      bool   `yaml:"cancel"`

	By time.Duration `yaml:"by"`

	// Error is the symbol the operation must fail with; empty means success.
	Error  string  `yaml:"error"`
	Expect *Expect `yaml:"expect"`
}

// Call is one proposal call: either an ABI method with text arguments or raw
// hex calldata.
type Call struct {
	Target string   `yaml:"target"`
	Method string   `yaml:"method"`
	Args   []string `yaml:"args"`
	Data   string   `yaml:"data"`
	Value  string   `yaml:"value"`
}

// Expect lists checks run after the step. Empty fields are skipped.
type Expect struct {
	Status      string          `yaml:"status"`
	BenchmarkIR string          `yaml:"benchmark_ir"`
	Balances    []BalanceExpect `yaml:"balances"`
	Credits     []CreditsExpect `yaml:"credits"`
	Tally       *TallyExpect    `yaml:"tally"`
	Returned    string          `yaml:"returned"`
	Stakes      []StakeExpect   `yaml:"stakes"`
}

type BalanceExpect struct {
	Address string `yaml:"address"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

type CreditsExpect struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
	Locked  string `yaml:"locked"`
}

type TallyExpect struct {
	For     string  `yaml:"for"`
	Against string  `yaml:"against"`
	Voters  *uint64 `yaml:"voters"`
}

type StakeExpect struct {
	Owner     string `yaml:"owner"`
	Nonce     uint64 `yaml:"nonce"`
	Withdrawn *bool  `yaml:"withdrawn"`
	Released  *bool  `yaml:"released"`
}

// Parse strictly decodes a scenario; unknown keys are errors.
func Parse(raw []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	return &sc, nil
}

func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(raw)
}

// ParseAmount reads a decimal amount, optionally with an exponent suffix:
// "1500", "100e18", "2.5e18".
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	if s == "" {
		return new(uint256.Int), nil
	}
	mant, exp, hasExp := strings.Cut(strings.ToLower(s), "e")
	if !hasExp {
		return uint256.FromDecimal(s)
	}
	e, err := strconv.ParseUint(exp, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("amount %q: bad exponent", s)
	}
	whole, frac, _ := strings.Cut(mant, ".")
	if uint64(len(frac)) > e {
		return nil, fmt.Errorf("amount %q: more decimals than the exponent", s)
	}
	digits := whole + frac + strings.Repeat("0", int(e)-len(frac))
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}
