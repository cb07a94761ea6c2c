package dao

import (
	"github.com/holiman/uint256"
)

func (s *session) loadBenchmark() (*uint256.Int, error) {
	ptr := s.tx.Get(benchmarkKey())
	if ptr == nil {
		return zero(), nil
	}
	v, err := uint256.FromDecimal(*ptr)
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return v, nil
}

func (s *session) saveBenchmark(v *uint256.Int) {
	s.tx.Set(benchmarkKey(), v.Dec())
}

func (s *session) loadBudget() (*Budget, error) {
	ptr := s.tx.Get(budgetKey())
	if ptr == nil {
		return &Budget{DGOV: zero(), DBIT: zero()}, nil
	}
	b, err := DecodeBudget([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return b, nil
}

func (s *session) saveBudget(b *Budget) {
	s.tx.Set(budgetKey(), string(EncodeBudget(b)))
}

func (s *session) loadClassConfig(class uint64) (*ClassConfig, error) {
	ptr := s.tx.Get(classConfigKey(class))
	if ptr == nil {
		return nil, ErrUnknownClass.withf("class %d", class)
	}
	cfg, err := DecodeClassConfig([]byte(*ptr))
	if err != nil {
		return nil, ErrStorage.wrap(err)
	}
	return cfg, nil
}

func (s *session) saveClassConfig(class uint64, cfg ClassConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ProposalThreshold = orZero(cfg.ProposalThreshold)
	cfg.RewardPerDay = orZero(cfg.RewardPerDay)
	s.tx.Set(classConfigKey(class), string(EncodeClassConfig(&cfg)))
	return nil
}

// GetBenchmarkIR returns the current benchmark interest rate (18 decimals).
func (g *Governance) GetBenchmarkIR() (*uint256.Int, error) {
	var out *uint256.Int
	err := g.atomic("benchmark_ir", "", func(s *session) (err error) {
		out, err = s.loadBenchmark()
		return err
	})
	return out, err
}

// GetBudget returns the allocation budget parameters.
func (g *Governance) GetBudget() (*Budget, error) {
	var out *Budget
	err := g.atomic("budget", "", func(s *session) (err error) {
		out, err = s.loadBudget()
		return err
	})
	return out, err
}

func (g *Governance) GetClassConfig(class uint64) (*ClassConfig, error) {
	var out *ClassConfig
	err := g.atomic("class_config", "", func(s *session) (err error) {
		out, err = s.loadClassConfig(class)
		return err
	})
	return out, err
}
