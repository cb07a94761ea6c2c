// Package dao is the staking-weighted governance engine: stakes mint vote
// credits, credits are locked into ballots, and passing proposals dispatch
// their calls. Every public operation runs as one atomic unit against a
// store.Backend.
package dao

import (
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"debond_gov/contract/ledger"
	"debond_gov/contract/store"
)

// Tokens is the fungible-balance collaborator principal and rewards move through.
type Tokens interface {
	BalanceOf(asset Asset, addr Address) (*uint256.Int, error)
	Transfer(asset Asset, from, to Address, amount *uint256.Int) error
	Mint(asset Asset, to Address, amount *uint256.Int) error
	Burn(asset Asset, from Address, amount *uint256.Int) error
}

// TokensFactory binds a Tokens implementation to the state of one operation.
type TokensFactory func(st store.State) Tokens

// LedgerTokens keeps balances next to governance state in the same KV.
func LedgerTokens(st store.State) Tokens { return ledger.NewBook(st) }

// Observer is told about every finished operation, e.g. for metrics.
type Observer interface {
	ObserveOp(op string, err error, elapsed time.Duration)
}

// Governance is the facade over staking, voting and proposals. It is safe for
// concurrent use; operations are serialized.
type Governance struct {
	mu       sync.Mutex
	cfg      Config
	backend  store.Backend
	clock    Clock
	dispatch Dispatcher
	tokens   TokensFactory
	sink     EventSink
	observer Observer
	log      *zap.Logger
}

type Option func(*Governance)

func WithClock(c Clock) Option { return func(g *Governance) { g.clock = c } }

func WithDispatcher(d Dispatcher) Option { return func(g *Governance) { g.dispatch = d } }

func WithTokens(f TokensFactory) Option { return func(g *Governance) { g.tokens = f } }

func WithEventSink(s EventSink) Option { return func(g *Governance) { g.sink = s } }

func WithObserver(o Observer) Option { return func(g *Governance) { g.observer = o } }

func WithLogger(l *zap.Logger) Option { return func(g *Governance) { g.log = l } }

// New builds the engine on backend. Call Init once before the first operation.
func New(backend store.Backend, cfg Config, opts ...Option) (*Governance, error) {
	if backend == nil {
		return nil, ErrInvalidConfig.withMsg("nil backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Governance{
		cfg:      cfg,
		backend:  backend,
		clock:    SystemClock{},
		dispatch: noDispatch{},
		tokens:   LedgerTokens,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

func (g *Governance) Config() Config { return g.cfg }

// session is the state of one running operation. Nested sessions share the
// clock reading of their root and fold their writes and events into it.
type session struct {
	g         *Governance
	tx        *store.Tx
	now       int64
	events    []Event
	executing bool
	depth     int
	tok       Tokens
}

func (s *session) tokens() Tokens {
	if s.tok == nil {
		s.tok = s.g.tokens(s.tx)
	}
	return s.tok
}

// atomic runs fn as one all-or-nothing unit. Events reach the sink only after
// the write set committed.
func (g *Governance) atomic(op string, caller Address, fn func(s *session) error) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	started := time.Now()
	s := &session{g: g, tx: store.Begin(g.backend), now: g.clock.Now()}
	defer func() {
		if g.observer != nil {
			g.observer.ObserveOp(op, err, time.Since(started))
		}
		g.logOp(op, caller, s.now, err)
	}()

	err = fn(s)
	// a failed read may have surfaced as a policy error; the storage fault wins
	if terr := s.tx.Err(); terr != nil {
		err = ErrStorage.wrap(terr)
	}
	if err != nil {
		s.tx.Discard()
		return err
	}
	if cerr := s.tx.Commit(); cerr != nil {
		return ErrStorage.wrap(cerr)
	}
	if g.sink != nil {
		for _, ev := range s.events {
			g.sink.Emit(ev)
		}
	}
	return nil
}

func (g *Governance) logOp(op string, caller Address, now int64, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Int64("now", now)}
	if caller != "" {
		fields = append(fields, zap.String("caller", caller.String()))
	}
	if err == nil {
		g.log.Debug("op committed", fields...)
		return
	}
	fields = append(fields, zap.String("symbol", SymbolOf(err)), zap.Error(err))
	if KindOf(err) == KindFatal {
		g.log.Error("op failed", fields...)
		return
	}
	g.log.Debug("op rejected", fields...)
}

// nested runs fn in a child session. The child's writes and events join the
// parent only when fn succeeds.
func (s *session) nested(fn func(c *session) error) error {
	if s.depth >= s.g.cfg.MaxCallDepth {
		return ErrReentrantCall.withf("call depth %d exceeded", s.g.cfg.MaxCallDepth)
	}
	c := &session{g: s.g, tx: s.tx.Child(), now: s.now, executing: s.executing, depth: s.depth + 1}
	if err := fn(c); err != nil {
		c.tx.Discard()
		return err
	}
	if err := c.tx.Commit(); err != nil {
		return ErrStorage.wrap(err)
	}
	s.events = append(s.events, c.events...)
	return nil
}

// moveTokens maps collaborator failures onto engine errors.
func (s *session) moveTokens(asset Asset, from, to Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	err := s.tokens().Transfer(asset, from, to, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return ErrInsufficientFunds.wrap(err)
	case errors.Is(err, ledger.ErrOverflow):
		return ErrArithmeticOverflow.wrap(err)
	case KindOf(err) != KindUnknown:
		return err
	default:
		return ErrStorage.wrap(err)
	}
}

// Init writes the genesis parameters. It runs once; later calls are no-ops.
func (g *Governance) Init(gen Genesis) error {
	return g.atomic("init", "", func(s *session) error {
		if s.tx.Get(genesisKey()) != nil {
			return nil
		}
		if gen.BenchmarkIR == nil {
			return ErrInvalidConfig.withMsg("benchmark interest rate missing")
		}
		for class, cfg := range gen.Classes {
			if err := s.saveClassConfig(class, cfg); err != nil {
				return err
			}
		}
		s.saveBenchmark(gen.BenchmarkIR)
		s.saveBudget(&gen.Budget)
		for _, b := range gen.Balances {
			if !b.Address.IsValid() {
				return ErrInvalidAddress.withf("genesis balance %q", b.Address)
			}
			if b.Amount == nil || b.Amount.IsZero() {
				continue
			}
			if err := s.tokens().Mint(b.Asset, b.Address, b.Amount); err != nil {
				return ErrStorage.wrap(err)
			}
		}
		s.tx.Set(genesisKey(), "1")
		return nil
	})
}

// Initialized reports whether Init has committed.
func (g *Governance) Initialized() (bool, error) {
	var ok bool
	err := g.atomic("initialized", "", func(s *session) error {
		ok = s.tx.Get(genesisKey()) != nil
		return nil
	})
	return ok, err
}
