// Package cli is the host command line: it wires a configured engine to a
// storage backend, telemetry and the standard call targets.
package cli

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"debond_gov/config"
	"debond_gov/contract/dao"
	"debond_gov/contract/dispatch"
	"debond_gov/contract/store"
	"debond_gov/contract/store/badgerstore"
	"debond_gov/contract/store/sqlitestore"
	"debond_gov/telemetry"
)

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	backend  store.Backend
	g        *dao.Governance
	clock    dao.Clock
	router   *dispatch.Router
	registry *prometheus.Registry
}

// openBackend opens the configured store, behind an LRU cache when sized.
func openBackend(c config.StoreConfig) (store.Backend, error) {
	var (
		b   store.Backend
		err error
	)
	switch c.Backend {
	case "memory":
		b = store.NewMemState()
	case "badger":
		b, err = badgerstore.Open(c.Path)
	case "sqlite":
		b, err = sqlitestore.Open(c.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Backend, err)
	}
	if c.CacheSize <= 0 {
		return b, nil
	}
	cached, err := store.NewCached(b, c.CacheSize)
	if err != nil {
		return nil, multierr.Append(err, b.Close())
	}
	return cached, nil
}

// openApp builds the engine from cfg. clock nil means the wall clock.
func openApp(cfg *config.Config, log *zap.Logger, clock dao.Clock) (*app, error) {
	dc, gen, err := cfg.Governance.Build()
	if err != nil {
		return nil, err
	}
	router, err := dispatch.Standard(
		dao.Address(cfg.Governance.ParamsTarget),
		dao.Address(cfg.Governance.TreasuryTarget),
		dao.Asset(cfg.Governance.TreasuryAsset),
	)
	if err != nil {
		return nil, err
	}
	backend, err := openBackend(cfg.Store)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = dao.SystemClock{}
	}

	a := &app{cfg: cfg, log: log, backend: backend, clock: clock, router: router}
	sinks := telemetry.MultiSink{telemetry.NewLogSink(log)}
	opts := []dao.Option{
		dao.WithClock(clock),
		dao.WithDispatcher(router),
		dao.WithLogger(log.Named("dao")),
	}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		m, err := telemetry.NewMetrics(a.registry)
		if err != nil {
			return nil, multierr.Append(err, backend.Close())
		}
		sinks = append(sinks, m)
		opts = append(opts, dao.WithObserver(m))
	}
	opts = append(opts, dao.WithEventSink(sinks))

	a.g, err = dao.New(backend, dc, opts...)
	if err != nil {
		return nil, multierr.Append(err, backend.Close())
	}
	if err := a.g.Init(gen); err != nil {
		return nil, multierr.Append(fmt.Errorf("genesis: %w", err), backend.Close())
	}
	return a, nil
}

func (a *app) Close() error {
	_ = a.log.Sync()
	return a.backend.Close()
}

// genesisClock starts a manual clock at the configured genesis time, or now.
func genesisClock(cfg *config.Config) *dao.ManualClock {
	start := cfg.Governance.GenesisTime
	if start == 0 {
		start = time.Now().Unix()
	}
	return dao.NewManualClock(start)
}
