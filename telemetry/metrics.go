package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"debond_gov/contract/dao"
)

const namespace = "dgov"

// Metrics is both an event sink and an operation observer.
type Metrics struct {
	events      *prometheus.CounterVec
	statuses    *prometheus.CounterVec
	ops         *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	rewardsPaid prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed governance events by code.",
		}, []string{"code"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposal_transitions_total",
			Help:      "Proposal status transitions by resulting status.",
		}, []string{"status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Finished operations by name and result symbol.",
		}, []string{"op", "result"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency including commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_unlocks_with_reward_total",
			Help:      "Unlocked ballots that paid a non-zero reward.",
		}),
	}
	for _, c := range []prometheus.Collector{m.events, m.statuses, m.ops, m.opDuration, m.rewardsPaid} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Emit(e dao.Event) {
	m.events.WithLabelValues(e.Code).Inc()
	switch e.Code {
	case dao.EventStatusChanged:
		m.statuses.WithLabelValues(e.Get("s")).Inc()
	case dao.EventVoteUnlocked:
		if r := e.Get("r"); r != "" && r != "0" {
			m.rewardsPaid.Inc()
		}
	}
}

func (m *Metrics) ObserveOp(op string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = dao.SymbolOf(err)
	}
	m.ops.WithLabelValues(op, result).Inc()
	m.opDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("metrics listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
