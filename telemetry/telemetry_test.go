package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"debond_gov/contract/dao"
)

func event(code string, kv ...string) dao.Event {
	e := dao.Event{Code: code}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Fields = append(e.Fields, dao.Field{Key: kv[i], Value: kv[i+1]})
	}
	return e
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)
	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestLogSinkWritesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	sink.Emit(event(dao.EventStaked, "by", "hive:alice", "n", "1", "a", "100"))

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "sk", ctx["code"])
	assert.Equal(t, "hive:alice", ctx["by"])
	assert.Equal(t, "sk|by:hive:alice|n:1|a:100", ctx["line"])
	assert.Equal(t, "events", entries[0].LoggerName)
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	MultiSink{a, nil, b}.Emit(event(dao.EventDelegated, "by", "hive:alice"))
	assert.Equal(t, []string{"dg|by:hive:alice"}, a.Lines())
	assert.Equal(t, a.Lines(), b.Lines())
}

func TestMetricsCountEventsAndOps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Emit(event(dao.EventStaked))
	m.Emit(event(dao.EventStaked))
	m.Emit(event(dao.EventStatusChanged, "c", "0", "n", "1", "s", "succeeded"))
	m.Emit(event(dao.EventVoteUnlocked, "r", "0"))
	m.Emit(event(dao.EventVoteUnlocked, "r", "12"))
	m.ObserveOp("stake", nil, time.Millisecond)
	m.ObserveOp("stake", dao.ErrZeroAmount, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("sk")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statuses.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rewardsPaid))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("stake", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("stake", "zero_amount")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.opDuration))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	m.Emit(event(dao.EventProposalCreated))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `dgov_events_total{code="pc"} 1`))
}
