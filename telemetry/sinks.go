package telemetry

import (
	"go.uber.org/zap"

	"debond_gov/contract/dao"
)

// LogSink writes one info line per committed event.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events")}
}

func (s *LogSink) Emit(e dao.Event) {
	fields := make([]zap.Field, 0, len(e.Fields)+2)
	fields = append(fields, zap.String("code", e.Code))
	for _, f := range e.Fields {
		fields = append(fields, zap.String(f.Key, f.Value))
	}
	fields = append(fields, zap.String("line", e.String()))
	s.log.Info("event", fields...)
}

// MultiSink fans every event out to each sink in order.
type MultiSink []dao.EventSink

func (m MultiSink) Emit(e dao.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder keeps events in memory, for inspection after a scenario run.
type Recorder struct {
	Events []dao.Event
}

func (r *Recorder) Emit(e dao.Event) { r.Events = append(r.Events, e) }

// Lines renders the recorded events in their log format.
func (r *Recorder) Lines() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.String()
	}
	return out
}
