package dao

import (
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Event codes, one short tag per state change.
const (
	EventStaked           = "sk"
	EventUnstaked         = "us"
	EventInterestPaid     = "wi"
	EventDelegated        = "dg"
	EventProposalCreated  = "pc"
	EventVoteCast         = "vc"
	EventStatusChanged    = "ps"
	EventVetoed           = "pv"
	EventProposalExecuted = "px"
	EventVoteUnlocked     = "ul"
	EventStakeReleased    = "sr"
	EventParamsUpdated    = "pm"
)

type Field struct {
	Key   string
	Value string
}

// Event is a committed state change. String renders the pipe separated log line
// watchers parse, e.g. "vc|c:0|n:3|v:hive:alice|s:for|a:50".
type Event struct {
	Code   string
	Fields []Field
}

func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Code)
	for _, f := range e.Fields {
		b.WriteByte('|')
		b.WriteString(f.Key)
		b.WriteByte(':')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Get returns the value of the first field named key.
func (e Event) Get(key string) string {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// EventSink receives events after the operation that produced them committed.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type eventBuilder struct {
	ev Event
}

func newEvent(code string) *eventBuilder {
	return &eventBuilder{ev: Event{Code: code}}
}

func (b *eventBuilder) str(k, v string) *eventBuilder {
	b.ev.Fields = append(b.ev.Fields, Field{Key: k, Value: v})
	return b
}

func (b *eventBuilder) u64(k string, v uint64) *eventBuilder {
	return b.str(k, strconv.FormatUint(v, 10))
}

func (b *eventBuilder) i64(k string, v int64) *eventBuilder {
	return b.str(k, strconv.FormatInt(v, 10))
}

func (b *eventBuilder) amt(k string, v *uint256.Int) *eventBuilder {
	return b.str(k, orZero(v).Dec())
}

func (b *eventBuilder) flag(k string, v bool) *eventBuilder {
	return b.str(k, strconv.FormatBool(v))
}

func (s *session) emit(b *eventBuilder) {
	s.events = append(s.events, b.ev)
}

func (s *session) emitStaked(st *Stake) {
	s.emit(newEvent(EventStaked).
		str("by", st.Owner.String()).
		u64("n", st.Nonce).
		amt("a", st.Amount).
		i64("d", st.Duration))
}

func (s *session) emitUnstaked(st *Stake) {
	s.emit(newEvent(EventUnstaked).
		str("by", st.Owner.String()).
		u64("n", st.Nonce).
		amt("a", st.Amount).
		flag("early", st.Released && s.now < st.MaturesAt()))
}

func (s *session) emitInterestPaid(st *Stake, paid *uint256.Int, from, to int64) {
	s.emit(newEvent(EventInterestPaid).
		str("by", st.Owner.String()).
		u64("n", st.Nonce).
		amt("a", paid).
		i64("from", from).
		i64("to", to))
}

func (s *session) emitDelegated(owner Address, a *Allowance) {
	s.emit(newEvent(EventDelegated).
		str("by", owner.String()).
		str("to", a.Spender.String()).
		amt("a", a.Amount))
}

// emitProposalCreated carries the full creation payload so indexers never read storage.
func (s *session) emitProposalCreated(p *Proposal) {
	targets := make([]string, len(p.Targets))
	values := make([]string, len(p.Values))
	for i := range p.Targets {
		targets[i] = p.Targets[i].String()
		values[i] = p.Values[i].Dec()
	}
	s.emit(newEvent(EventProposalCreated).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("by", p.Proposer.String()).
		str("t", strings.Join(targets, ",")).
		str("v", strings.Join(values, ",")).
		u64("calls", uint64(len(p.Calldatas))).
		str("title", p.Title).
		str("h", p.DescriptionHash.Hex()).
		i64("start", p.StartVoteTime).
		i64("end", p.EndVoteTime))
}

func (s *session) emitVoteCast(p *Proposal, voter Address, b *Ballot) {
	s.emit(newEvent(EventVoteCast).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("v", voter.String()).
		str("by", b.CastBy.String()).
		str("s", b.Support.String()).
		amt("a", b.Amount).
		u64("stake", b.StakeNonce))
}

// emitStatusChanged is the catch-all line for any status flip.
func (s *session) emitStatusChanged(p *Proposal) {
	s.emit(newEvent(EventStatusChanged).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("s", p.Status.String()))
}

func (s *session) emitVetoed(p *Proposal, by Address, cancel bool) {
	s.emit(newEvent(EventVetoed).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("by", by.String()).
		flag("cancel", cancel))
}

func (s *session) emitExecuted(p *Proposal, by Address) {
	s.emit(newEvent(EventProposalExecuted).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("by", by.String()).
		u64("calls", uint64(len(p.Targets))))
}

func (s *session) emitVoteUnlocked(p *Proposal, voter Address, b *Ballot) {
	s.emit(newEvent(EventVoteUnlocked).
		u64("c", p.Class).
		u64("n", p.Nonce).
		str("v", voter.String()).
		amt("a", b.Amount).
		amt("r", b.Reward))
}

func (s *session) emitStakeReleased(owner Address, nonce uint64) {
	s.emit(newEvent(EventStakeReleased).
		str("by", owner.String()).
		u64("n", nonce))
}

func (s *session) emitParamsUpdated(field, old, new string) {
	s.emit(newEvent(EventParamsUpdated).
		str("f", field).
		str("old", old).
		str("new", new))
}
