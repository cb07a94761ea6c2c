package dao

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var errUnexpectedEOF = errors.New("unexpected EOF")

type binWriter struct {
	buf bytes.Buffer
}

func newWriter() *binWriter { return &binWriter{} }

func (w *binWriter) bytes() []byte { return w.buf.Bytes() }

func (w *binWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *binWriter) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeInt64(v int64) {
	w.writeUint64(uint64(v))
}

func (w *binWriter) writeVarUint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *binWriter) writeString(s string) {
	w.writeVarUint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *binWriter) writeBytes(b []byte) {
	w.writeVarUint(uint64(len(b)))
	w.buf.Write(b)
}

// writeU256 always spends 32 bytes so records keep a fixed layout.
func (w *binWriter) writeU256(v *uint256.Int) {
	b := orZero(v).Bytes32()
	w.buf.Write(b[:])
}

func (w *binWriter) writeU256List(vs []*uint256.Int) {
	w.writeVarUint(uint64(len(vs)))
	for _, v := range vs {
		w.writeU256(v)
	}
}

func (w *binWriter) writeHash(h common.Hash) {
	w.buf.Write(h[:])
}

func (w *binWriter) writeAddress(a Address) {
	w.writeString(a.String())
}

type binReader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.readByte()
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

func (r *binReader) readUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, errUnexpectedEOF
	}
	val := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return val, nil
}

func (r *binReader) readInt64() (int64, error) {
	v, err := r.readUint64()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

func (r *binReader) readVarUint() (uint64, error) {
	val, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errors.New("invalid varuint")
	}
	r.pos += n
	return val, nil
}

func (r *binReader) readN(n uint64) ([]byte, error) {
	if n > uint64(len(r.data)-r.pos) {
		return nil, errUnexpectedEOF
	}
	out := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

func (r *binReader) readString() (string, error) {
	n, err := r.readVarUint()
	if err != nil {
		return "", err
	}
	b, err := r.readN(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *binReader) readBytes() ([]byte, error) {
	n, err := r.readVarUint()
	if err != nil {
		return nil, err
	}
	b, err := r.readN(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *binReader) readU256() (*uint256.Int, error) {
	b, err := r.readN(32)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(b), nil
}

func (r *binReader) readU256List() ([]*uint256.Int, error) {
	n, err := r.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.data)-r.pos)/32 {
		return nil, errUnexpectedEOF
	}
	out := make([]*uint256.Int, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.readU256()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *binReader) readHash() (common.Hash, error) {
	b, err := r.readN(common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

func (r *binReader) readAddress() (Address, error) {
	s, err := r.readString()
	return Address(s), err
}

// done rejects trailing bytes so a decoded record is exactly what was stored.
func (r *binReader) done() error {
	if r.pos != len(r.data) {
		return errors.New("trailing bytes")
	}
	return nil
}

func encodeClassConfig(w *binWriter, cfg *ClassConfig) {
	w.writeInt64(cfg.VotingPeriod)
	w.writeUint64(cfg.QuorumBps)
	w.buf.WriteByte(byte(cfg.Approval))
	w.writeBool(cfg.Vetoable)
	w.writeU256(cfg.ProposalThreshold)
	w.writeInt64(cfg.ExecutionDelay)
	w.writeU256(cfg.RewardPerDay)
}

func decodeClassConfig(r *binReader) (ClassConfig, error) {
	var cfg ClassConfig
	var err error
	if cfg.VotingPeriod, err = r.readInt64(); err != nil {
		return cfg, err
	}
	if cfg.QuorumBps, err = r.readUint64(); err != nil {
		return cfg, err
	}
	mode, err := r.readByte()
	if err != nil {
		return cfg, err
	}
	cfg.Approval = ApprovalMode(mode)
	if cfg.Vetoable, err = r.readBool(); err != nil {
		return cfg, err
	}
	if cfg.ProposalThreshold, err = r.readU256(); err != nil {
		return cfg, err
	}
	if cfg.ExecutionDelay, err = r.readInt64(); err != nil {
		return cfg, err
	}
	if cfg.RewardPerDay, err = r.readU256(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func EncodeClassConfig(cfg *ClassConfig) []byte {
	w := newWriter()
	encodeClassConfig(w, cfg)
	return w.bytes()
}

func DecodeClassConfig(data []byte) (*ClassConfig, error) {
	r := newReader(data)
	cfg, err := decodeClassConfig(r)
	if err != nil {
		return nil, err
	}
	return &cfg, r.done()
}

func EncodeStake(s *Stake) []byte {
	w := newWriter()
	w.writeAddress(s.Owner)
	w.writeUint64(s.Nonce)
	w.writeU256(s.Amount)
	w.writeInt64(s.StartTime)
	w.writeInt64(s.Duration)
	w.writeInt64(s.LastInterestClaim)
	w.writeU256(s.VotesLocked)
	w.writeBool(s.Withdrawn)
	w.writeInt64(s.WithdrawnAt)
	w.writeBool(s.Released)
	return w.bytes()
}

func DecodeStake(data []byte) (*Stake, error) {
	r := newReader(data)
	s := &Stake{}
	var err error
	if s.Owner, err = r.readAddress(); err != nil {
		return nil, err
	}
	if s.Nonce, err = r.readUint64(); err != nil {
		return nil, err
	}
	if s.Amount, err = r.readU256(); err != nil {
		return nil, err
	}
	if s.StartTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	if s.Duration, err = r.readInt64(); err != nil {
		return nil, err
	}
	if s.LastInterestClaim, err = r.readInt64(); err != nil {
		return nil, err
	}
	if s.VotesLocked, err = r.readU256(); err != nil {
		return nil, err
	}
	if s.Withdrawn, err = r.readBool(); err != nil {
		return nil, err
	}
	if s.WithdrawnAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	if s.Released, err = r.readBool(); err != nil {
		return nil, err
	}
	return s, r.done()
}

func EncodeAccount(a *Account) []byte {
	w := newWriter()
	w.writeU256(a.Balance)
	w.writeU256(a.Locked)
	return w.bytes()
}

func DecodeAccount(data []byte) (*Account, error) {
	r := newReader(data)
	a := &Account{}
	var err error
	if a.Balance, err = r.readU256(); err != nil {
		return nil, err
	}
	if a.Locked, err = r.readU256(); err != nil {
		return nil, err
	}
	return a, r.done()
}

func EncodeAllowance(a *Allowance) []byte {
	w := newWriter()
	w.writeAddress(a.Spender)
	w.writeU256(a.Amount)
	return w.bytes()
}

func DecodeAllowance(data []byte) (*Allowance, error) {
	r := newReader(data)
	a := &Allowance{}
	var err error
	if a.Spender, err = r.readAddress(); err != nil {
		return nil, err
	}
	if a.Amount, err = r.readU256(); err != nil {
		return nil, err
	}
	return a, r.done()
}

func EncodeProposal(p *Proposal) []byte {
	w := newWriter()
	w.writeUint64(p.Class)
	w.writeUint64(p.Nonce)
	w.writeAddress(p.Proposer)
	w.writeVarUint(uint64(len(p.Targets)))
	for i := range p.Targets {
		w.writeAddress(p.Targets[i])
		w.writeU256(p.Values[i])
		w.writeBytes(p.Calldatas[i])
	}
	w.writeString(p.Title)
	w.writeHash(p.DescriptionHash)
	w.writeInt64(p.StartVoteTime)
	w.writeInt64(p.EndVoteTime)
	w.buf.WriteByte(byte(p.Status))
	w.writeBool(p.Vetoed)
	encodeClassConfig(w, &p.Config)
	w.writeU256(p.SupplySnapshot)
	w.writeU256List(p.RewardSchedule)
	w.writeInt64(p.ResolvedAt)
	w.writeInt64(p.ExecutedAt)
	return w.bytes()
}

func DecodeProposal(data []byte) (*Proposal, error) {
	r := newReader(data)
	p := &Proposal{}
	var err error
	if p.Class, err = r.readUint64(); err != nil {
		return nil, err
	}
	if p.Nonce, err = r.readUint64(); err != nil {
		return nil, err
	}
	if p.Proposer, err = r.readAddress(); err != nil {
		return nil, err
	}
	n, err := r.readVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(data)) {
		return nil, errUnexpectedEOF
	}
	p.Targets = make([]Address, 0, n)
	p.Values = make([]*uint256.Int, 0, n)
	p.Calldatas = make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		target, err := r.readAddress()
		if err != nil {
			return nil, err
		}
		value, err := r.readU256()
		if err != nil {
			return nil, err
		}
		calldata, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		p.Targets = append(p.Targets, target)
		p.Values = append(p.Values, value)
		p.Calldatas = append(p.Calldatas, calldata)
	}
	if p.Title, err = r.readString(); err != nil {
		return nil, err
	}
	if p.DescriptionHash, err = r.readHash(); err != nil {
		return nil, err
	}
	if p.StartVoteTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	if p.EndVoteTime, err = r.readInt64(); err != nil {
		return nil, err
	}
	status, err := r.readByte()
	if err != nil {
		return nil, err
	}
	p.Status = ProposalStatus(status)
	if p.Vetoed, err = r.readBool(); err != nil {
		return nil, err
	}
	if p.Config, err = decodeClassConfig(r); err != nil {
		return nil, err
	}
	if p.SupplySnapshot, err = r.readU256(); err != nil {
		return nil, err
	}
	if p.RewardSchedule, err = r.readU256List(); err != nil {
		return nil, err
	}
	if p.ResolvedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	if p.ExecutedAt, err = r.readInt64(); err != nil {
		return nil, err
	}
	return p, r.done()
}

func EncodeTally(t *Tally) []byte {
	w := newWriter()
	w.writeU256(t.For)
	w.writeU256(t.Against)
	w.writeUint64(t.Voters)
	w.writeU256List(t.DayTotals)
	return w.bytes()
}

func DecodeTally(data []byte) (*Tally, error) {
	r := newReader(data)
	t := &Tally{}
	var err error
	if t.For, err = r.readU256(); err != nil {
		return nil, err
	}
	if t.Against, err = r.readU256(); err != nil {
		return nil, err
	}
	if t.Voters, err = r.readUint64(); err != nil {
		return nil, err
	}
	if t.DayTotals, err = r.readU256List(); err != nil {
		return nil, err
	}
	return t, r.done()
}

func EncodeBallot(b *Ballot) []byte {
	w := newWriter()
	w.buf.WriteByte(byte(b.Support))
	w.writeU256(b.Amount)
	w.writeUint64(b.StakeNonce)
	w.writeUint64(uint64(b.Day))
	w.writeAddress(b.CastBy)
	w.writeBool(b.Unlocked)
	w.writeU256(b.Reward)
	return w.bytes()
}

func DecodeBallot(data []byte) (*Ballot, error) {
	r := newReader(data)
	b := &Ballot{}
	support, err := r.readByte()
	if err != nil {
		return nil, err
	}
	b.Support = Support(support)
	if b.Amount, err = r.readU256(); err != nil {
		return nil, err
	}
	if b.StakeNonce, err = r.readUint64(); err != nil {
		return nil, err
	}
	day, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	b.Day = uint32(day)
	if b.CastBy, err = r.readAddress(); err != nil {
		return nil, err
	}
	if b.Unlocked, err = r.readBool(); err != nil {
		return nil, err
	}
	if b.Reward, err = r.readU256(); err != nil {
		return nil, err
	}
	return b, r.done()
}

func EncodeBudget(b *Budget) []byte {
	w := newWriter()
	w.writeU256(b.DGOV)
	w.writeU256(b.DBIT)
	return w.bytes()
}

func DecodeBudget(data []byte) (*Budget, error) {
	r := newReader(data)
	b := &Budget{}
	var err error
	if b.DGOV, err = r.readU256(); err != nil {
		return nil, err
	}
	if b.DBIT, err = r.readU256(); err != nil {
		return nil, err
	}
	return b, r.done()
}
