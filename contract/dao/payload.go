package dao

import (
	"github.com/CosmWasm/tinyjson"
	"github.com/CosmWasm/tinyjson/jlexer"
	"github.com/CosmWasm/tinyjson/jwriter"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Contract call payloads. Amounts travel as decimal strings, calldata and
// hashes as 0x hex.

// StakeArgs is the payload of stake.
// Example payload: {"amount":"50000000000000000000","duration":2592000}
type StakeArgs struct {
	Amount   string
	Duration int64
}

// StakeRef names one of the caller's stakes (unstake, withdraw_interest).
// Example payload: {"nonce":1}
type StakeRef struct {
	Nonce uint64
}

// DelegateArgs is the payload of delegate; amount "0" revokes.
// Example payload: {"spender":"hive:bob","amount":"10"}
type DelegateArgs struct {
	Spender string
	Amount  string
}

// ProposalArgs is the payload of proposals_create.
// Example payload: {"class":0,"targets":["contract:params"],"values":["0"],"calldatas":["0x..."],"title":"raise rate","description_hash":"0x..."}
type ProposalArgs struct {
	Class           uint64
	Targets         []string
	Values          []string
	Calldatas       []string
	Title           string
	DescriptionHash string
}

// VoteArgs is the payload of proposals_vote. Voter defaults to the caller.
// Example payload: {"class":0,"nonce":1,"support":"for","amount":"50","stake_nonce":1}
type VoteArgs struct {
	Class      uint64
	Nonce      uint64
	Voter      string
	Support    string
	Amount     string
	StakeNonce uint64
}

// ProposalRef names a proposal (cancel, execute, unlock, status).
// Example payload: {"class":0,"nonce":1}
type ProposalRef struct {
	Class uint64
	Nonce uint64
}

// VetoArgs is the payload of proposals_veto.
// Example payload: {"class":1,"nonce":4,"cancel":true}
type VetoArgs struct {
	Class  uint64
	Nonce  uint64
	Cancel bool
}

// Result is what every mutating entry point returns on success.
type Result struct {
	Nonce  uint64
	Amount string
	Status string
}

// DecodePayload unmarshals a call payload into v.
func DecodePayload(data string, v tinyjson.Unmarshaler) error {
	if err := tinyjson.Unmarshal([]byte(data), v); err != nil {
		return ErrInvalidPayload.wrap(err)
	}
	return nil
}

// EncodePayload is the inverse of DecodePayload.
func EncodePayload(v tinyjson.Marshaler) (string, error) {
	b, err := tinyjson.Marshal(v)
	if err != nil {
		return "", ErrInvalidPayload.wrap(err)
	}
	return string(b), nil
}

// ParseAmount reads a decimal token amount.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return zero(), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, ErrInvalidPayload.withf("amount %q", s)
	}
	return v, nil
}

// Input converts the payload into a ProposalInput, decoding hex calldata.
func (a *ProposalArgs) Input() (ProposalInput, error) {
	in := ProposalInput{Class: a.Class, Title: a.Title}
	for _, t := range a.Targets {
		in.Targets = append(in.Targets, Address(t))
	}
	for _, v := range a.Values {
		amt, err := ParseAmount(v)
		if err != nil {
			return in, err
		}
		in.Values = append(in.Values, amt)
	}
	for i, c := range a.Calldatas {
		b, err := hexutil.Decode(c)
		if err != nil {
			return in, ErrInvalidPayload.withf("calldata %d: %v", i, err)
		}
		in.Calldatas = append(in.Calldatas, b)
	}
	if a.DescriptionHash != "" {
		h, err := hexutil.Decode(a.DescriptionHash)
		if err != nil || len(h) != common.HashLength {
			return in, ErrInvalidPayload.withf("description hash %q", a.DescriptionHash)
		}
		in.DescriptionHash = common.BytesToHash(h)
	}
	return in, nil
}

// readObject walks a JSON object and hands every non-null field to fn.
func readObject(in *jlexer.Lexer, fn func(key string)) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		fn(key)
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func readStrings(in *jlexer.Lexer) []string {
	out := []string{}
	in.Delim('[')
	for !in.IsDelim(']') {
		out = append(out, in.String())
		in.WantComma()
	}
	in.Delim(']')
	return out
}

func writeStrings(out *jwriter.Writer, vs []string) {
	out.RawByte('[')
	for i, v := range vs {
		if i > 0 {
			out.RawByte(',')
		}
		out.String(v)
	}
	out.RawByte(']')
}

func (v *StakeArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "amount":
			v.Amount = in.String()
		case "duration":
			v.Duration = in.Int64()
		default:
			in.SkipRecursive()
		}
	})
}

func (v StakeArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"amount":`)
	out.String(v.Amount)
	out.RawString(`,"duration":`)
	out.Int64(v.Duration)
	out.RawByte('}')
}

func (v *StakeRef) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "nonce":
			v.Nonce = in.Uint64()
		default:
			in.SkipRecursive()
		}
	})
}

func (v StakeRef) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"nonce":`)
	out.Uint64(v.Nonce)
	out.RawByte('}')
}

func (v *DelegateArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "spender":
			v.Spender = in.String()
		case "amount":
			v.Amount = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v DelegateArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"spender":`)
	out.String(v.Spender)
	out.RawString(`,"amount":`)
	out.String(v.Amount)
	out.RawByte('}')
}

func (v *ProposalArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "class":
			v.Class = in.Uint64()
		case "targets":
			v.Targets = readStrings(in)
		case "values":
			v.Values = readStrings(in)
		case "calldatas":
			v.Calldatas = readStrings(in)
		case "title":
			v.Title = in.String()
		case "description_hash":
			v.DescriptionHash = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

func (v ProposalArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"class":`)
	out.Uint64(v.Class)
	out.RawString(`,"targets":`)
	writeStrings(out, v.Targets)
	out.RawString(`,"values":`)
	writeStrings(out, v.Values)
	out.RawString(`,"calldatas":`)
	writeStrings(out, v.Calldatas)
	out.RawString(`,"title":`)
	out.String(v.Title)
	out.RawString(`,"description_hash":`)
	out.String(v.DescriptionHash)
	out.RawByte('}')
}

func (v *VoteArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "class":
			v.Class = in.Uint64()
		case "nonce":
			v.Nonce = in.Uint64()
		case "voter":
			v.Voter = in.String()
		case "support":
			v.Support = in.String()
		case "amount":
			v.Amount = in.String()
		case "stake_nonce":
			v.StakeNonce = in.Uint64()
		default:
			in.SkipRecursive()
		}
	})
}

func (v VoteArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"class":`)
	out.Uint64(v.Class)
	out.RawString(`,"nonce":`)
	out.Uint64(v.Nonce)
	if v.Voter != "" {
		out.RawString(`,"voter":`)
		out.String(v.Voter)
	}
	out.RawString(`,"support":`)
	out.String(v.Support)
	out.RawString(`,"amount":`)
	out.String(v.Amount)
	out.RawString(`,"stake_nonce":`)
	out.Uint64(v.StakeNonce)
	out.RawByte('}')
}

func (v *ProposalRef) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "class":
			v.Class = in.Uint64()
		case "nonce":
			v.Nonce = in.Uint64()
		default:
			in.SkipRecursive()
		}
	})
}

func (v ProposalRef) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"class":`)
	out.Uint64(v.Class)
	out.RawString(`,"nonce":`)
	out.Uint64(v.Nonce)
	out.RawByte('}')
}

func (v *VetoArgs) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "class":
			v.Class = in.Uint64()
		case "nonce":
			v.Nonce = in.Uint64()
		case "cancel":
			v.Cancel = in.Bool()
		default:
			in.SkipRecursive()
		}
	})
}

func (v VetoArgs) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawString(`{"class":`)
	out.Uint64(v.Class)
	out.RawString(`,"nonce":`)
	out.Uint64(v.Nonce)
	out.RawString(`,"cancel":`)
	out.Bool(v.Cancel)
	out.RawByte('}')
}

func (v *Result) UnmarshalTinyJSON(in *jlexer.Lexer) {
	readObject(in, func(key string) {
		switch key {
		case "nonce":
			v.Nonce = in.Uint64()
		case "amount":
			v.Amount = in.String()
		case "status":
			v.Status = in.String()
		default:
			in.SkipRecursive()
		}
	})
}

// MarshalTinyJSON leaves out empty fields so each entry point returns only what it produced.
func (v Result) MarshalTinyJSON(out *jwriter.Writer) {
	out.RawByte('{')
	sep := false
	field := func(name string) {
		if sep {
			out.RawByte(',')
		}
		sep = true
		out.RawString(`"` + name + `":`)
	}
	if v.Nonce != 0 {
		field("nonce")
		out.Uint64(v.Nonce)
	}
	if v.Amount != "" {
		field("amount")
		out.String(v.Amount)
	}
	if v.Status != "" {
		field("status")
		out.String(v.Status)
	}
	out.RawByte('}')
}
