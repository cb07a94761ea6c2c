// Package dispatch turns executed proposal calls into effects. A Router picks
// the target by address; ABI targets decode the calldata with the Solidity ABI
// and run the matching method against the call environment.
package dispatch

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"

	"debond_gov/contract/dao"
)

var (
	ErrUnknownTarget = errors.New("dispatch: unknown target")
	ErrUnknownMethod = errors.New("dispatch: unknown method")
	ErrShortCalldata = errors.New("dispatch: calldata shorter than a selector")
	ErrNotPayable    = errors.New("dispatch: method does not accept value")
	ErrBadArgument   = errors.New("dispatch: bad argument")
)

// Target handles every call sent to one address.
type Target interface {
	Call(env *dao.CallEnv, calldata []byte) error
}

// Router is a dao.Dispatcher over a fixed set of targets.
type Router struct {
	targets map[dao.Address]Target
}

func NewRouter() *Router {
	return &Router{targets: make(map[dao.Address]Target)}
}

// Register binds addr to t, replacing any earlier binding.
func (r *Router) Register(addr dao.Address, t Target) *Router {
	r.targets[addr] = t
	return r
}

// Lookup returns the target registered at addr.
func (r *Router) Lookup(addr dao.Address) (Target, bool) {
	t, ok := r.targets[addr]
	return t, ok
}

// Addresses lists the registered targets in sorted order.
func (r *Router) Addresses() []dao.Address {
	out := make([]dao.Address, 0, len(r.targets))
	for a := range r.targets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Router) Dispatch(env *dao.CallEnv, target dao.Address, calldata []byte) error {
	t, ok := r.targets[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
	return t.Call(env, calldata)
}

// Method runs one decoded ABI call. args are the unpacked inputs in order.
type Method func(env *dao.CallEnv, args []interface{}) error

// ABITarget decodes calldata against an ABI and runs the bound Method.
type ABITarget struct {
	abi     abi.ABI
	methods map[string]Method
}

// NewABITarget parses def and binds handlers by method name. Every ABI method
// needs a handler.
func NewABITarget(def string, methods map[string]Method) (*ABITarget, error) {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	for name := range parsed.Methods {
		if _, ok := methods[name]; !ok {
			return nil, fmt.Errorf("%w: no handler for %s", ErrUnknownMethod, name)
		}
	}
	return &ABITarget{abi: parsed, methods: methods}, nil
}

func (t *ABITarget) ABI() abi.ABI { return t.abi }

func (t *ABITarget) Call(env *dao.CallEnv, calldata []byte) error {
	if len(calldata) < 4 {
		return ErrShortCalldata
	}
	m, err := t.abi.MethodById(calldata[:4])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	if !m.IsPayable() && env.Value != nil && !env.Value.IsZero() {
		return fmt.Errorf("%w: %s", ErrNotPayable, m.Name)
	}
	args, err := m.Inputs.Unpack(calldata[4:])
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadArgument, m.Name, err)
	}
	h, ok := t.methods[m.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, m.Name)
	}
	return h(env, args)
}

// Pack encodes a call of method with Go-typed args.
func (t *ABITarget) Pack(method string, args ...interface{}) ([]byte, error) {
	return t.abi.Pack(method, args...)
}

// PackStrings encodes a call of method from text arguments, converting each
// one to the ABI input type. Scenario files and the CLI use it.
func (t *ABITarget) PackStrings(method string, args []string) ([]byte, error) {
	m, ok := t.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadArgument, method, len(m.Inputs), len(args))
	}
	vals := make([]interface{}, len(args))
	for i, in := range m.Inputs {
		v, err := fromString(in.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %s: %v", ErrBadArgument, method, in.Name, err)
		}
		vals[i] = v
	}
	return t.abi.Pack(method, vals...)
}

func fromString(typ abi.Type, s string) (interface{}, error) {
	switch typ.T {
	case abi.StringTy:
		return s, nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.UintTy:
		switch typ.Size {
		case 8:
			n, err := strconv.ParseUint(s, 10, 8)
			return uint8(n), err
		case 64:
			return strconv.ParseUint(s, 10, 64)
		case 256:
			v, err := uint256.FromDecimal(s)
			if err != nil {
				return nil, err
			}
			return v.ToBig(), nil
		}
	}
	return nil, fmt.Errorf("unsupported type %s", typ.String())
}

// Arguments below come out of abi.Arguments.Unpack, so the Go types are fixed
// by the ABI definition.

func argU256(args []interface{}, i int) (*uint256.Int, error) {
	b, ok := args[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T", ErrBadArgument, i, args[i])
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: argument %d overflows uint256", ErrBadArgument, i)
	}
	return v, nil
}

func argU64(args []interface{}, i int) (uint64, error) {
	v, ok := args[i].(uint64)
	if !ok {
		return 0, fmt.Errorf("%w: argument %d is %T", ErrBadArgument, i, args[i])
	}
	return v, nil
}

func argString(args []interface{}, i int) (string, error) {
	v, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d is %T", ErrBadArgument, i, args[i])
	}
	return v, nil
}
