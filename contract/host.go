package main

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"debond_gov/contract/dao"
	"debond_gov/contract/dispatch"
	"debond_gov/contract/store"
	"debond_gov/sdk"
)

// Host is everything the contract needs from the chain. The wasm build talks
// to the sdk imports; tests use an in-memory host.
type Host interface {
	Get(key string) *string
	Set(key, value string)
	Delete(key string)
	Env() sdk.Env
	Log(line string)
	// Call invokes another contract by id; the host aborts the transaction when it fails.
	Call(contractID, method, payload string) *string
}

// hostBackend is the engine's store.Backend over the contract KV. Writes of a
// failed operation never reach it, the engine only applies committed sets.
type hostBackend struct {
	h Host
}

func (b hostBackend) Load(key string) (*string, error) {
	return b.h.Get(key), nil
}

func (b hostBackend) Apply(changes []store.Change) error {
	for _, c := range changes {
		if c.Value == nil {
			b.h.Delete(c.Key)
			continue
		}
		b.h.Set(c.Key, *c.Value)
	}
	return nil
}

func (hostBackend) Close() error { return nil }

// parseTimestamp accepts unix seconds or iso-ish strings since the env flips formats sometimes.
func parseTimestamp(val string) (int64, bool) {
	if v, err := strconv.ParseInt(val, 10, 64); err == nil {
		return v, true
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.Unix(), true
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", val, time.UTC); err == nil {
		return t.Unix(), true
	}
	return 0, false
}

// blockClock reads block.timestamp from the env of the running transaction.
func blockClock(h Host) dao.Clock {
	return dao.ClockFunc(func() int64 {
		if v, ok := parseTimestamp(h.Env().Timestamp); ok {
			return v
		}
		return 0
	})
}

// logSink prints committed events as their log line.
type logSink struct {
	h Host
}

func (s logSink) Emit(e dao.Event) { s.h.Log(e.String()) }

// chainDispatcher runs calls to the built-in targets in place and forwards
// every other target as a contract call carrying hex calldata.
type chainDispatcher struct {
	h      Host
	router *dispatch.Router
}

// ForwardMethod is the method a forwarded proposal call invokes on its target.
const ForwardMethod = "governance_call"

func (d chainDispatcher) Dispatch(env *dao.CallEnv, target dao.Address, calldata []byte) error {
	if _, ok := d.router.Lookup(target); ok {
		return d.router.Dispatch(env, target, calldata)
	}
	if target.Domain() != sdk.AddressDomainContract {
		return dispatch.ErrUnknownTarget
	}
	value := env.Value
	if value == nil {
		value = new(uint256.Int)
	}
	payload, err := dao.EncodePayload(dao.ForwardArgs{
		Class:    env.Class,
		Nonce:    env.Nonce,
		Index:    env.Index,
		Value:    value.Dec(),
		Calldata: "0x" + hex.EncodeToString(calldata),
	})
	if err != nil {
		return err
	}
	d.h.Call(strings.TrimPrefix(target.String(), contractPrefix), ForwardMethod, payload)
	return nil
}
