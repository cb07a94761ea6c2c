//go:build wasm

package sdk

import (
	"encoding/json"
)

//go:wasmimport sdk console.log
func log(s *string) *string

// Log writes a message to the wasm console, the governance contract uses it for event lines.
// Example payload: sdk.Log("pc|c:0|n:1|by:hive:alice")
func Log(s string) {
	log(&s)
}

//go:wasmimport sdk db.set_object
func stateSetObject(key *string, value *string) *string

//go:wasmimport sdk db.get_object
func stateGetObject(key *string) *string

//go:wasmimport sdk db.rm_object
func stateDeleteObject(key *string) *string

//go:wasmimport sdk system.get_env
func getEnv(arg *string) *string

//go:wasmimport sdk contracts.call
func contractCall(contractId *string, method *string, payload *string, options *string) *string

//go:wasmimport env revert
func revert(msg, symbol *string)

// Revert throws a named error back to the caller with a short stable symbol.
// Example payload: sdk.Revert("stake is still locked", "still_locked")
func Revert(msg string, symbol string) {
	revert(&msg, &symbol)
}

// StateSetObject stores a key/value string pair into contract kv storage.
func StateSetObject(key string, value string) {
	stateSetObject(&key, &value)
}

// StateGetObject fetches a key and returns nil when missing.
func StateGetObject(key string) *string {
	return stateGetObject(&key)
}

// StateDeleteObject removes the key entirely.
func StateDeleteObject(key string) {
	stateDeleteObject(&key)
}

// GetEnv pulls the JSON env blob from the chain and maps it to the Env struct.
func GetEnv() Env {
	envStr := *getEnv(nil)
	env := Env{}
	json.Unmarshal([]byte(envStr), &env)

	raw := map[string]interface{}{}
	json.Unmarshal([]byte(envStr), &raw)
	env.Sender = Sender{
		Address:              addressFromAny(raw["msg.sender"]),
		RequiredAuths:        addressesFromAny(raw["msg.required_auths"]),
		RequiredPostingAuths: addressesFromAny(raw["msg.required_posting_auths"]),
	}
	return env
}

// ContractCall performs a synchronous call into another contract with optional intents.
// Example payload: sdk.ContractCall("contract:bank", "transfer", "{}", nil)
func ContractCall(contractId string, method string, payload string, options *ContractCallOptions) *string {
	optStr := ""
	if options != nil {
		optByte, err := json.Marshal(options)
		if err != nil {
			Revert("could not serialize options", "sdk_error")
		}
		optStr = string(optByte)
	}
	return contractCall(&contractId, &method, &payload, &optStr)
}

func addressFromAny(v interface{}) Address {
	s, _ := v.(string)
	return Address(s)
}

func addressesFromAny(v interface{}) []Address {
	list, _ := v.([]interface{})
	out := make([]Address, 0, len(list))
	for _, item := range list {
		out = append(out, addressFromAny(item))
	}
	return out
}
