//go:build wasm

package main

import "debond_gov/sdk"

// sdkHost is the Host of a running transaction.
type sdkHost struct{}

func (sdkHost) Get(key string) *string { return sdk.StateGetObject(key) }

func (sdkHost) Set(key, value string) { sdk.StateSetObject(key, value) }

func (sdkHost) Delete(key string) { sdk.StateDeleteObject(key) }

func (sdkHost) Env() sdk.Env { return sdk.GetEnv() }

func (sdkHost) Log(line string) { sdk.Log(line) }

func (sdkHost) Call(contractID, method, payload string) *string {
	return sdk.ContractCall(contractID, method, payload, nil)
}
