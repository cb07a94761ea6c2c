//go:build wasm

package main

import (
	"debond_gov/contract/dao"
	"debond_gov/sdk"
)

// run executes one entry point and reverts the transaction with the error
// symbol when it fails. Nothing is written on a revert.
func run(entry string, payload *string) *string {
	out, err := handle(sdkHost{}, entry, unwrapPayload(payload))
	if err != nil {
		sdk.Revert(err.Error(), dao.SymbolOf(err))
	}
	return &out
}

// ContractInit sets up the engine; the payload is dao.InitArgs and may be empty.
//
//go:wasmexport contract_init
func ContractInit(payload *string) *string { return run("contract_init", payload) }

// Stake locks principal and mints vote credits.
//
//go:wasmexport stake
func Stake(payload *string) *string { return run("stake", payload) }

//go:wasmexport unstake
func Unstake(payload *string) *string { return run("unstake", payload) }

//go:wasmexport withdraw_interest
func WithdrawInterest(payload *string) *string { return run("withdraw_interest", payload) }

// Delegate sets the caller's vote-credit allowance.
//
//go:wasmexport delegate
func Delegate(payload *string) *string { return run("delegate", payload) }

//go:wasmexport proposals_create
func CreateProposal(payload *string) *string { return run("proposals_create", payload) }

//go:wasmexport proposals_vote
func Vote(payload *string) *string { return run("proposals_vote", payload) }

// Veto is operator only.
//
//go:wasmexport proposals_veto
func Veto(payload *string) *string { return run("proposals_veto", payload) }

//go:wasmexport proposals_cancel
func CancelProposal(payload *string) *string { return run("proposals_cancel", payload) }

//go:wasmexport proposals_execute
func ExecuteProposal(payload *string) *string { return run("proposals_execute", payload) }

// UnlockVoteTokens releases the caller's ballot and pays the vote reward.
//
//go:wasmexport proposals_unlock
func UnlockVoteTokens(payload *string) *string { return run("proposals_unlock", payload) }

//go:wasmexport proposals_status
func ProposalStatus(payload *string) *string { return run("proposals_status", payload) }

//go:wasmexport benchmark_ir
func BenchmarkIR(payload *string) *string { return run("benchmark_ir", payload) }

//go:wasmexport budget
func Budget(payload *string) *string { return run("budget", payload) }
