package dao

import (
	"errors"
	"fmt"
)

// Kind groups failures by how a caller should react to them.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation: malformed input, rejected before any state is touched.
	KindValidation
	// KindPolicy: well-formed but not allowed right now.
	KindPolicy
	// KindExecution: a dispatched proposal call reverted.
	KindExecution
	// KindFatal: storage or arithmetic failure, the operation fails closed.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindExecution:
		return "execution"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is every failure the engine surfaces. Symbol is stable and is what the
// contract reverts with; two errors match under errors.Is when symbols match.
type Error struct {
	Kind   Kind
	Symbol string
	Msg    string
	Err    error
}

func newError(kind Kind, symbol, msg string) *Error {
	return &Error{Kind: kind, Symbol: symbol, Msg: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Symbol == e.Symbol
}

func (e *Error) withMsg(msg string) *Error {
	c := *e
	c.Msg = e.Msg + ": " + msg
	return &c
}

func (e *Error) withf(format string, args ...interface{}) *Error {
	return e.withMsg(fmt.Sprintf(format, args...))
}

func (e *Error) wrap(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

var (
	ErrZeroAmount         = newError(KindValidation, "zero_amount", "amount must be positive")
	ErrInvalidDuration    = newError(KindValidation, "invalid_duration", "stake duration below minimum")
	ErrMalformedProposal  = newError(KindValidation, "malformed_proposal", "targets, values and calldatas differ in length")
	ErrUnknownClass       = newError(KindValidation, "unknown_class", "proposal class is not configured")
	ErrInvalidSupport     = newError(KindValidation, "invalid_support", "support must be for or against")
	ErrInvalidAddress     = newError(KindValidation, "invalid_address", "address is not valid")
	ErrInvalidConfig      = newError(KindValidation, "invalid_config", "invalid class config")
	ErrInvalidPayload     = newError(KindValidation, "invalid_payload", "payload could not be decoded")
	ErrStakeNotFound      = newError(KindPolicy, "stake_not_found", "stake does not exist")
	ErrProposalNotFound   = newError(KindPolicy, "proposal_not_found", "proposal does not exist")
	ErrStillLocked        = newError(KindPolicy, "still_locked", "stake is still locked")
	ErrAlreadyWithdrawn   = newError(KindPolicy, "already_withdrawn", "stake already withdrawn")
	ErrVoteCreditsLocked  = newError(KindPolicy, "vote_credits_locked", "stake has vote credits locked in ballots")
	ErrTransferDisallowed = newError(KindPolicy, "transfer_disallowed", "vote credits are not transferable")

	ErrInsufficientVotingPower = newError(KindPolicy, "insufficient_voting_power", "not enough available vote credits")
	ErrAlreadyVoted            = newError(KindPolicy, "already_voted", "account already voted on this proposal")
	ErrVoteWindowClosed        = newError(KindPolicy, "vote_window_closed", "proposal is not open for votes")
	ErrVoteWindowOpen          = newError(KindPolicy, "vote_window_open", "voting window is still open")
	ErrNothingToUnlock         = newError(KindPolicy, "nothing_to_unlock", "no locked ballot for this account")
	ErrNotVetoable             = newError(KindPolicy, "not_vetoable", "proposal class does not allow veto")
	ErrAlreadyResolved         = newError(KindPolicy, "already_resolved", "proposal already resolved")
	ErrUnauthorized            = newError(KindPolicy, "unauthorized", "caller is not allowed to do this")
	ErrInvalidStatus           = newError(KindPolicy, "invalid_status", "proposal status does not allow this")
	ErrBelowProposalThreshold  = newError(KindPolicy, "below_proposal_threshold", "not enough vote credits to propose")
	ErrExecutionDelayed        = newError(KindPolicy, "execution_delayed", "execution delay has not passed")
	ErrReentrantCall           = newError(KindPolicy, "reentrant_call", "re-entrant call rejected")
	ErrInsufficientFunds       = newError(KindPolicy, "insufficient_funds", "token balance too low")

	ErrExecutionReverted  = newError(KindExecution, "execution_reverted", "proposal call reverted")
	ErrArithmeticOverflow = newError(KindFatal, "arithmetic_overflow", "arithmetic overflow")
	ErrStorage            = newError(KindFatal, "storage_error", "state storage failure")
)

// KindOf classifies any error; errors from outside the engine are KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// SymbolOf returns the revert symbol for err.
func SymbolOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Symbol
	}
	if err == nil {
		return ""
	}
	return "unknown_error"
}
