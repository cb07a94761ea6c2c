package dao

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIdentitySurvivesDecoration(t *testing.T) {
	err := ErrStillLocked.withf("matures at %d", 42)
	assert.ErrorIs(t, err, ErrStillLocked)
	assert.NotErrorIs(t, err, ErrAlreadyWithdrawn)
	assert.Equal(t, "stake is still locked: matures at 42", err.Error())

	// decorating a copy never touches the sentinel
	assert.Equal(t, "stake is still locked", ErrStillLocked.Error())

	wrapped := fmt.Errorf("unstake: %w", err)
	assert.ErrorIs(t, wrapped, ErrStillLocked)
	assert.Equal(t, KindPolicy, KindOf(wrapped))
	assert.Equal(t, "still_locked", SymbolOf(wrapped))
}

func TestWrappedCauseIsReachable(t *testing.T) {
	cause := errors.New("target reverted")
	err := ErrExecutionReverted.wrap(fmt.Errorf("call 0 to contract:x: %w", cause))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrExecutionReverted)
	assert.Equal(t, KindExecution, KindOf(err))
	assert.Equal(t, "proposal call reverted: call 0 to contract:x: target reverted", err.Error())
}

func TestSymbolOfForeignErrors(t *testing.T) {
	assert.Equal(t, "", SymbolOf(nil))
	assert.Equal(t, "unknown_error", SymbolOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, "fatal", KindOf(ErrStorage).String())
}
