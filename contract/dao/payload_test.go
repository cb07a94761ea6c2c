package dao

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVotePayload(t *testing.T) {
	var args VoteArgs
	err := DecodePayload(`{"class":1,"nonce":4,"support":"against","amount":"250","stake_nonce":2,"memo":{"x":[1,2]}}`, &args)
	require.NoError(t, err)
	assert.Equal(t, VoteArgs{Class: 1, Nonce: 4, Support: "against", Amount: "250", StakeNonce: 2}, args)

	support, err := ParseSupport(args.Support)
	require.NoError(t, err)
	assert.Equal(t, SupportAgainst, support)
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	var args StakeArgs
	assert.ErrorIs(t, DecodePayload(`{"amount":`, &args), ErrInvalidPayload)
	assert.ErrorIs(t, DecodePayload(`{"duration":"ten"}`, &args), ErrInvalidPayload)

	_, err := ParseAmount("-5")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestProposalArgsInput(t *testing.T) {
	var args ProposalArgs
	raw := `{"class":0,"targets":["contract:params"],"values":["0"],"calldatas":["0xdeadbeef"],` +
		`"title":"t","description_hash":"0x11` + strings.Repeat("00", 31) + `"}`
	require.NoError(t, DecodePayload(raw, &args))

	in, err := args.Input()
	require.NoError(t, err)
	assert.Equal(t, []Address{"contract:params"}, in.Targets)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, in.Calldatas[0])
	assert.Equal(t, byte(0x11), in.DescriptionHash[0])

	args.Calldatas = []string{"deadbeef"}
	_, err = args.Input()
	assert.ErrorIs(t, err, ErrInvalidPayload)

	args.Calldatas = []string{"0x"}
	args.DescriptionHash = "0x1234"
	_, err = args.Input()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEncodePayload(t *testing.T) {
	out, err := EncodePayload(VetoArgs{Class: 1, Nonce: 2, Cancel: true})
	require.NoError(t, err)
	assert.Equal(t, `{"class":1,"nonce":2,"cancel":true}`, out)

	out, err = EncodePayload(Result{Amount: "15"})
	require.NoError(t, err)
	assert.Equal(t, `{"amount":"15"}`, out)

	var back StakeArgs
	out, err = EncodePayload(StakeArgs{Amount: "7", Duration: 60})
	require.NoError(t, err)
	require.NoError(t, DecodePayload(out, &back))
	assert.Equal(t, StakeArgs{Amount: "7", Duration: 60}, back)
}
