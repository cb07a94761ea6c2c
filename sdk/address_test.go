package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressClassification(t *testing.T) {
	assert.Equal(t, AddressDomainUser, Address("hive:alice").Domain())
	assert.Equal(t, AddressDomainContract, Address("contract:params").Domain())
	assert.Equal(t, AddressDomainSystem, Address("system:fr_balance").Domain())

	assert.Equal(t, AddressTypeHive, Address("hive:alice").Type())
	assert.Equal(t, AddressTypeContract, Address("contract:params").Type())
	assert.Equal(t, AddressTypeEVM, Address("did:pkh:eip155:1:0xabc").Type())
	assert.Equal(t, AddressTypeUnknown, Address("alice").Type())
}

func TestAddressIsValid(t *testing.T) {
	assert.True(t, Address("hive:alice").IsValid())
	assert.True(t, Address("contract:treasury").IsValid())
	assert.False(t, Address("hive:").IsValid())
	assert.False(t, Address("").IsValid())
	assert.False(t, Address("bob").IsValid())
}

func TestAssetIsKnown(t *testing.T) {
	assert.True(t, AssetDGOV.IsKnown())
	assert.True(t, AssetDBIT.IsKnown())
	assert.False(t, Asset("doge").IsKnown())
}
