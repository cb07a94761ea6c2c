package sdk

import "strings"

type AddressDomain string

const (
	AddressDomainUser     AddressDomain = "user"
	AddressDomainContract AddressDomain = "contract"
	AddressDomainSystem   AddressDomain = "system"
)

type AddressType string

const (
	AddressTypeEVM      AddressType = "evm"
	AddressTypeKey      AddressType = "key"
	AddressTypeHive     AddressType = "hive"
	AddressTypeContract AddressType = "contract"
	AddressTypeSystem   AddressType = "system"
	AddressTypeUnknown  AddressType = "unknown"
)

// Address is the prefixed account identifier used across the chain (hive:alice, contract:params, ...).
type Address string

// String returns the literal representation (like hive:alice) of the address.
// Example payload: sdk.Address("hive:foo").String()
func (a Address) String() string {
	return string(a)
}

// Domain checks the prefix to tell user, contract and system addresses apart.
// Example payload: sdk.Address("contract:params").Domain()
func (a Address) Domain() AddressDomain {
	switch {
	case strings.HasPrefix(a.String(), "system:"):
		return AddressDomainSystem
	case strings.HasPrefix(a.String(), "contract:"):
		return AddressDomainContract
	default:
		return AddressDomainUser
	}
}

// Type inspects the DID or chain prefix to categorize the address.
// Example payload: sdk.Address("did:pkh:eip155:1:0xabc").Type()
func (a Address) Type() AddressType {
	s := a.String()
	switch {
	case strings.HasPrefix(s, "did:pkh:eip155"):
		return AddressTypeEVM
	case strings.HasPrefix(s, "did:key:"):
		return AddressTypeKey
	case strings.HasPrefix(s, "hive:"):
		return AddressTypeHive
	case strings.HasPrefix(s, "contract:"):
		return AddressTypeContract
	case strings.HasPrefix(s, "system:"):
		return AddressTypeSystem
	default:
		return AddressTypeUnknown
	}
}

// IsValid is a light sanity check: known prefix and something after it.
// Example payload: sdk.Address("foo").IsValid()
func (a Address) IsValid() bool {
	if a.Type() == AddressTypeUnknown {
		return false
	}
	i := strings.LastIndexByte(a.String(), ':')
	return i >= 0 && i < len(a)-1
}
