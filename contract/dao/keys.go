package dao

import (
	"strconv"

	"debond_gov/contract/store"
)

const (
	// kMeta holds engine bookkeeping such as the genesis marker.
	kMeta byte = 0x00
	// kClassConfig stores the encoded ClassConfig of a class.
	kClassConfig byte = 0x01
	// kBenchmark stores the benchmark interest rate.
	kBenchmark byte = 0x02
	// kBudget stores the pass-through allocation budget.
	kBudget byte = 0x03
	// kProposalMeta contains encoded Proposal records keyed by class+nonce.
	kProposalMeta byte = 0x10
	// kProposalCount is the per-class nonce counter.
	kProposalCount byte = 0x11
	// kTally keeps the running ballot totals of a proposal.
	kTally byte = 0x12
	// kBallot is one voter's ballot on one proposal.
	kBallot byte = 0x13
	// kStake holds an encoded Stake keyed by nonce+owner.
	kStake byte = 0x20
	// kStakeCount is the per-owner stake nonce counter.
	kStakeCount byte = 0x21
	// kCredits is the vote-credit Account of an owner.
	kCredits byte = 0x22
	// kAllowance is the single delegation an owner granted.
	kAllowance byte = 0x23
	// kCreditSupply is the total of all vote-credit balances.
	kCreditSupply byte = 0x24
)

// packU64LEInline writes a uint64 into dst in little-endian order so keys stay compact.
func packU64LEInline(x uint64, dst []byte) {
	dst[0] = byte(x)
	dst[1] = byte(x >> 8)
	dst[2] = byte(x >> 16)
	dst[3] = byte(x >> 24)
	dst[4] = byte(x >> 32)
	dst[5] = byte(x >> 40)
	dst[6] = byte(x >> 48)
	dst[7] = byte(x >> 56)
}

// packU64LE appends the encoded number to dst and returns the new slice.
func packU64LE(x uint64, dst []byte) []byte {
	return append(dst,
		byte(x),
		byte(x>>8),
		byte(x>>16),
		byte(x>>24),
		byte(x>>32),
		byte(x>>40),
		byte(x>>48),
		byte(x>>56),
	)
}

func genesisKey() string {
	return string([]byte{kMeta, 'g'})
}

func classConfigKey(class uint64) string {
	var buf [9]byte
	buf[0] = kClassConfig
	packU64LEInline(class, buf[1:])
	return string(buf[:])
}

func benchmarkKey() string { return string([]byte{kBenchmark}) }

func budgetKey() string { return string([]byte{kBudget}) }

// proposalKey packs class then nonce under 0x10 so a class's proposals sit together.
func proposalKey(class, nonce uint64) string {
	var buf [17]byte
	buf[0] = kProposalMeta
	packU64LEInline(class, buf[1:])
	packU64LEInline(nonce, buf[9:])
	return string(buf[:])
}

func proposalCountKey(class uint64) string {
	var buf [9]byte
	buf[0] = kProposalCount
	packU64LEInline(class, buf[1:])
	return string(buf[:])
}

func tallyKey(class, nonce uint64) string {
	var buf [17]byte
	buf[0] = kTally
	packU64LEInline(class, buf[1:])
	packU64LEInline(nonce, buf[9:])
	return string(buf[:])
}

// ballotKey mixes proposal id plus voter bytes to avoid nested maps in host storage.
func ballotKey(class, nonce uint64, voter Address) string {
	buf := make([]byte, 0, 1+16+len(voter))
	buf = append(buf, kBallot)
	buf = packU64LE(class, buf)
	buf = packU64LE(nonce, buf)
	buf = append(buf, voter...)
	return string(buf)
}

func stakeKey(owner Address, nonce uint64) string {
	buf := make([]byte, 0, 1+8+len(owner))
	buf = append(buf, kStake)
	buf = packU64LE(nonce, buf)
	buf = append(buf, owner...)
	return string(buf)
}

func ownerKey(prefix byte, owner Address) string {
	buf := make([]byte, 0, 1+len(owner))
	buf = append(buf, prefix)
	buf = append(buf, owner...)
	return string(buf)
}

func stakeCountKey(owner Address) string { return ownerKey(kStakeCount, owner) }

func creditsKey(owner Address) string { return ownerKey(kCredits, owner) }

func allowanceKey(owner Address) string { return ownerKey(kAllowance, owner) }

func creditSupplyKey() string { return string([]byte{kCreditSupply}) }

// getCount reads the decimal counter under key and defaults to zero.
func getCount(st store.State, key string) (uint64, error) {
	ptr := st.Get(key)
	if ptr == nil || *ptr == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(*ptr, 10, 64)
	if err != nil {
		return 0, ErrStorage.wrap(err)
	}
	return n, nil
}

// setCount stores uint64 counters back as decimal strings for the host kv.
func setCount(st store.State, key string, n uint64) {
	st.Set(key, strconv.FormatUint(n, 10))
}
