// Package ledger is the plain fungible-balance book the governance engine moves
// principal and rewards through. Balances are decimal strings in the contract KV.
package ledger

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"debond_gov/contract/store"
	"debond_gov/sdk"
)

// Prefixes sit above the governance engine's so both share one KV.
const (
	kBalance byte = 0x40
	kSupply  byte = 0x41
)

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrOverflow            = errors.New("ledger: balance overflow")
	ErrCorrupt             = errors.New("ledger: corrupt balance entry")
)

// Book reads and writes balances of any asset through a State.
type Book struct {
	st store.State
}

func NewBook(st store.State) *Book {
	return &Book{st: st}
}

func balanceKey(asset sdk.Asset, addr sdk.Address) string {
	buf := make([]byte, 0, 2+len(asset)+len(addr))
	buf = append(buf, kBalance)
	buf = append(buf, asset...)
	buf = append(buf, 0x00)
	buf = append(buf, addr...)
	return string(buf)
}

func supplyKey(asset sdk.Asset) string {
	return string(append([]byte{kSupply}, asset...))
}

func (b *Book) read(key string) (*uint256.Int, error) {
	ptr := b.st.Get(key)
	if ptr == nil || *ptr == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(*ptr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}

func (b *Book) write(key string, v *uint256.Int) {
	if v.IsZero() {
		b.st.Delete(key)
		return
	}
	b.st.Set(key, v.Dec())
}

// BalanceOf returns the balance of addr in asset, zero when never touched.
func (b *Book) BalanceOf(asset sdk.Asset, addr sdk.Address) (*uint256.Int, error) {
	return b.read(balanceKey(asset, addr))
}

// TotalSupply returns everything minted minus everything burned for asset.
func (b *Book) TotalSupply(asset sdk.Asset) (*uint256.Int, error) {
	return b.read(supplyKey(asset))
}

func (b *Book) credit(asset sdk.Asset, addr sdk.Address, amount *uint256.Int) error {
	key := balanceKey(asset, addr)
	bal, err := b.read(key)
	if err != nil {
		return err
	}
	if _, overflow := bal.AddOverflow(bal, amount); overflow {
		return ErrOverflow
	}
	b.write(key, bal)
	return nil
}

func (b *Book) debit(asset sdk.Asset, addr sdk.Address, amount *uint256.Int) error {
	key := balanceKey(asset, addr)
	bal, err := b.read(key)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, addr, bal.Dec(), asset, amount.Dec())
	}
	bal.Sub(bal, amount)
	b.write(key, bal)
	return nil
}

// Mint creates amount of asset on to and grows the supply.
func (b *Book) Mint(asset sdk.Asset, to sdk.Address, amount *uint256.Int) error {
	supply, err := b.read(supplyKey(asset))
	if err != nil {
		return err
	}
	if _, overflow := supply.AddOverflow(supply, amount); overflow {
		return ErrOverflow
	}
	if err := b.credit(asset, to, amount); err != nil {
		return err
	}
	b.write(supplyKey(asset), supply)
	return nil
}

// Burn destroys amount of asset held by from.
func (b *Book) Burn(asset sdk.Asset, from sdk.Address, amount *uint256.Int) error {
	if err := b.debit(asset, from, amount); err != nil {
		return err
	}
	supply, err := b.read(supplyKey(asset))
	if err != nil {
		return err
	}
	if supply.Lt(amount) {
		return ErrCorrupt
	}
	b.write(supplyKey(asset), supply.Sub(supply, amount))
	return nil
}

// Transfer moves amount of asset from one holder to another. A zero amount is a no-op.
func (b *Book) Transfer(asset sdk.Asset, from, to sdk.Address, amount *uint256.Int) error {
	if amount.IsZero() || from == to {
		return nil
	}
	if err := b.debit(asset, from, amount); err != nil {
		return err
	}
	return b.credit(asset, to, amount)
}
