// Package interest holds the pure rate math of the governance engine. Rates and
// fractions are 18-decimal fixed point values carried in uint256 integers.
package interest

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// SecondsPerYear is the accrual year used by InterestForDuration.
const SecondsPerYear = 31536000

const (
	precision = 256
	// rootSteps bounds how many fractional bits of the exponent are honoured.
	rootSteps = 64
	// beyond this exponent 1/(1+2^d) no longer shows up in 18 decimals.
	saturation = 1024
)

var (
	ErrOutOfDomain = errors.New("interest: input outside the open interval (0,1)")
	ErrOverflow    = errors.New("interest: arithmetic overflow")
)

var (
	// One is 1.0 in 18-decimal fixed point.
	One = uint256.NewInt(1_000_000_000_000_000_000)
	// FloatingC is the sigmoid centre used for floating rates (0.2).
	FloatingC = uint256.NewInt(200_000_000_000_000_000)

	yearScale = new(uint256.Int).Mul(uint256.NewInt(SecondsPerYear), One)
	oneF      = newFloat().SetInt(One.ToBig())
	roots     = twoRoots()
)

func newFloat() *big.Float {
	return new(big.Float).SetPrec(precision)
}

// twoRoots precomputes 2^(2^-k) for k = 1..rootSteps by repeated square roots.
func twoRoots() []*big.Float {
	out := make([]*big.Float, rootSteps+1)
	prev := newFloat().SetInt64(2)
	for k := 1; k <= rootSteps; k++ {
		prev = newFloat().Sqrt(prev)
		out[k] = prev
	}
	return out
}

// toUnit turns a fixed point integer into a real in [0, 2^256/1e18).
func toUnit(v *uint256.Int) *big.Float {
	f := newFloat().SetInt(v.ToBig())
	return f.Quo(f, oneF)
}

// pow2 evaluates 2^d by splitting d into floor and fraction; the fraction is
// consumed bit by bit against the precomputed roots.
func pow2(d *big.Float) *big.Float {
	n, _ := d.Int64()
	if d.Sign() < 0 && newFloat().SetInt64(n).Cmp(d) != 0 {
		n--
	}
	frac := newFloat().Sub(d, newFloat().SetInt64(n))
	res := newFloat().SetInt64(1)
	one := newFloat().SetInt64(1)
	for k := 1; k <= rootSteps && frac.Sign() > 0; k++ {
		frac.Mul(frac, newFloat().SetInt64(2))
		if frac.Cmp(one) >= 0 {
			res.Mul(res, roots[k])
			frac.Sub(frac, one)
		}
	}
	return res.SetMantExp(res, int(n))
}

func inUnitInterval(v *uint256.Int) bool {
	return !v.IsZero() && v.Lt(One)
}

// Sigmoid computes 2^(-1/((1-c)x)) / (2^(-1/((1-c)x)) + 2^(-1/((1-x)c))) for
// c and x strictly inside (0,1). The result is floored to 18 decimals.
func Sigmoid(c, x *uint256.Int) (*uint256.Int, error) {
	if !inUnitInterval(c) || !inUnitInterval(x) {
		return nil, ErrOutOfDomain
	}
	cf, xf := toUnit(c), toUnit(x)
	one := newFloat().SetInt64(1)

	// the ratio reduces to 1/(1+2^(a-b))
	a := newFloat().Mul(newFloat().Sub(one, cf), xf)
	a.Quo(one, a)
	b := newFloat().Mul(newFloat().Sub(one, xf), cf)
	b.Quo(one, b)
	d := newFloat().Sub(a, b)

	limit := newFloat().SetInt64(saturation)
	if d.Cmp(limit) > 0 {
		return new(uint256.Int), nil
	}
	if d.Cmp(newFloat().Neg(limit)) < 0 {
		return new(uint256.Int).SubUint64(One, 1), nil
	}

	den := newFloat().Add(one, pow2(d))
	sig := newFloat().Quo(oneF, den)
	scaled, _ := sig.Int(nil)
	out, overflow := uint256.FromBig(scaled)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// FloatingInterestRate blends the benchmark rate by the share of fixed-rate bonds:
// 2 * benchmark * sigmoid(0.2, fix/(fix+float)). The share is clamped strictly
// inside (0,1) so one-sided supplies still price.
func FloatingInterestRate(fixBond, floatBond, benchmark *uint256.Int) (*uint256.Int, error) {
	total, overflow := new(uint256.Int).AddOverflow(fixBond, floatBond)
	if overflow {
		return nil, ErrOverflow
	}
	if total.IsZero() {
		return nil, ErrOutOfDomain
	}
	x, overflow := new(uint256.Int).MulDivOverflow(fixBond, One, total)
	if overflow {
		return nil, ErrOverflow
	}
	if x.IsZero() {
		x.SetUint64(1)
	}
	if !x.Lt(One) {
		x.SubUint64(One, 1)
	}
	sig, err := Sigmoid(FloatingC, x)
	if err != nil {
		return nil, err
	}
	twice, overflow := new(uint256.Int).MulOverflow(benchmark, uint256.NewInt(2))
	if overflow {
		return nil, ErrOverflow
	}
	rate, overflow := new(uint256.Int).MulDivOverflow(twice, sig, One)
	if overflow {
		return nil, ErrOverflow
	}
	return rate, nil
}

// FixedInterestRate is the complement of the floating rate around twice the benchmark.
func FixedInterestRate(fixBond, floatBond, benchmark *uint256.Int) (*uint256.Int, error) {
	floating, err := FloatingInterestRate(fixBond, floatBond, benchmark)
	if err != nil {
		return nil, err
	}
	twice, overflow := new(uint256.Int).MulOverflow(benchmark, uint256.NewInt(2))
	if overflow {
		return nil, ErrOverflow
	}
	fixed, underflow := new(uint256.Int).SubOverflow(twice, floating)
	if underflow {
		return nil, ErrOverflow
	}
	return fixed, nil
}

// InterestForDuration returns amount * annualRate * seconds / (SecondsPerYear * 1e18),
// floored. Overflow fails instead of wrapping.
func InterestForDuration(amount *uint256.Int, seconds uint64, annualRate *uint256.Int) (*uint256.Int, error) {
	perYear, overflow := new(uint256.Int).MulOverflow(amount, annualRate)
	if overflow {
		return nil, ErrOverflow
	}
	out, overflow := new(uint256.Int).MulDivOverflow(perYear, uint256.NewInt(seconds), yearScale)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}
