// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vetrix

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Quintill is a fixed-point fraction with 1e18 parts, saturating at one.
// It is the ratio type for commissions, slash fractions and ledger slash
// ratios. Products are computed in 256-bit width, so operands close to
// 2×max-uint64 stay exact.
type Quintill uint64

// QuintillOne is the whole (100%) fraction.
const QuintillOne = Quintill(1e18)

var quintillDenom = uint256.NewInt(uint64(QuintillOne))

// QuintillFromPercent converts a percentage to a fraction, saturating at 100.
func QuintillFromPercent(p uint64) Quintill {
	if p > 100 {
		p = 100
	}
	return Quintill(p * 1e16)
}

// QuintillFromRationalCeil approximates n/d rounding up.
// Out-of-range inputs saturate: n ≥ d gives one, non-positive n or d gives zero or one
// according to the sign of the ratio they bound.
func QuintillFromRationalCeil(n, d *big.Int) Quintill {
	return quintillFromRational(n, d, true)
}

// QuintillFromRationalFloor approximates n/d rounding down.
func QuintillFromRationalFloor(n, d *big.Int) Quintill {
	return quintillFromRational(n, d, false)
}

func quintillFromRational(n, d *big.Int, roundUp bool) Quintill {
	if n == nil || n.Sign() <= 0 {
		return 0
	}
	if d == nil || d.Sign() <= 0 {
		return QuintillOne
	}
	if n.Cmp(d) >= 0 {
		return QuintillOne
	}
	un, overflow := uint256.FromBig(n)
	if overflow {
		return QuintillOne
	}
	ud, overflow := uint256.FromBig(d)
	if overflow {
		// n < d was checked above, the ratio underflows to zero only when n also overflows
		return 0
	}

	var num uint256.Int
	num.Mul(un, quintillDenom)
	var q, rem uint256.Int
	q.DivMod(&num, ud, &rem)
	if roundUp && !rem.IsZero() {
		q.AddUint64(&q, 1)
	}
	if q.CmpUint64(uint64(QuintillOne)) >= 0 {
		return QuintillOne
	}
	return Quintill(q.Uint64())
}

// MulCeil multiplies x by the fraction rounding up.
func (q Quintill) MulCeil(x *big.Int) *big.Int {
	return q.mul(x, true)
}

// MulFloor multiplies x by the fraction rounding down.
func (q Quintill) MulFloor(x *big.Int) *big.Int {
	return q.mul(x, false)
}

func (q Quintill) mul(x *big.Int, roundUp bool) *big.Int {
	if x == nil || x.Sign() <= 0 || q == 0 {
		return new(big.Int)
	}
	if q >= QuintillOne {
		return new(big.Int).Set(x)
	}
	ux, overflow := uint256.FromBig(x)
	if overflow {
		// wide operands take the exact big.Int path
		prod := new(big.Int).Mul(x, new(big.Int).SetUint64(uint64(q)))
		if roundUp {
			prod.Add(prod, new(big.Int).SetUint64(uint64(QuintillOne)-1))
		}
		return prod.Div(prod, new(big.Int).SetUint64(uint64(QuintillOne)))
	}

	var prod uint256.Int
	prod.Mul(ux, uint256.NewInt(uint64(q)))
	var out, rem uint256.Int
	out.DivMod(&prod, quintillDenom, &rem)
	if roundUp && !rem.IsZero() {
		out.AddUint64(&out, 1)
	}
	return out.ToBig()
}

// SaturatingSub returns q − p, floored at zero.
func (q Quintill) SaturatingSub(p Quintill) Quintill {
	if p >= q {
		return 0
	}
	return q - p
}

// IsZero returns whether the fraction is zero.
func (q Quintill) IsZero() bool {
	return q == 0
}

// IsOne returns whether the fraction is saturated at one.
func (q Quintill) IsOne() bool {
	return q >= QuintillOne
}

// String implements the stringer interface.
func (q Quintill) String() string {
	whole := uint64(q) / 1e16
	frac := uint64(q) % 1e16
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	return fmt.Sprintf("%d.%04d%%", whole, frac/1e12)
}
