// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vetrix

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuintillFromRational(t *testing.T) {
	assert.Equal(t, QuintillOne/2, QuintillFromRationalCeil(big.NewInt(1), big.NewInt(2)))
	assert.Equal(t, QuintillOne, QuintillFromRationalCeil(big.NewInt(3), big.NewInt(2)))
	assert.Equal(t, Quintill(0), QuintillFromRationalCeil(big.NewInt(0), big.NewInt(2)))
	assert.Equal(t, QuintillOne, QuintillFromRationalCeil(big.NewInt(1), big.NewInt(0)))

	// ceil rounds the last part up, floor drops it
	ceil := QuintillFromRationalCeil(big.NewInt(1), big.NewInt(3))
	floor := QuintillFromRationalFloor(big.NewInt(1), big.NewInt(3))
	assert.Equal(t, Quintill(1), ceil-floor)
}

func TestQuintillMul(t *testing.T) {
	half := QuintillFromPercent(50)
	assert.Equal(t, int64(50), half.MulCeil(big.NewInt(100)).Int64())
	assert.Equal(t, int64(50), half.MulFloor(big.NewInt(100)).Int64())

	// 15/200 of 100, rounded both ways
	ratio := QuintillFromRationalCeil(big.NewInt(15), big.NewInt(200))
	assert.Equal(t, int64(8), ratio.MulCeil(big.NewInt(100)).Int64())
	assert.Equal(t, int64(7), ratio.MulFloor(big.NewInt(100)).Int64())

	// saturated fraction is identity
	assert.Equal(t, int64(123), QuintillOne.MulCeil(big.NewInt(123)).Int64())
	assert.Equal(t, int64(0), Quintill(0).MulCeil(big.NewInt(123)).Int64())
}

func TestQuintillMulWide(t *testing.T) {
	// operands close to 2×max-uint64 stay exact
	wide := new(big.Int).Lsh(big.NewInt(1), 65) // 2^65
	half := QuintillFromPercent(50)
	expected := new(big.Int).Rsh(wide, 1)
	assert.Equal(t, expected, half.MulCeil(wide))

	ratio := QuintillFromRationalCeil(wide, new(big.Int).Add(wide, big.NewInt(400)))
	assert.False(t, ratio.IsZero())
	assert.False(t, ratio.IsOne())
}

func TestQuintillString(t *testing.T) {
	assert.Equal(t, "50%", QuintillFromPercent(50).String())
	assert.Equal(t, "100%", QuintillOne.String())
}
