// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vetrixchain/vetrix/vetrix"
)

func c(era uint32, value int64) UnlockChunk {
	return UnlockChunk{Value: big.NewInt(value), Era: era}
}

func chunks(cs ...UnlockChunk) []UnlockChunk { return cs }

func mkLedger(active int64, unlocking ...UnlockChunk) *Ledger {
	l := newLedger(vetrix.BytesToAddress([]byte("stash")))
	l.Active = big.NewInt(active)
	l.Total = big.NewInt(active)
	for _, ch := range unlocking {
		l.Unlocking = append(l.Unlocking, ch)
		l.Total.Add(l.Total, ch.Value)
	}
	return l
}

func TestSlashActiveOnly(t *testing.T) {
	l := mkLedger(10)

	assert.Zero(t, l.slash(big.NewInt(0), big.NewInt(0), 0).Sign())

	got := l.slash(big.NewInt(5), big.NewInt(0), 0)
	assert.Equal(t, int64(5), got.Int64())
	assert.Equal(t, int64(5), l.Active.Int64())
	assert.Equal(t, int64(5), l.Total.Int64())
	assert.True(t, l.Consistent())

	// more than held debits only what is there
	got = l.slash(big.NewInt(11), big.NewInt(0), 0)
	assert.Equal(t, int64(5), got.Int64())
	assert.Zero(t, l.Active.Sign())
	assert.Zero(t, l.Total.Sign())
}

func TestSlashProportionalOverWindow(t *testing.T) {
	// the first two chunks unlock before the window and stay immune
	l := mkLedger(0, c(4, 100), c(5, 100), c(6, 100), c(7, 100))

	got := l.slash(big.NewInt(140), big.NewInt(0), 6)
	assert.Equal(t, int64(140), got.Int64())
	assert.Equal(t, chunks(c(4, 100), c(5, 100), c(6, 30), c(7, 30)), l.Unlocking)
	assert.Equal(t, int64(260), l.Total.Int64())
	assert.True(t, l.Consistent())
}

func TestSlashCeilRoundingSpread(t *testing.T) {
	// 15 over a 200 window: the ceiling ratio takes 8 from the first
	// in-scope chunk and the 7 left from the second
	l := mkLedger(0, c(4, 100), c(5, 100), c(6, 100), c(7, 100))

	got := l.slash(big.NewInt(15), big.NewInt(0), 6)
	assert.Equal(t, int64(15), got.Int64())
	assert.Equal(t, chunks(c(4, 100), c(5, 100), c(6, 92), c(7, 93)), l.Unlocking)
	assert.True(t, l.Consistent())
}

func TestSlashTouchesEverythingInScope(t *testing.T) {
	l := mkLedger(500, c(4, 100), c(5, 100), c(6, 100), c(7, 100))

	// exactly half of the whole ledger with every chunk in scope
	got := l.slash(big.NewInt(450), big.NewInt(0), 4)
	assert.Equal(t, int64(450), got.Int64())
	assert.Equal(t, int64(250), l.Active.Int64())
	assert.Equal(t, chunks(c(4, 50), c(5, 50), c(6, 50), c(7, 50)), l.Unlocking)
	assert.Equal(t, int64(450), l.Total.Int64())
}

func TestSlashImmuneChunksAbsorbLeftover(t *testing.T) {
	// the in-scope chunk is wiped out and the rest falls through to the
	// newest pre-window chunk
	l := mkLedger(0, c(4, 100), c(6, 50))

	got := l.slash(big.NewInt(80), big.NewInt(0), 6)
	assert.Equal(t, int64(80), got.Int64())
	assert.Equal(t, chunks(c(4, 70)), l.Unlocking)
	assert.True(t, l.Consistent())
}

func TestSlashNoChunkInScope(t *testing.T) {
	// nothing unlocks inside the window: active first, then the newest
	// chunks backwards
	l := mkLedger(100, c(3, 50), c(4, 50))

	got := l.slash(big.NewInt(120), big.NewInt(0), 6)
	assert.Equal(t, int64(120), got.Int64())
	assert.Zero(t, l.Active.Sign())
	assert.Equal(t, chunks(c(3, 50), c(4, 30)), l.Unlocking)
}

func TestSlashDustsBelowMinBalance(t *testing.T) {
	l := mkLedger(500, c(6, 40))

	// the proportional cuts leave both positions below 25, so both get
	// swept whole and the realized amount exceeds the requested one
	got := l.slash(big.NewInt(530), big.NewInt(25), 6)
	assert.Equal(t, int64(540), got.Int64())
	assert.Zero(t, l.Active.Sign())
	assert.Empty(t, l.Unlocking)
	assert.Zero(t, l.Total.Sign())
}

func TestRebondPopsNewestFirst(t *testing.T) {
	l := mkLedger(100, c(10, 40), c(11, 60))

	moved := l.rebond(big.NewInt(70))
	assert.Equal(t, int64(70), moved.Int64())
	assert.Equal(t, int64(170), l.Active.Int64())
	// the era-11 chunk is consumed whole, era-10 only partially
	assert.Equal(t, chunks(c(10, 30)), l.Unlocking)
	assert.True(t, l.Consistent())

	// more than queued moves everything
	moved = l.rebond(big.NewInt(1000))
	assert.Equal(t, int64(30), moved.Int64())
	assert.Empty(t, l.Unlocking)
	assert.Equal(t, int64(200), l.Active.Int64())
}

func TestConsolidate(t *testing.T) {
	l := mkLedger(100, c(5, 10), c(7, 20), c(9, 30))

	assert.Equal(t, int64(30), l.matured(7).Int64())
	l.consolidate(7)
	assert.Equal(t, chunks(c(9, 30)), l.Unlocking)
	assert.Equal(t, int64(130), l.Total.Int64())
	assert.True(t, l.Consistent())
}

func TestClaimedRewards(t *testing.T) {
	l := newLedger(vetrix.Address{})

	assert.True(t, l.markClaimed(5, 0))
	assert.True(t, l.markClaimed(2, 0))
	assert.True(t, l.markClaimed(9, 0))
	assert.Equal(t, []uint32{2, 5, 9}, l.ClaimedRewards)

	assert.False(t, l.markClaimed(5, 0))
	assert.True(t, l.claimed(9))
	assert.False(t, l.claimed(3))

	// marking with a window start prunes fallen-out entries
	assert.True(t, l.markClaimed(12, 5))
	assert.Equal(t, []uint32{5, 9, 12}, l.ClaimedRewards)
}
