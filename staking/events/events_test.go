// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetrixchain/vetrix/vetrix"
)

func TestLogEmitAndDrain(t *testing.T) {
	l := NewLog()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Drain())

	stash := vetrix.BytesToAddress([]byte("stash"))
	l.Emit(Bonded{Stash: stash, Amount: big.NewInt(100)})
	l.Emit(Chilled{Stash: stash})
	assert.Equal(t, 2, l.Len())

	pending := l.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "Bonded", pending[0].EventName())
	assert.Equal(t, "Chilled", pending[1].EventName())
	assert.Equal(t, 2, l.Len(), "peeking must not drain")

	drained := l.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, Bonded{Stash: stash, Amount: big.NewInt(100)}, drained[0])
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Drain())
}

func TestLogTruncateTo(t *testing.T) {
	l := NewLog()
	stash := vetrix.BytesToAddress([]byte("stash"))

	l.Emit(Bonded{Stash: stash, Amount: big.NewInt(1)})
	mark := l.Len()
	l.Emit(Unbonded{Stash: stash, Amount: big.NewInt(2)})
	l.Emit(Withdrawn{Stash: stash, Amount: big.NewInt(3)})

	l.TruncateTo(mark)
	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Bonded", pending[0].EventName())

	// Marks at or past the end are no-ops.
	l.TruncateTo(5)
	assert.Equal(t, 1, l.Len())

	l.TruncateTo(0)
	assert.Zero(t, l.Len())
}
