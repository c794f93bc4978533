// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reputation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetrixchain/vetrix/stakedb"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

func newSvc(t *testing.T) *Service {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(state.New(db))
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierNovice, TierOf(0))
	assert.Equal(t, TierNovice, TierOf(999))
	assert.Equal(t, TierTrusted, TierOf(1_000))
	assert.Equal(t, TierVeteran, TierOf(10_000))
	assert.Equal(t, TierExemplary, TierOf(100_000))
	assert.Equal(t, TierExemplary, TierOf(^uint64(0)))
}

func TestNoteAuthorScalesWithSetSize(t *testing.T) {
	svc := newSvc(t)
	author := vetrix.BytesToAddress([]byte("author"))

	require.NoError(t, svc.NoteAuthor(author, 5))
	score, err := svc.ScoreOf(author)
	require.NoError(t, err)
	assert.Equal(t, vetrix.BlockAuthoringReward*5, score)

	// zero-sized set still credits the base reward
	require.NoError(t, svc.NoteAuthor(author, 0))
	score, _ = svc.ScoreOf(author)
	assert.Equal(t, vetrix.BlockAuthoringReward*6, score)
}

func TestSlashFloorsAtZero(t *testing.T) {
	svc := newSvc(t)
	addr := vetrix.BytesToAddress([]byte("rep"))

	require.NoError(t, svc.Add(addr, 100))
	require.NoError(t, svc.Slash(addr, 40))
	score, _ := svc.ScoreOf(addr)
	assert.Equal(t, uint64(60), score)

	require.NoError(t, svc.Slash(addr, 1_000))
	score, _ = svc.ScoreOf(addr)
	assert.Zero(t, score)
}
