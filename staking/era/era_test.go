// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package era

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

func TestEraCounters(t *testing.T) {
	svc := newSvc(t)

	_, ok, err := svc.CurrentEra()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SetCurrentEra(0))
	era, ok, err := svc.CurrentEra()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, era)

	_, ok, err = svc.ActiveEra()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SetActiveEra(ActiveEraInfo{Index: 0}))
	info, ok, err := svc.ActiveEra()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, info.HasStart)

	require.NoError(t, svc.SetActiveEra(ActiveEraInfo{Index: 0, Start: 1700, HasStart: true}))
	info, _, err = svc.ActiveEra()
	require.NoError(t, err)
	assert.Equal(t, uint64(1700), info.Start)
}

func TestShouldPlanNewEra(t *testing.T) {
	svc := newSvc(t)

	// bootstrap always triggers
	trigger, err := svc.ShouldPlanNewEra(42)
	require.NoError(t, err)
	assert.True(t, trigger)

	require.NoError(t, svc.SetCurrentEra(3))
	require.NoError(t, svc.SetStartSessionOf(3, 100))

	trigger, err = svc.ShouldPlanNewEra(100 + vetrix.SessionsPerEra - 1)
	require.NoError(t, err)
	assert.False(t, trigger)
	trigger, err = svc.ShouldPlanNewEra(100 + vetrix.SessionsPerEra)
	require.NoError(t, err)
	assert.True(t, trigger)

	require.NoError(t, svc.SetForcing(ForceNone))
	trigger, err = svc.ShouldPlanNewEra(100 + 2*vetrix.SessionsPerEra)
	require.NoError(t, err)
	assert.False(t, trigger)

	require.NoError(t, svc.SetForcing(ForceNew))
	trigger, err = svc.ShouldPlanNewEra(101)
	require.NoError(t, err)
	assert.True(t, trigger)

	require.NoError(t, svc.SetForcing(ForceAlways))
	trigger, err = svc.ShouldPlanNewEra(101)
	require.NoError(t, err)
	assert.True(t, trigger)
}

func TestBondedEras(t *testing.T) {
	svc := newSvc(t)

	for era := uint32(0); era < 5; era++ {
		require.NoError(t, svc.PushBondedEra(era, era*6))
	}

	pruned, err := svc.PruneBondedBefore(2)
	require.NoError(t, err)
	require.Len(t, pruned, 2)
	assert.Equal(t, uint32(0), pruned[0].Era)
	assert.Equal(t, uint32(1), pruned[1].Era)

	eras, err := svc.BondedEras()
	require.NoError(t, err)
	require.Len(t, eras, 3)
	assert.Equal(t, uint32(2), eras[0].Era)

	pruned, err = svc.PruneBondedBefore(2)
	require.NoError(t, err)
	assert.Nil(t, pruned)
}

func TestPruneStartSessions(t *testing.T) {
	svc := newSvc(t)
	for era := uint32(0); era < 6; era++ {
		require.NoError(t, svc.SetStartSessionOf(era, era*6))
	}

	require.NoError(t, svc.PruneStartSessionBefore(4))
	_, ok, err := svc.StartSessionOf(3)
	require.NoError(t, err)
	assert.False(t, ok)
	idx, ok, err := svc.StartSessionOf(4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(24), idx)
}
