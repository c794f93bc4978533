// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"math/big"
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

func TestDepositAndFreeToBond(t *testing.T) {
	svc := newSvc(t)
	addr := vetrix.BytesToAddress([]byte("acc1"))

	b, err := svc.Balance(addr)
	require.NoError(t, err)
	assert.Zero(t, b.Sign())

	require.NoError(t, svc.Deposit(addr, big.NewInt(1000)))
	require.NoError(t, svc.SetLock(addr, big.NewInt(600)))

	free, err := svc.FreeToBond(addr)
	require.NoError(t, err)
	assert.Equal(t, int64(400), free.Int64())

	// lock above balance floors at zero
	require.NoError(t, svc.SetLock(addr, big.NewInt(2000)))
	free, err = svc.FreeToBond(addr)
	require.NoError(t, err)
	assert.Zero(t, free.Sign())
}

func TestBurnLeavesLockAlone(t *testing.T) {
	svc := newSvc(t)
	addr := vetrix.BytesToAddress([]byte("acc2"))

	require.NoError(t, svc.Deposit(addr, big.NewInt(1000)))
	require.NoError(t, svc.SetLock(addr, big.NewInt(1000)))

	burned, err := svc.Burn(addr, big.NewInt(300))
	require.NoError(t, err)
	assert.Equal(t, int64(300), burned.Int64())

	// the lock stays with its owner; only the balance moves
	b, _ := svc.Balance(addr)
	l, _ := svc.LockOf(addr)
	assert.Equal(t, int64(700), b.Int64())
	assert.Equal(t, int64(1000), l.Int64())

	// burning more than held debits only what is there
	burned, err = svc.Burn(addr, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(700), burned.Int64())
	b, _ = svc.Balance(addr)
	assert.Zero(t, b.Sign())
}

func TestSink(t *testing.T) {
	svc := newSvc(t)

	// without a sink the remainder burns silently
	require.NoError(t, svc.DepositToSink(big.NewInt(55)))

	pot := vetrix.BytesToAddress([]byte("pot"))
	require.NoError(t, svc.SetSink(pot))
	require.NoError(t, svc.DepositToSink(big.NewInt(55)))

	b, err := svc.Balance(pot)
	require.NoError(t, err)
	assert.Equal(t, int64(55), b.Int64())
}
