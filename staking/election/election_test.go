// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package election

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetrixchain/vetrix/stakedb"
	"github.com/vetrixchain/vetrix/staking/account"
	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reputation"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

type fixture struct {
	t        *testing.T
	svc      *Service
	ledgers  *ledger.Service
	accounts *account.Service
	rep      *reputation.Service
	cfg      *configs.Service
}

func newFixture(t *testing.T) *fixture {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db)
	accounts := account.New(st)
	rep := reputation.New(st)
	cfg := configs.New(st)
	ledgers := ledger.New(st, accounts, 3, 84, 4, big.NewInt(10))
	return &fixture{
		t:        t,
		svc:      New(st, ledgers, rep, cfg),
		ledgers:  ledgers,
		accounts: accounts,
		rep:      rep,
		cfg:      cfg,
	}
}

func addr(name string) vetrix.Address {
	return vetrix.BytesToAddress([]byte(name))
}

// bond funds the stash and bonds it under a derived controller.
func (f *fixture) bond(name string, amount int64) (stash, ctrl vetrix.Address) {
	stash, ctrl = addr(name), addr(name+"-ctrl")
	require.NoError(f.t, f.accounts.Deposit(stash, big.NewInt(amount)))
	_, err := f.ledgers.Bond(stash, ctrl, big.NewInt(amount), ledger.Destination{Kind: ledger.DestStash}, 0)
	require.NoError(f.t, err)
	return stash, ctrl
}

func (f *fixture) validator(name string, amount int64, prefs Prefs) (stash, ctrl vetrix.Address) {
	stash, ctrl = f.bond(name, amount)
	got, err := f.svc.Validate(ctrl, prefs)
	require.NoError(f.t, err)
	require.Equal(f.t, stash, got)
	return stash, ctrl
}

func (f *fixture) cooperator(name string, amount int64, targets ...CoopTarget) (stash, ctrl vetrix.Address) {
	stash, ctrl = f.bond(name, amount)
	got, err := f.svc.Cooperate(ctrl, targets, 0)
	require.NoError(f.t, err)
	require.Equal(f.t, stash, got)
	return stash, ctrl
}

func target(validator vetrix.Address, amount int64) CoopTarget {
	return CoopTarget{Validator: validator, Amount: big.NewInt(amount)}
}

func TestValidateGates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Validate(addr("nobody"), Prefs{})
	assert.ErrorIs(t, err, reverts.ErrNotController)

	require.NoError(t, f.cfg.Apply(configs.Update{
		MinValidatorBond:       configs.BalanceOp{Kind: configs.OpSet, Value: big.NewInt(500)},
		MinCommission:          configs.QuintillOp{Kind: configs.OpSet, Value: vetrix.QuintillFromPercent(5)},
		MinValidatorReputation: configs.ScoreOp{Kind: configs.OpSet, Value: 100},
	}))

	_, ctrl := f.bond("v1", 400)
	_, err = f.svc.Validate(ctrl, Prefs{Commission: vetrix.QuintillFromPercent(10)})
	assert.ErrorIs(t, err, reverts.ErrInsufficientBond)

	stash, ctrl := f.bond("v2", 500)
	_, err = f.svc.Validate(ctrl, Prefs{Commission: vetrix.QuintillFromPercent(10)})
	assert.ErrorIs(t, err, reverts.ErrReputationTooLow)

	require.NoError(t, f.rep.SetScore(stash, 100))
	_, err = f.svc.Validate(ctrl, Prefs{Commission: vetrix.QuintillFromPercent(1)})
	assert.ErrorIs(t, err, reverts.ErrCommissionTooLow)

	got, err := f.svc.Validate(ctrl, Prefs{Commission: vetrix.QuintillFromPercent(10)})
	require.NoError(t, err)
	assert.Equal(t, stash, got)
	ok, err := f.svc.IsValidator(stash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateCollaborativeTier(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cfg.Apply(configs.Update{
		MinCollaborativeReputation: configs.ScoreOp{Kind: configs.OpSet, Value: 1000},
	}))

	stash, ctrl := f.bond("v1", 1000)
	_, err := f.svc.Validate(ctrl, Prefs{Collaborative: true})
	assert.ErrorIs(t, err, reverts.ErrReputationTooLow)

	require.NoError(t, f.rep.SetScore(stash, 1000))
	_, err = f.svc.Validate(ctrl, Prefs{Collaborative: true})
	require.NoError(t, err)
}

func TestValidateBound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cfg.Apply(configs.Update{
		MaxValidatorsCount: configs.CountOp{Kind: configs.OpSet, Value: 1},
	}))

	f.validator("v1", 1000, Prefs{})
	_, ctrl := f.bond("v2", 1000)
	_, err := f.svc.Validate(ctrl, Prefs{})
	assert.ErrorIs(t, err, reverts.ErrTooManyValidators)

	// re-declaring an existing validator does not count against the bound
	_, v1ctrl := addr("v1"), addr("v1-ctrl")
	_, err = f.svc.Validate(v1ctrl, Prefs{Commission: vetrix.QuintillFromPercent(1)})
	require.NoError(t, err)
}

func TestCooperateGates(t *testing.T) {
	f := newFixture(t)
	v1, _ := f.validator("v1", 1000, Prefs{Collaborative: true})
	solo, _ := f.validator("solo", 1000, Prefs{})

	_, ctrl := f.bond("backer", 300)

	_, err := f.svc.Cooperate(ctrl, nil, 0)
	assert.ErrorIs(t, err, reverts.ErrEmptyTargets)

	var tooMany []CoopTarget
	for i := 0; i <= vetrix.MaxCooperations; i++ {
		tooMany = append(tooMany, target(addr(fmt.Sprintf("x%d", i)), 1))
	}
	_, err = f.svc.Cooperate(ctrl, tooMany, 0)
	assert.ErrorIs(t, err, reverts.ErrTooManyTargets)

	// declared amounts above the active bond
	_, err = f.svc.Cooperate(ctrl, []CoopTarget{target(v1, 400)}, 0)
	assert.ErrorIs(t, err, reverts.ErrInsufficientBond)

	// a non-collaborative validator is no target
	_, err = f.svc.Cooperate(ctrl, []CoopTarget{target(solo, 100)}, 0)
	assert.ErrorIs(t, err, reverts.ErrBadTarget)
	_, err = f.svc.Cooperate(ctrl, []CoopTarget{target(addr("ghost"), 100)}, 0)
	assert.ErrorIs(t, err, reverts.ErrBadTarget)

	stash, err := f.svc.Cooperate(ctrl, []CoopTarget{target(v1, 200)}, 7)
	require.NoError(t, err)
	coop, ok, err := f.svc.CooperationsOf(stash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), coop.SubmittedIn)
	require.Len(t, coop.Targets, 1)
}

func TestCooperateReputationGate(t *testing.T) {
	f := newFixture(t)
	v1, _ := f.validator("v1", 1000, Prefs{Collaborative: true, MinBackerReputation: 50})

	_, ctrl := f.bond("backer", 300)
	_, err := f.svc.Cooperate(ctrl, []CoopTarget{target(v1, 100)}, 0)
	assert.ErrorIs(t, err, reverts.ErrReputationTooLow)

	require.NoError(t, f.rep.SetScore(addr("backer"), 50))
	_, err = f.svc.Cooperate(ctrl, []CoopTarget{target(v1, 100)}, 0)
	require.NoError(t, err)
}

func TestChill(t *testing.T) {
	f := newFixture(t)
	v1, _ := f.validator("v1", 1000, Prefs{Collaborative: true})
	backer, _ := f.cooperator("backer", 300, target(v1, 100))

	chilled, err := f.svc.Chill(v1)
	require.NoError(t, err)
	assert.True(t, chilled)
	ok, _ := f.svc.IsValidator(v1)
	assert.False(t, ok)

	chilled, err = f.svc.Chill(backer)
	require.NoError(t, err)
	assert.True(t, chilled)

	chilled, err = f.svc.Chill(addr("nobody"))
	require.NoError(t, err)
	assert.False(t, chilled)
}

func TestChillOther(t *testing.T) {
	f := newFixture(t)
	_, ctrl := f.validator("v1", 100, Prefs{})

	// closed until a chill threshold is configured
	_, err := f.svc.ChillOther(ctrl)
	assert.ErrorIs(t, err, reverts.ErrCannotChillOther)

	require.NoError(t, f.cfg.Apply(configs.Update{
		ChillThreshold:     configs.QuintillOp{Kind: configs.OpSet, Value: vetrix.QuintillFromPercent(50)},
		MaxValidatorsCount: configs.CountOp{Kind: configs.OpSet, Value: 2},
		MinValidatorBond:   configs.BalanceOp{Kind: configs.OpSet, Value: big.NewInt(50)},
	}))

	// above the dynamic bond floor
	_, err = f.svc.ChillOther(ctrl)
	assert.ErrorIs(t, err, reverts.ErrCannotChillOther)

	require.NoError(t, f.cfg.Apply(configs.Update{
		MinValidatorBond: configs.BalanceOp{Kind: configs.OpSet, Value: big.NewInt(500)},
	}))
	stash, err := f.svc.ChillOther(ctrl)
	require.NoError(t, err)
	assert.Equal(t, addr("v1"), stash)
	ok, _ := f.svc.IsValidator(stash)
	assert.False(t, ok)
}

func TestKick(t *testing.T) {
	f := newFixture(t)
	v1, v1ctrl := f.validator("v1", 1000, Prefs{Collaborative: true})
	v2, _ := f.validator("v2", 1000, Prefs{Collaborative: true})
	backer, _ := f.cooperator("backer", 500, target(v1, 100), target(v2, 100))

	stash, kicked, err := f.svc.Kick(v1ctrl, []vetrix.Address{backer, addr("nobody")})
	require.NoError(t, err)
	assert.Equal(t, v1, stash)
	assert.Equal(t, []vetrix.Address{backer}, kicked)

	coop, ok, err := f.svc.CooperationsOf(backer)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, coop.Targets, 1)
	assert.Equal(t, v2, coop.Targets[0].Validator)

	// kicking the last target removes the cooperator record
	_, kicked, err = f.svc.Kick(addr("v2-ctrl"), []vetrix.Address{backer})
	require.NoError(t, err)
	assert.Len(t, kicked, 1)
	ok, err = f.svc.IsCooperator(backer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestElectTopK(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(1))
	require.NoError(t, f.svc.SetValidatorCount(2))

	f.validator("v1", 100, Prefs{})
	v2, _ := f.validator("v2", 300, Prefs{})
	v3, _ := f.validator("v3", 200, Prefs{})

	out, err := f.svc.Elect(1)
	require.NoError(t, err)
	require.False(t, out.Failed)
	assert.Equal(t, []vetrix.Address{v2, v3}, out.Elected)

	total, err := f.svc.EraTotalStake(1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), total.Int64())

	exp, ok, err := f.svc.ExposureOf(1, v2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(300), exp.Own.Int64())
	assert.True(t, exp.Consistent())
}

func TestElectInvulnerableFirst(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(1))
	require.NoError(t, f.svc.SetValidatorCount(2))

	f.validator("rich", 10_000, Prefs{})
	f.validator("mid", 5_000, Prefs{})
	poor, _ := f.validator("poor", 100, Prefs{})
	require.NoError(t, f.svc.SetInvulnerables([]vetrix.Address{poor}))

	out, err := f.svc.Elect(1)
	require.NoError(t, err)
	// the invulnerable ranks ahead of stake order
	assert.Equal(t, []vetrix.Address{poor, addr("rich")}, out.Elected)
}

func TestElectExposuresAndClipping(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(1))
	require.NoError(t, f.svc.SetValidatorCount(1))

	v1, _ := f.validator("v1", 1000, Prefs{Collaborative: true, Commission: vetrix.QuintillFromPercent(10)})
	for i := 0; i < vetrix.MaxCooperatorRewardedPerValidator+10; i++ {
		f.cooperator(fmt.Sprintf("backer%03d", i), 2000, target(v1, int64(1000+i)))
	}

	out, err := f.svc.Elect(3)
	require.NoError(t, err)
	require.Equal(t, []vetrix.Address{v1}, out.Elected)

	full, ok, err := f.svc.ExposureOf(3, v1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, full.Others, vetrix.MaxCooperatorRewardedPerValidator+10)
	assert.True(t, full.Consistent())

	clipped, ok, err := f.svc.ClippedExposureOf(3, v1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, clipped.Others, vetrix.MaxCooperatorRewardedPerValidator)
	// own and total stay those of the full exposure
	assert.Equal(t, full.Total, clipped.Total)
	// the clipped set keeps the largest backers
	for _, o := range clipped.Others {
		assert.GreaterOrEqual(t, o.Value.Int64(), int64(1010))
	}

	// the preference snapshot is era-bound
	prefs, err := f.svc.EraPrefsOf(3, v1)
	require.NoError(t, err)
	assert.Equal(t, vetrix.QuintillFromPercent(10), prefs.Commission)
}

func TestElectAbortsBelowMinimum(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(2))
	require.NoError(t, f.svc.SetValidatorCount(5))
	f.validator("v1", 1000, Prefs{})

	out, err := f.svc.Elect(1)
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Nil(t, out.Elected)
}

func TestElectReputationFilter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(1))
	require.NoError(t, f.svc.SetValidatorCount(5))

	good, _ := f.validator("good", 1000, Prefs{})
	weak, _ := f.validator("weak", 5000, Prefs{})
	require.NoError(t, f.rep.SetScore(good, 200))

	require.NoError(t, f.cfg.Apply(configs.Update{
		MinValidatorReputation: configs.ScoreOp{Kind: configs.OpSet, Value: 100},
	}))

	out, err := f.svc.Elect(1)
	require.NoError(t, err)
	assert.Equal(t, []vetrix.Address{good}, out.Elected)
	assert.Equal(t, []vetrix.Address{weak}, out.Chilled)
	ok, _ := f.svc.IsValidator(weak)
	assert.False(t, ok)
}

func TestPruneEra(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SetMinimumValidatorCount(1))
	require.NoError(t, f.svc.SetValidatorCount(5))
	v1, _ := f.validator("v1", 1000, Prefs{})

	_, err := f.svc.Elect(1)
	require.NoError(t, err)
	_, err = f.svc.Elect(2)
	require.NoError(t, err)

	require.NoError(t, f.svc.PruneEra(1))
	_, ok, err := f.svc.ExposureOf(1, v1)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.svc.ExposureOf(2, v1)
	require.NoError(t, err)
	assert.True(t, ok)
}
