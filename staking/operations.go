// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/era"
	"github.com/vetrixchain/vetrix/staking/events"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Endow credits a free balance, for genesis and faucets.
func (e *Engine) Endow(addr vetrix.Address, amount *big.Int) error {
	return e.run("endow", func() error {
		return e.accounts.Deposit(addr, amount)
	})
}

// Bond pairs the stash with a controller and locks up to value.
func (e *Engine) Bond(stash, controller vetrix.Address, value *big.Int, payee ledger.Destination) error {
	return e.run("bond", func() error {
		current, err := e.currentEraOrZero()
		if err != nil {
			return err
		}
		bonded, err := e.ledgers.Bond(stash, controller, value, payee, current)
		if err != nil {
			return err
		}
		e.events.Emit(events.Bonded{Stash: stash, Amount: bonded})
		return nil
	})
}

// BondExtra locks up to maxAdditional of the stash's free balance on top
// of the existing bond.
func (e *Engine) BondExtra(stash vetrix.Address, maxAdditional *big.Int) error {
	return e.run("bond_extra", func() error {
		extra, err := e.ledgers.BondExtra(stash, maxAdditional)
		if err != nil {
			return err
		}
		if extra.Sign() > 0 {
			e.events.Emit(events.Bonded{Stash: stash, Amount: extra})
		}
		return nil
	})
}

// Unbond schedules up to value of the active stake for withdrawal after
// the bonding duration. A full withdrawal queue is first relieved by an
// implicit withdrawal of matured chunks.
func (e *Engine) Unbond(controller vetrix.Address, value *big.Int) error {
	return e.run("unbond", func() error {
		current, err := e.currentEraOrZero()
		if err != nil {
			return err
		}
		full, err := e.ledgers.UnlockingFull(controller)
		if err != nil {
			return err
		}
		if full {
			if err := e.withdraw(controller, current, true); err != nil {
				return err
			}
		}

		l, ok, err := e.ledgers.Get(controller)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrNotController
		}
		roleMin, err := e.roleMinimum(l.Stash)
		if err != nil {
			return err
		}
		amount, err := e.ledgers.Unbond(controller, value, roleMin, current)
		if err != nil {
			return err
		}
		if amount.Sign() > 0 {
			e.events.Emit(events.Unbonded{Stash: l.Stash, Amount: amount})
		}
		return nil
	})
}

// roleMinimum is the configured active-bond floor of the stash's role,
// nil when it neither validates nor cooperates.
func (e *Engine) roleMinimum(stash vetrix.Address) (*big.Int, error) {
	if ok, err := e.elections.IsValidator(stash); err != nil {
		return nil, err
	} else if ok {
		return e.configs.MinValidatorBond()
	}
	if ok, err := e.elections.IsCooperator(stash); err != nil {
		return nil, err
	} else if ok {
		return e.configs.MinCooperatorBond()
	}
	return nil, nil
}

// WithdrawUnbonded releases matured unlocking chunks. When nothing
// bonded remains the stash is destroyed; spanCount must then match the
// stash's recorded slashing spans exactly.
func (e *Engine) WithdrawUnbonded(controller vetrix.Address, spanCount uint32) error {
	return e.run("withdraw_unbonded", func() error {
		current, err := e.currentEraOrZero()
		if err != nil {
			return err
		}
		l, ok, err := e.ledgers.Get(controller)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrNotController
		}
		withdrawn, reap, err := e.ledgers.WithdrawUnbonded(controller, current)
		if err != nil {
			return err
		}
		if reap {
			if err := e.killStash(l.Stash, spanCount); err != nil {
				return err
			}
		}
		if withdrawn.Sign() > 0 {
			e.events.Emit(events.Withdrawn{Stash: l.Stash, Amount: withdrawn})
		}
		return nil
	})
}

// withdraw runs the implicit withdrawal used when the unlocking queue is
// full; actualSpans keys the reap path off the true span count.
func (e *Engine) withdraw(controller vetrix.Address, current uint32, actualSpans bool) error {
	l, ok, err := e.ledgers.Get(controller)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotController
	}
	withdrawn, reap, err := e.ledgers.WithdrawUnbonded(controller, current)
	if err != nil {
		return err
	}
	if reap && actualSpans {
		spans, err := e.slashes.SpanCountOf(l.Stash)
		if err != nil {
			return err
		}
		if err := e.killStash(l.Stash, spans); err != nil {
			return err
		}
	}
	if withdrawn.Sign() > 0 {
		e.events.Emit(events.Withdrawn{Stash: l.Stash, Amount: withdrawn})
	}
	return nil
}

// Rebond moves up to value from the newest unlocking chunks back into
// the active stake.
func (e *Engine) Rebond(controller vetrix.Address, value *big.Int) error {
	return e.run("rebond", func() error {
		moved, err := e.ledgers.Rebond(controller, value)
		if err != nil {
			return err
		}
		l, _, err := e.ledgers.Get(controller)
		if err != nil {
			return err
		}
		e.events.Emit(events.Bonded{Stash: l.Stash, Amount: moved})
		return nil
	})
}

// Validate declares the controller's stash a validator candidate.
func (e *Engine) Validate(controller vetrix.Address, prefs election.Prefs) error {
	return e.run("validate", func() error {
		stash, err := e.elections.Validate(controller, prefs)
		if err != nil {
			return err
		}
		e.events.Emit(events.ValidatorPrefsSet{Stash: stash, Commission: prefs.Commission})
		return nil
	})
}

// Cooperate declares the controller's stash a backer of the targets.
func (e *Engine) Cooperate(controller vetrix.Address, targets []election.CoopTarget) error {
	return e.run("cooperate", func() error {
		current, err := e.currentEraOrZero()
		if err != nil {
			return err
		}
		_, err = e.elections.Cooperate(controller, targets, current)
		return err
	})
}

// Chill retires the controller's stash from validating and cooperating.
func (e *Engine) Chill(controller vetrix.Address) error {
	return e.run("chill", func() error {
		l, ok, err := e.ledgers.Get(controller)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrNotController
		}
		changed, err := e.elections.Chill(l.Stash)
		if err != nil {
			return err
		}
		if changed {
			e.events.Emit(events.Chilled{Stash: l.Stash})
		}
		return nil
	})
}

// ChillOther chills a third-party staker; permissionless only while the
// chill threshold and the relevant capacity bound are configured.
func (e *Engine) ChillOther(controller vetrix.Address) error {
	return e.run("chill_other", func() error {
		stash, err := e.elections.ChillOther(controller)
		if err != nil {
			return err
		}
		e.events.Emit(events.Chilled{Stash: stash})
		return nil
	})
}

// SetPayee changes the reward destination of the controller's stash.
func (e *Engine) SetPayee(controller vetrix.Address, payee ledger.Destination) error {
	return e.run("set_payee", func() error {
		l, ok, err := e.ledgers.Get(controller)
		if err != nil {
			return err
		}
		if !ok {
			return reverts.ErrNotController
		}
		return e.ledgers.SetPayee(l.Stash, payee)
	})
}

// SetController re-pairs the stash with a new controller.
func (e *Engine) SetController(stash, controller vetrix.Address) error {
	return e.run("set_controller", func() error {
		return e.ledgers.SetController(stash, controller)
	})
}

// PayoutStakers pays the era reward of one elected validator and its
// recorded backers. Callable by anyone, effective once per era.
func (e *Engine) PayoutStakers(validator vetrix.Address, eraIndex uint32) error {
	return e.run("payout_stakers", func() error {
		e.events.Emit(events.PayoutStarted{Era: eraIndex, Validator: validator})
		payments, err := e.rewards.PayoutStakers(validator, eraIndex)
		if err != nil {
			return err
		}
		for _, p := range payments {
			e.events.Emit(events.Rewarded{Stash: p.Staker, Amount: p.Amount})
		}
		metricPayoutFanout().Add(int64(len(payments)))
		return nil
	})
}

// Kick removes the named backers from the controller's cooperator lists.
func (e *Engine) Kick(controller vetrix.Address, backers []vetrix.Address) error {
	return e.run("kick", func() error {
		stash, kicked, err := e.elections.Kick(controller, backers)
		if err != nil {
			return err
		}
		for _, b := range kicked {
			e.events.Emit(events.Kicked{Cooperator: b, Stash: stash})
		}
		return nil
	})
}

// ReapStash destroys a stash whose funds fell below the existential
// minimum, releasing its storage.
func (e *Engine) ReapStash(stash vetrix.Address, spanCount uint32) error {
	return e.run("reap_stash", func() error {
		current, err := e.currentEraOrZero()
		if err != nil {
			return err
		}
		reapable, err := e.ledgers.Reapable(stash, current)
		if err != nil {
			return err
		}
		if !reapable {
			return reverts.ErrFundedTarget
		}
		return e.killStash(stash, spanCount)
	})
}

// ForceUnstake destroys a stash unconditionally, admin-only.
func (e *Engine) ForceUnstake(stash vetrix.Address, spanCount uint32) error {
	return e.run("force_unstake", func() error {
		if _, ok, err := e.ledgers.ControllerOf(stash); err != nil {
			return err
		} else if !ok {
			return reverts.ErrNotStash
		}
		return e.killStash(stash, spanCount)
	})
}

// killStash erases every trace of the stash: slashing metadata first
// (guarded by the exact span count), then the ledger, then any role.
func (e *Engine) killStash(stash vetrix.Address, spanCount uint32) error {
	if err := e.slashes.ClearStashMetadata(stash, spanCount); err != nil {
		return err
	}
	if err := e.ledgers.Kill(stash); err != nil {
		return err
	}
	_, err := e.elections.Chill(stash)
	return err
}

// MakeCollaborative opens the stash's validator slot to backers.
func (e *Engine) MakeCollaborative(stash vetrix.Address) error {
	return e.run("make_collaborative", func() error {
		return e.elections.MakeCollaborative(stash)
	})
}

// ForceApplyMinCommission raises the stash's commission to the floor.
func (e *Engine) ForceApplyMinCommission(stash vetrix.Address) error {
	return e.run("force_apply_min_commission", func() error {
		prefs, err := e.elections.ForceApplyMinCommission(stash)
		if err != nil {
			return err
		}
		e.events.Emit(events.ValidatorPrefsSet{Stash: stash, Commission: prefs.Commission})
		return nil
	})
}

//
// Admin surface
//

// SetValidatorCount sets the election's target set size.
func (e *Engine) SetValidatorCount(count uint32) error {
	return e.run("set_validator_count", func() error {
		return e.elections.SetValidatorCount(count)
	})
}

// IncreaseValidatorCount grows the target set size by additional.
func (e *Engine) IncreaseValidatorCount(additional uint32) error {
	return e.run("increase_validator_count", func() error {
		count, err := e.elections.ValidatorCount()
		if err != nil {
			return err
		}
		return e.elections.SetValidatorCount(count + additional)
	})
}

// ScaleValidatorCount scales the target set size by the given factor.
func (e *Engine) ScaleValidatorCount(factor vetrix.Quintill) error {
	return e.run("scale_validator_count", func() error {
		count, err := e.elections.ValidatorCount()
		if err != nil {
			return err
		}
		scaled := factor.MulFloor(new(big.Int).SetUint64(uint64(count)))
		return e.elections.SetValidatorCount(uint32(scaled.Uint64()))
	})
}

// SetMinimumValidatorCount sets the floor below which elections abort.
func (e *Engine) SetMinimumValidatorCount(count uint32) error {
	return e.run("set_minimum_validator_count", func() error {
		return e.elections.SetMinimumValidatorCount(count)
	})
}

// SetInvulnerables replaces the set of slash-exempt validators.
func (e *Engine) SetInvulnerables(stashes []vetrix.Address) error {
	return e.run("set_invulnerables", func() error {
		return e.elections.SetInvulnerables(stashes)
	})
}

// ForceNoEras stops era rotation until a forcing change.
func (e *Engine) ForceNoEras() error {
	return e.setForcing("force_no_eras", era.ForceNone)
}

// ForceNewEra rotates the era at the next session, once.
func (e *Engine) ForceNewEra() error {
	return e.setForcing("force_new_era", era.ForceNew)
}

// ForceNewEraAlways rotates the era at every session.
func (e *Engine) ForceNewEraAlways() error {
	return e.setForcing("force_new_era_always", era.ForceAlways)
}

func (e *Engine) setForcing(op string, mode era.Forcing) error {
	return e.run(op, func() error {
		if err := e.eras.SetForcing(mode); err != nil {
			return err
		}
		e.events.Emit(events.ForceEra{Mode: mode.String()})
		return nil
	})
}

// CancelDeferredSlash drops the indexed pending slashes of the era.
func (e *Engine) CancelDeferredSlash(dueEra uint32, indices []uint32) error {
	return e.run("cancel_deferred_slash", func() error {
		return e.slashes.CancelDeferredSlash(dueEra, indices)
	})
}

// SetStakingConfigs applies a batch of config operations.
func (e *Engine) SetStakingConfigs(update configs.Update) error {
	return e.run("set_staking_configs", func() error {
		return e.configs.Apply(update)
	})
}

// SetMinCommission sets the global commission floor.
func (e *Engine) SetMinCommission(v vetrix.Quintill) error {
	return e.run("set_min_commission", func() error {
		return e.configs.SetMinCommission(v)
	})
}

// SetEraRewardRate sets the rate stamped onto eras that start afterwards.
// Already started eras keep their recorded rate.
func (e *Engine) SetEraRewardRate(v vetrix.Quintill) error {
	return e.run("set_era_reward_rate", func() error {
		return e.rewards.SetBaseRate(v)
	})
}
