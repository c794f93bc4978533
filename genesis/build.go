// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/staking"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Build applies the genesis document to a fresh engine and bootstraps
// the first session. Stakers go through the live bond, validate and
// cooperate paths, so a document that would be rejected at runtime is
// rejected here too.
func (gen *CustomGenesis) Build(eng *staking.Engine) error {
	if gen.ValidatorCount > 0 {
		if err := eng.SetValidatorCount(gen.ValidatorCount); err != nil {
			return err
		}
	}
	if gen.MinimumValidatorCount > 0 {
		if err := eng.SetMinimumValidatorCount(gen.MinimumValidatorCount); err != nil {
			return err
		}
	}
	if gen.Configs != nil {
		if err := eng.SetStakingConfigs(gen.Configs.update()); err != nil {
			return err
		}
	}
	if gen.EraRewardRatePercent != nil {
		if err := eng.SetEraRewardRate(vetrix.QuintillFromPercent(*gen.EraRewardRatePercent)); err != nil {
			return err
		}
	}

	for _, a := range gen.Accounts {
		if a.Balance == nil {
			return errors.Errorf("%s: balance must be set", vetrix.Address(a.Address))
		}
		if a.Balance.Big().Sign() < 1 {
			return errors.Errorf("%s: balance must be a non-zero integer", vetrix.Address(a.Address))
		}
		if err := eng.Endow(vetrix.Address(a.Address), a.Balance.Big()); err != nil {
			return err
		}
	}

	for _, s := range gen.Stakers {
		if err := gen.buildStaker(eng, s); err != nil {
			return errors.WithMessagef(err, "staker %s", vetrix.Address(s.Stash))
		}
	}

	if len(gen.Invulnerables) > 0 {
		invulnerables := make([]vetrix.Address, 0, len(gen.Invulnerables))
		for _, a := range gen.Invulnerables {
			invulnerables = append(invulnerables, vetrix.Address(a))
		}
		if err := eng.SetInvulnerables(invulnerables); err != nil {
			return err
		}
	}

	// bootstrap: plan and start session 0 so the first era is elected
	// from the genesis stakers
	if _, err := eng.NewSession(0); err != nil {
		return err
	}
	return eng.StartSession(0)
}

func (gen *CustomGenesis) buildStaker(eng *staking.Engine, s Staker) error {
	if s.Bonded == nil || s.Bonded.Big().Sign() < 1 {
		return errors.New("bonded must be a non-zero integer")
	}
	if s.Validator != nil && len(s.Cooperator) > 0 {
		return errors.New("cannot be both validator and cooperator")
	}
	payee, err := ParsePayee(s.Payee)
	if err != nil {
		return err
	}

	controller := vetrix.Address(s.Controller)
	if err := eng.Bond(vetrix.Address(s.Stash), controller, s.Bonded.Big(), payee); err != nil {
		return err
	}

	switch {
	case s.Validator != nil:
		return eng.Validate(controller, election.Prefs{
			Commission:          vetrix.QuintillFromPercent(s.Validator.CommissionPercent),
			Collaborative:       s.Validator.Collaborative,
			MinBackerReputation: s.Validator.MinBackerReputation,
		})
	case len(s.Cooperator) > 0:
		targets := make([]election.CoopTarget, 0, len(s.Cooperator))
		for _, t := range s.Cooperator {
			if t.Amount == nil || t.Amount.Big().Sign() < 1 {
				return errors.New("cooperation amount must be a non-zero integer")
			}
			targets = append(targets, election.CoopTarget{
				Validator: vetrix.Address(t.Validator),
				Amount:    t.Amount.Big(),
			})
		}
		return eng.Cooperate(controller, targets)
	}
	return nil
}
