// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards distributes era payouts. Payouts are pull-based: the
// rate is fixed when an era starts and anybody may later trigger the
// payout of an elected validator and its recorded backers, exactly once
// per (validator, era).
package rewards

import (
	"math/big"

	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/staking/account"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/era"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reputation"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

var logger = log.WithContext("pkg", "rewards")

// Payment is one realized reward disbursement.
type Payment struct {
	Staker vetrix.Address
	Amount *big.Int
}

// Service is the reward distributor.
type Service struct {
	rates    *state.Mapping[state.RawKey, vetrix.Quintill] // era → reward rate
	baseRate *state.Slot[vetrix.Quintill]

	ledgers    *ledger.Service
	elections  *election.Service
	eras       *era.Service
	accounts   *account.Service
	reputation *reputation.Service

	historyDepth uint32
}

// New creates the reward service over the given state.
func New(
	st *state.State,
	ledgers *ledger.Service,
	elections *election.Service,
	eras *era.Service,
	accounts *account.Service,
	rep *reputation.Service,
	historyDepth uint32,
) *Service {
	return &Service{
		rates:    state.NewMapping[state.RawKey, vetrix.Quintill](st, "rw-era-rate"),
		baseRate: state.NewSlot[vetrix.Quintill](st, "rw-base-rate"),

		ledgers:    ledgers,
		elections:  elections,
		eras:       eras,
		accounts:   accounts,
		reputation: rep,

		historyDepth: historyDepth,
	}
}

// BaseRate returns the rate stamped onto newly started eras.
func (s *Service) BaseRate() (vetrix.Quintill, error) {
	ok, err := s.baseRate.Has()
	if err != nil {
		return 0, err
	}
	if !ok {
		return vetrix.InitialEraRewardRate, nil
	}
	return s.baseRate.Get()
}

// SetBaseRate overwrites the base rate.
func (s *Service) SetBaseRate(rate vetrix.Quintill) error {
	return s.baseRate.Set(rate)
}

// RecordEraRate stamps the era with the current base rate. Called when
// the era becomes active; later base-rate changes do not affect it.
func (s *Service) RecordEraRate(eraIndex uint32) error {
	rate, err := s.BaseRate()
	if err != nil {
		return err
	}
	return s.rates.Set(state.U32Key(eraIndex), rate)
}

// EraRate returns the rate stamped onto the era.
func (s *Service) EraRate(eraIndex uint32) (vetrix.Quintill, bool, error) {
	key := state.U32Key(eraIndex)
	ok, err := s.rates.Has(key)
	if err != nil || !ok {
		return 0, false, err
	}
	rate, err := s.rates.Get(key)
	return rate, true, err
}

// PruneEra drops the rate of an era that left the history window.
func (s *Service) PruneEra(eraIndex uint32) {
	s.rates.Delete(state.U32Key(eraIndex))
}

// PayoutStakers pays the era reward of one elected validator and its
// clipped backers. Idempotent per (validator, era): the claim is
// committed before any transfer, so a second call fails AlreadyClaimed
// with no balance movement.
func (s *Service) PayoutStakers(validator vetrix.Address, eraIndex uint32) ([]Payment, error) {
	if active, ok, err := s.eras.ActiveEra(); err != nil {
		return nil, err
	} else if ok && active.Index == eraIndex {
		// still accumulating
		return nil, reverts.ErrInvalidEraToReward
	}
	current, ok, err := s.eras.CurrentEra()
	if err != nil {
		return nil, err
	}
	if !ok || eraIndex > current || eraIndex+s.historyDepth < current {
		return nil, reverts.ErrInvalidEraToReward
	}
	rate, ok, err := s.EraRate(eraIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrInvalidEraToReward
	}

	ctrl, ok, err := s.ledgers.ControllerOf(validator)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrNotStash
	}

	windowStart := uint32(0)
	if current > s.historyDepth {
		windowStart = current - s.historyDepth
	}
	// commit the claim first; no errors past this point
	if err := s.ledgers.MarkClaimed(ctrl, eraIndex, windowStart); err != nil {
		return nil, err
	}

	exposure, elected, err := s.elections.ClippedExposureOf(eraIndex, validator)
	if err != nil {
		return nil, err
	}
	if !elected || exposure.Total.Sign() == 0 {
		// not elected that era; the claim alone is recorded
		return nil, nil
	}

	totalPayout := rate.MulFloor(exposure.Total)
	if totalPayout.Sign() == 0 {
		return nil, nil
	}
	prefs, err := s.elections.EraPrefsOf(eraIndex, validator)
	if err != nil {
		return nil, err
	}
	commission := prefs.Commission.MulFloor(totalPayout)
	leftover := new(big.Int).Sub(totalPayout, commission)

	var payments []Payment
	pay := func(staker vetrix.Address, amount *big.Int) error {
		got, err := s.makePayout(staker, amount)
		if err != nil {
			return err
		}
		if got != nil && got.Sign() > 0 {
			payments = append(payments, Payment{Staker: staker, Amount: got})
		}
		return nil
	}

	validatorShare := new(big.Int).Mul(leftover, exposure.Own)
	validatorShare.Div(validatorShare, exposure.Total)
	validatorShare.Add(validatorShare, commission)
	if err := pay(validator, validatorShare); err != nil {
		return nil, err
	}
	for _, backer := range exposure.Others {
		share := new(big.Int).Mul(leftover, backer.Value)
		share.Div(share, exposure.Total)
		if err := pay(backer.Who, share); err != nil {
			return nil, err
		}
	}
	logger.Debug("era payout", "era", eraIndex, "validator", validator, "total", totalPayout, "payments", len(payments))
	return payments, nil
}

// makePayout disburses one staker's reward per its payee destination,
// granting the reputation-tier bonus on top. It returns the amount
// actually paid, nil when nothing was.
func (s *Service) makePayout(stash vetrix.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, nil
	}
	ctrl, ok, err := s.ledgers.ControllerOf(stash)
	if err != nil || !ok {
		// reaped since election; nothing to pay out to
		return nil, err
	}
	dest, err := s.ledgers.Payee(stash)
	if err != nil {
		return nil, err
	}

	score, err := s.reputation.ScoreOf(stash)
	if err != nil {
		return nil, err
	}
	paid := new(big.Int).Add(amount, reputation.TierOf(score).PayoutBonus().MulFloor(amount))

	switch dest.Kind {
	case ledger.DestStash:
		return paid, s.accounts.Deposit(stash, paid)
	case ledger.DestController:
		return paid, s.accounts.Deposit(ctrl, paid)
	case ledger.DestAccount:
		return paid, s.accounts.Deposit(dest.Account, paid)
	case ledger.DestStaked:
		if err := s.accounts.Deposit(stash, paid); err != nil {
			return nil, err
		}
		// re-enters the ledger's bond-extra path
		if _, err := s.ledgers.BondExtra(stash, paid); err != nil {
			return nil, err
		}
		return paid, nil
	default: // DestNone
		return nil, nil
	}
}
