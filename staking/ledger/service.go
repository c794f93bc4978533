// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger implements the bonding ledger: per-controller record of
// staked funds and the time-locked withdrawal queue, with the injective
// stash↔controller pairing and the reward-destination registry.
package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/staking/account"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

var logger = log.WithContext("pkg", "ledger")

// Service is the bonding ledger service.
type Service struct {
	bonded  *state.Mapping[vetrix.Address, vetrix.Address] // stash → controller
	ledgers *state.Mapping[vetrix.Address, Ledger]         // controller → ledger
	payees  *state.Mapping[vetrix.Address, Destination]    // stash → destination

	accounts *account.Service

	bondingDuration    uint32
	historyDepth       uint32
	maxUnlockingChunks int
	existential        *big.Int
}

// New creates the ledger service.
func New(
	st *state.State,
	accounts *account.Service,
	bondingDuration uint32,
	historyDepth uint32,
	maxUnlockingChunks int,
	existential *big.Int,
) *Service {
	return &Service{
		bonded:   state.NewMapping[vetrix.Address, vetrix.Address](st, "ldg-bonded"),
		ledgers:  state.NewMapping[vetrix.Address, Ledger](st, "ldg-ledger"),
		payees:   state.NewMapping[vetrix.Address, Destination](st, "ldg-payee"),
		accounts: accounts,

		bondingDuration:    bondingDuration,
		historyDepth:       historyDepth,
		maxUnlockingChunks: maxUnlockingChunks,
		existential:        existential,
	}
}

// ControllerOf returns the controller paired with the stash.
func (s *Service) ControllerOf(stash vetrix.Address) (vetrix.Address, bool, error) {
	ok, err := s.bonded.Has(stash)
	if err != nil || !ok {
		return vetrix.Address{}, false, err
	}
	ctrl, err := s.bonded.Get(stash)
	return ctrl, true, err
}

// Get returns the ledger held by the controller.
func (s *Service) Get(controller vetrix.Address) (*Ledger, bool, error) {
	ok, err := s.ledgers.Has(controller)
	if err != nil || !ok {
		return nil, false, err
	}
	l, err := s.ledgers.Get(controller)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get ledger")
	}
	return &l, true, nil
}

// GetByStash resolves the ledger through the bonded pairing.
func (s *Service) GetByStash(stash vetrix.Address) (*Ledger, vetrix.Address, error) {
	ctrl, ok, err := s.ControllerOf(stash)
	if err != nil {
		return nil, vetrix.Address{}, err
	}
	if !ok {
		return nil, vetrix.Address{}, reverts.ErrNotStash
	}
	l, ok, err := s.Get(ctrl)
	if err != nil {
		return nil, vetrix.Address{}, err
	}
	if !ok {
		return nil, vetrix.Address{}, reverts.ErrBadState
	}
	return l, ctrl, nil
}

// update persists the ledger and refreshes the stash's exclusive lock.
func (s *Service) update(controller vetrix.Address, l *Ledger) error {
	if err := s.ledgers.Set(controller, *l); err != nil {
		return errors.Wrap(err, "failed to set ledger")
	}
	return s.accounts.SetLock(l.Stash, l.Total)
}

// Payee returns the reward destination of the stash.
func (s *Service) Payee(stash vetrix.Address) (Destination, error) {
	return s.payees.Get(stash)
}

// SetPayee updates the reward destination of the stash.
func (s *Service) SetPayee(stash vetrix.Address, dest Destination) error {
	return s.payees.Set(stash, dest)
}

// Bond creates the stash↔controller pairing and a fresh ledger, staking
// min(value, free balance). Eras preceding the bond are pre-marked
// claimed: they predate the ledger and must never become payable.
func (s *Service) Bond(stash, controller vetrix.Address, value *big.Int, dest Destination, currentEra uint32) (*big.Int, error) {
	if ok, err := s.bonded.Has(stash); err != nil {
		return nil, err
	} else if ok {
		return nil, reverts.ErrAlreadyBonded
	}
	if ok, err := s.ledgers.Has(controller); err != nil {
		return nil, err
	} else if ok {
		return nil, reverts.ErrAlreadyPaired
	}
	if value.Cmp(s.existential) < 0 {
		return nil, reverts.ErrInsufficientBond
	}

	free, err := s.accounts.Balance(stash)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Set(value)
	if amount.Cmp(free) > 0 {
		amount.Set(free)
	}
	if amount.Cmp(s.existential) < 0 {
		return nil, reverts.ErrInsufficientBond
	}

	l := newLedger(stash)
	l.Total.Set(amount)
	l.Active.Set(amount)
	windowStart := uint32(0)
	if currentEra > s.historyDepth {
		windowStart = currentEra - s.historyDepth
	}
	for era := windowStart; era < currentEra; era++ {
		l.ClaimedRewards = append(l.ClaimedRewards, era)
	}

	if err := s.bonded.Set(stash, controller); err != nil {
		return nil, err
	}
	if err := s.payees.Set(stash, dest); err != nil {
		return nil, err
	}
	if err := s.update(controller, l); err != nil {
		return nil, err
	}
	logger.Debug("bonded", "stash", stash, "controller", controller, "amount", amount)
	return amount, nil
}

// BondExtra stakes up to maxAdditional from the stash's unlocked balance.
func (s *Service) BondExtra(stash vetrix.Address, maxAdditional *big.Int) (*big.Int, error) {
	l, ctrl, err := s.GetByStash(stash)
	if err != nil {
		return nil, err
	}
	free, err := s.accounts.FreeToBond(stash)
	if err != nil {
		return nil, err
	}
	extra := new(big.Int).Set(maxAdditional)
	if extra.Cmp(free) > 0 {
		extra.Set(free)
	}
	if extra.Sign() <= 0 {
		return new(big.Int), nil
	}
	l.Active.Add(l.Active, extra)
	l.Total.Add(l.Total, extra)
	if l.Active.Cmp(s.existential) < 0 {
		return nil, reverts.ErrInsufficientBond
	}
	if err := s.update(ctrl, l); err != nil {
		return nil, err
	}
	return extra, nil
}

// UnlockingFull reports whether the controller's withdrawal queue is at
// capacity.
func (s *Service) UnlockingFull(controller vetrix.Address) (bool, error) {
	l, ok, err := s.Get(controller)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, reverts.ErrNotController
	}
	return len(l.Unlocking) >= s.maxUnlockingChunks, nil
}

// Unbond schedules up to value of the active stake for withdrawal at
// currentEra + BondingDuration. roleMin is the active-bond floor of the
// stash's current role; dropping below it requires chilling first.
func (s *Service) Unbond(controller vetrix.Address, value, roleMin *big.Int, currentEra uint32) (*big.Int, error) {
	l, ok, err := s.Get(controller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrNotController
	}
	if len(l.Unlocking) >= s.maxUnlockingChunks {
		return nil, reverts.ErrNoMoreChunks
	}

	amount := new(big.Int).Set(value)
	if amount.Cmp(l.Active) > 0 {
		amount.Set(l.Active)
	}
	if amount.Sign() <= 0 {
		return new(big.Int), nil
	}

	l.Active = new(big.Int).Sub(l.Active, amount)
	if l.Active.Cmp(s.existential) < 0 {
		// sweep the dust into the unbonding amount
		amount.Add(amount, l.Active)
		l.Active = new(big.Int)
	}
	if roleMin != nil && l.Active.Cmp(roleMin) < 0 {
		return nil, reverts.ErrInsufficientBond
	}

	era := currentEra + s.bondingDuration
	if n := len(l.Unlocking); n > 0 && l.Unlocking[n-1].Era == era {
		// at most one chunk per era
		l.Unlocking[n-1].Value = new(big.Int).Add(l.Unlocking[n-1].Value, amount)
	} else {
		l.Unlocking = append(l.Unlocking, UnlockChunk{Value: new(big.Int).Set(amount), Era: era})
	}
	if err := s.update(controller, l); err != nil {
		return nil, err
	}
	logger.Debug("unbonded", "stash", l.Stash, "amount", amount, "unlockEra", era)
	return amount, nil
}

// WithdrawUnbonded consolidates matured chunks, reducing Total. It
// returns the freed amount and whether the ledger is now reapable (no
// unlocking left and active below the existential minimum).
func (s *Service) WithdrawUnbonded(controller vetrix.Address, currentEra uint32) (*big.Int, bool, error) {
	l, ok, err := s.Get(controller)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, reverts.ErrNotController
	}
	oldTotal := new(big.Int).Set(l.Total)
	l.consolidate(currentEra)
	withdrawn := new(big.Int).Sub(oldTotal, l.Total)

	if len(l.Unlocking) == 0 && l.Active.Cmp(s.existential) < 0 {
		// the caller must reap the stash; nothing persisted here
		return withdrawn, true, nil
	}
	if err := s.update(controller, l); err != nil {
		return nil, false, err
	}
	return withdrawn, false, nil
}

// Rebond moves up to value from the newest unlocking chunks back into
// the active stake.
func (s *Service) Rebond(controller vetrix.Address, value *big.Int) (*big.Int, error) {
	l, ok, err := s.Get(controller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrNotController
	}
	if len(l.Unlocking) == 0 {
		return nil, reverts.ErrNoUnlockChunk
	}
	moved := l.rebond(value)
	if l.Active.Cmp(s.existential) < 0 {
		return nil, reverts.ErrInsufficientBond
	}
	if err := s.update(controller, l); err != nil {
		return nil, err
	}
	return moved, nil
}

// SetController re-pairs the stash with a new controller, moving the
// ledger. The injective pairing is preserved.
func (s *Service) SetController(stash, newController vetrix.Address) error {
	old, ok, err := s.ControllerOf(stash)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotStash
	}
	if old == newController {
		return nil
	}
	if ok, err := s.ledgers.Has(newController); err != nil {
		return err
	} else if ok {
		return reverts.ErrAlreadyPaired
	}
	l, ok, err := s.Get(old)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrBadState
	}
	s.ledgers.Delete(old)
	if err := s.ledgers.Set(newController, *l); err != nil {
		return err
	}
	return s.bonded.Set(stash, newController)
}

// SlashStake debits up to amount from the ledger per the bonding-window
// rules, refreshes the lock and burns the realized amount from the
// stash's balance. It returns the realized debit.
func (s *Service) SlashStake(controller vetrix.Address, amount *big.Int, slashEra uint32) (*big.Int, error) {
	l, ok, err := s.Get(controller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	realized := l.slash(amount, s.existential, slashEra+s.bondingDuration)
	if realized.Sign() == 0 {
		return realized, nil
	}
	if err := s.update(controller, l); err != nil {
		return nil, err
	}
	if _, err := s.accounts.Burn(l.Stash, realized); err != nil {
		return nil, err
	}
	logger.Debug("slashed stake", "stash", l.Stash, "requested", amount, "realized", realized)
	return realized, nil
}

// MarkClaimed records era as paid out for the stash's ledger once;
// a repeated claim fails AlreadyClaimed.
func (s *Service) MarkClaimed(controller vetrix.Address, era, windowStart uint32) error {
	l, ok, err := s.Get(controller)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotController
	}
	if !l.markClaimed(era, windowStart) {
		return reverts.ErrAlreadyClaimed
	}
	return s.update(controller, l)
}

// Reapable reports whether the stash may be reaped: its ledger total,
// after consolidating chunks matured by currentEra, fell below the
// existential minimum. The persisted total may be stale since a fully
// withdrawn ledger is left for the reaper.
func (s *Service) Reapable(stash vetrix.Address, currentEra uint32) (bool, error) {
	ctrl, ok, err := s.ControllerOf(stash)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, reverts.ErrNotStash
	}
	l, ok, err := s.Get(ctrl)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	l.consolidate(currentEra)
	return l.Total.Cmp(s.existential) < 0, nil
}

// Kill removes the pairing, ledger, payee and lock of the stash.
// Role records and slashing metadata are cleared by the caller.
func (s *Service) Kill(stash vetrix.Address) error {
	ctrl, ok, err := s.ControllerOf(stash)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotStash
	}
	s.bonded.Delete(stash)
	s.ledgers.Delete(ctrl)
	s.payees.Delete(stash)
	s.accounts.RemoveLock(stash)
	logger.Debug("killed stash", "stash", stash)
	return nil
}
