// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package account keeps the free balances and staking locks of the engine.
// A lock never exceeds the ledger total of its stash; it gates reaping and
// bounds bond amounts. Transfers between accounts are out of scope: funds
// enter via deposits (endowments, rewards) and leave via slashes (burns).
package account

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Service is the balance and lock accessor.
type Service struct {
	balances *state.Mapping[vetrix.Address, *big.Int]
	locks    *state.Mapping[vetrix.Address, *big.Int]
	sink     *state.Slot[vetrix.Address]
}

// New creates the account service over the given state.
func New(st *state.State) *Service {
	return &Service{
		balances: state.NewMapping[vetrix.Address, *big.Int](st, "acc-balance"),
		locks:    state.NewMapping[vetrix.Address, *big.Int](st, "acc-lock"),
		sink:     state.NewSlot[vetrix.Address](st, "acc-slash-sink"),
	}
}

// Balance returns the free balance of the given account.
func (s *Service) Balance(addr vetrix.Address) (*big.Int, error) {
	b, err := s.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	return b, nil
}

// Deposit credits the given account.
func (s *Service) Deposit(addr vetrix.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	b, err := s.balances.Get(addr)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	return s.balances.Set(addr, new(big.Int).Add(b, amount))
}

// LockOf returns the staking lock of the given account.
func (s *Service) LockOf(addr vetrix.Address) (*big.Int, error) {
	l, err := s.locks.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lock")
	}
	return l, nil
}

// SetLock places or replaces the exclusive staking lock.
func (s *Service) SetLock(addr vetrix.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		s.locks.Delete(addr)
		return nil
	}
	return s.locks.Set(addr, amount)
}

// RemoveLock releases the staking lock entirely.
func (s *Service) RemoveLock(addr vetrix.Address) {
	s.locks.Delete(addr)
}

// FreeToBond returns the portion of the free balance not yet covered by
// the staking lock, i.e. what a bond or bond-extra may still claim.
func (s *Service) FreeToBond(addr vetrix.Address) (*big.Int, error) {
	b, err := s.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	l, err := s.locks.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get lock")
	}
	free := new(big.Int).Sub(b, l)
	if free.Sign() < 0 {
		free.SetInt64(0)
	}
	return free, nil
}

// Burn debits the given account by up to amount, returning what was
// actually debited. Locks are untouched; the caller owns the lock and
// re-sets it to the remaining bonded total.
func (s *Service) Burn(addr vetrix.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), nil
	}
	b, err := s.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get balance")
	}
	burned := new(big.Int).Set(amount)
	if burned.Cmp(b) > 0 {
		burned.Set(b)
	}
	if err := s.balances.Set(addr, new(big.Int).Sub(b, burned)); err != nil {
		return nil, err
	}
	return burned, nil
}

// Sink returns the account receiving the non-reporter remainder of
// slashes. The zero address means "burn".
func (s *Service) Sink() (vetrix.Address, error) {
	return s.sink.Get()
}

// SetSink configures the slash sink account.
func (s *Service) SetSink(addr vetrix.Address) error {
	if addr.IsZero() {
		s.sink.Delete()
		return nil
	}
	return s.sink.Set(addr)
}

// DepositToSink credits the sink, or burns when no sink is configured.
func (s *Service) DepositToSink(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	sink, err := s.sink.Get()
	if err != nil {
		return err
	}
	if sink.IsZero() {
		return nil // burned
	}
	return s.Deposit(sink, amount)
}
