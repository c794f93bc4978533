// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package configs is the keyed store of the mutable staking parameters.
// Each field is independently settable and removable; an unset field
// means the concern it guards is disabled.
package configs

import (
	"math/big"

	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

// OpKind selects what a config update does to one field.
type OpKind uint8

const (
	// OpNoop leaves the field untouched.
	OpNoop OpKind = iota
	// OpSet overwrites the field.
	OpSet
	// OpRemove unsets the field.
	OpRemove
)

// BalanceOp is an update of a balance-valued field.
type BalanceOp struct {
	Kind  OpKind
	Value *big.Int
}

// CountOp is an update of a count-valued field.
type CountOp struct {
	Kind  OpKind
	Value uint32
}

// QuintillOp is an update of a fraction-valued field.
type QuintillOp struct {
	Kind  OpKind
	Value vetrix.Quintill
}

// ScoreOp is an update of a reputation-score field.
type ScoreOp struct {
	Kind  OpKind
	Value uint64
}

// Update carries one op per mutable field.
type Update struct {
	MinCooperatorBond          BalanceOp
	MinValidatorBond           BalanceOp
	MaxCooperatorsCount        CountOp
	MaxValidatorsCount         CountOp
	ChillThreshold             QuintillOp
	MinCommission              QuintillOp
	MinValidatorReputation     ScoreOp
	MinCollaborativeReputation ScoreOp
}

// Service stores the mutable staking configuration.
type Service struct {
	minCooperatorBond          *state.Slot[big.Int]
	minValidatorBond           *state.Slot[big.Int]
	maxCooperatorsCount        *state.Slot[uint32]
	maxValidatorsCount         *state.Slot[uint32]
	chillThreshold             *state.Slot[vetrix.Quintill]
	minCommission              *state.Slot[vetrix.Quintill]
	minValidatorReputation     *state.Slot[uint64]
	minCollaborativeReputation *state.Slot[uint64]
	slashRewardFraction        *state.Slot[vetrix.Quintill]
}

// New creates the config service over the given state.
func New(st *state.State) *Service {
	return &Service{
		minCooperatorBond:          state.NewSlot[big.Int](st, "cfg-min-coop-bond"),
		minValidatorBond:           state.NewSlot[big.Int](st, "cfg-min-validator-bond"),
		maxCooperatorsCount:        state.NewSlot[uint32](st, "cfg-max-coop-count"),
		maxValidatorsCount:         state.NewSlot[uint32](st, "cfg-max-validator-count"),
		chillThreshold:             state.NewSlot[vetrix.Quintill](st, "cfg-chill-threshold"),
		minCommission:              state.NewSlot[vetrix.Quintill](st, "cfg-min-commission"),
		minValidatorReputation:     state.NewSlot[uint64](st, "cfg-min-validator-rep"),
		minCollaborativeReputation: state.NewSlot[uint64](st, "cfg-min-collab-rep"),
		slashRewardFraction:        state.NewSlot[vetrix.Quintill](st, "cfg-slash-reward"),
	}
}

// Apply executes one Update, field by field.
func (s *Service) Apply(u Update) error {
	if err := applyBalance(s.minCooperatorBond, u.MinCooperatorBond); err != nil {
		return err
	}
	if err := applyBalance(s.minValidatorBond, u.MinValidatorBond); err != nil {
		return err
	}
	if err := apply(s.maxCooperatorsCount, u.MaxCooperatorsCount.Kind, u.MaxCooperatorsCount.Value); err != nil {
		return err
	}
	if err := apply(s.maxValidatorsCount, u.MaxValidatorsCount.Kind, u.MaxValidatorsCount.Value); err != nil {
		return err
	}
	if err := apply(s.chillThreshold, u.ChillThreshold.Kind, u.ChillThreshold.Value); err != nil {
		return err
	}
	if err := apply(s.minCommission, u.MinCommission.Kind, u.MinCommission.Value); err != nil {
		return err
	}
	if err := apply(s.minValidatorReputation, u.MinValidatorReputation.Kind, u.MinValidatorReputation.Value); err != nil {
		return err
	}
	return apply(s.minCollaborativeReputation, u.MinCollaborativeReputation.Kind, u.MinCollaborativeReputation.Value)
}

func apply[V any](slot *state.Slot[V], kind OpKind, value V) error {
	switch kind {
	case OpSet:
		return slot.Set(value)
	case OpRemove:
		slot.Delete()
	}
	return nil
}

func applyBalance(slot *state.Slot[big.Int], op BalanceOp) error {
	switch op.Kind {
	case OpSet:
		return slot.Set(*op.Value)
	case OpRemove:
		slot.Delete()
	}
	return nil
}

// MinCooperatorBond returns the cooperator bond floor, zero when unset.
func (s *Service) MinCooperatorBond() (*big.Int, error) {
	return s.balance(s.minCooperatorBond)
}

// MinValidatorBond returns the validator bond floor, zero when unset.
func (s *Service) MinValidatorBond() (*big.Int, error) {
	return s.balance(s.minValidatorBond)
}

func (s *Service) balance(slot *state.Slot[big.Int]) (*big.Int, error) {
	ok, err := slot.Has()
	if err != nil || !ok {
		return new(big.Int), err
	}
	v, err := slot.Get()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// MaxCooperatorsCount returns the cooperator-set bound and whether it is set.
func (s *Service) MaxCooperatorsCount() (uint32, bool, error) {
	return value(s.maxCooperatorsCount)
}

// MaxValidatorsCount returns the validator-set bound and whether it is set.
func (s *Service) MaxValidatorsCount() (uint32, bool, error) {
	return value(s.maxValidatorsCount)
}

// ChillThreshold returns the occupancy fraction above which permissionless
// chilling opens up, and whether it is set.
func (s *Service) ChillThreshold() (vetrix.Quintill, bool, error) {
	return value(s.chillThreshold)
}

// MinCommission returns the commission floor, zero when unset.
func (s *Service) MinCommission() (vetrix.Quintill, error) {
	v, _, err := value(s.minCommission)
	return v, err
}

// SetMinCommission overwrites the commission floor.
func (s *Service) SetMinCommission(v vetrix.Quintill) error {
	return s.minCommission.Set(v)
}

// MinValidatorReputation returns the validator reputation gate, zero when unset.
func (s *Service) MinValidatorReputation() (uint64, error) {
	v, _, err := value(s.minValidatorReputation)
	return v, err
}

// MinCollaborativeReputation returns the collaborative-tier gate, zero when unset.
func (s *Service) MinCollaborativeReputation() (uint64, error) {
	v, _, err := value(s.minCollaborativeReputation)
	return v, err
}

// SlashRewardFraction returns the reporter cut of realized slashes.
func (s *Service) SlashRewardFraction() (vetrix.Quintill, error) {
	ok, err := s.slashRewardFraction.Has()
	if err != nil {
		return 0, err
	}
	if !ok {
		return vetrix.InitialSlashRewardFraction, nil
	}
	return s.slashRewardFraction.Get()
}

// SetSlashRewardFraction overwrites the reporter cut.
func (s *Service) SetSlashRewardFraction(v vetrix.Quintill) error {
	return s.slashRewardFraction.Set(v)
}

func value[V any](slot *state.Slot[V]) (v V, ok bool, err error) {
	ok, err = slot.Has()
	if err != nil || !ok {
		return v, ok, err
	}
	v, err = slot.Get()
	return v, true, err
}
