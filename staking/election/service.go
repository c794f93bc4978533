// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package election keeps the validator and cooperator role records and
// builds the per-era stake exposures the selector ranks.
package election

import (
	"bytes"
	"math/big"
	"sort"

	lru "github.com/hashicorp/golang-lru"

	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reputation"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

var logger = log.WithContext("pkg", "election")

const exposureCacheSize = 512

// Service keeps role records and era election results.
type Service struct {
	validators  *state.Mapping[vetrix.Address, Prefs]        // stash → prefs
	cooperators *state.Mapping[vetrix.Address, Cooperations] // stash → targets

	// reverse index: validator ‖ backer → declared amount
	collaborations *state.Mapping[state.RawKey, *big.Int]
	backerCounts   *state.Mapping[vetrix.Address, uint32]

	validatorTally  *state.Slot[uint32]
	cooperatorTally *state.Slot[uint32]

	// era-keyed election results, era ‖ validator
	eraStakers    *state.Mapping[state.RawKey, Exposure]
	eraClipped    *state.Mapping[state.RawKey, Exposure]
	eraPrefs      *state.Mapping[state.RawKey, Prefs]
	eraTotalStake *state.Mapping[state.RawKey, *big.Int]
	eraElected    *state.Mapping[state.RawKey, []vetrix.Address]

	validatorCount    *state.Slot[uint32]
	minimumValidators *state.Slot[uint32]
	invulnerables     *state.Slot[[]vetrix.Address]

	ledgers    *ledger.Service
	reputation *reputation.Service
	configs    *configs.Service

	exposures *lru.Cache // (era, validator) → clipped Exposure
}

// New creates the election service over the given state.
func New(st *state.State, ledgers *ledger.Service, rep *reputation.Service, cfg *configs.Service) *Service {
	cache, _ := lru.New(exposureCacheSize)
	return &Service{
		validators:     state.NewMapping[vetrix.Address, Prefs](st, "el-validator"),
		cooperators:    state.NewMapping[vetrix.Address, Cooperations](st, "el-cooperator"),
		collaborations: state.NewMapping[state.RawKey, *big.Int](st, "el-collab"),
		backerCounts:   state.NewMapping[vetrix.Address, uint32](st, "el-backer-count"),

		validatorTally:  state.NewSlot[uint32](st, "el-validator-tally"),
		cooperatorTally: state.NewSlot[uint32](st, "el-cooperator-tally"),

		eraStakers:    state.NewMapping[state.RawKey, Exposure](st, "el-era-stakers"),
		eraClipped:    state.NewMapping[state.RawKey, Exposure](st, "el-era-clipped"),
		eraPrefs:      state.NewMapping[state.RawKey, Prefs](st, "el-era-prefs"),
		eraTotalStake: state.NewMapping[state.RawKey, *big.Int](st, "el-era-total"),
		eraElected:    state.NewMapping[state.RawKey, []vetrix.Address](st, "el-era-elected"),

		validatorCount:    state.NewSlot[uint32](st, "el-validator-count"),
		minimumValidators: state.NewSlot[uint32](st, "el-minimum-validators"),
		invulnerables:     state.NewSlot[[]vetrix.Address](st, "el-invulnerables"),

		ledgers:    ledgers,
		reputation: rep,
		configs:    cfg,
		exposures:  cache,
	}
}

func collabKey(validator, backer vetrix.Address) state.RawKey {
	return state.CompositeKey(validator.Bytes(), backer.Bytes())
}

// IsValidator reports whether the stash holds a validator record.
func (s *Service) IsValidator(stash vetrix.Address) (bool, error) {
	return s.validators.Has(stash)
}

// PrefsOf returns the current preferences of a validator stash.
func (s *Service) PrefsOf(stash vetrix.Address) (Prefs, bool, error) {
	ok, err := s.validators.Has(stash)
	if err != nil || !ok {
		return Prefs{}, false, err
	}
	prefs, err := s.validators.Get(stash)
	return prefs, true, err
}

// IsCooperator reports whether the stash holds a cooperator record.
func (s *Service) IsCooperator(stash vetrix.Address) (bool, error) {
	return s.cooperators.Has(stash)
}

// CooperationsOf returns the declared target set of a backer stash.
func (s *Service) CooperationsOf(stash vetrix.Address) (Cooperations, bool, error) {
	ok, err := s.cooperators.Has(stash)
	if err != nil || !ok {
		return Cooperations{}, false, err
	}
	coop, err := s.cooperators.Get(stash)
	return coop, true, err
}

// Validate registers the controller's stash as a validator candidate.
// Any cooperator role of the stash is dropped.
func (s *Service) Validate(controller vetrix.Address, prefs Prefs) (vetrix.Address, error) {
	l, ok, err := s.ledgers.Get(controller)
	if err != nil {
		return vetrix.Address{}, err
	}
	if !ok {
		return vetrix.Address{}, reverts.ErrNotController
	}
	stash := l.Stash

	minBond, err := s.configs.MinValidatorBond()
	if err != nil {
		return vetrix.Address{}, err
	}
	if l.Active.Cmp(minBond) < 0 {
		return vetrix.Address{}, reverts.ErrInsufficientBond
	}

	score, err := s.reputation.ScoreOf(stash)
	if err != nil {
		return vetrix.Address{}, err
	}
	minRep, err := s.configs.MinValidatorReputation()
	if err != nil {
		return vetrix.Address{}, err
	}
	if score < minRep {
		return vetrix.Address{}, reverts.ErrReputationTooLow
	}

	minCommission, err := s.configs.MinCommission()
	if err != nil {
		return vetrix.Address{}, err
	}
	if prefs.Commission < minCommission {
		return vetrix.Address{}, reverts.ErrCommissionTooLow
	}

	if prefs.Collaborative {
		minCollab, err := s.configs.MinCollaborativeReputation()
		if err != nil {
			return vetrix.Address{}, err
		}
		if score < minCollab {
			return vetrix.Address{}, reverts.ErrReputationTooLow
		}
	}

	existing, wasValidator, err := s.PrefsOf(stash)
	if err != nil {
		return vetrix.Address{}, err
	}
	if !wasValidator {
		max, bounded, err := s.configs.MaxValidatorsCount()
		if err != nil {
			return vetrix.Address{}, err
		}
		tally, err := s.validatorTally.Get()
		if err != nil {
			return vetrix.Address{}, err
		}
		if bounded && tally >= max {
			return vetrix.Address{}, reverts.ErrTooManyValidators
		}
		if err := s.validatorTally.Set(tally + 1); err != nil {
			return vetrix.Address{}, err
		}
	} else if existing.Collaborative && !prefs.Collaborative {
		// closing the validator drops its backer set
		if err := s.dropBackersOf(stash); err != nil {
			return vetrix.Address{}, err
		}
	}

	if _, err := s.removeCooperator(stash); err != nil {
		return vetrix.Address{}, err
	}
	if err := s.validators.Set(stash, prefs); err != nil {
		return vetrix.Address{}, err
	}
	logger.Debug("validator declared", "stash", stash, "commission", prefs.Commission)
	return stash, nil
}

// Cooperate registers the controller's stash as a backer of the given
// targets, replacing any previous declaration.
func (s *Service) Cooperate(controller vetrix.Address, targets []CoopTarget, currentEra uint32) (vetrix.Address, error) {
	l, ok, err := s.ledgers.Get(controller)
	if err != nil {
		return vetrix.Address{}, err
	}
	if !ok {
		return vetrix.Address{}, reverts.ErrNotController
	}
	stash := l.Stash

	if len(targets) == 0 {
		return vetrix.Address{}, reverts.ErrEmptyTargets
	}
	if len(targets) > vetrix.MaxCooperations {
		return vetrix.Address{}, reverts.ErrTooManyTargets
	}

	minBond, err := s.configs.MinCooperatorBond()
	if err != nil {
		return vetrix.Address{}, err
	}
	declared := new(big.Int)
	seen := make(map[vetrix.Address]bool, len(targets))
	for _, t := range targets {
		if seen[t.Validator] || t.Amount == nil || t.Amount.Sign() <= 0 {
			return vetrix.Address{}, reverts.ErrBadTarget
		}
		seen[t.Validator] = true
		declared.Add(declared, t.Amount)
	}
	if l.Active.Cmp(minBond) < 0 || l.Active.Cmp(declared) < 0 {
		return vetrix.Address{}, reverts.ErrInsufficientBond
	}

	score, err := s.reputation.ScoreOf(stash)
	if err != nil {
		return vetrix.Address{}, err
	}
	for _, t := range targets {
		prefs, ok, err := s.PrefsOf(t.Validator)
		if err != nil {
			return vetrix.Address{}, err
		}
		if !ok || !prefs.Collaborative {
			return vetrix.Address{}, reverts.ErrBadTarget
		}
		if score < prefs.MinBackerReputation {
			return vetrix.Address{}, reverts.ErrReputationTooLow
		}
	}

	wasCooperator, err := s.cooperators.Has(stash)
	if err != nil {
		return vetrix.Address{}, err
	}
	if !wasCooperator {
		max, bounded, err := s.configs.MaxCooperatorsCount()
		if err != nil {
			return vetrix.Address{}, err
		}
		tally, err := s.cooperatorTally.Get()
		if err != nil {
			return vetrix.Address{}, err
		}
		if bounded && tally >= max {
			return vetrix.Address{}, reverts.ErrTooManyCooperators
		}
		if err := s.cooperatorTally.Set(tally + 1); err != nil {
			return vetrix.Address{}, err
		}
	} else if err := s.dropCollaborationsOf(stash); err != nil {
		return vetrix.Address{}, err
	}

	for _, t := range targets {
		count, err := s.backerCounts.Get(t.Validator)
		if err != nil {
			return vetrix.Address{}, err
		}
		if count >= vetrix.MaxBackersPerValidator {
			return vetrix.Address{}, reverts.ErrTooManyCooperators
		}
		if err := s.backerCounts.Set(t.Validator, count+1); err != nil {
			return vetrix.Address{}, err
		}
		if err := s.collaborations.Set(collabKey(t.Validator, stash), t.Amount); err != nil {
			return vetrix.Address{}, err
		}
	}

	coop := Cooperations{Targets: targets, SubmittedIn: currentEra}
	if err := s.cooperators.Set(stash, coop); err != nil {
		return vetrix.Address{}, err
	}
	logger.Debug("cooperations declared", "stash", stash, "targets", len(targets))
	return stash, nil
}

// Chill drops every role of the stash. It reports whether anything was
// removed.
func (s *Service) Chill(stash vetrix.Address) (bool, error) {
	wasValidator, err := s.removeValidator(stash)
	if err != nil {
		return false, err
	}
	wasCooperator, err := s.removeCooperator(stash)
	if err != nil {
		return false, err
	}
	return wasValidator || wasCooperator, nil
}

// ChillOther chills somebody else's stash. Open only while a chill
// threshold is configured, the role's population bound is set and
// exceeded pro-rata, and the target sits below the role's bond floor.
func (s *Service) ChillOther(controller vetrix.Address) (vetrix.Address, error) {
	l, ok, err := s.ledgers.Get(controller)
	if err != nil {
		return vetrix.Address{}, err
	}
	if !ok {
		return vetrix.Address{}, reverts.ErrNotController
	}
	stash := l.Stash

	threshold, set, err := s.configs.ChillThreshold()
	if err != nil {
		return vetrix.Address{}, err
	}
	if !set {
		return vetrix.Address{}, reverts.ErrCannotChillOther
	}

	isCooperator, err := s.cooperators.Has(stash)
	if err != nil {
		return vetrix.Address{}, err
	}
	isValidator, err := s.validators.Has(stash)
	if err != nil {
		return vetrix.Address{}, err
	}

	var (
		max     uint32
		bounded bool
		tally   uint32
		minBond *big.Int
	)
	switch {
	case isCooperator:
		if max, bounded, err = s.configs.MaxCooperatorsCount(); err != nil {
			return vetrix.Address{}, err
		}
		if tally, err = s.cooperatorTally.Get(); err != nil {
			return vetrix.Address{}, err
		}
		if minBond, err = s.configs.MinCooperatorBond(); err != nil {
			return vetrix.Address{}, err
		}
	case isValidator:
		if max, bounded, err = s.configs.MaxValidatorsCount(); err != nil {
			return vetrix.Address{}, err
		}
		if tally, err = s.validatorTally.Get(); err != nil {
			return vetrix.Address{}, err
		}
		if minBond, err = s.configs.MinValidatorBond(); err != nil {
			return vetrix.Address{}, err
		}
	default:
		return vetrix.Address{}, reverts.ErrCannotChillOther
	}

	if !bounded {
		return vetrix.Address{}, reverts.ErrCannotChillOther
	}
	floor := threshold.MulFloor(new(big.Int).SetUint64(uint64(max)))
	if new(big.Int).SetUint64(uint64(tally)).Cmp(floor) < 0 {
		return vetrix.Address{}, reverts.ErrCannotChillOther
	}
	if l.Active.Cmp(minBond) >= 0 {
		return vetrix.Address{}, reverts.ErrCannotChillOther
	}

	if _, err := s.Chill(stash); err != nil {
		return vetrix.Address{}, err
	}
	return stash, nil
}

// Kick removes the named backers from the caller validator's own backer
// set, returning the backers actually removed.
func (s *Service) Kick(controller vetrix.Address, backers []vetrix.Address) (vetrix.Address, []vetrix.Address, error) {
	l, ok, err := s.ledgers.Get(controller)
	if err != nil {
		return vetrix.Address{}, nil, err
	}
	if !ok {
		return vetrix.Address{}, nil, reverts.ErrNotController
	}
	stash := l.Stash

	var kicked []vetrix.Address
	for _, backer := range backers {
		coop, ok, err := s.CooperationsOf(backer)
		if err != nil {
			return vetrix.Address{}, nil, err
		}
		if !ok {
			continue
		}
		kept := coop.Targets[:0]
		for _, t := range coop.Targets {
			if t.Validator != stash {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(coop.Targets) {
			continue
		}
		coop.Targets = kept
		s.collaborations.Delete(collabKey(stash, backer))
		if err := s.decBackerCount(stash); err != nil {
			return vetrix.Address{}, nil, err
		}
		if len(coop.Targets) == 0 {
			if _, err := s.removeCooperator(backer); err != nil {
				return vetrix.Address{}, nil, err
			}
		} else if err := s.cooperators.Set(backer, coop); err != nil {
			return vetrix.Address{}, nil, err
		}
		kicked = append(kicked, backer)
	}
	return stash, kicked, nil
}

// MakeCollaborative opens an existing validator to backers, gated by the
// collaborative reputation tier.
func (s *Service) MakeCollaborative(stash vetrix.Address) error {
	prefs, ok, err := s.PrefsOf(stash)
	if err != nil {
		return err
	}
	if !ok {
		return reverts.ErrNotStash
	}
	if prefs.Collaborative {
		return nil
	}
	score, err := s.reputation.ScoreOf(stash)
	if err != nil {
		return err
	}
	minCollab, err := s.configs.MinCollaborativeReputation()
	if err != nil {
		return err
	}
	if score < minCollab {
		return reverts.ErrReputationTooLow
	}
	prefs.Collaborative = true
	return s.validators.Set(stash, prefs)
}

// ForceApplyMinCommission raises the validator's commission to the
// configured floor when it sits below it.
func (s *Service) ForceApplyMinCommission(stash vetrix.Address) (Prefs, error) {
	prefs, ok, err := s.PrefsOf(stash)
	if err != nil {
		return Prefs{}, err
	}
	if !ok {
		return Prefs{}, reverts.ErrNotStash
	}
	minCommission, err := s.configs.MinCommission()
	if err != nil {
		return Prefs{}, err
	}
	if prefs.Commission >= minCommission {
		return prefs, nil
	}
	prefs.Commission = minCommission
	if err := s.validators.Set(stash, prefs); err != nil {
		return Prefs{}, err
	}
	return prefs, nil
}

// removeValidator drops the validator record and its backer set.
func (s *Service) removeValidator(stash vetrix.Address) (bool, error) {
	ok, err := s.validators.Has(stash)
	if err != nil || !ok {
		return false, err
	}
	if err := s.dropBackersOf(stash); err != nil {
		return false, err
	}
	s.validators.Delete(stash)
	tally, err := s.validatorTally.Get()
	if err != nil {
		return false, err
	}
	if tally > 0 {
		if err := s.validatorTally.Set(tally - 1); err != nil {
			return false, err
		}
	}
	return true, nil
}

// removeCooperator drops the cooperator record and its reverse entries.
func (s *Service) removeCooperator(stash vetrix.Address) (bool, error) {
	ok, err := s.cooperators.Has(stash)
	if err != nil || !ok {
		return false, err
	}
	if err := s.dropCollaborationsOf(stash); err != nil {
		return false, err
	}
	s.cooperators.Delete(stash)
	tally, err := s.cooperatorTally.Get()
	if err != nil {
		return false, err
	}
	if tally > 0 {
		if err := s.cooperatorTally.Set(tally - 1); err != nil {
			return false, err
		}
	}
	return true, nil
}

// dropCollaborationsOf removes the backer's reverse-index entries.
func (s *Service) dropCollaborationsOf(backer vetrix.Address) error {
	coop, ok, err := s.CooperationsOf(backer)
	if err != nil || !ok {
		return err
	}
	for _, t := range coop.Targets {
		has, err := s.collaborations.Has(collabKey(t.Validator, backer))
		if err != nil {
			return err
		}
		if !has {
			continue
		}
		s.collaborations.Delete(collabKey(t.Validator, backer))
		if err := s.decBackerCount(t.Validator); err != nil {
			return err
		}
	}
	return nil
}

// dropBackersOf removes every reverse-index entry pointing at the validator.
func (s *Service) dropBackersOf(validator vetrix.Address) error {
	if _, err := s.collaborations.DeletePrefix(validator.Bytes()); err != nil {
		return err
	}
	s.backerCounts.Delete(validator)
	return nil
}

func (s *Service) decBackerCount(validator vetrix.Address) error {
	count, err := s.backerCounts.Get(validator)
	if err != nil {
		return err
	}
	switch count {
	case 0:
	case 1:
		s.backerCounts.Delete(validator)
	default:
		return s.backerCounts.Set(validator, count-1)
	}
	return nil
}

// ValidatorCount returns the target size of the elected set.
func (s *Service) ValidatorCount() (uint32, error) {
	return s.validatorCount.Get()
}

// SetValidatorCount overwrites the target size of the elected set.
func (s *Service) SetValidatorCount(count uint32) error {
	return s.validatorCount.Set(count)
}

// MinimumValidatorCount returns the floor below which elections abort.
func (s *Service) MinimumValidatorCount() (uint32, error) {
	ok, err := s.minimumValidators.Has()
	if err != nil {
		return 0, err
	}
	if !ok {
		return vetrix.MinimumValidatorCount, nil
	}
	return s.minimumValidators.Get()
}

// SetMinimumValidatorCount overwrites the election floor.
func (s *Service) SetMinimumValidatorCount(count uint32) error {
	return s.minimumValidators.Set(count)
}

// Invulnerables returns the accounts ranked ahead of stake order and
// exempt from slashing.
func (s *Service) Invulnerables() ([]vetrix.Address, error) {
	return s.invulnerables.Get()
}

// SetInvulnerables overwrites the invulnerable set.
func (s *Service) SetInvulnerables(addrs []vetrix.Address) error {
	return s.invulnerables.Set(addrs)
}

// IsInvulnerable reports whether the stash is in the invulnerable set.
func (s *Service) IsInvulnerable(stash vetrix.Address) (bool, error) {
	addrs, err := s.invulnerables.Get()
	if err != nil {
		return false, err
	}
	for _, a := range addrs {
		if a == stash {
			return true, nil
		}
	}
	return false, nil
}

func addrFromKey(key []byte) vetrix.Address {
	var a vetrix.Address
	copy(a[:], key)
	return a
}

func sortExposuresDesc(others []IndividualExposure) {
	// value desc, address asc on ties keeps clipping deterministic
	sort.Slice(others, func(i, j int) bool {
		c := others[i].Value.Cmp(others[j].Value)
		if c != 0 {
			return c > 0
		}
		return bytes.Compare(others[i].Who[:], others[j].Who[:]) < 0
	})
}
