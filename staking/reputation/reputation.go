// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reputation keeps the per-account reputation scores fed by block
// authorship. Scores gate validator legitimacy and backer eligibility at
// election time and grant payout bonuses by tier; they are a policy input,
// not staked value.
package reputation

import (
	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Tier is a ranked reputation band.
type Tier uint8

const (
	TierNovice Tier = iota
	TierTrusted
	TierVeteran
	TierExemplary
)

var tierThresholds = [...]uint64{
	TierTrusted:   1_000,
	TierVeteran:   10_000,
	TierExemplary: 100_000,
}

// payout bonus per tier, added on top of the base reward
var tierBonuses = [...]vetrix.Quintill{
	TierNovice:    0,
	TierTrusted:   vetrix.QuintillFromPercent(1),
	TierVeteran:   vetrix.QuintillFromPercent(3),
	TierExemplary: vetrix.QuintillFromPercent(5),
}

// TierOf maps a score to its tier.
func TierOf(score uint64) Tier {
	tier := TierNovice
	for t := TierTrusted; t <= TierExemplary; t++ {
		if score >= tierThresholds[t] {
			tier = t
		}
	}
	return tier
}

// PayoutBonus returns the extra reward fraction granted by the tier.
func (t Tier) PayoutBonus() vetrix.Quintill {
	if int(t) >= len(tierBonuses) {
		return tierBonuses[TierExemplary]
	}
	return tierBonuses[t]
}

// Service is the score accessor.
type Service struct {
	scores *state.Mapping[vetrix.Address, uint64]
}

// New creates the reputation service over the given state.
func New(st *state.State) *Service {
	return &Service{
		scores: state.NewMapping[vetrix.Address, uint64](st, "rep-score"),
	}
}

// ScoreOf returns the score of the given account.
func (s *Service) ScoreOf(addr vetrix.Address) (uint64, error) {
	score, err := s.scores.Get(addr)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get reputation score")
	}
	return score, nil
}

// SetScore overwrites the score, for genesis seeding.
func (s *Service) SetScore(addr vetrix.Address, score uint64) error {
	return s.scores.Set(addr, score)
}

// Add credits points, saturating at the maximum.
func (s *Service) Add(addr vetrix.Address, points uint64) error {
	score, err := s.scores.Get(addr)
	if err != nil {
		return errors.Wrap(err, "failed to get reputation score")
	}
	sum := score + points
	if sum < score { // overflow
		sum = ^uint64(0)
	}
	return s.scores.Set(addr, sum)
}

// Slash debits points, flooring at zero. A full (100%) reputation wipe
// passes the current score.
func (s *Service) Slash(addr vetrix.Address, points uint64) error {
	score, err := s.scores.Get(addr)
	if err != nil {
		return errors.Wrap(err, "failed to get reputation score")
	}
	if points >= score {
		s.scores.Delete(addr)
		return nil
	}
	return s.scores.Set(addr, score-points)
}

// NoteAuthor credits the fixed block-authoring reward, scaled by the
// size of the active validator set the author competed in.
func (s *Service) NoteAuthor(addr vetrix.Address, activeValidators uint64) error {
	if activeValidators == 0 {
		activeValidators = 1
	}
	return s.Add(addr, vetrix.BlockAuthoringReward*activeValidators)
}

// TierOf returns the tier of the given account.
func (s *Service) TierOf(addr vetrix.Address) (Tier, error) {
	score, err := s.ScoreOf(addr)
	if err != nil {
		return TierNovice, err
	}
	return TierOf(score), nil
}
