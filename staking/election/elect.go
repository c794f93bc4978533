// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package election

import (
	"bytes"
	"container/heap"
	"errors"
	"math/big"

	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Outcome is the result of one election run.
type Outcome struct {
	// Elected is the winning set in rank order, nil when Failed.
	Elected []vetrix.Address
	// Chilled lists validators force-chilled by the reputation filter.
	Chilled []vetrix.Address
	// Failed is set when fewer candidates than the minimum survived.
	Failed bool
}

type candidate struct {
	stash        vetrix.Address
	prefs        Prefs
	exposure     Exposure
	invulnerable bool
}

// candidateHeap is a min-heap over candidate rank, keeping the K best.
type candidateHeap []candidate

func (h candidateHeap) Len() int      { return len(h) }
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h candidateHeap) Less(i, j int) bool {
	return rankLess(&h[i], &h[j])
}

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// rankLess reports whether a ranks strictly below b: vulnerable before
// invulnerable, lower total before higher, higher address breaking ties.
func rankLess(a, b *candidate) bool {
	if a.invulnerable != b.invulnerable {
		return !a.invulnerable
	}
	if c := a.exposure.Total.Cmp(b.exposure.Total); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.stash[:], b.stash[:]) > 0
}

// Elect runs the reputation filter, builds candidate exposures and
// persists the winning set keyed by newEra.
func (s *Service) Elect(newEra uint32) (*Outcome, error) {
	out := new(Outcome)
	if err := s.filterByReputation(out); err != nil {
		return nil, err
	}

	var stashes []vetrix.Address
	if err := s.validators.Iterate(func(key []byte, _ Prefs) (bool, error) {
		stashes = append(stashes, addrFromKey(key))
		return true, nil
	}); err != nil {
		return nil, err
	}

	minimum, err := s.MinimumValidatorCount()
	if err != nil {
		return nil, err
	}
	if minimum < 1 {
		minimum = 1
	}
	if uint32(len(stashes)) < minimum {
		out.Failed = true
		logger.Warn("election aborted", "era", newEra, "candidates", len(stashes), "minimum", minimum)
		return out, nil
	}

	targetCount, err := s.ValidatorCount()
	if err != nil {
		return nil, err
	}
	if targetCount < 1 {
		targetCount = 1
	}

	// top-K selection, not a full sort
	winners := make(candidateHeap, 0, targetCount)
	for _, stash := range stashes {
		cand, ok, err := s.buildCandidate(stash)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if uint32(len(winners)) < targetCount {
			heap.Push(&winners, cand)
		} else if rankLess(&winners[0], &cand) {
			winners[0] = cand
			heap.Fix(&winners, 0)
		}
	}
	if uint32(len(winners)) < minimum {
		out.Failed = true
		logger.Warn("election aborted", "era", newEra, "candidates", len(winners), "minimum", minimum)
		return out, nil
	}

	// pop ascending, fill rank order descending
	elected := make([]candidate, len(winners))
	for i := len(elected) - 1; i >= 0; i-- {
		elected[i] = heap.Pop(&winners).(candidate)
	}

	totalStake := new(big.Int)
	order := make([]vetrix.Address, 0, len(elected))
	for _, c := range elected {
		key := eraKey(newEra, c.stash)
		if err := s.eraStakers.Set(key, c.exposure); err != nil {
			return nil, err
		}
		if err := s.eraClipped.Set(key, c.exposure.clip(vetrix.MaxCooperatorRewardedPerValidator)); err != nil {
			return nil, err
		}
		if err := s.eraPrefs.Set(key, c.prefs); err != nil {
			return nil, err
		}
		totalStake.Add(totalStake, c.exposure.Total)
		order = append(order, c.stash)
	}
	if err := s.eraTotalStake.Set(state.U32Key(newEra), totalStake); err != nil {
		return nil, err
	}
	if err := s.eraElected.Set(state.U32Key(newEra), order); err != nil {
		return nil, err
	}

	out.Elected = order
	logger.Info("stakers elected", "era", newEra, "validators", len(order), "totalStake", totalStake)
	return out, nil
}

// filterByReputation force-chills validators below the validator gate
// and demotes collaborative ones below the collaborative gate.
func (s *Service) filterByReputation(out *Outcome) error {
	minRep, err := s.configs.MinValidatorReputation()
	if err != nil {
		return err
	}
	minCollab, err := s.configs.MinCollaborativeReputation()
	if err != nil {
		return err
	}
	if minRep == 0 && minCollab == 0 {
		return nil
	}

	type demotion struct {
		stash vetrix.Address
		prefs Prefs
		chill bool
	}
	var pending []demotion
	if err := s.validators.Iterate(func(key []byte, prefs Prefs) (bool, error) {
		stash := addrFromKey(key)
		score, err := s.reputation.ScoreOf(stash)
		if err != nil {
			return false, err
		}
		if score < minRep {
			pending = append(pending, demotion{stash: stash, chill: true})
		} else if prefs.Collaborative && score < minCollab {
			prefs.Collaborative = false
			pending = append(pending, demotion{stash: stash, prefs: prefs})
		}
		return true, nil
	}); err != nil {
		return err
	}

	for _, d := range pending {
		if d.chill {
			if _, err := s.Chill(d.stash); err != nil {
				return err
			}
			out.Chilled = append(out.Chilled, d.stash)
			continue
		}
		if err := s.dropBackersOf(d.stash); err != nil {
			return err
		}
		if err := s.validators.Set(d.stash, d.prefs); err != nil {
			return err
		}
	}
	return nil
}

// buildCandidate assembles the exposure of one validator candidate.
func (s *Service) buildCandidate(stash vetrix.Address) (candidate, bool, error) {
	prefs, ok, err := s.PrefsOf(stash)
	if err != nil || !ok {
		return candidate{}, false, err
	}
	l, _, err := s.ledgers.GetByStash(stash)
	if errors.Is(err, reverts.ErrNotStash) {
		// a validator record with no ledger contributes nothing
		return candidate{}, false, nil
	}
	if err != nil {
		return candidate{}, false, err
	}

	exp := Exposure{Own: l.Active, Total: new(big.Int).Set(l.Active)}
	if prefs.Collaborative {
		if err := s.collaborations.IteratePrefix(stash.Bytes(), func(key []byte, amount *big.Int) (bool, error) {
			backer := addrFromKey(key)
			score, err := s.reputation.ScoreOf(backer)
			if err != nil {
				return false, err
			}
			if score < prefs.MinBackerReputation {
				return true, nil
			}
			exp.Others = append(exp.Others, IndividualExposure{Who: backer, Value: amount})
			exp.Total.Add(exp.Total, amount)
			return true, nil
		}); err != nil {
			return candidate{}, false, err
		}
	}

	invulnerable, err := s.IsInvulnerable(stash)
	if err != nil {
		return candidate{}, false, err
	}
	return candidate{stash: stash, prefs: prefs, exposure: exp, invulnerable: invulnerable}, true, nil
}

func eraKey(era uint32, addr vetrix.Address) state.RawKey {
	return state.CompositeKey(state.U32Key(era), addr.Bytes())
}

type exposureCacheKey struct {
	era   uint32
	stash vetrix.Address
}

// ExposureOf returns the full exposure recorded for (era, validator).
func (s *Service) ExposureOf(era uint32, validator vetrix.Address) (Exposure, bool, error) {
	key := eraKey(era, validator)
	ok, err := s.eraStakers.Has(key)
	if err != nil || !ok {
		return Exposure{}, false, err
	}
	exp, err := s.eraStakers.Get(key)
	return exp, true, err
}

// ClippedExposureOf returns the clipped exposure recorded for
// (era, validator). Reads go through an in-memory cache; era results are
// immutable once persisted.
func (s *Service) ClippedExposureOf(era uint32, validator vetrix.Address) (Exposure, bool, error) {
	ck := exposureCacheKey{era: era, stash: validator}
	if cached, ok := s.exposures.Get(ck); ok {
		return cached.(Exposure), true, nil
	}
	key := eraKey(era, validator)
	ok, err := s.eraClipped.Has(key)
	if err != nil || !ok {
		return Exposure{}, false, err
	}
	exp, err := s.eraClipped.Get(key)
	if err != nil {
		return Exposure{}, false, err
	}
	s.exposures.Add(ck, exp)
	return exp, true, nil
}

// EraPrefsOf returns the preference snapshot taken when the era was
// elected. Later changes never retroactively affect an elected era.
func (s *Service) EraPrefsOf(era uint32, validator vetrix.Address) (Prefs, error) {
	return s.eraPrefs.Get(eraKey(era, validator))
}

// EraTotalStake returns the summed total stake of the era's winners.
func (s *Service) EraTotalStake(era uint32) (*big.Int, error) {
	return s.eraTotalStake.Get(state.U32Key(era))
}

// Elected returns the era's winning set in rank order.
func (s *Service) Elected(era uint32) ([]vetrix.Address, error) {
	return s.eraElected.Get(state.U32Key(era))
}

// PruneEra removes every election result keyed by the era.
func (s *Service) PruneEra(era uint32) error {
	prefix := state.U32Key(era)
	if _, err := s.eraStakers.DeletePrefix(prefix); err != nil {
		return err
	}
	if _, err := s.eraClipped.DeletePrefix(prefix); err != nil {
		return err
	}
	if _, err := s.eraPrefs.DeletePrefix(prefix); err != nil {
		return err
	}
	s.eraTotalStake.Delete(state.U32Key(era))
	s.eraElected.Delete(state.U32Key(era))
	// cached entries of the pruned era would linger forever otherwise
	s.exposures.Purge()
	return nil
}
