// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package election

import (
	"math/big"

	"github.com/vetrixchain/vetrix/vetrix"
)

// Prefs are the declared preferences of a validator candidate.
type Prefs struct {
	// Commission is the cut taken off an era payout before the pro-rata split.
	Commission vetrix.Quintill
	// Collaborative opens the validator to backers.
	Collaborative bool
	// MinBackerReputation gates which backers may contribute exposure.
	MinBackerReputation uint64
}

// CoopTarget is one declared backing.
type CoopTarget struct {
	Validator vetrix.Address
	Amount    *big.Int
}

// Cooperations is the declared target set of one backer.
type Cooperations struct {
	Targets     []CoopTarget
	SubmittedIn uint32
}

// IndividualExposure is one backer's stake behind an elected validator.
type IndividualExposure struct {
	Who   vetrix.Address
	Value *big.Int
}

// Exposure is the stake snapshot of one elected validator for one era.
// Invariant: Total == Own + Σ Others.Value.
type Exposure struct {
	Own    *big.Int
	Total  *big.Int
	Others []IndividualExposure
}

// Consistent reports whether Total == Own + Σ Others.Value.
func (e *Exposure) Consistent() bool {
	sum := new(big.Int).Set(e.Own)
	for _, o := range e.Others {
		sum.Add(sum, o.Value)
	}
	return sum.Cmp(e.Total) == 0
}

// clip returns a copy with Others truncated to the k largest by value.
// Own and Total are unchanged, so the clipped exposure still describes
// the full stake while bounding per-era payout cost.
func (e *Exposure) clip(k int) Exposure {
	clipped := Exposure{Own: e.Own, Total: e.Total, Others: e.Others}
	if len(e.Others) > k {
		others := make([]IndividualExposure, len(e.Others))
		copy(others, e.Others)
		sortExposuresDesc(others)
		clipped.Others = others[:k]
	}
	return clipped
}
