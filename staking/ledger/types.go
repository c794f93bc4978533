// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"sort"

	"github.com/vetrixchain/vetrix/vetrix"
)

// UnlockChunk is a slice of funds scheduled to unlock at Era.
type UnlockChunk struct {
	Value *big.Int
	Era   uint32
}

// Ledger is the staking ledger of one stash, stored by controller.
// Invariant: Total == Active + Σ Unlocking.Value.
type Ledger struct {
	Stash          vetrix.Address
	Total          *big.Int
	Active         *big.Int
	Unlocking      []UnlockChunk
	ClaimedRewards []uint32
}

// newLedger creates an empty ledger for the stash.
func newLedger(stash vetrix.Address) *Ledger {
	return &Ledger{
		Stash:  stash,
		Total:  new(big.Int),
		Active: new(big.Int),
	}
}

// Consistent reports whether Total == Active + Σ Unlocking.Value.
func (l *Ledger) Consistent() bool {
	sum := new(big.Int).Set(l.Active)
	for _, c := range l.Unlocking {
		sum.Add(sum, c.Value)
	}
	return sum.Cmp(l.Total) == 0
}

// rebond moves up to value from the most recently added chunks back to
// Active, undoing the latest unbonds first. It returns the moved amount.
func (l *Ledger) rebond(value *big.Int) *big.Int {
	moved := new(big.Int)
	remaining := new(big.Int).Set(value)

	for len(l.Unlocking) > 0 && remaining.Sign() > 0 {
		last := &l.Unlocking[len(l.Unlocking)-1]
		if last.Value.Cmp(remaining) <= 0 {
			moved.Add(moved, last.Value)
			l.Active.Add(l.Active, last.Value)
			remaining.Sub(remaining, last.Value)
			l.Unlocking = l.Unlocking[:len(l.Unlocking)-1]
		} else {
			last.Value = new(big.Int).Sub(last.Value, remaining)
			l.Active.Add(l.Active, remaining)
			moved.Add(moved, remaining)
			remaining.SetInt64(0)
		}
	}
	return moved
}

// consolidate removes every chunk matured at currentEra, reducing Total.
func (l *Ledger) consolidate(currentEra uint32) {
	total := new(big.Int).Set(l.Active)
	kept := l.Unlocking[:0]
	for _, c := range l.Unlocking {
		if c.Era > currentEra {
			total.Add(total, c.Value)
			kept = append(kept, c)
		}
	}
	l.Unlocking = kept
	l.Total = total
}

// matured returns the sum of chunks claimable at currentEra.
func (l *Ledger) matured(currentEra uint32) *big.Int {
	sum := new(big.Int)
	for _, c := range l.Unlocking {
		if c.Era <= currentEra {
			sum.Add(sum, c.Value)
		}
	}
	return sum
}

// slash debits up to amount from Active and the unlocking chunks still
// inside the bonding window, returning the realized debit.
//
// Chunks unlocking before windowStart predate the offence's bonding
// window and are immune. When any chunk is in scope the debit spreads
// proportionally (ceiling-rounded ratio amount/slashable) over Active and
// those chunks; otherwise only Active is hit. Priority order: Active
// first, then in-scope chunks oldest-first, then immune-window chunks
// newest-first (those absorb leftovers only when rounding makes the
// proportional pass fall short, which keeps the realized amount at least
// the requested one whenever funds suffice). Any position left below
// minBalance after its debit is swept entirely into the slash.
func (l *Ledger) slash(amount, minBalance *big.Int, windowStart uint32) *big.Int {
	if amount.Sign() <= 0 {
		return new(big.Int)
	}
	preTotal := new(big.Int).Set(l.Total)
	remaining := new(big.Int).Set(amount)

	firstInScope := -1
	for i, c := range l.Unlocking {
		if c.Era >= windowStart {
			firstInScope = i
			break
		}
	}

	ratio := vetrix.QuintillOne
	var priority []int
	if firstInScope >= 0 {
		slashable := new(big.Int).Set(l.Active)
		for i := firstInScope; i < len(l.Unlocking); i++ {
			slashable.Add(slashable, l.Unlocking[i].Value)
		}
		ratio = vetrix.QuintillFromRationalCeil(amount, slashable)
		for i := firstInScope; i < len(l.Unlocking); i++ {
			priority = append(priority, i)
		}
		for i := firstInScope - 1; i >= 0; i-- {
			priority = append(priority, i)
		}
	} else {
		for i := len(l.Unlocking) - 1; i >= 0; i-- {
			priority = append(priority, i)
		}
	}

	slashOutOf := func(target *big.Int) *big.Int {
		cut := ratio.MulCeil(target)
		if cut.Cmp(target) > 0 {
			cut.Set(target)
		}
		if cut.Cmp(remaining) > 0 {
			cut.Set(remaining)
		}
		rest := new(big.Int).Sub(target, cut)
		if rest.Sign() > 0 && rest.Cmp(minBalance) < 0 {
			// dust the position entirely
			cut.Set(target)
		}
		remaining.Sub(remaining, cut)
		if remaining.Sign() < 0 {
			remaining.SetInt64(0)
		}
		return new(big.Int).Sub(target, cut)
	}

	l.Active = slashOutOf(l.Active)
	for _, i := range priority {
		if remaining.Sign() == 0 {
			break
		}
		l.Unlocking[i].Value = slashOutOf(l.Unlocking[i].Value)
	}

	// drop zeroed chunks
	kept := l.Unlocking[:0]
	for _, c := range l.Unlocking {
		if c.Value.Sign() > 0 {
			kept = append(kept, c)
		}
	}
	l.Unlocking = kept

	total := new(big.Int).Set(l.Active)
	for _, c := range l.Unlocking {
		total.Add(total, c.Value)
	}
	l.Total = total

	return new(big.Int).Sub(preTotal, l.Total)
}

// claimed reports whether era is already in ClaimedRewards.
func (l *Ledger) claimed(era uint32) bool {
	i := sort.Search(len(l.ClaimedRewards), func(i int) bool {
		return l.ClaimedRewards[i] >= era
	})
	return i < len(l.ClaimedRewards) && l.ClaimedRewards[i] == era
}

// markClaimed inserts era keeping ClaimedRewards strictly increasing,
// after pruning entries older than windowStart. It reports whether the
// era was newly inserted.
func (l *Ledger) markClaimed(era, windowStart uint32) bool {
	pruned := l.ClaimedRewards[:0]
	for _, e := range l.ClaimedRewards {
		if e >= windowStart {
			pruned = append(pruned, e)
		}
	}
	l.ClaimedRewards = pruned

	i := sort.Search(len(l.ClaimedRewards), func(i int) bool {
		return l.ClaimedRewards[i] >= era
	})
	if i < len(l.ClaimedRewards) && l.ClaimedRewards[i] == era {
		return false
	}
	l.ClaimedRewards = append(l.ClaimedRewards, 0)
	copy(l.ClaimedRewards[i+1:], l.ClaimedRewards[i:])
	l.ClaimedRewards[i] = era
	return true
}

// Destination selects where rewards of a stash are disbursed.
type Destination struct {
	Kind    DestinationKind
	Account vetrix.Address // set only for DestAccount
}

// DestinationKind enumerates the reward destinations.
type DestinationKind uint8

const (
	// DestStaked re-invests the reward into the stash's active ledger.
	DestStaked DestinationKind = iota
	// DestStash pays out to the stash's free balance.
	DestStash
	// DestController pays out to the controller's free balance.
	DestController
	// DestAccount pays out to an arbitrary account.
	DestAccount
	// DestNone discards the reward.
	DestNone
)
