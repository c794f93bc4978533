// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sync"
	"testing"

	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/vetrix"
)

type TestFunc func(t *testing.T)

// TestSequence drives the engine through a scripted scenario: staking
// operations interleaved with session delivery, with assertions between.
type TestSequence struct {
	eng     *Engine
	session uint32

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(eng *Engine) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), eng: eng}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) Bond(stash, controller vetrix.Address, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.eng.Endow(stash, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to endow %s: %v", stash, err)
		}
		if err := st.eng.Bond(stash, controller, big.NewInt(amount), ledger.Destination{Kind: ledger.DestStash}); err != nil {
			t.Fatalf("failed to bond %s: %v", stash, err)
		}
		t.Logf("bonded %d for %s", amount, stash)
	})
}

func (st *TestSequence) Validate(controller vetrix.Address, prefs election.Prefs) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.eng.Validate(controller, prefs); err != nil {
			t.Fatalf("failed to validate via %s: %v", controller, err)
		}
		t.Logf("validator declared via %s", controller)
	})
}

func (st *TestSequence) Cooperate(controller vetrix.Address, targets []election.CoopTarget) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.eng.Cooperate(controller, targets); err != nil {
			t.Fatalf("failed to cooperate via %s: %v", controller, err)
		}
		t.Logf("cooperations declared via %s", controller)
	})
}

// Session delivers one full session in the contract's order: plan,
// start, then the end of the previous session.
func (st *TestSequence) Session() *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		st.deliverSession(t)
	})
}

// Sessions delivers n consecutive sessions.
func (st *TestSequence) Sessions(n int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		for range n {
			st.deliverSession(t)
		}
	})
}

func (st *TestSequence) deliverSession(t *testing.T) {
	i := st.session
	if _, err := st.eng.NewSession(i); err != nil {
		t.Fatalf("new_session(%d): %v", i, err)
	}
	if err := st.eng.StartSession(i); err != nil {
		t.Fatalf("start_session(%d): %v", i, err)
	}
	if i > 0 {
		if err := st.eng.EndSession(i - 1); err != nil {
			t.Fatalf("end_session(%d): %v", i-1, err)
		}
	}
	st.session++
	t.Logf("session %d delivered", i)
}

func (st *TestSequence) ExpectActiveEra(era uint32) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		active, ok, err := st.eng.ActiveEra()
		if err != nil {
			t.Fatalf("active era: %v", err)
		}
		if !ok {
			t.Fatalf("no active era, expected %d", era)
		}
		if active.Index != era {
			t.Fatalf("active era %d, expected %d", active.Index, era)
		}
	})
}

func (st *TestSequence) ExpectElected(era uint32, validators ...vetrix.Address) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		elected, err := st.eng.Elected(era)
		if err != nil {
			t.Fatalf("elected set of era %d: %v", era, err)
		}
		if len(elected) != len(validators) {
			t.Fatalf("era %d elected %d validators, expected %d", era, len(elected), len(validators))
		}
		for i, v := range validators {
			if elected[i] != v {
				t.Fatalf("era %d rank %d is %s, expected %s", era, i, elected[i], v)
			}
		}
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}
}
