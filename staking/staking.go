// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking is the engine orchestrator. It wires the service
// packages over one state instance, exposes one method per dispatchable
// operation plus the session, offence and authorship hooks, and owns the
// event log. Every public mutation runs between a checkpoint and either
// a revert (on error) or a staged commit, so each operation is atomic.
package staking

import (
	"math/big"

	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/staking/account"
	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/era"
	"github.com/vetrixchain/vetrix/staking/events"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reputation"
	"github.com/vetrixchain/vetrix/staking/rewards"
	"github.com/vetrixchain/vetrix/staking/slashing"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

var logger = log.WithContext("pkg", "staking")

// Params are the immutable engine limits. Protocol cadence constants
// (SessionsPerEra, capacity bounds) live in the vetrix package.
type Params struct {
	BondingDuration    uint32
	SlashDeferDuration uint32
	HistoryDepth       uint32
	MaxUnlockingChunks int
	ExistentialDeposit *big.Int
}

// DefaultParams returns the protocol defaults.
func DefaultParams() Params {
	return Params{
		BondingDuration:    vetrix.BondingDuration,
		SlashDeferDuration: vetrix.SlashDeferDuration,
		HistoryDepth:       vetrix.HistoryDepth,
		MaxUnlockingChunks: vetrix.MaxUnlockingChunks,
		ExistentialDeposit: vetrix.ExistentialDeposit,
	}
}

// Engine is the staking engine.
type Engine struct {
	state  *state.State
	events *events.Log
	params Params

	accounts   *account.Service
	reputation *reputation.Service
	configs    *configs.Service
	ledgers    *ledger.Service
	elections  *election.Service
	eras       *era.Service
	slashes    *slashing.Service
	rewards    *rewards.Service
}

// New creates an engine over the given state.
func New(st *state.State, params Params) *Engine {
	accounts := account.New(st)
	rep := reputation.New(st)
	cfg := configs.New(st)
	ledgers := ledger.New(st, accounts,
		params.BondingDuration, params.HistoryDepth, params.MaxUnlockingChunks, params.ExistentialDeposit)
	elections := election.New(st, ledgers, rep, cfg)
	eras := era.New(st)
	slashes := slashing.New(st, ledgers, elections, eras, accounts, cfg,
		params.BondingDuration, params.SlashDeferDuration)
	rew := rewards.New(st, ledgers, elections, eras, accounts, rep, params.HistoryDepth)

	return &Engine{
		state:  st,
		events: events.NewLog(),
		params: params,

		accounts:   accounts,
		reputation: rep,
		configs:    cfg,
		ledgers:    ledgers,
		elections:  elections,
		eras:       eras,
		slashes:    slashes,
		rewards:    rew,
	}
}

// run executes one operation atomically: on error every state write and
// event emitted by it is rolled back, otherwise the journal is committed.
func (e *Engine) run(op string, fn func() error) error {
	cp := e.state.NewCheckpoint()
	mark := e.events.Len()
	if err := fn(); err != nil {
		e.state.RevertTo(cp)
		e.events.TruncateTo(mark)
		metricOperations().AddWithLabel(1, map[string]string{"op": op, "result": "reverted"})
		logger.Info("operation reverted", "op", op, "error", err)
		return err
	}
	if err := e.state.Stage().Commit(); err != nil {
		return err
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "result": "ok"})
	return nil
}

// Events returns all pending events and empties the log.
func (e *Engine) Events() []events.Event {
	return e.events.Drain()
}

// PendingEvents returns pending events without draining them.
func (e *Engine) PendingEvents() []events.Event {
	return e.events.Pending()
}

// Accounts exposes the balance service, for genesis endowment and tests.
func (e *Engine) Accounts() *account.Service {
	return e.accounts
}

// Reputation exposes the score service, for genesis seeding and tests.
func (e *Engine) Reputation() *reputation.Service {
	return e.reputation
}

//
// Getters - no state change
//

// LedgerOf returns the ledger of the given stash.
func (e *Engine) LedgerOf(stash vetrix.Address) (*ledger.Ledger, error) {
	l, _, err := e.ledgers.GetByStash(stash)
	return l, err
}

// ControllerOf returns the controller paired with the stash.
func (e *Engine) ControllerOf(stash vetrix.Address) (vetrix.Address, bool, error) {
	return e.ledgers.ControllerOf(stash)
}

// PayeeOf returns the reward destination of the stash.
func (e *Engine) PayeeOf(stash vetrix.Address) (ledger.Destination, error) {
	return e.ledgers.Payee(stash)
}

// PrefsOf returns the stash's declared validator preferences.
func (e *Engine) PrefsOf(stash vetrix.Address) (election.Prefs, bool, error) {
	return e.elections.PrefsOf(stash)
}

// CurrentEra returns the planned era counter.
func (e *Engine) CurrentEra() (uint32, bool, error) {
	return e.eras.CurrentEra()
}

// ActiveEra returns the era currently being rewarded.
func (e *Engine) ActiveEra() (era.ActiveEraInfo, bool, error) {
	return e.eras.ActiveEra()
}

// Elected returns the validator set elected for the era, in rank order.
func (e *Engine) Elected(eraIndex uint32) ([]vetrix.Address, error) {
	return e.elections.Elected(eraIndex)
}

// ExposureOf returns the full recorded exposure of an elected validator.
func (e *Engine) ExposureOf(eraIndex uint32, validator vetrix.Address) (election.Exposure, bool, error) {
	return e.elections.ExposureOf(eraIndex, validator)
}

// DisabledIndexes returns the elected-set indexes currently disabled.
func (e *Engine) DisabledIndexes() ([]uint32, error) {
	return e.slashes.DisabledIndexes()
}

// UnappliedSlashes returns the deferred slashes due at the given era.
func (e *Engine) UnappliedSlashes(dueEra uint32) ([]slashing.UnappliedSlash, error) {
	return e.slashes.UnappliedSlashes(dueEra)
}

// ValidatorCount returns the election's target set size.
func (e *Engine) ValidatorCount() (uint32, error) {
	return e.elections.ValidatorCount()
}

// Invulnerables returns the slash-exempt validator set.
func (e *Engine) Invulnerables() ([]vetrix.Address, error) {
	return e.elections.Invulnerables()
}

// PlannedSession returns the latest session index seen by planning.
func (e *Engine) PlannedSession() (uint32, error) {
	return e.eras.CurrentPlannedSession()
}

// currentEraOrZero is era 0 before bootstrap.
func (e *Engine) currentEraOrZero() (uint32, error) {
	current, ok, err := e.eras.CurrentEra()
	if err != nil || !ok {
		return 0, err
	}
	return current, nil
}
