// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events defines the staking engine's domain events and the
// append-only log collecting them. Events are consumed only by external
// observers; the engine never reads them back for its own control flow.
package events

import (
	"math/big"

	"github.com/vetrixchain/vetrix/vetrix"
)

// Event is one domain event.
type Event interface {
	EventName() string
}

// Log is the append-only event log of one engine instance.
// Events emitted by a failed operation are truncated away together with
// the state revert.
type Log struct {
	events []Event
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Emit appends an event.
func (l *Log) Emit(e Event) {
	l.events = append(l.events, e)
}

// Len returns the current number of events, usable as a truncation mark.
func (l *Log) Len() int {
	return len(l.events)
}

// TruncateTo drops every event emitted after the given mark.
func (l *Log) TruncateTo(mark int) {
	if mark < len(l.events) {
		l.events = l.events[:mark]
	}
}

// Drain returns all pending events and empties the log.
func (l *Log) Drain() []Event {
	out := l.events
	l.events = nil
	return out
}

// Pending returns pending events without draining them.
func (l *Log) Pending() []Event {
	return l.events
}

// Bonded: the stash locked additional funds into its ledger.
type Bonded struct {
	Stash  vetrix.Address
	Amount *big.Int
}

func (Bonded) EventName() string { return "Bonded" }

// Unbonded: funds were scheduled for withdrawal.
type Unbonded struct {
	Stash  vetrix.Address
	Amount *big.Int
}

func (Unbonded) EventName() string { return "Unbonded" }

// Withdrawn: matured funds were released from the ledger.
type Withdrawn struct {
	Stash  vetrix.Address
	Amount *big.Int
}

func (Withdrawn) EventName() string { return "Withdrawn" }

// Slashed: a staker's funds were debited by an applied slash.
type Slashed struct {
	Staker vetrix.Address
	Amount *big.Int
}

func (Slashed) EventName() string { return "Slashed" }

// SlashReported: an offence report was accepted for processing.
type SlashReported struct {
	Validator vetrix.Address
	Fraction  vetrix.Quintill
	SlashEra  uint32
}

func (SlashReported) EventName() string { return "SlashReported" }

// Chilled: an account stopped validating and cooperating.
type Chilled struct {
	Stash vetrix.Address
}

func (Chilled) EventName() string { return "Chilled" }

// PayoutStarted: era rewards of a validator's backing are being paid.
type PayoutStarted struct {
	Era       uint32
	Validator vetrix.Address
}

func (PayoutStarted) EventName() string { return "PayoutStarted" }

// Rewarded: one payee received its reward share.
type Rewarded struct {
	Stash  vetrix.Address
	Amount *big.Int
}

func (Rewarded) EventName() string { return "Rewarded" }

// StakersElected: a new validator set was elected for the planned era.
type StakersElected struct {
	Era        uint32
	Validators []vetrix.Address
}

func (StakersElected) EventName() string { return "StakersElected" }

// StakingElectionFailed: the election could not produce a viable set and
// the previous one stays in place.
type StakingElectionFailed struct {
	Era uint32
}

func (StakingElectionFailed) EventName() string { return "StakingElectionFailed" }

// ForceEra: the era forcing mode changed.
type ForceEra struct {
	Mode string
}

func (ForceEra) EventName() string { return "ForceEra" }

// ValidatorPrefsSet: a validator declared or changed its preferences.
type ValidatorPrefsSet struct {
	Stash      vetrix.Address
	Commission vetrix.Quintill
}

func (ValidatorPrefsSet) EventName() string { return "ValidatorPrefsSet" }

// Kicked: a validator removed a backer from its cooperator list.
type Kicked struct {
	Cooperator vetrix.Address
	Stash      vetrix.Address
}

func (Kicked) EventName() string { return "Kicked" }
