// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/vetrixchain/vetrix/staking/era"
	"github.com/vetrixchain/vetrix/staking/events"
	"github.com/vetrixchain/vetrix/staking/slashing"
	"github.com/vetrixchain/vetrix/vetrix"
)

// NewSession is the planning hook of the session layer. When the era
// cadence (or a forcing override) triggers, it plans the next era and
// returns the newly elected set; a nil set means the session layer keeps
// the one it has. Sessions are delivered strictly ordered but may lag
// the era clock by a fixed offset.
func (e *Engine) NewSession(sessionIndex uint32) ([]vetrix.Address, error) {
	var elected []vetrix.Address
	err := e.run("new_session", func() error {
		if err := e.eras.SetCurrentPlannedSession(sessionIndex); err != nil {
			return err
		}
		metricSessionIndex().SetWithLabel(int64(sessionIndex), map[string]string{"phase": "planned"})
		plan, err := e.eras.ShouldPlanNewEra(sessionIndex)
		if err != nil || !plan {
			return err
		}
		elected, err = e.planNewEra(sessionIndex)
		return err
	})
	return elected, err
}

// planNewEra bumps the planned era, prunes history and runs the
// election. A failed election rolls the bump back so the prior set
// stays in place (at bootstrap, era 0 stays pending).
func (e *Engine) planNewEra(sessionIndex uint32) ([]vetrix.Address, error) {
	newEra := uint32(0)
	if current, ok, err := e.eras.CurrentEra(); err != nil {
		return nil, err
	} else if ok {
		newEra = current + 1
	}

	cp := e.state.NewCheckpoint()
	mark := e.events.Len()

	if err := e.eras.SetCurrentEra(newEra); err != nil {
		return nil, err
	}
	if err := e.eras.SetStartSessionOf(newEra, sessionIndex); err != nil {
		return nil, err
	}
	if newEra > e.params.HistoryDepth {
		stale := newEra - e.params.HistoryDepth - 1
		if err := e.elections.PruneEra(stale); err != nil {
			return nil, err
		}
		e.rewards.PruneEra(stale)
		if err := e.eras.PruneStartSessionBefore(stale + 1); err != nil {
			return nil, err
		}
	}

	out, err := e.elections.Elect(newEra)
	if err != nil {
		return nil, err
	}
	if out.Failed {
		e.state.RevertTo(cp)
		e.events.TruncateTo(mark)
		e.events.Emit(events.StakingElectionFailed{Era: newEra})
		return nil, nil
	}

	forcing, err := e.eras.Forcing()
	if err != nil {
		return nil, err
	}
	if forcing == era.ForceNew {
		if err := e.eras.SetForcing(era.NotForcing); err != nil {
			return nil, err
		}
	}

	for _, c := range out.Chilled {
		e.events.Emit(events.Chilled{Stash: c})
	}
	e.events.Emit(events.StakersElected{Era: newEra, Validators: out.Elected})
	metricEraTransitions().Add(1)
	metricElectedValidators().Set(int64(len(out.Elected)))
	logger.Info("new era planned", "era", newEra, "session", sessionIndex, "validators", len(out.Elected))
	return out.Elected, nil
}

// StartSession activates the planned era once its recorded start session
// arrives: bonded-era history rolls forward, stale slash metadata is
// collected and slashes deferred to the new era are applied.
func (e *Engine) StartSession(sessionIndex uint32) error {
	return e.run("start_session", func() error {
		metricSessionIndex().SetWithLabel(int64(sessionIndex), map[string]string{"phase": "started"})
		next := uint32(0)
		if active, ok, err := e.eras.ActiveEra(); err != nil {
			return err
		} else if ok {
			next = active.Index + 1
		}
		start, ok, err := e.eras.StartSessionOf(next)
		if err != nil || !ok || start != sessionIndex {
			return err
		}
		return e.startEra(next, sessionIndex)
	})
}

func (e *Engine) startEra(eraIndex, sessionIndex uint32) error {
	// Start stays unset until the first tick of the era
	if err := e.eras.SetActiveEra(era.ActiveEraInfo{Index: eraIndex}); err != nil {
		return err
	}
	if err := e.rewards.RecordEraRate(eraIndex); err != nil {
		return err
	}
	if err := e.eras.PushBondedEra(eraIndex, sessionIndex); err != nil {
		return err
	}
	if eraIndex > e.params.BondingDuration {
		pruned, err := e.eras.PruneBondedBefore(eraIndex - e.params.BondingDuration)
		if err != nil {
			return err
		}
		for _, p := range pruned {
			if err := e.slashes.PruneEraMetadata(p.Era); err != nil {
				return err
			}
		}
	}
	out, err := e.slashes.ApplyDeferred(eraIndex)
	if err != nil {
		return err
	}
	e.emitSlashOutcome(out)
	logger.Info("era started", "era", eraIndex, "session", sessionIndex)
	return nil
}

// EndSession clears the offender flags of an era once its last session
// ends. Sessions end after their successor started, so the flags of era
// n are cleared when the session preceding era n+1's start ends.
func (e *Engine) EndSession(sessionIndex uint32) error {
	return e.run("end_session", func() error {
		metricSessionIndex().SetWithLabel(int64(sessionIndex), map[string]string{"phase": "ended"})
		active, ok, err := e.eras.ActiveEra()
		if err != nil || !ok {
			return err
		}
		start, ok, err := e.eras.StartSessionOf(active.Index)
		if err != nil {
			return err
		}
		if ok && start == sessionIndex+1 {
			e.slashes.ClearOffenders()
		}
		return nil
	})
}

// OnOffence processes a batch of offence reports from the external
// offence source.
func (e *Engine) OnOffence(offences []slashing.Offence, slashSession uint32, strategy slashing.DisableStrategy) error {
	return e.run("on_offence", func() error {
		out, err := e.slashes.OnOffence(offences, slashSession, strategy)
		if err != nil {
			return err
		}
		e.emitSlashOutcome(out)
		return nil
	})
}

func (e *Engine) emitSlashOutcome(out *slashing.Outcome) {
	for _, r := range out.Reports {
		e.events.Emit(events.SlashReported{Validator: r.Validator, Fraction: r.Fraction, SlashEra: r.SlashEra})
	}
	for _, c := range out.Chilled {
		e.events.Emit(events.Chilled{Stash: c})
	}
	for _, s := range out.Slashed {
		e.events.Emit(events.Slashed{Staker: s.Staker, Amount: s.Amount})
	}
	if n := len(out.Slashed); n > 0 {
		metricSlashesApplied().Add(int64(n))
	}
	if out.ForcedNewEra {
		e.events.Emit(events.ForceEra{Mode: era.ForceNew.String()})
	}
}

// NoteAuthor credits the block author's reputation, scaled by the size
// of the elected set it competed in.
func (e *Engine) NoteAuthor(author vetrix.Address) error {
	return e.run("note_author", func() error {
		competitors := uint64(1)
		if active, ok, err := e.eras.ActiveEra(); err != nil {
			return err
		} else if ok {
			elected, err := e.elections.Elected(active.Index)
			if err != nil {
				return err
			}
			if len(elected) > 0 {
				competitors = uint64(len(elected))
			}
		}
		return e.reputation.NoteAuthor(author, competitors)
	})
}

// Tick pushes the wall clock; the first tick of an era stamps its start.
func (e *Engine) Tick(now uint64) error {
	return e.run("tick", func() error {
		active, ok, err := e.eras.ActiveEra()
		if err != nil || !ok || active.HasStart {
			return err
		}
		active.Start = now
		active.HasStart = true
		return e.eras.SetActiveEra(active)
	})
}
