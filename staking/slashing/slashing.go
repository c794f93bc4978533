// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slashing computes, defers and applies slashes from offence
// reports. Slashes are scoped to slashing spans: a per-span running
// maximum caps the principal so repeated reports of one offence never
// double-debit, and a full slash ends the span.
package slashing

import (
	"math/big"

	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/staking/account"
	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/era"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/staking/reverts"
	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

var logger = log.WithContext("pkg", "slashing")

// reporters share half of the uncovered reward delta
var reporterSplit = vetrix.QuintillFromPercent(50)

// DisableStrategy selects when an offender is disabled in the elected set.
type DisableStrategy uint8

const (
	// DisableNever leaves the offender enabled.
	DisableNever DisableStrategy = iota
	// DisableWhenSlashed disables when the offence carries a slash.
	DisableWhenSlashed
	// DisableAlways disables regardless of the slash amount.
	DisableAlways
)

// SlashedEntry is one realized debit.
type SlashedEntry struct {
	Staker vetrix.Address
	Amount *big.Int
}

// UnappliedSlash is a computed slash waiting out the deferral window.
type UnappliedSlash struct {
	Validator vetrix.Address
	Own       *big.Int
	Others    []SlashedEntry
	Reporters []vetrix.Address
	Payout    *big.Int
}

// eraSlash is the running per-era slash mark of a validator.
type eraSlash struct {
	Fraction vetrix.Quintill
	Amount   *big.Int
}

// OffenderFlag marks one elected-set index as offending.
type OffenderFlag struct {
	Index    uint32
	Disabled bool
}

// Report is one processed offence, for the SlashReported event.
type Report struct {
	Validator vetrix.Address
	Fraction  vetrix.Quintill
	SlashEra  uint32
}

// Outcome collects everything one offence batch did.
type Outcome struct {
	Reports      []Report
	Chilled      []vetrix.Address
	Slashed      []SlashedEntry
	ForcedNewEra bool
}

// Service is the slashing engine.
type Service struct {
	spans       *state.Mapping[vetrix.Address, SlashingSpans]
	spanRecords *state.Mapping[state.RawKey, SpanRecord] // stash ‖ spanIndex
	valMarks    *state.Mapping[state.RawKey, eraSlash]   // era ‖ stash
	coopMarks   *state.Mapping[state.RawKey, *big.Int]   // era ‖ stash
	unapplied   *state.Mapping[state.RawKey, []UnappliedSlash]
	offenders   *state.Slot[[]OffenderFlag]

	ledgers   *ledger.Service
	elections *election.Service
	eras      *era.Service
	accounts  *account.Service
	configs   *configs.Service

	bondingDuration    uint32
	slashDeferDuration uint32
}

// New creates the slashing service over the given state.
func New(
	st *state.State,
	ledgers *ledger.Service,
	elections *election.Service,
	eras *era.Service,
	accounts *account.Service,
	cfg *configs.Service,
	bondingDuration uint32,
	slashDeferDuration uint32,
) *Service {
	return &Service{
		spans:       state.NewMapping[vetrix.Address, SlashingSpans](st, "sl-spans"),
		spanRecords: state.NewMapping[state.RawKey, SpanRecord](st, "sl-span-record"),
		valMarks:    state.NewMapping[state.RawKey, eraSlash](st, "sl-val-mark"),
		coopMarks:   state.NewMapping[state.RawKey, *big.Int](st, "sl-coop-mark"),
		unapplied:   state.NewMapping[state.RawKey, []UnappliedSlash](st, "sl-unapplied"),
		offenders:   state.NewSlot[[]OffenderFlag](st, "sl-offenders"),

		ledgers:   ledgers,
		elections: elections,
		eras:      eras,
		accounts:  accounts,
		configs:   cfg,

		bondingDuration:    bondingDuration,
		slashDeferDuration: slashDeferDuration,
	}
}

func spanRecordKey(stash vetrix.Address, index uint32) state.RawKey {
	return state.CompositeKey(stash.Bytes(), state.U32Key(index).Bytes())
}

func markKey(era uint32, stash vetrix.Address) state.RawKey {
	return state.CompositeKey(state.U32Key(era).Bytes(), stash.Bytes())
}

// OnOffence processes one offence batch reported at slashSession.
func (s *Service) OnOffence(offences []Offence, slashSession uint32, strategy DisableStrategy) (*Outcome, error) {
	out := new(Outcome)

	active, ok, err := s.eras.ActiveEra()
	if err != nil || !ok {
		return out, err
	}
	activeStart, ok, err := s.eras.StartSessionOf(active.Index)
	if err != nil {
		return nil, err
	}
	if !ok {
		activeStart = 0
	}

	slashEra := active.Index
	if slashSession < activeStart {
		bonded, err := s.eras.BondedEras()
		if err != nil {
			return nil, err
		}
		found := false
		for i := len(bonded) - 1; i >= 0; i-- {
			if bonded[i].StartSession <= slashSession {
				slashEra = bonded[i].Era
				found = true
				break
			}
		}
		if !found {
			// predates the bonding window
			return out, nil
		}
	}

	windowStart := uint32(0)
	if active.Index > s.bondingDuration {
		windowStart = active.Index - s.bondingDuration
	}

	for _, off := range offences {
		invulnerable, err := s.elections.IsInvulnerable(off.Offender)
		if err != nil {
			return nil, err
		}
		if invulnerable {
			continue
		}
		out.Reports = append(out.Reports, Report{Validator: off.Offender, Fraction: off.Fraction, SlashEra: slashEra})

		unapplied, err := s.computeSlash(&slashParams{
			stash:       off.Offender,
			exposure:    off.Exposure,
			fraction:    off.Fraction,
			slashEra:    slashEra,
			now:         active.Index,
			windowStart: windowStart,
			strategy:    strategy,
		}, out)
		if err != nil {
			return nil, err
		}
		if unapplied == nil {
			continue
		}
		unapplied.Reporters = off.Reporters

		if s.slashDeferDuration == 0 {
			if err := s.applySlash(unapplied, slashEra, out); err != nil {
				return nil, err
			}
			continue
		}
		dueEra := slashEra + s.slashDeferDuration + 1
		key := state.U32Key(dueEra)
		queue, err := s.unapplied.Get(key)
		if err != nil {
			return nil, err
		}
		if err := s.unapplied.Set(key, append(queue, *unapplied)); err != nil {
			return nil, err
		}
		logger.Debug("slash deferred", "validator", off.Offender, "slashEra", slashEra, "dueEra", dueEra)
	}
	return out, nil
}

// Offence is one reported misbehavior with the offender's exposure at
// the offence era.
type Offence struct {
	Offender  vetrix.Address
	Exposure  election.Exposure
	Fraction  vetrix.Quintill
	Reporters []vetrix.Address
}

type slashParams struct {
	stash       vetrix.Address
	exposure    election.Exposure
	fraction    vetrix.Quintill
	slashEra    uint32
	now         uint32
	windowStart uint32
	strategy    DisableStrategy
}

// computeSlash turns one offence into an UnappliedSlash, or nil when the
// report adds no principal over what the span already covers.
func (s *Service) computeSlash(p *slashParams, out *Outcome) (*UnappliedSlash, error) {
	rewardProportion, err := s.configs.SlashRewardFraction()
	if err != nil {
		return nil, err
	}

	ownSlash := p.fraction.MulFloor(p.exposure.Own)
	if p.fraction.MulFloor(p.exposure.Total).Sign() == 0 {
		// rounding ate the whole slash; the offender still must not stay
		// elected
		if err := s.kickOutIfRecent(p, out); err != nil {
			return nil, err
		}
		return nil, nil
	}

	mark, err := s.valMarks.Get(markKey(p.slashEra, p.stash))
	if err != nil {
		return nil, err
	}
	priorFraction := mark.Fraction
	if p.fraction <= priorFraction {
		// the era maximum already covers this report
		return nil, nil
	}
	if err := s.valMarks.Set(markKey(p.slashEra, p.stash), eraSlash{Fraction: p.fraction, Amount: ownSlash}); err != nil {
		return nil, err
	}

	payout := new(big.Int)
	unapplied := &UnappliedSlash{Validator: p.stash, Own: new(big.Int), Payout: payout}

	insp, err := s.fetchSpans(p.stash, p.windowStart, rewardProportion, unapplied.Own, payout)
	if err != nil {
		return nil, err
	}
	targetIndex, inSpan, err := insp.compareAndUpdateSpanSlash(p.slashEra, ownSlash)
	if err != nil {
		return nil, err
	}
	if inSpan && targetIndex == insp.spans.SpanIndex {
		// offence in the current span: end it and deselect the offender
		insp.spans.endSpan(p.now)
		insp.dirty = true
		if err := s.forceChill(p.stash, out); err != nil {
			return nil, err
		}
	}
	if err := insp.save(); err != nil {
		return nil, err
	}

	if err := s.flagOffender(p.stash, p.now, p.strategy != DisableNever, out); err != nil {
		return nil, err
	}

	if err := s.slashCooperators(p, priorFraction, rewardProportion, unapplied); err != nil {
		return nil, err
	}
	return unapplied, nil
}

// kickOutIfRecent deselects an offender whose computed slash rounded to
// zero, provided the offence falls in its current span.
func (s *Service) kickOutIfRecent(p *slashParams, out *Outcome) error {
	sink := new(big.Int)
	insp, err := s.fetchSpans(p.stash, p.windowStart, 0, sink, sink)
	if err != nil {
		return err
	}
	if sp, ok := insp.spans.eraSpan(p.slashEra); ok && sp.index == insp.spans.SpanIndex {
		insp.spans.endSpan(p.now)
		insp.dirty = true
		if err := s.forceChill(p.stash, out); err != nil {
			return err
		}
	}
	if err := insp.save(); err != nil {
		return err
	}
	return s.flagOffender(p.stash, p.now, p.strategy == DisableAlways, out)
}

// slashCooperators accrues the per-era cooperator slashes driven by the
// validator's own-slash delta.
func (s *Service) slashCooperators(p *slashParams, priorFraction, rewardProportion vetrix.Quintill, unapplied *UnappliedSlash) error {
	for _, backer := range p.exposure.Others {
		priorCut := priorFraction.MulFloor(backer.Value)
		newCut := p.fraction.MulFloor(backer.Value)
		delta := new(big.Int).Sub(newCut, priorCut)
		if delta.Sign() < 0 {
			delta.SetInt64(0)
		}

		key := markKey(p.slashEra, backer.Who)
		accrued, err := s.coopMarks.Get(key)
		if err != nil {
			return err
		}
		accrued.Add(accrued, delta)
		if err := s.coopMarks.Set(key, accrued); err != nil {
			return err
		}

		slashed := new(big.Int)
		insp, err := s.fetchSpans(backer.Who, p.windowStart, rewardProportion, slashed, unapplied.Payout)
		if err != nil {
			return err
		}
		targetIndex, inSpan, err := insp.compareAndUpdateSpanSlash(p.slashEra, accrued)
		if err != nil {
			return err
		}
		if inSpan && targetIndex == insp.spans.SpanIndex {
			// end the span, but a backer is never deselected for it
			insp.spans.endSpan(p.now)
			insp.dirty = true
		}
		if err := insp.save(); err != nil {
			return err
		}
		unapplied.Others = append(unapplied.Others, SlashedEntry{Staker: backer.Who, Amount: slashed})
	}
	return nil
}

// forceChill drops the offender's roles, recording a Chilled entry once.
func (s *Service) forceChill(stash vetrix.Address, out *Outcome) error {
	chilled, err := s.elections.Chill(stash)
	if err != nil {
		return err
	}
	if chilled {
		out.Chilled = append(out.Chilled, stash)
	}
	return nil
}

// flagOffender marks the offender's elected-set index, maybe disabling
// it, and forces a new era past the offender threshold.
func (s *Service) flagOffender(stash vetrix.Address, activeEra uint32, disable bool, out *Outcome) error {
	elected, err := s.elections.Elected(activeEra)
	if err != nil {
		return err
	}
	idx := -1
	for i, v := range elected {
		if v == stash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	flags, err := s.offenders.Get()
	if err != nil {
		return err
	}
	pos := len(flags)
	for i, f := range flags {
		if f.Index == uint32(idx) {
			return nil
		}
		if f.Index > uint32(idx) {
			pos = i
			break
		}
	}

	if disable {
		// at most a third of the set may be disabled
		limit := (len(elected) - 1) / 3
		disabled := 0
		for _, f := range flags {
			if f.Disabled {
				disabled++
			}
		}
		disable = disabled < limit
	}

	flags = append(flags, OffenderFlag{})
	copy(flags[pos+1:], flags[pos:])
	flags[pos] = OffenderFlag{Index: uint32(idx), Disabled: disable}
	if err := s.offenders.Set(flags); err != nil {
		return err
	}

	threshold := vetrix.OffendingValidatorsThreshold.MulCeil(new(big.Int).SetUint64(uint64(len(elected))))
	if new(big.Int).SetUint64(uint64(len(flags))).Cmp(threshold) >= 0 {
		forced, err := s.ensureNewEra()
		if err != nil {
			return err
		}
		out.ForcedNewEra = out.ForcedNewEra || forced
	}
	return nil
}

// ensureNewEra requests an era rotation unless one is already forced.
func (s *Service) ensureNewEra() (bool, error) {
	mode, err := s.eras.Forcing()
	if err != nil {
		return false, err
	}
	if mode == era.ForceAlways || mode == era.ForceNew {
		return false, nil
	}
	return true, s.eras.SetForcing(era.ForceNew)
}

// applySlash realizes one unapplied slash: debit the stakes, burn the
// realized amounts and pay the reporters.
func (s *Service) applySlash(u *UnappliedSlash, slashEra uint32, out *Outcome) error {
	realized := new(big.Int)
	payout := new(big.Int).Set(u.Payout)

	doSlash := func(staker vetrix.Address, amount *big.Int) error {
		if amount.Sign() == 0 {
			return nil
		}
		ctrl, ok, err := s.ledgers.ControllerOf(staker)
		if err != nil || !ok {
			return err
		}
		got, err := s.ledgers.SlashStake(ctrl, amount, slashEra)
		if err != nil {
			return err
		}
		if got.Sign() == 0 {
			return nil
		}
		if got.Cmp(amount) < 0 {
			// the stake could not cover it; shrink the reward pool
			payout.Sub(payout, new(big.Int).Sub(amount, got))
			if payout.Sign() < 0 {
				payout.SetInt64(0)
			}
		}
		realized.Add(realized, got)
		out.Slashed = append(out.Slashed, SlashedEntry{Staker: staker, Amount: got})
		return nil
	}

	if err := doSlash(u.Validator, u.Own); err != nil {
		return err
	}
	for _, other := range u.Others {
		if err := doSlash(other.Staker, other.Amount); err != nil {
			return err
		}
	}
	return s.payReporters(payout, realized, u.Reporters)
}

// payReporters splits the reward pool evenly, routing the remainder of
// the realized slash to the sink.
func (s *Service) payReporters(payout, realized *big.Int, reporters []vetrix.Address) error {
	if payout.Sign() <= 0 || len(reporters) == 0 {
		return s.accounts.DepositToSink(realized)
	}
	if payout.Cmp(realized) > 0 {
		payout = new(big.Int).Set(realized)
	}
	per := new(big.Int).Div(payout, new(big.Int).SetUint64(uint64(len(reporters))))
	paid := new(big.Int)
	if per.Sign() > 0 {
		for _, reporter := range reporters {
			if err := s.accounts.Deposit(reporter, per); err != nil {
				return err
			}
			paid.Add(paid, per)
		}
	}
	return s.accounts.DepositToSink(new(big.Int).Sub(realized, paid))
}

// ApplyDeferred realizes every slash queued for the era, clearing the queue.
func (s *Service) ApplyDeferred(activeEra uint32) (*Outcome, error) {
	out := new(Outcome)
	key := state.U32Key(activeEra)
	queue, err := s.unapplied.Get(key)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return out, nil
	}
	// the queue key is the era the slash becomes due, the debit window
	// still derives from the era it was earned in
	slashEra := activeEra - s.slashDeferDuration - 1
	for i := range queue {
		if err := s.applySlash(&queue[i], slashEra, out); err != nil {
			return nil, err
		}
	}
	s.unapplied.Delete(key)
	logger.Info("deferred slashes applied", "era", activeEra, "count", len(queue))
	return out, nil
}

// UnappliedSlashes returns the queue due at the era.
func (s *Service) UnappliedSlashes(dueEra uint32) ([]UnappliedSlash, error) {
	return s.unapplied.Get(state.U32Key(dueEra))
}

// CancelDeferredSlash removes exactly the indicated entries from the
// queue due at the era. Indices must be sorted, unique and in range.
func (s *Service) CancelDeferredSlash(dueEra uint32, indices []uint32) error {
	if len(indices) == 0 {
		return reverts.ErrEmptyTargets
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] <= indices[i-1] {
			return reverts.ErrNotSortedAndUnique
		}
	}
	key := state.U32Key(dueEra)
	queue, err := s.unapplied.Get(key)
	if err != nil {
		return err
	}
	if int(indices[len(indices)-1]) >= len(queue) {
		return reverts.ErrInvalidSlashIndex
	}
	kept := queue[:0]
	drop := 0
	for i := range queue {
		if drop < len(indices) && uint32(i) == indices[drop] {
			drop++
			continue
		}
		kept = append(kept, queue[i])
	}
	return s.unapplied.Set(key, kept)
}

// SpanCountOf returns the number of slashing spans recorded for the stash.
func (s *Service) SpanCountOf(stash vetrix.Address) (uint32, error) {
	ok, err := s.spans.Has(stash)
	if err != nil || !ok {
		return 0, err
	}
	spans, err := s.spans.Get(stash)
	if err != nil {
		return 0, err
	}
	return spans.count(), nil
}

// ClearStashMetadata removes the stash's spans and span records. The
// caller must supply at least the actual span count, proving it knows
// the removal cost.
func (s *Service) ClearStashMetadata(stash vetrix.Address, spanCount uint32) error {
	ok, err := s.spans.Has(stash)
	if err != nil || !ok {
		return err
	}
	spans, err := s.spans.Get(stash)
	if err != nil {
		return err
	}
	if spanCount < spans.count() {
		return reverts.ErrIncorrectSlashingSpans
	}
	earliest := spans.SpanIndex - uint32(len(spans.Prior))
	for i := earliest; i <= spans.SpanIndex; i++ {
		s.spanRecords.Delete(spanRecordKey(stash, i))
	}
	s.spans.Delete(stash)
	return nil
}

// PruneEraMetadata drops the per-era slash marks of an era that left the
// bonding window.
func (s *Service) PruneEraMetadata(era uint32) error {
	if _, err := s.valMarks.DeletePrefix(state.U32Key(era).Bytes()); err != nil {
		return err
	}
	_, err := s.coopMarks.DeletePrefix(state.U32Key(era).Bytes())
	return err
}

// Offenders returns the flagged elected-set indexes.
func (s *Service) Offenders() ([]OffenderFlag, error) {
	return s.offenders.Get()
}

// DisabledIndexes returns the elected-set indexes currently disabled.
func (s *Service) DisabledIndexes() ([]uint32, error) {
	flags, err := s.offenders.Get()
	if err != nil {
		return nil, err
	}
	var disabled []uint32
	for _, f := range flags {
		if f.Disabled {
			disabled = append(disabled, f.Index)
		}
	}
	return disabled, nil
}

// ClearOffenders wipes the offender flags at era end.
func (s *Service) ClearOffenders() {
	s.offenders.Delete()
}

// spanInspector stages mutations of one staker's spans and records.
type spanInspector struct {
	svc              *Service
	stash            vetrix.Address
	spans            SlashingSpans
	dirty            bool
	rewardProportion vetrix.Quintill

	slashOf *big.Int // accumulated principal for this staker
	paidOut *big.Int // accumulated reporter payout (shared pool)
}

// fetchSpans loads (or opens) the stash's spans, pruning those fallen
// out of the bonding window together with their records.
func (s *Service) fetchSpans(
	stash vetrix.Address,
	windowStart uint32,
	rewardProportion vetrix.Quintill,
	slashOf, paidOut *big.Int,
) (*spanInspector, error) {
	insp := &spanInspector{
		svc:              s,
		stash:            stash,
		rewardProportion: rewardProportion,
		slashOf:          slashOf,
		paidOut:          paidOut,
	}
	ok, err := s.spans.Has(stash)
	if err != nil {
		return nil, err
	}
	if !ok {
		insp.spans = newSpans(windowStart)
		insp.dirty = true
		return insp, nil
	}
	insp.spans, err = s.spans.Get(stash)
	if err != nil {
		return nil, err
	}
	if from, to, pruned := insp.spans.prune(windowStart); pruned {
		for i := from; i < to; i++ {
			s.spanRecords.Delete(spanRecordKey(stash, i))
		}
		insp.dirty = true
	}
	return insp, nil
}

// compareAndUpdateSpanSlash applies the slash against the span's running
// maximum: only the excess over the recorded maximum adds principal, and
// the reporter reward covers only what earlier reports left unpaid.
func (insp *spanInspector) compareAndUpdateSpanSlash(slashEra uint32, slash *big.Int) (uint32, bool, error) {
	target, ok := insp.spans.eraSpan(slashEra)
	if !ok {
		return 0, false, nil
	}
	key := spanRecordKey(insp.stash, target.index)
	record, err := insp.svc.spanRecords.Get(key)
	if err != nil {
		return 0, false, err
	}
	if record.Slashed == nil {
		record.Slashed = new(big.Int)
	}
	if record.PaidOut == nil {
		record.PaidOut = new(big.Int)
	}

	changed := false
	reward := new(big.Int)
	switch record.Slashed.Cmp(slash) {
	case -1:
		// new span maximum, only the difference adds principal
		difference := new(big.Int).Sub(slash, record.Slashed)
		record.Slashed = new(big.Int).Set(slash)
		reward = insp.uncoveredReward(slash, record.PaidOut)
		insp.slashOf.Add(insp.slashOf, difference)
		if slashEra > insp.spans.LastNonzeroSlash {
			insp.spans.LastNonzeroSlash = slashEra
		}
		changed = true
	case 0:
		// the maximum stands, but unpaid reward may remain
		reward = insp.uncoveredReward(slash, record.PaidOut)
	}

	if reward.Sign() > 0 {
		record.PaidOut.Add(record.PaidOut, reward)
		insp.paidOut.Add(insp.paidOut, reward)
		changed = true
	}
	if changed {
		insp.dirty = true
		if err := insp.svc.spanRecords.Set(key, record); err != nil {
			return 0, false, err
		}
	}
	return target.index, true, nil
}

func (insp *spanInspector) uncoveredReward(slash, paidOut *big.Int) *big.Int {
	due := insp.rewardProportion.MulFloor(slash)
	due.Sub(due, paidOut)
	if due.Sign() <= 0 {
		return new(big.Int)
	}
	return reporterSplit.MulFloor(due)
}

func (insp *spanInspector) save() error {
	if !insp.dirty {
		return nil
	}
	insp.dirty = false
	return insp.svc.spans.Set(insp.stash, insp.spans)
}
