// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package era keeps the era bookkeeping: the planned and active era
// counters, the forcing mode, the session indexes eras started at and
// the bonded-era history the slashing window is resolved against. The
// session-driven transitions themselves are orchestrated by the engine.
package era

import (
	"encoding/binary"

	"github.com/vetrixchain/vetrix/state"
	"github.com/vetrixchain/vetrix/vetrix"
)

// Forcing is the era-rotation override mode.
type Forcing uint8

const (
	// NotForcing rotates eras on the SessionsPerEra cadence.
	NotForcing Forcing = iota
	// ForceNew rotates at the next session, then resets to NotForcing.
	ForceNew
	// ForceNone never rotates.
	ForceNone
	// ForceAlways rotates at every session.
	ForceAlways
)

func (f Forcing) String() string {
	switch f {
	case NotForcing:
		return "NotForcing"
	case ForceNew:
		return "ForceNew"
	case ForceNone:
		return "ForceNone"
	case ForceAlways:
		return "ForceAlways"
	default:
		return "Unknown"
	}
}

// ActiveEraInfo describes the era currently being rewarded.
type ActiveEraInfo struct {
	Index uint32
	// Start is the wall-clock start, set by the first tick of the era.
	Start    uint64
	HasStart bool
}

// EraSession pairs an era with the session index it was planned at.
type EraSession struct {
	Era          uint32
	StartSession uint32
}

// Service stores the era state.
type Service struct {
	currentEra     *state.Slot[uint32]
	hasCurrentEra  *state.Slot[bool]
	activeEra      *state.Slot[ActiveEraInfo]
	hasActiveEra   *state.Slot[bool]
	forcing        *state.Slot[Forcing]
	startSessions  *state.Mapping[state.RawKey, uint32] // era → start session index
	bondedEras     *state.Slot[[]EraSession]
	plannedSession *state.Slot[uint32]
}

// New creates the era service over the given state.
func New(st *state.State) *Service {
	return &Service{
		currentEra:     state.NewSlot[uint32](st, "era-current"),
		hasCurrentEra:  state.NewSlot[bool](st, "era-current-set"),
		activeEra:      state.NewSlot[ActiveEraInfo](st, "era-active"),
		hasActiveEra:   state.NewSlot[bool](st, "era-active-set"),
		forcing:        state.NewSlot[Forcing](st, "era-forcing"),
		startSessions:  state.NewMapping[state.RawKey, uint32](st, "era-start-session"),
		bondedEras:     state.NewSlot[[]EraSession](st, "era-bonded"),
		plannedSession: state.NewSlot[uint32](st, "era-planned-session"),
	}
}

// CurrentEra returns the planned era counter; ok is false before bootstrap.
func (s *Service) CurrentEra() (uint32, bool, error) {
	set, err := s.hasCurrentEra.Get()
	if err != nil || !set {
		return 0, false, err
	}
	era, err := s.currentEra.Get()
	return era, true, err
}

// SetCurrentEra overwrites the planned era counter.
func (s *Service) SetCurrentEra(era uint32) error {
	if err := s.hasCurrentEra.Set(true); err != nil {
		return err
	}
	return s.currentEra.Set(era)
}

// ActiveEra returns the rewarded era; ok is false before the first start.
func (s *Service) ActiveEra() (ActiveEraInfo, bool, error) {
	set, err := s.hasActiveEra.Get()
	if err != nil || !set {
		return ActiveEraInfo{}, false, err
	}
	info, err := s.activeEra.Get()
	return info, true, err
}

// SetActiveEra overwrites the rewarded era.
func (s *Service) SetActiveEra(info ActiveEraInfo) error {
	if err := s.hasActiveEra.Set(true); err != nil {
		return err
	}
	return s.activeEra.Set(info)
}

// Forcing returns the rotation override mode.
func (s *Service) Forcing() (Forcing, error) {
	return s.forcing.Get()
}

// SetForcing overwrites the rotation override mode.
func (s *Service) SetForcing(mode Forcing) error {
	return s.forcing.Set(mode)
}

// StartSessionOf returns the session index the era was planned at.
func (s *Service) StartSessionOf(era uint32) (uint32, bool, error) {
	key := state.U32Key(era)
	ok, err := s.startSessions.Has(key)
	if err != nil || !ok {
		return 0, false, err
	}
	idx, err := s.startSessions.Get(key)
	return idx, true, err
}

// SetStartSessionOf records the session index the era was planned at.
func (s *Service) SetStartSessionOf(era, sessionIndex uint32) error {
	return s.startSessions.Set(state.U32Key(era), sessionIndex)
}

// PruneStartSessionBefore drops start-session records of eras below the
// given one.
func (s *Service) PruneStartSessionBefore(era uint32) error {
	var stale []uint32
	if err := s.startSessions.Iterate(func(key []byte, _ uint32) (bool, error) {
		e := keyToEra(key)
		if e >= era {
			return false, nil
		}
		stale = append(stale, e)
		return true, nil
	}); err != nil {
		return err
	}
	for _, e := range stale {
		s.startSessions.Delete(state.U32Key(e))
	}
	return nil
}

// CurrentPlannedSession returns the latest session index seen by planning.
func (s *Service) CurrentPlannedSession() (uint32, error) {
	return s.plannedSession.Get()
}

// SetCurrentPlannedSession records the latest planned session index.
func (s *Service) SetCurrentPlannedSession(i uint32) error {
	return s.plannedSession.Set(i)
}

// BondedEras returns the (era, startSession) history inside the bonding
// window, oldest first.
func (s *Service) BondedEras() ([]EraSession, error) {
	return s.bondedEras.Get()
}

// PushBondedEra appends the era to the bonded history.
func (s *Service) PushBondedEra(era, startSession uint32) error {
	eras, err := s.bondedEras.Get()
	if err != nil {
		return err
	}
	return s.bondedEras.Set(append(eras, EraSession{Era: era, StartSession: startSession}))
}

// PruneBondedBefore drops bonded eras older than the given era, returning
// the pruned ones so the caller can garbage-collect their slash metadata.
func (s *Service) PruneBondedBefore(era uint32) ([]EraSession, error) {
	eras, err := s.bondedEras.Get()
	if err != nil {
		return nil, err
	}
	i := 0
	for i < len(eras) && eras[i].Era < era {
		i++
	}
	if i == 0 {
		return nil, nil
	}
	pruned := eras[:i]
	if err := s.bondedEras.Set(eras[i:]); err != nil {
		return nil, err
	}
	return pruned, nil
}

// ShouldPlanNewEra decides whether the planning pass of the given session
// triggers an era rotation. Bootstrap (no current era) always triggers.
func (s *Service) ShouldPlanNewEra(sessionIndex uint32) (bool, error) {
	current, ok, err := s.CurrentEra()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	forcing, err := s.Forcing()
	if err != nil {
		return false, err
	}
	switch forcing {
	case ForceNew, ForceAlways:
		return true, nil
	case ForceNone:
		return false, nil
	}
	start, ok, err := s.StartSessionOf(current)
	if err != nil {
		return false, err
	}
	if !ok {
		// planned before its start record exists, should not happen
		return false, nil
	}
	return sessionIndex-start >= vetrix.SessionsPerEra, nil
}

func keyToEra(key []byte) uint32 {
	return binary.BigEndian.Uint32(key)
}
