// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/events"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/vetrix"
)

// CommandKind names one dispatchable operation.
type CommandKind string

const (
	CmdEndow                   CommandKind = "endow"
	CmdBond                    CommandKind = "bond"
	CmdBondExtra               CommandKind = "bond_extra"
	CmdUnbond                  CommandKind = "unbond"
	CmdWithdrawUnbonded        CommandKind = "withdraw_unbonded"
	CmdValidate                CommandKind = "validate"
	CmdCooperate               CommandKind = "cooperate"
	CmdChill                   CommandKind = "chill"
	CmdChillOther              CommandKind = "chill_other"
	CmdSetPayee                CommandKind = "set_payee"
	CmdSetController           CommandKind = "set_controller"
	CmdPayoutStakers           CommandKind = "payout_stakers"
	CmdRebond                  CommandKind = "rebond"
	CmdReapStash               CommandKind = "reap_stash"
	CmdKick                    CommandKind = "kick"
	CmdForceUnstake            CommandKind = "force_unstake"
	CmdSetValidatorCount       CommandKind = "set_validator_count"
	CmdIncreaseValidatorCount  CommandKind = "increase_validator_count"
	CmdScaleValidatorCount     CommandKind = "scale_validator_count"
	CmdForceNoEras             CommandKind = "force_no_eras"
	CmdForceNewEra             CommandKind = "force_new_era"
	CmdForceNewEraAlways       CommandKind = "force_new_era_always"
	CmdSetInvulnerables        CommandKind = "set_invulnerables"
	CmdCancelDeferredSlash     CommandKind = "cancel_deferred_slash"
	CmdSetStakingConfigs       CommandKind = "set_staking_configs"
	CmdSetMinCommission        CommandKind = "set_min_commission"
	CmdSetEraRewardRate        CommandKind = "set_era_reward_rate"
	CmdForceApplyMinCommission CommandKind = "force_apply_min_commission"
	CmdMakeCollaborative       CommandKind = "make_collaborative"
)

// Command is one dispatchable operation with its arguments. Only the
// fields the kind consumes need to be set.
type Command struct {
	Kind CommandKind

	Stash      vetrix.Address
	Controller vetrix.Address
	Value      *big.Int
	Payee      ledger.Destination
	Prefs      election.Prefs
	Targets    []election.CoopTarget
	Backers    []vetrix.Address
	Era        uint32
	Indices    []uint32
	Count      uint32
	Factor     vetrix.Quintill
	SpanCount  uint32
	Configs    configs.Update
	Commission vetrix.Quintill
	Rate       vetrix.Quintill
}

// Dispatch routes the command to its operation and returns the events
// it emitted. A failed command emits nothing.
func (e *Engine) Dispatch(cmd Command) ([]events.Event, error) {
	mark := e.events.Len()
	var err error
	switch cmd.Kind {
	case CmdEndow:
		err = e.Endow(cmd.Stash, cmd.Value)
	case CmdBond:
		err = e.Bond(cmd.Stash, cmd.Controller, cmd.Value, cmd.Payee)
	case CmdBondExtra:
		err = e.BondExtra(cmd.Stash, cmd.Value)
	case CmdUnbond:
		err = e.Unbond(cmd.Controller, cmd.Value)
	case CmdWithdrawUnbonded:
		err = e.WithdrawUnbonded(cmd.Controller, cmd.SpanCount)
	case CmdValidate:
		err = e.Validate(cmd.Controller, cmd.Prefs)
	case CmdCooperate:
		err = e.Cooperate(cmd.Controller, cmd.Targets)
	case CmdChill:
		err = e.Chill(cmd.Controller)
	case CmdChillOther:
		err = e.ChillOther(cmd.Controller)
	case CmdSetPayee:
		err = e.SetPayee(cmd.Controller, cmd.Payee)
	case CmdSetController:
		err = e.SetController(cmd.Stash, cmd.Controller)
	case CmdPayoutStakers:
		err = e.PayoutStakers(cmd.Stash, cmd.Era)
	case CmdRebond:
		err = e.Rebond(cmd.Controller, cmd.Value)
	case CmdReapStash:
		err = e.ReapStash(cmd.Stash, cmd.SpanCount)
	case CmdKick:
		err = e.Kick(cmd.Controller, cmd.Backers)
	case CmdForceUnstake:
		err = e.ForceUnstake(cmd.Stash, cmd.SpanCount)
	case CmdSetValidatorCount:
		err = e.SetValidatorCount(cmd.Count)
	case CmdIncreaseValidatorCount:
		err = e.IncreaseValidatorCount(cmd.Count)
	case CmdScaleValidatorCount:
		err = e.ScaleValidatorCount(cmd.Factor)
	case CmdForceNoEras:
		err = e.ForceNoEras()
	case CmdForceNewEra:
		err = e.ForceNewEra()
	case CmdForceNewEraAlways:
		err = e.ForceNewEraAlways()
	case CmdSetInvulnerables:
		err = e.SetInvulnerables(cmd.Backers)
	case CmdCancelDeferredSlash:
		err = e.CancelDeferredSlash(cmd.Era, cmd.Indices)
	case CmdSetStakingConfigs:
		err = e.SetStakingConfigs(cmd.Configs)
	case CmdSetMinCommission:
		err = e.SetMinCommission(cmd.Commission)
	case CmdSetEraRewardRate:
		err = e.SetEraRewardRate(cmd.Rate)
	case CmdForceApplyMinCommission:
		err = e.ForceApplyMinCommission(cmd.Stash)
	case CmdMakeCollaborative:
		err = e.MakeCollaborative(cmd.Stash)
	default:
		err = errors.Errorf("unknown command kind %q", cmd.Kind)
	}
	if err != nil {
		return nil, err
	}
	return e.events.Pending()[mark:], nil
}
