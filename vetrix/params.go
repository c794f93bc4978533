// Copyright (c) 2025 The Vetrix developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vetrix

import "math/big"

// Constants of the staking protocol.
const (
	SessionsPerEra     uint32 = 6  // sessions composing one era.
	BondingDuration    uint32 = 28 // eras a withdrawal must wait before funds free.
	SlashDeferDuration uint32 = 27 // eras a computed slash stays cancellable before it executes.
	HistoryDepth       uint32 = 84 // eras of election/payout history kept in storage.

	MaxUnlockingChunks                = 32  // capacity of a ledger's withdrawal queue.
	MaxCooperations                   = 16  // validators one backer may declare.
	MaxCooperatorRewardedPerValidator = 64  // backers paid per validator per era.
	MaxBackersPerValidator            = 256 // capacity of one validator's backer set.

	MinimumValidatorCount uint32 = 4 // elections yielding fewer candidates abort.

	BlockAuthoringReward uint64 = 24 // reputation points per authored block, per active validator.
)

// ExistentialDeposit is the minimum stake that keeps a ledger alive.
var ExistentialDeposit = big.NewInt(1e9)

// OffendingValidatorsThreshold is the elected-set offender fraction that forces a new era.
var OffendingValidatorsThreshold = QuintillFromPercent(33)

// InitialSlashRewardFraction is the default reporter cut of realized slashes.
var InitialSlashRewardFraction = QuintillFromPercent(10)

// InitialEraRewardRate is the default payout per staked unit and era.
var InitialEraRewardRate = QuintillFromPercent(5)
