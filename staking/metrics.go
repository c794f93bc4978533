// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/vetrixchain/vetrix/metrics"

var (
	metricOperations        = metrics.LazyLoadCounterVec("staking_operation_count", []string{"op", "result"})
	metricSlashesApplied    = metrics.LazyLoadCounter("staking_applied_slash_count")
	metricEraTransitions    = metrics.LazyLoadCounter("staking_era_transition_count")
	metricPayoutFanout      = metrics.LazyLoadCounter("staking_payout_payment_count")
	metricElectedValidators = metrics.LazyLoadGauge("staking_elected_validator_count")
	metricSessionIndex      = metrics.LazyLoadGaugeVec("staking_session_index", []string{"phase"})
)
