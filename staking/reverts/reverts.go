// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the typed error taxonomy of the staking engine.
// A revert aborts its operation with zero state mutation. Anything that is
// not a revert (storage failure, decode failure) is an internal error and
// is never represented here.
package reverts

import (
	"errors"
)

// Code identifies one revert reason.
type Code uint8

const (
	CodeUnknown Code = iota

	// identity
	CodeNotStash
	CodeNotController
	CodeAlreadyBonded
	CodeAlreadyPaired

	// economic preconditions
	CodeInsufficientBond
	CodeFundedTarget
	CodeBoundNotMet

	// capacity
	CodeNoMoreChunks
	CodeTooManyTargets
	CodeTooManyValidators
	CodeTooManyCooperators

	// temporal
	CodeInvalidEraToReward
	CodeInvalidEraToSlash
	CodeAlreadyClaimed
	CodeNoUnlockChunk

	// authorization
	CodeCannotChillOther
	CodeBadTarget
	CodeReputationTooLow
	CodeCommissionTooLow

	// malformed batches
	CodeEmptyTargets
	CodeInvalidSlashIndex
	CodeNotSortedAndUnique
	CodeDuplicateIndex
	CodeIncorrectSlashingSpans

	// storage inconsistency surfaced as a revert
	CodeBadState
)

// ErrRevert is a typed operation abort.
type ErrRevert struct {
	code    Code
	message string
}

// New creates a revert with the given code and message.
func New(code Code, message string) *ErrRevert {
	return &ErrRevert{
		code:    code,
		message: message,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

// Code returns the revert reason code.
func (e *ErrRevert) Code() Code {
	return e.code
}

// Is matches reverts by code, so errors.Is(err, reverts.ErrAlreadyBonded)
// works regardless of the message.
func (e *ErrRevert) Is(target error) bool {
	var t *ErrRevert
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// IsRevertErr reports whether err is (or wraps) a revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// One sentinel per revert reason.
var (
	ErrNotStash      = New(CodeNotStash, "not a stash account")
	ErrNotController = New(CodeNotController, "not a controller account")
	ErrAlreadyBonded = New(CodeAlreadyBonded, "stash already bonded")
	ErrAlreadyPaired = New(CodeAlreadyPaired, "controller already paired")

	ErrInsufficientBond = New(CodeInsufficientBond, "bond below required minimum")
	ErrFundedTarget     = New(CodeFundedTarget, "stash still holds funds")
	ErrBoundNotMet      = New(CodeBoundNotMet, "configured bound not met")

	ErrNoMoreChunks       = New(CodeNoMoreChunks, "unlocking queue at capacity")
	ErrTooManyTargets     = New(CodeTooManyTargets, "too many cooperation targets")
	ErrTooManyValidators  = New(CodeTooManyValidators, "validator capacity reached")
	ErrTooManyCooperators = New(CodeTooManyCooperators, "cooperator capacity reached")

	ErrInvalidEraToReward = New(CodeInvalidEraToReward, "era outside the reward window")
	ErrInvalidEraToSlash  = New(CodeInvalidEraToSlash, "era outside the slash window")
	ErrAlreadyClaimed     = New(CodeAlreadyClaimed, "reward already claimed for era")
	ErrNoUnlockChunk      = New(CodeNoUnlockChunk, "no unlocking chunk to rebond")

	ErrCannotChillOther  = New(CodeCannotChillOther, "cannot chill other account")
	ErrBadTarget         = New(CodeBadTarget, "target not an eligible validator")
	ErrReputationTooLow  = New(CodeReputationTooLow, "reputation below required threshold")
	ErrCommissionTooLow  = New(CodeCommissionTooLow, "commission below configured minimum")

	ErrEmptyTargets           = New(CodeEmptyTargets, "empty target list")
	ErrInvalidSlashIndex      = New(CodeInvalidSlashIndex, "slash index out of range")
	ErrNotSortedAndUnique     = New(CodeNotSortedAndUnique, "indices not sorted and unique")
	ErrDuplicateIndex         = New(CodeDuplicateIndex, "duplicate index")
	ErrIncorrectSlashingSpans = New(CodeIncorrectSlashingSpans, "incorrect slashing span count")

	ErrBadState = New(CodeBadState, "inconsistent engine state")
)
