// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRevertMatching(t *testing.T) {
	err := New(CodeAlreadyBonded, "stash 0xabc already bonded")

	assert.True(t, errors.Is(err, ErrAlreadyBonded))
	assert.False(t, errors.Is(err, ErrAlreadyPaired))
	assert.Equal(t, CodeAlreadyBonded, err.Code())
}

func TestRevertMatchingThroughWrap(t *testing.T) {
	err := pkgerrors.Wrap(ErrNoMoreChunks, "unbond failed")

	assert.True(t, errors.Is(err, ErrNoMoreChunks))
	assert.True(t, IsRevertErr(err))
}

func TestIsRevertErr(t *testing.T) {
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr("not an error"))
	assert.False(t, IsRevertErr(errors.New("plain")))
	assert.True(t, IsRevertErr(ErrBadTarget))
}
