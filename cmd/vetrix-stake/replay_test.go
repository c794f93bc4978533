// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vetrixchain/vetrix/genesis"
	"github.com/vetrixchain/vetrix/stakedb"
	"github.com/vetrixchain/vetrix/staking"
	"github.com/vetrixchain/vetrix/state"
)

func newDevnetEngine(t *testing.T) *staking.Engine {
	db, err := stakedb.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng := staking.New(state.New(db), staking.DefaultParams())
	require.NoError(t, genesis.NewDevnet().Build(eng))
	return eng
}

const scenarioDoc = `
steps:
  - command:
      op: bond
      stash: "0x07b8e21533833169a2c5bedd4d81000b1c6bf737"
      controller: "0x07b8e21533833169a2c5bedd4d81000b1c6bf737"
      value: 300000000000000
      payee: stash
  - command:
      op: validate
      controller: "0x07b8e21533833169a2c5bedd4d81000b1c6bf737"
      validator:
        commissionPercent: 3
        collaborative: true
  - sessions: 6
  - offence:
      offender: "0x33a4e3225528069fd4d27c57c7c6df55c435f50e"
      percent: 10
`

func TestReplayScenario(t *testing.T) {
	var sc scenario
	require.NoError(t, yaml.Unmarshal([]byte(scenarioDoc), &sc))
	require.Len(t, sc.Steps, 4)

	eng := newDevnetEngine(t)
	var buf bytes.Buffer
	r := replayer{eng: eng, out: &buf}
	require.NoError(t, r.run(&sc))

	out := buf.String()
	assert.Contains(t, out, "genesis: StakersElected")
	assert.Contains(t, out, "Bonded")
	assert.Contains(t, out, "ValidatorPrefsSet")
	assert.Contains(t, out, "session 6: StakersElected")
	assert.Contains(t, out, "SlashReported")

	// the new validator made it into era 1
	elected, err := eng.Elected(1)
	require.NoError(t, err)
	assert.Len(t, elected, 5)
}

func TestReplayRejectedCommandKeepsGoing(t *testing.T) {
	doc := `
steps:
  - command:
      op: bond
      stash: "0x33a4e3225528069fd4d27c57c7c6df55c435f50e"
      controller: "0x33a4e3225528069fd4d27c57c7c6df55c435f50e"
      value: 1000000000
  - sessions: 1
`
	var sc scenario
	require.NoError(t, yaml.Unmarshal([]byte(doc), &sc))

	eng := newDevnetEngine(t)
	var buf bytes.Buffer
	r := replayer{eng: eng, out: &buf}
	require.NoError(t, r.run(&sc))

	// the dev account is already bonded, so the command is rejected
	// without stopping the replay
	assert.Contains(t, buf.String(), "rejected")
	assert.Contains(t, buf.String(), "session 1")
}

func TestInspectReport(t *testing.T) {
	eng := newDevnetEngine(t)
	eng.Events()

	var buf bytes.Buffer
	require.NoError(t, inspect(&buf, eng))

	out := buf.String()
	assert.Contains(t, out, "current era: 0")
	assert.Contains(t, out, "active era: 0")
	assert.Contains(t, out, "validator 0:")
	assert.Contains(t, out, "backer:")
}
