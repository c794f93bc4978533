// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vetrixchain/vetrix/staking"
	"github.com/vetrixchain/vetrix/vetrix"
)

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)

	eng, closeEngine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()
	eng.Events() // genesis events are not part of the report

	return inspect(os.Stdout, eng)
}

func inspect(w io.Writer, eng *staking.Engine) error {
	count, err := eng.ValidatorCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "validator count target: %d\n", count)

	current, ok, err := eng.CurrentEra()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "current era: pending bootstrap")
		return nil
	}
	fmt.Fprintf(w, "current era: %d\n", current)

	active, ok, err := eng.ActiveEra()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "active era: none")
		return nil
	}
	if active.HasStart {
		fmt.Fprintf(w, "active era: %d (started at %d)\n", active.Index, active.Start)
	} else {
		fmt.Fprintf(w, "active era: %d\n", active.Index)
	}

	invulnerables, err := eng.Invulnerables()
	if err != nil {
		return err
	}
	for _, a := range invulnerables {
		fmt.Fprintf(w, "invulnerable: %s\n", a)
	}

	disabled, err := eng.DisabledIndexes()
	if err != nil {
		return err
	}

	elected, err := eng.Elected(active.Index)
	if err != nil {
		return err
	}
	for i, validator := range elected {
		if err := inspectValidator(w, eng, active.Index, uint32(i), validator, contains(disabled, uint32(i))); err != nil {
			return err
		}
	}
	return nil
}

func inspectValidator(w io.Writer, eng *staking.Engine, era, index uint32, validator vetrix.Address, disabled bool) error {
	prefs, _, err := eng.PrefsOf(validator)
	if err != nil {
		return err
	}
	exposure, _, err := eng.ExposureOf(era, validator)
	if err != nil {
		return err
	}
	l, err := eng.LedgerOf(validator)
	if err != nil {
		return err
	}

	state := ""
	if disabled {
		state = " DISABLED"
	}
	fmt.Fprintf(w, "validator %d: %s%s\n", index, validator, state)
	fmt.Fprintf(w, "  commission: %s collaborative: %v\n", prefs.Commission, prefs.Collaborative)
	fmt.Fprintf(w, "  ledger: total %s active %s unlocking %d\n", l.Total, l.Active, len(l.Unlocking))
	fmt.Fprintf(w, "  exposure: own %s total %s\n", exposure.Own, exposure.Total)
	for _, backer := range exposure.Others {
		fmt.Fprintf(w, "  backer: %s value %s\n", backer.Who, backer.Value)
	}
	return nil
}

func contains(indexes []uint32, i uint32) bool {
	for _, idx := range indexes {
		if idx == i {
			return true
		}
	}
	return false
}
