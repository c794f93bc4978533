// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "vetrix-stake",
		Usage:     "staking engine of the Vetrix network",
		Copyright: "2025 Vetrix",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
		},
		Commands: []cli.Command{
			{
				Name:      "replay",
				Usage:     "replay a scenario file against the engine and dump the emitted events",
				ArgsUsage: "<scenario.yaml>",
				Action:    replayAction,
			},
			{
				Name:   "inspect",
				Usage:  "print the current staking state",
				Action: inspectAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
