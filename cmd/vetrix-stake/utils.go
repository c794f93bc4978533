// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vetrixchain/vetrix/genesis"
	"github.com/vetrixchain/vetrix/log"
	"github.com/vetrixchain/vetrix/metrics"
	"github.com/vetrixchain/vetrix/stakedb"
	"github.com/vetrixchain/vetrix/staking"
	"github.com/vetrixchain/vetrix/state"
)

// genesisBuiltKey marks a database whose genesis has been applied.
var genesisBuiltKey = []byte("meta-genesis-built")

func initLogger(ctx *cli.Context) {
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func initMetrics(ctx *cli.Context) {
	if ctx.GlobalBool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
}

func selectGenesis(ctx *cli.Context) (*genesis.CustomGenesis, error) {
	path := ctx.GlobalString(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read genesis")
	}
	return genesis.FromYAML(data)
}

// openEngine opens the staking database and builds genesis on a fresh
// one. The returned closer must be called before exit.
func openEngine(ctx *cli.Context) (*staking.Engine, func(), error) {
	var (
		db  *stakedb.StakeDB
		err error
	)
	if dir := ctx.GlobalString(dataDirFlag.Name); dir != "" {
		db, err = stakedb.Open(filepath.Join(dir, "staking.db"), nil)
	} else {
		db, err = stakedb.OpenMem()
	}
	if err != nil {
		return nil, nil, errors.WithMessage(err, "open staking database")
	}
	closer := func() {
		log.Info("closing staking database...")
		if err := db.Close(); err != nil {
			log.Warn("close staking database", "err", err)
		}
	}

	eng := staking.New(state.New(db), staking.DefaultParams())

	built, err := db.Has(genesisBuiltKey)
	if err != nil {
		closer()
		return nil, nil, err
	}
	if !built {
		gene, err := selectGenesis(ctx)
		if err != nil {
			closer()
			return nil, nil, err
		}
		if err := gene.Build(eng); err != nil {
			closer()
			return nil, nil, errors.WithMessage(err, "build genesis")
		}
		if err := db.Put(genesisBuiltKey, []byte{1}); err != nil {
			closer()
			return nil, nil, err
		}
		log.Info("genesis built", "stakers", len(gene.Stakers))
	}
	return eng, closer, nil
}
