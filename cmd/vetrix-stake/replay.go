// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vetrixchain/vetrix/genesis"
	"github.com/vetrixchain/vetrix/staking"
	"github.com/vetrixchain/vetrix/staking/election"
	"github.com/vetrixchain/vetrix/staking/events"
	"github.com/vetrixchain/vetrix/staking/slashing"
	"github.com/vetrixchain/vetrix/vetrix"
)

// scenario is a replayable sequence of steps. Each step either advances
// session boundaries, reports an offence, or dispatches one command.
type scenario struct {
	Steps []step `yaml:"steps"`
}

type step struct {
	Sessions int          `yaml:"sessions,omitempty"`
	Offence  *offenceSpec `yaml:"offence,omitempty"`
	Command  *commandSpec `yaml:"command,omitempty"`
}

type offenceSpec struct {
	Offender  genesis.Address   `yaml:"offender"`
	Percent   uint64            `yaml:"percent"`
	Reporters []genesis.Address `yaml:"reporters,omitempty"`
}

// commandSpec is the yaml form of staking.Command. Fractions are given
// in percent.
type commandSpec struct {
	Op                string                    `yaml:"op"`
	Stash             *genesis.Address          `yaml:"stash,omitempty"`
	Controller        *genesis.Address          `yaml:"controller,omitempty"`
	Value             *genesis.HexOrDecimal256  `yaml:"value,omitempty"`
	Payee             string                    `yaml:"payee,omitempty"`
	Validator         *genesis.ValidatorPrefs   `yaml:"validator,omitempty"`
	Targets           []genesis.CoopTarget      `yaml:"targets,omitempty"`
	Backers           []genesis.Address         `yaml:"backers,omitempty"`
	Era               uint32                    `yaml:"era,omitempty"`
	Indices           []uint32                  `yaml:"indices,omitempty"`
	Count             uint32                    `yaml:"count,omitempty"`
	SpanCount         uint32                    `yaml:"spanCount,omitempty"`
	FactorPercent     uint64                    `yaml:"factorPercent,omitempty"`
	CommissionPercent uint64                    `yaml:"commissionPercent,omitempty"`
	RatePercent       uint64                    `yaml:"ratePercent,omitempty"`
}

func (c *commandSpec) command() (staking.Command, error) {
	cmd := staking.Command{
		Kind:       staking.CommandKind(c.Op),
		Era:        c.Era,
		Indices:    c.Indices,
		Count:      c.Count,
		SpanCount:  c.SpanCount,
		Factor:     vetrix.QuintillFromPercent(c.FactorPercent),
		Commission: vetrix.QuintillFromPercent(c.CommissionPercent),
		Rate:       vetrix.QuintillFromPercent(c.RatePercent),
		Value:      new(big.Int),
	}
	if c.Stash != nil {
		cmd.Stash = vetrix.Address(*c.Stash)
	}
	if c.Controller != nil {
		cmd.Controller = vetrix.Address(*c.Controller)
	}
	if c.Value != nil {
		cmd.Value = c.Value.Big()
	}
	payee, err := genesis.ParsePayee(c.Payee)
	if err != nil {
		return staking.Command{}, err
	}
	cmd.Payee = payee
	if c.Validator != nil {
		cmd.Prefs = election.Prefs{
			Commission:          vetrix.QuintillFromPercent(c.Validator.CommissionPercent),
			Collaborative:       c.Validator.Collaborative,
			MinBackerReputation: c.Validator.MinBackerReputation,
		}
	}
	for _, t := range c.Targets {
		if t.Amount == nil {
			return staking.Command{}, errors.New("cooperation amount must be set")
		}
		cmd.Targets = append(cmd.Targets, election.CoopTarget{
			Validator: vetrix.Address(t.Validator),
			Amount:    t.Amount.Big(),
		})
	}
	for _, b := range c.Backers {
		cmd.Backers = append(cmd.Backers, vetrix.Address(b))
	}
	return cmd, nil
}

func replayAction(ctx *cli.Context) error {
	initLogger(ctx)
	initMetrics(ctx)

	if ctx.NArg() != 1 {
		return errors.New("replay: one scenario file required")
	}
	data, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return errors.WithMessage(err, "read scenario")
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return errors.WithMessage(err, "parse scenario")
	}

	eng, closeEngine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeEngine()

	r := replayer{eng: eng, out: os.Stdout}
	return r.run(&sc)
}

type replayer struct {
	eng *staking.Engine
	out io.Writer
}

func (r *replayer) run(sc *scenario) error {
	r.dump("genesis", r.eng.Events())

	for i, st := range sc.Steps {
		label := fmt.Sprintf("step %d", i)
		switch {
		case st.Sessions > 0:
			for range st.Sessions {
				if err := r.deliverSession(); err != nil {
					return errors.WithMessage(err, label)
				}
			}
		case st.Offence != nil:
			if err := r.reportOffence(st.Offence); err != nil {
				return errors.WithMessage(err, label)
			}
			r.dump(label, r.eng.Events())
		case st.Command != nil:
			cmd, err := st.Command.command()
			if err != nil {
				return errors.WithMessage(err, label)
			}
			evs, err := r.eng.Dispatch(cmd)
			if err != nil {
				fmt.Fprintf(r.out, "%s: %s: rejected: %s\n", label, cmd.Kind, err)
				continue
			}
			r.dump(fmt.Sprintf("%s: %s", label, cmd.Kind), evs)
		default:
			return errors.Errorf("%s: empty step", label)
		}
	}
	return nil
}

// deliverSession advances one session boundary in delivery order:
// plan the next, start it, then end the previous one.
func (r *replayer) deliverSession() error {
	planned, err := r.eng.PlannedSession()
	if err != nil {
		return err
	}
	next := planned + 1
	if _, err := r.eng.NewSession(next); err != nil {
		return err
	}
	if err := r.eng.StartSession(next); err != nil {
		return err
	}
	if err := r.eng.EndSession(next - 1); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "session %d\n", next)
	r.dump(fmt.Sprintf("session %d", next), r.eng.Events())
	return nil
}

func (r *replayer) reportOffence(spec *offenceSpec) error {
	active, ok, err := r.eng.ActiveEra()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("offence before the first era started")
	}
	offender := vetrix.Address(spec.Offender)
	exposure, elected, err := r.eng.ExposureOf(active.Index, offender)
	if err != nil {
		return err
	}
	if !elected {
		return errors.Errorf("offender %s not elected in era %d", offender, active.Index)
	}
	reporters := make([]vetrix.Address, 0, len(spec.Reporters))
	for _, rep := range spec.Reporters {
		reporters = append(reporters, vetrix.Address(rep))
	}
	planned, err := r.eng.PlannedSession()
	if err != nil {
		return err
	}
	return r.eng.OnOffence([]slashing.Offence{{
		Offender:  offender,
		Exposure:  exposure,
		Fraction:  vetrix.QuintillFromPercent(spec.Percent),
		Reporters: reporters,
	}}, planned, slashing.DisableWhenSlashed)
}

func (r *replayer) dump(label string, evs []events.Event) {
	for _, ev := range evs {
		fmt.Fprintf(r.out, "%s: %s %+v\n", label, ev.EventName(), ev)
	}
}
