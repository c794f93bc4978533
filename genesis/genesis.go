// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis describes the initial staking state of a network and
// builds it through the engine's regular operation paths, so genesis
// stakers pass the same checks as live ones.
package genesis

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vetrixchain/vetrix/staking/configs"
	"github.com/vetrixchain/vetrix/staking/ledger"
	"github.com/vetrixchain/vetrix/vetrix"
)

// CustomGenesis is a user customized genesis.
type CustomGenesis struct {
	Accounts              []Account `yaml:"accounts"`
	Stakers               []Staker  `yaml:"stakers"`
	Invulnerables         []Address `yaml:"invulnerables,omitempty"`
	ValidatorCount        uint32    `yaml:"validatorCount"`
	MinimumValidatorCount uint32    `yaml:"minimumValidatorCount,omitempty"`
	EraRewardRatePercent  *uint64   `yaml:"eraRewardRatePercent,omitempty"`
	Configs               *Configs  `yaml:"configs,omitempty"`
}

// Account is an account endowed at genesis. Stash accounts must carry
// at least their bonded amount here.
type Account struct {
	Address Address          `yaml:"address"`
	Balance *HexOrDecimal256 `yaml:"balance"`
}

// Staker is one genesis staker. A staker with validator prefs registers
// as a validator; one with cooperator targets declares them. Setting
// both is an error.
type Staker struct {
	Stash      Address          `yaml:"stash"`
	Controller Address          `yaml:"controller"`
	Bonded     *HexOrDecimal256 `yaml:"bonded"`
	Payee      string           `yaml:"payee,omitempty"`
	Validator  *ValidatorPrefs  `yaml:"validator,omitempty"`
	Cooperator []CoopTarget     `yaml:"cooperator,omitempty"`
}

// ValidatorPrefs mirrors election.Prefs in yaml-friendly form.
type ValidatorPrefs struct {
	CommissionPercent   uint64 `yaml:"commissionPercent"`
	Collaborative       bool   `yaml:"collaborative"`
	MinBackerReputation uint64 `yaml:"minBackerReputation,omitempty"`
}

// CoopTarget is one declared cooperation target.
type CoopTarget struct {
	Validator Address          `yaml:"validator"`
	Amount    *HexOrDecimal256 `yaml:"amount"`
}

// Configs sets the initial mutable staking configuration. Nil fields
// keep their defaults.
type Configs struct {
	MinCooperatorBond          *HexOrDecimal256 `yaml:"minCooperatorBond,omitempty"`
	MinValidatorBond           *HexOrDecimal256 `yaml:"minValidatorBond,omitempty"`
	MaxCooperatorsCount        *uint32          `yaml:"maxCooperatorsCount,omitempty"`
	MaxValidatorsCount         *uint32          `yaml:"maxValidatorsCount,omitempty"`
	ChillThresholdPercent      *uint64          `yaml:"chillThresholdPercent,omitempty"`
	MinCommissionPercent       *uint64          `yaml:"minCommissionPercent,omitempty"`
	MinValidatorReputation     *uint64          `yaml:"minValidatorReputation,omitempty"`
	MinCollaborativeReputation *uint64          `yaml:"minCollaborativeReputation,omitempty"`
}

func (c *Configs) update() configs.Update {
	var u configs.Update
	if c.MinCooperatorBond != nil {
		u.MinCooperatorBond = configs.BalanceOp{Kind: configs.OpSet, Value: c.MinCooperatorBond.Big()}
	}
	if c.MinValidatorBond != nil {
		u.MinValidatorBond = configs.BalanceOp{Kind: configs.OpSet, Value: c.MinValidatorBond.Big()}
	}
	if c.MaxCooperatorsCount != nil {
		u.MaxCooperatorsCount = configs.CountOp{Kind: configs.OpSet, Value: *c.MaxCooperatorsCount}
	}
	if c.MaxValidatorsCount != nil {
		u.MaxValidatorsCount = configs.CountOp{Kind: configs.OpSet, Value: *c.MaxValidatorsCount}
	}
	if c.ChillThresholdPercent != nil {
		u.ChillThreshold = configs.QuintillOp{Kind: configs.OpSet, Value: vetrix.QuintillFromPercent(*c.ChillThresholdPercent)}
	}
	if c.MinCommissionPercent != nil {
		u.MinCommission = configs.QuintillOp{Kind: configs.OpSet, Value: vetrix.QuintillFromPercent(*c.MinCommissionPercent)}
	}
	if c.MinValidatorReputation != nil {
		u.MinValidatorReputation = configs.ScoreOp{Kind: configs.OpSet, Value: *c.MinValidatorReputation}
	}
	if c.MinCollaborativeReputation != nil {
		u.MinCollaborativeReputation = configs.ScoreOp{Kind: configs.OpSet, Value: *c.MinCollaborativeReputation}
	}
	return u
}

// FromYAML parses a custom genesis document.
func FromYAML(data []byte) (*CustomGenesis, error) {
	var gen CustomGenesis
	if err := yaml.Unmarshal(data, &gen); err != nil {
		return nil, errors.WithMessage(err, "parse genesis")
	}
	return &gen, nil
}

// Address is a yaml-friendly wrapper of vetrix.Address.
type Address vetrix.Address

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Address) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := vetrix.ParseAddress(node.Value)
	if err != nil {
		return errors.WithMessagef(err, "invalid address %q", node.Value)
	}
	*a = Address(*parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Address) MarshalYAML() (any, error) {
	return vetrix.Address(a).String(), nil
}

// HexOrDecimal256 unmarshals big.Int written as hex or decimal.
// Mirrors go-ethereum's math.HexOrDecimal256 for yaml.
type HexOrDecimal256 math.HexOrDecimal256

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *HexOrDecimal256) UnmarshalYAML(node *yaml.Node) error {
	bigint, ok := math.ParseBig256(node.Value)
	if !ok {
		return errors.Errorf("invalid number %q", node.Value)
	}
	*i = HexOrDecimal256(*bigint)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (i *HexOrDecimal256) MarshalYAML() (any, error) {
	return i.Big().String(), nil
}

// Big returns the plain big.Int view.
func (i *HexOrDecimal256) Big() *big.Int {
	return (*big.Int)(i)
}

func numberOf(v *big.Int) *HexOrDecimal256 {
	return (*HexOrDecimal256)(v)
}

// devAccounts are the pre-endowed accounts of the sandbox network.
var devAccounts = []string{
	"0x33a4e3225528069fd4d27c57c7c6df55c435f50e",
	"0x93b4c6889fbf2500e0ac3b7b6b14a0f2a534fb9d",
	"0x57faf488d59faca7b11844fccab99990b74182ef",
	"0x27c150e5aeeb454047ddb20921ed50084e5bbe40",
	"0xc8a9790ec0741af8c66b3664b1f55c9bd550ce84",
	"0x23bd40acd9b8403beeeeeaca8a15b7f78c749927",
	"0x07b8e21533833169a2c5bedd4d81000b1c6bf737",
	"0xf667365a47e62971a988ca603ff863915db0c640",
	"0x9bfa4ea39eb09aab4d1dedb65e86e7bdb1b57f38",
	"0x3fae1598af0bafb69e461e3822acae907320edd6",
}

// DevAccounts returns the pre-endowed sandbox addresses.
func DevAccounts() []vetrix.Address {
	out := make([]vetrix.Address, 0, len(devAccounts))
	for _, s := range devAccounts {
		out = append(out, vetrix.MustParseAddress(s))
	}
	return out
}

// NewDevnet returns the canonical sandbox genesis: every dev account
// endowed, the first four registered as collaborative validators and
// two more backing them.
func NewDevnet() *CustomGenesis {
	endowment := new(big.Int).Mul(big.NewInt(1_000_000_000), big.NewInt(1_000_000_000))
	bonded := new(big.Int).Mul(big.NewInt(250_000), big.NewInt(1_000_000_000))
	backing := new(big.Int).Mul(big.NewInt(50_000), big.NewInt(1_000_000_000))

	accs := DevAccounts()
	gen := &CustomGenesis{ValidatorCount: 10}
	for _, a := range accs {
		gen.Accounts = append(gen.Accounts, Account{Address: Address(a), Balance: numberOf(endowment)})
	}
	for i := range 4 {
		gen.Stakers = append(gen.Stakers, Staker{
			Stash:      Address(accs[i]),
			Controller: Address(accs[i]),
			Bonded:     numberOf(bonded),
			Payee:      "staked",
			Validator:  &ValidatorPrefs{CommissionPercent: 5, Collaborative: true},
		})
	}
	for i := 4; i < 6; i++ {
		gen.Stakers = append(gen.Stakers, Staker{
			Stash:      Address(accs[i]),
			Controller: Address(accs[i]),
			Bonded:     numberOf(backing),
			Payee:      "stash",
			Cooperator: []CoopTarget{
				{Validator: Address(accs[i-4]), Amount: numberOf(backing)},
			},
		})
	}
	return gen
}

// ParsePayee maps a textual payee to a reward destination. An empty
// string means staked; anything not a keyword must parse as an
// address.
func ParsePayee(s string) (ledger.Destination, error) {
	switch strings.ToLower(s) {
	case "", "staked":
		return ledger.Destination{Kind: ledger.DestStaked}, nil
	case "stash":
		return ledger.Destination{Kind: ledger.DestStash}, nil
	case "controller":
		return ledger.Destination{Kind: ledger.DestController}, nil
	case "none":
		return ledger.Destination{Kind: ledger.DestNone}, nil
	default:
		addr, err := vetrix.ParseAddress(s)
		if err != nil {
			return ledger.Destination{}, errors.WithMessagef(err, "invalid payee %q", s)
		}
		return ledger.Destination{Kind: ledger.DestAccount, Account: *addr}, nil
	}
}
