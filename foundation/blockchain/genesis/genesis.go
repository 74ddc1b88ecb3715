// Package genesis maintains access to the genesis file that seeds a
// fresh node's account balances and initial sequencer set.
package genesis

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

var validate = validator.New()

// Sequencer is one genesis-seeded entry in the consensus registry.
type Sequencer struct {
	Address   string `json:"address" validate:"required"`
	PublicKey string `json:"public_key" validate:"required"`
	Stake     string `json:"stake" validate:"required,numeric"` // decimal uint256
}

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time         `json:"date"`
	ChainID    uint64            `json:"chain_id" validate:"required"`
	GasLimit   uint64            `json:"gas_limit" validate:"required"`
	BaseFee    string            `json:"base_fee" validate:"required,numeric"` // decimal uint256
	MinStake   string            `json:"min_stake" validate:"omitempty,numeric"`
	MaxActive  int               `json:"max_active" validate:"required,gt=0"`
	Balances   map[string]string `json:"balances" validate:"dive,numeric"` // address text -> decimal uint256
	Sequencers []Sequencer       `json:"sequencers" validate:"dive"`
}

// Load opens, parses, and validates the genesis file at path.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var g Genesis
	if err := json.Unmarshal(content, &g); err != nil {
		return Genesis{}, err
	}

	if err := validate.Struct(g); err != nil {
		return Genesis{}, err
	}

	return g, nil
}

// BaseFeeInt parses BaseFee into a uint256.
func (g Genesis) BaseFeeInt() (*uint256.Int, error) {
	return parseDecimal(g.BaseFee)
}

// MinStakeInt parses MinStake into a uint256.
func (g Genesis) MinStakeInt() (*uint256.Int, error) {
	return parseDecimal(g.MinStake)
}

// Apply seeds st with every genesis balance and registry with every
// genesis sequencer.
func (g Genesis) Apply(st *state.Manager, registry *consensus.Registry) error {
	for addrText, balanceText := range g.Balances {
		addr, err := crypto.ParseAddress(addrText)
		if err != nil {
			return err
		}
		balance, err := parseDecimal(balanceText)
		if err != nil {
			return err
		}
		st.SetBalance(addr, balance)
	}

	for _, seq := range g.Sequencers {
		addr, err := crypto.ParseAddress(seq.Address)
		if err != nil {
			return err
		}
		stake, err := parseDecimal(seq.Stake)
		if err != nil {
			return err
		}

		registry.Register(consensus.SequencerInfo{
			Address:   addr,
			PublicKey: []byte(seq.PublicKey),
			Stake:     stake,
			Status:    consensus.Active,
		})
	}

	return nil
}

func parseDecimal(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}
