package execution

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/vm"
)

// Context carries the block-wide values shared by every transaction
// processed within one block (§4.3): number, timestamp, base fee, and
// the sequencer receiving gas payments.
type Context struct {
	Number     uint64
	Timestamp  uint64
	BaseFee    *uint256.Int
	GasLimit   uint64
	Sequencer  crypto.Address
	ChainID    uint64
	PrevRandao crypto.Hash
	GetHash    func(number uint64) crypto.Hash
}

func (c Context) vmBlockContext() vm.BlockContext {
	return vm.BlockContext{
		Number:     c.Number,
		Timestamp:  c.Timestamp,
		BaseFee:    c.BaseFee,
		GasLimit:   c.GasLimit,
		Coinbase:   c.Sequencer,
		ChainID:    c.ChainID,
		PrevRandao: c.PrevRandao,
		GetHash:    c.GetHash,
	}
}

// EffectivePrice is min(max_fee_per_gas, base_fee + max_priority_fee_per_gas).
func EffectivePrice(tx database.Transaction, baseFee *uint256.Int) *uint256.Int {
	priority := new(uint256.Int).Add(baseFee, tx.MaxPriorityFeePerGas)
	if tx.MaxFeePerGas.Lt(priority) {
		return new(uint256.Int).Set(tx.MaxFeePerGas)
	}
	return priority
}
