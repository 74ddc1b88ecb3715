package execution

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// NextBaseFee computes the EIP-1559-style base fee for the block following
// parent (§4.3): target = parent.gas_limit/2; delta = parent.base_fee *
// |used-target| / target / 8, floored at 1 when used > target; the new
// base fee moves toward parent.base_fee +/- delta and is clamped at 0.
func NextBaseFee(parent database.Header) *uint256.Int {
	if parent.BaseFee == nil {
		return new(uint256.Int)
	}

	if parent.GasLimit == 0 {
		return new(uint256.Int).Set(parent.BaseFee)
	}

	target := parent.GasLimit / 2
	used := parent.GasUsed

	if target == 0 || used == target {
		return new(uint256.Int).Set(parent.BaseFee)
	}

	var diff uint64
	increase := used > target
	if increase {
		diff = used - target
	} else {
		diff = target - used
	}

	delta := new(uint256.Int).Mul(parent.BaseFee, uint256.NewInt(diff))
	delta.Div(delta, uint256.NewInt(target))
	delta.Div(delta, uint256.NewInt(8))

	if increase && delta.IsZero() {
		delta = uint256.NewInt(1)
	}

	next := new(uint256.Int)
	if increase {
		next.Add(parent.BaseFee, delta)
	} else {
		if delta.Gt(parent.BaseFee) {
			return new(uint256.Int)
		}
		next.Sub(parent.BaseFee, delta)
	}
	return next
}
