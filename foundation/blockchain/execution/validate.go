package execution

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/vm"
)

// ValidateTransaction checks a transaction against the current state and
// block base fee (§4.3): nonce equals the sender's current nonce, balance
// covers value plus the worst-case gas bill, gas_limit clears the
// intrinsic floor, and max_fee_per_gas is not below the block's base fee.
// It does not check the signature — that is database.Transaction.Validate's
// job, run once at admission time.
func ValidateTransaction(st *state.Manager, tx database.Transaction, baseFee *uint256.Int) error {
	if tx.Nonce != st.Nonce(tx.From) {
		return validationErr(ValidationBadNonce, "transaction nonce does not match account nonce")
	}

	worstCase := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	worstCase.Add(worstCase, tx.Value)
	if st.Balance(tx.From).Lt(worstCase) {
		return validationErr(ValidationInsufficientBalance, "balance does not cover value plus worst-case gas cost")
	}

	intrinsic := vm.IntrinsicGas(tx.Data, tx.IsCreate())
	if tx.GasLimit < intrinsic {
		return validationErr(ValidationGasBelowIntrinsic, "gas limit is below intrinsic cost")
	}

	if tx.MaxFeePerGas.Lt(baseFee) {
		return validationErr(ValidationFeeBelowBase, "max fee per gas is below the block base fee")
	}

	return nil
}
