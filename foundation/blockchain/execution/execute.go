package execution

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/vm"
)

// ApplyTransaction runs one transaction against st under ctx (§4.3):
//
//  1. the sender's nonce is incremented;
//  2. value + gas_limit*effective_price is debited from the sender up front;
//  3. a CREATE frame runs for a contract-creation transaction, otherwise
//     the recipient is credited and, if it carries code, a CALL frame runs
//     over it;
//  4. unused gas is refunded to the sender at the effective price;
//  5. gas actually used is paid to the block's sequencer;
//  6. a receipt is built carrying the cumulative gas used so far in the
//     block.
//
// A failed inner call frame reverts only that frame's own state changes
// (storage writes, nested calls); the value credit and gas accounting
// performed here stand regardless, matching a real CALL/CREATE's own
// snapshot scope rather than one taken before the credit.
func ApplyTransaction(st *state.Manager, ctx Context, tx database.Transaction, txIndex int, cumulativeGasUsed uint64) (database.Receipt, error) {
	sender := tx.From
	price := EffectivePrice(tx, ctx.BaseFee)

	st.IncrementNonce(sender)

	prepay := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), price)
	prepay.Add(prepay, tx.Value)
	st.SubBalance(sender, prepay)

	intrinsic := vm.IntrinsicGas(tx.Data, tx.IsCreate())
	forwarded := tx.GasLimit - intrinsic

	machine := vm.New(st, ctx.vmBlockContext(), sender, price)

	var (
		halt            vm.HaltReason
		gasLeft         uint64
		logs            []database.Log
		contractAddress crypto.Address
	)

	switch {
	case tx.IsCreate():
		contractAddress = crypto.DeriveCreate(sender, tx.Nonce)
		if !tx.Value.IsZero() {
			st.AddBalance(contractAddress, tx.Value)
		}
		result := machine.Create(sender, contractAddress, tx.Data, tx.Value, forwarded)
		halt, gasLeft, logs = result.Halt, result.GasLeft, result.Logs

	default:
		if !tx.Value.IsZero() {
			st.AddBalance(tx.To, tx.Value)
		}
		if !st.CodeHash(tx.To).IsZero() {
			result := machine.Call(sender, tx.To, tx.Data, tx.Value, forwarded)
			halt, gasLeft, logs = result.Halt, result.GasLeft, result.Logs
		} else {
			halt, gasLeft = vm.HaltStop, forwarded
		}
	}

	success := !halt.Failed()

	var executionGasUsed uint64
	switch {
	case halt == vm.HaltRevert, success:
		executionGasUsed = forwarded - gasLeft
	default:
		// Non-revert failures consume everything forwarded, so total gas
		// used equals the transaction's full gas limit (§7).
		executionGasUsed = forwarded
	}

	gasUsed := intrinsic + executionGasUsed
	unused := tx.GasLimit - gasUsed

	refund := new(uint256.Int).Mul(uint256.NewInt(unused), price)
	st.AddBalance(sender, refund)

	payment := new(uint256.Int).Mul(uint256.NewInt(gasUsed), price)
	st.AddBalance(ctx.Sequencer, payment)

	receipt := database.Receipt{
		TransactionHash:  tx.Hash(),
		Success:          success,
		GasUsed:          gasUsed,
		CumulativeGasUsed: cumulativeGasUsed + gasUsed,
		BlockNumber:      ctx.Number,
		TransactionIndex: uint32(txIndex),
		From:             sender,
		To:               tx.To,
	}
	if success {
		receipt.Logs = logs
		if tx.IsCreate() {
			receipt.ContractAddress = contractAddress
		}
	}

	return receipt, nil
}
