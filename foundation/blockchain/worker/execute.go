package worker

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/execution"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// executeBlock runs block's transactions against st under a snapshot,
// committing on success and reverting on any failure so a block that
// fails to apply never leaves a partial mutation behind (§7: block
// validation is all-or-nothing).
func executeBlock(st *state.Manager, block database.Block) ([]database.Receipt, uint64, crypto.Hash, error) {
	snap := st.Snapshot()

	ctx := execution.Context{
		Number:    block.Header.Number,
		Timestamp: block.Header.Timestamp,
		BaseFee:   block.Header.BaseFee,
		GasLimit:  block.Header.GasLimit,
		Sequencer: block.Header.Sequencer,
	}

	receipts := make([]database.Receipt, 0, len(block.Transactions))
	var cumulativeGasUsed uint64
	for i, tx := range block.Transactions {
		receipt, err := execution.ApplyTransaction(st, ctx, tx, i, cumulativeGasUsed)
		if err != nil {
			st.Revert(snap)
			return nil, 0, crypto.Hash{}, err
		}
		cumulativeGasUsed = receipt.CumulativeGasUsed
		receipts = append(receipts, receipt)
	}

	root := st.Commit()
	return receipts, cumulativeGasUsed, root, nil
}
