package execution

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// ProcessBlock executes every transaction in block in order under a shared
// Context derived from its header, commits the resulting state, and
// asserts the committed root and total gas used match the header (§4.3).
// It is all-or-nothing: on any validation failure no receipts are
// returned and the caller must discard whatever state mutations already
// landed by reverting to the snapshot it took before calling in.
func ProcessBlock(st *state.Manager, block database.Block) ([]database.Receipt, error) {
	ctx := Context{
		Number:    block.Header.Number,
		Timestamp: block.Header.Timestamp,
		BaseFee:   block.Header.BaseFee,
		GasLimit:  block.Header.GasLimit,
		Sequencer: block.Header.Sequencer,
	}

	receipts := make([]database.Receipt, 0, len(block.Transactions))

	var cumulativeGasUsed uint64
	for i, tx := range block.Transactions {
		receipt, err := ApplyTransaction(st, ctx, tx, i, cumulativeGasUsed)
		if err != nil {
			return nil, err
		}
		cumulativeGasUsed = receipt.CumulativeGasUsed
		receipts = append(receipts, receipt)
	}

	if cumulativeGasUsed > block.Header.GasLimit {
		return nil, validationErr(ValidationGasOverLimit, "cumulative gas used exceeds the block gas limit")
	}
	if cumulativeGasUsed != block.Header.GasUsed {
		return nil, validationErr(ValidationGasOverLimit, "cumulative gas used does not match the header")
	}

	root := st.Commit()
	if root != block.Header.StateRoot {
		return nil, validationErr(ValidationBadRoot, "post-execution state root does not match the header")
	}

	receiptsRoot := database.ReceiptsRoot(receipts)
	if receiptsRoot != block.Header.ReceiptsRoot {
		return nil, validationErr(ValidationBadRoot, "receipts root does not match the header")
	}

	return receipts, nil
}
