package worker

import (
	"bytes"
	"sort"
	"time"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/execution"
)

// CORE NOTE: block production is managed by this function which runs on
// its own goroutine. The node ticks on a fixed cadence equal to the slot
// duration. At the start of each cycle it checks whether this node is the
// elected leader for the next slot (head.Number+1). If not, it waits for
// the next cycle and checks again.

// leaderOperations handles block production.
func (w *Worker) leaderOperations() {
	w.evHandler("worker: leaderOperations: G started")
	defer w.evHandler("worker: leaderOperations: G completed")

	ticker := time.NewTicker(w.cfg.SlotDuration)
	resetTicker(ticker, w.cfg.SlotDuration, 0)

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runLeaderOperation()
			}
		case <-w.shut:
			w.evHandler("worker: leaderOperations: received shut signal")
			return
		}

		resetTicker(ticker, w.cfg.SlotDuration, 0)
	}
}

// runLeaderOperation checks the leader election for the next slot and, if
// this node is the winner, assembles, executes, and persists the next
// block.
func (w *Worker) runLeaderOperation() {
	w.evHandler("worker: runLeaderOperation: started")
	defer w.evHandler("worker: runLeaderOperation: completed")

	head, ok := w.store.Head()
	var headNumber uint64
	var parentHash = database.Header{}.Hash()
	if ok {
		headNumber = head.Number
		parentHash = head.Hash()
	}
	nextNumber := headNumber + 1

	leader := w.registry.Leader(nextNumber)
	if w.cfg.Self.IsZero() || leader.Credential != w.cfg.Self.Credential {
		w.evHandler("worker: runLeaderOperation: not leader for slot %d", nextNumber)
		return
	}

	baseFee := w.cfg.GenesisBaseFee
	if ok {
		baseFee = execution.NextBaseFee(head)
	}

	txs := w.pool.SelectForBlock(w.cfg.GasLimit, baseFee)
	sort.SliceStable(txs, func(i, j int) bool {
		return bytes.Compare(txs[i].From.Credential[:], txs[j].From.Credential[:]) < 0
	})

	block := database.Block{
		Header: database.Header{
			Number:     nextNumber,
			ParentHash: parentHash,
			Sequencer:  w.cfg.Self,
			GasLimit:   w.cfg.GasLimit,
			BaseFee:    baseFee,
			Timestamp:  uint64(w.cfg.Now()),
		},
		Transactions: txs,
	}
	block.Header.TransactionsRoot = database.TransactionsRoot(block.Transactions)

	receipts, gasUsed, stateRoot, err := w.executeBlock(block)
	if err != nil {
		w.evHandler("worker: runLeaderOperation: ERROR: executing block %d: %s", nextNumber, err)
		return
	}
	block.Header.GasUsed = gasUsed
	block.Header.StateRoot = stateRoot
	block.Header.ReceiptsRoot = database.ReceiptsRoot(receipts)

	if err := consensus.ValidateBlock(head, block, w.registry); err != nil {
		w.evHandler("worker: runLeaderOperation: ERROR: self-validating block %d: %s", nextNumber, err)
		return
	}

	if err := w.store.PutBlock(block, receipts); err != nil {
		w.evHandler("worker: runLeaderOperation: ERROR: persisting block %d: %s", nextNumber, err)
		return
	}

	for _, tx := range block.Transactions {
		w.pool.Remove(tx)
	}

	w.builder.AddBlock(block, w.cfg.Now())

	if w.cfg.Broadcaster != nil {
		w.cfg.Broadcaster.BroadcastBlock(block)
	}

	w.evHandler("worker: runLeaderOperation: produced block %d with %d transactions", nextNumber, len(block.Transactions))
}

// executeBlock runs block against a snapshot of the state manager,
// reverting on any failure so a rejected block never leaves a partial
// mutation behind.
func (w *Worker) executeBlock(block database.Block) ([]database.Receipt, uint64, crypto.Hash, error) {
	return executeBlock(w.state, block)
}

// resetTicker makes sure the next tick happens on a cadence-aligned mark.
func resetTicker(ticker *time.Ticker, cadence, waitOnSecond time.Duration) {
	nextTick := time.Now().Add(cadence).Round(waitOnSecond)
	diff := time.Until(nextTick)
	ticker.Reset(diff)
}
