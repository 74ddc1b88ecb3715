package worker

import (
	"time"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/settlement"
)

// settlementCycle is how often the batch builder is checked for
// readiness and the finality clock is advanced.
const settlementCycle = 5 * time.Second

// settlementOperations handles batch building, L1 submission, and
// finality tracking (component K) on its own goroutine.
func (w *Worker) settlementOperations() {
	w.evHandler("worker: settlementOperations: G started")
	defer w.evHandler("worker: settlementOperations: G completed")

	ticker := time.NewTicker(settlementCycle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runSettlementOperation()
			}
		case <-w.shut:
			w.evHandler("worker: settlementOperations: received shut signal")
			return
		}
	}
}

// runSettlementOperation builds a batch if the buffered blocks are ready,
// submits its commitment record through the injected L1Submitter, and
// advances the challenge-window clock over every tracked batch.
func (w *Worker) runSettlementOperation() {
	now := w.cfg.Now()

	if w.builder.Ready(now) {
		w.buildAndSubmitBatch(now)
	}

	before := w.tracker.LatestFinalizedBlock()
	after := w.tracker.AdvanceClock(now)
	if after > before {
		w.evHandler("worker: runSettlementOperation: batches finalized through block %d", after)
	}
}

// buildAndSubmitBatch assembles the buffered blocks into a batch, builds
// its commitment record over the receipts those blocks produced, and
// hands both to the tracker and the injected L1Submitter.
func (w *Worker) buildAndSubmitBatch(now int64) {
	head, ok := w.store.Head()
	if !ok {
		w.evHandler("worker: buildAndSubmitBatch: WARNING: builder ready with empty store")
		return
	}

	pre := w.lastBatchStateRoot
	batch, built := w.builder.Build(now, pre, head.StateRoot)
	if !built {
		return
	}
	w.lastBatchStateRoot = head.StateRoot

	var receipts []database.Receipt
	for n := batch.StartBlock; n <= batch.EndBlock; n++ {
		block, err := w.store.GetBlockByNumber(n)
		if err != nil {
			w.evHandler("worker: buildAndSubmitBatch: ERROR: loading block %d: %s", n, err)
			continue
		}
		for _, tx := range block.Transactions {
			receipt, err := w.store.GetReceipt(tx.Hash())
			if err != nil {
				w.evHandler("worker: buildAndSubmitBatch: ERROR: loading receipt %s: %s", tx.Hash(), err)
				continue
			}
			receipts = append(receipts, receipt)
		}
	}

	commitment := settlement.BuildCommitment(batch, receipts, w.cfg.VerificationKey)

	w.tracker.Submit(batch, now)

	if w.cfg.L1 != nil {
		if err := w.cfg.L1.Submit(batch, commitment); err != nil {
			w.evHandler("worker: buildAndSubmitBatch: WARNING: l1_submit: %s", err)
		}
	}

	w.evHandler("worker: buildAndSubmitBatch: built batch %d covering blocks %d..%d", batch.BatchID, batch.StartBlock, batch.EndBlock)
}
