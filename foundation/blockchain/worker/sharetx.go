package worker

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// shareTxOperations handles broadcasting newly pooled transactions to
// known peers via the injected Broadcaster (the peer_broadcast boundary,
// §6); the P2P transport that actually dials those peers is out of scope
// for the core.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation hands tx to the configured Broadcaster, if any.
func (w *Worker) runShareTxOperation(tx database.Transaction) {
	w.evHandler("worker: runShareTxOperation: started")
	defer w.evHandler("worker: runShareTxOperation: completed")

	if w.cfg.Broadcaster == nil {
		return
	}
	w.cfg.Broadcaster.BroadcastTx(tx)
}
