package worker

// peerOperations refreshes the known peer set on a fixed interval. Real
// peer discovery and status exchange live in the P2P transport, which is
// out of scope for the core (§1); this loop is the stand-in the core
// drives so peer housekeeping has the same goroutine/ticker/shut shape as
// leaderOperations and settlementOperations regardless of which
// peer.PeerSet implementation backs it.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeerOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeerOperation logs the current known-peer count. With no P2P
// transport wired in, there is nothing to dial; a real transport would
// replace this with the status exchange the teacher's version performs.
func (w *Worker) runPeerOperation() {
	if w.peers == nil {
		return
	}
	count := len(w.peers.Copy(w.cfg.Host))
	w.evHandler("worker: runPeerOperation: known peers: %d", count)
}
