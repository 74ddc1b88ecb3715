// Package worker runs the node's background goroutines: block production
// at the elected slot, transaction broadcast, peer refresh, and batch
// settlement against L1.
package worker

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/blockstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/mempool"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/peer"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/settlement"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// peerUpdateInterval is how often the peer list is refreshed.
const peerUpdateInterval = time.Minute

// maxTxShareRequests bounds the outstanding transaction-broadcast queue.
const maxTxShareRequests = 100

// EventHandler receives free-form diagnostic messages, the teacher's
// logging-as-callback convention used throughout the foundation packages.
type EventHandler func(format string, v ...any)

// NowFunc is the injected now() boundary; production wiring passes
// time.Now().Unix, tests pass a fixed or stepped clock.
type NowFunc func() int64

// L1Submitter is the injected l1_submit boundary: hand a finished batch
// and its commitment record to the settlement layer.
type L1Submitter interface {
	Submit(batch settlement.Batch, commitment settlement.CommitmentRecord) error
}

// L1SlotSource is the injected l1_current_slot boundary.
type L1SlotSource interface {
	CurrentSlot() uint64
}

// Broadcaster is the injected peer_broadcast boundary.
type Broadcaster interface {
	BroadcastBlock(block database.Block)
	BroadcastTx(tx database.Transaction)
}

// Config carries everything Run needs to assemble a Worker.
type Config struct {
	Self            crypto.Address
	Host            string
	SlotDuration    time.Duration
	GasLimit        uint64
	ChainID         uint64
	VerificationKey crypto.Hash
	Now             NowFunc
	L1              L1Submitter
	L1Slot          L1SlotSource
	Broadcaster     Broadcaster

	// GenesisBaseFee is the base fee the first block (the one with no
	// parent) is produced against, seeded from the genesis file.
	GenesisBaseFee *uint256.Int
}

// Worker manages the background goroutines that drive block production,
// settlement, and peer housekeeping for the blockchain.
type Worker struct {
	cfg Config

	state     *state.Manager
	registry  *consensus.Registry
	pool      *mempool.Pool
	store     *blockstore.Store
	builder   *settlement.Builder
	tracker   *settlement.Tracker
	peers     *peer.PeerSet
	evHandler EventHandler

	lastBatchStateRoot crypto.Hash

	wg        sync.WaitGroup
	ticker    time.Ticker
	shut      chan struct{}
	txSharing chan database.Transaction
}

// Run assembles a Worker and starts all of its background goroutines. It
// blocks until every goroutine has confirmed it is running.
func Run(cfg Config, st *state.Manager, registry *consensus.Registry, pool *mempool.Pool, store *blockstore.Store, builder *settlement.Builder, tracker *settlement.Tracker, peers *peer.PeerSet, evHandler EventHandler) *Worker {
	w := &Worker{
		cfg:       cfg,
		state:     st,
		registry:  registry,
		pool:      pool,
		store:     store,
		builder:   builder,
		tracker:   tracker,
		peers:     peers,
		evHandler: evHandler,
		ticker:    *time.NewTicker(peerUpdateInterval),
		shut:      make(chan struct{}),
		txSharing: make(chan database.Transaction, maxTxShareRequests),
	}

	operations := []func(){
		w.peerOperations,
		w.leaderOperations,
		w.settlementOperations,
		w.shareTxOperations,
	}

	g := len(operations)
	w.wg.Add(g)

	hasStarted := make(chan bool)
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return w
}

// Shutdown terminates every goroutine started by Run and waits for them
// to exit.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	close(w.shut)
	w.wg.Wait()
}

// SignalShareTx queues tx for broadcast to known peers. If the queue is
// full the transaction is silently dropped from sharing (it is still
// pooled locally).
func (w *Worker) SignalShareTx(tx database.Transaction) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: queued %s", tx.Hash())
	default:
		w.evHandler("worker: SignalShareTx: queue full, dropping %s", tx.Hash())
	}
}

// isShutdown reports whether a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
