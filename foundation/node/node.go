// Package node assembles the tightly-coupled component quartet — state
// store, virtual machine, block pipeline, and consensus/settlement — into
// a single in-process handle and exposes the process-boundary contracts
// (§6) external layers (RPC façade, P2P transport, L1 client, CLI) are
// built against. It owns every stateful component directly rather than
// handing out reference-counted pointers between them (Design Notes,
// "Cyclic ownership between components").
package node

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/blockstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/execution"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/genesis"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/mempool"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/peer"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/settlement"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/vm"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/worker"
	"github.com/nonagon-chain/nonagon/foundation/events"
)

// estimateGasNumerator/estimateGasDenominator (6/5) is the fixed 1.20x
// multiplier §6's estimate_gas boundary applies over the gas a simulated call actually consumed.
const estimateGasNumerator, estimateGasDenominator = 6, 5

// Config carries every value needed to open or initialize a Node.
type Config struct {
	DataDir     string // empty means an in-memory, non-durable store
	GenesisPath string // empty means skip genesis seeding (e.g. reopening an existing store)

	ChainID  uint64
	GasLimit uint64

	MinStake  *uint256.Int
	MaxActive int

	MempoolMaxSize int

	MaxBatchSize           int
	MinBatchSize           int
	MaxBatchAgeSeconds     int64
	ChallengeWindowSeconds int64
	VerificationKey        crypto.Hash

	SlotDuration time.Duration
	Host         string

	// Sequencer, if non-zero, enables block production: this node will
	// run leaderOperations and sign blocks as Sequencer whenever it wins
	// the slot leader election.
	Sequencer crypto.Address

	Now         worker.NowFunc
	Broadcaster worker.Broadcaster
	L1          worker.L1Submitter
	L1Slot      worker.L1SlotSource

	EventHandler worker.EventHandler
}

// Node owns every core component directly and is the single handle
// external layers (RPC, P2P, L1 client, CLI) drive.
type Node struct {
	cfg Config

	store    *kvstore.Store
	state    *state.Manager
	blocks   *blockstore.Store
	pool     *mempool.Pool
	registry *consensus.Registry
	builder  *settlement.Builder
	tracker  *settlement.Tracker
	peers    *peer.PeerSet
	events   *events.Events

	worker *worker.Worker

	// genesisBaseFee is the base fee in effect before any block exists,
	// seeded from the genesis file; execution.NextBaseFee only knows how
	// to move a base fee forward from a real parent header.
	genesisBaseFee *uint256.Int
}

// Open constructs a Node: opens (or creates) the durable key-value store
// at cfg.DataDir, wraps the domain components over it, and — if the
// store is empty and cfg.GenesisPath is set — seeds genesis balances and
// the initial sequencer set.
func Open(cfg Config) (*Node, error) {
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().Unix() }
	}
	if cfg.EventHandler == nil {
		cfg.EventHandler = func(string, ...any) {}
	}

	var store *kvstore.Store
	var err error
	if cfg.DataDir == "" {
		store = kvstore.New()
	} else {
		store, err = kvstore.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}

	n := &Node{
		cfg:      cfg,
		store:    store,
		state:    state.New(store),
		blocks:   blockstore.New(store),
		pool:     mempool.New(cfg.MempoolMaxSize),
		registry: consensus.New(cfg.MinStake, cfg.MaxActive),
		builder: settlement.New(settlement.Config{
			MaxBatchSize:       cfg.MaxBatchSize,
			MinBatchSize:       cfg.MinBatchSize,
			MaxBatchAgeSeconds: cfg.MaxBatchAgeSeconds,
		}),
		tracker: settlement.NewTracker(cfg.ChallengeWindowSeconds),
		peers:   peer.NewPeerSet(),
		events:  events.New(),
	}

	if cfg.GenesisPath != "" {
		g, err := genesis.Load(cfg.GenesisPath)
		if err != nil {
			return nil, err
		}

		baseFee, err := g.BaseFeeInt()
		if err != nil {
			return nil, err
		}
		n.genesisBaseFee = baseFee

		if _, ok := n.blocks.Head(); !ok {
			if err := g.Apply(n.state, n.registry); err != nil {
				return nil, err
			}
			n.state.Commit()
		}
	}
	if n.genesisBaseFee == nil {
		n.genesisBaseFee = new(uint256.Int)
	}

	return n, nil
}

// currentBaseFee returns the base fee that applies right now: the one
// computed from the head block if one exists, or the genesis-seeded base
// fee before any block has been produced.
func (n *Node) currentBaseFee() *uint256.Int {
	head, ok := n.blocks.Head()
	if !ok {
		return n.genesisBaseFee
	}
	return execution.NextBaseFee(head)
}

// StartSequencing launches the background block-production, peer, and
// settlement loops. It is a no-op to call Close without ever calling
// this — a read-only follower node never needs the worker running.
func (n *Node) StartSequencing() {
	if n.worker != nil {
		return
	}

	evHandler := func(format string, v ...any) {
		n.cfg.EventHandler(format, v...)
		n.events.Send(formatEvent(format, v...))
	}

	n.worker = worker.Run(worker.Config{
		Self:            n.cfg.Sequencer,
		Host:            n.cfg.Host,
		SlotDuration:    n.cfg.SlotDuration,
		GasLimit:        n.cfg.GasLimit,
		ChainID:         n.cfg.ChainID,
		VerificationKey: n.cfg.VerificationKey,
		Now:             n.cfg.Now,
		L1:              n.cfg.L1,
		L1Slot:          n.cfg.L1Slot,
		Broadcaster:     n.cfg.Broadcaster,
		GenesisBaseFee:  n.genesisBaseFee,
	}, n.state, n.registry, n.pool, n.blocks, n.builder, n.tracker, n.peers, evHandler)
}

// Close shuts down any running background loops and releases the
// underlying durable store.
func (n *Node) Close() error {
	if n.worker != nil {
		n.worker.Shutdown()
	}
	n.events.Shutdown()
	return n.store.Close()
}

// =============================================================================
// §6 process boundary: methods the core offers to external layers.

// SubmitTransaction validates tx's signature and admits it into the
// mempool, returning its hash on success or the admission rejection
// reason as an error otherwise.
func (n *Node) SubmitTransaction(tx database.Transaction) (crypto.Hash, error) {
	if err := tx.Validate(); err != nil {
		return crypto.Hash{}, err
	}

	baseFee := n.currentBaseFee()

	result := n.pool.Add(n.state, tx, baseFee)
	if !result.Accepted() {
		return crypto.Hash{}, &AdmissionRejected{Reason: result}
	}

	if n.worker != nil {
		n.worker.SignalShareTx(tx)
	}

	return tx.Hash(), nil
}

// AdmissionRejected wraps a mempool.AdmissionResult that did not accept a
// submitted transaction, giving callers a typed error instead of a bare
// string (§7).
type AdmissionRejected struct {
	Reason mempool.AdmissionResult
}

func (e *AdmissionRejected) Error() string {
	return "node: transaction rejected: " + e.Reason.String()
}

// GetBlockByNumber returns the block at number.
func (n *Node) GetBlockByNumber(number uint64) (database.Block, error) {
	return n.blocks.GetBlockByNumber(number)
}

// GetBlockByHash returns the block with the given header hash.
func (n *Node) GetBlockByHash(hash crypto.Hash) (database.Block, error) {
	return n.blocks.GetBlockByHash(hash)
}

// GetReceipt returns the receipt for a transaction hash.
func (n *Node) GetReceipt(hash crypto.Hash) (database.Receipt, error) {
	return n.blocks.GetReceipt(hash)
}

// GetBalance returns addr's current balance.
func (n *Node) GetBalance(addr crypto.Address) *uint256.Int {
	return n.state.Balance(addr)
}

// GetNonce returns addr's current nonce.
func (n *Node) GetNonce(addr crypto.Address) uint64 {
	return n.state.Nonce(addr)
}

// GetCode returns the code deployed at addr, if any.
func (n *Node) GetCode(addr crypto.Address) ([]byte, bool) {
	codeHash := n.state.CodeHash(addr)
	if codeHash.IsZero() {
		return nil, false
	}
	return n.state.Code(codeHash)
}

// Call simulates a message call from `from` to `to` carrying data, under
// gas, against the current head state, then reverts every mutation
// before returning — a read-only "what would happen" query (§6).
func (n *Node) Call(from, to crypto.Address, data []byte, gas uint64) ([]byte, error) {
	head, _ := n.blocks.Head()
	snap := n.state.Snapshot()
	defer n.state.Revert(snap)

	baseFee := n.currentBaseFee()
	machine := vm.New(n.state, vm.BlockContext{
		Number:   head.Number + 1,
		BaseFee:  baseFee,
		GasLimit: n.cfg.GasLimit,
		ChainID:  n.cfg.ChainID,
	}, from, baseFee)

	result := machine.Call(from, to, data, new(uint256.Int), gas)
	if result.Halt.Failed() {
		return nil, &CallReverted{Halt: result.Halt, ReturnData: result.ReturnData}
	}
	return result.ReturnData, nil
}

// CallReverted reports that a simulated Call halted abnormally.
type CallReverted struct {
	Halt       vm.HaltReason
	ReturnData []byte
}

func (e *CallReverted) Error() string {
	return "node: call reverted: " + e.Halt.String()
}

// EstimateGas simulates tx's execution and returns 1.20x the gas it
// actually consumed (§6), rounded up.
func (n *Node) EstimateGas(tx database.Transaction) (uint64, error) {
	head, _ := n.blocks.Head()
	snap := n.state.Snapshot()
	defer n.state.Revert(snap)

	baseFee := n.currentBaseFee()
	ctx := execution.Context{
		Number:    head.Number + 1,
		BaseFee:   baseFee,
		GasLimit:  n.cfg.GasLimit,
		Sequencer: n.cfg.Sequencer,
		ChainID:   n.cfg.ChainID,
	}

	receipt, err := execution.ApplyTransaction(n.state, ctx, tx, 0, 0)
	if err != nil {
		return 0, err
	}

	padded := receipt.GasUsed * estimateGasNumerator
	estimate := padded / estimateGasDenominator
	if padded%estimateGasDenominator != 0 {
		estimate++
	}
	return estimate, nil
}

// LatestBatchID returns the id the next settlement batch will carry.
func (n *Node) LatestBatchID() uint64 {
	return n.builder.LatestBatchID()
}

// ActiveSequencers returns the addresses currently eligible to lead slots.
func (n *Node) ActiveSequencers() []crypto.Address {
	return n.registry.ActiveSet()
}

// Registry exposes the consensus registry for genesis seeding and
// diagnostics callers that need more than ActiveSequencers.
func (n *Node) Registry() *consensus.Registry {
	return n.registry
}

// Events returns the node's diagnostic/lifecycle event bus, consumed by
// the debug surface's event-stream endpoint.
func (n *Node) Events() *events.Events {
	return n.events
}

// Peers returns the node's known-peer set.
func (n *Node) Peers() *peer.PeerSet {
	return n.peers
}

func formatEvent(format string, v ...any) string {
	return fmt.Sprintf(format, v...)
}
