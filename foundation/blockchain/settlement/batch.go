// Package settlement implements the batch builder and commitment record
// (component K): grouping accepted blocks into settlement batches, and
// producing the commitment record the system submits to L1 in place of a
// real ZK proof.
package settlement

import (
	"sync"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/merkle"
)

// BatchStatus is the closed set of states a settlement batch moves through.
type BatchStatus int

const (
	// Pending means the batch has been built but has not yet cleared the
	// challenge window.
	Pending BatchStatus = iota
	// Finalized means the batch's challenge window has elapsed.
	Finalized
)

// String renders the status for logs and diagnostics.
func (s BatchStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Batch is a contiguous run of blocks settled together.
type Batch struct {
	BatchID          uint64
	StartBlock       uint64
	EndBlock         uint64
	PreStateRoot     crypto.Hash
	PostStateRoot    crypto.Hash
	TransactionsRoot crypto.Hash // Merkle root of the batch's block header hashes
	Data             []byte      // length-prefixed concatenation of block encodings
	Status           BatchStatus
	SubmittedAt      int64 // unix seconds; zero until submitted
}

// Config bounds when a batch of buffered blocks is ready to build (§4.6).
type Config struct {
	MaxBatchSize       int // transaction count that forces a build regardless of age
	MinBatchSize       int // transaction count required before age alone can trigger a build
	MaxBatchAgeSeconds int64
}

// Builder buffers accepted blocks and assembles them into batches once
// ready, guarded by a single reader/writer lock exactly as the teacher's
// Database and Mempool types guard their maps.
type Builder struct {
	mu sync.RWMutex

	cfg Config

	nextBatchID uint64
	buffered    []database.Block
	openedAt    int64 // unix seconds the current buffer's first block arrived
}

// New constructs an empty builder. The first batch built carries id 1.
func New(cfg Config) *Builder {
	return &Builder{cfg: cfg, nextBatchID: 1}
}

// AddBlock buffers a newly accepted block for the next batch.
func (b *Builder) AddBlock(block database.Block, now int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffered) == 0 {
		b.openedAt = now
	}
	b.buffered = append(b.buffered, block)
}

// LatestBatchID returns the id the next batch built by b will carry.
func (b *Builder) LatestBatchID() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextBatchID
}

// Ready reports whether the buffered blocks meet the batch-readiness rule
// (§4.6): transaction count >= MaxBatchSize, or (age >= MaxBatchAgeSeconds
// and transaction count >= MinBatchSize).
func (b *Builder) Ready(now int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready(now)
}

func (b *Builder) ready(now int64) bool {
	if len(b.buffered) == 0 {
		return false
	}
	count := b.txCount()
	if count >= b.cfg.MaxBatchSize {
		return true
	}
	age := now - b.openedAt
	return age >= b.cfg.MaxBatchAgeSeconds && count >= b.cfg.MinBatchSize
}

// txCount sums the transaction count across every buffered block.
func (b *Builder) txCount() int {
	count := 0
	for _, blk := range b.buffered {
		count += len(blk.Transactions)
	}
	return count
}

// Build assembles the buffered blocks into a Batch if they are ready,
// clears the buffer, and advances the batch id. preStateRoot is the state
// root before the first buffered block's transactions applied;
// postStateRoot is the root left by the last one.
func (b *Builder) Build(now int64, preStateRoot, postStateRoot crypto.Hash) (Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready(now) {
		return Batch{}, false
	}

	headerHashes := make([]crypto.Hash, len(b.buffered))
	var data []byte
	for i, blk := range b.buffered {
		headerHashes[i] = blk.Header.Hash()
		encoded := blk.Encode()
		data = crypto.PutUint32(data, uint32(len(encoded)))
		data = append(data, encoded...)
	}

	batch := Batch{
		BatchID:          b.nextBatchID,
		StartBlock:       b.buffered[0].Header.Number,
		EndBlock:         b.buffered[len(b.buffered)-1].Header.Number,
		PreStateRoot:     preStateRoot,
		PostStateRoot:    postStateRoot,
		TransactionsRoot: merkle.Root(headerHashes),
		Data:             data,
		Status:           Pending,
	}

	b.nextBatchID++
	b.buffered = nil
	b.openedAt = 0

	return batch, true
}
