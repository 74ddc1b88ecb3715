// Package mempool maintains the pending-transaction pool (component G):
// admission, replace-by-fee, and block-transaction selection.
package mempool

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/mempool/selector"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// replaceFeeNumerator/replaceFeeDenominator encode the 1.10x replacement
// threshold (§4.4) without floating point.
const (
	replaceFeeNumerator   = 11
	replaceFeeDenominator = 10
)

// AdmissionResult is the closed set of outcomes admitting a transaction
// into the pool can produce (§7).
type AdmissionResult int

const (
	// Admitted means the transaction was accepted into a previously empty slot.
	Admitted AdmissionResult = iota
	// Replaced means the transaction replaced an existing one at the same
	// (sender, nonce) because its max fee is more than 10% above the old one.
	Replaced
	// AlreadyKnown means a transaction with the same hash is already pooled.
	AlreadyKnown
	// Underpriced means the max fee is below the base fee, or a replacement
	// bid did not clear the 10% threshold.
	Underpriced
	// NonceTooLow means the transaction's nonce is below the sender's
	// current on-chain nonce.
	NonceTooLow
	// NonceTooHigh means the transaction's nonce leaves a gap after the
	// sender's next expected nonce.
	NonceTooHigh
	// InsufficientFunds means the sender's balance cannot cover value
	// plus the worst-case gas bill.
	InsufficientFunds
	// PoolFull means the pool is at capacity and the transaction does not
	// replace an existing entry.
	PoolFull
	// Invalid means the transaction failed signature validation.
	Invalid
)

// String renders the admission result for logs and diagnostics.
func (r AdmissionResult) String() string {
	switch r {
	case Admitted:
		return "admitted"
	case Replaced:
		return "replaced"
	case AlreadyKnown:
		return "already known"
	case Underpriced:
		return "underpriced"
	case NonceTooLow:
		return "nonce too low"
	case NonceTooHigh:
		return "nonce too high"
	case InsufficientFunds:
		return "insufficient funds"
	case PoolFull:
		return "pool full"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Accepted reports whether r represents a transaction that is now sitting
// in the pool (Admitted or Replaced), as opposed to a rejection.
func (r AdmissionResult) Accepted() bool {
	return r == Admitted || r == Replaced
}

// Pool holds pending transactions indexed by hash, by (sender, nonce),
// and tracks each sender's next-expected contiguous nonce, guarded by a
// single reader/writer lock exactly as the teacher's Mempool type guards
// its map.
type Pool struct {
	mu sync.RWMutex

	maxSize int

	byHash   map[crypto.Hash]database.Transaction
	bySender map[crypto.Address]map[uint64]database.Transaction
	cursor   map[crypto.Address]uint64

	selectFn selector.Func
}

// New constructs an empty pool bounded at maxSize transactions (0 means
// unbounded), using the default price-priority selection strategy.
func New(maxSize int) *Pool {
	fn, _ := selector.Retrieve(selector.StrategyPrice)
	return &Pool{
		maxSize:  maxSize,
		byHash:   make(map[crypto.Hash]database.Transaction),
		bySender: make(map[crypto.Address]map[uint64]database.Transaction),
		cursor:   make(map[crypto.Address]uint64),
		selectFn: fn,
	}
}

// Count returns the current number of pooled transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Has reports whether a transaction with hash is pooled.
func (p *Pool) Has(hash crypto.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// Truncate clears every pooled transaction and nonce cursor.
func (p *Pool) Truncate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.byHash = make(map[crypto.Hash]database.Transaction)
	p.bySender = make(map[crypto.Address]map[uint64]database.Transaction)
	p.cursor = make(map[crypto.Address]uint64)
}

// Remove drops tx from the pool, typically once it has been included in
// a block. It does not move the sender's nonce cursor backward.
func (p *Pool) Remove(tx database.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.byHash, tx.Hash())
	if senderTxs, ok := p.bySender[tx.From]; ok {
		delete(senderTxs, tx.Nonce)
		if len(senderTxs) == 0 {
			delete(p.bySender, tx.From)
		}
	}
}

// Add admits tx into the pool against the account state st and the
// block's current base fee (§4.4). See AdmissionResult for the possible
// outcomes.
func (p *Pool) Add(st *state.Manager, tx database.Transaction, baseFee *uint256.Int) AdmissionResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	if _, ok := p.byHash[hash]; ok {
		return AlreadyKnown
	}

	if err := tx.Validate(); err != nil {
		return Invalid
	}

	if tx.MaxFeePerGas.Lt(baseFee) {
		return Underpriced
	}

	stateNonce := st.Nonce(tx.From)
	if tx.Nonce < stateNonce {
		return NonceTooLow
	}

	senderTxs := p.bySender[tx.From]

	if existing, exists := senderTxs[tx.Nonce]; exists {
		threshold := new(uint256.Int).Mul(existing.MaxFeePerGas, uint256.NewInt(replaceFeeNumerator))
		threshold.Div(threshold, uint256.NewInt(replaceFeeDenominator))
		if !tx.MaxFeePerGas.Gt(threshold) {
			return Underpriced
		}

		worstCase := worstCaseCost(tx)
		if st.Balance(tx.From).Lt(worstCase) {
			return InsufficientFunds
		}

		delete(p.byHash, existing.Hash())
		p.byHash[hash] = tx
		senderTxs[tx.Nonce] = tx
		return Replaced
	}

	cursor, ok := p.cursor[tx.From]
	if !ok {
		cursor = stateNonce
	}
	if tx.Nonce > cursor {
		return NonceTooHigh
	}

	worstCase := worstCaseCost(tx)
	if st.Balance(tx.From).Lt(worstCase) {
		return InsufficientFunds
	}

	if p.maxSize > 0 && len(p.byHash) >= p.maxSize {
		return PoolFull
	}

	if senderTxs == nil {
		senderTxs = make(map[uint64]database.Transaction)
		p.bySender[tx.From] = senderTxs
	}
	senderTxs[tx.Nonce] = tx
	p.byHash[hash] = tx

	for {
		if _, ok := senderTxs[cursor]; !ok {
			break
		}
		cursor++
	}
	p.cursor[tx.From] = cursor

	return Admitted
}

// SelectForBlock returns the transactions to include in the next block
// under gasLimit and baseFee (§4.4).
func (p *Pool) SelectForBlock(gasLimit uint64, baseFee *uint256.Int) []database.Transaction {
	p.mu.RLock()
	grouped := make(map[crypto.Address][]database.Transaction, len(p.bySender))
	for sender, txs := range p.bySender {
		list := make([]database.Transaction, 0, len(txs))
		for _, tx := range txs {
			list = append(list, tx)
		}
		grouped[sender] = list
	}
	p.mu.RUnlock()

	return p.selectFn(grouped, gasLimit, baseFee)
}

func worstCaseCost(tx database.Transaction) *uint256.Int {
	worst := new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), tx.MaxFeePerGas)
	worst.Add(worst, tx.Value)
	return worst
}
