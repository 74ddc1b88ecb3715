// Package blockstore implements the block store (component E): blocks
// indexed by number and by hash, a head pointer, a transaction-to-block
// index, and per-transaction receipts, all layered over the raw
// key-value store (component B) the way the state manager layers the
// accounts trie over it.
package blockstore

import (
	"errors"
	"sync"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
)

const (
	blockByNumberPrefix = "BLKN"
	blockByHashPrefix   = "BLKH"
	txIndexPrefix       = "TXIX"
	receiptPrefix       = "RCPT"
	headKey             = "HEAD"
)

// ErrNotFound is returned when a requested block, transaction, or receipt
// does not exist in the store.
var ErrNotFound = errors.New("blockstore: not found")

// txLocation records where a transaction landed so GetTransaction and
// GetReceipt don't need a full block scan.
type txLocation struct {
	BlockNumber      uint64
	TransactionIndex uint32
}

// Store is the block store (E).
type Store struct {
	mu    sync.RWMutex
	store *kvstore.Store

	head     database.Header
	hasHead  bool
}

// New constructs a block store over store, recovering the head pointer (if
// any) from whatever the durable log already replayed into it.
func New(store *kvstore.Store) *Store {
	s := &Store{store: store}

	if raw, ok := store.Get([]byte(headKey)); ok {
		if h, err := database.DecodeHeader(raw); err == nil {
			s.head = h
			s.hasHead = true
		}
	}

	return s
}

// Head returns the most recently accepted header and whether one exists
// yet (false only before genesis is written).
func (s *Store) Head() (database.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, s.hasHead
}

// PutBlock persists block, its receipts, the by-number and by-hash
// indexes, the transaction index, and advances the head pointer. Callers
// (the execution/consensus layer) are responsible for having already
// validated the block; PutBlock does not re-validate.
func (s *Store) PutBlock(block database.Block, receipts []database.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch kvstore.Batch

	encoded := block.Encode()
	batch.Put(numberKey(block.Header.Number), encoded)
	batch.Put(hashKey(block.Hash()), encoded)
	batch.Put([]byte(headKey), block.Header.Encode())

	for i, tx := range block.Transactions {
		loc := txLocation{BlockNumber: block.Header.Number, TransactionIndex: uint32(i)}
		batch.Put(txIndexKey(tx.Hash()), encodeTxLocation(loc))
	}

	for _, r := range receipts {
		batch.Put(receiptKey(r.TransactionHash), r.Encode())
	}

	if err := s.store.ApplyBatch(&batch); err != nil {
		return err
	}

	s.head = block.Header
	s.hasHead = true
	return nil
}

// GetBlockByNumber returns the block at number.
func (s *Store) GetBlockByNumber(number uint64) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.store.Get(numberKey(number))
	if !ok {
		return database.Block{}, ErrNotFound
	}
	return database.DecodeBlock(raw)
}

// GetBlockByHash returns the block with the given header hash.
func (s *Store) GetBlockByHash(hash crypto.Hash) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.store.Get(hashKey(hash))
	if !ok {
		return database.Block{}, ErrNotFound
	}
	return database.DecodeBlock(raw)
}

// GetTransaction returns the transaction identified by hash, alongside the
// number of the block that included it and its index within that block.
func (s *Store) GetTransaction(hash crypto.Hash) (database.Transaction, uint64, uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.store.Get(txIndexKey(hash))
	if !ok {
		return database.Transaction{}, 0, 0, ErrNotFound
	}
	loc, err := decodeTxLocation(raw)
	if err != nil {
		return database.Transaction{}, 0, 0, err
	}

	blockRaw, ok := s.store.Get(numberKey(loc.BlockNumber))
	if !ok {
		return database.Transaction{}, 0, 0, ErrNotFound
	}
	block, err := database.DecodeBlock(blockRaw)
	if err != nil {
		return database.Transaction{}, 0, 0, err
	}
	if int(loc.TransactionIndex) >= len(block.Transactions) {
		return database.Transaction{}, 0, 0, ErrNotFound
	}

	return block.Transactions[loc.TransactionIndex], loc.BlockNumber, loc.TransactionIndex, nil
}

// GetReceipt returns the receipt for the transaction identified by hash.
func (s *Store) GetReceipt(hash crypto.Hash) (database.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.store.Get(receiptKey(hash))
	if !ok {
		return database.Receipt{}, ErrNotFound
	}
	return database.DecodeReceipt(raw)
}

func numberKey(number uint64) []byte {
	return crypto.PutUint64([]byte(blockByNumberPrefix), number)
}

func hashKey(hash crypto.Hash) []byte {
	return append([]byte(blockByHashPrefix), hash.Bytes()...)
}

func txIndexKey(hash crypto.Hash) []byte {
	return append([]byte(txIndexPrefix), hash.Bytes()...)
}

func receiptKey(hash crypto.Hash) []byte {
	return append([]byte(receiptPrefix), hash.Bytes()...)
}

func encodeTxLocation(loc txLocation) []byte {
	var buf []byte
	buf = crypto.PutUint64(buf, loc.BlockNumber)
	buf = crypto.PutUint32(buf, loc.TransactionIndex)
	return buf
}

func decodeTxLocation(b []byte) (txLocation, error) {
	var loc txLocation

	number, rest, err := crypto.ReadUint64(b)
	if err != nil {
		return txLocation{}, err
	}
	loc.BlockNumber = number

	index, _, err := crypto.ReadUint32(rest)
	if err != nil {
		return txLocation{}, err
	}
	loc.TransactionIndex = index

	return loc, nil
}
