// Package trie implements the authenticated state trie (component C): a
// keyed value store producing a root digest, with a per-key proof vector.
//
// This is a flat-authenticated store, not a radix trie: every committed
// key/value pair is a leaf, and the root is the Merkle root over all live
// leaves in sorted-by-key-hash order. §4.1 and §9 explicitly permit this —
// "implementers may upgrade to a radix scheme provided external behavior
// is preserved" — and the external contract (root + get_proof/verify) is
// what every caller in this repo depends on.
package trie

import (
	"sort"
	"sync"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/merkle"
)

// Proof is the path vector returned by GetProof: enough to recompute the
// root given the leaf.
type Proof struct {
	KeyHash crypto.Hash
	Value   []byte
	Path    []crypto.Hash
	IsRight []bool
	Root    crypto.Hash
}

// Verify rebuilds the root from the proof and compares it to p.Root.
func (p Proof) Verify() bool {
	leaf := leafHash(p.KeyHash, p.Value)
	return merkle.VerifyProof(leaf, p.Path, p.IsRight, p.Root)
}

// Trie layers an authenticated root over a kvstore.Store under a namespace
// byte prefix.
type Trie struct {
	mu     sync.RWMutex
	store  *kvstore.Store
	prefix []byte

	buffer  map[crypto.Hash][]byte
	deleted map[crypto.Hash]bool

	root crypto.Hash
}

// New constructs a trie namespaced over store with the given prefix, and
// recomputes its root from whatever the store already holds under that
// namespace (so re-opening a durable store resumes at the right root).
func New(store *kvstore.Store, prefix string) *Trie {
	t := &Trie{
		store:   store,
		prefix:  []byte(prefix),
		buffer:  make(map[crypto.Hash][]byte),
		deleted: make(map[crypto.Hash]bool),
	}
	t.recomputeRoot()
	return t
}

// Root returns the most recently committed root.
func (t *Trie) Root() crypto.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Put buffers value under H(key); the write is not visible to other tries
// or durable on disk until Commit.
func (t *Trie) Put(key []byte, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kh := crypto.Sum(key)
	delete(t.deleted, kh)
	t.buffer[kh] = append([]byte(nil), value...)
}

// Delete buffers a removal of key.
func (t *Trie) Delete(key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kh := crypto.Sum(key)
	delete(t.buffer, kh)
	t.deleted[kh] = true
}

// Get consults the write buffer, then the underlying store.
func (t *Trie) Get(key []byte) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kh := crypto.Sum(key)

	if t.deleted[kh] {
		return nil, false
	}
	if v, ok := t.buffer[kh]; ok {
		return append([]byte(nil), v...), true
	}

	return t.store.Get(t.storeKey(kh))
}

// Commit flushes the buffer in one batched write and recomputes the root
// as the Merkle root of hashes of each live (H(key)||value) leaf in sorted
// order, returning the new root.
func (t *Trie) Commit() crypto.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b kvstore.Batch
	for kh, v := range t.buffer {
		b.Put(t.storeKey(kh), v)
	}
	for kh := range t.deleted {
		b.Delete(t.storeKey(kh))
	}

	if b.Len() > 0 {
		t.store.ApplyBatch(&b)
	}

	t.buffer = make(map[crypto.Hash][]byte)
	t.deleted = make(map[crypto.Hash]bool)

	t.recomputeRoot()
	return t.root
}

// GetProof returns a proof vector for key sufficient to recompute the root
// given the leaf. The key must already be committed (not merely buffered).
func (t *Trie) GetProof(key []byte) (Proof, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kh := crypto.Sum(key)

	hashes, values := t.sortedLiveLeaves()
	idx := -1
	for i, h := range hashes {
		if h == kh {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Proof{}, false
	}

	leafHashes := make([]crypto.Hash, len(hashes))
	for i := range hashes {
		leafHashes[i] = leafHash(hashes[i], values[i])
	}

	path, isRight, err := merkle.Proof(leafHashes, idx)
	if err != nil {
		return Proof{}, false
	}

	return Proof{
		KeyHash: kh,
		Value:   values[idx],
		Path:    path,
		IsRight: isRight,
		Root:    t.root,
	}, true
}

func (t *Trie) recomputeRoot() {
	hashes, values := t.sortedLiveLeaves()

	leafHashes := make([]crypto.Hash, len(hashes))
	for i := range hashes {
		leafHashes[i] = leafHash(hashes[i], values[i])
	}

	t.root = merkle.Root(leafHashes)
}

// sortedLiveLeaves returns the committed key hashes in ascending order
// alongside their values. Store keys are prefix||H(key), so the store's
// own byte-order iteration already yields hash order; the sort guards
// against prefixes that are not a fixed width.
func (t *Trie) sortedLiveLeaves() ([]crypto.Hash, [][]byte) {
	it := t.store.Iterator(t.prefix)

	type pair struct {
		hash  crypto.Hash
		value []byte
	}
	var pairs []pair
	for it.Next() {
		kh, ok := keyHashFromStoreKey(it.Key(), t.prefix)
		if !ok {
			continue
		}
		pairs = append(pairs, pair{hash: kh, value: it.Value()})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return string(pairs[i].hash.Bytes()) < string(pairs[j].hash.Bytes())
	})

	hashes := make([]crypto.Hash, len(pairs))
	values := make([][]byte, len(pairs))
	for i, p := range pairs {
		hashes[i] = p.hash
		values[i] = p.value
	}

	return hashes, values
}

func (t *Trie) storeKey(kh crypto.Hash) []byte {
	return append(append([]byte{}, t.prefix...), kh.Bytes()...)
}

func keyHashFromStoreKey(storeKey []byte, prefix []byte) (crypto.Hash, bool) {
	if len(storeKey) != len(prefix)+crypto.HashSize {
		return crypto.Hash{}, false
	}
	h, err := crypto.HashFromBytes(storeKey[len(prefix):])
	if err != nil {
		return crypto.Hash{}, false
	}
	return h, true
}

func leafHash(keyHash crypto.Hash, value []byte) crypto.Hash {
	return crypto.Sum(keyHash.Bytes(), value)
}

// RootOfPrefix computes the Merkle root of whatever is currently committed
// under prefix in store, without needing a Trie wrapper or a pending write
// buffer. Callers that maintain many small sub-namespaces (one per account,
// for contract storage) use this instead of keeping a live Trie per
// namespace.
func RootOfPrefix(store *kvstore.Store, prefix []byte) crypto.Hash {
	t := &Trie{store: store, prefix: prefix}
	hashes, values := t.sortedLiveLeaves()

	leafHashes := make([]crypto.Hash, len(hashes))
	for i := range hashes {
		leafHashes[i] = leafHash(hashes[i], values[i])
	}

	return merkle.Root(leafHashes)
}
