// Package state implements the state manager (component D): accounts,
// contract storage, code blobs, and journaled snapshot/revert, all layered
// over the authenticated trie (component C) and the raw key-value store
// (component B).
package state

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/trie"
)

const (
	storagePrefix = "STOR"
	codePrefix    = "CODE"
	acctPrefix    = "ACCT"
)

// journalEntry is one undoable mutation. This mirrors go-ethereum's
// core/state journal: a list of entries capable of restoring exactly
// what they changed, rather than a single per-address "prior record"
// that could not express undoing an individual storage write inside a
// call frame.
type journalEntry interface {
	revert(m *Manager)
}

type accountChange struct {
	addr    crypto.Address
	existed bool
	prior   Account
}

func (e accountChange) revert(m *Manager) {
	if e.existed {
		m.setAccount(e.addr, e.prior)
		return
	}
	m.deleteAccount(e.addr)
}

type storageChange struct {
	addr    crypto.Address
	slot    crypto.Hash
	existed bool
	prior   []byte
}

func (e storageChange) revert(m *Manager) {
	key := storageKey(e.addr, e.slot)
	if e.existed {
		m.store.Put(key, e.prior)
		return
	}
	m.store.Delete(key)
}

// Snapshot is an opaque token enabling rollback of all state mutations
// since its creation (§4.1, §9).
type Snapshot struct {
	Root        crypto.Hash
	JournalSize int
}

// Manager is the state manager (D).
type Manager struct {
	mu sync.RWMutex

	accounts *trie.Trie
	store    *kvstore.Store

	journal      []journalEntry
	dirtyStorage map[crypto.Address]struct{}
}

// New constructs a state manager over store, with accounts held in a trie
// namespaced under "ACCT".
func New(store *kvstore.Store) *Manager {
	return &Manager{
		accounts:     trie.New(store, acctPrefix),
		store:        store,
		dirtyStorage: make(map[crypto.Address]struct{}),
	}
}

// =============================================================================
// Account accessors.

// GetAccount returns the account record for addr, or the empty account if
// it has never been written.
func (m *Manager) GetAccount(addr crypto.Address) Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAccountLocked(addr)
}

func (m *Manager) getAccountLocked(addr crypto.Address) Account {
	raw, ok := m.accounts.Get(addr.Credential[:])
	if !ok {
		return emptyAccount()
	}

	acc, err := DecodeAccount(raw)
	if err != nil {
		return emptyAccount()
	}
	return acc
}

// Balance returns the account's balance (zero if the account has never
// been written).
func (m *Manager) Balance(addr crypto.Address) *uint256.Int {
	return m.GetAccount(addr).Balance
}

// Nonce returns the account's current nonce.
func (m *Manager) Nonce(addr crypto.Address) uint64 {
	return m.GetAccount(addr).Nonce
}

// CodeHash returns the account's code hash (zero for a non-contract).
func (m *Manager) CodeHash(addr crypto.Address) crypto.Hash {
	return m.GetAccount(addr).CodeHash
}

// SetBalance journals and applies a new balance for addr.
func (m *Manager) SetBalance(addr crypto.Address, balance *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.getAccountLocked(addr)
	acc.Balance = balance
	m.journalAndSet(addr, acc)
}

// SetNonce journals and applies a new nonce for addr.
func (m *Manager) SetNonce(addr crypto.Address, nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.getAccountLocked(addr)
	acc.Nonce = nonce
	m.journalAndSet(addr, acc)
}

// IncrementNonce journals and applies addr.nonce += 1.
func (m *Manager) IncrementNonce(addr crypto.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.getAccountLocked(addr)
	acc.Nonce++
	m.journalAndSet(addr, acc)
}

// AddBalance journals and applies addr.balance += amount.
func (m *Manager) AddBalance(addr crypto.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.getAccountLocked(addr)
	acc.Balance = new(uint256.Int).Add(acc.Balance, amount)
	m.journalAndSet(addr, acc)
}

// SubBalance journals and applies addr.balance -= amount. Callers must
// have already checked sufficiency; this does not clamp at zero.
func (m *Manager) SubBalance(addr crypto.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc := m.getAccountLocked(addr)
	acc.Balance = new(uint256.Int).Sub(acc.Balance, amount)
	m.journalAndSet(addr, acc)
}

// SetCode journals and installs code for addr. Code blobs are stored by
// content hash under "CODE", so identical bytecode shared by multiple
// accounts is stored once.
func (m *Manager) SetCode(addr crypto.Address, code []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := crypto.Sum(code)
	m.store.Put(append([]byte(codePrefix), hash.Bytes()...), code)

	acc := m.getAccountLocked(addr)
	acc.CodeHash = hash
	m.journalAndSet(addr, acc)
}

// Code returns the code blob for the given hash.
func (m *Manager) Code(codeHash crypto.Hash) ([]byte, bool) {
	if codeHash.IsZero() {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Get(append([]byte(codePrefix), codeHash.Bytes()...))
}

// journalAndSet records the account's prior value, then writes acc.
// Must be called with mu held.
func (m *Manager) journalAndSet(addr crypto.Address, acc Account) {
	prior, existed := m.accounts.Get(addr.Credential[:])
	var priorAcc Account
	if existed {
		priorAcc, _ = DecodeAccount(prior)
	} else {
		priorAcc = emptyAccount()
	}

	m.journal = append(m.journal, accountChange{addr: addr, existed: existed, prior: priorAcc})
	m.setAccount(addr, acc)
}

func (m *Manager) setAccount(addr crypto.Address, acc Account) {
	m.accounts.Put(addr.Credential[:], acc.Encode())
}

func (m *Manager) deleteAccount(addr crypto.Address) {
	m.accounts.Delete(addr.Credential[:])
}

// =============================================================================
// Contract storage.

// StorageGet returns the value stored at slot for addr.
func (m *Manager) StorageGet(addr crypto.Address, slot crypto.Hash) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, _ := m.store.Get(storageKey(addr, slot))
	return v
}

// StorageSet journals and applies a write to slot for addr.
func (m *Manager) StorageSet(addr crypto.Address, slot crypto.Hash, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := storageKey(addr, slot)
	prior, existed := m.store.Get(key)

	m.journal = append(m.journal, storageChange{addr: addr, slot: slot, existed: existed, prior: prior})
	m.store.Put(key, value)
	m.dirtyStorage[addr] = struct{}{}
}

func storageKey(addr crypto.Address, slot crypto.Hash) []byte {
	key := make([]byte, 0, len(storagePrefix)+crypto.CredentialSize+crypto.HashSize)
	key = append(key, storagePrefix...)
	key = append(key, addr.Credential[:]...)
	key = append(key, slot.Bytes()...)
	return key
}

func storageNamespace(addr crypto.Address) []byte {
	key := make([]byte, 0, len(storagePrefix)+crypto.CredentialSize)
	key = append(key, storagePrefix...)
	key = append(key, addr.Credential[:]...)
	return key
}

// =============================================================================
// Snapshot / revert / commit.

// Snapshot returns the current trie root and journal length. Revert must
// be called with the same token to roll back to this point.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{Root: m.accounts.Root(), JournalSize: len(m.journal)}
}

// Revert pops journal entries, restoring each prior account or storage
// value, until the journal's length equals s.JournalSize.
func (m *Manager) Revert(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.journal) > s.JournalSize {
		entry := m.journal[len(m.journal)-1]
		m.journal = m.journal[:len(m.journal)-1]
		entry.revert(m)
	}
}

// Commit flushes the accounts trie, recomputes the storage sub-root for
// every account whose storage was written since the last commit, and
// returns the new root. An address with no account record and no storage
// left (a reverted write to a reverted account) is not created.
func (m *Manager) Commit() crypto.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	for addr := range m.dirtyStorage {
		root := trie.RootOfPrefix(m.store, storageNamespace(addr))
		if _, ok := m.accounts.Get(addr.Credential[:]); !ok && root.IsZero() {
			continue
		}
		acc := m.getAccountLocked(addr)
		acc.StorageRoot = root
		m.setAccount(addr, acc)
	}
	m.dirtyStorage = make(map[crypto.Address]struct{})

	m.journal = nil
	return m.accounts.Commit()
}

// Root returns the most recently committed accounts root without
// recomputing storage sub-roots.
func (m *Manager) Root() crypto.Hash {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts.Root()
}
