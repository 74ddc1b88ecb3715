// Package kvstore implements the ordered byte-key store (component B):
// Put/Get/Delete/Exists, batched writes, prefix iteration, and a durable
// append-only log that can replay itself back into memory at open.
package kvstore

import (
	"bytes"
	"sort"
	"sync"
)

// Op tags a single mutation recorded in a Batch or the durable log.
type Op uint8

const (
	// OpPut records a key/value write.
	OpPut Op = iota
	// OpDelete records a key deletion.
	OpDelete
)

// Write is one mutation: a Put carries Value, a Delete does not.
type Write struct {
	Op    Op
	Key   []byte
	Value []byte
}

// Batch accumulates writes for a single atomic application.
type Batch struct {
	writes []Write
}

// Put stages a key/value write.
func (b *Batch) Put(key, value []byte) {
	b.writes = append(b.writes, Write{Op: OpPut, Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
}

// Delete stages a key deletion.
func (b *Batch) Delete(key []byte) {
	b.writes = append(b.writes, Write{Op: OpDelete, Key: append([]byte(nil), key...)})
}

// Len reports the number of staged writes.
func (b *Batch) Len() int {
	return len(b.writes)
}

// Store is an ordered byte-key map with batched writes and prefix
// iteration. It is not itself transactional; callers above (the trie,
// the state manager) own that responsibility.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
	log  *Log
}

// New constructs an in-memory store with no durable backing.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Open constructs a store backed by a durable append-only log at path,
// replaying any existing records into memory first.
func Open(path string) (*Store, error) {
	log, records, err := OpenLog(path)
	if err != nil {
		return nil, err
	}

	s := &Store{data: make(map[string][]byte), log: log}
	for _, rec := range records {
		switch rec.Op {
		case OpPut:
			s.data[string(rec.Key)] = rec.Value
		case OpDelete:
			delete(s.data, string(rec.Key))
		}
	}

	return s, nil
}

// Close flushes and releases the underlying durable log, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return nil
	}
	return s.log.Close()
}

// Put writes key/value, appending to the durable log (with a flush) if
// this store has one, before updating the in-memory map.
func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log != nil {
		if err := s.log.Append(Write{Op: OpPut, Key: key, Value: value}); err != nil {
			return err
		}
	}

	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[string(key)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Exists reports whether key is present.
func (s *Store) Exists(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[string(key)]
	return ok
}

// Delete removes key, appending to the durable log (with a flush) if this
// store has one.
func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log != nil {
		if err := s.log.Append(Write{Op: OpDelete, Key: key}); err != nil {
			return err
		}
	}

	delete(s.data, string(key))
	return nil
}

// ApplyBatch appends every staged write to the durable log in order (each
// record flushed individually) and then applies them in one in-memory
// update pass.
func (s *Store) ApplyBatch(b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log != nil {
		for _, w := range b.writes {
			if err := s.log.Append(w); err != nil {
				return err
			}
		}
	}

	for _, w := range b.writes {
		switch w.Op {
		case OpPut:
			s.data[string(w.Key)] = append([]byte(nil), w.Value...)
		case OpDelete:
			delete(s.data, string(w.Key))
		}
	}

	return nil
}

// Iterator walks keys with the given prefix in ascending byte order.
type Iterator struct {
	keys   []string
	values [][]byte
	pos    int
}

// Next advances the iterator, returning false once exhausted.
func (it *Iterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

// Key returns the current key. Valid only after a true Next.
func (it *Iterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

// Value returns the current value. Valid only after a true Next.
func (it *Iterator) Value() []byte {
	return it.values[it.pos]
}

// Iterator returns an Iterator over every key sharing prefix, in sorted
// order, as a point-in-time snapshot.
func (s *Store) Iterator(prefix []byte) *Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := &Iterator{pos: -1}
	for k, v := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			it.keys = append(it.keys, k)
			it.values = append(it.values, append([]byte(nil), v...))
		}
	}

	sort.Sort(byKeyThenValue{it})
	return it
}

type byKeyThenValue struct{ *Iterator }

func (b byKeyThenValue) Len() int           { return len(b.keys) }
func (b byKeyThenValue) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKeyThenValue) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.values[i], b.values[j] = b.values[j], b.values[i]
}
