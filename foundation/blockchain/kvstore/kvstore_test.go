package kvstore_test

import (
	"path/filepath"
	"testing"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
)

func Test_PutGetDelete(t *testing.T) {
	s := kvstore.New()

	if _, ok := s.Get([]byte("a")); ok {
		t.Fatal("expected miss on empty store")
	}

	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}

	v, ok := s.Get([]byte("a"))
	if !ok || string(v) != "1" {
		t.Fatalf("got %q, %v", v, ok)
	}

	if !s.Exists([]byte("a")) {
		t.Fatal("expected key to exist")
	}

	if err := s.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}

	if s.Exists([]byte("a")) {
		t.Fatal("expected key to be gone")
	}
}

func Test_BatchApplyIsAtomicInOrder(t *testing.T) {
	s := kvstore.New()
	s.Put([]byte("a"), []byte("1"))

	var b kvstore.Batch
	b.Put([]byte("a"), []byte("2"))
	b.Put([]byte("b"), []byte("3"))
	b.Delete([]byte("a"))

	if err := s.ApplyBatch(&b); err != nil {
		t.Fatal(err)
	}

	if s.Exists([]byte("a")) {
		t.Fatal("expected a deleted after batch")
	}

	v, ok := s.Get([]byte("b"))
	if !ok || string(v) != "3" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func Test_PrefixIteratorSortedOrder(t *testing.T) {
	s := kvstore.New()
	s.Put([]byte("STOR:b"), []byte("2"))
	s.Put([]byte("STOR:a"), []byte("1"))
	s.Put([]byte("CODE:x"), []byte("9"))

	it := s.Iterator([]byte("STOR:"))

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}

	if len(got) != 2 || got[0] != "STOR:a" || got[1] != "STOR:b" {
		t.Fatalf("unexpected iteration order: %v", got)
	}
}

func Test_DurableLogReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")

	s, err := kvstore.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	s.Put([]byte("a"), []byte("1"))
	s.Put([]byte("b"), []byte("2"))
	s.Delete([]byte("a"))
	s.Close()

	reopened, err := kvstore.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if reopened.Exists([]byte("a")) {
		t.Fatal("expected a to remain deleted after replay")
	}

	v, ok := reopened.Get([]byte("b"))
	if !ok || string(v) != "2" {
		t.Fatalf("got %q, %v", v, ok)
	}
}
