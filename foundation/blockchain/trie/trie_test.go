package trie_test

import (
	"testing"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/kvstore"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/trie"
)

func Test_CommitChangesRoot(t *testing.T) {
	store := kvstore.New()
	tr := trie.New(store, "ACCT")

	empty := tr.Root()

	tr.Put([]byte("alice"), []byte("100"))
	tr.Put([]byte("bob"), []byte("200"))
	root := tr.Commit()

	if root == empty {
		t.Fatal("expected root to change after commit")
	}

	v, ok := tr.Get([]byte("alice"))
	if !ok || string(v) != "100" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func Test_RootIsOrderIndependent(t *testing.T) {
	s1 := kvstore.New()
	t1 := trie.New(s1, "ACCT")
	t1.Put([]byte("alice"), []byte("100"))
	t1.Put([]byte("bob"), []byte("200"))
	root1 := t1.Commit()

	s2 := kvstore.New()
	t2 := trie.New(s2, "ACCT")
	t2.Put([]byte("bob"), []byte("200"))
	t2.Put([]byte("alice"), []byte("100"))
	root2 := t2.Commit()

	if root1 != root2 {
		t.Fatalf("expected order-independent root, got %s != %s", root1, root2)
	}
}

func Test_ProofVerifies(t *testing.T) {
	store := kvstore.New()
	tr := trie.New(store, "ACCT")

	tr.Put([]byte("alice"), []byte("100"))
	tr.Put([]byte("bob"), []byte("200"))
	tr.Put([]byte("carol"), []byte("300"))
	tr.Commit()

	proof, ok := tr.GetProof([]byte("bob"))
	if !ok {
		t.Fatal("expected proof for committed key")
	}
	if !proof.Verify() {
		t.Fatal("expected valid proof to verify")
	}

	proof.Value = []byte("tampered")
	if proof.Verify() {
		t.Fatal("tampered proof unexpectedly verified")
	}
}

func Test_DeleteRemovesFromRoot(t *testing.T) {
	store := kvstore.New()
	tr := trie.New(store, "ACCT")

	tr.Put([]byte("alice"), []byte("100"))
	withAlice := tr.Commit()

	tr.Delete([]byte("alice"))
	withoutAlice := tr.Commit()

	if withAlice == withoutAlice {
		t.Fatal("expected root to change after delete")
	}
	if _, ok := tr.Get([]byte("alice")); ok {
		t.Fatal("expected alice to be gone")
	}
}
