package merkle_test

import (
	"testing"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/merkle"
)

func leaves(n int) []crypto.Hash {
	out := make([]crypto.Hash, n)
	for i := range out {
		out[i] = crypto.Sum([]byte{byte(i)})
	}
	return out
}

func Test_RootEmpty(t *testing.T) {
	if got := merkle.Root(nil); got != crypto.ZeroHash {
		t.Fatalf("got %s, want zero hash", got)
	}
}

func Test_RootDeterministic(t *testing.T) {
	l := leaves(5)
	r1 := merkle.Root(l)
	r2 := merkle.Root(l)
	if r1 != r2 {
		t.Fatalf("root is not deterministic: %s != %s", r1, r2)
	}
}

func Test_ProofVerifyRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 9} {
		l := leaves(n)
		root := merkle.Root(l)

		for i := 0; i < n; i++ {
			path, isRight, err := merkle.Proof(l, i)
			if err != nil {
				t.Fatalf("n=%d i=%d: %s", n, i, err)
			}
			if !merkle.VerifyProof(l[i], path, isRight, root) {
				t.Fatalf("n=%d i=%d: proof did not verify", n, i)
			}
		}
	}
}

func Test_ProofTamperFails(t *testing.T) {
	l := leaves(6)
	root := merkle.Root(l)

	path, isRight, err := merkle.Proof(l, 2)
	if err != nil {
		t.Fatal(err)
	}

	if !merkle.VerifyProof(l[2], path, isRight, root) {
		t.Fatal("expected valid proof to verify")
	}

	tampered := make([]crypto.Hash, len(path))
	copy(tampered, path)
	tampered[0] = crypto.Sum([]byte("tamper"))
	if merkle.VerifyProof(l[2], tampered, isRight, root) {
		t.Fatal("tampered proof unexpectedly verified")
	}

	if merkle.VerifyProof(l[3], path, isRight, root) {
		t.Fatal("wrong leaf unexpectedly verified")
	}

	wrongRoot := crypto.Sum([]byte("wrong"))
	if merkle.VerifyProof(l[2], path, isRight, wrongRoot) {
		t.Fatal("wrong root unexpectedly verified")
	}
}

func Test_ProofOutOfRange(t *testing.T) {
	l := leaves(3)
	if _, _, err := merkle.Proof(l, 3); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
