// Package merkle computes Merkle roots and inclusion proofs over
// crypto.Hash leaves, used by the database package for transaction and
// receipt roots and by the trie package for its account/storage root.
package merkle

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Root computes the Merkle root of leaves under the duplicate-last-leaf
// rule: an odd level is completed by repeating its final node rather than
// padding with a zero hash. An empty input yields the zero hash.
//
// Every caller already has leaf hashes in hand (transaction hashes, receipt
// hashes, block header hashes, trie leaves) and wants only the root or a
// proof against it, so the tree itself is never materialized or kept.
func Root(leaves []crypto.Hash) crypto.Hash {
	if len(leaves) == 0 {
		return crypto.ZeroHash
	}

	level := make([]crypto.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([]crypto.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.Sum(level[i].Bytes(), level[i+1].Bytes())
		}
		level = next
	}

	return level[0]
}

// Proof returns the sibling hash path needed to recompute the root from
// leaves[index], innermost sibling first, alongside a same-length isRight
// slice recording whether each sibling sits to the right of the running
// hash at that level (isRight==true means the running hash is concatenated
// first, sibling second).
func Proof(leaves []crypto.Hash, index int) ([]crypto.Hash, []bool, error) {
	if index < 0 || index >= len(leaves) {
		return nil, nil, errInvalidProofIndex
	}

	level := make([]crypto.Hash, len(leaves))
	copy(level, leaves)

	var path []crypto.Hash
	var isRight []bool

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		pairIndex := index / 2 * 2
		if index == pairIndex {
			path = append(path, level[pairIndex+1])
			isRight = append(isRight, true)
		} else {
			path = append(path, level[pairIndex])
			isRight = append(isRight, false)
		}

		next := make([]crypto.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.Sum(level[i].Bytes(), level[i+1].Bytes())
		}
		level = next
		index /= 2
	}

	return path, isRight, nil
}

// VerifyProof rebuilds the root from leaf using path/isRight and compares
// it to root, per the "get_proof"/"verify" contract of §4.1.
func VerifyProof(leaf crypto.Hash, path []crypto.Hash, isRight []bool, root crypto.Hash) bool {
	if len(path) != len(isRight) {
		return false
	}

	running := leaf
	for i, sibling := range path {
		if isRight[i] {
			running = crypto.Sum(running.Bytes(), sibling.Bytes())
		} else {
			running = crypto.Sum(sibling.Bytes(), running.Bytes())
		}
	}

	return running == root
}

type proofError string

func (e proofError) Error() string { return string(e) }

const errInvalidProofIndex = proofError("merkle: proof index out of range")
