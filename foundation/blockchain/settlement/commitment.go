package settlement

import (
	"github.com/google/uuid"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// proofRounds is the fixed number of iterated-hash rounds used to derive
// proof_hash from its seed (§4.6).
const proofRounds = 4

// CommitmentRecord is the system's stand-in for a ZK proof over one
// settlement batch (§4.6): it binds the batch's identifiers and roots to
// a commitment hash and a proof hash, both recomputable from the record's
// own fields (including its receipt-hash execution trace) by a verifier
// holding the verification key.
type CommitmentRecord struct {
	CorrelationID uuid.UUID // diagnostic id, not the batch identity

	BatchID    uint64
	StartBlock uint64
	EndBlock   uint64

	PreStateRoot     crypto.Hash
	PostStateRoot    crypto.Hash
	TransactionsRoot crypto.Hash

	StateProofPath  [3]crypto.Hash // [pre, H(pre||post), post]
	ExecutionTrace  []crypto.Hash  // receipt hashes, in order

	VerificationKey crypto.Hash
	Commitment      crypto.Hash
	ProofHash       crypto.Hash
}

// BuildCommitment produces the commitment record for batch, binding it to
// verificationKey and the ordered receipts produced while executing it
// (§4.6). The correlation id is generated fresh each call; it identifies
// this particular build attempt for logs, not the batch or commitment
// itself, both of which are already uniquely identified by BatchID and
// Commitment.
func BuildCommitment(batch Batch, receipts []database.Receipt, verificationKey crypto.Hash) CommitmentRecord {
	trace := make([]crypto.Hash, len(receipts))
	for i, r := range receipts {
		trace[i] = r.Hash()
	}

	mid := crypto.Sum(batch.PreStateRoot.Bytes(), batch.PostStateRoot.Bytes())
	path := [3]crypto.Hash{batch.PreStateRoot, mid, batch.PostStateRoot}

	rec := CommitmentRecord{
		CorrelationID:    uuid.New(),
		BatchID:          batch.BatchID,
		StartBlock:       batch.StartBlock,
		EndBlock:         batch.EndBlock,
		PreStateRoot:     batch.PreStateRoot,
		PostStateRoot:    batch.PostStateRoot,
		TransactionsRoot: batch.TransactionsRoot,
		StateProofPath:   path,
		ExecutionTrace:   trace,
		VerificationKey:  verificationKey,
	}

	rec.Commitment = rec.computeCommitment()
	rec.ProofHash = rec.computeProofHash()

	return rec
}

func (r CommitmentRecord) stateProofConcat() []byte {
	var buf []byte
	for _, h := range r.StateProofPath {
		buf = append(buf, h.Bytes()...)
	}
	return buf
}

func (r CommitmentRecord) traceConcat() []byte {
	var buf []byte
	for _, h := range r.ExecutionTrace {
		buf = append(buf, h.Bytes()...)
	}
	return buf
}

func (r CommitmentRecord) computeCommitment() crypto.Hash {
	var buf []byte
	buf = crypto.PutUint64(buf, r.BatchID)
	buf = crypto.PutUint64(buf, r.StartBlock)
	buf = crypto.PutUint64(buf, r.EndBlock)
	buf = append(buf, r.PreStateRoot.Bytes()...)
	buf = append(buf, r.PostStateRoot.Bytes()...)
	buf = append(buf, r.TransactionsRoot.Bytes()...)
	buf = append(buf, r.stateProofConcat()...)
	return crypto.Sum(buf)
}

// computeProofHash iterates the hash function proofRounds times over a
// seed binding the commitment, the verification key, and the execution
// trace, standing in for a real proving system's final digest.
func (r CommitmentRecord) computeProofHash() crypto.Hash {
	seed := append([]byte{}, r.Commitment.Bytes()...)
	seed = append(seed, r.VerificationKey.Bytes()...)
	seed = append(seed, r.traceConcat()...)

	h := crypto.Sum(seed)
	for i := 1; i < proofRounds; i++ {
		h = crypto.Sum(h.Bytes())
	}
	return h
}

// Verify recomputes commitment and proof_hash from the record's own
// fields and checks they match the stored values, and that the stored
// verification key matches the expected one (§4.6).
func (r CommitmentRecord) Verify(expectedVerificationKey crypto.Hash) bool {
	if r.VerificationKey != expectedVerificationKey {
		return false
	}
	if r.computeCommitment() != r.Commitment {
		return false
	}
	if r.computeProofHash() != r.ProofHash {
		return false
	}
	return true
}
