package settlement_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/settlement"
)

func block(number uint64, txCount int) database.Block {
	txs := make([]database.Transaction, txCount)
	for i := range txs {
		txs[i] = database.Transaction{
			Value:                uint256.NewInt(0),
			MaxFeePerGas:         uint256.NewInt(1),
			MaxPriorityFeePerGas: uint256.NewInt(0),
		}
	}
	return database.Block{
		Header: database.Header{
			Number:  number,
			BaseFee: uint256.NewInt(1),
		},
		Transactions: txs,
	}
}

func Test_BuilderReadyOnMaxBatchSize(t *testing.T) {
	b := settlement.New(settlement.Config{MaxBatchSize: 3, MinBatchSize: 10, MaxBatchAgeSeconds: 1000})

	b.AddBlock(block(1, 2), 0)
	b.AddBlock(block(2, 0), 0)
	if b.Ready(0) {
		t.Fatal("builder should not be ready below max batch size and before the age threshold")
	}
	b.AddBlock(block(3, 1), 0)
	if !b.Ready(0) {
		t.Fatal("builder should be ready once transaction count reaches max batch size")
	}
}

func Test_BuilderReadyOnAgeAndMinBatchSize(t *testing.T) {
	b := settlement.New(settlement.Config{MaxBatchSize: 100, MinBatchSize: 2, MaxBatchAgeSeconds: 10})

	b.AddBlock(block(1, 1), 0)
	b.AddBlock(block(2, 1), 0)
	if b.Ready(5) {
		t.Fatal("builder should not be ready before the age threshold even with enough transactions")
	}
	if !b.Ready(11) {
		t.Fatal("builder should be ready once both age and min batch size are satisfied")
	}
}

// Test_BatchFinality matches the literal scenario: add 5 blocks, build a
// batch, verify its commitment, then advance the clock past the
// challenge window and observe the batch finalize with
// latest_finalized_block = 5.
func Test_BatchFinality(t *testing.T) {
	b := settlement.New(settlement.Config{MaxBatchSize: 5, MinBatchSize: 5, MaxBatchAgeSeconds: 1000})
	for i := uint64(1); i <= 5; i++ {
		b.AddBlock(block(i, 1), 0)
	}

	pre := crypto.Sum([]byte("pre"))
	post := crypto.Sum([]byte("post"))

	batch, ok := b.Build(0, pre, post)
	if !ok {
		t.Fatal("batch should be ready to build")
	}
	if batch.StartBlock != 1 || batch.EndBlock != 5 {
		t.Fatalf("batch spans [%d,%d], want [1,5]", batch.StartBlock, batch.EndBlock)
	}

	vk := crypto.Sum([]byte("verification-key"))
	record := settlement.BuildCommitment(batch, nil, vk)
	if !record.Verify(vk) {
		t.Fatal("freshly built commitment should verify")
	}

	tracker := settlement.NewTracker(100)
	tracker.Submit(batch, 0)

	if got := tracker.AdvanceClock(50); got != 0 {
		t.Fatalf("latest finalized block = %d before the challenge window elapses, want 0", got)
	}

	got := tracker.AdvanceClock(101)
	if got != 5 {
		t.Fatalf("latest finalized block = %d, want 5", got)
	}

	stored, ok := tracker.Get(batch.BatchID)
	if !ok || stored.Status != settlement.Finalized {
		t.Fatalf("batch status = %v, want Finalized", stored.Status)
	}
}

func Test_CommitmentVerifyRejectsTamperedField(t *testing.T) {
	batch := settlement.Batch{
		BatchID:       1,
		StartBlock:    1,
		EndBlock:      1,
		PreStateRoot:  crypto.Sum([]byte("a")),
		PostStateRoot: crypto.Sum([]byte("b")),
	}
	vk := crypto.Sum([]byte("key"))
	record := settlement.BuildCommitment(batch, nil, vk)

	record.PostStateRoot = crypto.Sum([]byte("tampered"))
	if record.Verify(vk) {
		t.Fatal("commitment should fail verification once a bound field is tampered with")
	}
}

func Test_CommitmentVerifyRejectsWrongVerificationKey(t *testing.T) {
	batch := settlement.Batch{BatchID: 1}
	record := settlement.BuildCommitment(batch, nil, crypto.Sum([]byte("key")))

	if record.Verify(crypto.Sum([]byte("other-key"))) {
		t.Fatal("commitment should fail verification against the wrong verification key")
	}
}
