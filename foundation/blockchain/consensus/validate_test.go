package consensus_test

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/consensus"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

func newRegistryWithLeader(t *testing.T, number uint64) (*consensus.Registry, database.Header) {
	t.Helper()
	r := consensus.New(uint256.NewInt(1), 10)
	register(r, addr(1), 100)

	head := database.Header{
		Number:  number - 1,
		BaseFee: uint256.NewInt(1),
	}
	return r, head
}

func Test_ValidateBlockAccepts(t *testing.T) {
	r, head := newRegistryWithLeader(t, 1)

	block := database.Block{
		Header: database.Header{
			Number:     1,
			ParentHash: head.Hash(),
			Sequencer:  r.Leader(1),
			BaseFee:    uint256.NewInt(1),
			GasLimit:   1000,
			GasUsed:    0,
		},
	}
	block.Header.TransactionsRoot = database.TransactionsRoot(block.Transactions)

	if err := consensus.ValidateBlock(head, block, r); err != nil {
		t.Fatalf("expected block to validate, got %v", err)
	}
}

func Test_ValidateBlockRejectsBadParent(t *testing.T) {
	r, head := newRegistryWithLeader(t, 1)

	block := database.Block{
		Header: database.Header{
			Number:     1,
			ParentHash: database.Header{BaseFee: uint256.NewInt(2)}.Hash(),
			Sequencer:  r.Leader(1),
			BaseFee:    uint256.NewInt(1),
			GasLimit:   1000,
		},
	}

	err := consensus.ValidateBlock(head, block, r)
	var verr *consensus.ValidationError
	if err == nil {
		t.Fatal("expected validation to fail on parent hash mismatch")
	}
	if !asValidationError(err, &verr) || verr.Kind != consensus.ValidationBadParent {
		t.Fatalf("got %v, want ValidationBadParent", err)
	}
}

func Test_ValidateBlockRejectsWrongSequencer(t *testing.T) {
	r, head := newRegistryWithLeader(t, 1)

	block := database.Block{
		Header: database.Header{
			Number:     1,
			ParentHash: head.Hash(),
			Sequencer:  addr(99),
			BaseFee:    uint256.NewInt(1),
			GasLimit:   1000,
		},
	}
	block.Header.TransactionsRoot = database.TransactionsRoot(block.Transactions)

	err := consensus.ValidateBlock(head, block, r)
	var verr *consensus.ValidationError
	if !asValidationError(err, &verr) || verr.Kind != consensus.ValidationBadSequencer {
		t.Fatalf("got %v, want ValidationBadSequencer", err)
	}
}

func Test_ValidateBlockRejectsGasOverLimit(t *testing.T) {
	r, head := newRegistryWithLeader(t, 1)

	block := database.Block{
		Header: database.Header{
			Number:     1,
			ParentHash: head.Hash(),
			Sequencer:  r.Leader(1),
			BaseFee:    uint256.NewInt(1),
			GasLimit:   1000,
			GasUsed:    2000,
		},
	}
	block.Header.TransactionsRoot = database.TransactionsRoot(block.Transactions)

	err := consensus.ValidateBlock(head, block, r)
	var verr *consensus.ValidationError
	if !asValidationError(err, &verr) || verr.Kind != consensus.ValidationGasOverLimit {
		t.Fatalf("got %v, want ValidationGasOverLimit", err)
	}
}

func asValidationError(err error, target **consensus.ValidationError) bool {
	verr, ok := err.(*consensus.ValidationError)
	if !ok {
		return false
	}
	*target = verr
	return true
}
