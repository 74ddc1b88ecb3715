package consensus

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

// ValidationKind mirrors the block-level validation reasons named in §7
// that belong to the consensus engine rather than the execution
// processor: parent linkage, sequencer assignment, transactions root, and
// the header's gas bound.
type ValidationKind int

const (
	// ValidationNone means the block passed every check.
	ValidationNone ValidationKind = iota
	// ValidationBadParent means the block's parent_hash does not match the head.
	ValidationBadParent
	// ValidationBadSequencer means the block's sequencer is not the slot's leader.
	ValidationBadSequencer
	// ValidationBadRoot means the recomputed transactions root does not match the header.
	ValidationBadRoot
	// ValidationGasOverLimit means gas_used exceeds gas_limit.
	ValidationGasOverLimit
)

func (k ValidationKind) String() string {
	switch k {
	case ValidationNone:
		return "none"
	case ValidationBadParent:
		return "bad parent"
	case ValidationBadSequencer:
		return "bad sequencer"
	case ValidationBadRoot:
		return "bad root"
	case ValidationGasOverLimit:
		return "gas over limit"
	default:
		return "unknown"
	}
}

// ValidationError pairs a ValidationKind with a human-readable reason.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string {
	return "consensus: " + e.Kind.String() + ": " + e.Msg
}

// ValidateBlock checks block against head under registry (§4.5): the
// block number is head+1, its parent hash matches the head's hash, its
// sequencer is the elected leader for that block number (used as the
// slot index), its recomputed transactions root matches the header, and
// gas used does not exceed gas limit.
func ValidateBlock(head database.Header, block database.Block, registry *Registry) error {
	if block.Header.Number != head.Number+1 {
		return &ValidationError{Kind: ValidationBadParent, Msg: "block number is not head+1"}
	}
	if block.Header.ParentHash != head.Hash() {
		return &ValidationError{Kind: ValidationBadParent, Msg: "parent hash does not match head"}
	}

	leader := registry.Leader(block.Header.Number)
	if block.Header.Sequencer.Credential != leader.Credential {
		return &ValidationError{Kind: ValidationBadSequencer, Msg: "sequencer is not the elected leader for this slot"}
	}

	txRoot := database.TransactionsRoot(block.Transactions)
	if txRoot != block.Header.TransactionsRoot {
		return &ValidationError{Kind: ValidationBadRoot, Msg: "transactions root does not match header"}
	}

	if block.Header.GasUsed > block.Header.GasLimit {
		return &ValidationError{Kind: ValidationGasOverLimit, Msg: "gas used exceeds gas limit"}
	}

	return nil
}
