package vm

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// Frame is one invocation context of the VM (§4.2, §9): a call or create.
// A frame carries its own depth rather than a pointer back to its caller,
// so the call chain is an index into the conceptual frame arena rather
// than a graph of aliased pointers.
type Frame struct {
	Depth int

	// Caller is msg.sender for this frame.
	Caller crypto.Address
	// Address is the account this frame executes as: SLOAD/SSTORE,
	// BALANCE-of-self, and SELFBALANCE all resolve against it. For
	// DELEGATECALL/CALLCODE this is the caller's own address even though
	// Code comes from a different account.
	Address crypto.Address
	// CodeAddress is the account the running code was loaded from.
	CodeAddress crypto.Address

	Code  []byte
	Input []byte
	Value *uint256.Int

	Gas uint64
	PC  uint64

	Stack  *stack
	Memory *memory

	Static bool

	// ReturnData is the most recent sub-call's output, consulted by
	// RETURNDATASIZE/RETURNDATACOPY.
	ReturnData []byte
	// Output is this frame's own final return/revert buffer.
	Output []byte

	Logs []database.Log
	Halt HaltReason

	Snapshot state.Snapshot

	jumpdests map[uint64]bool
}

func newFrame(depth int, caller, address, codeAddress crypto.Address, code, input []byte, value *uint256.Int, gas uint64, static bool) *Frame {
	return &Frame{
		Depth:       depth,
		Caller:      caller,
		Address:     address,
		CodeAddress: codeAddress,
		Code:        code,
		Input:       input,
		Value:       value,
		Gas:         gas,
		Stack:       newStack(),
		Memory:      newMemory(),
		Static:      static,
		jumpdests:   analyzeJumpdests(code),
	}
}

// analyzeJumpdests scans code for valid JUMPDEST positions, skipping over
// PUSH immediate-data bytes so a JUMPDEST byte embedded inside push data is
// never treated as a valid target.
func analyzeJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		if op == JUMPDEST {
			dests[uint64(i)] = true
			i++
			continue
		}
		if isPush(op) {
			i += 1 + pushSize(op)
			continue
		}
		i++
	}
	return dests
}

func (f *Frame) validJumpDest(dest uint64) bool {
	return f.jumpdests[dest]
}

// useGas subtracts cost from the frame's remaining gas, returning false
// (leaving Gas at 0) if that would go negative.
func (f *Frame) useGas(cost uint64) bool {
	if f.Gas < cost {
		f.Gas = 0
		return false
	}
	f.Gas -= cost
	return true
}
