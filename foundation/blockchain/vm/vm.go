// Package vm implements the deterministic virtual machine (component H):
// a gas-metered stack machine over 256-bit words, executing over the
// authenticated state manager (component D) with snapshot/revert
// semantics at every call boundary.
package vm

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/state"
)

// maxCallDepth bounds call/create nesting.
const maxCallDepth = 1024

// BlockContext carries the block-wide values environment opcodes read
// (COINBASE, TIMESTAMP, NUMBER, ...). It is fixed for every transaction
// executed within one block.
type BlockContext struct {
	Number     uint64
	Timestamp  uint64
	BaseFee    *uint256.Int
	GasLimit   uint64
	Coinbase   crypto.Address // the block's sequencer
	ChainID    uint64
	PrevRandao crypto.Hash
	// GetHash resolves BLOCKHASH for a given past block number. Nil is
	// treated as "unknown" (returns the zero hash), matching a node that
	// has not retained that block.
	GetHash func(number uint64) crypto.Hash
}

// Result is the outcome of a top-level Call or Create.
type Result struct {
	ReturnData      []byte
	GasLeft         uint64
	Halt            HaltReason
	Logs            []database.Log
	ContractAddress crypto.Address // set only by Create, on success
}

// VM executes gas-metered code over a state manager (§4.2). A VM instance
// is scoped to one transaction; a single transaction executes to
// completion or revert without yielding (§5) — there is no suspension
// point inside Call/Create.
type VM struct {
	State    *state.Manager
	Block    BlockContext
	Origin   crypto.Address
	GasPrice *uint256.Int
}

// New constructs a VM scoped to one transaction executing against state
// under block, as the caller identified by origin paying gasPrice (the
// effective price, §4.3).
func New(st *state.Manager, block BlockContext, origin crypto.Address, gasPrice *uint256.Int) *VM {
	return &VM{State: st, Block: block, Origin: origin, GasPrice: gasPrice}
}

// Call invokes the code at `to` (a CALL-kind top-level message call). If
// `to` has no code, this degenerates to a value transfer the caller
// (execution package) has already applied; Call is only meaningful for
// contract accounts.
func (vm *VM) Call(caller, to crypto.Address, input []byte, value *uint256.Int, gas uint64) Result {
	code, _ := vm.State.Code(vm.State.CodeHash(to))
	snap := vm.State.Snapshot()

	frame := newFrame(0, caller, to, to, code, input, value, gas, false)
	frame.Snapshot = snap

	vm.runFrame(frame)
	return vm.finalize(frame)
}

// Create invokes init code at the precomputed contract address (a CREATE-
// kind top-level message, used for contract-creation transactions; the
// address is derived by the caller from the transaction's own nonce, not
// by the VM — see the CREATE opcode handler for the internal-call case).
func (vm *VM) Create(caller, contractAddress crypto.Address, initCode []byte, value *uint256.Int, gas uint64) Result {
	snap := vm.State.Snapshot()

	frame := newFrame(0, caller, contractAddress, contractAddress, initCode, nil, value, gas, false)
	frame.Snapshot = snap

	vm.runCreateBody(frame)
	result := vm.finalize(frame)
	if !result.Halt.Failed() {
		result.ContractAddress = contractAddress
	}
	return result
}

func (vm *VM) finalize(frame *Frame) Result {
	return Result{
		ReturnData: frame.Output,
		GasLeft:    frame.Gas,
		Halt:       frame.Halt,
		Logs:       frame.Logs,
	}
}

// runFrame executes frame's code from PC 0 until it halts.
func (vm *VM) runFrame(frame *Frame) {
	for frame.Halt == HaltNone {
		vm.step(frame)
	}

	if frame.Halt.Failed() {
		vm.State.Revert(frame.Snapshot)
	}
}

// runCreateBody executes frame's init code, then — on success — installs
// the returned bytes as the new account's code.
func (vm *VM) runCreateBody(frame *Frame) {
	vm.runFrame(frame)
	if frame.Halt == HaltReturn {
		vm.State.SetCode(frame.Address, frame.Output)
	}
}

// step executes exactly one opcode, charging its gas first.
func (vm *VM) step(frame *Frame) {
	if frame.PC >= uint64(len(frame.Code)) {
		frame.Halt = HaltStop
		return
	}

	op := OpCode(frame.Code[frame.PC])

	cost, ok := vm.gasCost(frame, op)
	if !ok {
		frame.Halt = HaltInvalidOpcode
		return
	}
	if !frame.useGas(cost) {
		frame.Halt = HaltOutOfGas
		return
	}

	vm.dispatch(frame, op)
}

// dispatch executes op against frame, advancing PC unless the opcode
// itself controls flow (JUMP/JUMPI) or halts.
func (vm *VM) dispatch(frame *Frame, op OpCode) {
	switch {
	case isPush(op):
		vm.opPush(frame, op)
		return
	case isDup(op):
		if !frame.Stack.dup(dupSize(op)) {
			frame.Halt = HaltStackUnderflow
			return
		}
		frame.PC++
		return
	case isSwap(op):
		if !frame.Stack.swap(swapSize(op)) {
			frame.Halt = HaltStackUnderflow
			return
		}
		frame.PC++
		return
	case isLog(op):
		vm.opLog(frame, op)
		return
	}

	switch op {
	case STOP:
		frame.Halt = HaltStop
	case ADD, MUL, SUB, DIV, SDIV, MOD, SMOD, EXP, LT, GT, SLT, SGT, EQ, AND, OR, XOR, SHL, SHR, SAR, BYTE:
		vm.opBinary(frame, op)
	case ADDMOD, MULMOD:
		vm.opTernary(frame, op)
	case ISZERO, NOT:
		vm.opUnary(frame, op)
	case POP:
		if _, ok := frame.Stack.pop(); !ok {
			frame.Halt = HaltStackUnderflow
			return
		}
		frame.PC++
	case MLOAD:
		vm.opMload(frame)
	case MSTORE:
		vm.opMstore(frame, false)
	case MSTORE8:
		vm.opMstore(frame, true)
	case SLOAD:
		vm.opSload(frame)
	case SSTORE:
		vm.opSstore(frame)
	case JUMP:
		vm.opJump(frame)
	case JUMPI:
		vm.opJumpi(frame)
	case PC:
		vm.pushOrOverflow(frame, uint256.NewInt(frame.PC))
	case MSIZE:
		vm.pushOrOverflow(frame, uint256.NewInt(frame.Memory.len()))
	case GAS:
		vm.pushOrOverflow(frame, uint256.NewInt(frame.Gas))
	case JUMPDEST:
		frame.PC++
	case ADDRESS:
		vm.pushAddress(frame, frame.Address)
	case BALANCE:
		vm.opBalance(frame)
	case ORIGIN:
		vm.pushAddress(frame, vm.Origin)
	case CALLER:
		vm.pushAddress(frame, frame.Caller)
	case CALLVALUE:
		vm.pushOrOverflow(frame, frame.Value)
	case CALLDATALOAD:
		vm.opCalldataload(frame)
	case CALLDATASIZE:
		vm.pushOrOverflow(frame, uint256.NewInt(uint64(len(frame.Input))))
	case CALLDATACOPY:
		vm.opDataCopy(frame, frame.Input)
	case CODESIZE:
		vm.pushOrOverflow(frame, uint256.NewInt(uint64(len(frame.Code))))
	case CODECOPY:
		vm.opDataCopy(frame, frame.Code)
	case GASPRICE:
		vm.pushOrOverflow(frame, vm.GasPrice)
	case EXTCODESIZE:
		vm.opExtcodesize(frame)
	case RETURNDATASIZE:
		vm.pushOrOverflow(frame, uint256.NewInt(uint64(len(frame.ReturnData))))
	case RETURNDATACOPY:
		vm.opDataCopy(frame, frame.ReturnData)
	case BLOCKHASH:
		vm.opBlockhash(frame)
	case COINBASE:
		vm.pushAddress(frame, vm.Block.Coinbase)
	case TIMESTAMP:
		vm.pushOrOverflow(frame, uint256.NewInt(vm.Block.Timestamp))
	case NUMBER:
		vm.pushOrOverflow(frame, uint256.NewInt(vm.Block.Number))
	case PREVRANDAO:
		vm.pushOrOverflow(frame, new(uint256.Int).SetBytes(vm.Block.PrevRandao.Bytes()))
	case GASLIMIT:
		vm.pushOrOverflow(frame, uint256.NewInt(vm.Block.GasLimit))
	case CHAINID:
		vm.pushOrOverflow(frame, uint256.NewInt(vm.Block.ChainID))
	case SELFBALANCE:
		vm.pushOrOverflow(frame, vm.State.Balance(frame.Address))
	case BASEFEE:
		vm.pushOrOverflow(frame, vm.Block.BaseFee)
	case RETURN:
		vm.opReturnOrRevert(frame, HaltReturn)
	case REVERT:
		vm.opReturnOrRevert(frame, HaltRevert)
	case INVALID:
		frame.Halt = HaltInvalidOpcode
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		vm.opCall(frame, op)
	case CREATE, CREATE2:
		vm.opCreate(frame, op)
	case SELFDESTRUCT:
		vm.opSelfdestruct(frame)
	default:
		frame.Halt = HaltInvalidOpcode
	}
}

func (vm *VM) pushAddress(frame *Frame, addr crypto.Address) {
	v := new(uint256.Int).SetBytes(addr.Credential[:])
	vm.pushOrOverflow(frame, v)
}

// pushOrOverflow pushes v onto frame's stack, halting with
// HaltStackOverflow instead of advancing PC if the stack is full.
func (vm *VM) pushOrOverflow(frame *Frame, v *uint256.Int) {
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func addressFromWord(w *uint256.Int) crypto.Address {
	b := w.Bytes32()
	var addr crypto.Address
	copy(addr.Credential[:], b[32-crypto.CredentialSize:])
	return addr
}
