package vm

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// opCall dispatches CALL/CALLCODE/DELEGATECALL/STATICCALL. Each opens a
// sub-frame with its own snapshot (§4.2); on sub-frame revert its state
// mutations are rolled back, on success the returned bytes land in the
// parent's memory window.
func (vm *VM) opCall(frame *Frame, op OpCode) {
	gasWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	addrWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}

	value := uint256.NewInt(0)
	if op == CALL || op == CALLCODE {
		v, ok := frame.Stack.pop()
		if !ok {
			frame.Halt = HaltStackUnderflow
			return
		}
		value = &v
	}

	argsOffsetWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	argsSizeWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	retOffsetWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	retSizeWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}

	target := addressFromWord(&addrWord)
	argsOffset, argsSize := argsOffsetWord.Uint64(), argsSizeWord.Uint64()
	retOffset, retSize := retOffsetWord.Uint64(), retSizeWord.Uint64()

	frame.Memory.resize(argsOffset + argsSize)
	input := frame.Memory.get(argsOffset, argsSize)

	var caller, address, codeAddress crypto.Address
	static := frame.Static
	switch op {
	case CALL:
		caller, address, codeAddress = frame.Address, target, target
	case CALLCODE:
		caller, address, codeAddress = frame.Address, frame.Address, target
	case DELEGATECALL:
		caller, address, codeAddress = frame.Caller, frame.Address, target
		value = frame.Value
	case STATICCALL:
		caller, address, codeAddress = frame.Address, target, target
		static = true
	}

	if frame.Depth+1 >= maxCallDepth || (op == CALL && vm.State.Balance(frame.Address).Lt(value)) ||
		(op == CALLCODE && vm.State.Balance(frame.Address).Lt(value)) {
		if !frame.Stack.push(uint256.NewInt(0)) {
			frame.Halt = HaltStackOverflow
			return
		}
		frame.PC++
		return
	}

	forward := gasWord.Uint64()
	if forward > frame.Gas {
		forward = frame.Gas
	}
	frame.Gas -= forward

	code, _ := vm.State.Code(vm.State.CodeHash(codeAddress))

	snapshot := vm.State.Snapshot()
	if op == CALL && !value.IsZero() {
		vm.State.SubBalance(frame.Address, value)
		vm.State.AddBalance(target, value)
	}

	sub := newFrame(frame.Depth+1, caller, address, codeAddress, code, input, value, forward, static)
	sub.Snapshot = snapshot

	vm.runFrame(sub)

	frame.Gas += sub.Gas
	frame.ReturnData = sub.Output

	frame.Memory.resize(retOffset + retSize)
	out := sub.Output
	if uint64(len(out)) > retSize {
		out = out[:retSize]
	}
	frame.Memory.set(retOffset, out)

	if !sub.Halt.Failed() {
		if !frame.Stack.push(uint256.NewInt(1)) {
			frame.Halt = HaltStackOverflow
			return
		}
		frame.Logs = append(frame.Logs, sub.Logs...)
	} else {
		if !frame.Stack.push(uint256.NewInt(0)) {
			frame.Halt = HaltStackOverflow
			return
		}
	}
	frame.PC++
}

// opCreate dispatches CREATE/CREATE2 (§4.2): the new address is
// H(sender||nonce) truncated to 28 bytes for CREATE, or
// H(sender||salt||H(init_code)) for CREATE2; the creator's nonce is
// incremented before the init-code sub-frame runs.
func (vm *VM) opCreate(frame *Frame, op OpCode) {
	if frame.Static {
		frame.Halt = HaltStaticViolation
		return
	}

	value, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	offsetWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	sizeWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}

	var salt uint256.Int
	if op == CREATE2 {
		s, ok := frame.Stack.pop()
		if !ok {
			frame.Halt = HaltStackUnderflow
			return
		}
		salt = s
	}

	offset, size := offsetWord.Uint64(), sizeWord.Uint64()
	frame.Memory.resize(offset + size)
	initCode := frame.Memory.get(offset, size)

	if frame.Depth+1 >= maxCallDepth || vm.State.Balance(frame.Address).Lt(&value) {
		if !frame.Stack.push(uint256.NewInt(0)) {
			frame.Halt = HaltStackOverflow
			return
		}
		frame.PC++
		return
	}

	nonce := vm.State.Nonce(frame.Address)

	var newAddr crypto.Address
	if op == CREATE2 {
		saltBytes := salt.Bytes32()
		saltHash, _ := crypto.HashFromBytes(saltBytes[:])
		newAddr = crypto.DeriveCreate2(frame.Address, saltHash, crypto.Sum(initCode))
	} else {
		newAddr = crypto.DeriveCreate(frame.Address, nonce)
	}

	vm.State.IncrementNonce(frame.Address)

	snapshot := vm.State.Snapshot()
	if !value.IsZero() {
		vm.State.SubBalance(frame.Address, &value)
		vm.State.AddBalance(newAddr, &value)
	}

	forward := frame.Gas
	frame.Gas = 0

	sub := newFrame(frame.Depth+1, frame.Address, newAddr, newAddr, initCode, nil, &value, forward, false)
	sub.Snapshot = snapshot

	vm.runCreateBody(sub)

	frame.Gas += sub.Gas
	frame.ReturnData = sub.Output

	if sub.Halt == HaltReturn {
		v := new(uint256.Int).SetBytes(newAddr.Credential[:])
		if !frame.Stack.push(v) {
			frame.Halt = HaltStackOverflow
			return
		}
		frame.Logs = append(frame.Logs, sub.Logs...)
	} else {
		if !frame.Stack.push(uint256.NewInt(0)) {
			frame.Halt = HaltStackOverflow
			return
		}
	}
	frame.PC++
}

// opSelfdestruct credits the frame's entire balance to the beneficiary and
// zeroes it, then halts the frame. Accounts are never removed from state
// (§3 lifecycle invariant); only the balance moves.
func (vm *VM) opSelfdestruct(frame *Frame) {
	if frame.Static {
		frame.Halt = HaltStaticViolation
		return
	}

	beneficiaryWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	beneficiary := addressFromWord(&beneficiaryWord)

	balance := new(uint256.Int).Set(vm.State.Balance(frame.Address))
	vm.State.AddBalance(beneficiary, balance)
	vm.State.SetBalance(frame.Address, uint256.NewInt(0))

	frame.Halt = HaltStop
}
