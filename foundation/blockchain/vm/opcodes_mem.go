package vm

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/database"
)

func (vm *VM) opMload(frame *Frame) {
	offsetWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	offset := offsetWord.Uint64()

	frame.Memory.resize(offset + 32)
	v := new(uint256.Int).SetBytes(frame.Memory.get(offset, 32))
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func (vm *VM) opMstore(frame *Frame, byteOnly bool) {
	offsetWord, ok1 := frame.Stack.pop()
	value, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}
	offset := offsetWord.Uint64()

	if byteOnly {
		frame.Memory.resize(offset + 1)
		frame.Memory.set(offset, []byte{byte(value.Uint64())})
	} else {
		frame.Memory.resize(offset + 32)
		b := value.Bytes32()
		frame.Memory.set(offset, b[:])
	}
	frame.PC++
}

func (vm *VM) opSload(frame *Frame) {
	slotWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	slotBytes := slotWord.Bytes32()
	slot := crypto.Sum(slotBytes[:])

	raw := vm.State.StorageGet(frame.Address, slot)
	v := new(uint256.Int).SetBytes(raw)
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func (vm *VM) opSstore(frame *Frame) {
	if frame.Static {
		frame.Halt = HaltStaticViolation
		return
	}

	slotWord, ok1 := frame.Stack.pop()
	value, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}
	slotBytes := slotWord.Bytes32()
	slot := crypto.Sum(slotBytes[:])

	if value.IsZero() {
		vm.State.StorageSet(frame.Address, slot, nil)
	} else {
		b := value.Bytes()
		vm.State.StorageSet(frame.Address, slot, b)
	}
	frame.PC++
}

func (vm *VM) opJump(frame *Frame) {
	dest, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	if !dest.IsUint64() || !frame.validJumpDest(dest.Uint64()) {
		frame.Halt = HaltBadJump
		return
	}
	frame.PC = dest.Uint64()
}

func (vm *VM) opJumpi(frame *Frame) {
	dest, ok1 := frame.Stack.pop()
	cond, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}

	if cond.IsZero() {
		frame.PC++
		return
	}

	if !dest.IsUint64() || !frame.validJumpDest(dest.Uint64()) {
		frame.Halt = HaltBadJump
		return
	}
	frame.PC = dest.Uint64()
}

func (vm *VM) opCalldataload(frame *Frame) {
	offsetWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	offset := offsetWord.Uint64()

	var buf [32]byte
	for i := 0; i < 32; i++ {
		idx := offset + uint64(i)
		if idx < uint64(len(frame.Input)) {
			buf[i] = frame.Input[idx]
		}
	}

	v := new(uint256.Int).SetBytes(buf[:])
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

// opDataCopy implements CALLDATACOPY/CODECOPY/RETURNDATACOPY: copy size
// bytes from source (starting at sourceOffset, zero-padded past its end)
// into memory at destOffset.
func (vm *VM) opDataCopy(frame *Frame, source []byte) {
	destOffsetWord, ok1 := frame.Stack.pop()
	sourceOffsetWord, ok2 := frame.Stack.pop()
	sizeWord, ok3 := frame.Stack.pop()
	if !ok1 || !ok2 || !ok3 {
		frame.Halt = HaltStackUnderflow
		return
	}

	destOffset := destOffsetWord.Uint64()
	sourceOffset := sourceOffsetWord.Uint64()
	size := sizeWord.Uint64()

	frame.Memory.resize(destOffset + size)

	out := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		idx := sourceOffset + i
		if idx < uint64(len(source)) {
			out[i] = source[idx]
		}
	}
	frame.Memory.set(destOffset, out)
	frame.PC++
}

func (vm *VM) opExtcodesize(frame *Frame) {
	addrWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	addr := addressFromWord(&addrWord)

	code, _ := vm.State.Code(vm.State.CodeHash(addr))
	if !frame.Stack.push(uint256.NewInt(uint64(len(code)))) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func (vm *VM) opBalance(frame *Frame) {
	addrWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}
	addr := addressFromWord(&addrWord)

	if !frame.Stack.push(vm.State.Balance(addr)) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func (vm *VM) opBlockhash(frame *Frame) {
	numberWord, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}

	var hash crypto.Hash
	if vm.Block.GetHash != nil && numberWord.IsUint64() {
		hash = vm.Block.GetHash(numberWord.Uint64())
	}

	v := new(uint256.Int).SetBytes(hash.Bytes())
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func (vm *VM) opReturnOrRevert(frame *Frame, halt HaltReason) {
	offsetWord, ok1 := frame.Stack.pop()
	sizeWord, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}

	offset := offsetWord.Uint64()
	size := sizeWord.Uint64()

	frame.Memory.resize(offset + size)
	frame.Output = frame.Memory.get(offset, size)
	frame.Halt = halt
}

func (vm *VM) opLog(frame *Frame, op OpCode) {
	if frame.Static {
		frame.Halt = HaltStaticViolation
		return
	}

	n := logTopics(op)

	offsetWord, ok1 := frame.Stack.pop()
	sizeWord, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}

	topics := make([]crypto.Hash, n)
	for i := 0; i < n; i++ {
		w, ok := frame.Stack.pop()
		if !ok {
			frame.Halt = HaltStackUnderflow
			return
		}
		b := w.Bytes32()
		topics[i], _ = crypto.HashFromBytes(b[:])
	}

	offset := offsetWord.Uint64()
	size := sizeWord.Uint64()
	frame.Memory.resize(offset + size)
	data := frame.Memory.get(offset, size)

	frame.Logs = append(frame.Logs, database.Log{Address: frame.Address, Topics: topics, Data: data})
	frame.PC++
}
