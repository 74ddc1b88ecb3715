package vm

import "github.com/holiman/uint256"

// opBinary dispatches the two-operand arithmetic/comparison/bitwise family.
// Stack order follows the standard EVM convention: the first popped value
// (the prior top of stack) is the left-hand operand for every op except
// BYTE/SHL/SHR/SAR, which read it as the shift/index amount instead.
func (vm *VM) opBinary(frame *Frame, op OpCode) {
	a, ok1 := frame.Stack.pop()
	b, ok2 := frame.Stack.pop()
	if !ok1 || !ok2 {
		frame.Halt = HaltStackUnderflow
		return
	}

	result := new(uint256.Int)

	switch op {
	case ADD:
		result.Add(&a, &b)
	case MUL:
		result.Mul(&a, &b)
	case SUB:
		result.Sub(&a, &b)
	case DIV:
		result.Div(&a, &b)
	case SDIV:
		result.SDiv(&a, &b)
	case MOD:
		result.Mod(&a, &b)
	case SMOD:
		result.SMod(&a, &b)
	case EXP:
		result.Exp(&a, &b)
	case LT:
		result.SetUint64(boolToU64(a.Lt(&b)))
	case GT:
		result.SetUint64(boolToU64(a.Gt(&b)))
	case SLT:
		result.SetUint64(boolToU64(a.Slt(&b)))
	case SGT:
		result.SetUint64(boolToU64(a.Sgt(&b)))
	case EQ:
		result.SetUint64(boolToU64(a.Eq(&b)))
	case AND:
		result.And(&a, &b)
	case OR:
		result.Or(&a, &b)
	case XOR:
		result.Xor(&a, &b)
	case BYTE:
		result.Set(&b)
		result.Byte(&a)
	case SHL:
		if !shiftFits(&a) {
			result.Clear()
		} else {
			result.Lsh(&b, uint(a.Uint64()))
		}
	case SHR:
		if !shiftFits(&a) {
			result.Clear()
		} else {
			result.Rsh(&b, uint(a.Uint64()))
		}
	case SAR:
		if !shiftFits(&a) {
			if b.Sign() < 0 {
				result.SetAllOne()
			} else {
				result.Clear()
			}
		} else {
			result.SRsh(&b, uint(a.Uint64()))
		}
	}

	if !frame.Stack.push(result) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

func shiftFits(shift *uint256.Int) bool {
	return shift.IsUint64() && shift.Uint64() < 256
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// opUnary dispatches ISZERO and NOT.
func (vm *VM) opUnary(frame *Frame, op OpCode) {
	a, ok := frame.Stack.pop()
	if !ok {
		frame.Halt = HaltStackUnderflow
		return
	}

	result := new(uint256.Int)
	switch op {
	case ISZERO:
		result.SetUint64(boolToU64(a.IsZero()))
	case NOT:
		result.Not(&a)
	}

	if !frame.Stack.push(result) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

// opTernary dispatches ADDMOD and MULMOD: a, b are the operands, c is the
// modulus; a mod-zero modulus yields zero rather than dividing by zero.
func (vm *VM) opTernary(frame *Frame, op OpCode) {
	a, ok1 := frame.Stack.pop()
	b, ok2 := frame.Stack.pop()
	c, ok3 := frame.Stack.pop()
	if !ok1 || !ok2 || !ok3 {
		frame.Halt = HaltStackUnderflow
		return
	}

	result := new(uint256.Int)
	if c.IsZero() {
		result.Clear()
	} else {
		switch op {
		case ADDMOD:
			result.AddMod(&a, &b, &c)
		case MULMOD:
			result.MulMod(&a, &b, &c)
		}
	}

	if !frame.Stack.push(result) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC++
}

// opPush reads pushSize(op) immediate bytes (zero-padded if code runs out)
// and pushes them as a single word.
func (vm *VM) opPush(frame *Frame, op OpCode) {
	n := pushSize(op)
	start := frame.PC + 1
	end := start + uint64(n)

	var buf [32]byte
	codeLen := uint64(len(frame.Code))
	for i := 0; i < n; i++ {
		idx := start + uint64(i)
		if idx < codeLen {
			buf[32-n+i] = frame.Code[idx]
		}
	}

	v := new(uint256.Int).SetBytes(buf[32-n:])
	if !frame.Stack.push(v) {
		frame.Halt = HaltStackOverflow
		return
	}
	frame.PC = end
}
