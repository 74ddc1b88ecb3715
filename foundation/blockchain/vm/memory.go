package vm

// memory is a frame's byte-addressable memory, growing on demand in
// 32-byte words (§4.2). Out-of-bounds reads return zero-padded bytes
// rather than erroring; callers pay the expansion gas separately via
// memoryExpansionCost.
type memory struct {
	data []byte
}

func newMemory() *memory {
	return &memory{}
}

func (m *memory) len() uint64 {
	return uint64(len(m.data))
}

// words reports the current size of the memory in 32-byte words.
func (m *memory) words() uint64 {
	return (uint64(len(m.data)) + 31) / 32
}

// resize grows memory to at least size bytes, rounded up to a 32-byte
// word boundary. It never shrinks.
func (m *memory) resize(size uint64) {
	wordSize := ((size + 31) / 32) * 32
	if wordSize <= uint64(len(m.data)) {
		return
	}
	grown := make([]byte, wordSize)
	copy(grown, m.data)
	m.data = grown
}

// set writes value into memory starting at offset, growing first.
func (m *memory) set(offset uint64, value []byte) {
	if len(value) == 0 {
		return
	}
	m.resize(offset + uint64(len(value)))
	copy(m.data[offset:], value)
}

// get returns size bytes starting at offset, zero-padding any portion that
// lies beyond the current memory length. It does not grow memory.
func (m *memory) get(offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(m.data)) {
		return out
	}
	end := offset + size
	if end > uint64(len(m.data)) {
		end = uint64(len(m.data))
	}
	copy(out, m.data[offset:end])
	return out
}

// getPtr returns a slice of live memory (no copy, no padding) for a range
// fully inside the current length; callers must resize first.
func (m *memory) getPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.data[offset : offset+size]
}
