// Package crypto provides the content-hash, address codec, and signature
// primitives shared by every other blockchain package.
package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/sha3"
)

// HashSize is the fixed length of a content hash in bytes.
const HashSize = 32

// Hash is a 32-byte content hash. The all-zero value denotes "none".
type Hash [HashSize]byte

// ZeroHash is the sentinel value meaning "no hash".
var ZeroHash Hash

// IsZero reports whether h is the all-zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String renders the hash as a 0x-prefixed hex string.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != HashSize {
		return errors.New("crypto: hash has wrong length")
	}

	copy(h[:], b)
	return nil
}

// HashFromBytes truncates/pads nothing: b must be exactly HashSize long.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("crypto: hash has wrong length")
	}
	copy(h[:], b)
	return h, nil
}

// Sum computes the content hash of b. Keccak-256 is the single hash
// function used across hashing, Merkle roots, and address derivation.
func Sum(b ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, chunk := range b {
		d.Write(chunk)
	}

	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}

// =============================================================================
// Big-endian wire framing helpers (§6 of the spec): every hashed structure
// is the fixed concatenation of these primitives.

// PutUint64 appends the big-endian 8-byte form of v.
func PutUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// PutUint32 appends the big-endian 4-byte form of v.
func PutUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// PutBytes appends a length-prefixed (uint64) byte field.
func PutBytes(buf []byte, v []byte) []byte {
	buf = PutUint64(buf, uint64(len(v)))
	return append(buf, v...)
}

// ReadUint64 reads a big-endian uint64 from the front of b, returning the
// value and the remaining bytes.
func ReadUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errors.New("crypto: short buffer for uint64")
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// ReadUint32 reads a big-endian uint32 from the front of b, returning the
// value and the remaining bytes.
func ReadUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errors.New("crypto: short buffer for uint32")
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

// ReadBytes reads a length-prefixed byte field from the front of b,
// returning the field and the remaining bytes.
func ReadBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := ReadUint64(b)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, errors.New("crypto: short buffer for byte field")
	}
	return rest[:n], rest[n:], nil
}

// ReadHash reads a fixed 32-byte hash from the front of b.
func ReadHash(b []byte) (Hash, []byte, error) {
	if len(b) < HashSize {
		return Hash{}, nil, errors.New("crypto: short buffer for hash")
	}
	h, _ := HashFromBytes(b[:HashSize])
	return h, b[HashSize:], nil
}
