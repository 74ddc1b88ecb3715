package database

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/merkle"
)

// Header carries every field that identifies a block independent of its
// transaction bodies (§3).
type Header struct {
	Number           uint64
	ParentHash       crypto.Hash
	StateRoot        crypto.Hash
	TransactionsRoot crypto.Hash
	ReceiptsRoot     crypto.Hash
	Sequencer        crypto.Address
	GasLimit         uint64
	GasUsed          uint64
	BaseFee          *uint256.Int
	Timestamp        uint64
	L1ReferenceNumber uint64
	BatchID          uint64
}

// preimage builds the fixed-order big-endian concatenation that Hash sums.
func (h Header) preimage() []byte {
	var buf []byte
	buf = crypto.PutUint64(buf, h.Number)
	buf = append(buf, h.ParentHash.Bytes()...)
	buf = append(buf, h.StateRoot.Bytes()...)
	buf = append(buf, h.TransactionsRoot.Bytes()...)
	buf = append(buf, h.ReceiptsRoot.Bytes()...)
	buf = append(buf, h.Sequencer.Bytes()...)
	buf = crypto.PutUint64(buf, h.GasLimit)
	buf = crypto.PutUint64(buf, h.GasUsed)
	baseFee := h.BaseFee
	if baseFee == nil {
		baseFee = new(uint256.Int)
	}
	buf = crypto.PutBytes(buf, baseFee.Bytes())
	buf = crypto.PutUint64(buf, h.Timestamp)
	buf = crypto.PutUint64(buf, h.L1ReferenceNumber)
	buf = crypto.PutUint64(buf, h.BatchID)
	return buf
}

// Hash returns the content hash identifying this header.
func (h Header) Hash() crypto.Hash {
	return crypto.Sum(h.preimage())
}

// Encode serializes the header with the shared big-endian wire framing.
func (h Header) Encode() []byte {
	return h.preimage()
}

// DecodeHeader parses the bytes produced by Encode.
func DecodeHeader(b []byte) (Header, error) {
	h, _, err := decodeHeaderPrefix(b)
	return h, err
}

// Block is a header plus its ordered transaction list.
type Block struct {
	Header       Header
	Transactions []Transaction
}

// Hash returns the content hash of the block's header; transaction bodies
// are already bound into it via TransactionsRoot.
func (b Block) Hash() crypto.Hash {
	return b.Header.Hash()
}

// TransactionsRoot computes the Merkle root (duplicate-last-leaf rule) of
// the hashes of txs, in order.
func TransactionsRoot(txs []Transaction) crypto.Hash {
	hashes := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return merkle.Root(hashes)
}

// Encode serializes the block: header || tx_count:u32 || (tx_len:u32, tx_bytes)*.
func (b Block) Encode() []byte {
	buf := append([]byte{}, b.Header.Encode()...)
	buf = crypto.PutUint32(buf, uint32(len(b.Transactions)))
	for _, tx := range b.Transactions {
		encoded := tx.Encode()
		buf = crypto.PutUint32(buf, uint32(len(encoded)))
		buf = append(buf, encoded...)
	}
	return buf
}

// DecodeBlock parses the bytes produced by Encode.
func DecodeBlock(b []byte) (Block, error) {
	// Header has no length prefix, but every header field is fixed-width
	// except BaseFee, which is length-prefixed, so decode is
	// self-delimiting: decodeHeaderPrefix returns the remainder after it.
	h, rest, err := decodeHeaderPrefix(b)
	if err != nil {
		return Block{}, err
	}

	count, rest, err := crypto.ReadUint32(rest)
	if err != nil {
		return Block{}, err
	}

	txs := make([]Transaction, 0, count)
	for i := uint32(0); i < count; i++ {
		txLen, r, err := crypto.ReadUint32(rest)
		if err != nil {
			return Block{}, err
		}
		if uint32(len(r)) < txLen {
			return Block{}, errors.New("database: short buffer for transaction body")
		}
		tx, err := DecodeTransaction(r[:txLen])
		if err != nil {
			return Block{}, err
		}
		txs = append(txs, tx)
		rest = r[txLen:]
	}

	return Block{Header: h, Transactions: txs}, nil
}

// decodeHeaderPrefix decodes a Header from the front of b and returns the
// unconsumed remainder; DecodeHeader is this walk with the remainder
// discarded.
func decodeHeaderPrefix(b []byte) (Header, []byte, error) {
	var h Header

	number, rest, err := crypto.ReadUint64(b)
	if err != nil {
		return Header{}, nil, err
	}
	h.Number = number

	parentHash, rest, err := crypto.ReadHash(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.ParentHash = parentHash

	stateRoot, rest, err := crypto.ReadHash(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.StateRoot = stateRoot

	txRoot, rest, err := crypto.ReadHash(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.TransactionsRoot = txRoot

	receiptsRoot, rest, err := crypto.ReadHash(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.ReceiptsRoot = receiptsRoot

	sequencer, rest, err := readAddress(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.Sequencer = sequencer

	gasLimit, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.GasLimit = gasLimit

	gasUsed, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.GasUsed = gasUsed

	baseFeeBytes, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.BaseFee = new(uint256.Int).SetBytes(baseFeeBytes)

	timestamp, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.Timestamp = timestamp

	l1Ref, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.L1ReferenceNumber = l1Ref

	batchID, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Header{}, nil, err
	}
	h.BatchID = batchID

	return h, rest, nil
}
