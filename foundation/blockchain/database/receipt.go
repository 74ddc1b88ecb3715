package database

import (
	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
	"github.com/nonagon-chain/nonagon/foundation/blockchain/merkle"
)

// Log is one entry emitted by LOG0..LOG4 during execution (§4.2).
type Log struct {
	Address crypto.Address
	Topics  []crypto.Hash
	Data    []byte
}

func (l Log) encode() []byte {
	var buf []byte
	buf = append(buf, l.Address.Bytes()...)
	buf = crypto.PutUint32(buf, uint32(len(l.Topics)))
	for _, t := range l.Topics {
		buf = append(buf, t.Bytes()...)
	}
	buf = crypto.PutBytes(buf, l.Data)
	return buf
}

func decodeLog(b []byte) (Log, []byte, error) {
	var l Log

	addr, rest, err := readAddress(b)
	if err != nil {
		return Log{}, nil, err
	}
	l.Address = addr

	count, rest, err := crypto.ReadUint32(rest)
	if err != nil {
		return Log{}, nil, err
	}

	l.Topics = make([]crypto.Hash, count)
	for i := uint32(0); i < count; i++ {
		topic, r, err := crypto.ReadHash(rest)
		if err != nil {
			return Log{}, nil, err
		}
		l.Topics[i] = topic
		rest = r
	}

	data, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Log{}, nil, err
	}
	l.Data = data

	return l, rest, nil
}

// Receipt is the outcome of executing one transaction inside a block (§3).
type Receipt struct {
	TransactionHash crypto.Hash
	Success         bool
	GasUsed         uint64
	CumulativeGasUsed uint64
	BlockNumber     uint64
	TransactionIndex uint32
	From            crypto.Address
	To              crypto.Address
	ContractAddress crypto.Address // zero when the transaction did not create a contract
	Logs            []Log
}

// Hash returns the content hash of the receipt, used to build the
// receipts root and the settlement execution trace.
func (r Receipt) Hash() crypto.Hash {
	return crypto.Sum(r.Encode())
}

// Encode serializes the receipt with the shared big-endian framing.
func (r Receipt) Encode() []byte {
	var buf []byte
	buf = append(buf, r.TransactionHash.Bytes()...)
	if r.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = crypto.PutUint64(buf, r.GasUsed)
	buf = crypto.PutUint64(buf, r.CumulativeGasUsed)
	buf = crypto.PutUint64(buf, r.BlockNumber)
	buf = crypto.PutUint32(buf, r.TransactionIndex)
	buf = append(buf, r.From.Bytes()...)
	buf = append(buf, r.To.Bytes()...)
	buf = append(buf, r.ContractAddress.Bytes()...)
	buf = crypto.PutUint32(buf, uint32(len(r.Logs)))
	for _, l := range r.Logs {
		buf = append(buf, l.encode()...)
	}
	return buf
}

// DecodeReceipt parses the bytes produced by Encode.
func DecodeReceipt(b []byte) (Receipt, error) {
	var r Receipt

	txHash, rest, err := crypto.ReadHash(b)
	if err != nil {
		return Receipt{}, err
	}
	r.TransactionHash = txHash

	if len(rest) < 1 {
		return Receipt{}, errShortReceipt
	}
	r.Success = rest[0] == 1
	rest = rest[1:]

	gasUsed, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.GasUsed = gasUsed

	cumGasUsed, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.CumulativeGasUsed = cumGasUsed

	blockNumber, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.BlockNumber = blockNumber

	txIndex, rest, err := crypto.ReadUint32(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.TransactionIndex = txIndex

	from, rest, err := readAddress(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.From = from

	to, rest, err := readAddress(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.To = to

	contractAddr, rest, err := readAddress(rest)
	if err != nil {
		return Receipt{}, err
	}
	r.ContractAddress = contractAddr

	count, rest, err := crypto.ReadUint32(rest)
	if err != nil {
		return Receipt{}, err
	}

	r.Logs = make([]Log, 0, count)
	for i := uint32(0); i < count; i++ {
		l, remainder, err := decodeLog(rest)
		if err != nil {
			return Receipt{}, err
		}
		r.Logs = append(r.Logs, l)
		rest = remainder
	}

	return r, nil
}

// ReceiptsRoot computes the Merkle root (duplicate-last-leaf rule) of the
// hashes of receipts, in order.
func ReceiptsRoot(receipts []Receipt) crypto.Hash {
	hashes := make([]crypto.Hash, len(receipts))
	for i, r := range receipts {
		hashes[i] = r.Hash()
	}
	return merkle.Root(hashes)
}

type receiptError string

func (e receiptError) Error() string { return string(e) }

const errShortReceipt = receiptError("database: short buffer for receipt success flag")
