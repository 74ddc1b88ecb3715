// Package database implements the transaction, block, and receipt wire
// codecs (component F): deterministic big-endian framing and the content
// hashing that identifies each structure.
package database

import (
	"crypto/ecdsa"
	"errors"

	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Transaction is a signed transfer or contract call/creation.
type Transaction struct {
	From               crypto.Address
	To                 crypto.Address // ZeroAddress means contract creation
	Value              *uint256.Int
	Nonce              uint64
	Data               []byte
	GasLimit           uint64
	MaxFeePerGas       *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	PublicKey          []byte // uncompressed secp256k1 public key
	Signature          []byte
}

// IsCreate reports whether this transaction deploys a contract.
func (tx Transaction) IsCreate() bool {
	return tx.To.IsZero()
}

// signingPreimage builds the big-endian concatenation that is hashed to
// produce the transaction hash: per §3, the first seven fields (sender,
// recipient, value, nonce, data, gas limit, max-fee-per-gas) plus the
// public key. max-priority-fee-per-gas and the signature are deliberately
// excluded from the pre-image.
func (tx Transaction) signingPreimage() []byte {
	var buf []byte
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, tx.To.Bytes()...)
	buf = crypto.PutBytes(buf, tx.Value.Bytes())
	buf = crypto.PutUint64(buf, tx.Nonce)
	buf = crypto.PutBytes(buf, tx.Data)
	buf = crypto.PutUint64(buf, tx.GasLimit)
	buf = crypto.PutBytes(buf, tx.MaxFeePerGas.Bytes())
	buf = crypto.PutBytes(buf, tx.PublicKey)
	return buf
}

// Hash returns the content hash identifying this transaction.
func (tx Transaction) Hash() crypto.Hash {
	return crypto.Sum(tx.signingPreimage())
}

// Sign produces the signature over tx.Hash() using privateKey, returning a
// fully signed copy.
func (tx Transaction) Sign(privateKey *ecdsa.PrivateKey) (Transaction, error) {
	tx.PublicKey = cryptoPublicKeyBytes(&privateKey.PublicKey)

	sig, err := crypto.Sign(tx.Hash(), privateKey)
	if err != nil {
		return Transaction{}, err
	}
	tx.Signature = sig
	return tx, nil
}

// Validate checks the transaction's signature against its embedded public
// key and that the key derives the From address. It does not check
// nonce/balance/gas —
// those are the execution processor's job (§4.3).
func (tx Transaction) Validate() error {
	if len(tx.PublicKey) == 0 {
		return errors.New("database: transaction has no public key")
	}

	pub, err := cryptoUnmarshalPubkey(tx.PublicKey)
	if err != nil {
		return err
	}

	if err := crypto.Verify(tx.Hash(), tx.Signature, pub); err != nil {
		return err
	}

	signer := crypto.FromPublicKey(pub)
	if signer.Credential != tx.From.Credential {
		return errors.New("database: signature does not match from address")
	}

	return nil
}

// Encode produces the deterministic wire form of the transaction: every
// field, big-endian, length-prefixed where variable-length.
func (tx Transaction) Encode() []byte {
	var buf []byte
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, tx.To.Bytes()...)
	buf = crypto.PutBytes(buf, tx.Value.Bytes())
	buf = crypto.PutUint64(buf, tx.Nonce)
	buf = crypto.PutBytes(buf, tx.Data)
	buf = crypto.PutUint64(buf, tx.GasLimit)
	buf = crypto.PutBytes(buf, tx.MaxFeePerGas.Bytes())
	buf = crypto.PutBytes(buf, tx.MaxPriorityFeePerGas.Bytes())
	buf = crypto.PutBytes(buf, tx.PublicKey)
	buf = crypto.PutBytes(buf, tx.Signature)
	return buf
}

// DecodeTransaction parses the bytes produced by Encode.
func DecodeTransaction(b []byte) (Transaction, error) {
	var tx Transaction

	from, rest, err := readAddress(b)
	if err != nil {
		return Transaction{}, err
	}
	tx.From = from

	to, rest, err := readAddress(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.To = to

	valueBytes, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.Value = new(uint256.Int).SetBytes(valueBytes)

	nonce, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.Nonce = nonce

	data, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.Data = data

	gasLimit, rest, err := crypto.ReadUint64(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.GasLimit = gasLimit

	maxFeeBytes, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.MaxFeePerGas = new(uint256.Int).SetBytes(maxFeeBytes)

	maxPrioBytes, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.MaxPriorityFeePerGas = new(uint256.Int).SetBytes(maxPrioBytes)

	pub, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.PublicKey = pub

	sig, _, err := crypto.ReadBytes(rest)
	if err != nil {
		return Transaction{}, err
	}
	tx.Signature = sig

	return tx, nil
}

func readAddress(b []byte) (crypto.Address, []byte, error) {
	if len(b) < 1+crypto.CredentialSize {
		return crypto.Address{}, nil, errors.New("database: short buffer for address")
	}

	var addr crypto.Address
	addr.Kind = crypto.AddressKind(b[0])
	copy(addr.Credential[:], b[1:1+crypto.CredentialSize])
	return addr, b[1+crypto.CredentialSize:], nil
}
