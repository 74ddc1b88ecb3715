package state

import (
	"github.com/holiman/uint256"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Account is the nonce/balance/storage-root/code-hash record kept under
// the accounts trie, keyed by payment credential. An account is a
// contract exactly when CodeHash is non-zero.
type Account struct {
	Nonce       uint64
	Balance     *uint256.Int
	StorageRoot crypto.Hash
	CodeHash    crypto.Hash
}

// IsContract reports whether the account has associated code.
func (a Account) IsContract() bool {
	return !a.CodeHash.IsZero()
}

// emptyAccount constructs the zero-value account for a first write.
func emptyAccount() Account {
	return Account{Balance: uint256.NewInt(0)}
}

// Encode serializes the account with the big-endian framing shared by
// every hashed/stored structure in §6: nonce:u64, balance as a
// length-prefixed byte field, storage_root:32, code_hash:32.
func (a Account) Encode() []byte {
	var buf []byte
	buf = crypto.PutUint64(buf, a.Nonce)
	buf = crypto.PutBytes(buf, a.Balance.Bytes())
	buf = append(buf, a.StorageRoot.Bytes()...)
	buf = append(buf, a.CodeHash.Bytes()...)
	return buf
}

// DecodeAccount parses the bytes produced by Encode.
func DecodeAccount(b []byte) (Account, error) {
	var a Account

	nonce, rest, err := crypto.ReadUint64(b)
	if err != nil {
		return Account{}, err
	}
	a.Nonce = nonce

	balBytes, rest, err := crypto.ReadBytes(rest)
	if err != nil {
		return Account{}, err
	}
	a.Balance = new(uint256.Int).SetBytes(balBytes)

	storageRoot, rest, err := crypto.ReadHash(rest)
	if err != nil {
		return Account{}, err
	}
	a.StorageRoot = storageRoot

	codeHash, _, err := crypto.ReadHash(rest)
	if err != nil {
		return Account{}, err
	}
	a.CodeHash = codeHash

	return a, nil
}
