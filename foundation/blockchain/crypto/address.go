package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// CredentialSize is the length of the payment credential inside an Address.
const CredentialSize = 28

// AddressKind tags whether an address is an ordinary account or a deployed
// contract. A sum type over an enum, not a magic sentinel value.
type AddressKind uint8

const (
	// KindAccount is an ordinary, externally-owned account.
	KindAccount AddressKind = iota
	// KindContract is a deployed contract account.
	KindContract
)

// String implements fmt.Stringer.
func (k AddressKind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindContract:
		return "contract"
	default:
		return "unknown"
	}
}

// Address is a 28-byte payment credential plus an address-kind tag.
type Address struct {
	Kind       AddressKind
	Credential [CredentialSize]byte
}

// ZeroAddress is the "no recipient" sentinel used to mark contract creation.
var ZeroAddress Address

// IsZero reports whether a is the all-zero credential, independent of kind.
func (a Address) IsZero() bool {
	return a.Credential == ZeroAddress.Credential
}

// Bytes returns the type tag followed by the 28-byte credential.
func (a Address) Bytes() []byte {
	b := make([]byte, 1+CredentialSize)
	b[0] = byte(a.Kind)
	copy(b[1:], a.Credential[:])
	return b
}

// FromPublicKey derives an account address from a secp256k1 public key by
// hashing it and truncating to the low 28 bytes of the digest.
func FromPublicKey(pub *ecdsa.PublicKey) Address {
	digest := crypto.Keccak256(crypto.FromECDSAPub(pub))
	var addr Address
	copy(addr.Credential[:], digest[len(digest)-CredentialSize:])
	return addr
}

// DeriveCreate computes the address assigned to a new contract deployed by
// sender at its current nonce, per §4.2 CREATE semantics: H(sender||nonce)
// truncated to 28 bytes.
func DeriveCreate(sender Address, nonce uint64) Address {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	digest := Sum(sender.Credential[:], nonceBytes[:])
	addr := Address{Kind: KindContract}
	copy(addr.Credential[:], digest[len(digest)-CredentialSize:])
	return addr
}

// DeriveCreate2 computes the address for CREATE2: H(sender||salt||H(init_code))
// truncated to 28 bytes.
func DeriveCreate2(sender Address, salt Hash, initCodeHash Hash) Address {
	digest := Sum(sender.Credential[:], salt.Bytes(), initCodeHash.Bytes())
	addr := Address{Kind: KindContract}
	copy(addr.Credential[:], digest[len(digest)-CredentialSize:])
	return addr
}

// =============================================================================
// Text form: 5-bit grouped encoding (bech32's underlying group/checksum
// scheme) with a human-readable network prefix and a 6-symbol checksum,
// exactly matching bech32's BCH-based checksum construction.

// networkPrefix is the human-readable part prefixed to every address.
const networkPrefix = "nonagon"

// String renders the address in its 5-bit-grouped, checksummed text form.
func (a Address) String() string {
	payload := a.Bytes()

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return ""
	}

	encoded, err := bech32.Encode(networkPrefix, converted)
	if err != nil {
		return ""
	}

	return encoded
}

// ParseAddress decodes the 5-bit-grouped text form produced by String,
// validating its checksum and network prefix.
func ParseAddress(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid address checksum: %w", err)
	}
	if hrp != networkPrefix {
		return Address{}, fmt.Errorf("crypto: unexpected network prefix %q", hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, err
	}
	if len(payload) != 1+CredentialSize {
		return Address{}, errors.New("crypto: address payload has wrong length")
	}

	var addr Address
	addr.Kind = AddressKind(payload[0])
	copy(addr.Credential[:], payload[1:])
	return addr, nil
}
