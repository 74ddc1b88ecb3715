package database

import (
	"crypto/ecdsa"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// cryptoPublicKeyBytes renders an uncompressed secp256k1 public key the way
// every Transaction carries it on the wire.
func cryptoPublicKeyBytes(pub *ecdsa.PublicKey) []byte {
	return ethcrypto.FromECDSAPub(pub)
}

// cryptoUnmarshalPubkey parses the uncompressed form produced by
// cryptoPublicKeyBytes.
func cryptoUnmarshalPubkey(b []byte) (*ecdsa.PublicKey, error) {
	return ethcrypto.UnmarshalPubkey(b)
}
