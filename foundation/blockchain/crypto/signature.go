package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// nonagonID is the recovery-id offset stamped into every signature produced
// by this chain, mirroring the teacher's ardanID convention so a Nonagon
// signature cannot be confused with a raw Ethereum one.
const nonagonID = 37

// AllowDevSignatureBypass gates the all-0xFF development signature override
// described in §6. It defaults to false; a node must opt in explicitly
// (e.g. from a CLI flag) and production deployments must leave it off. It
// is a package variable rather than a build tag so a single binary can run
// both a production and a devnet node type with one compiled artifact.
var AllowDevSignatureBypass = false

// devSignature is the all-0xFF override signature accepted only when
// AllowDevSignatureBypass is set.
var devSignature = bytes.Repeat([]byte{0xFF}, crypto.SignatureLength)

// Sign produces a signature over hash using privateKey. The pre-image is
// the transaction hash itself; the signature bytes are never part of what
// they sign.
func Sign(hash Hash, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), privateKey)
	if err != nil {
		return nil, err
	}

	sig[64] += nonagonID
	return sig, nil
}

// Verify checks that sig is a valid signature over hash produced by the
// holder of pub. The all-0xFF development override is accepted only when
// AllowDevSignatureBypass is true.
func Verify(hash Hash, sig []byte, pub *ecdsa.PublicKey) error {
	if len(sig) != crypto.SignatureLength {
		return errors.New("crypto: signature has wrong length")
	}

	if AllowDevSignatureBypass && bytes.Equal(sig, devSignature) {
		return nil
	}

	recoverID := sig[64] - nonagonID
	if recoverID != 0 && recoverID != 1 {
		return errors.New("crypto: invalid recovery id")
	}

	rs := make([]byte, crypto.SignatureLength)
	copy(rs, sig)
	rs[64] = recoverID

	if !crypto.VerifySignature(crypto.FromECDSAPub(pub), hash.Bytes(), rs[:64]) {
		return errors.New("crypto: signature does not verify")
	}

	recovered, err := crypto.SigToPub(hash.Bytes(), rs)
	if err != nil {
		return err
	}
	if !bytes.Equal(crypto.FromECDSAPub(recovered), crypto.FromECDSAPub(pub)) {
		return errors.New("crypto: signature does not match public key")
	}

	return nil
}

// RecoverAddress recovers the signing address from a hash and signature,
// used only when the public key is not already known to the caller. The
// development bypass cannot be recovered through and must be rejected by
// callers that need the signer's address.
func RecoverAddress(hash Hash, sig []byte) (Address, error) {
	if AllowDevSignatureBypass && bytes.Equal(sig, devSignature) {
		return Address{}, errors.New("crypto: cannot recover address from development bypass signature")
	}

	if len(sig) != crypto.SignatureLength {
		return Address{}, errors.New("crypto: signature has wrong length")
	}

	rs := make([]byte, crypto.SignatureLength)
	copy(rs, sig)
	rs[64] = sig[64] - nonagonID

	pub, err := crypto.SigToPub(hash.Bytes(), rs)
	if err != nil {
		return Address{}, err
	}

	return FromPublicKey(pub), nil
}
