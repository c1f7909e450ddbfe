// Package signature provides the crypto primitives the blockchain core
// depends on: content hashing, the sign/verify oracle, and address
// derivation. Everything above this package treats signing as a pure
// oracle over (message, signature, public key); how a wallet produces a
// signature is not this package's concern.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash is the previous-hash value stored on the genesis block.
const ZeroHash = "0"

// COINBASE is the sentinel sender address for block-issued value. No
// private key corresponds to it.
const COINBASE = "COINBASE"

// nilStamp is folded into every signed payload so a signature produced
// for this chain can't be replayed against another one.
const nilStamp = "\x19Nilotic Signed Message:\n32"

// addressPrefix is prepended to every derived account address.
const addressPrefix = "NIL"

// Hash returns the deterministic 64-character hex SHA-256 digest of the
// JSON encoding of value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return HashBytes(data)
}

// HashBytes returns the hex SHA-256 digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Sign uses the specified private key to sign value, returning the
// signature in the [R|S|V] format used across the ledger.
func Sign(value any, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {
	data, err := stamp(value)
	if err != nil {
		return nil, nil, nil, err
	}

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return nil, nil, nil, err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return nil, nil, nil, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return nil, nil, nil, errors.New("invalid signature")
	}

	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64]})

	return v, r, s, nil
}

// Verify reports whether a [R|S|V]-format signature is valid for the
// given message and the claimed signer's public key bytes.
func Verify(value any, v, r, s *big.Int, publicKey []byte) bool {
	if v == nil || r == nil || s == nil || len(publicKey) == 0 {
		return false
	}

	data, err := stamp(value)
	if err != nil {
		return false
	}

	pub, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return false
	}

	sig := toSignatureBytes(v, r, s)

	recovered, err := crypto.SigToPub(data, sig)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*recovered) == crypto.PubkeyToAddress(*pub)
}

// FromAddress extracts the address of the account that produced the
// given signature over value.
func FromAddress(value any, v, r, s *big.Int) (string, error) {
	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	sig := toSignatureBytes(v, r, s)

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return DeriveAddress(*publicKey), nil
}

// DeriveAddress computes the account address for a public key: the
// "NIL" prefix followed by the first 34 hex characters of the SHA-256
// digest of the key's PEM encoding.
func DeriveAddress(publicKey ecdsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(&publicKey)
	if err != nil {
		return ""
	}

	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	digest := HashBytes(block)

	return addressPrefix + digest[:34]
}

// SignatureString renders the R, S, V triple as a single hex string for
// storage and transport.
func SignatureString(v, r, s *big.Int) string {
	return "0x" + hex.EncodeToString(toSignatureBytes(v, r, s))
}

// =============================================================================

// stamp folds the Nilotic domain separator into the hash of value so
// signatures produced for this chain carry a unique fingerprint.
func stamp(value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	txHash := crypto.Keccak256(v)
	data := crypto.Keccak256([]byte(nilStamp), txHash)

	return data, nil
}

func toSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	rBytes := r.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)

	sBytes := s.Bytes()
	copy(sig[64-len(sBytes):64], sBytes)

	sig[64] = byte(v.Uint64())

	return sig
}
