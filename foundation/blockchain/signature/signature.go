// Package signature provides helper functions for handling the ledger
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// ledgerID is an arbitrary number added to the recovery id of every
// signature. This makes it clear the signature comes from this ledger.
// Ethereum and Bitcoin do this as well, but they use the value of 27.
const ledgerID = 29

// =============================================================================

// Hash returns the hex-encoded Keccak256 hash of the data.
func Hash(data []byte) string {
	return hexutil.Encode(crypto.Keccak256(data))
}

// HashValue returns a unique string for the value. It's used for values
// that don't carry a canonical encoding, like block headers.
func HashValue(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// Sign uses the specified private key to sign the data. The signature is
// returned in the 65 byte [R|S|V] format.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("missing private key")
	}

	// Prepare the data for signing.
	digest := stamp(data)

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, err
	}

	// Check the signature against the public key of the signer.
	publicKey := crypto.FromECDSAPub(&privateKey.PublicKey)
	if !crypto.VerifySignature(publicKey, digest, sig[:crypto.RecoveryIDOffset]) {
		return nil, errors.New("invalid signature")
	}

	sig[crypto.RecoveryIDOffset] += ledgerID

	return sig, nil
}

// Verify checks the signature was produced over the data by the private key
// that belongs to the specified public key.
func Verify(publicKey []byte, sig []byte, data []byte) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}

	// Check the recovery id is either 0 or 1.
	v := sig[crypto.RecoveryIDOffset] - ledgerID
	if v != 0 && v != 1 {
		return false
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return false
	}

	return crypto.VerifySignature(publicKey, stamp(data), sig[:crypto.RecoveryIDOffset])
}

// PublicKeyBytes returns the uncompressed form of the public key which is
// what gets stored with an account.
func PublicKeyBytes(publicKey ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(&publicKey)
}

// SignatureString returns the signature as a hex string.
func SignatureString(sig []byte) string {
	return hexutil.Encode(sig)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the ledger stamp embedded into the final hash.
func stamp(data []byte) []byte {

	// Hash the data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := crypto.Keccak256(data)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19Ledger Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash)
}
