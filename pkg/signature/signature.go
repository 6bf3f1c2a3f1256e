package signature

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Result is the outcome of attempting a verification under a single scheme.
// MalformedInput means the key or signature cannot belong to the scheme at
// all (wrong length, not parsable), as opposed to a well-formed signature
// that simply does not verify.
type Result int

const (
	Verified Result = iota
	NotVerified
	MalformedInput
)

type scheme struct {
	name   string
	verify func(pubKey, message, sig []byte) Result
}

// Schemes are tried in order, first match wins. Ed25519 signs the raw
// message bytes, ECDSA over secp256k1 signs the Keccak-256 digest of them.
var schemes = []scheme{
	{"ed25519", verifyEd25519},
	{"ecdsa-secp256k1", verifyEcdsaSecp256k1},
}

// Verify reports whether sig is a valid signature of message produced by the
// private key matching pubKey. Key and signature are expected in hex format,
// the message is signed as its raw UTF-8 bytes. The signature is checked
// against every supported scheme without the caller having to declare which
// one the key belongs to. Any malformed input counts as a failed
// verification, it never results in an error or panic.
func Verify(pubKey, message, sig string) bool {
	pubKeyBytes, err := hex.DecodeString(pubKey)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	msgBytes := []byte(message)

	for _, s := range schemes {
		if s.verify(pubKeyBytes, msgBytes, sigBytes) == Verified {
			return true
		}
	}
	return false
}

func verifyEd25519(pubKey, message, sig []byte) Result {
	if len(pubKey) != ed25519.PublicKeySize {
		return MalformedInput
	}
	if len(sig) != ed25519.SignatureSize {
		return MalformedInput
	}
	if ed25519.Verify(ed25519.PublicKey(pubKey), message, sig) {
		return Verified
	}
	return NotVerified
}

func verifyEcdsaSecp256k1(pubKey, message, sig []byte) Result {
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return MalformedInput
	}

	parsedSig, err := parseEcdsaSignature(sig)
	if err != nil {
		return MalformedInput
	}

	digest := sha3.NewLegacyKeccak256()
	digest.Write(message)

	if parsedSig.Verify(digest.Sum(nil), key) {
		return Verified
	}
	return NotVerified
}

// parseEcdsaSignature accepts both DER-encoded signatures and the compact
// 64-byte r||s form.
func parseEcdsaSignature(sig []byte) (*btcecdsa.Signature, error) {
	parsed, err := btcecdsa.ParseDERSignature(sig)
	if err == nil {
		return parsed, nil
	}
	if len(sig) != 64 {
		return nil, err
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return nil, err
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return nil, err
	}
	return btcecdsa.NewSignature(&r, &s), nil
}
