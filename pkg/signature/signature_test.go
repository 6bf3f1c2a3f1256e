package signature_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/equitas-foundation/multisigd/pkg/signature"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

var message = "0a1a0a0c0892d5c0af0610efaedd950312080800100018c3bf0c1800"

func TestVerifyEd25519(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sig := ed25519.Sign(privKey, []byte(message))

	require.True(t, signature.Verify(
		hex.EncodeToString(pubKey), message, hex.EncodeToString(sig),
	))

	otherPubKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.False(t, signature.Verify(
		hex.EncodeToString(otherPubKey), message, hex.EncodeToString(sig),
	))

	require.False(t, signature.Verify(
		hex.EncodeToString(pubKey), message+"00", hex.EncodeToString(sig),
	))
}

func TestVerifyEcdsaSecp256k1(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKey := privKey.PubKey().SerializeCompressed()

	digest := sha3.NewLegacyKeccak256()
	digest.Write([]byte(message))
	hash := digest.Sum(nil)

	t.Run("der_signature", func(t *testing.T) {
		sig := btcecdsa.Sign(privKey, hash)
		require.True(t, signature.Verify(
			hex.EncodeToString(pubKey), message, hex.EncodeToString(sig.Serialize()),
		))

		require.False(t, signature.Verify(
			hex.EncodeToString(pubKey), message+"00", hex.EncodeToString(sig.Serialize()),
		))
	})

	t.Run("compact_signature", func(t *testing.T) {
		compact, err := btcecdsa.SignCompact(privKey, hash, true)
		require.NoError(t, err)
		// strip the recovery id, keeping the raw r || s pair
		rawSig := compact[1:]
		require.True(t, signature.Verify(
			hex.EncodeToString(pubKey), message, hex.EncodeToString(rawSig),
		))
	})

	t.Run("wrong_key", func(t *testing.T) {
		sig := btcecdsa.Sign(privKey, hash)
		otherKey, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		require.False(t, signature.Verify(
			hex.EncodeToString(otherKey.PubKey().SerializeCompressed()),
			message, hex.EncodeToString(sig.Serialize()),
		))
	})
}

func TestVerifyMalformedInput(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sig := ed25519.Sign(privKey, []byte(message))

	tests := []struct {
		name   string
		pubKey string
		sig    string
	}{
		{"not_hex_key", "zz123", hex.EncodeToString(sig)},
		{"not_hex_signature", hex.EncodeToString(pubKey), "zz123"},
		{"short_key", "cafe", hex.EncodeToString(sig)},
		{"short_signature", hex.EncodeToString(pubKey), "cafe"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, signature.Verify(tt.pubKey, message, tt.sig))
		})
	}
}
