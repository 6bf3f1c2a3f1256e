package application_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"github.com/stretchr/testify/mock"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

// ports.LedgerSubmitter
type mockLedgerSubmitter struct {
	mock.Mock
}

func newMockedLedgerSubmitter() *mockLedgerSubmitter {
	return &mockLedgerSubmitter{}
}

func (m *mockLedgerSubmitter) Submit(
	ctx context.Context, network, payload string, signers []domain.Signer,
) (bool, error) {
	args := m.Called(ctx, network, payload, signers)
	return args.Bool(0), args.Error(1)
}

// testSigner wraps an ed25519 keypair, its public key hex encoded the way it
// appears in a tx key list.
type testSigner struct {
	pubKey  string
	privKey ed25519.PrivateKey
}

func newTestSigner() *testSigner {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	return &testSigner{
		pubKey:  hex.EncodeToString(pub),
		privKey: priv,
	}
}

func (s *testSigner) sign(payload string) string {
	sig := ed25519.Sign(s.privKey, []byte(payload))
	return hex.EncodeToString(sig)
}

func randomHex(len int) string {
	buf := make([]byte, len)
	//nolint
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
