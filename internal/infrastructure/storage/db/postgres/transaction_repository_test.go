package postgresdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

// pgx.Row
type fakeRow struct {
	signedKeys []string
	signatures []string
}

func (r fakeRow) Scan(dest ...interface{}) error {
	*dest[0].(*string) = "7f3b2a1c-0000-0000-0000-000000000000"
	*dest[1].(*string) = "0a1a0a0c0892d5c0af0610efaedd9503"
	*dest[2].(*string) = "test tx"
	*dest[3].(*string) = "0.0.1234"
	*dest[4].(*string) = "testnet"
	*dest[5].(*[]string) = []string{"key1", "key2"}
	*dest[6].(*int) = 2
	*dest[7].(*[]string) = r.signedKeys
	*dest[8].(*[]string) = r.signatures
	*dest[9].(*string) = string(domain.TransactionStatusPending)
	*dest[10].(*time.Time) = time.Now()
	return nil
}

func TestScanTxPairsSigners(t *testing.T) {
	tx, err := scanTx(fakeRow{
		signedKeys: []string{"key1", "key2"},
		signatures: []string{"sig1", "sig2"},
	})
	require.NoError(t, err)
	require.Equal(t, []domain.Signer{
		{PublicKey: "key1", Signature: "sig1"},
		{PublicKey: "key2", Signature: "sig2"},
	}, tx.Signers)
}

func TestScanTxMismatchedSignerArrays(t *testing.T) {
	tx, err := scanTx(fakeRow{
		signedKeys: []string{"key1", "key2"},
		signatures: []string{"sig1"},
	})
	require.Error(t, err)
	require.Nil(t, tx)
}
