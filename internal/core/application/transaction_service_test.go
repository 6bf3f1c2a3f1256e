package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equitas-foundation/multisigd/internal/core/application"
	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx       = context.Background()
	accountId = "0.0.12345"
	network   = "testnet"
)

func TestCreateTransaction(t *testing.T) {
	svc := application.NewTransactionService(inmemory.NewRepoManager())

	t.Run("valid request", func(t *testing.T) {
		signers := []*testSigner{newTestSigner(), newTestSigner(), newTestSigner()}
		keyList := []string{signers[0].pubKey, signers[1].pubKey, signers[2].pubKey}

		info, err := svc.CreateTransaction(
			ctx, randomHex(100), "token mint", accountId, network, keyList, 2,
		)
		require.NoError(t, err)
		require.NotNil(t, info)
		require.NotEmpty(t, info.Id)
		require.Equal(t, domain.TransactionStatusPending, info.Status)
		require.Equal(t, 2, info.Threshold)
		require.Len(t, info.KeyList, 3)
		require.Empty(t, info.Signers)
		require.False(t, info.StartDate.IsZero())
	})

	t.Run("duplicated keys and zero threshold", func(t *testing.T) {
		signer := newTestSigner()
		keyList := []string{signer.pubKey, signer.pubKey, signer.pubKey}

		info, err := svc.CreateTransaction(
			ctx, randomHex(100), "", accountId, network, keyList, 0,
		)
		require.NoError(t, err)
		require.Len(t, info.KeyList, 1)
		require.Equal(t, 1, info.Threshold)
	})

	t.Run("invalid request", func(t *testing.T) {
		keyList := []string{newTestSigner().pubKey}

		tests := []struct {
			name        string
			payload     string
			accountId   string
			network     string
			keyList     []string
			threshold   int
			expectedErr error
		}{
			{"missing payload", "", accountId, network, keyList, 1, domain.ErrTransactionMissingPayload},
			{"missing account", randomHex(100), "", network, keyList, 1, domain.ErrTransactionMissingAccount},
			{"unknown network", randomHex(100), accountId, "devnet", keyList, 1, domain.ErrTransactionInvalidNetwork},
			{"empty key list", randomHex(100), accountId, network, nil, 1, domain.ErrTransactionMissingKeyList},
			{"negative threshold", randomHex(100), accountId, network, keyList, -1, domain.ErrTransactionInvalidThreshold},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				info, err := svc.CreateTransaction(
					ctx, tt.payload, "", tt.accountId, tt.network, tt.keyList, tt.threshold,
				)
				require.EqualError(t, err, tt.expectedErr.Error())
				require.Nil(t, info)
			})
		}
	})
}

func TestSignTransaction(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	svc := application.NewTransactionService(repoManager)

	payload := randomHex(100)
	signers := []*testSigner{newTestSigner(), newTestSigner(), newTestSigner()}
	keyList := []string{signers[0].pubKey, signers[1].pubKey, signers[2].pubKey}

	info, err := svc.CreateTransaction(
		ctx, payload, "", accountId, network, keyList, 2,
	)
	require.NoError(t, err)

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.SignTransaction(
			ctx, "not-a-uuid", signers[0].pubKey, signers[0].sign(payload),
		)
		require.EqualError(t, err, domain.ErrTransactionInvalidId.Error())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.SignTransaction(
			ctx, "c9f06a72-0a73-4f5f-b563-94cbd9a33415",
			signers[0].pubKey, signers[0].sign(payload),
		)
		require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	})

	t.Run("unauthorized key", func(t *testing.T) {
		intruder := newTestSigner()
		_, err := svc.SignTransaction(
			ctx, info.Id, intruder.pubKey, intruder.sign(payload),
		)
		require.EqualError(t, err, domain.ErrTransactionUnauthorizedKey.Error())
	})

	t.Run("invalid signature", func(t *testing.T) {
		// signature over a different payload
		_, err := svc.SignTransaction(
			ctx, info.Id, signers[0].pubKey, signers[0].sign(randomHex(100)),
		)
		require.EqualError(t, err, domain.ErrTransactionInvalidSignature.Error())
	})

	t.Run("threshold transition", func(t *testing.T) {
		updated, err := svc.SignTransaction(
			ctx, info.Id, signers[0].pubKey, signers[0].sign(payload),
		)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusPending, updated.Status)
		require.Len(t, updated.Signers, 1)

		updated, err = svc.SignTransaction(
			ctx, info.Id, signers[1].pubKey, signers[1].sign(payload),
		)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusSigned, updated.Status)
		require.Len(t, updated.Signers, 2)

		// late signatures are still collected, the status is untouched
		updated, err = svc.SignTransaction(
			ctx, info.Id, signers[2].pubKey, signers[2].sign(payload),
		)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusSigned, updated.Status)
		require.Len(t, updated.Signers, 3)
	})

	t.Run("duplicated signature is not double counted", func(t *testing.T) {
		updated, err := svc.SignTransaction(
			ctx, info.Id, signers[0].pubKey, signers[0].sign(payload),
		)
		require.NoError(t, err)
		require.Len(t, updated.Signers, 3)
	})

	t.Run("terminal transaction rejects signatures", func(t *testing.T) {
		expired, err := svc.CreateTransaction(
			ctx, payload, "", accountId, network, keyList, 2,
		)
		require.NoError(t, err)

		err = repoManager.TransactionRepository().UpdateTransaction(
			ctx, expired.Id,
			func(tx *domain.Transaction) (*domain.Transaction, error) {
				tx.Expire()
				return tx, nil
			},
		)
		require.NoError(t, err)

		_, err = svc.SignTransaction(
			ctx, expired.Id, signers[0].pubKey, signers[0].sign(payload),
		)
		require.EqualError(t, err, domain.ErrTransactionExpired.Error())
	})
}

func TestListAndDeleteTransactions(t *testing.T) {
	svc := application.NewTransactionService(inmemory.NewRepoManager())

	payload := randomHex(100)
	alice, bob := newTestSigner(), newTestSigner()

	tx1, err := svc.CreateTransaction(
		ctx, payload, "", accountId, network, []string{alice.pubKey, bob.pubKey}, 1,
	)
	require.NoError(t, err)
	_, err = svc.CreateTransaction(
		ctx, randomHex(100), "", accountId, "mainnet", []string{bob.pubKey}, 1,
	)
	require.NoError(t, err)

	t.Run("all", func(t *testing.T) {
		txs, totalPages, err := svc.ListTransactions(
			ctx, application.ListFilters{}, application.Page{},
		)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		require.Equal(t, 1, totalPages)
	})

	t.Run("filtered by public key", func(t *testing.T) {
		txs, _, err := svc.ListTransactions(
			ctx, application.ListFilters{PublicKey: alice.pubKey}, application.Page{},
		)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.Equal(t, tx1.Id, txs[0].Id)
	})

	t.Run("filtered by status", func(t *testing.T) {
		_, err := svc.SignTransaction(ctx, tx1.Id, alice.pubKey, alice.sign(payload))
		require.NoError(t, err)

		txs, _, err := svc.ListTransactions(
			ctx, application.ListFilters{Status: "signed"}, application.Page{},
		)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.Equal(t, tx1.Id, txs[0].Id)
	})

	t.Run("filtered by network", func(t *testing.T) {
		txs, _, err := svc.ListTransactions(
			ctx, application.ListFilters{Network: "MAINNET"}, application.Page{},
		)
		require.NoError(t, err)
		require.Len(t, txs, 1)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, _, err := svc.ListTransactions(
			ctx, application.ListFilters{Status: "whatever"}, application.Page{},
		)
		require.EqualError(t, err, domain.ErrTransactionInvalidStatus.Error())
	})

	t.Run("delete", func(t *testing.T) {
		err := svc.DeleteTransaction(ctx, tx1.Id)
		require.NoError(t, err)

		err = svc.DeleteTransaction(ctx, tx1.Id)
		require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	})
}
