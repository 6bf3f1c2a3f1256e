package dbtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

var errSomethingWentWrong = fmt.Errorf("something went wrong")

func TestTransactionRepository(
	t *testing.T, ctx context.Context, repo domain.TransactionRepository,
) {
	testAddAndGetTransaction(t, ctx, repo)

	testUpdateTransaction(t, ctx, repo)

	testListTransactions(t, ctx, repo)

	testDeleteTransaction(t, ctx, repo)

	time.Sleep(1 * time.Second) // wait for events
}

func testAddAndGetTransaction(
	t *testing.T, ctx context.Context, repo domain.TransactionRepository,
) {
	newTx := randomTx("testnet")
	wrongTxid := randomTx("testnet").Id

	done, err := repo.AddTransaction(ctx, newTx)
	require.NoError(t, err)
	require.True(t, done)

	done, err = repo.AddTransaction(ctx, newTx)
	require.NoError(t, err)
	require.False(t, done)

	tx, err := repo.GetTransaction(ctx, newTx.Id)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, newTx.Id, tx.Id)
	require.Equal(t, newTx.Payload, tx.Payload)
	require.Equal(t, newTx.KeyList, tx.KeyList)
	require.Equal(t, newTx.Threshold, tx.Threshold)
	require.Equal(t, domain.TransactionStatusPending, tx.Status)

	tx, err = repo.GetTransaction(ctx, wrongTxid)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	require.Nil(t, tx)
}

func testUpdateTransaction(
	t *testing.T, ctx context.Context, repo domain.TransactionRepository,
) {
	newTx := randomTx("testnet")
	pubKey := newTx.KeyList[0]

	done, err := repo.AddTransaction(ctx, newTx)
	require.NoError(t, err)
	require.True(t, done)

	err = repo.UpdateTransaction(
		ctx, newTx.Id, func(tx *domain.Transaction) (*domain.Transaction, error) {
			tx.AddSignature(pubKey, randomHex(64))
			return tx, nil
		},
	)
	require.NoError(t, err)

	tx, err := repo.GetTransaction(ctx, newTx.Id)
	require.NoError(t, err)
	require.Len(t, tx.Signers, 1)
	require.Equal(t, pubKey, tx.Signers[0].PublicKey)
	require.Equal(t, domain.TransactionStatusSigned, tx.Status)

	// errors returned by the update fn abort the update and bubble up
	err = repo.UpdateTransaction(
		ctx, newTx.Id, func(tx *domain.Transaction) (*domain.Transaction, error) {
			return nil, errSomethingWentWrong
		},
	)
	require.EqualError(t, errSomethingWentWrong, err.Error())

	err = repo.UpdateTransaction(
		ctx, randomTx("testnet").Id,
		func(tx *domain.Transaction) (*domain.Transaction, error) {
			return tx, nil
		},
	)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
}

func testListTransactions(
	t *testing.T, ctx context.Context, repo domain.TransactionRepository,
) {
	mainnetTx := randomTx("mainnet")
	done, err := repo.AddTransaction(ctx, mainnetTx)
	require.NoError(t, err)
	require.True(t, done)

	page := domain.Page{Number: 1, Size: 100}

	txs, totalPages, err := repo.GetAllTransactions(
		ctx, domain.TransactionFilter{}, page,
	)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(txs), 3)
	require.Equal(t, 1, totalPages)

	txs, _, err = repo.GetAllTransactions(
		ctx, domain.TransactionFilter{Network: "mainnet"}, page,
	)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, mainnetTx.Id, txs[0].Id)

	txs, _, err = repo.GetAllTransactions(
		ctx, domain.TransactionFilter{PublicKey: mainnetTx.KeyList[0]}, page,
	)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, mainnetTx.Id, txs[0].Id)

	txs, _, err = repo.GetAllTransactions(
		ctx, domain.TransactionFilter{Status: domain.TransactionStatusSigned}, page,
	)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	// paging with size 1 yields as many pages as stored txs
	txs, totalPages, err = repo.GetAllTransactions(
		ctx, domain.TransactionFilter{}, domain.Page{Number: 1, Size: 1},
	)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.GreaterOrEqual(t, totalPages, 3)
}

func testDeleteTransaction(
	t *testing.T, ctx context.Context, repo domain.TransactionRepository,
) {
	newTx := randomTx("testnet")

	done, err := repo.AddTransaction(ctx, newTx)
	require.NoError(t, err)
	require.True(t, done)

	err = repo.DeleteTransaction(ctx, newTx.Id)
	require.NoError(t, err)

	tx, err := repo.GetTransaction(ctx, newTx.Id)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	require.Nil(t, tx)

	err = repo.DeleteTransaction(ctx, newTx.Id)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
}

func randomTx(network string) *domain.Transaction {
	tx, _ := domain.NewTransaction(
		randomHex(100), "", "0.0.12345", network,
		[]string{randomHex(32), randomHex(32)}, 1,
	)
	return tx
}

func randomHex(len int) string {
	buf := make([]byte, len)
	//nolint
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
