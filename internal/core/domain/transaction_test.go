package domain_test

import (
	"testing"
	"time"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

var (
	payload = "0a1a0a0c0892d5c0af0610efaedd9503"
	keys    = []string{"key1", "key2", "key3"}
)

func TestNewTransaction(t *testing.T) {
	tx, err := domain.NewTransaction(payload, "test tx", "0.0.1234", "testnet", keys, 2)
	require.NoError(t, err)
	require.NotEmpty(t, tx.Id)
	require.Equal(t, domain.TransactionStatusPending, tx.Status)
	require.Equal(t, 2, tx.Threshold)
	require.Len(t, tx.KeyList, 3)
	require.Empty(t, tx.Signers)
	require.False(t, tx.StartDate.IsZero())
}

func TestNewTransactionNormalizesThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		expected  int
	}{
		{"zero_means_all_keys", 0, 3},
		{"above_key_list_size", 10, 3},
		{"within_bounds", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := domain.NewTransaction(
				payload, "test tx", "0.0.1234", "testnet", keys, tt.threshold,
			)
			require.NoError(t, err)
			require.Equal(t, tt.expected, tx.Threshold)
		})
	}
}

func TestNewTransactionDedupsKeyList(t *testing.T) {
	tx, err := domain.NewTransaction(
		payload, "test tx", "0.0.1234", "testnet",
		[]string{"key1", "key2", "key1", "", "key2"}, 0,
	)
	require.NoError(t, err)
	require.Equal(t, []string{"key1", "key2"}, tx.KeyList)
	require.Equal(t, 2, tx.Threshold)
}

func TestNewTransactionInvalidArgs(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		accountId   string
		network     string
		keyList     []string
		threshold   int
		expectedErr error
	}{
		{"missing_payload", "", "0.0.1234", "testnet", keys, 1, domain.ErrTransactionMissingPayload},
		{"missing_account", payload, "", "testnet", keys, 1, domain.ErrTransactionMissingAccount},
		{"unknown_network", payload, "0.0.1234", "foonet", keys, 1, domain.ErrTransactionInvalidNetwork},
		{"empty_key_list", payload, "0.0.1234", "testnet", nil, 1, domain.ErrTransactionMissingKeyList},
		{"negative_threshold", payload, "0.0.1234", "testnet", keys, -1, domain.ErrTransactionInvalidThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := domain.NewTransaction(
				tt.payload, "test tx", tt.accountId, tt.network, tt.keyList, tt.threshold,
			)
			require.Nil(t, tx)
			require.EqualError(t, err, tt.expectedErr.Error())
		})
	}
}

func TestAddSignature(t *testing.T) {
	tx, err := domain.NewTransaction(payload, "test tx", "0.0.1234", "testnet", keys, 2)
	require.NoError(t, err)

	tx.AddSignature("key1", "sig1")
	require.Equal(t, domain.TransactionStatusPending, tx.Status)
	require.True(t, tx.HasSigned("key1"))
	require.False(t, tx.HasSigned("key2"))

	tx.AddSignature("key2", "sig2")
	require.Equal(t, domain.TransactionStatusSigned, tx.Status)

	// a signature beyond the threshold never demotes the tx
	tx.AddSignature("key3", "sig3")
	require.Equal(t, domain.TransactionStatusSigned, tx.Status)

	require.Equal(t, []string{"key1", "key2", "key3"}, tx.SignedKeys())
	require.Equal(t, []string{"sig1", "sig2", "sig3"}, tx.Signatures())
	require.Len(t, tx.Signers, len(tx.SignedKeys()))
}

func TestExpire(t *testing.T) {
	tx, err := domain.NewTransaction(payload, "test tx", "0.0.1234", "testnet", keys, 1)
	require.NoError(t, err)
	require.False(t, tx.IsTerminal())

	tx.Expire()
	require.Equal(t, domain.TransactionStatusExpired, tx.Status)
	require.True(t, tx.IsTerminal())

	tx.MarkError()
	require.Equal(t, domain.TransactionStatusExpired, tx.Status)
}

func TestIsWithinWindow(t *testing.T) {
	now := time.Now().UTC()
	window := 180 * time.Second

	tx := &domain.Transaction{StartDate: now.Add(-10 * time.Second)}
	require.True(t, tx.IsWithinWindow(now, window))

	tx = &domain.Transaction{StartDate: now.Add(-200 * time.Second)}
	require.False(t, tx.IsWithinWindow(now, window))

	// lower bound is exclusive
	tx = &domain.Transaction{StartDate: now.Add(-window)}
	require.False(t, tx.IsWithinWindow(now, window))

	// upper bound is inclusive
	tx = &domain.Transaction{StartDate: now}
	require.True(t, tx.IsWithinWindow(now, window))

	tx = &domain.Transaction{StartDate: now.Add(time.Minute)}
	require.False(t, tx.IsWithinWindow(now, window))
}

func TestPageTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		page     domain.Page
		count    int
		expected int
	}{
		{"exact_fit", domain.Page{Number: 1, Size: 10}, 20, 2},
		{"partial_last_page", domain.Page{Number: 1, Size: 10}, 21, 3},
		{"empty_population", domain.Page{Number: 1, Size: 10}, 0, 0},
		{"zero_value_page", domain.Page{}, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.page.TotalPages(tt.count))
		})
	}
}
