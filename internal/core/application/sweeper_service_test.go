package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/equitas-foundation/multisigd/internal/core/application"
	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/equitas-foundation/multisigd/internal/core/ports"
	"github.com/equitas-foundation/multisigd/internal/infrastructure/storage/db/inmemory"
)

var sweeperConfig = application.SweeperConfig{
	Interval:          time.Hour,
	Window:            180 * time.Second,
	SubmissionTimeout: 5 * time.Second,
	PageSize:          100,
}

func TestSweeperConfig(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	submitter := newMockedLedgerSubmitter()

	tests := []struct {
		name   string
		config application.SweeperConfig
	}{
		{"missing interval", application.SweeperConfig{
			Window: time.Minute, SubmissionTimeout: time.Second, PageSize: 10,
		}},
		{"missing window", application.SweeperConfig{
			Interval: time.Minute, SubmissionTimeout: time.Second, PageSize: 10,
		}},
		{"missing submission timeout", application.SweeperConfig{
			Interval: time.Minute, Window: time.Minute, PageSize: 10,
		}},
		{"invalid page size", application.SweeperConfig{
			Interval: time.Minute, Window: time.Minute, SubmissionTimeout: time.Second,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := application.NewSweeperService(repoManager, submitter, tt.config)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestSweep(t *testing.T) {
	t.Run("signed transaction within window is submitted and removed", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(true, nil)

		tx := addTx(t, repoManager, 0, true)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		submitter.AssertNumberOfCalls(t, "Submit", 1)
		_, err = repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	})

	t.Run("pending transaction outside window is expired and retained", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()

		tx := addTx(t, repoManager, 2*sweeperConfig.Window, false)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		submitter.AssertNotCalled(t, "Submit")
		stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusExpired, stored.Status)
	})

	t.Run("signed transaction outside window is expired, not submitted", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()

		tx := addTx(t, repoManager, 2*sweeperConfig.Window, true)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		submitter.AssertNotCalled(t, "Submit")
		stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusExpired, stored.Status)
	})

	t.Run("pending transaction within window is untouched", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()

		tx := addTx(t, repoManager, 0, false)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		submitter.AssertNotCalled(t, "Submit")
		stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusPending, stored.Status)
	})

	t.Run("failed submission drops the transaction by default", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(false, nil)

		tx := addTx(t, repoManager, 0, true)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		_, err = repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	})

	t.Run("failed submission is retained as errored when configured", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(false, nil)

		tx := addTx(t, repoManager, 0, true)

		config := sweeperConfig
		config.RetainFailedSubmissions = true
		svc, err := application.NewSweeperService(repoManager, submitter, config)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		stored, err := repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.NoError(t, err)
		require.Equal(t, domain.TransactionStatusError, stored.Status)
	})

	t.Run("submission error does not abort the batch", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(false, errors.New("connection refused")).Once()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(true, nil)

		tx1 := addTx(t, repoManager, 0, true)
		tx2 := addTx(t, repoManager, 0, true)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		require.NoError(t, svc.Sweep(ctx))

		submitter.AssertNumberOfCalls(t, "Submit", 2)
		for _, txId := range []string{tx1.Id, tx2.Id} {
			_, err := repoManager.TransactionRepository().GetTransaction(ctx, txId)
			require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
		}
	})

	t.Run("overlapping sweeps are skipped", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		entered := make(chan struct{}, 1)
		release := make(chan struct{})
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Run(func(_ mock.Arguments) {
			entered <- struct{}{}
			<-release
		}).Return(true, nil)

		addTx(t, repoManager, 0, true)

		svc, err := application.NewSweeperService(repoManager, submitter, sweeperConfig)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() { done <- svc.Sweep(ctx) }()
		<-entered

		// the first sweep is still submitting, this one must be a no-op
		require.NoError(t, svc.Sweep(ctx))
		submitter.AssertNumberOfCalls(t, "Submit", 1)

		close(release)
		require.NoError(t, <-done)
	})

	t.Run("stuck submission is bounded by the timeout", func(t *testing.T) {
		repoManager := inmemory.NewRepoManager()
		submitter := newMockedLedgerSubmitter()
		submitter.On(
			"Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Run(func(args mock.Arguments) {
			submitCtx := args.Get(0).(context.Context)
			<-submitCtx.Done()
		}).Return(false, context.DeadlineExceeded)

		tx := addTx(t, repoManager, 0, true)

		config := sweeperConfig
		config.SubmissionTimeout = 50 * time.Millisecond
		svc, err := application.NewSweeperService(repoManager, submitter, config)
		require.NoError(t, err)

		start := time.Now()
		require.NoError(t, svc.Sweep(ctx))
		require.Less(t, time.Since(start), time.Second)

		_, err = repoManager.TransactionRepository().GetTransaction(ctx, tx.Id)
		require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
	})
}

// addTx stores a 1-of-1 transaction whose start date is moved age back in
// time, optionally already signed.
func addTx(
	t *testing.T, repoManager ports.RepoManager, age time.Duration, signed bool,
) *domain.Transaction {
	t.Helper()

	signer := newTestSigner()
	payload := randomHex(100)
	tx, err := domain.NewTransaction(
		payload, "", accountId, network, []string{signer.pubKey}, 1,
	)
	require.NoError(t, err)

	tx.StartDate = tx.StartDate.Add(-age)
	if signed {
		tx.AddSignature(signer.pubKey, signer.sign(payload))
	}

	done, err := repoManager.TransactionRepository().AddTransaction(ctx, tx)
	require.NoError(t, err)
	require.True(t, done)
	return tx
}
