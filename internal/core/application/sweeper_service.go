package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/equitas-foundation/multisigd/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	submittedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multisigd",
		Subsystem: "sweeper",
		Name:      "submitted_transactions_total",
		Help:      "Number of transactions submitted to the ledger.",
	})
	expiredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multisigd",
		Subsystem: "sweeper",
		Name:      "expired_transactions_total",
		Help:      "Number of transactions expired by the sweeper.",
	})
	failedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multisigd",
		Subsystem: "sweeper",
		Name:      "failed_submissions_total",
		Help:      "Number of submissions rejected by the ledger or errored.",
	})
)

// SweeperConfig groups the customizable options of the SweeperService.
type SweeperConfig struct {
	// Interval is the time between two consecutive sweeps.
	Interval time.Duration
	// Window is the timespan after its start date within which a signed
	// transaction is submitted to the ledger. Once outside the window a
	// transaction expires, whatever its status.
	Window time.Duration
	// SubmissionTimeout bounds a single ledger submission so that a stuck
	// ledger call cannot stall the whole sweep.
	SubmissionTimeout time.Duration
	// PageSize is the number of transactions fetched from the repository at
	// once while scanning the population.
	PageSize int
	// RetainFailedSubmissions makes the sweeper keep a transaction whose
	// submission failed, marked with the ERROR status, instead of deleting
	// it along with its collected signatures.
	RetainFailedSubmissions bool
}

func (c SweeperConfig) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("missing sweep interval")
	}
	if c.Window <= 0 {
		return fmt.Errorf("missing submission window")
	}
	if c.SubmissionTimeout <= 0 {
		return fmt.Errorf("missing submission timeout")
	}
	if c.PageSize < MinPageSize {
		return fmt.Errorf("page size must be at least %d", MinPageSize)
	}
	return nil
}

// SweeperService periodically scans the whole population of stored
// transactions and partitions it into those to be submitted to the ledger -
// signed and still within the submission window - and those to be expired -
// any non-terminal transaction whose window closed, included signed ones
// that were not swept in time.
//
// Expired transactions are retained. Submitted ones are deleted after the
// submission attempt: by default unconditionally, matching the observed
// behavior of the system this one coordinates with, or only on success when
// configured to retain failed submissions as ERROR.
//
// At most one sweep runs at a time, a tick firing while a sweep is still in
// flight is skipped.
type SweeperService struct {
	repoManager ports.RepoManager
	submitter   ports.LedgerSubmitter
	config      SweeperConfig

	inFlight int32
	quit     chan struct{}

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewSweeperService(
	repoManager ports.RepoManager, submitter ports.LedgerSubmitter,
	config SweeperConfig,
) (*SweeperService, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid sweeper config: %s", err)
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("sweeper service: %s", format)
		log.Infof(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("sweeper service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &SweeperService{
		repoManager: repoManager,
		submitter:   submitter,
		config:      config,
		quit:        make(chan struct{}),
		log:         logFn,
		warn:        warnFn,
	}, nil
}

func (ss *SweeperService) Start() {
	go ss.loop()
	ss.log("started with interval %s and window %s", ss.config.Interval, ss.config.Window)
}

func (ss *SweeperService) Stop() {
	close(ss.quit)
	ss.log("shutdown")
}

func (ss *SweeperService) loop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(ss.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ss.Sweep(ctx); err != nil {
				ss.warn(err, "sweep aborted")
			}
		case <-ss.quit:
			cancel()
			return
		}
	}
}

// Sweep runs a single pass over the stored transactions. It is exported to
// let an external scheduler trigger it, the in-flight guard prevents
// overlapping runs either way.
func (ss *SweeperService) Sweep(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&ss.inFlight, 0, 1) {
		ss.log("previous sweep still in flight, skipping tick")
		return nil
	}
	defer atomic.StoreInt32(&ss.inFlight, 0)

	toSubmit, toExpire, err := ss.partition(ctx)
	if err != nil {
		return err
	}

	if len(toSubmit) > 0 || len(toExpire) > 0 {
		ss.log(
			"%d transaction(s) to submit, %d to expire",
			len(toSubmit), len(toExpire),
		)
	}

	ss.expire(ctx, toExpire)
	ss.submit(ctx, toSubmit)
	return nil
}

// partition pages through the whole repository and classifies every
// transaction without mutating anything yet.
func (ss *SweeperService) partition(
	ctx context.Context,
) (toSubmit, toExpire []domain.Transaction, err error) {
	now := time.Now().UTC()
	page := domain.Page{Number: 1, Size: ss.config.PageSize}

	for {
		txs, totalPages, err := ss.repoManager.TransactionRepository().
			GetAllTransactions(ctx, domain.TransactionFilter{}, page)
		if err != nil {
			return nil, nil, err
		}

		for i := range txs {
			tx := txs[i]
			withinWindow := tx.IsWithinWindow(now, ss.config.Window)
			if tx.Status == domain.TransactionStatusSigned && withinWindow {
				toSubmit = append(toSubmit, tx)
				continue
			}
			if !tx.IsTerminal() && !withinWindow && tx.StartDate.Before(now) {
				toExpire = append(toExpire, tx)
			}
		}

		if page.Number >= totalPages {
			break
		}
		page.Number++
	}
	return toSubmit, toExpire, nil
}

func (ss *SweeperService) expire(ctx context.Context, txs []domain.Transaction) {
	for i := range txs {
		if ctx.Err() != nil {
			return
		}
		txId := txs[i].Id
		if err := ss.repoManager.TransactionRepository().UpdateTransaction(
			ctx, txId, func(tx *domain.Transaction) (*domain.Transaction, error) {
				tx.Expire()
				return tx, nil
			},
		); err != nil {
			ss.warn(err, "error while expiring transaction %s", txId)
			continue
		}
		expiredCounter.Inc()
		ss.log("expired transaction %s", txId)
	}
}

func (ss *SweeperService) submit(ctx context.Context, txs []domain.Transaction) {
	for i := range txs {
		if ctx.Err() != nil {
			return
		}
		tx := txs[i]

		accepted, err := ss.submitOne(ctx, tx)
		if err != nil {
			ss.warn(err, "error while submitting transaction %s", tx.Id)
		}
		if accepted {
			submittedCounter.Inc()
			ss.log("submitted transaction %s to %s", tx.Id, tx.Network)
		} else {
			failedCounter.Inc()
		}

		if !accepted && ss.config.RetainFailedSubmissions {
			if err := ss.repoManager.TransactionRepository().UpdateTransaction(
				ctx, tx.Id, func(tx *domain.Transaction) (*domain.Transaction, error) {
					tx.MarkError()
					return tx, nil
				},
			); err != nil {
				ss.warn(err, "error while marking transaction %s as failed", tx.Id)
			}
			continue
		}

		// the record is dropped once a submission attempt was made,
		// whatever its outcome
		if err := ss.repoManager.TransactionRepository().DeleteTransaction(
			ctx, tx.Id,
		); err != nil {
			ss.warn(err, "error while deleting transaction %s", tx.Id)
			continue
		}
		ss.log("removed transaction %s", tx.Id)
	}
}

func (ss *SweeperService) submitOne(
	ctx context.Context, tx domain.Transaction,
) (bool, error) {
	submitCtx, cancel := context.WithTimeout(ctx, ss.config.SubmissionTimeout)
	defer cancel()

	return ss.submitter.Submit(submitCtx, tx.Network, tx.Payload, tx.Signers)
}
