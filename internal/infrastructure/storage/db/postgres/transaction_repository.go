package postgresdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	uniqueViolation = "23505"

	insertTransaction = `INSERT INTO transactions (
		id, payload, description, account_id, network, key_list, threshold,
		signed_keys, signatures, status, start_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectTransaction = `SELECT id, payload, description, account_id, network,
		key_list, threshold, signed_keys, signatures, status, start_date
	FROM transactions WHERE id = $1`

	selectTransactionForUpdate = selectTransaction + ` FOR UPDATE`

	updateTransaction = `UPDATE transactions
	SET signed_keys = $2, signatures = $3, status = $4 WHERE id = $1`

	deleteTransaction = `DELETE FROM transactions WHERE id = $1`

	// empty filter args match everything
	selectAllTransactions = `SELECT id, payload, description, account_id,
		network, key_list, threshold, signed_keys, signatures, status, start_date
	FROM transactions
	WHERE ($1 = '' OR $1 = ANY(key_list))
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR network = $3)
	ORDER BY start_date, id LIMIT $4 OFFSET $5`

	countAllTransactions = `SELECT COUNT(*) FROM transactions
	WHERE ($1 = '' OR $1 = ANY(key_list))
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR network = $3)`
)

type txRepositoryPg struct {
	pgxPool          *pgxpool.Pool
	chLock           *sync.Mutex
	chEvents         chan domain.TransactionEvent
	externalChEvents chan domain.TransactionEvent
}

func NewTxRepositoryPgImpl(pgxPool *pgxpool.Pool) domain.TransactionRepository {
	return newTxRepositoryPgImpl(pgxPool)
}

func newTxRepositoryPgImpl(pgxPool *pgxpool.Pool) *txRepositoryPg {
	return &txRepositoryPg{
		pgxPool:          pgxPool,
		chLock:           &sync.Mutex{},
		chEvents:         make(chan domain.TransactionEvent),
		externalChEvents: make(chan domain.TransactionEvent),
	}
}

func (t *txRepositoryPg) AddTransaction(
	ctx context.Context, trx *domain.Transaction,
) (bool, error) {
	if _, err := t.pgxPool.Exec(
		ctx, insertTransaction,
		trx.Id, trx.Payload, trx.Description, trx.AccountId, trx.Network,
		trx.KeyList, trx.Threshold, trx.SignedKeys(), trx.Signatures(),
		string(trx.Status), trx.StartDate,
	); err != nil {
		if pqErr, ok := err.(*pgconn.PgError); pqErr != nil && ok && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}

	go t.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionAdded,
		Transaction: trx,
	})

	return true, nil
}

func (t *txRepositoryPg) GetTransaction(
	ctx context.Context, txId string,
) (*domain.Transaction, error) {
	row := t.pgxPool.QueryRow(ctx, selectTransaction, txId)
	return scanTx(row)
}

// UpdateTransaction runs updateFn over the row locked with
// SELECT ... FOR UPDATE so that concurrent updates to the same transaction
// are linearized by the database.
func (t *txRepositoryPg) UpdateTransaction(
	ctx context.Context, txId string,
	updateFn func(tx *domain.Transaction) (*domain.Transaction, error),
) error {
	conn, err := t.pgxPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	pgTx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgTx.Rollback(ctx)

	row := pgTx.QueryRow(ctx, selectTransactionForUpdate, txId)
	tx, err := scanTx(row)
	if err != nil {
		return err
	}

	prevStatus := tx.Status
	updatedTx, err := updateFn(tx)
	if err != nil {
		return err
	}

	if _, err := pgTx.Exec(
		ctx, updateTransaction,
		updatedTx.Id, updatedTx.SignedKeys(), updatedTx.Signatures(),
		string(updatedTx.Status),
	); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return err
	}

	if event, ok := statusChangeEvent(prevStatus, updatedTx); ok {
		go t.publishEvent(event)
	}
	return nil
}

func (t *txRepositoryPg) GetAllTransactions(
	ctx context.Context, filter domain.TransactionFilter, page domain.Page,
) ([]domain.Transaction, int, error) {
	var count int
	if err := t.pgxPool.QueryRow(
		ctx, countAllTransactions,
		filter.PublicKey, string(filter.Status), filter.Network,
	).Scan(&count); err != nil {
		return nil, -1, err
	}
	totalPages := page.TotalPages(count)

	rows, err := t.pgxPool.Query(
		ctx, selectAllTransactions,
		filter.PublicKey, string(filter.Status), filter.Network,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, -1, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, err
	}
	return txs, totalPages, nil
}

func (t *txRepositoryPg) DeleteTransaction(
	ctx context.Context, txId string,
) error {
	tx, err := t.GetTransaction(ctx, txId)
	if err != nil {
		return err
	}

	if _, err := t.pgxPool.Exec(ctx, deleteTransaction, txId); err != nil {
		return err
	}

	go t.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionDeleted,
		Transaction: tx,
	})
	return nil
}

func (t *txRepositoryPg) GetEventChannel() chan domain.TransactionEvent {
	return t.externalChEvents
}

func (t *txRepositoryPg) publishEvent(event domain.TransactionEvent) {
	t.chLock.Lock()
	defer t.chLock.Unlock()

	t.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case t.externalChEvents <- event:
	default:
	}
}

func (t *txRepositoryPg) close() {
	close(t.chEvents)
	close(t.externalChEvents)
}

func scanTx(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var signedKeys, signatures []string
	var status string
	var startDate time.Time

	if err := row.Scan(
		&tx.Id, &tx.Payload, &tx.Description, &tx.AccountId, &tx.Network,
		&tx.KeyList, &tx.Threshold, &signedKeys, &signatures, &status,
		&startDate,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	// signers are persisted as parallel arrays paired by index
	if len(signedKeys) != len(signatures) {
		return nil, fmt.Errorf(
			"transaction %s has %d signed keys and %d signatures",
			tx.Id, len(signedKeys), len(signatures),
		)
	}
	signers := make([]domain.Signer, 0, len(signedKeys))
	for i := range signedKeys {
		signers = append(signers, domain.Signer{
			PublicKey: signedKeys[i],
			Signature: signatures[i],
		})
	}
	tx.Signers = signers
	tx.Status = domain.TransactionStatus(status)
	tx.StartDate = startDate.UTC()
	return &tx, nil
}

func statusChangeEvent(
	prevStatus domain.TransactionStatus, tx *domain.Transaction,
) (domain.TransactionEvent, bool) {
	if tx.Status == prevStatus {
		return domain.TransactionEvent{}, false
	}
	switch tx.Status {
	case domain.TransactionStatusSigned:
		return domain.TransactionEvent{
			EventType:   domain.TransactionSigned,
			Transaction: tx,
		}, true
	case domain.TransactionStatusExpired:
		return domain.TransactionEvent{
			EventType:   domain.TransactionExpired,
			Transaction: tx,
		}, true
	}
	return domain.TransactionEvent{}, false
}
