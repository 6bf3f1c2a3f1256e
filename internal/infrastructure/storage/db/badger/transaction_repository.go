package dbbadger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/equitas-foundation/multisigd/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

type transactionRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.TransactionEvent
	externalChEvents chan domain.TransactionEvent
	lock             *sync.Mutex

	log func(format string, a ...interface{})
}

func NewTransactionRepository(
	store *badgerhold.Store,
) domain.TransactionRepository {
	return newTransactionRepository(store)
}

func newTransactionRepository(
	store *badgerhold.Store,
) *transactionRepository {
	chEvents := make(chan domain.TransactionEvent)
	externalChEvents := make(chan domain.TransactionEvent)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transaction repository: %s", format)
		log.Debugf(format, a...)
	}
	return &transactionRepository{
		store, chEvents, externalChEvents, lock, logFn,
	}
}

func (r *transactionRepository) AddTransaction(
	ctx context.Context, tx *domain.Transaction,
) (bool, error) {
	done, err := r.insertTx(ctx, tx)
	if done {
		go r.publishEvent(domain.TransactionEvent{
			EventType:   domain.TransactionAdded,
			Transaction: tx,
		})
	}
	return done, err
}

func (r *transactionRepository) GetTransaction(
	ctx context.Context, txId string,
) (*domain.Transaction, error) {
	return r.getTx(ctx, txId)
}

func (r *transactionRepository) UpdateTransaction(
	ctx context.Context, txId string,
	updateFn func(*domain.Transaction) (*domain.Transaction, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	tx, err := r.getTx(ctx, txId)
	if err != nil {
		return err
	}

	prevStatus := tx.Status
	updatedTx, err := updateFn(tx)
	if err != nil {
		return err
	}

	if err := r.updateTx(ctx, *updatedTx); err != nil {
		return err
	}

	if event, ok := statusChangeEvent(prevStatus, updatedTx); ok {
		go r.publishEvent(event)
	}
	return nil
}

func (r *transactionRepository) GetAllTransactions(
	ctx context.Context, filter domain.TransactionFilter, page domain.Page,
) ([]domain.Transaction, int, error) {
	query := queryForFilter(filter)

	count, err := r.countTxs(ctx, query)
	if err != nil {
		return nil, -1, err
	}
	totalPages := page.TotalPages(count)

	query = query.SortBy("StartDate", "Id").
		Skip(page.Offset()).Limit(page.Size)

	txs, err := r.findTxs(ctx, query)
	if err != nil {
		return nil, -1, err
	}
	return txs, totalPages, nil
}

func (r *transactionRepository) DeleteTransaction(
	ctx context.Context, txId string,
) error {
	tx, err := r.getTx(ctx, txId)
	if err != nil {
		return err
	}

	if err := r.deleteTx(ctx, txId); err != nil {
		return err
	}

	go r.publishEvent(domain.TransactionEvent{
		EventType:   domain.TransactionDeleted,
		Transaction: tx,
	})
	return nil
}

func (r *transactionRepository) GetEventChannel() chan domain.TransactionEvent {
	return r.externalChEvents
}

func (r *transactionRepository) insertTx(
	ctx context.Context, tx *domain.Transaction,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(t, tx.Id, tx)
	} else {
		err = r.store.Insert(tx.Id, tx)
	}

	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *transactionRepository) getTx(
	ctx context.Context, txId string,
) (*domain.Transaction, error) {
	var err error
	var tx domain.Transaction

	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(t, txId, &tx)
	} else {
		err = r.store.Get(txId, &tx)
	}

	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	return &tx, nil
}

func (r *transactionRepository) updateTx(
	ctx context.Context, tx domain.Transaction,
) error {
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(t, tx.Id, tx)
	}
	return r.store.Update(tx.Id, tx)
}

func (r *transactionRepository) deleteTx(
	ctx context.Context, txId string,
) error {
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		return r.store.TxDelete(t, txId, domain.Transaction{})
	}
	return r.store.Delete(txId, domain.Transaction{})
}

func (r *transactionRepository) findTxs(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	var err error
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(t, &txs, query)
	} else {
		err = r.store.Find(&txs, query)
	}
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) countTxs(
	ctx context.Context, query *badgerhold.Query,
) (int, error) {
	var count uint64
	var err error
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		count, err = r.store.TxCount(t, domain.Transaction{}, query)
	} else {
		count, err = r.store.Count(domain.Transaction{}, query)
	}
	if err != nil {
		return -1, err
	}
	return int(count), nil
}

func (r *transactionRepository) publishEvent(event domain.TransactionEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *transactionRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *transactionRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}

func queryForFilter(filter domain.TransactionFilter) *badgerhold.Query {
	query := &badgerhold.Query{}
	if len(filter.PublicKey) > 0 {
		query = badgerhold.Where("KeyList").Contains(filter.PublicKey)
	}
	if len(filter.Status) > 0 {
		query = andWhere(query, "Status", filter.Status)
	}
	if len(filter.Network) > 0 {
		query = andWhere(query, "Network", filter.Network)
	}
	return query
}

func andWhere(
	query *badgerhold.Query, field string, value interface{},
) *badgerhold.Query {
	if query.IsEmpty() {
		return badgerhold.Where(field).Eq(value)
	}
	return query.And(field).Eq(value)
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
